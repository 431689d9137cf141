package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	c "lautenbacher.net/parkleds/config"
)

var ErrInvalidConfig = errors.New("invalid sensor configuration")

// minYield is the shortest pause between two cycles, even when a cycle
// overran its slot.
const minYield = time.Millisecond

// Stats are running counters of the acquisition loop.
type Stats struct {
	Cycles     uint64
	Timeouts   uint64
	OutOfRange uint64
	NoEcho     uint64
	Invalid    uint64
}

// Acquirer runs the trigger / wait / compute cycle and feeds the
// measurement queue. The filter state is owned by the Run goroutine.
type Acquirer struct {
	provider c.Provider
	echo     Echo
	timer    *EdgeTimer
	queue    *MeasurementQueue
	filter   Filter
	now      func() uint64
	minYield time.Duration
	log      *slog.Logger

	cycles     atomic.Uint64
	timeouts   atomic.Uint64
	outOfRange atomic.Uint64
	noEcho     atomic.Uint64
	invalid    atomic.Uint64
}

type Option func(*Acquirer)

// WithClock replaces MonotonicMicros, e.g. for tests.
func WithClock(now func() uint64) Option {
	return func(a *Acquirer) { a.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Acquirer) { a.log = l }
}

// CheckSettings rejects configurations the acquisition loop cannot run
// with.
func CheckSettings(s c.SensorConfig) error {
	switch {
	case s.DistanceMaxMM <= s.DistanceMinMM:
		return fmt.Errorf("%w: distance max %dmm must be greater than min %dmm", ErrInvalidConfig, s.DistanceMaxMM, s.DistanceMinMM)
	case s.MeasurementInterval <= 0:
		return fmt.Errorf("%w: measurement interval must be positive", ErrInvalidConfig)
	case s.SensorTimeout <= 0:
		return fmt.Errorf("%w: sensor timeout must be positive", ErrInvalidConfig)
	case s.SensorTimeout >= s.MeasurementInterval:
		return fmt.Errorf("%w: sensor timeout %v must be shorter than interval %v", ErrInvalidConfig, s.SensorTimeout, s.MeasurementInterval)
	case s.SmoothingFactor == 0 || s.SmoothingFactor > 1000:
		return fmt.Errorf("%w: smoothing factor %d must be in 1..1000", ErrInvalidConfig, s.SmoothingFactor)
	}
	return nil
}

func NewAcquirer(provider c.Provider, echo Echo, timer *EdgeTimer, queue *MeasurementQueue, opts ...Option) (*Acquirer, error) {
	if provider == nil || echo == nil || timer == nil || queue == nil {
		return nil, fmt.Errorf("%w: provider, echo, timer and queue are required", ErrInvalidConfig)
	}
	if err := CheckSettings(provider.Sensor()); err != nil {
		return nil, err
	}
	a := &Acquirer{
		provider: provider,
		echo:     echo,
		timer:    timer,
		queue:    queue,
		now:      MonotonicMicros,
		minYield: minYield,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run attaches the echo and measures until ctx is cancelled.
func (a *Acquirer) Run(ctx context.Context) error {
	if err := a.echo.Attach(a.timer); err != nil {
		return fmt.Errorf("failed to attach echo: %w", err)
	}
	s := a.provider.Sensor()
	a.log.Info("Acquisition started", "interval", s.MeasurementInterval, "timeout", s.SensorTimeout,
		"min_mm", s.DistanceMinMM, "max_mm", s.DistanceMaxMM)

	wait := time.NewTimer(0)
	defer wait.Stop()
	<-wait.C

	next := time.Now()
	for {
		s = a.provider.Sensor()
		m, ok := a.cycle(ctx, s, wait)
		if !ok {
			a.log.Info("Acquisition stopped")
			return nil
		}
		a.cycles.Add(1)
		if a.queue.Push(m) {
			a.log.Debug("Measurement queue overflow", "overflows", a.queue.Overflows())
		}

		next = next.Add(s.MeasurementInterval)
		pause := time.Until(next)
		if pause < a.minYield {
			pause = a.minYield
			next = time.Now().Add(pause)
		}
		wait.Reset(pause)
		select {
		case <-ctx.Done():
			a.log.Info("Acquisition stopped")
			return nil
		case <-wait.C:
		}
	}
}

// cycle triggers one measurement and waits for its echo. It returns
// false only when ctx was cancelled while waiting.
func (a *Acquirer) cycle(ctx context.Context, s c.SensorConfig, wait *time.Timer) (Measurement, bool) {
	a.timer.Drain()
	if err := a.echo.Trigger(s.TriggerPulse); err != nil {
		a.log.Warn("Trigger pulse failed", "error", err)
		a.noEcho.Add(1)
		return Measurement{TimestampUs: a.now(), Status: StatusNoEcho}, true
	}

	wait.Reset(s.SensorTimeout)
	defer wait.Stop()

	select {
	case <-ctx.Done():
		return Measurement{}, false
	case <-wait.C:
		a.timeouts.Add(1)
		return Measurement{DistanceMM: 0, TimestampUs: a.now(), Status: StatusTimeout}, true
	case ev := <-a.timer.Events():
		return a.Process(ev, s), true
	}
}

// Process turns one edge event into a measurement. Only in-range
// readings touch the filter.
func (a *Acquirer) Process(ev EdgeEvent, s c.SensorConfig) Measurement {
	if ev.EndUs <= ev.StartUs {
		a.invalid.Add(1)
		return Measurement{TimestampUs: ev.EndUs, Status: StatusInvalidReading}
	}
	roundTrip := ev.EndUs - ev.StartUs
	if roundTrip >= NoEchoPulseUs {
		a.noEcho.Add(1)
		return Measurement{TimestampUs: ev.EndUs, Status: StatusNoEcho}
	}

	mm := DistanceMM(roundTrip, s.TemperatureCx10)
	if mm < s.DistanceMinMM || mm > s.DistanceMaxMM {
		a.outOfRange.Add(1)
		return Measurement{DistanceMM: mm, TimestampUs: ev.EndUs, Status: StatusOutOfRange}
	}
	return Measurement{
		DistanceMM:  a.filter.Update(mm, s.SmoothingFactor),
		TimestampUs: ev.EndUs,
		Status:      StatusOK,
	}
}

func (a *Acquirer) Stats() Stats {
	return Stats{
		Cycles:     a.cycles.Load(),
		Timeouts:   a.timeouts.Load(),
		OutOfRange: a.outOfRange.Load(),
		NoEcho:     a.noEcho.Load(),
		Invalid:    a.invalid.Load(),
	}
}

package platform

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"lautenbacher.net/parkleds/sensor"
	u "lautenbacher.net/parkleds/util"
)

const (
	// SimMaxRangeMM is the farthest obstacle that still returns an echo.
	SimMaxRangeMM = 4500
	simMinMM      = 20
	simLimitMM    = 5000
)

// SimEcho emulates the ultrasonic sensor for a virtual obstacle. Each
// trigger produces a rising edge at once and the falling edge after the
// round trip time, delivered from a timer goroutine like a real
// interrupt would arrive.
type SimEcho struct {
	temperatureCx10 int16
	distance        atomic.Uint32
	timer           atomic.Pointer[sensor.EdgeTimer]
}

func NewSimEcho(temperatureCx10 int16, distanceMM uint16) *SimEcho {
	e := &SimEcho{temperatureCx10: temperatureCx10}
	e.SetDistance(distanceMM)
	return e
}

func (e *SimEcho) Attach(t *sensor.EdgeTimer) error {
	e.timer.Store(t)
	return nil
}

func (e *SimEcho) Trigger(width time.Duration) error {
	t := e.timer.Load()
	if t == nil {
		return errors.New("simulated echo not attached")
	}
	mm := e.Distance()
	if mm > SimMaxRangeMM {
		return nil
	}
	rt := sensor.RoundTripUs(mm, e.temperatureCx10)
	start := sensor.MonotonicMicros()
	t.Rising(start)
	time.AfterFunc(time.Duration(rt)*time.Microsecond, func() {
		t.Falling(start + rt)
	})
	return nil
}

func (e *SimEcho) Close() error {
	e.timer.Store(nil)
	return nil
}

func (e *SimEcho) Distance() uint16 {
	return uint16(e.distance.Load())
}

func (e *SimEcho) SetDistance(mm uint16) {
	e.distance.Store(uint32(u.Clamp(mm, simMinMM, simLimitMM)))
}

// Nudge moves the obstacle by delta millimetres.
func (e *SimEcho) Nudge(delta int) uint16 {
	mm := u.Clamp(int(e.Distance())+delta, simMinMM, simLimitMM)
	e.SetDistance(uint16(mm))
	return uint16(mm)
}

// Sweep moves the obstacle back and forth between from and to in steps
// of step millimetres every period until ctx is done.
func (e *SimEcho) Sweep(ctx context.Context, from, to, step uint16, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	e.SetDistance(from)
	delta := int(step)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next := int(e.Distance()) + delta
			if next >= int(to) || next <= int(from) {
				next = u.Clamp(next, int(from), int(to))
				delta = -delta
			}
			e.SetDistance(uint16(next))
		}
	}
}

package display

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"lautenbacher.net/parkleds/sensor"
	u "lautenbacher.net/parkleds/util"
)

// FrameSink receives complete frames. DisplayLeds must not block.
type FrameSink interface {
	DisplayLeds(leds []Led)
}

// FrameClock re-renders the strip at a fixed rate, whether or not a new
// measurement arrived, so animation and blinking keep running.
type FrameClock struct {
	renderer *Renderer
	latest   *u.Latest[sensor.Measurement]
	sink     FrameSink
	interval time.Duration
	dimmer   *Dimmer
	now      func() uint64
	frames   atomic.Uint64
}

func NewFrameClock(r *Renderer, latest *u.Latest[sensor.Measurement], sink FrameSink, interval time.Duration) *FrameClock {
	return &FrameClock{
		renderer: r,
		latest:   latest,
		sink:     sink,
		interval: interval,
		now:      sensor.MonotonicMicros,
	}
}

// SetDimmer enables brightness control by sun position.
func (f *FrameClock) SetDimmer(d *Dimmer) {
	f.dimmer = d
}

func (f *FrameClock) Frames() uint64 {
	return f.frames.Load()
}

func (f *FrameClock) Run(ctx context.Context) error {
	slog.Info("Frame clock started", "interval", f.interval, "zone", f.renderer.Zone())
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Frame clock stopped", "frames", f.frames.Load())
			return nil
		case <-ticker.C:
			f.Tick()
		}
	}
}

// Tick renders and submits one frame. It never blocks.
func (f *FrameClock) Tick() {
	nowUs := f.now()
	if m, ok := f.latest.TryTake(); ok {
		f.renderer.Observe(m, nowUs)
	}
	if f.dimmer != nil {
		f.renderer.SetBrightness(f.dimmer.Level(time.Now()))
	}

	frame := f.renderer.Tick(nowUs)
	out := make([]Led, len(frame))
	copy(out, frame)
	f.sink.DisplayLeds(out)
	f.frames.Add(1)
}

//go:build linux

package platform

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"lautenbacher.net/parkleds/sensor"
)

// GPIOEcho drives the trigger line and receives echo edges through the
// Linux GPIO character device. Edge timestamps come from the kernel's
// CLOCK_MONOTONIC, the same clock as sensor.MonotonicMicros.
type GPIOEcho struct {
	chip          string
	triggerOffset int
	echoOffset    int
	mu            sync.Mutex
	trigger       *gpiocdev.Line
	echo          *gpiocdev.Line
}

func NewGPIOEcho(chip string, triggerOffset, echoOffset int) *GPIOEcho {
	return &GPIOEcho{
		chip:          chip,
		triggerOffset: triggerOffset,
		echoOffset:    echoOffset,
	}
}

func (g *GPIOEcho) Attach(t *sensor.EdgeTimer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.trigger != nil {
		return errors.New("gpio echo already attached")
	}

	trigger, err := gpiocdev.RequestLine(g.chip, g.triggerOffset,
		gpiocdev.AsOutput(0), gpiocdev.WithConsumer("parkleds-trigger"))
	if err != nil {
		return fmt.Errorf("request trigger line %d: %w", g.triggerOffset, err)
	}

	handler := func(evt gpiocdev.LineEvent) {
		ts := uint64(evt.Timestamp.Microseconds())
		switch evt.Type {
		case gpiocdev.LineEventRisingEdge:
			t.Rising(ts)
		case gpiocdev.LineEventFallingEdge:
			t.Falling(ts)
		}
	}
	echo, err := gpiocdev.RequestLine(g.chip, g.echoOffset,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(handler),
		gpiocdev.WithConsumer("parkleds-echo"))
	if err != nil {
		trigger.Close()
		return fmt.Errorf("request echo line %d: %w", g.echoOffset, err)
	}

	g.trigger = trigger
	g.echo = echo
	return nil
}

// Trigger raises the trigger line for width. The pulse is a few µs, so
// it is timed by spinning rather than sleeping.
func (g *GPIOEcho) Trigger(width time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.trigger == nil {
		return errors.New("gpio echo not attached")
	}
	if err := g.trigger.SetValue(1); err != nil {
		return fmt.Errorf("set trigger high: %w", err)
	}
	for end := time.Now().Add(width); time.Now().Before(end); {
	}
	if err := g.trigger.SetValue(0); err != nil {
		return fmt.Errorf("set trigger low: %w", err)
	}
	return nil
}

// Close returns both lines to inputs with pull-down and releases them.
func (g *GPIOEcho) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	if g.echo != nil {
		if err := g.echo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close echo line: %w", err))
		}
		g.echo = nil
	}
	if g.trigger != nil {
		if err := g.trigger.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure trigger line: %w", err))
		}
		if err := g.trigger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trigger line: %w", err))
		}
		g.trigger = nil
	}
	return errors.Join(errs...)
}

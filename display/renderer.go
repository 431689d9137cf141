package display

import (
	"log/slog"
	"time"

	c "lautenbacher.net/parkleds/config"
	"lautenbacher.net/parkleds/sensor"
)

// EmergencySpacing is the distance between two lit LEDs of the
// emergency pattern.
const EmergencySpacing = 10

// AnimationPercent is the brightness of the running light relative to
// the configured brightness.
const AnimationPercent = 2

type mode int

const (
	modeNone mode = iota
	modeInRange
	modeTooFar
	modeEmergency
)

func (m mode) String() string {
	switch m {
	case modeInRange:
		return "in-range"
	case modeTooFar:
		return "too-far"
	case modeEmergency:
		return "emergency"
	default:
		return "none"
	}
}

// Renderer composes one frame per tick from the latest measurement:
// running light, position pixel or reached zone, and the emergency
// pattern which suppresses everything else. It is not safe for
// concurrent use; the FrameClock owns it.
type Renderer struct {
	ledCount   int
	minMM      uint16
	maxMM      uint16
	brightness byte
	zone       Zone
	anim       Animation
	blink      Blink
	mode       mode
	position   int
	frame      []Led
}

// NewRenderer takes a snapshot of the display relevant settings. A
// change of the LED count needs a new Renderer.
func NewRenderer(p c.Provider, blinkInterval time.Duration) *Renderer {
	n := max(p.LedCount(), 1)
	return &Renderer{
		ledCount:   n,
		minMM:      p.DistanceMinMM(),
		maxMM:      p.DistanceMaxMM(),
		brightness: p.LedBrightness(),
		zone:       ComputeZone(n),
		blink:      Blink{PeriodUs: uint64(blinkInterval.Microseconds())},
		frame:      make([]Led, n),
	}
}

func (r *Renderer) Zone() Zone {
	return r.zone
}

func (r *Renderer) Animation() Animation {
	return r.anim
}

func (r *Renderer) SetBrightness(b byte) {
	r.brightness = b
}

// Observe feeds the latest measurement into the zone and animation
// state. Invalid readings leave the previous state untouched.
func (r *Renderer) Observe(m sensor.Measurement, nowUs uint64) {
	prev := r.mode
	switch m.Status {
	case sensor.StatusOK:
		r.mode = modeInRange
		r.position = PositionFor(m.DistanceMM, r.minMM, r.maxMM, r.ledCount)
		r.anim.Update(r.position, r.zone, r.ledCount)
	case sensor.StatusOutOfRange:
		if m.DistanceMM < r.minMM {
			r.mode = modeEmergency
			r.anim.Idle()
			break
		}
		r.tooFar()
	case sensor.StatusTimeout, sensor.StatusNoEcho:
		r.tooFar()
	case sensor.StatusInvalidReading:
		return
	default:
		slog.Warn("Ignoring measurement with unknown status", "status", m.Status)
		return
	}

	if r.mode == modeEmergency && prev != modeEmergency {
		r.blink.Restart(nowUs)
	}
	if r.mode != prev {
		slog.Debug("Display mode changed", "from", prev, "to", r.mode, "measurement", m)
	}
}

// tooFar runs the backward light with no position indicator.
func (r *Renderer) tooFar() {
	r.mode = modeTooFar
	// any position beyond the zone end selects the backward run
	r.anim.Update(r.ledCount, r.zone, r.ledCount)
}

// Tick renders the frame for nowUs and then advances the running light,
// so a freshly started run shows its first LED. The returned slice is
// reused by the next call.
func (r *Renderer) Tick(nowUs uint64) []Led {
	if r.mode == modeEmergency {
		r.blink.Tick(nowUs)
	}
	r.render()
	r.anim.Advance()
	return r.frame
}

func (r *Renderer) render() {
	clear(r.frame)

	if r.mode == modeEmergency {
		if r.blink.On {
			for i := 0; i < r.ledCount; i += EmergencySpacing {
				r.frame[i] = Red.Scale(r.brightness)
			}
		}
		return
	}

	if r.anim.Active && r.anim.Position >= 0 && r.anim.Position < r.ledCount {
		dim := byte(max(int(r.brightness)*AnimationPercent/100, 1))
		color := Blue
		if r.anim.Forward {
			color = Orange
		}
		r.frame[r.anim.Position] = color.Scale(dim)
	}

	if r.mode == modeInRange {
		if r.zone.Contains(r.position) {
			for i := r.zone.Start; i <= r.zone.End && i < r.ledCount; i++ {
				r.frame[i] = Red.Scale(r.brightness)
			}
		} else {
			r.frame[r.position] = Green.Scale(r.brightness)
		}
	}
}

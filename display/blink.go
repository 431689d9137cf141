package display

// Blink toggles between on and off every PeriodUs microseconds.
type Blink struct {
	On           bool
	LastToggleUs uint64
	PeriodUs     uint64
}

// Restart begins a new on phase at nowUs.
func (b *Blink) Restart(nowUs uint64) {
	b.On = true
	b.LastToggleUs = nowUs
}

// Tick toggles the state when a full period has passed and returns it.
func (b *Blink) Tick(nowUs uint64) bool {
	if nowUs >= b.LastToggleUs && nowUs-b.LastToggleUs >= b.PeriodUs {
		b.On = !b.On
		b.LastToggleUs = nowUs
	}
	return b.On
}

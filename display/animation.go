package display

// Animation is a single light running towards the ideal zone. Forward
// runs from LED 0 up to the zone start, backward from the last LED down
// to the zone end.
type Animation struct {
	Active   bool
	Forward  bool
	Position int
	Start    int
	End      int
}

// Update picks the direction for the current LED position. The running
// light only restarts when it was idle or changes direction.
func (a *Animation) Update(position int, z Zone, ledCount int) {
	switch {
	case position < z.Start:
		a.run(true, 0, z.Start)
	case position > z.End:
		a.run(false, ledCount-1, z.End)
	default:
		a.Idle()
	}
}

func (a *Animation) run(forward bool, start, end int) {
	if !a.Active || a.Forward != forward {
		a.Position = start
	}
	a.Active = true
	a.Forward = forward
	a.Start = start
	a.End = end
}

func (a *Animation) Idle() {
	a.Active = false
}

// Advance moves the light one LED towards End and wraps to Start once
// End has been shown.
func (a *Animation) Advance() {
	if !a.Active {
		return
	}
	if a.Forward {
		a.Position++
		if a.Position > a.End {
			a.Position = a.Start
		}
		return
	}
	a.Position--
	if a.Position < a.End {
		a.Position = a.Start
	}
}

package sensor

import "time"

// Echo is the ultrasonic transducer as seen by the acquisition loop.
// Implementations deliver the echo line's edges to the attached
// EdgeTimer, stamped with MonotonicMicros compatible timestamps.
type Echo interface {
	// Attach starts edge delivery to t.
	Attach(t *EdgeTimer) error
	// Trigger emits a trigger pulse of the given width.
	Trigger(width time.Duration) error
	Close() error
}

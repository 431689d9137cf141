package platform

import (
	"errors"

	d "lautenbacher.net/parkleds/display"
	"lautenbacher.net/parkleds/sensor"
)

var ErrUnsupported = errors.New("not supported on this platform")

// Platform defines the interface for abstracting away the real hardware
// from the TUI simulation.
type Platform interface {
	// Start initializes the platform (e.g., opens GPIO/SPI, or starts the TUI).
	Start() error

	// Stop cleans up all platform resources.
	Stop()

	// DisplayLeds hands a complete frame to the strip. It never blocks;
	// frames not yet written are replaced by newer ones.
	DisplayLeds(leds []d.Led)

	// Echo returns the ultrasonic sensor of this platform.
	Echo() sensor.Echo

	// Ready is closed once the platform can show frames.
	Ready() <-chan bool
}

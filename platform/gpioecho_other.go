//go:build !linux

package platform

import (
	"time"

	"lautenbacher.net/parkleds/sensor"
)

// GPIOEcho needs the Linux GPIO character device.
type GPIOEcho struct{}

func NewGPIOEcho(chip string, triggerOffset, echoOffset int) *GPIOEcho {
	return &GPIOEcho{}
}

func (g *GPIOEcho) Attach(t *sensor.EdgeTimer) error {
	return ErrUnsupported
}

func (g *GPIOEcho) Trigger(width time.Duration) error {
	return ErrUnsupported
}

func (g *GPIOEcho) Close() error {
	return nil
}

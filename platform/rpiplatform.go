package platform

import (
	"log/slog"

	c "lautenbacher.net/parkleds/config"
	d "lautenbacher.net/parkleds/display"
	"lautenbacher.net/parkleds/sensor"
)

type RaspberryPiPlatform struct {
	*AbstractPlatform
	bus    spiBus
	driver ledDriver
	echo   *GPIOEcho
	viewer *MeasurementViewer
}

func NewRaspberryPiPlatform(conf c.Config) *RaspberryPiPlatform {
	inst := &RaspberryPiPlatform{
		echo: NewGPIOEcho(conf.Hardware.GPIOChip, conf.Hardware.TriggerLine, conf.Hardware.EchoLine),
	}
	inst.AbstractPlatform = newAbstractPlatform(conf, inst.rpiDisplayFunc)
	return inst
}

// SetMeasurementViewer attaches an optional TUI viewer for sensor data.
func (s *RaspberryPiPlatform) SetMeasurementViewer(v *MeasurementViewer) {
	s.viewer = v
}

func (s *RaspberryPiPlatform) Echo() sensor.Echo {
	return s.echo
}

func (s *RaspberryPiPlatform) Start() error {
	var err error
	s.driver, err = newLedDriver(s.config.Hardware, s.config.Display.LedCount)
	if err != nil {
		return err
	}

	slog.Info("Initialise Spi...", "library", s.config.Hardware.SPILibrary, "device", s.config.Hardware.SPIDevice)
	s.bus, err = openSPIBus(s.config.Hardware)
	if err != nil {
		return err
	}

	if s.viewer != nil {
		s.viewer.Start()
	}

	s.startDisplayDriver()
	close(s.readyChan) // For RPi, we are ready immediately.
	return nil
}

func (s *RaspberryPiPlatform) Stop() {
	s.stopDisplayDriver()

	if s.bus != nil {
		if err := s.bus.write(s.driver.encode(make([]d.Led, s.config.Display.LedCount))); err != nil {
			slog.Error("Error clearing LED strip", "error", err)
		}
		if err := s.bus.close(); err != nil {
			slog.Error("Error closing spi bus", "error", err)
		}
		s.bus = nil
	}
	if err := s.echo.Close(); err != nil {
		slog.Error("Error releasing gpio lines", "error", err)
	}
	if s.viewer != nil {
		s.viewer.Stop()
	}
}

func (s *RaspberryPiPlatform) rpiDisplayFunc(leds []d.Led) {
	if err := s.bus.write(s.driver.encode(leds)); err != nil {
		slog.Error("Error writing to LED driver", "error", err)
	}
}

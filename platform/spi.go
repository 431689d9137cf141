package platform

import (
	"fmt"
	"strings"

	"github.com/stianeikeland/go-rpio/v4"
	c "lautenbacher.net/parkleds/config"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// spiBus writes raw bytes to the LED strip.
type spiBus interface {
	write(data []byte) error
	close() error
}

func openSPIBus(hw c.HardwareConfig) (spiBus, error) {
	switch strings.ToLower(hw.SPILibrary) {
	case "rpio":
		return openRpioBus(hw.SPIFrequency)
	default:
		return openPeriphBus(hw.SPIDevice, hw.SPIFrequency)
	}
}

type periphBus struct {
	port spi.PortCloser
	conn spi.Conn
	read []byte
}

func openPeriphBus(device string, frequency int) (*periphBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to init periph: %w", err)
	}
	port, err := spireg.Open(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open spi %s: %w", device, err)
	}
	conn, err := port.Connect(physic.Frequency(frequency)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect to spi device: %w", err)
	}
	return &periphBus{port: port, conn: conn}, nil
}

func (b *periphBus) write(data []byte) error {
	if cap(b.read) < len(data) {
		b.read = make([]byte, len(data))
	}
	return b.conn.Tx(data, b.read[:len(data)])
}

func (b *periphBus) close() error {
	return b.port.Close()
}

type rpioBus struct{}

func openRpioBus(frequency int) (*rpioBus, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open rpio: %w", err)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return nil, fmt.Errorf("failed to begin spi: %w", err)
	}
	rpio.SpiSpeed(frequency)
	rpio.SpiChipSelect(0)
	return &rpioBus{}, nil
}

func (b *rpioBus) write(data []byte) error {
	rpio.SpiTransmit(data...)
	return nil
}

func (b *rpioBus) close() error {
	rpio.SpiEnd(rpio.Spi0)
	return rpio.Close()
}

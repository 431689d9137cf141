package platform

import (
	"fmt"
	"math"
	"strings"

	c "lautenbacher.net/parkleds/config"
	d "lautenbacher.net/parkleds/display"
)

// ledDriver turns a frame into the byte stream for the strip's SPI
// protocol. The returned slice is reused by the next call.
type ledDriver interface {
	encode(leds []d.Led) []byte
}

func newLedDriver(hw c.HardwareConfig, ledCount int) (ledDriver, error) {
	corr := [3]float64{1, 1, 1}
	copy(corr[:], hw.ColorCorrection)

	switch strings.ToUpper(hw.LEDType) {
	case "WS2812":
		return newWs2812Driver(corr, ledCount), nil
	case "WS2801":
		return newWs2801Driver(corr, ledCount), nil
	case "APA102":
		return newApa102Driver(corr, ledCount), nil
	default:
		return nil, fmt.Errorf("unknown LED type: %s", hw.LEDType)
	}
}

func corrected(led d.Led, corr [3]float64) (byte, byte, byte) {
	return byte(math.Min(float64(led.Red)*corr[0], 255)),
		byte(math.Min(float64(led.Green)*corr[1], 255)),
		byte(math.Min(float64(led.Blue)*corr[2], 255))
}

// ws2812 over SPI at 2.4MHz: every data bit becomes three SPI bits,
// 110 for a one and 100 for a zero. Colors are sent as GRB, followed by
// a low period of >50µs that latches the frame.
const ws2812ResetBytes = 30

type ws2812Driver struct {
	corr   [3]float64
	buffer []byte
}

func newWs2812Driver(corr [3]float64, ledCount int) *ws2812Driver {
	return &ws2812Driver{
		corr:   corr,
		buffer: make([]byte, 9*ledCount+ws2812ResetBytes),
	}
}

func (s *ws2812Driver) encode(leds []d.Led) []byte {
	size := 9*len(leds) + ws2812ResetBytes
	if cap(s.buffer) < size {
		s.buffer = make([]byte, size)
	}
	out := s.buffer[:size]
	for i, led := range leds {
		r, g, b := corrected(led, s.corr)
		ws2812Bits(g, out[9*i:])
		ws2812Bits(r, out[9*i+3:])
		ws2812Bits(b, out[9*i+6:])
	}
	clear(out[9*len(leds):])
	return out
}

func ws2812Bits(v byte, dst []byte) {
	var bits uint32
	for i := 7; i >= 0; i-- {
		bits <<= 3
		if v&(1<<i) != 0 {
			bits |= 0b110
		} else {
			bits |= 0b100
		}
	}
	dst[0] = byte(bits >> 16)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits)
}

type ws2801Driver struct {
	corr   [3]float64
	buffer []byte
}

func newWs2801Driver(corr [3]float64, ledCount int) *ws2801Driver {
	return &ws2801Driver{
		corr:   corr,
		buffer: make([]byte, 3*ledCount),
	}
}

func (s *ws2801Driver) encode(leds []d.Led) []byte {
	size := 3 * len(leds)
	if cap(s.buffer) < size {
		s.buffer = make([]byte, size)
	}
	out := s.buffer[:size]
	for i, led := range leds {
		out[3*i], out[3*i+1], out[3*i+2] = corrected(led, s.corr)
	}
	return out
}

// apa102 frames: 4 zero bytes, per LED a 0xE0|brightness byte followed
// by blue, green, red, and an end frame of at least n/2 one bits.
// Brightness is already part of the colors so the global field is max.
const apa102Global = 31

type apa102Driver struct {
	corr   [3]float64
	buffer []byte
}

func newApa102Driver(corr [3]float64, ledCount int) *apa102Driver {
	return &apa102Driver{
		corr:   corr,
		buffer: make([]byte, apa102Size(ledCount)),
	}
}

func apa102Size(n int) int {
	return 4 + 4*n + n/16 + 1
}

func (s *apa102Driver) encode(leds []d.Led) []byte {
	size := apa102Size(len(leds))
	if cap(s.buffer) < size {
		s.buffer = make([]byte, size)
	}
	out := s.buffer[:size]
	clear(out[:4])

	offset := 4
	for _, led := range leds {
		r, g, b := corrected(led, s.corr)
		out[offset] = 0xE0 | apa102Global
		out[offset+1] = b
		out[offset+2] = g
		out[offset+3] = r
		offset += 4
	}
	for i := offset; i < size; i++ {
		out[i] = 0xFF
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const CONFILE = "config.yml"

type Config struct {
	RealHW     bool           `yaml:"-"`
	Configfile string         `yaml:"-"`
	Sensor     SensorConfig   `yaml:"Sensor"`
	Display    DisplayConfig  `yaml:"Display"`
	Hardware   HardwareConfig `yaml:"Hardware"`
	Publish    PublishConfig  `yaml:"Publish"`
	Logging    LoggingConfig  `yaml:"Logging"`
}

// SensorConfig drives the acquisition loop. MaxMM must be above MinMM and
// the timeout must be shorter than the measurement interval.
type SensorConfig struct {
	DistanceMinMM       uint16        `yaml:"DistanceMinMM"`
	DistanceMaxMM       uint16        `yaml:"DistanceMaxMM"`
	MeasurementInterval time.Duration `yaml:"MeasurementInterval"`
	SensorTimeout       time.Duration `yaml:"SensorTimeout"`
	TemperatureCx10     int16         `yaml:"TemperatureCx10"`
	SmoothingFactor     uint16        `yaml:"SmoothingFactor"`
	TriggerPulse        time.Duration `yaml:"TriggerPulse"`
}

type DisplayConfig struct {
	LedCount      int            `yaml:"LedCount"`
	Brightness    int            `yaml:"Brightness"`
	FrameInterval time.Duration  `yaml:"FrameInterval"`
	BlinkInterval time.Duration  `yaml:"BlinkInterval"`
	NightDim      NightDimConfig `yaml:"NightDim"`
}

// NightDimConfig lowers the brightness between sunset and sunrise.
type NightDimConfig struct {
	Enabled    bool    `yaml:"Enabled"`
	Latitude   float64 `yaml:"Latitude"`
	Longitude  float64 `yaml:"Longitude"`
	Brightness int     `yaml:"Brightness"`
}

type HardwareConfig struct {
	LEDType         string    `yaml:"LEDType"`
	SPILibrary      string    `yaml:"SPILibrary"`
	SPIDevice       string    `yaml:"SPIDevice"`
	SPIFrequency    int       `yaml:"SPIFrequency"`
	ColorCorrection []float64 `yaml:"ColorCorrection"`
	GPIOChip        string    `yaml:"GPIOChip"`
	TriggerLine     int       `yaml:"TriggerLine"`
	EchoLine        int       `yaml:"EchoLine"`
}

type PublishConfig struct {
	Enabled  bool   `yaml:"Enabled"`
	Broker   string `yaml:"Broker"`
	Topic    string `yaml:"Topic"`
	ClientID string `yaml:"ClientID"`
}

type LogConfig struct {
	Level  string `yaml:"Level"`
	Format string `yaml:"Format"`
	File   string `yaml:"File"`
}

type LoggingConfig struct {
	TUI LogConfig `yaml:"TUI"`
	HW  LogConfig `yaml:"HW"`
}

// Default returns the configuration used for every key missing from the
// config file. The values match an HC-SR04 at 20°C with a 40 LED strip.
func Default() Config {
	return Config{
		Sensor: SensorConfig{
			DistanceMinMM:       100,
			DistanceMaxMM:       4000,
			MeasurementInterval: 100 * time.Millisecond,
			SensorTimeout:       30 * time.Millisecond,
			TemperatureCx10:     200,
			SmoothingFactor:     300,
			TriggerPulse:        10 * time.Microsecond,
		},
		Display: DisplayConfig{
			LedCount:      40,
			Brightness:    128,
			FrameInterval: 100 * time.Millisecond,
			BlinkInterval: 500 * time.Millisecond,
			NightDim: NightDimConfig{
				Brightness: 32,
			},
		},
		Hardware: HardwareConfig{
			LEDType:         "WS2812",
			SPILibrary:      "periph",
			SPIDevice:       "/dev/spidev0.0",
			SPIFrequency:    2_400_000,
			ColorCorrection: []float64{1, 1, 1},
			GPIOChip:        "gpiochip0",
			TriggerLine:     23,
			EchoLine:        24,
		},
		Publish: PublishConfig{
			Topic: "parkleds/distance",
		},
		Logging: LoggingConfig{
			TUI: LogConfig{Level: "DEBUG", Format: "text"},
			HW:  LogConfig{Level: "INFO", Format: "text"},
		},
	}
}

func ReadConfig(cfile string) (Config, error) {
	conf := Default()

	f, err := os.Open(cfile)
	if err != nil {
		return Config{}, fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&conf); err != nil {
		return Config{}, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	conf.Configfile = cfile

	if err := conf.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", cfile, err)
	}
	return conf, nil
}

func (c *Config) Validate() error {
	if err := c.Sensor.Validate(); err != nil {
		return fmt.Errorf("Sensor: %w", err)
	}
	if err := c.Display.Validate(); err != nil {
		return fmt.Errorf("Display: %w", err)
	}
	if err := c.Hardware.Validate(); err != nil {
		return fmt.Errorf("Hardware: %w", err)
	}
	if c.Publish.Enabled {
		if c.Publish.Broker == "" {
			return fmt.Errorf("Publish: Broker must be set when publishing is enabled")
		}
		if c.Publish.Topic == "" {
			return fmt.Errorf("Publish: Topic must be set when publishing is enabled")
		}
	}
	return nil
}

func (s SensorConfig) Validate() error {
	if s.DistanceMinMM < 50 || s.DistanceMinMM > 1000 {
		return fmt.Errorf("DistanceMinMM (%d) must be between 50 and 1000", s.DistanceMinMM)
	}
	if s.DistanceMaxMM < 200 || s.DistanceMaxMM > 4000 {
		return fmt.Errorf("DistanceMaxMM (%d) must be between 200 and 4000", s.DistanceMaxMM)
	}
	if s.DistanceMaxMM <= s.DistanceMinMM {
		return fmt.Errorf("DistanceMaxMM (%d) must be greater than DistanceMinMM (%d)", s.DistanceMaxMM, s.DistanceMinMM)
	}
	if s.MeasurementInterval < 50*time.Millisecond || s.MeasurementInterval > time.Second {
		return fmt.Errorf("MeasurementInterval (%v) must be between 50ms and 1s", s.MeasurementInterval)
	}
	if s.SensorTimeout < 10*time.Millisecond || s.SensorTimeout > 50*time.Millisecond {
		return fmt.Errorf("SensorTimeout (%v) must be between 10ms and 50ms", s.SensorTimeout)
	}
	if s.SensorTimeout >= s.MeasurementInterval {
		return fmt.Errorf("SensorTimeout (%v) must be shorter than MeasurementInterval (%v)", s.SensorTimeout, s.MeasurementInterval)
	}
	if s.TemperatureCx10 < -200 || s.TemperatureCx10 > 600 {
		return fmt.Errorf("TemperatureCx10 (%d) must be between -200 and 600", s.TemperatureCx10)
	}
	if s.SmoothingFactor < 100 || s.SmoothingFactor > 1000 {
		return fmt.Errorf("SmoothingFactor (%d) must be between 100 and 1000", s.SmoothingFactor)
	}
	if s.TriggerPulse < 9*time.Microsecond || s.TriggerPulse > 50*time.Microsecond {
		return fmt.Errorf("TriggerPulse (%v) must be between 9µs and 50µs", s.TriggerPulse)
	}
	return nil
}

func (d DisplayConfig) Validate() error {
	if d.LedCount < 1 || d.LedCount > 100 {
		return fmt.Errorf("LedCount (%d) must be between 1 and 100", d.LedCount)
	}
	if d.Brightness < 10 || d.Brightness > 255 {
		return fmt.Errorf("Brightness (%d) must be between 10 and 255", d.Brightness)
	}
	if d.FrameInterval <= 0 {
		return fmt.Errorf("FrameInterval (%v) must be positive", d.FrameInterval)
	}
	if d.BlinkInterval < d.FrameInterval {
		return fmt.Errorf("BlinkInterval (%v) must not be shorter than FrameInterval (%v)", d.BlinkInterval, d.FrameInterval)
	}
	if d.NightDim.Enabled {
		if d.NightDim.Latitude < -90 || d.NightDim.Latitude > 90 {
			return fmt.Errorf("NightDim.Latitude (%v) must be between -90 and 90", d.NightDim.Latitude)
		}
		if d.NightDim.Longitude < -180 || d.NightDim.Longitude > 180 {
			return fmt.Errorf("NightDim.Longitude (%v) must be between -180 and 180", d.NightDim.Longitude)
		}
		if d.NightDim.Brightness < 1 || d.NightDim.Brightness > d.Brightness {
			return fmt.Errorf("NightDim.Brightness (%d) must be between 1 and Brightness (%d)", d.NightDim.Brightness, d.Brightness)
		}
	}
	return nil
}

func (h HardwareConfig) Validate() error {
	switch strings.ToUpper(h.LEDType) {
	case "WS2812", "WS2801", "APA102":
	default:
		return fmt.Errorf("unknown LEDType %q, must be one of WS2812, WS2801, APA102", h.LEDType)
	}
	switch strings.ToLower(h.SPILibrary) {
	case "periph", "rpio":
	default:
		return fmt.Errorf("unknown SPILibrary %q, must be periph or rpio", h.SPILibrary)
	}
	if h.SPIFrequency <= 0 {
		return fmt.Errorf("SPIFrequency (%d) must be positive", h.SPIFrequency)
	}
	if len(h.ColorCorrection) != 3 {
		return fmt.Errorf("ColorCorrection must have exactly 3 values, got %d", len(h.ColorCorrection))
	}
	for i, v := range h.ColorCorrection {
		if v < 0 || v > 1 {
			return fmt.Errorf("ColorCorrection[%d] (%v) must be between 0 and 1", i, v)
		}
	}
	if h.TriggerLine < 0 || h.EchoLine < 0 || h.TriggerLine == h.EchoLine {
		return fmt.Errorf("TriggerLine (%d) and EchoLine (%d) must be distinct non-negative offsets", h.TriggerLine, h.EchoLine)
	}
	return nil
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:

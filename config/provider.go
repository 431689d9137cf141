package config

import (
	"sync/atomic"
	"time"
)

// Provider gives read-only access to the values the measurement and
// render core depends on.
type Provider interface {
	DistanceMinMM() uint16
	DistanceMaxMM() uint16
	MeasurementInterval() time.Duration
	SensorTimeout() time.Duration
	TemperatureCx10() int16
	SmoothingFactor() uint16
	LedCount() int
	LedBrightness() byte
	Sensor() SensorConfig
}

// Store holds the active configuration as an immutable snapshot. Readers
// never block; Replace swaps in a whole new snapshot.
type Store struct {
	current atomic.Pointer[Config]
}

func NewStore(conf Config) *Store {
	s := &Store{}
	s.Replace(conf)
	return s
}

func (s *Store) Replace(conf Config) {
	c := conf
	c.Hardware.ColorCorrection = append([]float64(nil), conf.Hardware.ColorCorrection...)
	s.current.Store(&c)
}

// Snapshot returns a copy of the active configuration.
func (s *Store) Snapshot() Config {
	c := *s.current.Load()
	c.Hardware.ColorCorrection = append([]float64(nil), c.Hardware.ColorCorrection...)
	return c
}

func (s *Store) DistanceMinMM() uint16 { return s.current.Load().Sensor.DistanceMinMM }
func (s *Store) DistanceMaxMM() uint16 { return s.current.Load().Sensor.DistanceMaxMM }
func (s *Store) MeasurementInterval() time.Duration { return s.current.Load().Sensor.MeasurementInterval }
func (s *Store) SensorTimeout() time.Duration { return s.current.Load().Sensor.SensorTimeout }
func (s *Store) TemperatureCx10() int16 { return s.current.Load().Sensor.TemperatureCx10 }
func (s *Store) SmoothingFactor() uint16 { return s.current.Load().Sensor.SmoothingFactor }
func (s *Store) LedCount() int { return s.current.Load().Display.LedCount }
func (s *Store) Sensor() SensorConfig { return s.current.Load().Sensor }

func (s *Store) LedBrightness() byte {
	return byte(min(max(s.current.Load().Display.Brightness, 0), 255))
}

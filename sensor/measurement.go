// Package sensor turns echo edge timings of an HC-SR04 style ultrasonic
// sensor into filtered distance measurements.
package sensor

import "fmt"

// Status classifies the outcome of one acquisition cycle.
type Status uint8

const (
	StatusOK Status = iota
	StatusTimeout
	StatusOutOfRange
	StatusNoEcho
	StatusInvalidReading
)

var statusNames = [...]string{
	StatusOK:             "OK",
	StatusTimeout:        "TIMEOUT",
	StatusOutOfRange:     "OUT_OF_RANGE",
	StatusNoEcho:         "NO_ECHO",
	StatusInvalidReading: "INVALID_READING",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EdgeEvent holds the monotonic timestamps (µs) of one echo pulse.
type EdgeEvent struct {
	StartUs uint64
	EndUs   uint64
}

// Measurement is the result of one acquisition cycle. For StatusOK the
// distance is the filtered value, for StatusOutOfRange the raw one.
type Measurement struct {
	DistanceMM  uint16 `json:"distance_mm"`
	TimestampUs uint64 `json:"timestamp_us"`
	Status      Status `json:"status"`
}

func (m Measurement) Valid() bool {
	return m.Status == StatusOK
}

func (m Measurement) String() string {
	return fmt.Sprintf("%dmm@%dus(%s)", m.DistanceMM, m.TimestampUs, m.Status)
}

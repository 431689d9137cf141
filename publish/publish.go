// Package publish forwards distance measurements to an MQTT broker.
package publish

import (
	"encoding/json"
	"time"

	"lautenbacher.net/parkleds/sensor"
)

// Publisher sends measurements to an external consumer.
type Publisher interface {
	// Publish sends one measurement. Errors are reported to the caller
	// and must not stop the measurement pipeline.
	Publish(m sensor.Measurement) error

	// Close disconnects from the broker.
	Close() error
}

// Payload is the JSON message published per measurement.
type Payload struct {
	Time string `json:"time"`
	sensor.Measurement
}

// FormatPayload creates the JSON payload for a measurement taken at now.
func FormatPayload(m sensor.Measurement, now time.Time) ([]byte, error) {
	return json.Marshal(Payload{
		Time:        now.UTC().Format(time.RFC3339Nano),
		Measurement: m,
	})
}

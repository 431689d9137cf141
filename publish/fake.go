package publish

import (
	"sync"
	"time"

	"lautenbacher.net/parkleds/sensor"
)

// FakePublisher records published measurements for test assertions.
type FakePublisher struct {
	mu           sync.Mutex
	measurements []sensor.Measurement
	payloads     [][]byte

	// PublishError, if set, is returned by Publish.
	PublishError error
	closed       bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(m sensor.Measurement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(m, time.Unix(0, 0))
	if err != nil {
		return err
	}
	f.measurements = append(f.measurements, m)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FakePublisher) Measurements() []sensor.Measurement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sensor.Measurement(nil), f.measurements...)
}

func (f *FakePublisher) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

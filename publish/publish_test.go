package publish

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	c "lautenbacher.net/parkleds/config"
	"lautenbacher.net/parkleds/sensor"
)

func TestFormatPayload(t *testing.T) {
	m := sensor.Measurement{DistanceMM: 1234, TimestampUs: 987654321, Status: sensor.StatusOK}
	now := time.Date(2024, 6, 21, 12, 0, 0, 500_000_000, time.FixedZone("CEST", 2*3600))

	payload, err := FormatPayload(m, now)
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"time":"2024-06-21T10:00:00.5Z","distance_mm":1234,"timestamp_us":987654321,"status":"OK"}`,
		string(payload))
}

func TestFormatPayload_Status(t *testing.T) {
	tests := []struct {
		status sensor.Status
		want   string
	}{
		{sensor.StatusTimeout, "TIMEOUT"},
		{sensor.StatusOutOfRange, "OUT_OF_RANGE"},
		{sensor.StatusNoEcho, "NO_ECHO"},
		{sensor.StatusInvalidReading, "INVALID_READING"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			payload, err := FormatPayload(sensor.Measurement{Status: tt.status}, time.Unix(0, 0))
			require.NoError(t, err)

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(payload, &decoded))
			assert.Equal(t, tt.want, decoded["status"])
		})
	}
}

func TestClientID(t *testing.T) {
	assert.Equal(t, "garage", ClientID(c.PublishConfig{ClientID: "garage"}))

	generated := ClientID(c.PublishConfig{})
	require.True(t, strings.HasPrefix(generated, "parkleds-"))
	_, err := uuid.Parse(strings.TrimPrefix(generated, "parkleds-"))
	assert.NoError(t, err)
	assert.NotEqual(t, generated, ClientID(c.PublishConfig{}))
}

func TestFakePublisher(t *testing.T) {
	var p Publisher = NewFakePublisher()
	fake := p.(*FakePublisher)

	m := sensor.Measurement{DistanceMM: 500, TimestampUs: 1, Status: sensor.StatusOK}
	require.NoError(t, p.Publish(m))
	assert.Equal(t, []sensor.Measurement{m}, fake.Measurements())
	require.Len(t, fake.Payloads(), 1)
	assert.Contains(t, string(fake.Payloads()[0]), `"distance_mm":500`)

	fake.PublishError = errors.New("broker down")
	assert.Error(t, p.Publish(m))
	assert.Len(t, fake.Measurements(), 1)

	require.NoError(t, p.Close())
	assert.True(t, fake.Closed())
}

func TestConnect_UnreachableBrokerStopsRetrying(t *testing.T) {
	opts := clientOptions(c.PublishConfig{Broker: "tcp://127.0.0.1:1", ClientID: "parkleds-test"}).
		SetConnectRetryInterval(50 * time.Millisecond)
	client := paho.NewClient(opts)

	start := time.Now()
	err := connect(client, 200*time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Eventually(t, func() bool { return !client.IsConnected() }, 2*time.Second, 10*time.Millisecond,
		"a failed client must not keep reconnecting")
}

package publish

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	c "lautenbacher.net/parkleds/config"
	"lautenbacher.net/parkleds/sensor"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = time.Second
	retryInterval  = 5 * time.Second
)

// MQTTPublisher publishes to an actual MQTT broker.
type MQTTPublisher struct {
	client paho.Client
	topic  string
	now    func() time.Time
}

// ClientID returns the configured client id or a generated unique one.
func ClientID(pc c.PublishConfig) string {
	if pc.ClientID != "" {
		return pc.ClientID
	}
	return "parkleds-" + uuid.NewString()
}

func clientOptions(pc c.PublishConfig) *paho.ClientOptions {
	return paho.NewClientOptions().
		AddBroker(pc.Broker).
		SetClientID(ClientID(pc)).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetOnConnectHandler(func(paho.Client) {
			slog.Info("Connected to MQTT broker", "broker", pc.Broker)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("Lost connection to MQTT broker", "broker", pc.Broker, "error", err)
		})
}

// connect waits up to timeout for the first connection. On failure the
// client is disconnected so it stops retrying in the background.
func connect(client paho.Client, timeout time.Duration) error {
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return errors.New("connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

func NewMQTTPublisher(pc c.PublishConfig) (*MQTTPublisher, error) {
	client := paho.NewClient(clientOptions(pc))
	if err := connect(client, connectTimeout); err != nil {
		return nil, err
	}
	return &MQTTPublisher{
		client: client,
		topic:  pc.Topic,
		now:    time.Now,
	}, nil
}

func (p *MQTTPublisher) Publish(m sensor.Measurement) error {
	payload, err := FormatPayload(m, p.now())
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0, not retained; a lost sample is superseded by the next one
	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MqttClient publishes fanout payloads to a broker, one topic per device.
type MqttClient struct {
	client  mqtt.Client
	timeout time.Duration
}

// NewMqttClient connects to the broker at addr (host or host:port, default
// port 1883). A connect failure disables the channel: callers should treat
// the error as "channel unavailable" and carry on without it.
func NewMqttClient(addr string, timeout time.Duration) (*MqttClient, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL(addr)).
		SetClientID("pushrelayd-" + uuid.NewString()[:8]).
		SetConnectTimeout(timeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", addr)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s failed: %w", addr, err)
	}
	return &MqttClient{client: client, timeout: timeout}, nil
}

// Publish sends payload to topic at QoS 0.
func (c *MqttClient) Publish(ctx context.Context, topic string, payload []byte) error {
	token := c.client.Publish(topic, 0, false, payload)

	deadline := c.timeout
	if d, ok := ctx.Deadline(); ok {
		if remaining := time.Until(d); remaining < deadline {
			deadline = remaining
		}
	}
	if !token.WaitTimeout(deadline) {
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (c *MqttClient) Close() {
	c.client.Disconnect(250)
}

func brokerURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	if !strings.Contains(addr, ":") {
		addr += ":1883"
	}
	return "tcp://" + addr
}

package maxcube

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-maxcube/internal/clock"
	"github.com/nerrad567/gray-logic-maxcube/internal/infrastructure/mqtt"
)

// MQTTClient is the interface for MQTT operations.
// It is satisfied by *mqtt.Client via an adapter in main.go.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// MQTTNotifier publishes notifications as retained alert messages.
type MQTTNotifier struct {
	Client MQTTClient
	QoS    byte
	Clock  clock.Clock
}

// Ensure MQTTNotifier implements Notifier.
var _ Notifier = (*MQTTNotifier)(nil)

// Notify publishes n to its alert topic.
func (m *MQTTNotifier) Notify(_ context.Context, n Notification) error {
	payload, err := json.Marshal(NotificationMessage{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Timestamp: utcNow(m.Clock),
	})
	if err != nil {
		return fmt.Errorf("marshalling notification: %w", err)
	}
	return m.Client.Publish(mqtt.Topics{}.Alert(n.ID), payload, m.QoS, true)
}

// MQTTActivator announces platform activation on retained discovery topics.
type MQTTActivator struct {
	Client MQTTClient
	QoS    byte
	Clock  clock.Clock
}

// Ensure MQTTActivator implements Activator.
var _ Activator = (*MQTTActivator)(nil)

// Activate publishes the activation message for platform.
func (m *MQTTActivator) Activate(_ context.Context, platform Platform, hosts []string) error {
	payload, err := json.Marshal(ActivationMessage{
		Platform:  string(platform),
		Gateways:  hosts,
		Timestamp: utcNow(m.Clock),
	})
	if err != nil {
		return fmt.Errorf("marshalling activation: %w", err)
	}
	return m.Client.Publish(mqtt.Topics{}.Platform(string(platform)), payload, m.QoS, true)
}

// utcNow returns the UTC time from c, falling back to the real clock.
func utcNow(c clock.Clock) time.Time {
	if c == nil {
		c = clock.NewReal()
	}
	return c.Now().UTC()
}

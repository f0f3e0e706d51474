// Package events publishes entity status-change notifications for the
// administrative collaborator. Publishing is best-effort: a failed
// publish never fails the lifecycle operation that produced it.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// StatusEvent describes a committed status change of a fleet entity.
type StatusEvent struct {
	Entity    string    `json:"entity"` // "vehicle", "mission", "maintenance"
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicle_id,omitempty"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits status-change events.
type Publisher interface {
	PublishStatus(ev StatusEvent) error
}

// MQTTPublisher publishes events to an MQTT broker on
// fleet/<entity>/<id>/status.
type MQTTPublisher struct {
	client mqtt.Client
	qos    byte
}

// NewMQTTPublisher connects to the broker and returns a publisher.
func NewMQTTPublisher(broker, clientID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTPublisher{client: client, qos: 1}, nil
}

// PublishStatus sends the event as JSON.
func (p *MQTTPublisher) PublishStatus(ev StatusEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("fleet/%s/%s/status", ev.Entity, ev.ID)
	token := p.client.Publish(topic, p.qos, false, payload)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// Noop discards all events. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishStatus(StatusEvent) error { return nil }

// Mock records published events for tests.
type Mock struct {
	Events  []StatusEvent
	FailAll bool
}

// PublishStatus appends the event or fails if configured to.
func (m *Mock) PublishStatus(ev StatusEvent) error {
	if m.FailAll {
		return fmt.Errorf("publish failed")
	}
	m.Events = append(m.Events, ev)
	return nil
}

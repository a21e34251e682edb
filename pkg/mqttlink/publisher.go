package mqttlink

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes to a fixed topic.
type IPublisher interface {
	Publish(payload string) error
}

// Publisher writes messages to one topic at a fixed QoS.
type Publisher struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// NewPublisher builds a publisher on the shared client.
func NewPublisher(client mqtt.Client, topic string, qos byte) *Publisher {
	return &Publisher{client: client, topic: topic, qos: qos}
}

// Publish sends payload and waits for the token so broker-side errors
// surface to the caller.
func (p *Publisher) Publish(payload string) error {
	token := p.client.Publish(p.topic, p.qos, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, token.Error())
	}
	return nil
}

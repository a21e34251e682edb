package mqttlink

import (
	"context"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/arcfarm/irrigation-backend/internal/logger"
)

// Handler processes one inbound message.
type Handler func(topic string, message mqtt.Message) error

// IConsumer is the subscription contract the services depend on.
type IConsumer interface {
	Consume(ctx context.Context)
	SetHandler(h Handler)
}

// Consumer subscribes to a single topic and runs the handler per message.
// Telemetry is delivered at QoS1; the deduper upstream absorbs redeliveries.
type Consumer struct {
	client  mqtt.Client
	topic   string
	qos     byte
	handler Handler
}

// NewConsumer builds a consumer on the shared client.
func NewConsumer(client mqtt.Client, topic string, qos byte, h Handler) *Consumer {
	return &Consumer{client: client, topic: topic, qos: qos, handler: h}
}

// SetHandler replaces the message handler.
func (c *Consumer) SetHandler(h Handler) { c.handler = h }

// Consume subscribes and blocks until ctx is cancelled, then unsubscribes.
func (c *Consumer) Consume(ctx context.Context) {
	token := c.client.Subscribe(c.topic, c.qos, func(_ mqtt.Client, m mqtt.Message) {
		if c.handler == nil {
			logger.Warnf("no handler set for topic %s", c.topic)
			return
		}
		if err := c.handler(c.topic, m); err != nil {
			logger.Errorf("handling message on %s: %v", c.topic, err)
		}
	})
	if token.Wait() && token.Error() != nil {
		logger.Errorf("subscribe %s: %v", c.topic, token.Error())
		return
	}
	logger.Infof("subscribed to %s (qos=%d)", c.topic, c.qos)

	<-ctx.Done()

	unsub := c.client.Unsubscribe(c.topic)
	unsub.Wait()
}

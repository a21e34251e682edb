// Package ingress feeds sensor telemetry from MQTT into the arbitrator.
package ingress

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/arcfarm/irrigation-backend/internal/logger"
	"github.com/arcfarm/irrigation-backend/internal/metrics"
	"github.com/arcfarm/irrigation-backend/internal/model"
	"github.com/arcfarm/irrigation-backend/pkg/dedup"
	"github.com/arcfarm/irrigation-backend/pkg/mqttlink"
)

// Arbitrator is the telemetry entry point of the controller.
type Arbitrator interface {
	HandleTelemetry(sample model.TelemetrySample)
}

// Recorder receives every accepted sample for historical storage.
// Implementations write asynchronously and must not block.
type Recorder interface {
	RecordTelemetry(sample model.TelemetrySample)
}

// Service consumes telemetry messages, drops QoS1 redeliveries and malformed
// payloads, and hands valid samples to the arbitrator in arrival order.
type Service struct {
	consumer mqttlink.IConsumer
	arb      Arbitrator
	recorder Recorder // optional
	deduper  *dedup.Deduper
}

// New wires the ingress. recorder may be nil.
func New(consumer mqttlink.IConsumer, arb Arbitrator, recorder Recorder) *Service {
	s := &Service{
		consumer: consumer,
		arb:      arb,
		recorder: recorder,
		deduper:  dedup.New(10*time.Minute, 20000),
	}
	consumer.SetHandler(s.handleMessage)
	return s
}

// Start blocks consuming telemetry until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.consumer.Consume(ctx)
}

func (s *Service) handleMessage(_ string, msg mqtt.Message) error {
	// Discard identical QoS1 redeliveries before decoding.
	h := sha256.Sum256(msg.Payload())
	if !s.deduper.ShouldProcess(hex.EncodeToString(h[:])) {
		metrics.TelemetryDropped.WithLabelValues("duplicate").Inc()
		return nil
	}

	sample, err := model.ParseTelemetry(msg.Payload())
	if err != nil {
		// Drop the sample, keep the ingress alive.
		logger.Errorf("ingress: %v", err)
		metrics.TelemetryDropped.WithLabelValues("malformed").Inc()
		return nil
	}

	s.arb.HandleTelemetry(sample)
	if s.recorder != nil {
		s.recorder.RecordTelemetry(sample)
	}
	return nil
}

package ingress

import (
	"context"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcfarm/irrigation-backend/internal/model"
	"github.com/arcfarm/irrigation-backend/pkg/mqttlink"
)

type fakeMessage struct {
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return "pump/telemetry" }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type fakeConsumer struct {
	handler mqttlink.Handler
}

func (c *fakeConsumer) Consume(ctx context.Context)   { <-ctx.Done() }
func (c *fakeConsumer) SetHandler(h mqttlink.Handler) { c.handler = h }
func (c *fakeConsumer) deliver(payload string) error {
	return c.handler("pump/telemetry", &fakeMessage{payload: []byte(payload)})
}

type fakeArbitrator struct {
	samples []model.TelemetrySample
}

func (a *fakeArbitrator) HandleTelemetry(s model.TelemetrySample) {
	a.samples = append(a.samples, s)
}

type fakeRecorder struct {
	recorded int
}

func (r *fakeRecorder) RecordTelemetry(model.TelemetrySample) { r.recorded++ }

func TestIngressDeliversValidSample(t *testing.T) {
	consumer := &fakeConsumer{}
	arb := &fakeArbitrator{}
	rec := &fakeRecorder{}
	New(consumer, arb, rec)

	err := consumer.deliver(`{"flow_rate":12.5,"moisture":35,"pump_status":"ON","cycle_usage":4.2,"timestamp":"2026-08-23T06:00:00Z"}`)
	require.NoError(t, err)

	require.Len(t, arb.samples, 1)
	s := arb.samples[0]
	assert.Equal(t, 12.5, s.FlowRate)
	require.NotNil(t, s.Moisture)
	assert.Equal(t, 35.0, *s.Moisture)
	assert.True(t, s.PumpOn())
	assert.Equal(t, 1, rec.recorded)
}

func TestIngressDropsDuplicatePayload(t *testing.T) {
	consumer := &fakeConsumer{}
	arb := &fakeArbitrator{}
	New(consumer, arb, nil)

	payload := `{"flow_rate":1,"pump_status":"ON","cycle_usage":0,"timestamp":"2026-08-23T06:00:00Z"}`
	require.NoError(t, consumer.deliver(payload))
	require.NoError(t, consumer.deliver(payload))

	assert.Len(t, arb.samples, 1, "QoS1 redelivery must be suppressed")
}

func TestIngressDistinctPayloadsBothProcessed(t *testing.T) {
	consumer := &fakeConsumer{}
	arb := &fakeArbitrator{}
	New(consumer, arb, nil)

	require.NoError(t, consumer.deliver(`{"flow_rate":1,"pump_status":"ON","cycle_usage":0,"timestamp":"2026-08-23T06:00:00Z"}`))
	require.NoError(t, consumer.deliver(`{"flow_rate":2,"pump_status":"ON","cycle_usage":0,"timestamp":"2026-08-23T06:00:10Z"}`))

	assert.Len(t, arb.samples, 2)
}

func TestIngressDropsMalformedWithoutError(t *testing.T) {
	consumer := &fakeConsumer{}
	arb := &fakeArbitrator{}
	rec := &fakeRecorder{}
	New(consumer, arb, rec)

	assert.NoError(t, consumer.deliver(`not json`))
	assert.NoError(t, consumer.deliver(`{"pump_status":"MAYBE"}`))
	assert.NoError(t, consumer.deliver(`{"moisture":240,"pump_status":"ON"}`))
	assert.NoError(t, consumer.deliver(`{"flow_rate":-3,"pump_status":"ON"}`))

	assert.Empty(t, arb.samples)
	assert.Zero(t, rec.recorded)
}

func TestIngressWorksWithoutRecorder(t *testing.T) {
	consumer := &fakeConsumer{}
	arb := &fakeArbitrator{}
	New(consumer, arb, nil)

	assert.NotPanics(t, func() {
		_ = consumer.deliver(`{"flow_rate":1,"pump_status":"OFF","cycle_usage":0,"timestamp":"2026-08-23T06:00:00Z"}`)
	})
	assert.Len(t, arb.samples, 1)
}

func TestIngressStartStopsOnCancel(t *testing.T) {
	consumer := &fakeConsumer{}
	svc := New(consumer, &fakeArbitrator{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

var _ mqtt.Message = (*fakeMessage)(nil)

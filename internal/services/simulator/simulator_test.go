package simulator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcfarm/irrigation-backend/internal/model"
	"github.com/arcfarm/irrigation-backend/pkg/mqttlink"
)

type fakePublisher struct {
	payloads []string
}

func (p *fakePublisher) Publish(payload string) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

type fakeConsumer struct {
	handler mqttlink.Handler
}

func (c *fakeConsumer) Consume(ctx context.Context)   { <-ctx.Done() }
func (c *fakeConsumer) SetHandler(h mqttlink.Handler) { c.handler = h }

type fakeMessage struct{ payload string }

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return "pump/control" }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m *fakeMessage) Ack()              {}

var _ mqtt.Message = (*fakeMessage)(nil)

func TestMoistureModelRisesWhilePumping(t *testing.T) {
	m := NewMoistureModel(50, 0.6, 0.05)
	base := time.Date(2026, 8, 23, 6, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	m.Next(false) // establish the baseline instant

	base = base.Add(10 * time.Minute)
	got := m.Next(true)
	assert.InDelta(t, 56.0, got, 0.001)
}

func TestMoistureModelDecaysWhileIdle(t *testing.T) {
	m := NewMoistureModel(50, 0.6, 0.05)
	base := time.Date(2026, 8, 23, 6, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	m.Next(false)

	base = base.Add(60 * time.Minute)
	got := m.Next(false)
	assert.InDelta(t, 47.0, got, 0.001)
}

func TestMoistureModelClampsToRange(t *testing.T) {
	m := NewMoistureModel(99, 10, 10)
	base := time.Date(2026, 8, 23, 6, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	m.Next(false)

	base = base.Add(time.Hour)
	assert.Equal(t, 100.0, m.Next(true))

	base = base.Add(24 * time.Hour)
	assert.Equal(t, 0.0, m.Next(false))
}

func TestNodeObeysCommands(t *testing.T) {
	pub := &fakePublisher{}
	cons := &fakeConsumer{}
	node := NewNode(cons, pub, NewMoistureModel(50, 0.6, 0.05), 12)
	cons.SetHandler(node.handleCommand)

	require.NoError(t, cons.handler("pump/control", &fakeMessage{payload: "ON"}))
	assert.True(t, node.pumpOn)

	require.NoError(t, cons.handler("pump/control", &fakeMessage{payload: " off "}))
	assert.False(t, node.pumpOn)

	require.NoError(t, cons.handler("pump/control", &fakeMessage{payload: "REVERSE"}))
	assert.False(t, node.pumpOn, "unknown commands are ignored")
}

func TestNodePublishesValidTelemetry(t *testing.T) {
	pub := &fakePublisher{}
	cons := &fakeConsumer{}
	node := NewNode(cons, pub, NewMoistureModel(50, 0.6, 0.05), 12)

	require.NoError(t, node.handleCommand("pump/control", &fakeMessage{payload: "ON"}))
	node.publishSample(10 * time.Second)

	require.Len(t, pub.payloads, 1)
	sample, err := model.ParseTelemetry([]byte(pub.payloads[0]))
	require.NoError(t, err)
	assert.True(t, sample.PumpOn())
	assert.Greater(t, sample.FlowRate, 0.0)
	require.NotNil(t, sample.Moisture)
	require.NotNil(t, sample.TotalFlow)
	assert.Greater(t, *sample.TotalFlow, 0.0)
}

func TestNodeCycleUsageResetsPerRun(t *testing.T) {
	pub := &fakePublisher{}
	cons := &fakeConsumer{}
	node := NewNode(cons, pub, NewMoistureModel(50, 0.6, 0.05), 12)

	require.NoError(t, node.handleCommand("t", &fakeMessage{payload: "ON"}))
	node.publishSample(time.Minute)
	firstCycle := node.cycleUsage
	assert.Greater(t, firstCycle, 0.0)

	require.NoError(t, node.handleCommand("t", &fakeMessage{payload: "OFF"}))
	require.NoError(t, node.handleCommand("t", &fakeMessage{payload: "ON"}))
	assert.Zero(t, node.cycleUsage, "new run starts a fresh cycle counter")
	assert.Greater(t, node.totalFlow, 0.0, "lifetime total survives the restart")
}

func TestNodeReportsZeroFlowWhenOff(t *testing.T) {
	pub := &fakePublisher{}
	node := NewNode(&fakeConsumer{}, pub, NewMoistureModel(50, 0.6, 0.05), 12)

	node.publishSample(10 * time.Second)

	require.Len(t, pub.payloads, 1)
	var sample model.TelemetrySample
	require.NoError(t, json.Unmarshal([]byte(pub.payloads[0]), &sample))
	assert.Zero(t, sample.FlowRate)
	assert.False(t, sample.PumpOn())
}

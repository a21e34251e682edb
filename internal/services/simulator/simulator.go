// Package simulator is a software pump node for development and demos. It
// publishes synthetic telemetry on the telemetry topic and obeys ON/OFF
// commands on the control topic, so the full control loop runs without
// hardware.
package simulator

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/arcfarm/irrigation-backend/internal/logger"
	"github.com/arcfarm/irrigation-backend/internal/model"
	"github.com/arcfarm/irrigation-backend/pkg/mqttlink"
)

// Node simulates one pump/sensor unit.
type Node struct {
	mu         sync.Mutex
	pumpOn     bool
	totalFlow  float64 // liters, lifetime
	cycleUsage float64 // liters, current run
	flowLpm    float64 // last computed flow rate

	nominalFlowLpm float64
	gen            *MoistureModel
	publisher      mqttlink.IPublisher
	consumer       mqttlink.IConsumer
	rng            *rand.Rand
}

// NewNode builds a simulator around the given transport endpoints.
func NewNode(consumer mqttlink.IConsumer, publisher mqttlink.IPublisher, gen *MoistureModel, nominalFlowLpm float64) *Node {
	return &Node{
		nominalFlowLpm: nominalFlowLpm,
		gen:            gen,
		publisher:      publisher,
		consumer:       consumer,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start consumes pump commands and publishes telemetry every interval until
// ctx is cancelled.
func (n *Node) Start(ctx context.Context, interval time.Duration) {
	n.consumer.SetHandler(n.handleCommand)
	go n.consumer.Consume(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.publishSample(interval)
		}
	}
}

// handleCommand applies an ON/OFF command. Commands are idempotent, so a
// QoS1 redelivery is harmless.
func (n *Node) handleCommand(_ string, msg mqtt.Message) error {
	cmd := strings.ToUpper(strings.TrimSpace(string(msg.Payload())))
	n.mu.Lock()
	defer n.mu.Unlock()
	switch cmd {
	case "ON":
		if !n.pumpOn {
			n.cycleUsage = 0
			logger.Infof("simulator: pump ON")
		}
		n.pumpOn = true
	case "OFF":
		if n.pumpOn {
			logger.Infof("simulator: pump OFF (cycle used %.1f L)", n.cycleUsage)
		}
		n.pumpOn = false
	default:
		logger.Warnf("simulator: ignoring unknown command %q", cmd)
	}
	return nil
}

func (n *Node) publishSample(elapsed time.Duration) {
	n.mu.Lock()
	if n.pumpOn {
		// 5% jitter around the nominal rate.
		n.flowLpm = n.nominalFlowLpm * (0.95 + 0.1*n.rng.Float64())
		delivered := n.flowLpm * elapsed.Minutes()
		n.totalFlow += delivered
		n.cycleUsage += delivered
	} else {
		n.flowLpm = 0
	}
	moisture := n.gen.Next(n.pumpOn)
	status := "OFF"
	if n.pumpOn {
		status = "ON"
	}
	total := n.totalFlow
	sample := model.TelemetrySample{
		FlowRate:   n.flowLpm,
		Moisture:   &moisture,
		PumpStatus: status,
		TotalFlow:  &total,
		CycleUsage: n.cycleUsage,
		Timestamp:  time.Now().UTC(),
	}
	n.mu.Unlock()

	payload, _ := json.Marshal(sample)
	logger.Debugf("simulator: pub moisture=%.1f%% pump=%s flow=%.1f", moisture, status, sample.FlowRate)
	if err := n.publisher.Publish(string(payload)); err != nil {
		logger.Errorf("simulator: publish: %v", err)
	}
}

// MoistureModel tracks soil moisture in percent: it rises while the pump is
// on and decays while it is off, at independent per-minute rates.
type MoistureModel struct {
	mu          sync.Mutex
	moisture    float64 // 0..100
	gainPerMin  float64
	decayPerMin float64
	last        time.Time
	now         func() time.Time
}

// NewMoistureModel seeds the model at seedPct.
func NewMoistureModel(seedPct, gainPerMin, decayPerMin float64) *MoistureModel {
	return &MoistureModel{
		moisture:    clampPct(seedPct),
		gainPerMin:  gainPerMin,
		decayPerMin: decayPerMin,
		now:         time.Now,
	}
}

// Next advances the model to now and returns the current moisture.
func (m *MoistureModel) Next(pumpOn bool) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.now()
	if m.last.IsZero() {
		m.last = t
		return m.moisture
	}
	dtMin := t.Sub(m.last).Minutes()
	if dtMin < 0 {
		dtMin = 0
	}
	if pumpOn {
		m.moisture = clampPct(m.moisture + m.gainPerMin*dtMin)
	} else {
		m.moisture = clampPct(m.moisture - m.decayPerMin*dtMin)
	}
	m.last = t
	return m.moisture
}

func clampPct(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}

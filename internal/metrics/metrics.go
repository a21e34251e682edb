// Package metrics exposes the backend's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TelemetrySamples counts telemetry samples accepted by the arbitrator.
	TelemetrySamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_telemetry_samples_total",
		Help: "Telemetry samples processed by the arbitrator.",
	})

	// TelemetryDropped counts malformed or duplicate samples dropped at ingress.
	TelemetryDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_telemetry_dropped_total",
		Help: "Telemetry samples dropped before arbitration.",
	}, []string{"reason"})

	// PumpTransitions counts actuator commands actually emitted.
	PumpTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_pump_transitions_total",
		Help: "Pump state transitions by direction.",
	}, []string{"direction"})

	// DuplicateCommands counts pump commands ignored because the pump was
	// already in the requested state.
	DuplicateCommands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_pump_duplicate_commands_total",
		Help: "Pump commands ignored as no-ops.",
	})

	// AlertsFired counts alerts handed to the notification sink.
	AlertsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_alerts_fired_total",
		Help: "Alerts emitted, by alert type.",
	}, []string{"type"})

	// AlertsSuppressed counts alerts withheld by the cooldown tracker.
	AlertsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_alerts_suppressed_total",
		Help: "Alerts suppressed by cooldown.",
	})

	// TriggersFired counts schedule trigger callbacks.
	TriggersFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_schedule_triggers_fired_total",
		Help: "Compiled schedule triggers fired.",
	})

	// NotifyDropped counts notifications dropped on queue overflow.
	NotifyDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_notifications_dropped_total",
		Help: "Audit/alert notifications dropped because the queue was full.",
	})

	// PumpOn reflects the arbitrator's view of the pump.
	PumpOn = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "irrigation_pump_on",
		Help: "1 when the pump is on, 0 otherwise.",
	})
)

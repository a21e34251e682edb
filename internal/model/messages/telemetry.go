package messages

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TelemetrySample is one report from the pump/sensor node. Moisture and
// TotalFlow are pointers because the node omits them when unchanged; absent
// fields keep the previous known value.
type TelemetrySample struct {
	FlowRate   float64   `json:"flow_rate"`
	Moisture   *float64  `json:"moisture,omitempty"`
	PumpStatus string    `json:"pump_status"` // "ON" | "OFF"
	TotalFlow  *float64  `json:"total_flow,omitempty"`
	CycleUsage float64   `json:"cycle_usage"`
	Timestamp  time.Time `json:"timestamp"`
}

// PumpOn reports the node-side pump state.
func (s TelemetrySample) PumpOn() bool { return s.PumpStatus == "ON" }

// ParseTelemetry decodes and validates a raw telemetry payload. Invalid
// samples are rejected so the ingress can drop them without touching state.
func ParseTelemetry(payload []byte) (TelemetrySample, error) {
	var s TelemetrySample
	if err := json.Unmarshal(payload, &s); err != nil {
		return TelemetrySample{}, fmt.Errorf("decode telemetry: %w", err)
	}
	switch strings.ToUpper(strings.TrimSpace(s.PumpStatus)) {
	case "ON":
		s.PumpStatus = "ON"
	case "OFF", "":
		s.PumpStatus = "OFF"
	default:
		return TelemetrySample{}, fmt.Errorf("telemetry: bad pump_status %q", s.PumpStatus)
	}
	if s.Moisture != nil && (*s.Moisture < 0 || *s.Moisture > 100) {
		return TelemetrySample{}, fmt.Errorf("telemetry: moisture %.1f out of range", *s.Moisture)
	}
	if s.FlowRate < 0 {
		return TelemetrySample{}, fmt.Errorf("telemetry: negative flow_rate %.2f", s.FlowRate)
	}
	return s, nil
}

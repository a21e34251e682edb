package messages

import "time"

// StateSnapshot is the dashboard-facing view of the control state, pushed to
// subscribers on every meaningful change. Field names match what the
// frontend consumes over the websocket.
type StateSnapshot struct {
	PumpOn                     bool       `json:"pump_is_on"`
	FlowRateLpm                float64    `json:"current_flow_lpm"`
	Moisture                   float64    `json:"moisture"`
	AutomatedModeEnabled       bool       `json:"automated_mode_enabled"`
	ManualOverrideActive       bool       `json:"manual_override_active"`
	ManualOverrideState        string     `json:"manual_override_state,omitempty"` // "ON" | "OFF" | ""
	AllowOverrideAtAnyMoisture bool       `json:"allow_manual_override_at_any_moisture"`
	ScheduleName               string     `json:"current_schedule_name,omitempty"`
	ScheduleEndTime            *time.Time `json:"schedule_end_time,omitempty"`
	CriticalLowThreshold       float64    `json:"critical_low_threshold"`
	CriticalHighThreshold      float64    `json:"critical_high_threshold"`
	TotalFlow                  float64    `json:"total_flow"`
	CycleVolume                float64    `json:"current_cycle_volume_l"`
	Mode                       string     `json:"current_mode"`
}

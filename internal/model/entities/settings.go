package entities

import "fmt"

// Settings holds the operator-tunable control parameters. They live in ORDS
// and are loaded into the control state at startup.
type Settings struct {
	CriticalLowThreshold  float64 `json:"critical_low_threshold"`
	CriticalHighThreshold float64 `json:"critical_high_threshold"`
	AutomatedModeEnabled  bool    `json:"automated_mode_enabled"`
	// AllowOverrideAtAnyMoisture disables the emergency interlock: when
	// true, a manual override keeps the pump running even above the
	// critical-high threshold.
	AllowOverrideAtAnyMoisture bool `json:"allow_manual_override_at_any_moisture"`
}

// Validate enforces the threshold ordering invariant.
func (s Settings) Validate() error {
	if s.CriticalLowThreshold >= s.CriticalHighThreshold {
		return fmt.Errorf("critical low threshold (%.1f) must be less than critical high (%.1f)",
			s.CriticalLowThreshold, s.CriticalHighThreshold)
	}
	if s.CriticalLowThreshold < 0 || s.CriticalHighThreshold > 100 {
		return fmt.Errorf("thresholds must lie within 0-100, got %.1f/%.1f",
			s.CriticalLowThreshold, s.CriticalHighThreshold)
	}
	return nil
}

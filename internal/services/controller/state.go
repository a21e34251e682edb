package controller

import (
	"sync"
	"time"

	"github.com/arcfarm/irrigation-backend/internal/model"
)

// Fields is the raw control state. The zero value is never used directly;
// NewControlState installs the defaults the node boots with before ORDS
// settings are loaded.
type Fields struct {
	PumpOn      bool
	FlowRateLpm float64
	Moisture    float64
	TotalFlow   float64
	CycleVolume float64

	AutomatedEnabled bool
	CriticalLow      float64
	CriticalHigh     float64

	ManualOverrideActive bool
	ManualOverrideState  string // "ON" | "OFF" | ""

	// AllowOverrideAtAnyMoisture disables the emergency interlock.
	AllowOverrideAtAnyMoisture bool

	ScheduleName string
	ScheduleEnd  *time.Time
}

// Mode derives the reported operating mode by precedence. It is computed,
// never stored.
func (f Fields) Mode() string {
	switch {
	case f.ManualOverrideActive:
		return "MANUAL"
	case f.ScheduleName != "":
		return "SCHEDULED"
	case f.AutomatedEnabled:
		return "AUTOMATED"
	default:
		return "IDLE"
	}
}

// Snapshot renders the fields as the dashboard view.
func (f Fields) Snapshot() model.StateSnapshot {
	return model.StateSnapshot{
		PumpOn:                     f.PumpOn,
		FlowRateLpm:                f.FlowRateLpm,
		Moisture:                   f.Moisture,
		AutomatedModeEnabled:       f.AutomatedEnabled,
		ManualOverrideActive:       f.ManualOverrideActive,
		ManualOverrideState:        f.ManualOverrideState,
		AllowOverrideAtAnyMoisture: f.AllowOverrideAtAnyMoisture,
		ScheduleName:               f.ScheduleName,
		ScheduleEndTime:            f.ScheduleEnd,
		CriticalLowThreshold:       f.CriticalLow,
		CriticalHighThreshold:      f.CriticalHigh,
		TotalFlow:                  f.TotalFlow,
		CycleVolume:                f.CycleVolume,
		Mode:                       f.Mode(),
	}
}

// ControlState is the single mutex-guarded state record shared by the
// arbitrator, the schedule triggers and the gateway. Every read goes through
// View, every write through Update, so no caller can observe a partial
// multi-field change.
type ControlState struct {
	mu sync.Mutex
	f  Fields
}

// NewControlState returns the state with boot defaults; ORDS settings
// overwrite the thresholds and flags during startup.
func NewControlState() *ControlState {
	return &ControlState{f: Fields{
		Moisture:                   50.0,
		AutomatedEnabled:           true,
		CriticalLow:                40.0,
		CriticalHigh:               80.0,
		AllowOverrideAtAnyMoisture: true,
	}}
}

// View returns a consistent point-in-time copy.
func (s *ControlState) View() Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f
}

// Update runs fn under the lock. fn must not block or perform I/O.
func (s *ControlState) Update(fn func(*Fields)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.f)
}

package controller

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arcfarm/irrigation-backend/internal/logger"
	"github.com/arcfarm/irrigation-backend/internal/metrics"
	"github.com/arcfarm/irrigation-backend/internal/model"
	"github.com/arcfarm/irrigation-backend/pkg/cooldown"
)

// ===================== Collaborator interfaces =====================

// ActuatorLink carries pump commands to the physical node. Fire-and-forget:
// the arbitrator does not wait for an acknowledgment.
type ActuatorLink interface {
	Publish(command string) error // "ON" | "OFF"
}

// NotificationSink receives audit records and alerts. Both calls must return
// immediately; delivery, retry and failure handling belong to the sink.
type NotificationSink interface {
	LogAudit(eventType, description, source, severity string)
	CreateAlert(alertType, message, severity string)
}

// StateSubscriber is pushed the current snapshot on every state change.
// Implementations must not block; slow consumers drop updates on their side.
type StateSubscriber interface {
	BroadcastState(model.StateSnapshot)
}

// ===================== Config / defaults =====================

const (
	defaultCriticalCooldown = 3600 * time.Second
	defaultInfoCooldown     = 600 * time.Second

	cooldownKeyCriticalLow  = "critical_low_alert"
	cooldownKeyNormal       = "normal_alert"
	cooldownKeyCriticalHigh = "critical_high_alert"
)

// Config tunes the arbitrator.
type Config struct {
	AutoOffDuration  time.Duration // bounded pump run before forced off
	CriticalCooldown time.Duration // cooldown for the two critical zones
	InfoCooldown     time.Duration // cooldown for the normal zone
	Cooldowns        *cooldown.Tracker
}

// ===================== Controller =====================

// Controller arbitrates pump control between telemetry-driven automation,
// manual overrides and schedule triggers. Every pump transition, from any
// context, funnels through PumpOn/PumpOff.
type Controller struct {
	state    *ControlState
	actuator ActuatorLink
	sink     NotificationSink
	autoOff  *AutoOff

	cooldowns        *cooldown.Tracker
	autoOffDuration  time.Duration
	criticalCooldown time.Duration
	infoCooldown     time.Duration

	// cmdMu makes the check-and-act inside PumpOn/PumpOff atomic across
	// the ingress, cron and auto-off contexts.
	cmdMu sync.Mutex

	// runMu serializes HandleTelemetry so one sample runs to completion
	// before the next is interpreted.
	runMu sync.Mutex

	subMu sync.RWMutex
	subs  []StateSubscriber
}

// New builds the arbitrator around the shared state.
func New(state *ControlState, actuator ActuatorLink, sink NotificationSink, cfg Config) (*Controller, error) {
	if state == nil {
		return nil, errors.New("control state is nil")
	}
	if actuator == nil {
		return nil, errors.New("actuator link is nil")
	}
	if sink == nil {
		return nil, errors.New("notification sink is nil")
	}
	if cfg.AutoOffDuration <= 0 {
		return nil, errors.New("auto-off duration must be positive")
	}
	if cfg.CriticalCooldown <= 0 {
		cfg.CriticalCooldown = defaultCriticalCooldown
	}
	if cfg.InfoCooldown <= 0 {
		cfg.InfoCooldown = defaultInfoCooldown
	}
	if cfg.Cooldowns == nil {
		cfg.Cooldowns = cooldown.New()
	}
	return &Controller{
		state:            state,
		actuator:         actuator,
		sink:             sink,
		autoOff:          NewAutoOff(),
		cooldowns:        cfg.Cooldowns,
		autoOffDuration:  cfg.AutoOffDuration,
		criticalCooldown: cfg.CriticalCooldown,
		infoCooldown:     cfg.InfoCooldown,
	}, nil
}

// State exposes the shared state handle for the gateway and stores.
func (c *Controller) State() *ControlState { return c.state }

// Subscribe registers a state subscriber.
func (c *Controller) Subscribe(s StateSubscriber) {
	c.subMu.Lock()
	c.subs = append(c.subs, s)
	c.subMu.Unlock()
}

// Snapshot returns the current dashboard view.
func (c *Controller) Snapshot() model.StateSnapshot {
	return c.state.View().Snapshot()
}

func (c *Controller) broadcast() {
	snap := c.Snapshot()
	c.subMu.RLock()
	subs := c.subs
	c.subMu.RUnlock()
	for _, s := range subs {
		s.BroadcastState(snap)
	}
}

// ===================== Pump command primitives =====================

// PumpOn turns the pump on. No-op when already on; otherwise it emits the
// actuator command, re-arms the auto-off deadline and notifies subscribers.
func (c *Controller) PumpOn(source string) {
	c.cmdMu.Lock()
	if c.state.View().PumpOn {
		logger.Infof("pump already ON, ignoring duplicate request (%s)", source)
		metrics.DuplicateCommands.Inc()
		c.cmdMu.Unlock()
		return
	}

	logger.Infof("turning pump ON (%s)", source)
	c.sink.LogAudit("PUMP_CONTROL", "Pump turned ON - "+source, source, "INFO")

	if err := c.actuator.Publish("ON"); err != nil {
		logger.Errorf("actuator ON publish: %v", err)
	}
	c.state.Update(func(f *Fields) { f.PumpOn = true })
	c.autoOff.Arm(c.autoOffDuration, func() { c.PumpOff("Auto-shutoff") })

	metrics.PumpTransitions.WithLabelValues("on").Inc()
	metrics.PumpOn.Set(1)
	c.cmdMu.Unlock()

	c.broadcast()
}

// PumpOff turns the pump off and disarms the auto-off deadline. No-op when
// already off.
func (c *Controller) PumpOff(source string) {
	c.cmdMu.Lock()
	if !c.state.View().PumpOn {
		logger.Infof("pump already OFF, ignoring duplicate request (%s)", source)
		metrics.DuplicateCommands.Inc()
		c.cmdMu.Unlock()
		return
	}

	logger.Infof("turning pump OFF (%s)", source)
	c.sink.LogAudit("PUMP_CONTROL", "Pump turned OFF - "+source, source, "INFO")

	if err := c.actuator.Publish("OFF"); err != nil {
		logger.Errorf("actuator OFF publish: %v", err)
	}
	c.state.Update(func(f *Fields) {
		f.PumpOn = false
		f.FlowRateLpm = 0
	})
	c.autoOff.Disarm()

	metrics.PumpTransitions.WithLabelValues("off").Inc()
	metrics.PumpOn.Set(0)
	c.cmdMu.Unlock()

	c.broadcast()
}

// ===================== Schedule bookkeeping =====================

// SetActiveSchedule records the schedule currently driving the pump.
func (c *Controller) SetActiveSchedule(name string, end time.Time) {
	c.state.Update(func(f *Fields) {
		f.ScheduleName = name
		f.ScheduleEnd = &end
	})
}

// ClearActiveSchedule removes the schedule bookkeeping.
func (c *Controller) ClearActiveSchedule() {
	c.state.Update(func(f *Fields) {
		f.ScheduleName = ""
		f.ScheduleEnd = nil
	})
}

// ===================== Telemetry arbitration =====================

// HandleTelemetry interprets one sensor sample. Samples are processed one at
// a time in arrival order; a fault while interpreting a sample is logged and
// the sample dropped, never propagated to the ingress.
func (c *Controller) HandleTelemetry(sample model.TelemetrySample) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("telemetry arbitration fault, sample dropped: %v", r)
			metrics.TelemetryDropped.WithLabelValues("fault").Inc()
		}
	}()

	// 1. Merge the sample into the shared state.
	oldPumpOn := c.state.View().PumpOn
	c.state.Update(func(f *Fields) {
		f.FlowRateLpm = sample.FlowRate
		f.PumpOn = sample.PumpOn()
		if sample.Moisture != nil {
			f.Moisture = *sample.Moisture
		}
		if sample.TotalFlow != nil {
			f.TotalFlow = *sample.TotalFlow
		}
		f.CycleVolume = sample.CycleUsage
	})
	v := c.state.View()
	mode := v.Mode()
	zone := ClassifyMoisture(v.Moisture, v.CriticalLow, v.CriticalHigh)

	logger.Debugf("telemetry: moisture=%.1f%% pump=%v zone=%s mode=%s",
		v.Moisture, v.PumpOn, zone, mode)
	metrics.TelemetrySamples.Inc()

	// 2-3. Zone alert under cooldown; the inactive zones' trackers are
	// cleared so a later re-entry starts fresh.
	c.fireZoneAlert(zone, v, mode)

	// 4. Emergency interlock: critically wet soil forces the pump off and
	// short-circuits everything below, manual override included.
	if zone == ZoneCriticalHigh && !v.AllowOverrideAtAnyMoisture {
		if v.PumpOn {
			logger.Warnf("EMERGENCY: forcing pump OFF (moisture=%.1f%%, mode=%s)", v.Moisture, mode)
			c.PumpOff("Emergency - Soil Too Wet")
			c.state.Update(func(f *Fields) {
				f.ManualOverrideActive = false
				f.ManualOverrideState = ""
			})
			c.broadcast()
			return
		}
	}

	// 5. Manual override enforcement, mutually exclusive with automation.
	if v.ManualOverrideActive && v.ManualOverrideState != "" {
		wantOn := v.ManualOverrideState == "ON"
		switch {
		case wantOn && !v.PumpOn:
			c.PumpOn("Manual Override - Enforcement")
		case !wantOn && v.PumpOn:
			c.PumpOff("Manual Override - Enforcement")
		}
	} else if v.AutomatedEnabled {
		// 6. Automated thresholds. The pump stays on until moisture
		// recovers into the normal band (hysteresis).
		pumpOn := c.state.View().PumpOn
		switch {
		case zone == ZoneCriticalLow && !pumpOn:
			logger.Infof("auto: moisture %.1f%% < %.1f%%, turning ON", v.Moisture, v.CriticalLow)
			c.PumpOn("Automated - Critical Low Moisture")
		case zone == ZoneNormal && pumpOn:
			logger.Infof("auto: moisture normal (%.1f%%), turning OFF", v.Moisture)
			c.PumpOff("Automated - Normal Moisture Reached")
		case zone == ZoneCriticalHigh && pumpOn:
			logger.Infof("auto: moisture critically high (%.1f%%), turning OFF", v.Moisture)
			c.PumpOff("Automated - Critical High Moisture")
		}
	}

	// 7. Transition alerting against the post-arbitration state.
	cur := c.state.View()
	if oldPumpOn != cur.PumpOn {
		if cur.PumpOn {
			c.createAlert("PUMP_ON",
				fmt.Sprintf("Pump turned ON | Mode: %s | Moisture: %.1f%%", mode, cur.Moisture), "INFO")
		} else {
			c.createAlert("PUMP_OFF",
				fmt.Sprintf("Pump turned OFF | Mode: %s | Moisture: %.1f%%", mode, cur.Moisture), "INFO")
			if cur.ScheduleName != "" {
				c.ClearActiveSchedule()
			}
		}
	}

	// 8. Subscribers always get the refreshed sensor values.
	c.broadcast()
}

func (c *Controller) fireZoneAlert(zone Zone, v Fields, mode string) {
	switch zone {
	case ZoneCriticalLow:
		if c.cooldowns.ShouldFire(cooldownKeyCriticalLow, c.criticalCooldown) {
			c.createAlert("CRITICAL_LOW_MOISTURE",
				fmt.Sprintf("CRITICAL: Soil moisture at %.1f%% (below %.1f%%) | Mode: %s",
					v.Moisture, v.CriticalLow, mode), "CRITICAL")
			c.cooldowns.MarkFired(cooldownKeyCriticalLow)
		} else {
			metrics.AlertsSuppressed.Inc()
		}
		c.cooldowns.Reset(cooldownKeyNormal)
		c.cooldowns.Reset(cooldownKeyCriticalHigh)

	case ZoneNormal:
		if c.cooldowns.ShouldFire(cooldownKeyNormal, c.infoCooldown) {
			c.createAlert("NORMAL_MOISTURE",
				fmt.Sprintf("Soil moisture normal at %.1f%% (%.1f-%.1f%%) | Mode: %s",
					v.Moisture, v.CriticalLow, v.CriticalHigh, mode), "INFO")
			c.cooldowns.MarkFired(cooldownKeyNormal)
		} else {
			metrics.AlertsSuppressed.Inc()
		}
		c.cooldowns.Reset(cooldownKeyCriticalLow)
		c.cooldowns.Reset(cooldownKeyCriticalHigh)

	case ZoneCriticalHigh:
		if c.cooldowns.ShouldFire(cooldownKeyCriticalHigh, c.criticalCooldown) {
			c.createAlert("CRITICAL_HIGH_MOISTURE",
				fmt.Sprintf("CRITICAL: Soil moisture at %.1f%% (above %.1f%%) | Mode: %s",
					v.Moisture, v.CriticalHigh, mode), "CRITICAL")
			c.cooldowns.MarkFired(cooldownKeyCriticalHigh)
		} else {
			metrics.AlertsSuppressed.Inc()
		}
		c.cooldowns.Reset(cooldownKeyCriticalLow)
		c.cooldowns.Reset(cooldownKeyNormal)
	}
}

func (c *Controller) createAlert(alertType, message, severity string) {
	metrics.AlertsFired.WithLabelValues(alertType).Inc()
	c.sink.CreateAlert(alertType, message, severity)
}

// Alert raises an operator-visible alert through the sink; used by the
// gateway for events that do not change pump state.
func (c *Controller) Alert(alertType, message, severity string) {
	c.createAlert(alertType, message, severity)
}

// ===================== Operator commands =====================

// ManualOn activates the manual override with target ON and starts the pump.
func (c *Controller) ManualOn() {
	c.state.Update(func(f *Fields) {
		f.ManualOverrideActive = true
		f.ManualOverrideState = "ON"
		f.ScheduleName = ""
		f.ScheduleEnd = nil
	})
	moisture := c.state.View().Moisture
	c.createAlert("MANUAL_OVERRIDE_ON",
		fmt.Sprintf("Manual control: Pump started (moisture: %.1f%%)", moisture), "INFO")
	c.PumpOn("Manual Control")
	c.broadcast()
}

// ManualOff activates the manual override with target OFF and stops the pump.
func (c *Controller) ManualOff() {
	c.state.Update(func(f *Fields) {
		f.ManualOverrideActive = true
		f.ManualOverrideState = "OFF"
		f.ScheduleName = ""
		f.ScheduleEnd = nil
	})
	c.createAlert("MANUAL_OVERRIDE_OFF", "Manual control: Pump stopped", "INFO")
	c.PumpOff("Manual Control")
	c.broadcast()
}

// ClearOverride returns control to schedules/automation.
func (c *Controller) ClearOverride() {
	c.state.Update(func(f *Fields) {
		f.ManualOverrideActive = false
		f.ManualOverrideState = ""
	})
	c.createAlert("MANUAL_OVERRIDE_CLEARED", "Returned to automatic operation", "INFO")
	c.broadcast()
}

// ApplyThresholds validates and installs new thresholds. Invalid settings
// are rejected before touching the state; the prior thresholds remain.
func (c *Controller) ApplyThresholds(low, high float64) error {
	v := c.state.View()
	candidate := model.Settings{
		CriticalLowThreshold:       low,
		CriticalHighThreshold:      high,
		AutomatedModeEnabled:       v.AutomatedEnabled,
		AllowOverrideAtAnyMoisture: v.AllowOverrideAtAnyMoisture,
	}
	if err := candidate.Validate(); err != nil {
		return err
	}
	c.state.Update(func(f *Fields) {
		f.CriticalLow = low
		f.CriticalHigh = high
	})
	c.broadcast()
	return nil
}

// ApplySettings installs a full settings record (startup path).
func (c *Controller) ApplySettings(s model.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.state.Update(func(f *Fields) {
		f.CriticalLow = s.CriticalLowThreshold
		f.CriticalHigh = s.CriticalHighThreshold
		f.AutomatedEnabled = s.AutomatedModeEnabled
		f.AllowOverrideAtAnyMoisture = s.AllowOverrideAtAnyMoisture
	})
	return nil
}

// Settings returns the current settings view for persistence.
func (c *Controller) Settings() model.Settings {
	v := c.state.View()
	return model.Settings{
		CriticalLowThreshold:       v.CriticalLow,
		CriticalHighThreshold:      v.CriticalHigh,
		AutomatedModeEnabled:       v.AutomatedEnabled,
		AllowOverrideAtAnyMoisture: v.AllowOverrideAtAnyMoisture,
	}
}

// SetAutomated flips automated mode. Enabling clears any manual override.
func (c *Controller) SetAutomated(enabled bool) {
	c.state.Update(func(f *Fields) {
		f.AutomatedEnabled = enabled
		if enabled {
			f.ManualOverrideActive = false
			f.ManualOverrideState = ""
		}
	})
	if enabled {
		c.createAlert("AUTOMATED_MODE_ENABLED", "Smart mode enabled", "INFO")
	} else {
		c.createAlert("AUTOMATED_MODE_DISABLED", "Smart mode disabled", "WARNING")
	}
	c.broadcast()
}

// ToggleOverrideSafety flips the emergency-interlock bypass and returns the
// new value.
func (c *Controller) ToggleOverrideSafety() bool {
	var v bool
	c.state.Update(func(f *Fields) {
		f.AllowOverrideAtAnyMoisture = !f.AllowOverrideAtAnyMoisture
		v = f.AllowOverrideAtAnyMoisture
	})
	c.broadcast()
	return v
}

// Shutdown forces the pump off and disarms the auto-off deadline. Callers
// stop the schedule triggers before releasing the transport.
func (c *Controller) Shutdown() {
	c.PumpOff("Server Shutdown")
	c.autoOff.Disarm()
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arcfarm/irrigation-backend/internal/logger"
	"github.com/arcfarm/irrigation-backend/internal/model"
)

func (g *Gateway) storeCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), g.cfg.HTTPTimeout)
}

// ===================== Dashboard / health =====================

func (g *Gateway) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := g.ctrl.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"device_uid": g.cfg.DeviceUID,
		"state":      snap,
	})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"device_uid": g.cfg.DeviceUID,
		"clients":    g.hub.ClientCount(),
	})
}

// proxyRaw relays a raw ORDS collection to the caller.
func (g *Gateway) proxyRaw(w http.ResponseWriter, r *http.Request, fetch func(context.Context) (json.RawMessage, error)) {
	ctx, cancel := g.storeCtx(r)
	defer cancel()
	raw, err := fetch(ctx)
	if err != nil {
		logger.Errorf("gateway: store fetch failed: %v", err)
		writeError(w, http.StatusBadGateway, "database unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	g.proxyRaw(w, r, g.store.PumpRunHistory)
}

// handleAnalytics proxies the chart series. hours defaults to 24, metric to
// "all", matching what the dashboard sends.
func (g *Gateway) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = n
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "all"
	}
	g.proxyRaw(w, r, func(ctx context.Context) (json.RawMessage, error) {
		return g.store.TelemetryAnalytics(ctx, hours, metric)
	})
}

func (g *Gateway) handleAlerts(w http.ResponseWriter, r *http.Request) {
	g.proxyRaw(w, r, g.store.Alerts)
}

func (g *Gateway) handleUnreadAlerts(w http.ResponseWriter, r *http.Request) {
	g.proxyRaw(w, r, g.store.UnreadAlerts)
}

// ===================== Pump control =====================

func (g *Gateway) handlePumpOn(w http.ResponseWriter, r *http.Request) {
	g.ctrl.ManualOn()
	writeOK(w, "Pump turned ON (manual override active)", map[string]any{
		"state": g.ctrl.Snapshot(),
	})
}

func (g *Gateway) handlePumpOff(w http.ResponseWriter, r *http.Request) {
	g.ctrl.ManualOff()
	writeOK(w, "Pump turned OFF (manual override active)", map[string]any{
		"state": g.ctrl.Snapshot(),
	})
}

func (g *Gateway) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	g.ctrl.ClearOverride()
	writeOK(w, "Manual override cleared", map[string]any{
		"state": g.ctrl.Snapshot(),
	})
}

// ===================== Schedules =====================

type scheduleCreateRequest struct {
	Action      string `json:"action"`       // must be "ON"
	RunTime     string `json:"run_time"`     // RFC3339
	DurationMin int    `json:"duration_min"` // optional
	RepeatDays  string `json:"repeat_days"`  // optional; defaults to the run date (one-time)
	Name        string `json:"name"`         // optional
}

func (g *Gateway) handleScheduleCreate(w http.ResponseWriter, r *http.Request) {
	var req scheduleCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.ToUpper(req.Action) != "ON" {
		writeError(w, http.StatusBadRequest, "only 'ON' schedules are supported; the off time is derived from duration")
		return
	}
	runAt, err := time.Parse(time.RFC3339, req.RunTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "run_time must be RFC3339, e.g. 2026-08-23T06:00:00Z")
		return
	}
	runAt = runAt.In(g.cfg.TZ)

	duration := req.DurationMin
	if duration <= 0 {
		duration = g.cfg.DefaultDurationMin
	}
	repeatDays := strings.ToLower(strings.TrimSpace(req.RepeatDays))
	if repeatDays == "" {
		// No day set means a one-time run on the given date.
		repeatDays = runAt.Format("2006-01-02")
	}
	if !strings.Contains(repeatDays, "-") {
		// Validate the day set before it reaches the store.
		probe := model.ScheduleRecord{ID: -1, RepeatDays: repeatDays}
		if _, err := probe.Weekdays(); err != nil {
			writeError(w, http.StatusBadRequest, "repeat_days must be a comma-separated day set like mon,wed,fri")
			return
		}
	} else if runAt.Before(time.Now()) {
		writeError(w, http.StatusBadRequest, "one-time schedule is in the past")
		return
	}
	name := req.Name
	if name == "" {
		name = "Watering " + runAt.Format("15:04")
	}

	ctx, cancel := g.storeCtx(r)
	defer cancel()
	startTime := runAt.Format("15:04:05")
	if err := g.store.CreateSchedule(ctx, startTime, duration, repeatDays, name); err != nil {
		logger.Errorf("gateway: create schedule: %v", err)
		writeError(w, http.StatusBadGateway, "failed to save schedule")
		return
	}

	// ORDS assigns the id; reload the active set and find the row we just
	// wrote by its fields, so a concurrent create cannot be mistaken for
	// ours. Highest id wins among exact duplicates.
	recs, err := g.store.ActiveSchedules(ctx)
	if err != nil {
		logger.Errorf("gateway: reload after create: %v", err)
		writeError(w, http.StatusBadGateway, "schedule saved but could not be activated")
		return
	}
	var created *model.ScheduleRecord
	for i := range recs {
		r := recs[i]
		if r.StartTimeOfDay != startTime || r.DurationMin != duration ||
			r.RepeatDays != repeatDays || r.Name != name {
			continue
		}
		if created == nil || r.ID > created.ID {
			created = &recs[i]
		}
	}
	if created == nil {
		logger.Errorf("gateway: created schedule %q not found in active set", name)
		writeError(w, http.StatusBadGateway, "schedule saved but could not be activated")
		return
	}
	if err := g.compiler.Compile(*created); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w, fmt.Sprintf("Schedule %q created", name), map[string]any{
		"schedule": created,
	})
}

type scheduleUpdateRequest struct {
	RunTime     string `json:"run_time"`
	DurationMin int    `json:"duration_min"`
	RepeatDays  string `json:"repeat_days"`
	Name        string `json:"name"`
}

func (g *Gateway) scheduleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid schedule id")
		return 0, false
	}
	return id, true
}

// findSchedule fetches one record by id from the full set.
func (g *Gateway) findSchedule(ctx context.Context, id int64) (*model.ScheduleRecord, error) {
	recs, err := g.store.AllSchedules(ctx)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].ID == id {
			return &recs[i], nil
		}
	}
	return nil, nil
}

func (g *Gateway) handleScheduleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := g.scheduleID(w, r)
	if !ok {
		return
	}
	var req scheduleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	runAt, err := time.Parse(time.RFC3339, req.RunTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "run_time must be RFC3339")
		return
	}
	runAt = runAt.In(g.cfg.TZ)
	if req.DurationMin <= 0 {
		req.DurationMin = g.cfg.DefaultDurationMin
	}
	repeatDays := strings.ToLower(strings.TrimSpace(req.RepeatDays))
	if repeatDays == "" {
		repeatDays = runAt.Format("2006-01-02")
	}

	ctx, cancel := g.storeCtx(r)
	defer cancel()
	if err := g.store.UpdateSchedule(ctx, id, runAt.Format("15:04:05"), req.DurationMin, repeatDays, req.Name); err != nil {
		logger.Errorf("gateway: update schedule %d: %v", id, err)
		writeError(w, http.StatusBadGateway, "failed to update schedule")
		return
	}

	rec, err := g.findSchedule(ctx, id)
	if err != nil {
		writeError(w, http.StatusBadGateway, "schedule updated but could not be reloaded")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "schedule not found")
		return
	}
	if err := g.compiler.Compile(*rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w, fmt.Sprintf("Schedule %d updated", id), map[string]any{"schedule": rec})
}

func (g *Gateway) handleScheduleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.storeCtx(r)
	defer cancel()
	recs, err := g.store.AllSchedules(ctx)
	if err != nil {
		logger.Errorf("gateway: list schedules: %v", err)
		writeError(w, http.StatusBadGateway, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": recs})
}

func (g *Gateway) handleScheduleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := g.scheduleID(w, r)
	if !ok {
		return
	}
	ctx, cancel := g.storeCtx(r)
	defer cancel()
	if err := g.store.DeleteSchedule(ctx, id); err != nil {
		logger.Errorf("gateway: delete schedule %d: %v", id, err)
		writeError(w, http.StatusBadGateway, "failed to delete schedule")
		return
	}
	g.compiler.Decompile(id)
	g.ctrl.Alert("SCHEDULE_DELETED", fmt.Sprintf("Schedule %d deleted", id), "INFO")
	writeOK(w, fmt.Sprintf("Schedule %d deleted", id), nil)
}

func (g *Gateway) handleSchedulePause(w http.ResponseWriter, r *http.Request) {
	id, ok := g.scheduleID(w, r)
	if !ok {
		return
	}
	ctx, cancel := g.storeCtx(r)
	defer cancel()
	if err := g.store.UpdateScheduleStatus(ctx, id, false); err != nil {
		logger.Errorf("gateway: pause schedule %d: %v", id, err)
		writeError(w, http.StatusBadGateway, "failed to pause schedule")
		return
	}
	g.compiler.Decompile(id)
	writeOK(w, fmt.Sprintf("Schedule %d paused", id), nil)
}

func (g *Gateway) handleScheduleResume(w http.ResponseWriter, r *http.Request) {
	id, ok := g.scheduleID(w, r)
	if !ok {
		return
	}
	ctx, cancel := g.storeCtx(r)
	defer cancel()
	if err := g.store.UpdateScheduleStatus(ctx, id, true); err != nil {
		logger.Errorf("gateway: resume schedule %d: %v", id, err)
		writeError(w, http.StatusBadGateway, "failed to resume schedule")
		return
	}
	rec, err := g.findSchedule(ctx, id)
	if err != nil {
		writeError(w, http.StatusBadGateway, "schedule resumed but could not be reloaded")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "schedule not found")
		return
	}
	if err := g.compiler.Compile(*rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w, fmt.Sprintf("Schedule %d resumed", id), nil)
}

// ===================== Settings =====================

func (g *Gateway) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.ctrl.Settings())
}

type thresholdsRequest struct {
	CriticalLowThreshold  float64 `json:"critical_low_threshold"`
	CriticalHighThreshold float64 `json:"critical_high_threshold"`
}

func (g *Gateway) handleThresholds(w http.ResponseWriter, r *http.Request) {
	var req thresholdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := g.ctrl.ApplyThresholds(req.CriticalLowThreshold, req.CriticalHighThreshold); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := g.persistSettings(r); err != nil {
		writeError(w, http.StatusBadGateway, "thresholds applied but could not be saved")
		return
	}
	writeOK(w, fmt.Sprintf("Thresholds updated: %.1f%% - %.1f%%",
		req.CriticalLowThreshold, req.CriticalHighThreshold), nil)
}

func (g *Gateway) persistSettings(r *http.Request) error {
	ctx, cancel := g.storeCtx(r)
	defer cancel()
	if err := g.store.SaveSettings(ctx, g.ctrl.Settings()); err != nil {
		logger.Errorf("gateway: save settings: %v", err)
		return err
	}
	return nil
}

func (g *Gateway) handleAutomatedEnable(w http.ResponseWriter, r *http.Request) {
	g.ctrl.SetAutomated(true)
	if err := g.persistSettings(r); err != nil {
		writeError(w, http.StatusBadGateway, "mode changed but could not be saved")
		return
	}
	writeOK(w, "Automated mode enabled", nil)
}

func (g *Gateway) handleAutomatedDisable(w http.ResponseWriter, r *http.Request) {
	g.ctrl.SetAutomated(false)
	if err := g.persistSettings(r); err != nil {
		writeError(w, http.StatusBadGateway, "mode changed but could not be saved")
		return
	}
	writeOK(w, "Automated mode disabled", nil)
}

func (g *Gateway) handleOverrideSafetyToggle(w http.ResponseWriter, r *http.Request) {
	allowed := g.ctrl.ToggleOverrideSafety()
	if err := g.persistSettings(r); err != nil {
		writeError(w, http.StatusBadGateway, "setting changed but could not be saved")
		return
	}
	msg := "Manual override is now blocked when soil is critically wet"
	if allowed {
		msg = "Manual override is now allowed at any moisture level"
	}
	writeOK(w, msg, map[string]any{"allow_manual_override_at_any_moisture": allowed})
}

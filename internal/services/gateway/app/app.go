// Package app is the operator-facing HTTP surface: dashboard state, pump
// control, schedule and settings management, websocket push and Prometheus
// metrics. It holds no control logic of its own; every action routes
// through the arbitrator, the compiler or the ORDS store.
package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arcfarm/irrigation-backend/internal/logger"
	"github.com/arcfarm/irrigation-backend/internal/services/controller"
	"github.com/arcfarm/irrigation-backend/internal/services/ords"
	"github.com/arcfarm/irrigation-backend/internal/services/scheduler"
)

// Config holds the gateway settings.
type Config struct {
	Addr string
	// DeviceUID is reported on the dashboard.
	DeviceUID string
	// DefaultDurationMin fills schedule duration when the request omits it.
	DefaultDurationMin int
	// TZ is the wall-clock zone schedules are interpreted in.
	TZ *time.Location
	// HTTPTimeout bounds the ORDS calls made from handlers.
	HTTPTimeout time.Duration
}

// Gateway wires the HTTP handlers to the core services.
type Gateway struct {
	cfg      Config
	ctrl     *controller.Controller
	store    *ords.Client
	compiler *scheduler.Compiler
	hub      *Hub
}

// NewGateway builds the gateway and its websocket hub.
func NewGateway(cfg Config, ctrl *controller.Controller, store *ords.Client, compiler *scheduler.Compiler) *Gateway {
	if cfg.TZ == nil {
		cfg.TZ = time.Local
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	g := &Gateway{cfg: cfg, ctrl: ctrl, store: store, compiler: compiler}
	g.hub = NewHub(ctrl.Snapshot)
	return g
}

// Hub exposes the websocket hub so the main can subscribe it to the
// arbitrator.
func (g *Gateway) Hub() *Hub { return g.hub }

// Router builds the route table.
func (g *Gateway) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /dashboard", g.handleDashboard)
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /history/pump_runs", g.handleHistory)
	mux.HandleFunc("GET /analytics/telemetry", g.handleAnalytics)
	mux.HandleFunc("GET /alerts/list", g.handleAlerts)
	mux.HandleFunc("GET /alerts/unread", g.handleUnreadAlerts)

	mux.HandleFunc("POST /pump/on", g.handlePumpOn)
	mux.HandleFunc("POST /pump/off", g.handlePumpOff)
	mux.HandleFunc("POST /manual_override/clear", g.handleClearOverride)

	mux.HandleFunc("POST /schedule/create", g.handleScheduleCreate)
	mux.HandleFunc("PUT /schedule/update/{id}", g.handleScheduleUpdate)
	mux.HandleFunc("GET /schedule/list", g.handleScheduleList)
	mux.HandleFunc("DELETE /schedule/delete/{id}", g.handleScheduleDelete)
	mux.HandleFunc("POST /schedule/pause/{id}", g.handleSchedulePause)
	mux.HandleFunc("POST /schedule/resume/{id}", g.handleScheduleResume)

	mux.HandleFunc("GET /settings/automated", g.handleSettingsGet)
	mux.HandleFunc("POST /settings/automated/thresholds", g.handleThresholds)
	mux.HandleFunc("POST /settings/automated/enable", g.handleAutomatedEnable)
	mux.HandleFunc("POST /settings/automated/disable", g.handleAutomatedDisable)
	mux.HandleFunc("POST /settings/manual_override/toggle", g.handleOverrideSafetyToggle)

	mux.HandleFunc("GET /ws/dashboard", g.hub.HandleWS)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Serve runs the HTTP server until ctx is cancelled.
func (g *Gateway) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              g.cfg.Addr,
		Handler:           g.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Infof("gateway listening on %s", g.cfg.Addr)

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	case err := <-errc:
		return err
	}
}

// ===================== JSON helpers =====================

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

func writeOK(w http.ResponseWriter, message string, extra map[string]any) {
	body := map[string]any{"status": "success", "message": message}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

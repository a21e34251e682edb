// Package recorder writes telemetry and pump state points to InfluxDB
// through the async write API. A write failure never reaches the control
// path; the last error time is tracked for health reporting.
package recorder

import (
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/arcfarm/irrigation-backend/internal/logger"
	"github.com/arcfarm/irrigation-backend/internal/model"
)

// Recorder wraps an Influx WriteAPI.
type Recorder struct {
	api       api.WriteAPI
	deviceUID string

	mu      sync.RWMutex
	lastErr time.Time
}

// New starts the async error listener and returns the recorder.
func New(w api.WriteAPI, deviceUID string) *Recorder {
	r := &Recorder{
		api:       w,
		deviceUID: deviceUID,
		lastErr:   time.Now().Add(-24 * time.Hour),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				r.mu.Lock()
				r.lastErr = time.Now()
				r.mu.Unlock()
				logger.Errorf("influx write error: %v", err)
			}
		}
	}()
	return r
}

// RecordTelemetry writes one telemetry point.
func (r *Recorder) RecordTelemetry(s model.TelemetrySample) {
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	fields := map[string]interface{}{
		"flow_rate":   s.FlowRate,
		"cycle_usage": s.CycleUsage,
		"pump_on":     s.PumpOn(),
	}
	if s.Moisture != nil {
		fields["moisture"] = *s.Moisture
	}
	if s.TotalFlow != nil {
		fields["total_flow"] = *s.TotalFlow
	}
	p := influxdb2.NewPoint("pump_telemetry",
		map[string]string{"device_uid": r.deviceUID},
		fields, ts)
	r.api.WritePoint(p)
}

// BroadcastState implements controller.StateSubscriber so arbitration
// outcomes land in the history alongside raw telemetry.
func (r *Recorder) BroadcastState(snap model.StateSnapshot) {
	p := influxdb2.NewPoint("pump_state",
		map[string]string{"device_uid": r.deviceUID, "mode": snap.Mode},
		map[string]interface{}{
			"pump_on":      snap.PumpOn,
			"moisture":     snap.Moisture,
			"flow_rate":    snap.FlowRateLpm,
			"total_flow":   snap.TotalFlow,
			"cycle_volume": snap.CycleVolume,
		}, time.Now())
	r.api.WritePoint(p)
}

// LastErrorAge reports how long ago the last write error occurred.
func (r *Recorder) LastErrorAge() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return time.Since(r.lastErr)
}

// Flush forces buffered points out; called on shutdown.
func (r *Recorder) Flush() {
	r.api.Flush()
}

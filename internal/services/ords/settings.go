package ords

import (
	"context"
	"net/http"

	"github.com/arcfarm/irrigation-backend/internal/model"
)

// settingsDTO mirrors the ORDS row; booleans are stored as 1/0.
type settingsDTO struct {
	DeviceUID                  string  `json:"device_uid,omitempty"`
	CriticalLowThreshold       float64 `json:"critical_low_threshold"`
	CriticalHighThreshold      float64 `json:"critical_high_threshold"`
	AutomatedModeEnabled       int     `json:"automated_mode_enabled"`
	AllowOverrideAtAnyMoisture int     `json:"allow_manual_override_at_any_moisture"`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetSettings loads the persisted settings. A nil result with nil error
// means no row exists yet; the caller saves defaults.
func (c *Client) GetSettings(ctx context.Context) (*model.Settings, error) {
	var env itemsEnvelope[settingsDTO]
	if err := c.do(ctx, http.MethodGet, "/settings/thresholds/"+c.deviceUID, nil, &env); err != nil {
		return nil, err
	}
	if len(env.Items) == 0 {
		return nil, nil
	}
	d := env.Items[0]
	return &model.Settings{
		CriticalLowThreshold:       d.CriticalLowThreshold,
		CriticalHighThreshold:      d.CriticalHighThreshold,
		AutomatedModeEnabled:       d.AutomatedModeEnabled == 1,
		AllowOverrideAtAnyMoisture: d.AllowOverrideAtAnyMoisture == 1,
	}, nil
}

// SaveSettings persists the settings row.
func (c *Client) SaveSettings(ctx context.Context, s model.Settings) error {
	return c.do(ctx, http.MethodPut, "/settings/thresholds/"+c.deviceUID, settingsDTO{
		DeviceUID:                  c.deviceUID,
		CriticalLowThreshold:       s.CriticalLowThreshold,
		CriticalHighThreshold:      s.CriticalHighThreshold,
		AutomatedModeEnabled:       boolToInt(s.AutomatedModeEnabled),
		AllowOverrideAtAnyMoisture: boolToInt(s.AllowOverrideAtAnyMoisture),
	}, nil)
}

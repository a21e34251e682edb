package ords

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arcfarm/irrigation-backend/internal/model"
)

// AllSchedules returns every schedule row for the device.
func (c *Client) AllSchedules(ctx context.Context) ([]model.ScheduleRecord, error) {
	var env itemsEnvelope[model.ScheduleRecord]
	if err := c.do(ctx, http.MethodGet, "/schedules/all/"+c.deviceUID, nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// ActiveSchedules returns the active schedule rows.
func (c *Client) ActiveSchedules(ctx context.Context) ([]model.ScheduleRecord, error) {
	var env itemsEnvelope[model.ScheduleRecord]
	if err := c.do(ctx, http.MethodGet, "/schedules/active/"+c.deviceUID, nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// CreateSchedule inserts a schedule row.
func (c *Client) CreateSchedule(ctx context.Context, startTimeOfDay string, durationMin int, repeatDays, name string) error {
	return c.do(ctx, http.MethodPost, "/schedule/", map[string]any{
		"device_uid":        c.deviceUID,
		"start_time_of_day": startTimeOfDay,
		"duration_min":      durationMin,
		"is_active":         1,
		"repeat_days":       repeatDays,
		"name":              name,
	}, nil)
}

// UpdateSchedule rewrites a schedule row.
func (c *Client) UpdateSchedule(ctx context.Context, id int64, startTimeOfDay string, durationMin int, repeatDays, name string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/schedule/update/%s/%d", c.deviceUID, id), map[string]any{
		"start_time_of_day": startTimeOfDay,
		"duration_min":      durationMin,
		"repeat_days":       repeatDays,
		"schedule_name":     name,
	}, nil)
}

// UpdateScheduleStatus pauses or resumes a schedule.
func (c *Client) UpdateScheduleStatus(ctx context.Context, id int64, active bool) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/schedule/status/%s/%d", c.deviceUID, id), map[string]any{
		"is_active": boolToInt(active),
	}, nil)
}

// DeleteSchedule removes a schedule row.
func (c *Client) DeleteSchedule(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/schedule/delete/%s/%d", c.deviceUID, id), nil, nil)
}

// Package ords talks to the Oracle ORDS endpoints that persist settings,
// schedules, alerts and audit records. Calls carry a per-request timeout, a
// bounded retry on transient failures and a circuit breaker so a dead
// database cannot stall the control path.
package ords

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

const maxRetries = 3

// Client is the ORDS REST client. All resources are scoped to one pump
// device UID.
type Client struct {
	base      string
	deviceUID string
	hc        *http.Client
	breaker   *gobreaker.CircuitBreaker
}

// NewClient builds a client for the ORDS base URL.
func NewClient(base, deviceUID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:      strings.TrimRight(strings.TrimSpace(base), "/"),
		deviceUID: deviceUID,
		hc:        &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ords",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// itemsEnvelope is the ORDS collection wrapper.
type itemsEnvelope[T any] struct {
	Items []T `json:"items"`
}

// do runs one request through the breaker with bounded retries. 4xx
// responses are permanent; 5xx and transport errors are retried with
// exponential backoff. When out is non-nil the response body is decoded
// into it.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ords: encode %s %s: %w", method, path, err)
		}
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 500 * time.Millisecond
		bo.MaxElapsedTime = 0

		attempt := func() error {
			var rd io.Reader
			if payload != nil {
				rd = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Header.Set("Accept", "application/json")
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.hc.Do(req)
			if err != nil {
				return err // transport error, retryable
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				if out != nil {
					if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
						return backoff.Permanent(fmt.Errorf("decode response: %w", err))
					}
				}
				return nil
			case resp.StatusCode >= 500:
				return fmt.Errorf("ords status %d", resp.StatusCode)
			default:
				return backoff.Permanent(fmt.Errorf("ords status %d", resp.StatusCode))
			}
		}
		return nil, backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries-1), ctx))
	})
	if err != nil {
		return fmt.Errorf("ords %s %s: %w", method, path, err)
	}
	return nil
}

// ===================== Alerts / audit / history =====================

// LogAudit writes an audit record.
func (c *Client) LogAudit(ctx context.Context, eventType, description, source, severity string) error {
	return c.do(ctx, http.MethodPost, "/audit/", map[string]any{
		"device_uid":  c.deviceUID,
		"event_type":  eventType,
		"description": description,
		"source":      source,
		"severity":    severity,
	}, nil)
}

// CreateAlert stores an operator-visible alert.
func (c *Client) CreateAlert(ctx context.Context, alertType, message, severity string) error {
	return c.do(ctx, http.MethodPost, "/alerts/create/", map[string]any{
		"device_uid": c.deviceUID,
		"alert_type": alertType,
		"message":    message,
		"severity":   strings.ToUpper(severity),
	}, nil)
}

// Alerts returns the raw alert list for the device.
func (c *Client) Alerts(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, "/alerts/list/"+c.deviceUID, nil, &out)
	return out, err
}

// UnreadAlerts returns the raw unread alert list.
func (c *Client) UnreadAlerts(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, "/alerts/unread/"+c.deviceUID, nil, &out)
	return out, err
}

// PumpRunHistory returns the raw pump run history.
func (c *Client) PumpRunHistory(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, "/history/pump_runs/"+c.deviceUID, nil, &out)
	return out, err
}

// TelemetryAnalytics returns the raw chart series for the trailing window.
func (c *Client) TelemetryAnalytics(ctx context.Context, hours int, metric string) (json.RawMessage, error) {
	var out json.RawMessage
	path := fmt.Sprintf("/analytics/telemetry/%s?hours=%d&metric=%s", c.deviceUID, hours, url.QueryEscape(metric))
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

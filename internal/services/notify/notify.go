// Package notify delivers audit records and alerts to ORDS from a bounded
// queue so the arbitration path never waits on the database. Delivery is
// best-effort: retries live in the ORDS client, and anything still failing
// is logged and dropped.
package notify

import (
	"context"
	"time"

	"github.com/arcfarm/irrigation-backend/internal/logger"
	"github.com/arcfarm/irrigation-backend/internal/metrics"
)

const (
	kindAudit = "audit"
	kindAlert = "alert"
)

// Store is the slice of the ORDS client the sink uses.
type Store interface {
	LogAudit(ctx context.Context, eventType, description, source, severity string) error
	CreateAlert(ctx context.Context, alertType, message, severity string) error
}

type task struct {
	kind string
	a    string // event/alert type
	b    string // description/message
	c    string // source (audit only)
	sev  string
}

// Service implements controller.NotificationSink.
type Service struct {
	store   Store
	queue   chan task
	timeout time.Duration
}

// New builds a sink with the given queue capacity.
func New(store Store, queueSize int) *Service {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Service{
		store:   store,
		queue:   make(chan task, queueSize),
		timeout: 10 * time.Second,
	}
}

// Start drains the queue until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.queue:
			s.deliver(ctx, t)
		}
	}
}

func (s *Service) deliver(ctx context.Context, t task) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var err error
	switch t.kind {
	case kindAudit:
		err = s.store.LogAudit(cctx, t.a, t.b, t.c, t.sev)
	case kindAlert:
		err = s.store.CreateAlert(cctx, t.a, t.b, t.sev)
	}
	if err != nil {
		logger.Errorf("notify: %s %q delivery failed: %v", t.kind, t.a, err)
	}
}

func (s *Service) enqueue(t task) {
	select {
	case s.queue <- t:
	default:
		metrics.NotifyDropped.Inc()
		logger.Warnf("notify: queue full, dropping %s %q", t.kind, t.a)
	}
}

// LogAudit enqueues an audit record. Never blocks.
func (s *Service) LogAudit(eventType, description, source, severity string) {
	s.enqueue(task{kind: kindAudit, a: eventType, b: description, c: source, sev: severity})
}

// CreateAlert enqueues an alert. Never blocks.
func (s *Service) CreateAlert(alertType, message, severity string) {
	logger.Infof("alert: [%s] %s - %s", severity, alertType, message)
	s.enqueue(task{kind: kindAlert, a: alertType, b: message, sev: severity})
}

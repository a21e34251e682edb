package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeCall struct {
	kind string
	typ  string
	body string
	sev  string
}

type fakeStore struct {
	mu    sync.Mutex
	calls []storeCall
	fail  bool
	seen  chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: make(chan struct{}, 64)}
}

func (f *fakeStore) LogAudit(_ context.Context, eventType, description, _, severity string) error {
	f.mu.Lock()
	f.calls = append(f.calls, storeCall{kind: "audit", typ: eventType, body: description, sev: severity})
	fail := f.fail
	f.mu.Unlock()
	f.seen <- struct{}{}
	if fail {
		return errors.New("ords down")
	}
	return nil
}

func (f *fakeStore) CreateAlert(_ context.Context, alertType, message, severity string) error {
	f.mu.Lock()
	f.calls = append(f.calls, storeCall{kind: "alert", typ: alertType, body: message, sev: severity})
	fail := f.fail
	f.mu.Unlock()
	f.seen <- struct{}{}
	if fail {
		return errors.New("ords down")
	}
	return nil
}

func (f *fakeStore) snapshot() []storeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func waitDelivery(t *testing.T, store *fakeStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-store.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("delivery %d never reached the store", i+1)
		}
	}
}

func TestAuditAndAlertReachStore(t *testing.T) {
	store := newFakeStore()
	svc := New(store, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)

	svc.LogAudit("PUMP_CONTROL", "Pump turned ON - test", "test", "INFO")
	svc.CreateAlert("PUMP_ON", "Pump turned ON", "INFO")
	waitDelivery(t, store, 2)

	calls := store.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, storeCall{kind: "audit", typ: "PUMP_CONTROL", body: "Pump turned ON - test", sev: "INFO"}, calls[0])
	assert.Equal(t, storeCall{kind: "alert", typ: "PUMP_ON", body: "Pump turned ON", sev: "INFO"}, calls[1])
}

func TestEnqueueNeverBlocksWhenQueueFull(t *testing.T) {
	store := newFakeStore()
	svc := New(store, 1)
	// No Start: the queue fills and extra tasks are dropped.

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			svc.LogAudit("EVENT", "overflow", "test", "INFO")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
}

func TestStoreFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	svc := New(store, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)

	svc.CreateAlert("PUMP_ON", "msg", "INFO")
	svc.CreateAlert("PUMP_OFF", "msg", "INFO")
	waitDelivery(t, store, 2)

	// Both tasks were attempted despite the first failing.
	assert.Len(t, store.snapshot(), 2)
}

func TestStartReturnsOnCancel(t *testing.T) {
	svc := New(newFakeStore(), 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

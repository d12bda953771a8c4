package locks

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agyemangopoku/farmlink-backend/pkg/config"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	pkgerrors "github.com/agyemangopoku/farmlink-backend/pkg/errors"
	"github.com/agyemangopoku/farmlink-backend/pkg/logger"
)

type fakeLockStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.values[key]; held {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) CompareAndDel(_ context.Context, key string, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[key] != value {
		return false, nil
	}
	delete(f.values, key)
	return true, nil
}

func (f *fakeLockStore) LockKey(parts ...string) string {
	return "fl:lock:" + strings.Join(parts, ":")
}

func testManager(t *testing.T, store *fakeLockStore, wait time.Duration) *Manager {
	t.Helper()
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel})
	m, err := NewManager(store, logg, nil, config.LockConfig{
		LeaseTTL:      time.Second,
		WaitTimeout:   wait,
		RetryInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestAcquireAndRelease(t *testing.T) {
	store := newFakeLockStore()
	m := testManager(t, store, 50*time.Millisecond)
	ctx := context.Background()
	orderID := uuid.New()

	lease, err := m.Acquire(ctx, enums.AggregateOrder, orderID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	key := store.LockKey("order", orderID.String())
	if _, held := store.values[key]; !held {
		t.Fatal("expected lease key to be set")
	}

	lease.Release(ctx)
	if _, held := store.values[key]; held {
		t.Fatal("expected lease key to be removed after release")
	}
}

func TestAcquireTimesOutWithLockedError(t *testing.T) {
	store := newFakeLockStore()
	m := testManager(t, store, 20*time.Millisecond)
	ctx := context.Background()
	invoiceID := uuid.New()

	first, err := m.Acquire(ctx, enums.AggregateInvoice, invoiceID)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer first.Release(ctx)

	_, err = m.Acquire(ctx, enums.AggregateInvoice, invoiceID)
	if err == nil {
		t.Fatal("expected second acquire to fail")
	}

	appErr := pkgerrors.As(err)
	if appErr.Code() != pkgerrors.CodeLocked {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeLocked, appErr.Code())
	}
	details, ok := appErr.Details().(LockedDetails)
	if !ok {
		t.Fatalf("expected LockedDetails, got %T", appErr.Details())
	}
	if details.AggregateID != invoiceID.String() {
		t.Fatalf("expected aggregate id %s, got %s", invoiceID, details.AggregateID)
	}
}

func TestAcquireWaitsForRelease(t *testing.T) {
	store := newFakeLockStore()
	m := testManager(t, store, 500*time.Millisecond)
	ctx := context.Background()
	orderID := uuid.New()

	first, err := m.Acquire(ctx, enums.AggregateOrder, orderID)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		first.Release(context.Background())
	}()

	second, err := m.Acquire(ctx, enums.AggregateOrder, orderID)
	if err != nil {
		t.Fatalf("expected acquire to succeed after release: %v", err)
	}
	second.Release(ctx)
}

func TestReleaseSkipsWhenOwnerChanged(t *testing.T) {
	store := newFakeLockStore()
	m := testManager(t, store, 50*time.Millisecond)
	ctx := context.Background()
	orderID := uuid.New()

	lease, err := m.Acquire(ctx, enums.AggregateOrder, orderID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Simulate TTL expiry followed by a new holder.
	key := store.LockKey("order", orderID.String())
	store.mu.Lock()
	store.values[key] = "someone-else"
	store.mu.Unlock()

	lease.Release(ctx)

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.values[key] != "someone-else" {
		t.Fatal("release must not delete a lease owned by another holder")
	}
}

func TestDifferentAggregatesDoNotContend(t *testing.T) {
	store := newFakeLockStore()
	m := testManager(t, store, 20*time.Millisecond)
	ctx := context.Background()
	id := uuid.New()

	orderLease, err := m.Acquire(ctx, enums.AggregateOrder, id)
	if err != nil {
		t.Fatalf("order acquire: %v", err)
	}
	defer orderLease.Release(ctx)

	invoiceLease, err := m.Acquire(ctx, enums.AggregateInvoice, id)
	if err != nil {
		t.Fatalf("invoice acquire: %v", err)
	}
	invoiceLease.Release(ctx)
}

// Package locks grants short-lived, named, mutually exclusive leases over
// aggregates (order:<id>, invoice:<id>). A lease expires on its own after the
// TTL, so a crashed holder can never deadlock other callers.
package locks

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agyemangopoku/farmlink-backend/pkg/config"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/errors"
	"github.com/agyemangopoku/farmlink-backend/pkg/logger"
	"github.com/agyemangopoku/farmlink-backend/pkg/metrics"
	"github.com/agyemangopoku/farmlink-backend/pkg/redis"
)

// Manager hands out per-aggregate leases backed by Redis SETNX + TTL.
type Manager struct {
	store   redis.LockStore
	logg    *logger.Logger
	metrics *metrics.FulfillmentMetrics
	cfg     config.LockConfig
}

// Lease is a held lock. Release frees it only while this holder still owns it.
type Lease struct {
	manager *Manager
	key     string
	owner   string
}

// LockedDetails is attached to RESOURCE_LOCKED errors so callers can back off
// against the right aggregate.
type LockedDetails struct {
	AggregateType enums.AggregateType `json:"aggregate_type"`
	AggregateID   string              `json:"aggregate_id"`
	RetryAfterMS  int64               `json:"retry_after_ms"`
}

// NewManager validates dependencies and builds a lease manager.
func NewManager(store redis.LockStore, logg *logger.Logger, m *metrics.FulfillmentMetrics, cfg config.LockConfig) (*Manager, error) {
	if store == nil {
		return nil, stderrors.New("lock store is required")
	}
	if logg == nil {
		return nil, stderrors.New("logger is required")
	}
	if cfg.LeaseTTL <= 0 {
		return nil, stderrors.New("lease ttl must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return nil, stderrors.New("retry interval must be positive")
	}
	return &Manager{store: store, logg: logg, metrics: m, cfg: cfg}, nil
}

// Acquire blocks until the lease for the aggregate is obtained or the wait
// timeout elapses. A timeout surfaces as RESOURCE_LOCKED, which is retryable.
func (m *Manager) Acquire(ctx context.Context, aggregate enums.AggregateType, id uuid.UUID) (*Lease, error) {
	key := m.store.LockKey(aggregate.String(), id.String())
	owner := uuid.NewString()
	started := time.Now()
	deadline := started.Add(m.cfg.WaitTimeout)

	for {
		ok, err := m.store.SetNX(ctx, key, owner, m.cfg.LeaseTTL)
		if err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "acquiring lease")
		}
		if ok {
			if m.metrics != nil {
				m.metrics.ObserveLockWait(time.Since(started))
			}
			return &Lease{manager: m, key: key, owner: owner}, nil
		}

		if time.Now().After(deadline) {
			if m.metrics != nil {
				m.metrics.IncLockTimeout()
			}
			msg := fmt.Sprintf("%s %s is locked by another operation", aggregate, id)
			return nil, errors.New(errors.CodeLocked, msg).WithDetails(LockedDetails{
				AggregateType: aggregate,
				AggregateID:   id.String(),
				RetryAfterMS:  m.cfg.RetryInterval.Milliseconds(),
			})
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.CodeLocked, ctx.Err(), "lease wait cancelled")
		case <-time.After(m.cfg.RetryInterval):
		}
	}
}

// Release frees the lease only if this holder still owns it. The compare and
// delete happen atomically in the store, so a lease that expired and was
// re-acquired by someone else is never deleted out from under them.
func (l *Lease) Release(ctx context.Context) {
	if _, err := l.manager.store.CompareAndDel(ctx, l.key, l.owner); err != nil {
		l.manager.logg.Warn(ctx, fmt.Sprintf("releasing lease %s: %v", l.key, err))
	}
}

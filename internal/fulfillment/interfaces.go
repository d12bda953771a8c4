package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agyemangopoku/farmlink-backend/internal/locks"
	"github.com/agyemangopoku/farmlink-backend/internal/recommendation"
	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
)

// Actor identifies the authenticated caller of a mutating operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// FarmDirectory is the external farm registry. Approval onboarding lives
// elsewhere; this core only reads eligibility data.
type FarmDirectory interface {
	LookupEligibleFarms(ctx context.Context, productType enums.ProductType) ([]recommendation.Farm, error)
	GetDistressScore(ctx context.Context, farmID uuid.UUID) (int, error)
}

// Permissions is the external authorization collaborator. A denial surfaces
// as FORBIDDEN before any write happens.
type Permissions interface {
	CanManageOrder(ctx context.Context, actor Actor, order *models.Order) bool
	CanActOnAssignment(ctx context.Context, actor Actor, assignment *models.Assignment) bool
}

// TransferResult is what the payment rail reports back.
type TransferResult struct {
	Success     bool
	ReferenceID string
}

// PaymentRail executes the actual money movement. The engine records the
// outcome inside the invoice-payment transaction but does not implement the
// rail itself.
type PaymentRail interface {
	ExecuteTransfer(ctx context.Context, amount decimal.Decimal, destinationAccount string, reference string) (TransferResult, error)
}

// Lease is a held per-aggregate lock.
type Lease interface {
	Release(ctx context.Context)
}

// Locker grants per-aggregate leases.
type Locker interface {
	Acquire(ctx context.Context, aggregate enums.AggregateType, id uuid.UUID) (Lease, error)
}

type managerLocker struct {
	manager *locks.Manager
}

// NewLocker adapts the lease manager to the orchestrator's Locker interface.
func NewLocker(manager *locks.Manager) Locker {
	return managerLocker{manager: manager}
}

func (l managerLocker) Acquire(ctx context.Context, aggregate enums.AggregateType, id uuid.UUID) (Lease, error) {
	lease, err := l.manager.Acquire(ctx, aggregate, id)
	if err != nil {
		return nil, err
	}
	return lease, nil
}

package fulfillment

import (
	"context"
	stderrors "errors"
	"fmt"
)

// counterStore increments named counters atomically.
type counterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

// SequenceGenerator mints the human-readable order / assignment / invoice
// numbers. They are derived once and immutable after that; uniqueness is also
// enforced by the DB indexes.
type SequenceGenerator struct {
	store counterStore
}

// NewSequenceGenerator builds a Redis-counter-backed generator.
func NewSequenceGenerator(store counterStore) (*SequenceGenerator, error) {
	if store == nil {
		return nil, stderrors.New("counter store is required")
	}
	return &SequenceGenerator{store: store}, nil
}

// NextOrderNumber mints the next PO-%06d order number.
func (g *SequenceGenerator) NextOrderNumber(ctx context.Context) (string, error) {
	n, err := g.store.Incr(ctx, g.store.CounterKey("orders"))
	if err != nil {
		return "", fmt.Errorf("incrementing order counter: %w", err)
	}
	return fmt.Sprintf("PO-%06d", n), nil
}

// NextAssignmentNumber derives an assignment number from its order number.
func (g *SequenceGenerator) NextAssignmentNumber(ctx context.Context, orderNumber string) (string, error) {
	n, err := g.store.Incr(ctx, g.store.CounterKey("assignments:"+orderNumber))
	if err != nil {
		return "", fmt.Errorf("incrementing assignment counter: %w", err)
	}
	return fmt.Sprintf("%s-A%d", orderNumber, n), nil
}

// NextInvoiceNumber derives an invoice number from its assignment number.
func (g *SequenceGenerator) NextInvoiceNumber(ctx context.Context, assignmentNumber string) (string, error) {
	n, err := g.store.Incr(ctx, g.store.CounterKey("invoices:"+assignmentNumber))
	if err != nil {
		return "", fmt.Errorf("incrementing invoice counter: %w", err)
	}
	return fmt.Sprintf("%s-INV%d", assignmentNumber, n), nil
}

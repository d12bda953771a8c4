package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/pagination"
)

func seedOrder(t *testing.T, db *gorm.DB, number string, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		ID:               uuid.New(),
		OrderNumber:      number,
		ProductType:      enums.ProductTypeBroiler,
		QuantityNeeded:   1000,
		UnitPrice:        decimal.RequireFromString("85.00"),
		TotalBudget:      decimal.RequireFromString("85000.00"),
		DeliveryDeadline: time.Now().UTC().Add(30 * 24 * time.Hour),
		PreferredRegion:  "Ashanti",
		Status:           status,
		CreatedByID:      uuid.New(),
		CreatedAt:        createdAt,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func seedAssignment(t *testing.T, db *gorm.DB, orderID, farmID uuid.UUID, number string, status enums.AssignmentStatus) models.Assignment {
	t.Helper()
	assignment := models.Assignment{
		ID:               uuid.New(),
		OrderID:          orderID,
		AssignmentNumber: number,
		FarmID:           farmID,
		QuantityAssigned: 500,
		UnitPrice:        decimal.RequireFromString("85.00"),
		Status:           status,
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

func TestListOrdersFiltersAndPaginates(t *testing.T) {
	db := setupFulfillmentDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		seedOrder(t, db, orderNumber(i), enums.OrderStatusPublished, base.Add(time.Duration(i)*time.Minute))
	}
	draft := seedOrder(t, db, "PO-000099", enums.OrderStatusDraft, base.Add(10*time.Minute))

	published := enums.OrderStatusPublished
	page, cursor, err := repo.ListOrders(ctx, OrderFilter{Status: &published}, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.NotNil(t, cursor)
	// Newest first.
	assert.Equal(t, "PO-000004", page[0].OrderNumber)

	rest, next, err := repo.ListOrders(ctx, OrderFilter{Status: &published}, pagination.Params{Limit: 3, Cursor: encodeCursor(t, cursor)})
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Nil(t, next)
	assert.Equal(t, "PO-000000", rest[1].OrderNumber)

	byCreator, _, err := repo.ListOrders(ctx, OrderFilter{CreatedByID: &draft.CreatedByID}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byCreator, 1)
	assert.Equal(t, draft.ID, byCreator[0].ID)
}

func TestCountLiveAssignmentsIgnoresTerminatedOnes(t *testing.T) {
	db := setupFulfillmentDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "PO-000001", enums.OrderStatusAssigning, time.Now().UTC())
	farmID := uuid.New()

	seedAssignment(t, db, order.ID, farmID, "PO-000001-A1", enums.AssignmentStatusCancelled)
	seedAssignment(t, db, order.ID, farmID, "PO-000001-A2", enums.AssignmentStatusRejected)

	count, err := repo.CountLiveAssignments(ctx, order.ID, farmID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	seedAssignment(t, db, order.ID, farmID, "PO-000001-A3", enums.AssignmentStatusPending)
	count, err = repo.CountLiveAssignments(ctx, order.ID, farmID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestListInvoicesForOrderJoinsThroughAssignments(t *testing.T) {
	db := setupFulfillmentDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "PO-000001", enums.OrderStatusFullyDelivered, time.Now().UTC())
	other := seedOrder(t, db, "PO-000002", enums.OrderStatusFullyDelivered, time.Now().UTC())
	assignment := seedAssignment(t, db, order.ID, uuid.New(), "PO-000001-A1", enums.AssignmentStatusVerified)
	foreign := seedAssignment(t, db, other.ID, uuid.New(), "PO-000002-A1", enums.AssignmentStatusVerified)

	mine := models.Invoice{
		ID:               uuid.New(),
		AssignmentID:     assignment.ID,
		InvoiceNumber:    "PO-000001-A1-INV1",
		Subtotal:         decimal.RequireFromString("42500.00"),
		QualityDeduction: decimal.Zero,
		LossDeduction:    decimal.Zero,
		OtherDeduction:   decimal.Zero,
		TotalAmount:      decimal.RequireFromString("42500.00"),
		Status:           enums.InvoiceStatusPending,
		CreatedByID:      uuid.New(),
	}
	require.NoError(t, db.Create(&mine).Error)
	theirs := mine
	theirs.ID = uuid.New()
	theirs.AssignmentID = foreign.ID
	theirs.InvoiceNumber = "PO-000002-A1-INV1"
	require.NoError(t, db.Create(&theirs).Error)

	invoices, err := repo.ListInvoicesForOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, mine.ID, invoices[0].ID)
}

func TestWithTxShadowsWritesUntilCommit(t *testing.T) {
	db := setupFulfillmentDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "PO-000001", enums.OrderStatusDraft, time.Now().UTC())

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusPublished}); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction // force rollback
	})
	require.Error(t, err)

	reloaded, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDraft, reloaded.Status)
}

func orderNumber(i int) string {
	return "PO-00000" + string(rune('0'+i))
}

func encodeCursor(t *testing.T, cursor *pagination.Cursor) string {
	t.Helper()
	require.NotNil(t, cursor)
	return pagination.EncodeCursor(*cursor)
}

package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/pagination"
)

// Repository is the ledger access layer for orders, assignments, deliveries,
// and invoices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderWithAssignments(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListOrders(ctx context.Context, filter OrderFilter, params pagination.Params) ([]models.Order, *pagination.Cursor, error)

	CreateAssignment(ctx context.Context, assignment *models.Assignment) error
	FindAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	UpdateAssignment(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListAssignmentsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Assignment, error)
	CountLiveAssignments(ctx context.Context, orderID, farmID uuid.UUID) (int64, error)

	CreateDelivery(ctx context.Context, delivery *models.DeliveryConfirmation) error
	FindDelivery(ctx context.Context, id uuid.UUID) (*models.DeliveryConfirmation, error)
	UpdateDelivery(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListDeliveriesForAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.DeliveryConfirmation, error)

	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListInvoicesForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Invoice, error)
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status      *enums.OrderStatus
	Region      string
	CreatedByID *uuid.UUID
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a fulfillment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderWithAssignments(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Assignments").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListOrders(ctx context.Context, filter OrderFilter, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Region != "" {
		query = query.Where("preferred_region = ?", filter.Region)
	}
	if filter.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedByID)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, nil, err
	}

	if len(orders) > normalized {
		orders = orders[:normalized]
		last := orders[normalized-1]
		return orders, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return orders, nil, nil
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) FindAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) UpdateAssignment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListAssignmentsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repository) CountLiveAssignments(ctx context.Context, orderID, farmID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("order_id = ? AND farm_id = ? AND status NOT IN ?", orderID, farmID,
			[]enums.AssignmentStatus{enums.AssignmentStatusCancelled, enums.AssignmentStatusRejected}).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.DeliveryConfirmation) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repository) FindDelivery(ctx context.Context, id uuid.UUID) (*models.DeliveryConfirmation, error) {
	var delivery models.DeliveryConfirmation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&delivery).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) UpdateDelivery(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.DeliveryConfirmation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListDeliveriesForAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.DeliveryConfirmation, error) {
	var deliveries []models.DeliveryConfirmation
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC, id ASC").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *repository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) UpdateInvoice(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListInvoicesForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Select("invoices.*").
		Joins("JOIN assignments ON assignments.id = invoices.assignment_id").
		Where("assignments.order_id = ?", orderID).
		Order("invoices.created_at ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/pagination"
)

// Repository persists verified orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.VerifiedOrder) error
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.VerifiedOrder, error)
	ListBySession(ctx context.Context, sessionID string, params pagination.Params) ([]models.VerifiedOrder, string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order and its items.
func (r *repository) Create(ctx context.Context, order *models.VerifiedOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.VerifiedOrder, error) {
	var order models.VerifiedOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListBySession pages a session's orders newest first and returns the
// cursor of the next page, or "" on the last one.
func (r *repository) ListBySession(ctx context.Context, sessionID string, params pagination.Params) ([]models.VerifiedOrder, string, error) {
	query, err := pagination.Seek(r.db.WithContext(ctx).Preload("Items").Where("session_id = ?", sessionID), params)
	if err != nil {
		return nil, "", err
	}
	var rows []models.VerifiedOrder
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(o models.VerifiedOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return rows, next, nil
}

package wishlist

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry and ignores duplicates.
func (r *Repository) AddItem(ctx context.Context, item *models.WishlistItem) error {
	if item == nil || item.SessionID == "" || item.ProductID == "" {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(item).
		Error
}

// RemoveItem deletes the session-product entry if it exists.
func (r *Repository) RemoveItem(ctx context.Context, sessionID, productID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		Delete(&models.WishlistItem{}).
		Error
}

// DeleteSession drops every entry owned by the session.
func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.WishlistItem{}).
		Error
}

// DeleteCreatedBefore prunes entries saved before cutoff. Anonymous sessions
// never log out, so abandoned wishlists are only reclaimed this way.
func (r *Repository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.WishlistItem{})
	return result.RowsAffected, result.Error
}

// ListItems returns a page of the session's wishlist, newest first.
func (r *Repository) ListItems(ctx context.Context, sessionID string, params pagination.Params) ([]models.WishlistItem, string, error) {
	query, err := pagination.Seek(r.db.WithContext(ctx).Where("session_id = ?", sessionID), params)
	if err != nil {
		return nil, "", err
	}
	var rows []models.WishlistItem
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(item models.WishlistItem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
	})
	return rows, next, nil
}

// ListProductIDs returns every saved product id for the session.
func (r *Repository) ListProductIDs(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Pluck("product_id", &ids).
		Error
	return ids, err
}

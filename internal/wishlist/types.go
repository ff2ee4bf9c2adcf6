package wishlist

import (
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// AddItemRequest is the body of POST /api/v1/wishlist.
type AddItemRequest struct {
	ID    string      `json:"id" validate:"required,max=255"`
	Title string      `json:"title" validate:"required,max=500"`
	Price types.Money `json:"price"`
	Image string      `json:"image" validate:"omitempty,max=2048"`
}

// ItemDTO is one saved product.
type ItemDTO struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Price     types.Money `json:"price"`
	Image     string      `json:"image,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ItemsPageDTO is a cursor-paginated wishlist view.
type ItemsPageDTO struct {
	Items      []ItemDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// IDsDTO lists only the saved product ids, for heart toggles on listings.
type IDsDTO struct {
	ProductIDs []string `json:"product_ids"`
}

func toDTO(row models.WishlistItem) ItemDTO {
	return ItemDTO{
		ID:        row.ProductID,
		Title:     row.Title,
		Price:     types.NewMoney(row.Price, row.Currency),
		Image:     row.Image,
		CreatedAt: row.CreatedAt,
	}
}

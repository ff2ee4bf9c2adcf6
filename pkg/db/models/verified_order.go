package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// VerifiedOrder is the append-only record of a payment that passed signature
// and capture verification. GatewayOrderID is unique.
type VerifiedOrder struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	GatewayOrderID   string                `gorm:"column:gateway_order_id;not null;uniqueIndex:verified_orders_gateway_order_id_key"`
	GatewayPaymentID string                `gorm:"column:gateway_payment_id;not null"`
	ExternalBackend  string                `gorm:"column:external_backend;not null"`
	ExternalID       *string               `gorm:"column:external_id"`
	SessionID        *string               `gorm:"column:session_id;index:verified_orders_session_id_idx"`
	CustomerName     string                `gorm:"column:customer_name;not null"`
	CustomerEmail    string                `gorm:"column:customer_email;not null"`
	CustomerContact  string                `gorm:"column:customer_contact"`
	ShippingAddress  types.ShippingAddress `gorm:"column:shipping_address;type:jsonb"`
	PaymentMethod    string                `gorm:"column:payment_method;not null"`
	Total            decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	Currency         string                `gorm:"column:currency;not null"`
	Notes            types.JSONMap         `gorm:"column:notes;type:jsonb"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`

	Items []VerifiedOrderItem `gorm:"foreignKey:OrderID;references:ID"`
}

func (o *VerifiedOrder) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// VerifiedOrderItem is one purchased line of a VerifiedOrder.
type VerifiedOrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index:verified_order_items_order_id_idx"`
	ProductID string          `gorm:"column:product_id;not null"`
	Title     string          `gorm:"column:title;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Image     string          `gorm:"column:image"`
}

func (i *VerifiedOrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

package orders

import (
	"context"
	"fmt"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/payments"
	"github.com/angelmondragon/storefront-checkout/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/shopify"
	"github.com/angelmondragon/storefront-checkout/pkg/square"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// Backend is the external commerce system of record.
type Backend interface {
	Name() string
	// PushOrder mirrors a verified order and returns the backend's id for
	// it, or "" when the backend keeps no copy.
	PushOrder(ctx context.Context, order *payments.VerifiedOrder) (string, error)
	CreateCheckout(ctx context.Context, lines []cart.CheckoutLine) (string, error)
}

type shopifyAPI interface {
	CreateOrder(ctx context.Context, input shopify.OrderInput) (string, error)
	CreateCheckout(ctx context.Context, lines []shopify.CartLine) (string, error)
}

type squareAPI interface {
	CreateOrder(ctx context.Context, params square.OrderCreateParams) (*sq.Order, error)
}

// NewBackend picks the backend named by cfg. The matching client must be
// non-nil for shopify and square.
func NewBackend(cfg config.CommerceConfig, shop shopifyAPI, sqClient squareAPI) (Backend, error) {
	switch cfg.Normalized() {
	case config.CommerceBackendNone:
		return noneBackend{}, nil
	case config.CommerceBackendShopify:
		if shop == nil {
			return nil, fmt.Errorf("shopify client is required for the shopify backend")
		}
		return &shopifyBackend{client: shop}, nil
	case config.CommerceBackendSquare:
		if sqClient == nil {
			return nil, fmt.Errorf("square client is required for the square backend")
		}
		return &squareBackend{client: sqClient}, nil
	default:
		return nil, fmt.Errorf("unsupported commerce backend %q", cfg.Backend)
	}
}

type noneBackend struct{}

func (noneBackend) Name() string { return config.CommerceBackendNone }

func (noneBackend) PushOrder(context.Context, *payments.VerifiedOrder) (string, error) {
	return "", nil
}

func (noneBackend) CreateCheckout(context.Context, []cart.CheckoutLine) (string, error) {
	return "", pkgerrors.New(pkgerrors.CodeDependency, "hosted checkout requires a commerce backend")
}

type shopifyBackend struct {
	client shopifyAPI
}

func (b *shopifyBackend) Name() string { return config.CommerceBackendShopify }

func (b *shopifyBackend) PushOrder(ctx context.Context, order *payments.VerifiedOrder) (string, error) {
	lines := make([]shopify.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, shopify.OrderLine{
			VariantID: item.ID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return b.client.CreateOrder(ctx, shopify.OrderInput{
		Email:           order.Customer.Email,
		Phone:           order.Customer.Contact,
		Currency:        order.Currency,
		Total:           order.Total,
		LineItems:       lines,
		ShippingAddress: shopifyAddress(order.ShippingAddress),
		Gateway:         "razorpay",
		PaymentID:       order.GatewayPaymentID,
		Note:            "razorpay order " + order.GatewayOrderID,
	})
}

func (b *shopifyBackend) CreateCheckout(ctx context.Context, lines []cart.CheckoutLine) (string, error) {
	cartLines := make([]shopify.CartLine, 0, len(lines))
	for _, line := range lines {
		cartLines = append(cartLines, shopify.CartLine{
			MerchandiseID: shopify.VariantGID(line.ID),
			Quantity:      line.Quantity,
		})
	}
	return b.client.CreateCheckout(ctx, cartLines)
}

func shopifyAddress(a types.ShippingAddress) *shopify.Address {
	if a == (types.ShippingAddress{}) {
		return nil
	}
	return &shopify.Address{
		Name:     a.Name,
		Address1: a.Line1,
		Address2: a.Line2,
		City:     a.City,
		Province: a.State,
		Zip:      a.PostalCode,
		Country:  a.Country,
		Phone:    a.Phone,
	}
}

type squareBackend struct {
	client squareAPI
}

func (b *squareBackend) Name() string { return config.CommerceBackendSquare }

func (b *squareBackend) PushOrder(ctx context.Context, order *payments.VerifiedOrder) (string, error) {
	lines := make([]square.OrderLineParams, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, square.OrderLineParams{
			Name:            item.Title,
			Quantity:        item.Quantity,
			UnitAmountMinor: types.NewMoney(item.Price, order.Currency).MinorUnits(),
			Currency:        order.Currency,
			Note:            item.ID,
		})
	}
	created, err := b.client.CreateOrder(ctx, square.OrderCreateParams{
		ReferenceID:    order.GatewayOrderID,
		BuyerEmail:     order.Customer.Email,
		Lines:          lines,
		IdempotencyKey: "verified-" + order.GatewayOrderID,
	})
	if err != nil {
		return "", err
	}
	if created.GetID() == nil {
		return "", nil
	}
	return *created.GetID(), nil
}

func (b *squareBackend) CreateCheckout(context.Context, []cart.CheckoutLine) (string, error) {
	return "", pkgerrors.New(pkgerrors.CodeDependency, "hosted checkout is not available for the square backend")
}

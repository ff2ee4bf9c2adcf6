package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/payments"
	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/outbox"
	"github.com/angelmondragon/storefront-checkout/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-checkout/pkg/pagination"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

// Service records verified orders and serves them back to the storefront.
type Service interface {
	RecordOrder(ctx context.Context, order *payments.VerifiedOrder) (*payments.VerifiedOrder, error)
	Get(ctx context.Context, sessionID, gatewayOrderID string) (*payments.VerifiedOrder, error)
	ListForSession(ctx context.Context, sessionID string, params pagination.Params) (*OrdersPage, error)
	CreateCheckout(ctx context.Context, lines []cart.CheckoutLine) (string, error)
}

type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Outbox     outboxEmitter
	Backend    Backend
	Logger     *logger.Logger
}

type service struct {
	repo    Repository
	db      txRunner
	outbox  outboxEmitter
	backend Backend
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, errors.New("orders repository is required")
	}
	if params.DB == nil {
		return nil, errors.New("database is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	backend := params.Backend
	if backend == nil {
		backend = noneBackend{}
	}
	return &service{
		repo:    params.Repository,
		db:      params.DB,
		outbox:  params.Outbox,
		backend: backend,
		logg:    params.Logger,
	}, nil
}

// RecordOrder mirrors the order to the commerce backend, then stores it and
// its outbox events in one transaction. A backend failure does not stop the
// local record; it is logged and published as order.mirror_failed.
func (s *service) RecordOrder(ctx context.Context, order *payments.VerifiedOrder) (*payments.VerifiedOrder, error) {
	if order == nil || strings.TrimSpace(order.GatewayOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verified order is required")
	}
	ctx = s.logg.WithOrderID(ctx, order.GatewayOrderID)

	externalID, mirrorErr := s.backend.PushOrder(ctx, order)
	if mirrorErr != nil {
		s.logg.Warn(s.logg.WithField(ctx, "backend", s.backend.Name()), "commerce backend rejected verified order: "+mirrorErr.Error())
	}

	model := toModel(order, s.backend.Name(), externalID)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, model); err != nil {
			return err
		}
		var actor *outbox.ActorRef
		if order.SessionID != "" {
			actor = &outbox.ActorRef{SessionID: order.SessionID}
		}
		events := []outbox.DomainEvent{{
			EventType:     outbox.EventOrderVerified,
			AggregateType: outbox.AggregateVerifiedOrder,
			AggregateID:   model.ID.String(),
			Actor:         actor,
			Data:          verifiedPayload(model),
		}}
		if mirrorErr != nil {
			events = append(events, outbox.DomainEvent{
				EventType:     outbox.EventOrderMirrorFailed,
				AggregateType: outbox.AggregateVerifiedOrder,
				AggregateID:   model.ID.String(),
				Actor:         actor,
				Data: payloads.OrderMirrorFailedEvent{
					OrderID:        model.ID,
					GatewayOrderID: model.GatewayOrderID,
					Backend:        s.backend.Name(),
					Reason:         mirrorErr.Error(),
					Retryable:      pkgerrors.Retryable(mirrorErr),
				},
			})
		}
		return s.outbox.Emit(ctx, tx, events...)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "gateway_order_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record verified order")
	}

	s.logg.Info(s.logg.WithField(ctx, "verified_order_id", model.ID.String()), "verified order recorded")
	return fromModel(model), nil
}

// Get returns the order only to the session that placed it. Orders of other
// sessions are reported as not found.
func (s *service) Get(ctx context.Context, sessionID, gatewayOrderID string) (*payments.VerifiedOrder, error) {
	gatewayOrderID = strings.TrimSpace(gatewayOrderID)
	if gatewayOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	model, err := s.repo.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if model.SessionID == nil || *model.SessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return fromModel(model), nil
}

func (s *service) ListForSession(ctx context.Context, sessionID string, params pagination.Params) (*OrdersPage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	rows, next, err := s.repo.ListBySession(ctx, sessionID, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := &OrdersPage{Orders: make([]*payments.VerifiedOrder, 0, len(rows)), NextCursor: next}
	for i := range rows {
		page.Orders = append(page.Orders, fromModel(&rows[i]))
	}
	return page, nil
}

// CreateCheckout hands the cart lines to the backend's hosted checkout.
func (s *service) CreateCheckout(ctx context.Context, lines []cart.CheckoutLine) (string, error) {
	url, err := s.backend.CreateCheckout(ctx, lines)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return "", err
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create hosted checkout")
	}
	return url, nil
}

// OrdersPage is one page of a session's order history.
type OrdersPage struct {
	Orders     []*payments.VerifiedOrder `json:"orders"`
	NextCursor string                    `json:"next_cursor,omitempty"`
}

func toModel(order *payments.VerifiedOrder, backend, externalID string) *models.VerifiedOrder {
	model := &models.VerifiedOrder{
		ID:               uuid.New(),
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: order.GatewayPaymentID,
		ExternalBackend:  backend,
		CustomerName:     order.Customer.Name,
		CustomerEmail:    order.Customer.Email,
		CustomerContact:  order.Customer.Contact,
		ShippingAddress:  order.ShippingAddress,
		PaymentMethod:    order.PaymentMethod,
		Total:            order.Total,
		Currency:         order.Currency,
		Notes:            types.JSONMap(order.Notes),
		CreatedAt:        order.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if externalID != "" {
		model.ExternalID = &externalID
	}
	if order.SessionID != "" {
		sessionID := order.SessionID
		model.SessionID = &sessionID
	}
	for _, item := range order.Items {
		model.Items = append(model.Items, models.VerifiedOrderItem{
			OrderID:   model.ID,
			ProductID: item.ID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Image:     item.Image,
		})
	}
	return model
}

func fromModel(model *models.VerifiedOrder) *payments.VerifiedOrder {
	order := &payments.VerifiedOrder{
		ID:               model.ID.String(),
		GatewayOrderID:   model.GatewayOrderID,
		GatewayPaymentID: model.GatewayPaymentID,
		Customer: payments.CustomerInfo{
			Name:    model.CustomerName,
			Email:   model.CustomerEmail,
			Contact: model.CustomerContact,
		},
		ShippingAddress: model.ShippingAddress,
		PaymentMethod:   model.PaymentMethod,
		Total:           model.Total,
		Currency:        model.Currency,
		Notes:           map[string]any(model.Notes),
		CreatedAt:       model.CreatedAt,
	}
	if model.ExternalID != nil {
		order.ExternalID = *model.ExternalID
	}
	if model.SessionID != nil {
		order.SessionID = *model.SessionID
	}
	for _, item := range model.Items {
		order.Items = append(order.Items, payments.CartItem{
			ID:       item.ProductID,
			Title:    item.Title,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return order
}

func verifiedPayload(model *models.VerifiedOrder) payloads.OrderVerifiedEvent {
	items := make([]payloads.OrderVerifiedItem, 0, len(model.Items))
	for _, item := range model.Items {
		items = append(items, payloads.OrderVerifiedItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return payloads.OrderVerifiedEvent{
		OrderID:          model.ID,
		GatewayOrderID:   model.GatewayOrderID,
		GatewayPaymentID: model.GatewayPaymentID,
		CustomerEmail:    model.CustomerEmail,
		Total:            model.Total,
		Currency:         model.Currency,
		ExternalBackend:  model.ExternalBackend,
		ExternalID:       model.ExternalID,
		Items:            items,
		VerifiedAt:       model.CreatedAt,
	}
}

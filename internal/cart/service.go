package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront-checkout/internal/analytics"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

type repository interface {
	Load(ctx context.Context, sessionID string) (*Store, error)
	Update(ctx context.Context, sessionID string, fn func(*Store) error) (*Store, error)
	Delete(ctx context.Context, sessionID string) error
}

// EventEmitter receives analytics events after a transition is saved.
type EventEmitter interface {
	Emit(event analytics.Event) bool
}

// CheckoutCreator opens a hosted checkout for the given lines and returns
// the URL the shopper is sent to.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, lines []CheckoutLine) (string, error)
}

// Service exposes the session cart operations.
type Service interface {
	Get(ctx context.Context, sessionID string) (Snapshot, error)
	Add(ctx context.Context, sessionID string, product Product) (Snapshot, error)
	Remove(ctx context.Context, sessionID, itemID string) (Snapshot, error)
	SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) (Snapshot, error)
	Clear(ctx context.Context, sessionID string) (Snapshot, error)
	SetOpen(ctx context.Context, sessionID string, open bool) (Snapshot, error)
	Checkout(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

type ServiceParams struct {
	Repository repository
	Emitter    EventEmitter
	Checkout   CheckoutCreator
	Logger     *logger.Logger
}

type service struct {
	repo     repository
	emitter  EventEmitter
	checkout CheckoutCreator
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, errors.New("cart repository is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &service{
		repo:     params.Repository,
		emitter:  params.Emitter,
		checkout: params.Checkout,
		logg:     params.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (Snapshot, error) {
	store, err := s.load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return store.Snapshot(), nil
}

func (s *service) Add(ctx context.Context, sessionID string, product Product) (Snapshot, error) {
	if strings.TrimSpace(product.ID) == "" {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if product.Price.Amount.IsNegative() {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "item price must not be negative")
	}
	currency := types.NormalizeCurrency(product.Price.CurrencyCode)
	return s.mutate(ctx, sessionID, func(store *Store) (*analytics.Event, error) {
		if currency != "" && currency != store.Currency() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item currency does not match cart currency").
				WithDetails(map[string]any{"field": "price.currency_code", "cart_currency": store.Currency()})
		}
		return store.Add(product), nil
	})
}

func (s *service) Remove(ctx context.Context, sessionID, itemID string) (Snapshot, error) {
	return s.mutate(ctx, sessionID, func(store *Store) (*analytics.Event, error) {
		return store.Remove(itemID), nil
	})
}

func (s *service) SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) (Snapshot, error) {
	return s.mutate(ctx, sessionID, func(store *Store) (*analytics.Event, error) {
		return store.SetQuantity(itemID, quantity), nil
	})
}

func (s *service) Clear(ctx context.Context, sessionID string) (Snapshot, error) {
	return s.mutate(ctx, sessionID, func(store *Store) (*analytics.Event, error) {
		store.Clear()
		return nil, nil
	})
}

func (s *service) SetOpen(ctx context.Context, sessionID string, open bool) (Snapshot, error) {
	return s.mutate(ctx, sessionID, func(store *Store) (*analytics.Event, error) {
		if open {
			store.Open()
		} else {
			store.Close()
		}
		return nil, nil
	})
}

// Checkout hands the cart to the hosted checkout. The cart is left
// untouched on any failure; on success only the panel closes.
func (s *service) Checkout(ctx context.Context, sessionID string) (string, error) {
	store, err := s.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if store.IsEmpty() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if s.checkout == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "hosted checkout is not configured")
	}

	lines, event := store.BeginCheckout()
	s.emit(event)

	url, err := s.checkout.CreateCheckout(ctx, lines)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return "", err
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create hosted checkout")
	}
	if strings.TrimSpace(url) == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "hosted checkout returned no url")
	}

	complete := func(store *Store) error {
		store.CompleteCheckout()
		return nil
	}
	if _, err := s.repo.Update(ctx, sessionID, complete); err != nil {
		s.logg.Warn(ctx, "cart panel state not saved after checkout: "+err.Error())
	}
	return url, nil
}

func (s *service) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return s.repo.Delete(ctx, sessionID)
}

// mutate runs apply inside an atomic cart update. apply can run more than
// once under contention, so only the event from the saved attempt is emitted.
func (s *service) mutate(ctx context.Context, sessionID string, apply func(*Store) (*analytics.Event, error)) (Snapshot, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	var event *analytics.Event
	store, err := s.repo.Update(ctx, sessionID, func(store *Store) error {
		var err error
		event, err = apply(store)
		return err
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.emit(event)
	return store.Snapshot(), nil
}

func (s *service) load(ctx context.Context, sessionID string) (*Store, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return s.repo.Load(ctx, sessionID)
}

func (s *service) emit(event *analytics.Event) {
	if event == nil || s.emitter == nil {
		return
	}
	s.emitter.Emit(*event)
}

package wishlist

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/pagination"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

type repository interface {
	AddItem(ctx context.Context, item *models.WishlistItem) error
	RemoveItem(ctx context.Context, sessionID, productID string) error
	DeleteSession(ctx context.Context, sessionID string) error
	ListItems(ctx context.Context, sessionID string, params pagination.Params) ([]models.WishlistItem, string, error)
	ListProductIDs(ctx context.Context, sessionID string) ([]string, error)
}

// Service exposes business rules for wishlist management.
type Service interface {
	GetWishlist(ctx context.Context, sessionID string, params pagination.Params) (ItemsPageDTO, error)
	GetWishlistIDs(ctx context.Context, sessionID string) (IDsDTO, error)
	AddItem(ctx context.Context, sessionID string, req AddItemRequest) error
	RemoveItem(ctx context.Context, sessionID, productID string) error
	Clear(ctx context.Context, sessionID string) error
}

type service struct {
	repo            repository
	defaultCurrency string
	validate        *validator.Validate
}

// NewService builds a wishlist service. Prices submitted without a currency
// take defaultCurrency.
func NewService(repo repository, defaultCurrency string) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	return &service{
		repo:            repo,
		defaultCurrency: types.NormalizeCurrency(defaultCurrency),
		validate:        validator.New(),
	}, nil
}

func (s *service) GetWishlist(ctx context.Context, sessionID string, params pagination.Params) (ItemsPageDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return ItemsPageDTO{}, err
	}
	rows, next, err := s.repo.ListItems(ctx, sessionID, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return ItemsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return ItemsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	page := ItemsPageDTO{Items: make([]ItemDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		page.Items = append(page.Items, toDTO(row))
	}
	return page, nil
}

func (s *service) GetWishlistIDs(ctx context.Context, sessionID string) (IDsDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return IDsDTO{}, err
	}
	ids, err := s.repo.ListProductIDs(ctx, sessionID)
	if err != nil {
		return IDsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist ids")
	}
	if ids == nil {
		ids = []string{}
	}
	return IDsDTO{ProductIDs: ids}, nil
}

// AddItem saves the product. Saving an already saved product is a no-op.
func (s *service) AddItem(ctx context.Context, sessionID string, req AddItemRequest) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wishlist item")
	}
	if req.Price.Amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	currency := types.NormalizeCurrency(req.Price.CurrencyCode)
	if currency == "" {
		currency = s.defaultCurrency
	}
	err := s.repo.AddItem(ctx, &models.WishlistItem{
		SessionID: sessionID,
		ProductID: req.ID,
		Title:     req.Title,
		Price:     req.Price.Amount,
		Currency:  currency,
		Image:     strings.TrimSpace(req.Image),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wishlist item")
	}
	return nil
}

// RemoveItem drops the wishlist entry regardless of prior state.
func (s *service) RemoveItem(ctx context.Context, sessionID, productID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.repo.RemoveItem(ctx, sessionID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear wishlist")
	}
	return nil
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return nil
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-checkout/api/responses"
	"github.com/angelmondragon/storefront-checkout/api/validators"
	cartsvc "github.com/angelmondragon/storefront-checkout/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

type addCartItemRequest struct {
	ID    string      `json:"id" validate:"required,max=255"`
	Title string      `json:"title" validate:"required,max=500"`
	Price types.Money `json:"price"`
	Image string      `json:"image" validate:"omitempty,max=2048"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// CartFetch returns the session's cart snapshot.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, session string) {
		snapshot, err := svc.Get(r.Context(), session)
		writeSnapshot(w, r, logg, snapshot, err)
	})
}

func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, session string) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.Price.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive"))
			return
		}
		snapshot, err := svc.Add(r.Context(), session, cartsvc.Product{
			ID:    validators.CleanText(payload.ID, 255),
			Title: validators.CleanText(payload.Title, 500),
			Price: payload.Price,
			Image: strings.TrimSpace(payload.Image),
		})
		writeSnapshot(w, r, logg, snapshot, err)
	})
}

func CartSetQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, session string) {
		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshot, err := svc.SetQuantity(r.Context(), session, itemID, *payload.Quantity)
		writeSnapshot(w, r, logg, snapshot, err)
	})
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, session string) {
		itemID, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshot, err := svc.Remove(r.Context(), session, itemID)
		writeSnapshot(w, r, logg, snapshot, err)
	})
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, session string) {
		snapshot, err := svc.Clear(r.Context(), session)
		writeSnapshot(w, r, logg, snapshot, err)
	})
}

// CartSetOpen toggles the cart panel.
func CartSetOpen(svc cartsvc.Service, open bool, logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, session string) {
		snapshot, err := svc.SetOpen(r.Context(), session, open)
		writeSnapshot(w, r, logg, snapshot, err)
	})
}

// CartCheckout hands the cart to the commerce backend's hosted checkout.
func CartCheckout(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, session string) {
		url, err := svc.Checkout(r.Context(), session)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutResponse{CheckoutURL: url})
	})
}

func writeSnapshot(w http.ResponseWriter, r *http.Request, logg *logger.Logger, snapshot cartsvc.Snapshot, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, snapshot)
}

package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/angelmondragon/storefront-checkout/api/responses"
	"github.com/angelmondragon/storefront-checkout/api/validators"
	cartsvc "github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/payments"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

const (
	maxVerifyBody          = 1 << 20
	messageInvalidBody     = "Invalid request body"
	messageInternalFailure = "Internal server error"
)

type cartClearer interface {
	Clear(ctx context.Context, sessionID string) (cartsvc.Snapshot, error)
}

// PaymentsCreateOrder opens a gateway order for the session's checkout.
func PaymentsCreateOrder(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, session string) {
		var body payments.CreateOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.CreateOrder(r.Context(), body.Request(session))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, result)
	})
}

// PaymentsVerify checks the signed payment result and records the order.
// Every response is {success, order} or {success:false, error}. On success
// the session's cart is emptied.
func PaymentsVerify(svc payments.Service, carts cartClearer, logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, session string) {
		ctx := r.Context()
		var body payments.VerifyPaymentBody
		if err := json.NewDecoder(io.LimitReader(r.Body, maxVerifyBody)).Decode(&body); err != nil {
			responses.WriteJSON(w, http.StatusBadRequest, payments.VerifyPaymentResponse{Error: messageInvalidBody})
			return
		}

		order, err := svc.Verify(ctx, body.Request(session))
		if err != nil {
			status, message := verifyFailure(err)
			if logg != nil {
				if status >= http.StatusInternalServerError {
					logg.Error(ctx, "verify payment failed", err)
				} else {
					logg.Warn(logg.WithField(ctx, "status", status), "verify payment rejected: "+err.Error())
				}
			}
			responses.WriteJSON(w, status, payments.VerifyPaymentResponse{Error: message})
			return
		}

		if carts != nil {
			if _, clearErr := carts.Clear(ctx, session); clearErr != nil && logg != nil {
				logg.Warn(ctx, "cart not cleared after verified payment: "+clearErr.Error())
			}
		}
		responses.WriteJSON(w, http.StatusOK, payments.VerifyPaymentResponse{Success: true, Order: order})
	})
}

func verifyFailure(err error) (int, string) {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeVerification:
		return http.StatusBadRequest, payments.MessageVerificationFailed
	case pkgerrors.CodeValidation:
		return http.StatusBadRequest, pkgerrors.As(err).Message()
	case pkgerrors.CodeConflict:
		return http.StatusConflict, payments.MessageAlreadyVerified
	default:
		return http.StatusInternalServerError, messageInternalFailure
	}
}

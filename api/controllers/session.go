package controllers

import (
	"context"
	"net/http"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-checkout/api/middleware"
	"github.com/angelmondragon/storefront-checkout/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

type sessionCart interface {
	Delete(ctx context.Context, sessionID string) error
}

type sessionWishlist interface {
	Clear(ctx context.Context, sessionID string) error
}

func sessionID(r *http.Request) (string, error) {
	id := middleware.SessionIDFromContext(r.Context())
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session missing")
	}
	return id, nil
}

// SessionDelete tears down everything the session owns.
func SessionDelete(carts sessionCart, wishlist sessionWishlist, logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, session string) {
		var errs error
		if carts != nil {
			errs = multierr.Append(errs, carts.Delete(r.Context(), session))
		}
		if wishlist != nil {
			errs = multierr.Append(errs, wishlist.Clear(r.Context(), session))
		}
		if errs != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "delete session"))
			return
		}
		responses.WriteNoContent(w)
	})
}

func withSession(logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request, session string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fn(w, r, session)
	}
}

package cart

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	pkgredis "github.com/angelmondragon/storefront-checkout/pkg/redis"
)

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Update(ctx context.Context, key string, ttl time.Duration, fn func(current []byte) ([]byte, error)) error
	CartKey(sessionID string) string
}

// Repository keeps session carts in Redis with a sliding TTL.
type Repository struct {
	store           kvStore
	ttl             time.Duration
	defaultCurrency string
}

func NewRepository(store kvStore, ttl time.Duration, defaultCurrency string) *Repository {
	return &Repository{store: store, ttl: ttl, defaultCurrency: defaultCurrency}
}

// Load returns the session cart, or an empty one if none is stored.
func (r *Repository) Load(ctx context.Context, sessionID string) (*Store, error) {
	key := r.store.CartKey(sessionID)
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, pkgredis.ErrNil) {
			return NewStore(sessionID, r.defaultCurrency), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	s, err := restore(sessionID, []byte(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart")
	}
	if _, err := r.store.Expire(ctx, key, r.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh cart ttl")
	}
	return s, nil
}

// Update applies fn to the session cart and saves the result atomically. A
// concurrent write to the same cart makes Update re-read and re-apply fn.
func (r *Repository) Update(ctx context.Context, sessionID string, fn func(*Store) error) (*Store, error) {
	var updated *Store
	err := r.store.Update(ctx, r.store.CartKey(sessionID), r.ttl, func(current []byte) ([]byte, error) {
		s := NewStore(sessionID, r.defaultCurrency)
		if current != nil {
			restored, err := restore(sessionID, current)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart")
			}
			s = restored
		}
		if err := fn(s); err != nil {
			return nil, err
		}
		payload, err := s.marshal()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
		}
		updated = s
		return payload, nil
	})
	switch {
	case err == nil:
		return updated, nil
	case pkgerrors.As(err) != nil:
		return nil, err
	case errors.Is(err, pkgredis.ErrContended):
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart is being updated elsewhere, retry")
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart")
	}
}

func (r *Repository) Delete(ctx context.Context, sessionID string) error {
	if err := r.store.Del(ctx, r.store.CartKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return nil
}

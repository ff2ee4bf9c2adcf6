package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgredis "github.com/angelmondragon/storefront-checkout/pkg/redis"
)

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	OrderDescriptorKey(orderID string) string
	PaymentVerifiedKey(orderID string) string
}

// RedisDescriptorStore keeps issued order descriptors until they expire and
// holds the exactly-once verification claims.
type RedisDescriptorStore struct {
	store kvStore
}

func NewRedisDescriptorStore(store kvStore) *RedisDescriptorStore {
	return &RedisDescriptorStore{store: store}
}

func (s *RedisDescriptorStore) Save(ctx context.Context, d OrderDescriptor, ttl time.Duration) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, s.store.OrderDescriptorKey(d.ID), string(payload), ttl)
}

// Get returns nil, nil when the descriptor has expired or was never issued.
func (s *RedisDescriptorStore) Get(ctx context.Context, orderID string) (*OrderDescriptor, error) {
	raw, err := s.store.Get(ctx, s.store.OrderDescriptorKey(orderID))
	if err != nil {
		if errors.Is(err, pkgredis.ErrNil) {
			return nil, nil
		}
		return nil, err
	}
	var d OrderDescriptor
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *RedisDescriptorStore) Delete(ctx context.Context, orderID string) error {
	return s.store.Del(ctx, s.store.OrderDescriptorKey(orderID))
}

// Claim reports true for the first caller to claim orderID.
func (s *RedisDescriptorStore) Claim(ctx context.Context, orderID, paymentID string, ttl time.Duration) (bool, error) {
	return s.store.SetNX(ctx, s.store.PaymentVerifiedKey(orderID), paymentID, ttl)
}

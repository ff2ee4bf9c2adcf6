package redis

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-checkout/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return NewWithClient(raw), mr
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)

	require.NoError(t, client.Set(ctx, client.CartKey("sess-1"), `{"items":[]}`, time.Minute))
	got, err := client.Get(ctx, client.CartKey("sess-1"))
	require.NoError(t, err)
	require.Equal(t, `{"items":[]}`, got)
	require.Equal(t, time.Minute, mr.TTL("sf:cart:sess-1"))

	require.NoError(t, client.Del(ctx, client.CartKey("sess-1")))
	_, err = client.Get(ctx, client.CartKey("sess-1"))
	require.ErrorIs(t, err, ErrNil)
}

func TestSetNXClaimsOnce(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	key := client.PaymentVerifiedKey("order_1")

	ok, err := client.SetNX(ctx, key, "pay_1", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.SetNX(ctx, key, "pay_2", time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	stored, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "pay_1", stored)
}

func TestExpireSlidesTTL(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	key := client.CartKey("sess-2")

	require.NoError(t, client.Set(ctx, key, "v", time.Minute))
	mr.FastForward(30 * time.Second)

	ok, err := client.Expire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Minute, mr.TTL(key))

	ok, err = client.Expire(ctx, client.CartKey("missing"), time.Minute)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteIfValue(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	key := client.LockKey("job")
	require.NoError(t, client.Set(ctx, key, "owner-a", time.Minute))

	deleted, err := client.DeleteIfValue(ctx, key, "owner-b")
	require.NoError(t, err)
	require.False(t, deleted)
	require.True(t, mr.Exists(key))

	deleted, err = client.DeleteIfValue(ctx, key, "owner-a")
	require.NoError(t, err)
	require.True(t, deleted)
	require.False(t, mr.Exists(key))
}

func TestUpdateSerializesConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	key := client.CartKey("sess-1")

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- client.Update(ctx, key, time.Hour, func(current []byte) ([]byte, error) {
				n := 0
				if current != nil {
					parsed, err := strconv.Atoi(string(current))
					if err != nil {
						return nil, err
					}
					n = parsed
				}
				return []byte(strconv.Itoa(n + 1)), nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(writers), got)
	require.Equal(t, time.Hour, mr.TTL(key))
}

func TestUpdateCallbackErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	key := client.CartKey("sess-1")
	boom := errors.New("boom")

	err := client.Update(ctx, key, time.Hour, func(current []byte) ([]byte, error) {
		require.Nil(t, current)
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists(key))
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.CartKey("  "); got != "sf:cart" {
		t.Fatalf("blank parts should be dropped, got %s", got)
	}
	if got := client.IdempotencyKey("scope", "id"); got != "sf:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.CartKey("abc"); got != "sf:cart:abc" {
		t.Fatalf("unexpected cart key %s", got)
	}
	if got := client.OrderDescriptorKey("order_1"); got != "sf:order_descriptor:order_1" {
		t.Fatalf("unexpected descriptor key %s", got)
	}
	if got := client.PaymentVerifiedKey("order_1"); got != "sf:payment_verified:order_1" {
		t.Fatalf("unexpected verified key %s", got)
	}
	if got := client.LockKey("retention:prod"); got != "sf:lock:retention:prod" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := (Keyspace{}).key(); got != "sf" {
		t.Fatalf("unexpected bare key %s", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	var nilClient *Client
	if _, err := nilClient.SetNX(context.Background(), "k", "v", time.Second); err != errNotInitialized {
		t.Fatalf("expected not-initialized error, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6380/2", PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, "localhost:6380", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 7, opts.PoolSize)
	require.Equal(t, time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3, ReadTimeout: 2 * time.Second})
	require.NoError(t, err)
	require.Equal(t, "cache:6379", opts.Addr)
	require.Equal(t, 3, opts.DB)
	require.Equal(t, 2*time.Second, opts.ReadTimeout)

	_, err = optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)
}

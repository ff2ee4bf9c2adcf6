package cart

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-checkout/internal/analytics"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

type memoryRepo struct {
	carts   map[string][]byte
	saveErr error
	saves   int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{carts: map[string][]byte{}}
}

func (m *memoryRepo) Load(_ context.Context, sessionID string) (*Store, error) {
	raw, ok := m.carts[sessionID]
	if !ok {
		return NewStore(sessionID, "INR"), nil
	}
	return restore(sessionID, raw)
}

func (m *memoryRepo) Update(ctx context.Context, sessionID string, fn func(*Store) error) (*Store, error) {
	s, err := m.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	payload, err := s.marshal()
	if err != nil {
		return nil, err
	}
	m.saves++
	m.carts[sessionID] = payload
	return s, nil
}

func (m *memoryRepo) Delete(_ context.Context, sessionID string) error {
	delete(m.carts, sessionID)
	return nil
}

type captureEmitter struct {
	events []analytics.Event
}

func (c *captureEmitter) Emit(event analytics.Event) bool {
	c.events = append(c.events, event)
	return true
}

type stubCheckout struct {
	url   string
	err   error
	lines []CheckoutLine
	calls int
}

func (s *stubCheckout) CreateCheckout(_ context.Context, lines []CheckoutLine) (string, error) {
	s.calls++
	s.lines = lines
	return s.url, s.err
}

func newTestService(t *testing.T, checkout CheckoutCreator) (Service, *memoryRepo, *captureEmitter) {
	t.Helper()
	repo := newMemoryRepo()
	emitter := &captureEmitter{}
	svc, err := NewService(ServiceParams{
		Repository: repo,
		Emitter:    emitter,
		Checkout:   checkout,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	return svc, repo, emitter
}

func TestServiceAddPersistsThenEmits(t *testing.T) {
	svc, repo, emitter := newTestService(t, nil)
	snap, err := svc.Add(context.Background(), "sess", product("V1", "499.00"))
	require.NoError(t, err)

	assert.Equal(t, 1, snap.ItemCount)
	assert.True(t, snap.Open)
	assert.Equal(t, 1, repo.saves)
	require.Len(t, emitter.events, 1)
	assert.Equal(t, analytics.EventAddToCart, emitter.events[0].Name)
	assert.Equal(t, "sess", emitter.events[0].SessionID)
}

func TestServiceDoesNotEmitWhenSaveFails(t *testing.T) {
	svc, repo, emitter := newTestService(t, nil)
	repo.saveErr = pkgerrors.New(pkgerrors.CodeDependency, "redis down")

	_, err := svc.Add(context.Background(), "sess", product("V1", "1.00"))
	require.Error(t, err)
	assert.Empty(t, emitter.events)
}

func TestServiceAddValidatesProduct(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.Add(context.Background(), "sess", Product{ID: "  "})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	bad := product("X", "1.00")
	bad.Price.Amount = decimal.NewFromInt(-1)
	_, err = svc.Add(context.Background(), "sess", bad)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestServiceAddRejectsForeignCurrency(t *testing.T) {
	svc, repo, emitter := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Add(ctx, "sess", product("V1", "100.00"))
	require.NoError(t, err)

	foreign := product("V2", "100.00")
	foreign.Price.CurrencyCode = "usd"
	_, err = svc.Add(ctx, "sess", foreign)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Equal(t, 1, repo.saves)
	assert.Len(t, emitter.events, 1)

	snap, err := svc.Get(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ItemCount)
	assert.Equal(t, "100.00 INR", snap.Subtotal.String())

	lower := product("V3", "50.00")
	lower.Price.CurrencyCode = " inr "
	snap, err = svc.Add(ctx, "sess", lower)
	require.NoError(t, err)
	assert.Equal(t, "150.00 INR", snap.Subtotal.String())
}

func TestServiceConcurrentAddsAreNotLost(t *testing.T) {
	repo, _, _ := newRedisRepository(t)
	svc, err := NewService(ServiceParams{
		Repository: repo,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	ctx := context.Background()

	const clicks = 50
	var wg sync.WaitGroup
	errs := make(chan error, clicks)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, "sess", product("V1", "10.00"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	snap, err := svc.Get(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, clicks, snap.ItemCount)
	assert.Equal(t, "500.00 INR", snap.Subtotal.String())
}

func TestServiceRequiresSession(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.Get(context.Background(), "")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestServiceRemoveAbsentEmitsNothing(t *testing.T) {
	svc, _, emitter := newTestService(t, nil)
	_, err := svc.Remove(context.Background(), "sess", "missing")
	require.NoError(t, err)
	assert.Empty(t, emitter.events)
}

func TestServiceCheckoutSuccessClosesPanelKeepsItems(t *testing.T) {
	checkout := &stubCheckout{url: "https://shop.example/checkouts/abc"}
	svc, _, emitter := newTestService(t, checkout)
	ctx := context.Background()
	_, err := svc.Add(ctx, "sess", product("V1", "499.00"))
	require.NoError(t, err)

	url, err := svc.Checkout(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/checkouts/abc", url)
	assert.Equal(t, []CheckoutLine{{ID: "V1", Quantity: 1}}, checkout.lines)

	snap, err := svc.Get(ctx, "sess")
	require.NoError(t, err)
	assert.False(t, snap.Open)
	assert.Equal(t, 1, snap.ItemCount)
	require.Len(t, emitter.events, 2)
	assert.Equal(t, analytics.EventBeginCheckout, emitter.events[1].Name)
	assert.True(t, emitter.events[1].Value.Equal(decimal.RequireFromString("499.00")))
}

func TestServiceCheckoutFailureLeavesCartUntouched(t *testing.T) {
	cases := []struct {
		name     string
		checkout *stubCheckout
	}{
		{"error", &stubCheckout{err: errors.New("backend down")}},
		{"empty url", &stubCheckout{url: "  "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t, tc.checkout)
			ctx := context.Background()
			_, err := svc.Add(ctx, "sess", product("V1", "499.00"))
			require.NoError(t, err)
			before := string(repo.carts["sess"])

			_, err = svc.Checkout(ctx, "sess")
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
			assert.Equal(t, before, string(repo.carts["sess"]))
		})
	}
}

func TestServiceCheckoutRejectsEmptyCartWithoutCalling(t *testing.T) {
	checkout := &stubCheckout{url: "https://x"}
	svc, _, emitter := newTestService(t, checkout)
	_, err := svc.Checkout(context.Background(), "sess")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Zero(t, checkout.calls)
	assert.Empty(t, emitter.events)
}

func TestServiceDeleteDropsCart(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Add(ctx, "sess", product("V1", "1.00"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "sess"))
	_, ok := repo.carts["sess"]
	assert.False(t, ok)
}

package orders

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/payments"
	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/outbox"
	"github.com/angelmondragon/storefront-checkout/pkg/pagination"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

type fakeBackend struct {
	pushed      []*payments.VerifiedOrder
	pushErr     error
	externalID  string
	checkoutURL string
	checkoutErr error
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) PushOrder(_ context.Context, order *payments.VerifiedOrder) (string, error) {
	f.pushed = append(f.pushed, order)
	if f.pushErr != nil {
		return "", f.pushErr
	}
	return f.externalID, nil
}

func (f *fakeBackend) CreateCheckout(context.Context, []cart.CheckoutLine) (string, error) {
	return f.checkoutURL, f.checkoutErr
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&models.VerifiedOrder{}, &models.VerifiedOrderItem{}, &models.OutboxEvent{}))
	return conn
}

func newTestService(t *testing.T, backend Backend) (Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		DB:         db.NewFromGorm(conn),
		Outbox:     outbox.NewService(outbox.NewRepository(conn), nil),
		Backend:    backend,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	return svc, conn
}

func sampleOrder(gatewayOrderID string) *payments.VerifiedOrder {
	return &payments.VerifiedOrder{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_" + gatewayOrderID,
		SessionID:        "sess-1",
		Customer:         payments.CustomerInfo{Name: "Asha", Email: "asha@example.com", Contact: "9999999999"},
		Items: []payments.CartItem{
			{ID: "42", Title: "Trail Pack", Price: decimal.RequireFromString("499.00"), Quantity: 1},
		},
		ShippingAddress: types.ShippingAddress{Line1: "1 MG Road", City: "Pune", PostalCode: "411001", Country: "IN"},
		PaymentMethod:   "upi",
		Total:           decimal.RequireFromString("499.00"),
		Currency:        "INR",
		Notes:           map[string]any{"gift": true},
		CreatedAt:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func outboxTypes(t *testing.T, conn *gorm.DB) []string {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, conn.Order("created_at ASC").Find(&rows).Error)
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.EventType)
	}
	return names
}

func TestRecordOrderStoresOrderAndEvent(t *testing.T) {
	backend := &fakeBackend{externalID: "ext-1"}
	svc, conn := newTestService(t, backend)

	recorded, err := svc.RecordOrder(context.Background(), sampleOrder("order_1"))
	require.NoError(t, err)
	require.NotEmpty(t, recorded.ID)
	assert.Equal(t, "ext-1", recorded.ExternalID)
	assert.False(t, recorded.Fallback)
	require.Len(t, backend.pushed, 1)

	stored, err := svc.Get(context.Background(), "sess-1", "order_1")
	require.NoError(t, err)
	assert.Equal(t, "pay_order_1", stored.GatewayPaymentID)
	assert.Equal(t, "sess-1", stored.SessionID)
	assert.Equal(t, "Pune", stored.ShippingAddress.City)
	require.Len(t, stored.Items, 1)
	assert.True(t, decimal.RequireFromString("499.00").Equal(stored.Items[0].Price))
	assert.True(t, decimal.RequireFromString("499.00").Equal(stored.Total))

	assert.Equal(t, []string{outbox.EventOrderVerified}, outboxTypes(t, conn))
}

func TestRecordOrderKeepsLocalRecordWhenMirrorFails(t *testing.T) {
	backend := &fakeBackend{pushErr: errors.New("shopify unavailable")}
	svc, conn := newTestService(t, backend)

	recorded, err := svc.RecordOrder(context.Background(), sampleOrder("order_2"))
	require.NoError(t, err)
	assert.Empty(t, recorded.ExternalID)

	assert.ElementsMatch(t, []string{outbox.EventOrderVerified, outbox.EventOrderMirrorFailed}, outboxTypes(t, conn))
}

func TestRecordOrderDuplicateIsConflict(t *testing.T) {
	svc, conn := newTestService(t, &fakeBackend{})

	_, err := svc.RecordOrder(context.Background(), sampleOrder("order_3"))
	require.NoError(t, err)

	_, err = svc.RecordOrder(context.Background(), sampleOrder("order_3"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	var count int64
	require.NoError(t, conn.Model(&models.VerifiedOrder{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Len(t, outboxTypes(t, conn), 1)
}

func TestRecordOrderRejectsMissingGatewayID(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{})

	_, err := svc.RecordOrder(context.Background(), &payments.VerifiedOrder{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetUnknownOrderIsNotFound(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{})

	_, err := svc.Get(context.Background(), "sess-1", "order_missing")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestGetHidesOrdersOfOtherSessions(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{})
	_, err := svc.RecordOrder(context.Background(), sampleOrder("order_1"))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "sess-2", "order_1")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	anonymous := sampleOrder("order_2")
	anonymous.SessionID = ""
	_, err = svc.RecordOrder(context.Background(), anonymous)
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), "sess-1", "order_2")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Get(context.Background(), "", "order_1")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListForSessionPagesNewestFirst(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{})
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"order_a", "order_b", "order_c"} {
		order := sampleOrder(id)
		order.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := svc.RecordOrder(context.Background(), order)
		require.NoError(t, err)
	}
	other := sampleOrder("order_other")
	other.SessionID = "sess-2"
	_, err := svc.RecordOrder(context.Background(), other)
	require.NoError(t, err)

	first, err := svc.ListForSession(context.Background(), "sess-1", pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, "order_c", first.Orders[0].GatewayOrderID)
	assert.Equal(t, "order_b", first.Orders[1].GatewayOrderID)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListForSession(context.Background(), "sess-1", pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, "order_a", second.Orders[0].GatewayOrderID)
	assert.Empty(t, second.NextCursor)

	_, err = svc.ListForSession(context.Background(), "sess-1", pagination.Params{Cursor: "%%%"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateCheckoutWrapsBackendErrors(t *testing.T) {
	backend := &fakeBackend{checkoutURL: "https://shop.example/cart/c/1"}
	svc, _ := newTestService(t, backend)

	url, err := svc.CreateCheckout(context.Background(), []cart.CheckoutLine{{ID: "42", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/cart/c/1", url)

	backend.checkoutErr = errors.New("timeout")
	_, err = svc.CreateCheckout(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

package handshake

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/payments"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

const (
	defaultOrderTTL            = 15 * time.Minute
	defaultCreateOrderAttempts = 3
	defaultCreateOrderBackoff  = 500 * time.Millisecond
)

type OrchestratorParams struct {
	API        API
	UI         PaymentUI
	Logger     *logger.Logger
	StoreName  string
	ThemeColor string
	// OrderTTL bounds the wait when the backend does not send expires_at.
	OrderTTL time.Duration
	// CreateOrderAttempts and CreateOrderBackoff govern retries of order
	// creation. Every retry reuses the attempt's idempotency key.
	CreateOrderAttempts int
	CreateOrderBackoff  time.Duration
	// OnState, when set, observes every transition.
	OnState func(State)
	Now     func() time.Time
}

// Orchestrator drives one checkout attempt from order creation through the
// payment form to server-side verification. It is safe to reuse across
// attempts but each Run is independent.
type Orchestrator struct {
	api            API
	ui             PaymentUI
	logg           *logger.Logger
	storeName      string
	themeColor     string
	orderTTL       time.Duration
	createAttempts int
	createBackoff  time.Duration
	onState        func(State)
	now            func() time.Time
}

func NewOrchestrator(params OrchestratorParams) (*Orchestrator, error) {
	if params.API == nil {
		return nil, errors.New("storefront api is required")
	}
	if params.UI == nil {
		return nil, errors.New("payment ui is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	ttl := params.OrderTTL
	if ttl <= 0 {
		ttl = defaultOrderTTL
	}
	attempts := params.CreateOrderAttempts
	if attempts <= 0 {
		attempts = defaultCreateOrderAttempts
	}
	backoff := params.CreateOrderBackoff
	if backoff <= 0 {
		backoff = defaultCreateOrderBackoff
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		api:            params.API,
		ui:             params.UI,
		logg:           params.Logger,
		storeName:      params.StoreName,
		themeColor:     params.ThemeColor,
		orderTTL:       ttl,
		createAttempts: attempts,
		createBackoff:  backoff,
		onState:        params.OnState,
		now:            now,
	}, nil
}

type attempt struct {
	o       *Orchestrator
	id      string
	state   State
	orderID string
}

func (a *attempt) transition(next State) {
	a.state = next
	if a.o.onState != nil {
		a.o.onState(next)
	}
}

func (a *attempt) end(next State, err error) (*Result, error) {
	a.transition(next)
	return &Result{State: next, AttemptID: a.id, OrderID: a.orderID}, err
}

// Run creates the gateway order, opens the payment form and waits for the
// first of: a payment result, dismissal, or the order deadline. A payment
// result is then verified by the backend. The returned Result is never nil.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*Result, error) {
	a := &attempt{o: o, id: in.AttemptID}
	if a.id == "" {
		a.id = uuid.NewString()
	}
	a.transition(StateCreated)
	if len(in.Snapshot.Items) == 0 {
		return a.end(StateFailed, ErrEmptyCart)
	}

	created, err := o.createOrder(ctx, a.id, payments.CreateOrderBody{
		Amount:       in.Snapshot.Subtotal.Amount,
		Currency:     in.Snapshot.Subtotal.CurrencyCode,
		CustomerInfo: &in.Customer,
		CartItems:    cartItems(in.Snapshot.Items),
	})
	if err != nil {
		o.logg.Warn(ctx, "checkout create order failed: "+err.Error())
		return a.end(StateFailed, fmt.Errorf("create order: %w", err))
	}
	a.orderID = created.Order.ID
	ctx = o.logg.WithOrderID(ctx, created.Order.ID)

	deadline := created.ExpiresAt
	if deadline.IsZero() {
		deadline = o.now().Add(o.orderTTL)
	}
	wait := deadline.Sub(o.now())
	if wait <= 0 {
		return a.end(StateFailed, ErrExpired)
	}

	outcome := make(chan payments.PaymentResult, 1)
	dismissed := make(chan struct{}, 1)
	opts := o.options(in, created, wait)
	opts.Handler = func(result payments.PaymentResult) {
		select {
		case outcome <- result:
		default:
		}
	}
	opts.Modal.OnDismiss = func() {
		select {
		case dismissed <- struct{}{}:
		default:
		}
	}

	a.transition(StateAwaitingCustomerAction)
	if err := o.ui.Open(ctx, opts); err != nil {
		return a.end(StateFailed, fmt.Errorf("open payment form: %w", err))
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	var payment payments.PaymentResult
	select {
	case payment = <-outcome:
	case <-dismissed:
		// A result delivered together with the dismissal still wins.
		select {
		case payment = <-outcome:
		default:
			o.logg.Info(ctx, "checkout dismissed by customer")
			return a.end(StateCancelled, ErrCancelled)
		}
	case <-timer.C:
		o.logg.Warn(ctx, "checkout order expired before payment")
		return a.end(StateFailed, ErrExpired)
	case <-ctx.Done():
		return a.end(StateFailed, fmt.Errorf("%w: %w", ErrExpired, ctx.Err()))
	}

	order, err := o.api.VerifyPayment(ctx, payments.VerifyPaymentBody{
		PaymentResult:   payment,
		CustomerInfo:    &in.Customer,
		CartItems:       cartItems(in.Snapshot.Items),
		ShippingAddress: in.Shipping,
		Notes:           in.Notes,
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
			o.logg.Warn(ctx, "checkout verification rejected: "+statusErr.Message)
			return a.end(StateFailed, fmt.Errorf("%w: %s", ErrVerificationFailed, statusErr.Message))
		}
		o.logg.Error(ctx, "checkout verification request failed", err)
		return a.end(StateFailed, fmt.Errorf("verify payment: %w", err))
	}

	a.transition(StateCaptured)
	return &Result{State: StateCaptured, AttemptID: a.id, OrderID: a.orderID, Order: order}, nil
}

// createOrder retries transient failures under one idempotency key, so at
// most one gateway order exists per attempt.
func (o *Orchestrator) createOrder(ctx context.Context, key string, body payments.CreateOrderBody) (*payments.CreateOrderResult, error) {
	var lastErr error
	for try := 1; try <= o.createAttempts; try++ {
		created, err := o.api.CreateOrder(ctx, key, body)
		if err == nil {
			return created, nil
		}
		lastErr = err
		if try == o.createAttempts || !retryable(ctx, err) {
			break
		}
		o.logg.Warn(ctx, fmt.Sprintf("checkout create order attempt %d failed, retrying: %s", try, err))
		if err := sleep(ctx, o.createBackoff*time.Duration(try)); err != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// retryable covers transport errors, 5xx answers and the 409 the backend
// sends while an earlier request with the same key is still running.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return true
	}
	return statusErr.StatusCode >= http.StatusInternalServerError || statusErr.StatusCode == http.StatusConflict
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) options(in Input, created *payments.CreateOrderResult, wait time.Duration) CheckoutOptions {
	return CheckoutOptions{
		Key:         created.KeyID,
		Amount:      created.Order.Amount,
		Currency:    created.Order.Currency,
		Name:        o.storeName,
		Description: fmt.Sprintf("Order %s", created.Order.Receipt),
		OrderID:     created.Order.ID,
		Prefill: Prefill{
			Name:    in.Customer.Name,
			Email:   in.Customer.Email,
			Contact: in.Customer.Contact,
		},
		Notes:   in.Notes,
		Theme:   Theme{Color: o.themeColor},
		Timeout: int(wait / time.Second),
	}
}

func cartItems(lines []cart.LineItem) []payments.CartItem {
	items := make([]payments.CartItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, payments.CartItem{
			ID:       line.ID,
			Title:    line.Title,
			Price:    line.Price.Amount,
			Quantity: line.Quantity,
			Image:    line.Image,
		})
	}
	return items
}

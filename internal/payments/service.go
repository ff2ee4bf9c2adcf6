package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
	"github.com/angelmondragon/storefront-checkout/pkg/razorpay"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

const (
	defaultOrderTTL    = 15 * time.Minute
	defaultVerifiedTTL = 30 * 24 * time.Hour
	fallbackIDPrefix   = "local_"

	MessageVerificationFailed = "Payment verification failed"
	MessageAlreadyVerified    = "Payment already verified"
)

// Gateway is the subset of the payment gateway client the handshake needs.
type Gateway interface {
	CreateOrder(ctx context.Context, params razorpay.OrderParams) (*razorpay.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	KeyID() string
}

type DescriptorStore interface {
	Save(ctx context.Context, d OrderDescriptor, ttl time.Duration) error
	Get(ctx context.Context, orderID string) (*OrderDescriptor, error)
	Delete(ctx context.Context, orderID string) error
	Claim(ctx context.Context, orderID, paymentID string, ttl time.Duration) (bool, error)
}

// OrderRecorder persists a verified order. It returns the stored order,
// which may carry an id and external id assigned during recording.
type OrderRecorder interface {
	RecordOrder(ctx context.Context, order *VerifiedOrder) (*VerifiedOrder, error)
}

type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error)
	Verify(ctx context.Context, req VerifyPaymentRequest) (*VerifiedOrder, error)
}

type ServiceParams struct {
	Gateway         Gateway
	Descriptors     DescriptorStore
	Recorder        OrderRecorder
	KeySecret       string
	OrderTTL        time.Duration
	VerifiedTTL     time.Duration
	DefaultCurrency string
	Logger          *logger.Logger
	Metrics         *metrics.CheckoutMetrics
	Now             func() time.Time
}

type service struct {
	gateway         Gateway
	descriptors     DescriptorStore
	recorder        OrderRecorder
	keySecret       string
	orderTTL        time.Duration
	verifiedTTL     time.Duration
	defaultCurrency string
	logg            *logger.Logger
	metrics         *metrics.CheckoutMetrics
	now             func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, errors.New("payment gateway is required")
	}
	if params.Descriptors == nil {
		return nil, errors.New("descriptor store is required")
	}
	if params.Recorder == nil {
		return nil, errors.New("order recorder is required")
	}
	if strings.TrimSpace(params.KeySecret) == "" {
		return nil, errors.New("gateway key secret is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	orderTTL := params.OrderTTL
	if orderTTL <= 0 {
		orderTTL = defaultOrderTTL
	}
	verifiedTTL := params.VerifiedTTL
	if verifiedTTL <= 0 {
		verifiedTTL = defaultVerifiedTTL
	}
	currency := types.NormalizeCurrency(params.DefaultCurrency)
	if currency == "" {
		currency = "INR"
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		gateway:         params.Gateway,
		descriptors:     params.Descriptors,
		recorder:        params.Recorder,
		keySecret:       params.KeySecret,
		orderTTL:        orderTTL,
		verifiedTTL:     verifiedTTL,
		defaultCurrency: currency,
		logg:            params.Logger,
		metrics:         params.Metrics,
		now:             now,
	}, nil
}

// CreateOrder opens a gateway order for the amount and records its
// descriptor until it expires.
func (s *service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateCreateOrder(req); err != nil {
		s.metrics.Handshake(metrics.StageCreateOrder, metrics.OutcomeValidation)
		return nil, err
	}
	currency := types.NormalizeCurrency(req.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}
	amount := types.NewMoney(req.Amount, currency).MinorUnits()
	if amount <= 0 {
		s.metrics.Handshake(metrics.StageCreateOrder, metrics.OutcomeValidation)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount is too small")
	}

	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	notes := map[string]string{
		"customer_name":  req.CustomerInfo.Name,
		"customer_email": req.CustomerInfo.Email,
	}
	if req.SessionID != "" {
		notes["session_id"] = req.SessionID
	}

	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderParams{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		s.metrics.Handshake(metrics.StageCreateOrder, metrics.OutcomeGatewayError)
		return nil, err
	}

	expiresAt := s.now().UTC().Add(s.orderTTL)
	descriptor := OrderDescriptor{
		ID:        order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Receipt:   order.Receipt,
		ExpiresAt: expiresAt,
	}
	if descriptor.Currency == "" {
		descriptor.Currency = currency
	}
	if descriptor.Receipt == "" {
		descriptor.Receipt = receipt
	}
	if err := s.descriptors.Save(ctx, descriptor, s.orderTTL); err != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID), "order descriptor not stored: "+err.Error())
	}

	s.metrics.Handshake(metrics.StageCreateOrder, metrics.OutcomeSuccess)
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID), map[string]any{
		"amount":   descriptor.Amount,
		"currency": descriptor.Currency,
	}), "gateway order created")

	return &CreateOrderResult{
		Order:     descriptor,
		KeyID:     s.gateway.KeyID(),
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks the payment signature, confirms capture with the gateway,
// and records the order. Nothing is written unless both checks pass.
func (s *service) Verify(ctx context.Context, req VerifyPaymentRequest) (*VerifiedOrder, error) {
	p := req.Payment
	if isBlank(p.OrderID) || isBlank(p.PaymentID) || isBlank(p.Signature) {
		s.metrics.Handshake(metrics.StageVerify, metrics.OutcomeValidation)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}
	ctx = s.logg.WithPaymentID(s.logg.WithOrderID(ctx, p.OrderID), p.PaymentID)

	if !razorpay.VerifySignature(s.keySecret, p.OrderID, p.PaymentID, p.Signature) {
		s.metrics.Handshake(metrics.StageVerify, metrics.OutcomeSignatureMismatch)
		s.logg.Warn(ctx, "payment signature mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeVerification, "payment signature mismatch")
	}

	payment, err := s.gateway.FetchPayment(ctx, p.PaymentID)
	if err != nil {
		s.metrics.Handshake(metrics.StageVerify, metrics.OutcomeGatewayError)
		return nil, err
	}
	if payment.OrderID != p.OrderID {
		s.metrics.Handshake(metrics.StageVerify, metrics.OutcomeNotCaptured)
		s.logg.Warn(ctx, "payment belongs to a different order")
		return nil, pkgerrors.New(pkgerrors.CodeVerification, "payment does not belong to order")
	}
	if !payment.Captured() {
		s.metrics.Handshake(metrics.StageVerify, metrics.OutcomeNotCaptured)
		s.logg.Warn(s.logg.WithField(ctx, "status", payment.Status), "payment not captured")
		return nil, pkgerrors.New(pkgerrors.CodeVerification, "payment not captured")
	}

	claimed, err := s.descriptors.Claim(ctx, p.OrderID, p.PaymentID, s.verifiedTTL)
	switch {
	case err != nil:
		s.logg.Warn(ctx, "verification claim unavailable, relying on database uniqueness: "+err.Error())
	case !claimed:
		s.metrics.Handshake(metrics.StageVerify, metrics.OutcomeDuplicate)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, MessageAlreadyVerified)
	}

	order := s.buildOrder(ctx, req, p, payment)

	recorded, err := s.recorder.RecordOrder(ctx, order)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeConflict) {
			s.metrics.Handshake(metrics.StageVerify, metrics.OutcomeDuplicate)
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, MessageAlreadyVerified)
		}
		s.metrics.Handshake(metrics.StageVerify, metrics.OutcomeFallbackRecorded)
		s.logg.Error(ctx, "order recording failed after captured payment, returning fallback order", err)
		order.ID = fallbackIDPrefix + uuid.NewString()
		order.Fallback = true
		return order, nil
	}

	if recorded == nil {
		recorded = order
	}
	if err := s.descriptors.Delete(ctx, p.OrderID); err != nil {
		s.logg.Warn(ctx, "order descriptor not removed: "+err.Error())
	}
	s.metrics.Handshake(metrics.StageVerify, metrics.OutcomeSuccess)
	s.logg.Info(s.logg.WithField(ctx, "verified_order_id", recorded.ID), "payment verified")
	return recorded, nil
}

func (s *service) buildOrder(ctx context.Context, req VerifyPaymentRequest, p PaymentResult, payment *razorpay.Payment) *VerifiedOrder {
	total := types.MoneyFromMinor(payment.Amount, payment.Currency)
	descriptor, err := s.descriptors.Get(ctx, p.OrderID)
	switch {
	case err != nil:
		s.logg.Warn(ctx, "order descriptor lookup failed: "+err.Error())
	case descriptor == nil:
		s.metrics.Handshake(metrics.StageVerify, metrics.OutcomeDescriptorExpired)
		s.logg.Warn(ctx, "order descriptor expired, using gateway amount")
	default:
		if descriptor.Amount != payment.Amount {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"descriptor_amount": descriptor.Amount,
				"captured_amount":   payment.Amount,
			}), "captured amount differs from order descriptor")
		}
		total = types.MoneyFromMinor(descriptor.Amount, descriptor.Currency)
	}

	customer := CustomerInfo{Email: payment.Email, Contact: payment.Contact}
	if req.CustomerInfo != nil {
		customer = *req.CustomerInfo
	}
	var shipping types.ShippingAddress
	if req.ShippingAddress != nil {
		shipping = *req.ShippingAddress
	}
	method := payment.Method
	if method == "" {
		method = "razorpay"
	}
	return &VerifiedOrder{
		GatewayOrderID:   p.OrderID,
		GatewayPaymentID: p.PaymentID,
		SessionID:        req.SessionID,
		Customer:         customer,
		Items:            req.CartItems,
		ShippingAddress:  shipping,
		PaymentMethod:    method,
		Total:            total.Amount,
		Currency:         total.CurrencyCode,
		Notes:            req.Notes,
		CreatedAt:        s.now().UTC(),
	}
}

func validateCreateOrder(req CreateOrderRequest) error {
	details := map[string]string{}
	if !req.Amount.GreaterThan(decimal.Zero) {
		details["amount"] = "must be greater than 0"
	}
	if req.CustomerInfo == nil {
		details["customerInfo"] = "is required"
	} else {
		if strings.TrimSpace(req.CustomerInfo.Name) == "" {
			details["customerInfo.name"] = "is required"
		}
		if strings.TrimSpace(req.CustomerInfo.Email) == "" {
			details["customerInfo.email"] = "is required"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount and customer info are required").WithDetails(details)
	}
	return nil
}

func isBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}

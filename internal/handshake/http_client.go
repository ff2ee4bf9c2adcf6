package handshake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-checkout/internal/payments"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

const (
	// SessionHeader carries the storefront session between page and API.
	SessionHeader     = "X-Session-Id"
	idempotencyHeader = "Idempotency-Key"
	createOrderPath   = "/api/create-order"
	verifyPaymentPath = "/api/verify-payment"
	maxResponseBody   = 1 << 20
)

// HTTPClient implements API against the storefront backend.
type HTTPClient struct {
	baseURL   string
	http      *http.Client
	sessionID string
}

// NewHTTPClient targets baseURL. httpClient may be nil.
func NewHTTPClient(baseURL, sessionID string, httpClient *http.Client) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("storefront base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{baseURL: base, http: httpClient, sessionID: sessionID}, nil
}

// SessionID returns the session the backend assigned, once known.
func (c *HTTPClient) SessionID() string {
	return c.sessionID
}

// CreateOrder sends idempotencyKey, when set, so a retried request replays
// the stored response instead of creating a second gateway order.
func (c *HTTPClient) CreateOrder(ctx context.Context, idempotencyKey string, body payments.CreateOrderBody) (*payments.CreateOrderResult, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{idempotencyHeader: idempotencyKey}
	}
	resp, raw, err := c.post(ctx, createOrderPath, body, headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	var result payments.CreateOrderResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode create order response: %w", err)
	}
	if result.Order.ID == "" {
		return nil, errors.New("create order response has no order id")
	}
	return &result, nil
}

func (c *HTTPClient) VerifyPayment(ctx context.Context, body payments.VerifyPaymentBody) (*payments.VerifiedOrder, error) {
	resp, raw, err := c.post(ctx, verifyPaymentPath, body, nil)
	if err != nil {
		return nil, err
	}
	var decoded payments.VerifyPaymentResponse
	if jsonErr := json.Unmarshal(raw, &decoded); jsonErr != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("decode verify response: %w", jsonErr)
	}
	if resp.StatusCode != http.StatusOK || !decoded.Success {
		msg := decoded.Error
		if msg == "" {
			msg = errorMessage(raw)
		}
		status := resp.StatusCode
		if status == http.StatusOK {
			status = http.StatusBadRequest
		}
		return nil, &StatusError{StatusCode: status, Message: msg}
	}
	if decoded.Order == nil {
		return nil, errors.New("verify response has no order")
	}
	return decoded.Order, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, headers map[string]string) (*http.Response, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set(SessionHeader, c.sessionID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get(SessionHeader); sid != "" {
		c.sessionID = sid
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return resp, raw, nil
}

// errorMessage pulls a message out of either error shape the backend uses.
func errorMessage(raw []byte) string {
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}
	return strings.TrimSpace(string(raw))
}

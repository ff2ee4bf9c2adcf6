package shopify

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

	"github.com/angelmondragon/storefront-checkout/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

const (
	adminTokenHeader      = "X-Shopify-Access-Token"
	storefrontTokenHeader = "X-Shopify-Storefront-Access-Token"
	maxErrorBody          = 2048
)

var (
	errDomainRequired = errors.New("shopify shop domain is required")
	errLoggerRequired = errors.New("shopify logger is required")
)

// Client talks to the Shopify Admin REST API (order mirroring) and the
// Storefront GraphQL API (hosted checkout URLs).
type Client struct {
	http            *http.Client
	baseURL         string
	apiVersion      string
	adminToken      string
	storefrontToken string
	logger          *logger.Logger
}

// NewClient builds a client for cfg.ShopDomain. httpClient may be nil.
func NewClient(cfg config.ShopifyConfig, httpClient *http.Client, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	domain := strings.TrimSpace(cfg.ShopDomain)
	if domain == "" {
		return nil, errDomainRequired
	}
	baseURL := strings.TrimRight(domain, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	version := strings.TrimSpace(cfg.APIVersion)
	if version == "" {
		version = "2024-10"
	}
	return &Client{
		http:            httpClient,
		baseURL:         baseURL,
		apiVersion:      version,
		adminToken:      strings.TrimSpace(cfg.AdminToken),
		storefrontToken: strings.TrimSpace(cfg.StorefrontToken),
		logger:          logg,
	}, nil
}

// CreateOrder mirrors a paid order into the Admin API and returns its id.
func (c *Client) CreateOrder(ctx context.Context, input OrderInput) (string, error) {
	if c.adminToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shopify admin token is not configured")
	}
	if len(input.LineItems) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shopify order requires line items")
	}
	endpoint := fmt.Sprintf("%s/admin/api/%s/orders.json", c.baseURL, c.apiVersion)
	c.log(ctx, "request", "create_order", map[string]any{
		"lines":    len(input.LineItems),
		"email":    input.Email,
		"currency": input.Currency,
	})

	var resp orderResponse
	if err := c.do(ctx, endpoint, adminTokenHeader, c.adminToken, orderRequest{Order: input.toPayload()}, &resp); err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return "", err
	}
	if resp.Order.ID == 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shopify create order returned no id")
	}
	id := fmt.Sprintf("%d", resp.Order.ID)
	c.log(ctx, "response", "create_order", map[string]any{"shopify_order_id": id, "name": resp.Order.Name})
	return id, nil
}

// CreateCheckout runs the Storefront cartCreate mutation and returns the
// hosted checkoutUrl.
func (c *Client) CreateCheckout(ctx context.Context, lines []CartLine) (string, error) {
	if c.storefrontToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shopify storefront token is not configured")
	}
	if len(lines) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one line")
	}
	endpoint := fmt.Sprintf("%s/api/%s/graphql.json", c.baseURL, c.apiVersion)
	c.log(ctx, "request", "cart_create", map[string]any{"lines": len(lines)})

	req := graphQLRequest{
		Query:     cartCreateMutation,
		Variables: map[string]any{"input": map[string]any{"lines": lines}},
	}
	var resp cartCreateResponse
	if err := c.do(ctx, endpoint, storefrontTokenHeader, c.storefrontToken, req, &resp); err != nil {
		c.log(ctx, "error", "cart_create", map[string]any{"error": err.Error()})
		return "", err
	}
	if len(resp.Errors) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shopify cartCreate failed: "+resp.Errors[0].Message)
	}
	if errs := resp.Data.CartCreate.UserErrors; len(errs) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shopify rejected the cart: "+errs[0].Message)
	}
	url := resp.Data.CartCreate.Cart.CheckoutURL
	c.log(ctx, "response", "cart_create", map[string]any{"has_checkout_url": url != ""})
	return url, nil
}

func (c *Client) do(ctx context.Context, endpoint, tokenHeader, token string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode shopify request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build shopify request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(tokenHeader, token)

	res, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shopify request failed")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read shopify response")
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return mapStatus(res.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode shopify response")
	}
	return nil
}

func mapStatus(status int, body []byte) error {
	snippet := string(body)
	if len(snippet) > maxErrorBody {
		snippet = snippet[:maxErrorBody]
	}
	err := fmt.Errorf("shopify status %d: %s", status, snippet)
	switch {
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "shopify rejected the request")
	case status == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "shopify resource not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shopify request failed")
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.VendorCall(ctx, "shopify", phase, op, fields)
}

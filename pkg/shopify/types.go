package shopify

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const variantGIDPrefix = "gid://shopify/ProductVariant/"

// CartLine is one Storefront API cart line.
type CartLine struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

type OrderLine struct {
	VariantID string
	Title     string
	Quantity  int
	Price     decimal.Decimal
}

type Address struct {
	Name     string `json:"name,omitempty"`
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city,omitempty"`
	Province string `json:"province,omitempty"`
	Zip      string `json:"zip,omitempty"`
	Country  string `json:"country,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// OrderInput is a paid order to mirror into the Admin API.
type OrderInput struct {
	Email           string
	Phone           string
	Currency        string
	Total           decimal.Decimal
	LineItems       []OrderLine
	ShippingAddress *Address
	Gateway         string
	PaymentID       string
	Note            string
}

type orderRequest struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	Email           string              `json:"email,omitempty"`
	Phone           string              `json:"phone,omitempty"`
	Currency        string              `json:"currency,omitempty"`
	FinancialStatus string              `json:"financial_status"`
	LineItems       []lineItemPayload   `json:"line_items"`
	ShippingAddress *Address            `json:"shipping_address,omitempty"`
	Transactions    []transactionRecord `json:"transactions"`
	Note            string              `json:"note,omitempty"`
	NoteAttributes  []noteAttribute     `json:"note_attributes,omitempty"`
}

type lineItemPayload struct {
	VariantID *int64 `json:"variant_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Price     string `json:"price,omitempty"`
	Quantity  int    `json:"quantity"`
}

type transactionRecord struct {
	Kind    string `json:"kind"`
	Status  string `json:"status"`
	Amount  string `json:"amount"`
	Gateway string `json:"gateway,omitempty"`
}

type noteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (in OrderInput) toPayload() orderPayload {
	lines := make([]lineItemPayload, 0, len(in.LineItems))
	for _, line := range in.LineItems {
		payload := lineItemPayload{Quantity: line.Quantity}
		if id, ok := numericVariantID(line.VariantID); ok {
			payload.VariantID = &id
		} else {
			payload.Title = line.Title
			payload.Price = line.Price.StringFixed(2)
		}
		lines = append(lines, payload)
	}
	var attrs []noteAttribute
	if in.PaymentID != "" {
		attrs = append(attrs, noteAttribute{Name: "payment_id", Value: in.PaymentID})
	}
	return orderPayload{
		Email:           in.Email,
		Phone:           in.Phone,
		Currency:        strings.ToUpper(in.Currency),
		FinancialStatus: "paid",
		LineItems:       lines,
		ShippingAddress: in.ShippingAddress,
		Transactions: []transactionRecord{{
			Kind:    "sale",
			Status:  "success",
			Amount:  in.Total.StringFixed(2),
			Gateway: in.Gateway,
		}},
		Note:           in.Note,
		NoteAttributes: attrs,
	}
}

// numericVariantID accepts either a bare numeric id or a Storefront GID.
func numericVariantID(raw string) (int64, bool) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), variantGIDPrefix)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// VariantGID turns a bare variant id into a Storefront merchandise id.
func VariantGID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return variantGIDPrefix + id
}

type orderResponse struct {
	Order struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"order"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type cartCreateResponse struct {
	Data struct {
		CartCreate struct {
			Cart struct {
				ID          string `json:"id"`
				CheckoutURL string `json:"checkoutUrl"`
			} `json:"cart"`
			UserErrors []userError `json:"userErrors"`
		} `json:"cartCreate"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

const cartCreateMutation = `mutation cartCreate($input: CartInput!) {
  cartCreate(input: $input) {
    cart { id checkoutUrl }
    userErrors { field message }
  }
}`

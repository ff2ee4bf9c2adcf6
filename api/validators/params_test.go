package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/pagination"
)

func TestPageParams(t *testing.T) {
	params, err := PageParams(httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	require.NoError(t, err)
	assert.Equal(t, pagination.DefaultLimit, params.Limit)
	assert.Empty(t, params.Cursor)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: time.Now(), ID: uuid.New()})
	params, err = PageParams(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor="+cursor, nil))
	require.NoError(t, err)
	assert.Equal(t, 5, params.Limit)
	assert.Equal(t, cursor, params.Cursor)

	for _, query := range []string{"limit=abc", "limit=0", "limit=101", "cursor=garbage!"} {
		_, err := PageParams(httptest.NewRequest(http.MethodGet, "/api/v1/orders?"+query, nil))
		require.Error(t, err, query)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code(), query)
	}
}

func TestPathID(t *testing.T) {
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("itemId", value)
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/x", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := PathID(withParam(" gid-42 "), "itemId")
	require.NoError(t, err)
	assert.Equal(t, "gid-42", id)

	_, err = PathID(withParam("  "), "itemId")
	assert.Error(t, err)
	_, err = PathID(withParam(strings.Repeat("x", 256)), "itemId")
	assert.Error(t, err)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Mug", CleanText("  Mug ", 10))
	assert.Equal(t, "चाय", CleanText("चायपत्ती", 3))
	assert.Equal(t, "abc", CleanText("abc", 0))
}

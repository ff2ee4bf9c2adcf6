package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/pagination"
)

// maxIDLength bounds vendor variant ids and gateway order ids taken from paths.
const maxIDLength = 255

// PageParams reads ?limit and ?cursor. A malformed cursor is rejected here
// so it never reaches a query.
func PageParams(r *http.Request) (pagination.Params, error) {
	q := r.URL.Query()
	limit := pagination.DefaultLimit
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be numeric").WithDetails(map[string]any{"field": "limit"})
		}
		if v < 1 || v > pagination.MaxLimit {
			return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit out of range").
				WithDetails(map[string]any{"field": "limit", "min": 1, "max": pagination.MaxLimit})
		}
		limit = v
	}
	cursor := strings.TrimSpace(q.Get("cursor"))
	if _, err := pagination.ParseCursor(cursor); err != nil {
		return pagination.Params{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").WithDetails(map[string]any{"field": "cursor"})
	}
	return pagination.Params{Limit: limit, Cursor: cursor}, nil
}

// PathID returns the trimmed chi URL parameter, rejecting empty or
// oversized values.
func PathID(r *http.Request, key string) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, key))
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, key+" is required")
	}
	if len(value) > maxIDLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, key+" is too long")
	}
	return value, nil
}

// CleanText trims input and truncates it to maxRunes without splitting a
// multi-byte character.
func CleanText(input string, maxRunes int) string {
	trimmed := strings.TrimSpace(input)
	if maxRunes <= 0 || utf8.RuneCountInString(trimmed) <= maxRunes {
		return trimmed
	}
	return strings.TrimSpace(string([]rune(trimmed)[:maxRunes]))
}

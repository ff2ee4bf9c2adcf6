package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestSessionIssuesIDWhenMissing(t *testing.T) {
	var seen string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected generated uuid session, got %q", seen)
	}
	if rec.Header().Get(SessionHeader) != seen {
		t.Fatalf("expected response header to echo session %q, got %q", seen, rec.Header().Get(SessionHeader))
	}
}

func TestSessionKeepsValidID(t *testing.T) {
	existing := uuid.NewString()
	var seen string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, existing)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != existing {
		t.Fatalf("expected session %q got %q", existing, seen)
	}
}

func TestSessionReplacesMalformedID(t *testing.T) {
	var seen string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, "../../etc/passwd")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen == "../../etc/passwd" {
		t.Fatalf("expected malformed session to be replaced")
	}
}

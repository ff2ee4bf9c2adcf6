package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeVerification, status: http.StatusBadRequest, publicMsg: "Payment verification failed"},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeVerification, "signature mismatch"))
	if got := As(err); got == nil || got.Code() != CodeVerification {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpExtractsPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "verified_orders_gateway_order_id_key",
		TableName:      "verified_orders",
		Message:        "duplicate key value violates unique constraint",
	}
	err := Wrap(CodeConflict, fmt.Errorf("insert verified order: %w", pgErr), "order already recorded")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.PGCode != "23505" || d.PGTable != "verified_orders" {
		t.Fatalf("unexpected pg details %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}
}

func TestCodeHelpers(t *testing.T) {
	dup := fmt.Errorf("record: %w", New(CodeConflict, "already verified"))
	if !Is(dup, CodeConflict) || Is(dup, CodeValidation) {
		t.Fatalf("Is did not match the wrapped code")
	}
	if CodeOf(stdErrors.New("boom")) != CodeInternal {
		t.Fatalf("untyped errors should report CodeInternal")
	}
	if Is(stdErrors.New("boom"), CodeInternal) {
		t.Fatalf("untyped errors should not match any code")
	}
	if !Retryable(Wrap(CodeDependency, stdErrors.New("timeout"), "shopify push")) {
		t.Fatalf("dependency failures should be retryable")
	}
	if Retryable(New(CodeVerification, "signature mismatch")) || Retryable(nil) {
		t.Fatalf("verification failures and nil should not be retryable")
	}
	if got := Newf(CodeValidation, "quantity %d out of range", 0).Message(); got != "quantity 0 out of range" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestDumpFlagsTimeoutsAndOmitsEmptyDriverFields(t *testing.T) {
	err := Wrap(CodeDependency, fmt.Errorf("fetch payment: %w", context.DeadlineExceeded), "razorpay fetch payment failed")
	d := Dump(err)
	if !d.Timeout || !d.Retryable || d.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("unexpected dump %+v", d)
	}
	fields := d.Fields()
	if fields["timeout"] != true {
		t.Fatalf("expected timeout field, got %v", fields)
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("pg_code should be omitted when empty")
	}
}

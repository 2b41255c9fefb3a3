package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToDomainError_PassesThroughWrapped(t *testing.T) {
	wrapped := fmt.Errorf("purchase: %w", NewInsufficientStock(nil))

	de := ToDomainError(wrapped)
	if de.Code != CodeInsufficientStock {
		t.Fatalf("expected %s, got %s", CodeInsufficientStock, de.Code)
	}
	if de.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", de.HTTPStatus)
	}
}

func TestToDomainError_HidesUnknownCause(t *testing.T) {
	cause := errors.New("connection reset by peer")

	de := ToDomainError(cause)
	if de.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", de.HTTPStatus)
	}
	if de.Message != "internal server error" {
		t.Fatalf("internal detail leaked into message: %q", de.Message)
	}
	if !errors.Is(de, cause) {
		t.Fatalf("cause should stay reachable for logging")
	}
}

func TestTaxonomyStatuses(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"validation":  {NewValidationError("bad", nil), http.StatusBadRequest},
		"duplicate":   {NewDuplicateEmail(), http.StatusBadRequest},
		"credentials": {NewInvalidCredentials(), http.StatusUnauthorized},
		"unauth":      {NewUnauthorized("missing"), http.StatusUnauthorized},
		"forbidden":   {NewForbidden("no"), http.StatusForbidden},
		"not found":   {NewNotFound("sweet", nil), http.StatusNotFound},
		"stock":       {NewInsufficientStock(nil), http.StatusBadRequest},
		"internal":    {NewInternalError(errors.New("x")), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		if got := ToDomainError(tc.err).HTTPStatus; got != tc.status {
			t.Errorf("%s: expected %d, got %d", name, tc.status, got)
		}
	}
}

func TestHasCode(t *testing.T) {
	if !HasCode(fmt.Errorf("x: %w", NewForbidden("no")), CodeForbidden) {
		t.Fatalf("expected wrapped forbidden to match")
	}
	if HasCode(errors.New("plain"), CodeForbidden) {
		t.Fatalf("plain error should not match")
	}
}

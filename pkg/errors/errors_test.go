package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestReconcilerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
		expectHTTP int
	}{
		{
			name:       "not found error",
			category:   CategoryNotFound,
			code:       CodeMatchNotFound,
			message:    "match not found",
			cause:      nil,
			expectCode: 2,
			expectHTTP: http.StatusNotFound,
		},
		{
			name:       "validation error",
			category:   CategoryValidation,
			code:       CodeInvalidAmount,
			message:    "invalid amount",
			cause:      errors.New("negative"),
			expectCode: 3,
			expectHTTP: http.StatusBadRequest,
		},
		{
			name:       "conflict error",
			category:   CategoryConflict,
			code:       CodeIdempotencyKeyReused,
			message:    "key reused",
			cause:      nil,
			expectCode: 5,
			expectHTTP: http.StatusConflict,
		},
		{
			name:       "storage error",
			category:   CategoryStorage,
			code:       CodeQueryFailed,
			message:    "query failed",
			cause:      errors.New("connection reset"),
			expectCode: 7,
			expectHTTP: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ReconcilerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.HTTPStatus() != tt.expectHTTP {
				t.Errorf("expected http status %d, got %d", tt.expectHTTP, err.HTTPStatus())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
		})
	}
}

func TestReconcilerErrorWithContext(t *testing.T) {
	err := New(CategoryNotFound, CodeInvoiceNotFound, "test error").
		WithContext("id", "inv-1").
		WithSuggestion("check id")

	if err.Context["id"] != "inv-1" {
		t.Errorf("expected id context 'inv-1', got %v", err.Context["id"])
	}

	expected := "test error (suggestion: check id)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("NotFoundError", func(t *testing.T) {
		err := NotFoundError(CodeMatchNotFound, "Match", "m-1")
		if err.Category != CategoryNotFound {
			t.Errorf("expected not_found category, got %s", err.Category)
		}
		if err.Message != "Match with ID m-1 not found" {
			t.Errorf("unexpected message %q", err.Message)
		}
	})

	t.Run("ConflictError", func(t *testing.T) {
		err := ConflictError("key-1")
		if err.Code != CodeIdempotencyKeyReused {
			t.Errorf("expected idempotency code, got %s", err.Code)
		}
		if err.Context["idempotency_key"] != "key-1" {
			t.Errorf("expected idempotency_key context, got %v", err.Context["idempotency_key"])
		}
	})

	t.Run("InvalidStateError", func(t *testing.T) {
		err := InvalidStateError(CodeMatchNotProposed, "Match", "m-1", "confirmed")
		if err.Category != CategoryInvalidState {
			t.Errorf("expected invalid_state category, got %s", err.Category)
		}
		if err.Context["state"] != "confirmed" {
			t.Errorf("expected state context, got %v", err.Context["state"])
		}
	})

	t.Run("ExternalError", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		err := ExternalError(CodeConnectionFailed, "http://scorer", cause)
		if err.Category != CategoryExternal {
			t.Errorf("expected external category, got %s", err.Category)
		}
		if !errors.Is(err, cause) {
			t.Error("expected external error to wrap its cause")
		}
	})
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("confirm: %w", InvalidStateError(CodeMatchNotProposed, "Match", "m-1", "confirmed"))

	if !IsInvalidState(wrapped) {
		t.Error("expected IsInvalidState through a wrapped chain")
	}
	if IsNotFound(wrapped) {
		t.Error("did not expect IsNotFound")
	}
	if IsConflict(errors.New("plain")) {
		t.Error("plain errors carry no category")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	if WrapIfNeeded(nil, CategoryInternal, CodeUnexpectedError, "x") != nil {
		t.Error("expected nil for nil error")
	}

	original := ConflictError("k")
	if got := WrapIfNeeded(original, CategoryInternal, CodeUnexpectedError, "x"); got != original {
		t.Error("expected existing ReconcilerError to be returned unchanged")
	}

	got := WrapIfNeeded(errors.New("boom"), CategoryStorage, CodeQueryFailed, "query")
	if got.Category != CategoryStorage {
		t.Errorf("expected storage category, got %s", got.Category)
	}
}

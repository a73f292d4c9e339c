package errors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryInvalidState  ErrorCategory = "invalid_state"
	CategoryExternal      ErrorCategory = "external"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStorage       ErrorCategory = "storage"
	CategoryInternal      ErrorCategory = "internal"
	CategoryFile          ErrorCategory = "file"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Not found errors
	CodeInvoiceNotFound     ErrorCode = "invoice_not_found"
	CodeTransactionNotFound ErrorCode = "transaction_not_found"
	CodeMatchNotFound       ErrorCode = "match_not_found"

	// Conflict errors
	CodeIdempotencyKeyReused ErrorCode = "idempotency_key_reused"

	// Invalid state errors
	CodeMatchNotProposed ErrorCode = "match_not_proposed"

	// External errors
	CodeConnectionFailed   ErrorCode = "connection_failed"
	CodeTimeout            ErrorCode = "timeout"
	CodeServiceUnavailable ErrorCode = "service_unavailable"
	CodeMalformedResponse  ErrorCode = "malformed_response"

	// Validation errors
	CodeInvalidAmount   ErrorCode = "invalid_amount"
	CodeInvalidDate     ErrorCode = "invalid_date"
	CodeInvalidCurrency ErrorCode = "invalid_currency"
	CodeMissingField    ErrorCode = "missing_field"
	CodeInvalidFormat   ErrorCode = "invalid_format"
	CodeMissingColumn   ErrorCode = "missing_column"
	CodeEncodingError   ErrorCode = "encoding_error"

	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Storage errors
	CodeQueryFailed       ErrorCode = "query_failed"
	CodeTransactionFailed ErrorCode = "transaction_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryNotFound:
		return 2
	case CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryConflict, CategoryInvalidState:
		return 5
	case CategoryExternal:
		return 6
	case CategoryStorage, CategoryInternal:
		return 7
	case CategoryFile:
		return 8
	default:
		return 1
	}
}

// HTTPStatus returns the status code the transport layer reports for the error
func (e *ReconcilerError) HTTPStatus() int {
	switch e.Category {
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict, CategoryInvalidState:
		return http.StatusConflict
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// NotFoundError reports an entity that does not exist for the requesting tenant
func NotFoundError(code ErrorCode, entity, id string) *ReconcilerError {
	return New(CategoryNotFound, code, fmt.Sprintf("%s with ID %s not found", entity, id)).
		WithSuggestion("check the identifier and the tenant it belongs to").
		WithContext("entity", entity).
		WithContext("id", id)
}

// ConflictError reports an idempotency key reused with a different payload
func ConflictError(key string) *ReconcilerError {
	return New(CategoryConflict, CodeIdempotencyKeyReused, "idempotency key already used with different payload").
		WithSuggestion("use a new idempotency key for a different batch").
		WithContext("idempotency_key", key)
}

// InvalidStateError reports a state transition attempted from the wrong state
func InvalidStateError(code ErrorCode, entity, id, state string) *ReconcilerError {
	return New(CategoryInvalidState, code, fmt.Sprintf("%s %s is not in proposed status", entity, id)).
		WithContext("entity", entity).
		WithContext("id", id).
		WithContext("state", state)
}

// ExternalError creates an error for a failed call to a remote collaborator
func ExternalError(code ErrorCode, endpoint string, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeConnectionFailed:
		message = fmt.Sprintf("connection failed to %s", endpoint)
	case CodeTimeout:
		message = fmt.Sprintf("timeout calling %s", endpoint)
	case CodeServiceUnavailable:
		message = fmt.Sprintf("service unavailable: %s", endpoint)
	case CodeMalformedResponse:
		message = fmt.Sprintf("malformed response from %s", endpoint)
	default:
		message = fmt.Sprintf("external call failed: %s", endpoint)
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryExternal, code, message)
	} else {
		result = New(CategoryExternal, code, message)
	}

	return result.WithContext("endpoint", endpoint)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "amounts must be non-negative decimal numbers (e.g., '12.34')"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use an RFC3339 timestamp or YYYY-MM-DD"
	case CodeInvalidCurrency:
		message = fmt.Sprintf("invalid currency in field '%s': %v", field, value)
		suggestion = "use an ISO 4217 currency code such as USD"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	default:
		message = fmt.Sprintf("file could not be read: %s", path)
		suggestion = "verify the file integrity and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("path", path)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion("check the config file and RECONCILER_* environment variables").
		WithContext("setting", setting).
		WithContext("value", value)
}

// StorageError wraps a persistence failure
func StorageError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeTransactionFailed:
		message = fmt.Sprintf("storage transaction failed during %s", operation)
	default:
		message = fmt.Sprintf("storage query failed during %s", operation)
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryStorage, code, message)
	} else {
		result = New(CategoryStorage, code, message)
	}

	return result.WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// Utility functions

// IsReconcilerError checks if an error is a ReconcilerError
func IsReconcilerError(err error) bool {
	_, ok := err.(*ReconcilerError)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// HasCategory reports whether err carries a ReconcilerError of the given category
func HasCategory(err error, category ErrorCategory) bool {
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr.Category == category
	}
	return false
}

func IsNotFound(err error) bool     { return HasCategory(err, CategoryNotFound) }
func IsConflict(err error) bool     { return HasCategory(err, CategoryConflict) }
func IsInvalidState(err error) bool { return HasCategory(err, CategoryInvalidState) }

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}

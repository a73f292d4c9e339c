package errors

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ParseContext locates a problem inside an uploaded statement file
type ParseContext struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   string `json:"column"`
	Value    string `json:"value"`
	Expected string `json:"expected,omitempty"`
}

// EnhancedParseError is a validation error pinned to a file position
type EnhancedParseError struct {
	*ReconcilerError
	Context     *ParseContext `json:"context"`
	Recoverable bool          `json:"recoverable"`
	Examples    []string      `json:"examples,omitempty"`
}

// Error implements the error interface with the location appended
func (e *EnhancedParseError) Error() string {
	parts := []string{e.ReconcilerError.Error()}

	if e.Context != nil {
		location := fmt.Sprintf("at %s", filepath.Base(e.Context.File))
		if e.Context.Line > 0 {
			location += fmt.Sprintf(":%d", e.Context.Line)
		}
		if e.Context.Column != "" {
			location += fmt.Sprintf(" column '%s'", e.Context.Column)
		}
		parts = append(parts, location)
	}

	return strings.Join(parts, " ")
}

// Unwrap exposes the embedded ReconcilerError to errors.As
func (e *EnhancedParseError) Unwrap() error {
	return e.ReconcilerError
}

// GetDetailedError returns a multi-line description for terminal output
func (e *EnhancedParseError) GetDetailedError() string {
	lines := []string{fmt.Sprintf("ERROR: %s", e.Message)}

	if e.Context != nil {
		lines = append(lines, fmt.Sprintf("  → File: %s", e.Context.File))
		if e.Context.Line > 0 {
			lines = append(lines, fmt.Sprintf("  → Line: %d", e.Context.Line))
		}
		if e.Context.Column != "" {
			lines = append(lines, fmt.Sprintf("  → Column: %s", e.Context.Column))
		}
		if e.Context.Value != "" {
			lines = append(lines, fmt.Sprintf("  → Value: '%s'", e.Context.Value))
		}
		if e.Context.Expected != "" {
			lines = append(lines, fmt.Sprintf("  → Expected: %s", e.Context.Expected))
		}
	}

	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  → Suggestion: %s", e.Suggestion))
	}

	if len(e.Examples) > 0 {
		lines = append(lines, "  → Examples:")
		for _, example := range e.Examples {
			lines = append(lines, fmt.Sprintf("    • %s", example))
		}
	}

	return strings.Join(lines, "\n")
}

// NewEnhancedParseError creates a located validation error
func NewEnhancedParseError(code ErrorCode, context *ParseContext, message string, cause error) *EnhancedParseError {
	var base *ReconcilerError
	if cause != nil {
		base = Wrap(cause, CategoryValidation, code, message)
	} else {
		base = New(CategoryValidation, code, message)
	}

	if context != nil {
		base.WithContext("file", context.File).
			WithContext("line", context.Line).
			WithContext("column", context.Column).
			WithContext("value", context.Value)
	}

	return &EnhancedParseError{
		ReconcilerError: base,
		Context:         context,
		Recoverable:     true,
	}
}

// WithExamples adds example values to help fix the error
func (e *EnhancedParseError) WithExamples(examples ...string) *EnhancedParseError {
	e.Examples = examples
	return e
}

// WithSuggestion adds a suggestion and returns the EnhancedParseError
func (e *EnhancedParseError) WithSuggestion(suggestion string) *EnhancedParseError {
	e.ReconcilerError.WithSuggestion(suggestion)
	return e
}

// InvalidAmountError reports an amount that is not a non-negative decimal
func InvalidAmountError(file string, line int, column string, value string) *EnhancedParseError {
	context := &ParseContext{
		File:     file,
		Line:     line,
		Column:   column,
		Value:    value,
		Expected: "non-negative decimal number",
	}

	return NewEnhancedParseError(CodeInvalidAmount, context, "invalid amount", nil).
		WithExamples("12.34", "1250.50", "0").
		WithSuggestion("remove currency symbols and use a plain decimal")
}

// InvalidDateError reports an unparseable posting date
func InvalidDateError(file string, line int, column string, value string) *EnhancedParseError {
	context := &ParseContext{
		File:     file,
		Line:     line,
		Column:   column,
		Value:    value,
		Expected: "RFC3339 timestamp or YYYY-MM-DD",
	}

	return NewEnhancedParseError(CodeInvalidDate, context, "invalid date format", nil).
		WithExamples("2024-01-15", "2024-01-15T09:30:00Z").
		WithSuggestion("use YYYY-MM-DD or a full RFC3339 timestamp")
}

// InvalidCurrencyError reports a code that is not ISO 4217
func InvalidCurrencyError(file string, line int, column string, value string) *EnhancedParseError {
	context := &ParseContext{
		File:     file,
		Line:     line,
		Column:   column,
		Value:    value,
		Expected: "ISO 4217 currency code",
	}

	return NewEnhancedParseError(CodeInvalidCurrency, context, "unknown currency", nil).
		WithExamples("USD", "EUR", "IDR").
		WithSuggestion("leave the column empty to default to USD")
}

// MissingColumnError reports required header columns that are absent
func MissingColumnError(file string, expectedColumns []string, actualColumns []string) *EnhancedParseError {
	missing := findMissingColumns(expectedColumns, actualColumns)

	context := &ParseContext{
		File:     file,
		Line:     1,
		Expected: fmt.Sprintf("columns: %s", strings.Join(expectedColumns, ", ")),
	}

	err := NewEnhancedParseError(CodeMissingColumn, context,
		fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")), nil).
		WithSuggestion("add the missing columns to the CSV header")
	err.Recoverable = false
	return err
}

// EmptyValueError reports an empty required cell
func EmptyValueError(file string, line int, column string) *EnhancedParseError {
	context := &ParseContext{
		File:     file,
		Line:     line,
		Column:   column,
		Expected: "non-empty value",
	}

	return NewEnhancedParseError(CodeMissingField, context, "required field is empty", nil).
		WithSuggestion("provide a value for this required field")
}

// EncodingError reports a file that is not valid UTF-8
func EncodingError(file string, line int, cause error) *EnhancedParseError {
	context := &ParseContext{
		File: file,
		Line: line,
	}

	err := NewEnhancedParseError(CodeEncodingError, context, "file encoding error", cause).
		WithSuggestion("save the file in UTF-8 encoding")
	err.Recoverable = false
	return err
}

// ParseErrorCollector gathers row errors until a limit is reached
type ParseErrorCollector struct {
	errors    []*EnhancedParseError
	maxErrors int
}

// NewParseErrorCollector creates a collector. A maxErrors of zero keeps
// everything.
func NewParseErrorCollector(maxErrors int) *ParseErrorCollector {
	return &ParseErrorCollector{maxErrors: maxErrors}
}

// Add records err and reports whether parsing should continue
func (c *ParseErrorCollector) Add(err *EnhancedParseError) bool {
	if err == nil {
		return true
	}

	c.errors = append(c.errors, err)

	if c.maxErrors > 0 && len(c.errors) >= c.maxErrors {
		return false
	}
	return err.Recoverable
}

// HasErrors returns true if any errors have been collected
func (c *ParseErrorCollector) HasErrors() bool {
	return len(c.errors) > 0
}

// GetErrors returns all collected errors
func (c *ParseErrorCollector) GetErrors() []*EnhancedParseError {
	return c.errors
}

// CountByCode tallies collected errors per code
func (c *ParseErrorCollector) CountByCode() map[ErrorCode]int {
	counts := make(map[ErrorCode]int)
	for _, err := range c.errors {
		counts[err.Code]++
	}
	return counts
}

// Err folds the collected errors into one. The first error carries the
// category so callers can still branch on it.
func (c *ParseErrorCollector) Err() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	}

	first := c.errors[0]
	return Wrap(first, CategoryValidation, first.Code,
		fmt.Sprintf("%d rows failed to parse (%s)", len(c.errors), summarizeCodes(c.CountByCode()))).
		WithSuggestion(first.Suggestion)
}

func summarizeCodes(counts map[ErrorCode]int) string {
	parts := make([]string, 0, len(counts))
	for code, n := range counts {
		parts = append(parts, fmt.Sprintf("%s: %d", code, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func findMissingColumns(expected, actual []string) []string {
	actualSet := make(map[string]bool)
	for _, col := range actual {
		actualSet[strings.ToLower(strings.TrimSpace(col))] = true
	}

	var missing []string
	for _, col := range expected {
		if !actualSet[strings.ToLower(strings.TrimSpace(col))] {
			missing = append(missing, col)
		}
	}

	return missing
}

// FormatParseErrorsForUser renders parse errors for the terminal, showing the
// first few in detail
func FormatParseErrorsForUser(errs []*EnhancedParseError) string {
	if len(errs) == 0 {
		return "No parse errors"
	}

	if len(errs) == 1 {
		return errs[0].GetDetailedError()
	}

	const maxDetailed = 3

	lines := []string{fmt.Sprintf("Found %d parse errors:", len(errs))}
	for i, err := range errs {
		if i == maxDetailed {
			lines = append(lines, "", fmt.Sprintf("... and %d more", len(errs)-maxDetailed))
			break
		}
		lines = append(lines, "", err.GetDetailedError())
	}

	return strings.Join(lines, "\n")
}

package parsers

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"invoice-reconciliation-service/internal/importer"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order after the format's own layout
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// StatementParser turns statement rows into import input
type StatementParser struct {
	*BaseParser
	format *StatementFormat
}

// NewStatementParser creates a parser for the given format
func NewStatementParser(format *StatementFormat, config *ParseConfig) (*StatementParser, error) {
	if format == nil {
		format = StandardFormat
	}
	if err := format.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "statement_format", format.Name, err)
	}

	return &StatementParser{
		BaseParser: NewBaseParser(config),
		format:     format,
	}, nil
}

// Format returns the statement format in use
func (sp *StatementParser) Format() *StatementFormat {
	return sp.format
}

// ParseFile parses a statement file from disk
func (sp *StatementParser) ParseFile(ctx context.Context, filePath string) ([]importer.TransactionInput, *ParseStats, error) {
	file, err := sp.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return sp.Parse(ctx, file, filePath)
}

// Parse reads every row from r. Row errors are collected; the returned error
// is non-nil when any row failed or the file itself is unusable.
func (sp *StatementParser) Parse(ctx context.Context, r io.Reader, source string) ([]importer.TransactionInput, *ParseStats, error) {
	op := logger.NewOperationLogger("parse_statement", sp.logger).
		WithField("source", source).
		WithField("format", sp.format.Name)

	state := newParseState(ctx, source)
	reader := sp.newReader(r, sp.format.Delimiter)
	stats := &ParseStats{}
	collector := errors.NewParseErrorCollector(sp.config.MaxErrors)

	columns := []string{
		sp.format.GetColumnName("external_id"),
		sp.format.GetColumnName("posted_at"),
		sp.format.GetColumnName("amount"),
		sp.format.GetColumnName("currency"),
		sp.format.GetColumnName("description"),
	}
	if err := sp.readHeaders(reader, state, columns, sp.format.RequiredColumns()); err != nil {
		op.Error(err, "Statement header rejected")
		return nil, stats, err
	}

	var inputs []importer.TransactionInput
	for {
		record, err := sp.readRecord(reader, state)
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *errors.EnhancedParseError
			if !stderrors.As(err, &parseErr) {
				op.Error(err, "Statement parsing aborted")
				return nil, stats, err
			}
			if !collector.Add(parseErr) {
				break
			}
			continue
		}

		stats.RecordsParsed++
		input, parseErr := sp.parseRecord(record, state)
		if parseErr != nil {
			if !collector.Add(parseErr) {
				break
			}
			continue
		}

		stats.RecordsValid++
		inputs = append(inputs, input)
	}

	stats.TotalLines = state.lineNumber
	stats.Errors = collector.GetErrors()

	if collector.HasErrors() {
		err := collector.Err()
		op.WithField("errors", len(stats.Errors)).Error(err, "Statement has invalid rows")
		return inputs, stats, err
	}
	if len(inputs) == 0 {
		err := errors.EmptyValueError(source, state.lineNumber, "rows").
			WithSuggestion("the file has a header but no transactions")
		op.Error(err, "Statement is empty")
		return nil, stats, err
	}

	op.WithField("records", stats.RecordsValid).Success("Statement parsed")
	return inputs, stats, nil
}

func (sp *StatementParser) parseRecord(record []string, state *parseState) (importer.TransactionInput, *errors.EnhancedParseError) {
	var input importer.TransactionInput
	line := state.lineNumber

	postedCol := sp.format.GetColumnName("posted_at")
	postedRaw := fieldValue(record, state, postedCol)
	if postedRaw == "" {
		return input, errors.EmptyValueError(state.source, line, postedCol)
	}
	postedAt, err := sp.parseDate(postedRaw)
	if err != nil {
		return input, errors.InvalidDateError(state.source, line, postedCol, postedRaw)
	}

	amountCol := sp.format.GetColumnName("amount")
	amountRaw := fieldValue(record, state, amountCol)
	if amountRaw == "" {
		return input, errors.EmptyValueError(state.source, line, amountCol)
	}
	amount, err := parseAmount(amountRaw, sp.format.DecimalComma)
	if err != nil || amount.IsNegative() {
		return input, errors.InvalidAmountError(state.source, line, amountCol, amountRaw)
	}

	currencyCol := sp.format.GetColumnName("currency")
	currency := strings.ToUpper(fieldValue(record, state, currencyCol))
	if currency != "" && !importer.IsKnownCurrency(currency) {
		return input, errors.InvalidCurrencyError(state.source, line, currencyCol, currency)
	}

	input = importer.TransactionInput{
		ExternalID:  optional(fieldValue(record, state, sp.format.GetColumnName("external_id"))),
		PostedAt:    postedAt,
		Amount:      amount,
		Currency:    currency,
		Description: optional(fieldValue(record, state, sp.format.GetColumnName("description"))),
	}
	return input, nil
}

func (sp *StatementParser) parseDate(s string) (time.Time, error) {
	if sp.format.DateFormat != "" {
		if t, err := time.Parse(sp.format.DateFormat, s); err == nil {
			return t.UTC(), nil
		}
	}

	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// parseAmount accepts plain decimals with optional thousands separators.
// With decimalComma the roles of '.' and ',' swap.
func parseAmount(s string, decimalComma bool) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	if decimalComma {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	return decimal.NewFromString(cleaned)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

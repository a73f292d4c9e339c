// Package parsers reads bank statement CSV exports into bulk import input.
//
// Real statement files vary: delimiters, header names and date layouts differ
// between banks. A StatementFormat names the columns and date layout, and the
// StatementParser turns each data row into an importer.TransactionInput,
// collecting located errors for every bad row instead of stopping at the first.
//
// Example usage:
//
//	parser, err := parsers.NewStatementParser(parsers.StandardFormat, nil)
//	inputs, stats, err := parser.ParseFile(ctx, "statement.csv")
package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// ParseConfig holds reader settings shared by every format
type ParseConfig struct {
	HasHeader        bool
	Comment          rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
	MaxFieldSize     int
	ValidateEncoding bool
	MaxErrors        int
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:        true,
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
		MaxFieldSize:     64 * 1024,
		ValidateEncoding: true,
		MaxErrors:        100,
	}
}

// BaseParser provides common CSV parsing functionality
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	log := logger.GetGlobalLogger().WithComponent("statement_parser")
	log.WithFields(logger.Fields{
		"has_header":        config.HasHeader,
		"validate_encoding": config.ValidateEncoding,
		"max_field_size":    config.MaxFieldSize,
	}).Debug("Created base parser")

	return &BaseParser{
		config: config,
		logger: log,
	}
}

// parseState tracks position and headers while reading one source
type parseState struct {
	source     string
	lineNumber int
	headers    []string
	headerMap  map[string]int
	ctx        context.Context
}

func newParseState(ctx context.Context, source string) *parseState {
	if ctx == nil {
		ctx = context.Background()
	}
	return &parseState{
		source:    source,
		headerMap: make(map[string]int),
		ctx:       ctx,
	}
}

// columnIndex returns the index of a column by name, or -1 if not found
func (ps *parseState) columnIndex(name string) int {
	if index, exists := ps.headerMap[name]; exists {
		return index
	}

	lowerName := strings.ToLower(name)
	for header, index := range ps.headerMap {
		if strings.ToLower(header) == lowerName {
			return index
		}
	}

	return -1
}

// OpenFile opens a CSV file for reading
func (bp *BaseParser) OpenFile(filePath string) (*os.File, error) {
	bp.logger.WithField("file_path", filePath).Debug("Opening CSV file")

	file, err := os.Open(filePath)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open CSV file")

		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	return file, nil
}

// newReader configures a csv.Reader for the given delimiter
func (bp *BaseParser) newReader(r io.Reader, delimiter rune) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.Comment = bp.config.Comment
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false
	return reader
}

// readHeaders reads the header row, or synthesizes it when the file has none
func (bp *BaseParser) readHeaders(reader *csv.Reader, state *parseState, columns []string, required []string) error {
	if !bp.config.HasHeader {
		state.headers = append([]string(nil), columns...)
		bp.buildHeaderMap(state)
		return nil
	}

	headers, err := reader.Read()
	if err == io.EOF {
		return errors.EmptyValueError(state.source, 1, "header").
			WithSuggestion("ensure the file contains a header row and data rows")
	}
	if err != nil {
		return errors.NewEnhancedParseError(errors.CodeInvalidFormat,
			&errors.ParseContext{File: state.source, Line: 1, Column: "header"},
			"unreadable header row", err).
			WithSuggestion("check the delimiter and that the file is a valid CSV")
	}

	state.lineNumber++
	state.headers = cleanHeaders(headers)
	bp.buildHeaderMap(state)

	var missing []string
	for _, name := range required {
		if state.columnIndex(name) == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		bp.logger.WithFields(logger.Fields{
			"missing_headers":   missing,
			"available_headers": state.headers,
		}).Error("Required headers are missing")
		return errors.MissingColumnError(state.source, required, state.headers)
	}

	bp.logger.WithField("headers", state.headers).Debug("Successfully read headers")
	return nil
}

func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		// a UTF-8 BOM sticks to the first header of spreadsheet exports
		cleaned[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}
	return cleaned
}

func (bp *BaseParser) buildHeaderMap(state *parseState) {
	state.headerMap = make(map[string]int, len(state.headers))
	for i, header := range state.headers {
		state.headerMap[header] = i
	}
}

// readRecord returns the next non-empty record, or io.EOF
func (bp *BaseParser) readRecord(reader *csv.Reader, state *parseState) ([]string, error) {
	for {
		if err := state.ctx.Err(); err != nil {
			return nil, errors.InternalError(errors.CodeUnexpectedError, "csv_parsing", err)
		}

		record, err := reader.Read()
		if err == io.EOF {
			return nil, err
		}
		state.lineNumber++
		if err != nil {
			return nil, errors.NewEnhancedParseError(errors.CodeInvalidFormat,
				&errors.ParseContext{File: state.source, Line: state.lineNumber},
				"malformed CSV row", err)
		}

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}

		for i, field := range record {
			if bp.config.ValidateEncoding && !utf8.ValidString(field) {
				return nil, errors.EncodingError(state.source, state.lineNumber,
					fmt.Errorf("invalid UTF-8 in column %d", i+1))
			}
			if bp.config.MaxFieldSize > 0 && len(field) > bp.config.MaxFieldSize {
				return nil, errors.NewEnhancedParseError(errors.CodeInvalidFormat,
					&errors.ParseContext{File: state.source, Line: state.lineNumber, Column: columnName(state, i)},
					fmt.Sprintf("field exceeds maximum size of %d bytes", bp.config.MaxFieldSize), nil)
			}
		}

		return record, nil
	}
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func columnName(state *parseState, index int) string {
	if index < len(state.headers) {
		return state.headers[index]
	}
	return fmt.Sprintf("column_%d", index+1)
}

// fieldValue returns the trimmed value of a named column; absent columns and
// short rows yield an empty string
func fieldValue(record []string, state *parseState, name string) string {
	if name == "" {
		return ""
	}
	index := state.columnIndex(name)
	if index == -1 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

// ParseStats summarizes one parse run
type ParseStats struct {
	TotalLines    int
	RecordsParsed int
	RecordsValid  int
	Errors        []*errors.EnhancedParseError
}

// HasErrors returns true if any row failed
func (ps *ParseStats) HasErrors() bool {
	return len(ps.Errors) > 0
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d lines, %d records (%d valid), %d errors",
		ps.TotalLines, ps.RecordsParsed, ps.RecordsValid, len(ps.Errors))
}

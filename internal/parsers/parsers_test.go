package parsers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"invoice-reconciliation-service/pkg/errors"
)

// Helper function to create temporary CSV file
func createTempCSVFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestDefaultParseConfig(t *testing.T) {
	config := DefaultParseConfig()

	if !config.HasHeader {
		t.Error("Expected HasHeader to be true")
	}
	if !config.SkipEmptyRows {
		t.Error("Expected SkipEmptyRows to be true")
	}
	if config.MaxErrors <= 0 {
		t.Errorf("Expected a positive error limit, got %d", config.MaxErrors)
	}
}

func TestStatementFormat_Validate(t *testing.T) {
	tests := []struct {
		name    string
		format  StatementFormat
		wantErr bool
	}{
		{name: "standard", format: *StandardFormat},
		{name: "missing name", format: StatementFormat{PostedAtColumn: "d", AmountColumn: "a", Delimiter: ','}, wantErr: true},
		{name: "missing amount", format: StatementFormat{Name: "x", PostedAtColumn: "d", Delimiter: ','}, wantErr: true},
		{name: "missing delimiter", format: StatementFormat{Name: "x", PostedAtColumn: "d", AmountColumn: "a"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetStatementFormat(t *testing.T) {
	tests := []struct {
		name string
		want *StatementFormat
	}{
		{"", StandardFormat},
		{"Standard", StandardFormat},
		{" european ", EuropeanFormat},
		{"us", USFormat},
		{"unknown", nil},
	}

	for _, tt := range tests {
		if got := GetStatementFormat(tt.name); got != tt.want {
			t.Errorf("GetStatementFormat(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
	if len(ListStatementFormats()) != 3 {
		t.Error("Expected three predefined formats")
	}
}

func TestGetColumnName_Alias(t *testing.T) {
	format := *StandardFormat
	format.ColumnAliases = map[string]string{"description": "narrative"}

	if got := format.GetColumnName("description"); got != "narrative" {
		t.Errorf("Expected alias 'narrative', got %q", got)
	}
	if got := format.GetColumnName("amount"); got != "amount" {
		t.Errorf("Expected 'amount', got %q", got)
	}
}

func TestParse_Standard(t *testing.T) {
	content := "\ufeffexternal_id,posted_at,amount,currency,description\n" +
		"BANK-1,2024-01-02,100.00,usd,Payment Acme Corp\n" +
		"\n" +
		",2024-01-03T10:30:00Z,\"1,250.50\",,\n"

	parser, err := NewStatementParser(StandardFormat, nil)
	if err != nil {
		t.Fatalf("NewStatementParser failed: %v", err)
	}

	inputs, stats, err := parser.Parse(context.Background(), strings.NewReader(content), "inline.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(inputs) != 2 {
		t.Fatalf("Expected 2 inputs, got %d", len(inputs))
	}
	if stats.RecordsValid != 2 || stats.HasErrors() {
		t.Errorf("Unexpected stats: %s", stats)
	}

	first := inputs[0]
	if first.ExternalID == nil || *first.ExternalID != "BANK-1" {
		t.Errorf("Expected external id BANK-1, got %v", first.ExternalID)
	}
	if first.Currency != "USD" {
		t.Errorf("Expected currency USD, got %q", first.Currency)
	}
	if !first.PostedAt.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected posted at %v", first.PostedAt)
	}

	second := inputs[1]
	if second.ExternalID != nil || second.Description != nil {
		t.Error("Empty optional columns should be nil")
	}
	if second.Currency != "" {
		t.Errorf("Empty currency should stay empty for the importer default, got %q", second.Currency)
	}
	if second.Amount.String() != "1250.5" {
		t.Errorf("Expected amount 1250.5, got %s", second.Amount)
	}
}

func TestParse_European(t *testing.T) {
	content := "reference;value_date;amount;currency;details\n" +
		"R-9;31.01.2024;1.234,56;EUR;Rechnung 42\n"

	parser, err := NewStatementParser(EuropeanFormat, nil)
	if err != nil {
		t.Fatalf("NewStatementParser failed: %v", err)
	}

	inputs, _, err := parser.Parse(context.Background(), strings.NewReader(content), "eu.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if inputs[0].Amount.String() != "1234.56" {
		t.Errorf("Expected 1234.56, got %s", inputs[0].Amount)
	}
	if inputs[0].PostedAt.Day() != 31 || inputs[0].PostedAt.Month() != time.January {
		t.Errorf("Unexpected date %v", inputs[0].PostedAt)
	}
}

func TestParse_RowErrors(t *testing.T) {
	tests := []struct {
		name string
		row  string
		code errors.ErrorCode
	}{
		{name: "bad amount", row: "2024-01-02,abc,USD", code: errors.CodeInvalidAmount},
		{name: "negative amount", row: "2024-01-02,-5,USD", code: errors.CodeInvalidAmount},
		{name: "bad date", row: "yesterday,5,USD", code: errors.CodeInvalidDate},
		{name: "empty date", row: ",5,USD", code: errors.CodeMissingField},
		{name: "unknown currency", row: "2024-01-02,5,ZZZ", code: errors.CodeInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "posted_at,amount,currency\n2024-01-01,1,USD\n" + tt.row + "\n"
			parser, _ := NewStatementParser(StandardFormat, nil)

			inputs, stats, err := parser.Parse(context.Background(), strings.NewReader(content), "rows.csv")
			if err == nil {
				t.Fatal("Expected an error")
			}
			if len(inputs) != 1 {
				t.Errorf("Valid rows should still be returned, got %d", len(inputs))
			}
			if len(stats.Errors) != 1 {
				t.Fatalf("Expected 1 row error, got %d", len(stats.Errors))
			}
			if stats.Errors[0].Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, stats.Errors[0].Code)
			}
			if stats.Errors[0].Context.Line != 3 {
				t.Errorf("Expected error on line 3, got %d", stats.Errors[0].Context.Line)
			}
			if !errors.HasCategory(err, errors.CategoryValidation) {
				t.Errorf("Expected validation category, got %v", err)
			}
		})
	}
}

func TestParse_MissingColumns(t *testing.T) {
	parser, _ := NewStatementParser(StandardFormat, nil)

	_, _, err := parser.Parse(context.Background(), strings.NewReader("date,value\n2024-01-01,1\n"), "bad.csv")

	rerr, ok := errors.AsReconcilerError(err)
	if !ok || rerr.Code != errors.CodeMissingColumn {
		t.Fatalf("Expected missing column error, got %v", err)
	}
}

func TestParse_EmptyFile(t *testing.T) {
	parser, _ := NewStatementParser(StandardFormat, nil)

	tests := []struct {
		name    string
		content string
	}{
		{name: "no header", content: ""},
		{name: "header only", content: "posted_at,amount\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parser.Parse(context.Background(), strings.NewReader(tt.content), "empty.csv")
			if !errors.HasCategory(err, errors.CategoryValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestParse_ErrorLimit(t *testing.T) {
	config := DefaultParseConfig()
	config.MaxErrors = 2
	parser, _ := NewStatementParser(StandardFormat, config)

	content := "posted_at,amount\nx,1\ny,1\nz,1\n2024-01-01,1\n"
	_, stats, err := parser.Parse(context.Background(), strings.NewReader(content), "many.csv")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if len(stats.Errors) != 2 {
		t.Errorf("Expected parsing to stop at 2 errors, got %d", len(stats.Errors))
	}
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	parser, _ := NewStatementParser(StandardFormat, nil)
	_, _, err := parser.Parse(ctx, strings.NewReader("posted_at,amount\n2024-01-01,1\n"), "c.csv")
	if !errors.HasCategory(err, errors.CategoryInternal) {
		t.Errorf("Expected internal error on cancellation, got %v", err)
	}
}

func TestParseFile(t *testing.T) {
	path := createTempCSVFile(t, "posted_at,amount\n2024-01-01,10\n")
	parser, _ := NewStatementParser(nil, nil)

	inputs, _, err := parser.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(inputs) != 1 {
		t.Errorf("Expected 1 input, got %d", len(inputs))
	}

	_, _, err = parser.ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.HasCategory(err, errors.CategoryFile) {
		t.Errorf("Expected file error, got %v", err)
	}
}

func TestParse_NoHeader(t *testing.T) {
	config := DefaultParseConfig()
	config.HasHeader = false
	parser, _ := NewStatementParser(StandardFormat, config)

	inputs, _, err := parser.Parse(context.Background(),
		strings.NewReader("X-1,2024-01-01,10,EUR,Coffee\n"), "nohdr.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if *inputs[0].Description != "Coffee" || inputs[0].Currency != "EUR" {
		t.Errorf("Unexpected input %+v", inputs[0])
	}
}

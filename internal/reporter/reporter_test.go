package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/pkg/errors"

	"github.com/xuri/excelize/v2"
)

func sampleResult() *reconciler.ReconcileResult {
	return &reconciler.ReconcileResult{
		TenantID:             "tenant-1",
		OpenInvoices:         3,
		EligibleTransactions: 4,
		Duration:             1500 * time.Millisecond,
		Candidates: []models.MatchCandidate{
			{InvoiceID: "inv-b", BankTransactionID: "tx-1", Score: 95},
			{InvoiceID: "inv-a", BankTransactionID: "tx-2", Score: 70},
			{InvoiceID: "inv-c", BankTransactionID: "tx-3", Score: 50, Explanation: "amounts, dates"},
		},
	}
}

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{
			name:   "default config",
			config: nil,
		},
		{
			name:   "xlsx config",
			config: &ReportConfig{Format: FormatXLSX, TableMaxWidth: 80},
		},
		{
			name:        "invalid format",
			config:      &ReportConfig{Format: "invalid", TableMaxWidth: 120},
			expectError: true,
		},
		{
			name:        "table width too small",
			config:      &ReportConfig{Format: FormatConsole, TableMaxWidth: 30},
			expectError: true,
		},
		{
			name:        "negative row cap",
			config:      &ReportConfig{Format: FormatConsole, TableMaxWidth: 80, MaxConsoleRows: -1},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)

			if tt.expectError {
				if !errors.HasCategory(err, errors.CategoryConfiguration) {
					t.Errorf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if generator.GetConfiguration() == nil {
				t.Error("expected a configuration")
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{"console", FormatConsole, false},
		{" JSON ", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"xlsx", FormatXLSX, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if !FormatXLSX.Binary() || FormatCSV.Binary() {
		t.Error("only xlsx should be binary")
	}
}

func TestBuildReport(t *testing.T) {
	report := BuildReport(sampleResult(), false)
	s := report.Summary

	if s.Candidates != 3 || s.HighConfidence != 1 || s.MediumConfidence != 1 || s.LowConfidence != 1 {
		t.Errorf("unexpected breakdown: %+v", s)
	}
	if s.AverageScore < 71.66 || s.AverageScore > 71.67 {
		t.Errorf("expected average 71.67, got %f", s.AverageScore)
	}
	if report.Candidates[0].InvoiceID != "inv-b" {
		t.Error("score order should be kept by default")
	}

	sorted := BuildReport(sampleResult(), true)
	if sorted.Candidates[0].InvoiceID != "inv-a" {
		t.Errorf("expected inv-a first when sorting by invoice, got %s", sorted.Candidates[0].InvoiceID)
	}
}

func TestBuildReport_Empty(t *testing.T) {
	report := BuildReport(&reconciler.ReconcileResult{TenantID: "t"}, false)

	if report.Summary.Candidates != 0 || report.Summary.AverageScore != 0 {
		t.Errorf("unexpected summary for empty run: %+v", report.Summary)
	}
}

func TestGenerateReport_Console(t *testing.T) {
	config := DefaultReportConfig()
	config.MaxConsoleRows = 2
	generator, _ := NewReportGenerator(config)

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	out := buf.String()
	for _, section := range []string{"RECONCILIATION REPORT", "=== SUMMARY ===", "=== CONFIDENCE BREAKDOWN ===", "=== CANDIDATES ===", "tenant-1", "... and 1 more"} {
		if !strings.Contains(out, section) {
			t.Errorf("console output missing %q", section)
		}
	}
}

func TestGenerateReport_ConsoleEmpty(t *testing.T) {
	generator, _ := NewReportGenerator(nil)

	var buf bytes.Buffer
	if err := generator.GenerateReport(&reconciler.ReconcileResult{TenantID: "t"}, &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No candidate matches found.") {
		t.Error("expected empty-run message")
	}
}

func TestGenerateReport_JSON(t *testing.T) {
	generator, _ := NewReportGenerator(&ReportConfig{Format: FormatJSON, TableMaxWidth: 80})

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Summary.TenantID != "tenant-1" || len(decoded.Candidates) != 3 {
		t.Errorf("unexpected report: %+v", decoded.Summary)
	}
	if decoded.Candidates[0].BankTransactionID != "tx-1" {
		t.Error("candidate fields should survive encoding")
	}
}

func TestGenerateReport_CSV(t *testing.T) {
	tests := []struct {
		name      string
		headers   bool
		delimiter rune
		wantRows  int
	}{
		{name: "with headers", headers: true, delimiter: ',', wantRows: 4},
		{name: "semicolon without headers", headers: false, delimiter: ';', wantRows: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, _ := NewReportGenerator(&ReportConfig{
				Format:        FormatCSV,
				TableMaxWidth: 80,
				CSVHeaders:    tt.headers,
				CSVDelimiter:  tt.delimiter,
			})

			var buf bytes.Buffer
			if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
				t.Fatalf("GenerateReport failed: %v", err)
			}

			reader := csv.NewReader(&buf)
			reader.Comma = tt.delimiter
			rows, err := reader.ReadAll()
			if err != nil {
				t.Fatalf("invalid CSV: %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Fatalf("expected %d rows, got %d", tt.wantRows, len(rows))
			}

			last := rows[len(rows)-1]
			if last[1] != "inv-c" || last[3] != "50.00" || last[4] != "low" || last[5] != "amounts, dates" {
				t.Errorf("unexpected last row: %v", last)
			}
		})
	}
}

func TestGenerateReport_XLSX(t *testing.T) {
	generator, _ := NewReportGenerator(&ReportConfig{Format: FormatXLSX, TableMaxWidth: 80})

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("invalid workbook: %v", err)
	}
	defer f.Close()

	tenant, _ := f.GetCellValue(summarySheet, "B1")
	if tenant != "tenant-1" {
		t.Errorf("expected tenant in summary sheet, got %q", tenant)
	}

	rows, err := f.GetRows(candidatesSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header and 3 candidate rows, got %d", len(rows))
	}
	if rows[1][1] != "inv-b" || rows[1][4] != "high" {
		t.Errorf("unexpected first candidate row: %v", rows[1])
	}
}

func TestGenerateReport_NilResult(t *testing.T) {
	generator, _ := NewReportGenerator(nil)

	if err := generator.GenerateReport(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestWriteFile(t *testing.T) {
	generator, _ := NewReportGenerator(&ReportConfig{Format: FormatJSON, TableMaxWidth: 80})
	path := filepath.Join(t.TempDir(), "report.json")

	if err := generator.WriteFile(sampleResult(), path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !json.Valid(data) {
		t.Error("written report is not valid JSON")
	}

	err = generator.WriteFile(sampleResult(), filepath.Join(t.TempDir(), "missing", "report.json"))
	if !errors.HasCategory(err, errors.CategoryFile) {
		t.Errorf("expected file error, got %v", err)
	}
}

// Package reporter renders reconciliation runs for people and tools.
//
// Supported output formats:
//   - Console: human-readable summary and candidate table for a terminal
//   - JSON: structured data for programmatic consumption
//   - CSV: one row per candidate for spreadsheet import
//   - XLSX: a workbook with a summary sheet and a candidates sheet
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatJSON})
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"invoice-reconciliation-service/internal/explain"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/pkg/errors"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatXLSX:
		return true
	default:
		return false
	}
}

// Binary reports whether the format cannot be printed to a terminal
func (f OutputFormat) Binary() bool {
	return f == FormatXLSX
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// MaxConsoleRows caps the candidate table on the console; zero shows all
	MaxConsoleRows int  `json:"max_console_rows"`
	TableMaxWidth  int  `json:"table_max_width"`
	CSVDelimiter   rune `json:"csv_delimiter"`
	CSVHeaders     bool `json:"csv_headers"`
	SortByInvoice  bool `json:"sort_by_invoice"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		MaxConsoleRows: 50,
		TableMaxWidth:  120,
		CSVDelimiter:   ',',
		CSVHeaders:     true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.TableMaxWidth < 50 {
		return fmt.Errorf("table max width must be at least 50 characters, got %d", c.TableMaxWidth)
	}

	if c.MaxConsoleRows < 0 {
		return fmt.Errorf("max console rows cannot be negative, got %d", c.MaxConsoleRows)
	}

	return nil
}

// Summary condenses a run into counts
type Summary struct {
	TenantID             string        `json:"tenantId"`
	OpenInvoices         int           `json:"openInvoices"`
	EligibleTransactions int           `json:"eligibleTransactions"`
	Candidates           int           `json:"candidates"`
	HighConfidence       int           `json:"highConfidence"`
	MediumConfidence     int           `json:"mediumConfidence"`
	LowConfidence        int           `json:"lowConfidence"`
	AverageScore         float64       `json:"averageScore"`
	Duration             time.Duration `json:"duration"`
	GeneratedAt          time.Time     `json:"generatedAt"`
}

// Report is the structured form every output format renders
type Report struct {
	Summary    Summary                 `json:"summary"`
	Candidates []models.MatchCandidate `json:"candidates"`
}

// BuildReport summarizes a reconciliation result
func BuildReport(result *reconciler.ReconcileResult, sortByInvoice bool) *Report {
	candidates := make([]models.MatchCandidate, len(result.Candidates))
	copy(candidates, result.Candidates)

	if sortByInvoice {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].InvoiceID < candidates[j].InvoiceID
		})
	}

	summary := Summary{
		TenantID:             result.TenantID,
		OpenInvoices:         result.OpenInvoices,
		EligibleTransactions: result.EligibleTransactions,
		Candidates:           len(candidates),
		Duration:             result.Duration,
		GeneratedAt:          time.Now().UTC(),
	}

	var total float64
	for _, c := range candidates {
		total += c.Score
		score := c.Score
		switch explain.ConfidenceFor(&score) {
		case explain.ConfidenceHigh:
			summary.HighConfidence++
		case explain.ConfidenceMedium:
			summary.MediumConfidence++
		default:
			summary.LowConfidence++
		}
	}
	if len(candidates) > 0 {
		summary.AverageScore = total / float64(len(candidates))
	}

	return &Report{Summary: summary, Candidates: candidates}
}

// ReportGenerator generates reconciliation reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report", config.Format, err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport renders result to writer in the configured format
func (rg *ReportGenerator) GenerateReport(result *reconciler.ReconcileResult, writer io.Writer) error {
	if result == nil {
		return errors.InternalError(errors.CodeUnexpectedError, "generate report", fmt.Errorf("reconciliation result cannot be nil"))
	}

	report := BuildReport(result, rg.config.SortByInvoice)

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	case FormatXLSX:
		return rg.generateXLSXReport(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// WriteFile renders result into a new file at path
func (rg *ReportGenerator) WriteFile(result *reconciler.ReconcileResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		if os.IsPermission(err) {
			return errors.FileError(errors.CodeFilePermission, path, err)
		}
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	if err := rg.GenerateReport(result, file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	return nil
}

func (rg *ReportGenerator) generateConsoleReport(report *Report, writer io.Writer) error {
	s := report.Summary

	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Tenant:    %s\n", s.TenantID)
	fmt.Fprintf(writer, "Generated: %s\n", s.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Duration:  %v\n\n", s.Duration)

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Open Invoices:         %d\n", s.OpenInvoices)
	fmt.Fprintf(writer, "Eligible Transactions: %d\n", s.EligibleTransactions)
	fmt.Fprintf(writer, "Proposed Matches:      %d\n\n", s.Candidates)

	fmt.Fprintf(writer, "=== CONFIDENCE BREAKDOWN ===\n")
	fmt.Fprintf(writer, "High:   %d (%.1f%%)\n", s.HighConfidence, calculatePercentage(s.HighConfidence, s.Candidates))
	fmt.Fprintf(writer, "Medium: %d (%.1f%%)\n", s.MediumConfidence, calculatePercentage(s.MediumConfidence, s.Candidates))
	fmt.Fprintf(writer, "Low:    %d (%.1f%%)\n", s.LowConfidence, calculatePercentage(s.LowConfidence, s.Candidates))
	if s.Candidates > 0 {
		fmt.Fprintf(writer, "Average Score: %.2f\n", s.AverageScore)
	}
	fmt.Fprintf(writer, "\n")

	if len(report.Candidates) == 0 {
		fmt.Fprintf(writer, "No candidate matches found.\n")
		return nil
	}

	fmt.Fprintf(writer, "=== CANDIDATES ===\n")
	idWidth := (rg.config.TableMaxWidth - 12) / 2
	for i, c := range report.Candidates {
		if rg.config.MaxConsoleRows > 0 && i == rg.config.MaxConsoleRows {
			fmt.Fprintf(writer, "  ... and %d more\n", len(report.Candidates)-i)
			break
		}
		fmt.Fprintf(writer, "  %6.2f  %-*s  %s\n",
			c.Score,
			idWidth, truncate(c.InvoiceID, idWidth),
			truncate(c.BankTransactionID, idWidth))
	}

	return nil
}

func (rg *ReportGenerator) generateJSONReport(report *Report, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(report)
}

// candidateHeaders are shared by the CSV and XLSX outputs
var candidateHeaders = []string{
	"Rank",
	"Invoice_ID",
	"Bank_Transaction_ID",
	"Score",
	"Confidence",
	"Explanation",
}

func candidateRow(rank int, c models.MatchCandidate) []string {
	score := c.Score
	return []string{
		fmt.Sprint(rank),
		c.InvoiceID,
		c.BankTransactionID,
		fmt.Sprintf("%.2f", c.Score),
		string(explain.ConfidenceFor(&score)),
		c.Explanation,
	}
}

func (rg *ReportGenerator) generateCSVReport(report *Report, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(candidateHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for i, c := range report.Candidates {
		if err := csvWriter.Write(candidateRow(i+1, c)); err != nil {
			return fmt.Errorf("failed to write candidate record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// Helper methods

func calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func truncate(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

// ParseFormat resolves a user-supplied format name
func ParseFormat(name string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(name)))
	if !format.IsValid() {
		return "", errors.ValidationError(errors.CodeInvalidFormat, "output-format", name, nil).
			WithSuggestion("use one of: console, json, csv, xlsx")
	}
	return format, nil
}

package reporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet    = "Summary"
	candidatesSheet = "Candidates"
)

func (rg *ReportGenerator) generateXLSXReport(report *Report, writer io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the summary
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return fmt.Errorf("failed to create candidates sheet: %w", err)
	}

	s := report.Summary
	summaryRows := [][]interface{}{
		{"Tenant", s.TenantID},
		{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Open Invoices", s.OpenInvoices},
		{"Eligible Transactions", s.EligibleTransactions},
		{"Proposed Matches", s.Candidates},
		{"High Confidence", s.HighConfidence},
		{"Medium Confidence", s.MediumConfidence},
		{"Low Confidence", s.LowConfidence},
		{"Average Score", s.AverageScore},
	}
	for i, row := range summaryRows {
		cell := "A" + fmt.Sprint(i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	headers := make([]interface{}, len(candidateHeaders))
	for i, h := range candidateHeaders {
		headers[i] = h
	}
	if err := f.SetSheetRow(candidatesSheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write candidate headers: %w", err)
	}

	for i, c := range report.Candidates {
		row := []interface{}{i + 1, c.InvoiceID, c.BankTransactionID, c.Score}
		for _, v := range candidateRow(i+1, c)[4:] {
			row = append(row, v)
		}
		if err := f.SetSheetRow(candidatesSheet, "A"+fmt.Sprint(i+2), &row); err != nil {
			return fmt.Errorf("failed to write candidate row: %w", err)
		}
	}

	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

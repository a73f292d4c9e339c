package explain

import (
	"fmt"
	"strings"
	"time"

	"invoice-reconciliation-service/internal/models"

	"github.com/pkg/errors"
)

// SystemInstruction frames every backend request
const SystemInstruction = "You are a financial reconciliation assistant. " +
	"Provide clear, concise explanations of why invoices and bank transactions match."

var errEmptyResponse = errors.New("explanation backend returned an empty response")

func orNA(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "N/A"
	}
	return *s
}

// BuildPrompt renders the user prompt for a pair
func BuildPrompt(inv *models.Invoice, tx *models.BankTransaction, score *float64) string {
	invoiceDate := "N/A"
	if inv.InvoiceDate != nil {
		invoiceDate = inv.InvoiceDate.UTC().Format("2006-01-02")
	}

	scoreText := "N/A"
	if score != nil {
		scoreText = fmt.Sprintf("%.2f", *score)
	}

	var b strings.Builder
	b.WriteString("Explain why this invoice and bank transaction are likely a match:\n\n")
	b.WriteString("Invoice:\n")
	fmt.Fprintf(&b, "- Amount: %s %s\n", inv.Amount.StringFixed(2), inv.Currency)
	fmt.Fprintf(&b, "- Date: %s\n", invoiceDate)
	fmt.Fprintf(&b, "- Description: %s\n", orNA(inv.Description))
	fmt.Fprintf(&b, "- Invoice Number: %s\n\n", orNA(inv.InvoiceNumber))
	b.WriteString("Bank Transaction:\n")
	fmt.Fprintf(&b, "- Amount: %s %s\n", tx.Amount.StringFixed(2), tx.Currency)
	fmt.Fprintf(&b, "- Date: %s\n", tx.PostedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Description: %s\n\n", orNA(tx.Description))
	fmt.Fprintf(&b, "Match Score: %s\n\n", scoreText)
	b.WriteString("Provide a concise explanation (2-6 sentences) of why these items likely match.")

	return b.String()
}

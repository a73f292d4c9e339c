package explain

import (
	"fmt"
	"math"
	"strings"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
)

// InsufficientEvidence is returned when no scoring rule fires for the pair
const InsufficientEvidence = "Limited matching criteria found. Manual review recommended."

var signalStrategy = matcher.NewPointStrategy(nil)

// Deterministic builds an explanation from the pair's scoring signals. The
// score, when present, is always appended.
func Deterministic(inv *models.Invoice, tx *models.BankTransaction, score *float64) string {
	signals := signalStrategy.Score(inv, tx).Signals
	var parts []string

	switch signals.Amount {
	case matcher.AmountExact:
		parts = append(parts, fmt.Sprintf("The invoice amount (%s %s) exactly matches the transaction amount.",
			inv.Amount.StringFixed(2), inv.Currency))
	case matcher.AmountNear:
		parts = append(parts, fmt.Sprintf("The invoice amount (%s %s) is within 5%% of the transaction amount (%s %s).",
			inv.Amount.StringFixed(2), inv.Currency, tx.Amount.StringFixed(2), tx.Currency))
	}

	days := int(math.Round(signals.DayDifference))
	switch signals.Date {
	case matcher.DateClose:
		parts = append(parts, fmt.Sprintf("The invoice date and transaction date are within %d days of each other.", days))
	case matcher.DateLoose:
		parts = append(parts, fmt.Sprintf("The invoice date and transaction date are %d days apart, a loose date match.", days))
	}

	if signals.SharedTokens > 0 {
		parts = append(parts, fmt.Sprintf("The descriptions share %d common keyword(s), suggesting they refer to the same transaction.",
			signals.SharedTokens))
	}

	if len(parts) == 0 {
		parts = append(parts, InsufficientEvidence)
	}

	if score != nil {
		parts = append(parts, fmt.Sprintf("Overall match score: %.2f/100.", *score))
	}

	return strings.Join(parts, " ")
}

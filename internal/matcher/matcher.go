package matcher

import (
	"fmt"
	"math"

	"invoice-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Strategy scores a single invoice against a single bank transaction
type Strategy interface {
	Score(inv *models.Invoice, tx *models.BankTransaction) Result
}

// Signals records which scoring rules fired for a pair
type Signals struct {
	Amount           AmountMatch
	AmountDifference decimal.Decimal
	HasDates         bool
	DayDifference    float64
	Date             DateMatch
	SharedTokens     int
	TextPoints       float64
}

// Result is the outcome of scoring one pair
type Result struct {
	Score   float64
	Signals Signals
}

// Qualifies reports whether the pair scores high enough to be proposed
func (r Result) Qualifies() bool {
	return r.Score >= MinMatchScore
}

// Any reports whether at least one rule contributed to the score
func (s Signals) Any() bool {
	return s.Amount != AmountNone || s.Date != DateNone || s.SharedTokens > 0
}

// Reasons returns short human-readable reasons for the score
func (s Signals) Reasons() []string {
	var reasons []string

	switch s.Amount {
	case AmountExact:
		reasons = append(reasons, "Exact amount match")
	case AmountNear:
		reasons = append(reasons, "Amount within 5% tolerance")
	}

	days := int(math.Round(s.DayDifference))
	switch s.Date {
	case DateClose:
		reasons = append(reasons, fmt.Sprintf("Dates within %d day(s)", days))
	case DateLoose:
		reasons = append(reasons, fmt.Sprintf("Dates within %d day(s), loose match", days))
	}

	if s.SharedTokens > 0 {
		reasons = append(reasons, fmt.Sprintf("%d shared description keyword(s)", s.SharedTokens))
	}

	return reasons
}

// PointStrategy awards additive points per rule and caps the total at MaxScore
type PointStrategy struct {
	Config *ScoringConfig
}

// NewPointStrategy creates a point strategy; a nil config uses the defaults
func NewPointStrategy(config *ScoringConfig) *PointStrategy {
	if config == nil {
		config = DefaultScoringConfig()
	}
	return &PointStrategy{Config: config}
}

// Score implements Strategy
func (ps *PointStrategy) Score(inv *models.Invoice, tx *models.BankTransaction) Result {
	var signals Signals
	score := 0.0

	signals.Amount, signals.AmountDifference = ps.classifyAmount(inv.Amount, tx.Amount)
	switch signals.Amount {
	case AmountExact:
		score += ps.Config.ExactAmountPoints
	case AmountNear:
		score += ps.Config.NearAmountPoints
	}

	if inv.InvoiceDate != nil && !tx.PostedAt.IsZero() {
		signals.HasDates = true
		signals.DayDifference = DayDifference(*inv.InvoiceDate, tx.PostedAt)
		switch {
		case signals.DayDifference <= ps.Config.CloseDateDays:
			signals.Date = DateClose
			score += ps.Config.CloseDatePoints
		case signals.DayDifference <= ps.Config.LooseDateDays:
			signals.Date = DateLoose
			score += ps.Config.LooseDatePoints
		}
	}

	if inv.Description != nil && tx.Description != nil {
		signals.SharedTokens = SharedTokenCount(*inv.Description, *tx.Description)
		signals.TextPoints = math.Min(float64(signals.SharedTokens)*ps.Config.PointsPerSharedToken, ps.Config.MaxTextPoints)
		score += signals.TextPoints
	}

	return Result{Score: math.Min(score, MaxScore), Signals: signals}
}

// classifyAmount compares amounts exactly; the near ratio is taken against the
// absolute invoice amount and never applies to a zero invoice.
func (ps *PointStrategy) classifyAmount(invoiceAmount, txAmount decimal.Decimal) (AmountMatch, decimal.Decimal) {
	diff := invoiceAmount.Sub(txAmount).Abs()

	if diff.LessThan(ps.Config.ExactAmountTolerance) {
		return AmountExact, diff
	}

	base := invoiceAmount.Abs()
	if base.IsZero() {
		return AmountNone, diff
	}

	if diff.Div(base).LessThan(ps.Config.NearAmountRatio) {
		return AmountNear, diff
	}

	return AmountNone, diff
}

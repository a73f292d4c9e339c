package matcher

import (
	"math"

	"invoice-reconciliation-service/internal/models"
)

// stopWords are ignored when comparing descriptions by set ratio
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// RatioStrategy is the scoring service variant. Amounts use the same exact
// tolerance, the near window is inclusive, and descriptions score by the
// shared keywords over the larger of the two keyword sets.
type RatioStrategy struct {
	Config *ScoringConfig
}

// NewRatioStrategy creates a ratio strategy; a nil config uses the defaults
func NewRatioStrategy(config *ScoringConfig) *RatioStrategy {
	if config == nil {
		config = DefaultScoringConfig()
	}
	return &RatioStrategy{Config: config}
}

// Score implements Strategy
func (rs *RatioStrategy) Score(inv *models.Invoice, tx *models.BankTransaction) Result {
	var signals Signals
	score := 0.0

	diff := inv.Amount.Sub(tx.Amount).Abs()
	signals.AmountDifference = diff
	base := inv.Amount.Abs()
	switch {
	case diff.LessThan(rs.Config.ExactAmountTolerance):
		signals.Amount = AmountExact
		score += rs.Config.ExactAmountPoints
	case !base.IsZero() && diff.Div(base).LessThanOrEqual(rs.Config.NearAmountRatio):
		signals.Amount = AmountNear
		score += rs.Config.NearAmountPoints
	}

	if inv.InvoiceDate != nil && !tx.PostedAt.IsZero() {
		signals.HasDates = true
		signals.DayDifference = DayDifference(*inv.InvoiceDate, tx.PostedAt)
		switch {
		case signals.DayDifference <= rs.Config.CloseDateDays:
			signals.Date = DateClose
			score += rs.Config.CloseDatePoints
		case signals.DayDifference <= rs.Config.LooseDateDays:
			signals.Date = DateLoose
			score += rs.Config.LooseDatePoints
		}
	}

	shared, ratio := keywordOverlap(inv.DescriptionText(), tx.DescriptionText())
	signals.SharedTokens = shared
	signals.TextPoints = ratio * rs.Config.MaxTextPoints
	score += signals.TextPoints

	return Result{Score: math.Min(score, MaxScore), Signals: signals}
}

// keywordOverlap returns the number of distinct non-stop-word tokens found in
// both descriptions and that count divided by the larger keyword set. Either
// side without keywords scores 0.
func keywordOverlap(invoiceText, transactionText string) (int, float64) {
	invoiceWords := keywords(invoiceText)
	txWords := keywords(transactionText)
	if len(invoiceWords) == 0 || len(txWords) == 0 {
		return 0, 0
	}

	shared := 0
	for word := range invoiceWords {
		if _, ok := txWords[word]; ok {
			shared++
		}
	}

	larger := len(invoiceWords)
	if len(txWords) > larger {
		larger = len(txWords)
	}
	return shared, float64(shared) / float64(larger)
}

func keywords(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

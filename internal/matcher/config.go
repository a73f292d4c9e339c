// Package matcher provides the pairwise scoring rules used to propose matches
// between open invoices and imported bank transactions.
//
// A Strategy turns one (invoice, transaction) pair into a Result: a score on a
// 0-100 scale plus the Signals that produced it. Two strategies are provided:
//   - PointStrategy: additive points for amount, date and shared description
//     tokens, capped at 100. This is the in-process fallback scorer.
//   - RatioStrategy: the scoring service variant that filters stop words and
//     weighs description overlap as a set ratio.
//
// Pairs scoring below MinMatchScore are never proposed.
//
// Example usage:
//
//	strategy := matcher.NewPointStrategy(nil)
//	result := strategy.Score(&invoice, &transaction)
//	if result.Qualifies() {
//		fmt.Println(result.Score, result.Signals.Reasons())
//	}
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// MinMatchScore is the lowest score a pair needs to be proposed
	MinMatchScore = 50.0

	// MaxScore caps every strategy's result
	MaxScore = 100.0
)

// AmountMatch classifies how closely two amounts agree
type AmountMatch int

const (
	// AmountNone means the amounts differ by more than the near tolerance
	AmountNone AmountMatch = iota

	// AmountNear means the difference is within the near ratio of the invoice amount
	AmountNear

	// AmountExact means the amounts differ by less than one cent
	AmountExact
)

// String returns the string representation of AmountMatch
func (am AmountMatch) String() string {
	switch am {
	case AmountExact:
		return "Exact"
	case AmountNear:
		return "Near"
	default:
		return "None"
	}
}

// DateMatch classifies how close the invoice date is to the posting date
type DateMatch int

const (
	// DateNone means the dates are far apart or one of them is missing
	DateNone DateMatch = iota

	// DateLoose means the dates are within the loose window
	DateLoose

	// DateClose means the dates are within the close window
	DateClose
)

// String returns the string representation of DateMatch
func (dm DateMatch) String() string {
	switch dm {
	case DateClose:
		return "Close"
	case DateLoose:
		return "Loose"
	default:
		return "None"
	}
}

// ScoringConfig holds the point values and thresholds of the additive strategy.
// The defaults are the production rules; tests and the scoring service may
// tune them.
type ScoringConfig struct {
	// ExactAmountTolerance is the absolute difference below which amounts are exact
	ExactAmountTolerance decimal.Decimal `json:"exact_amount_tolerance"`

	// NearAmountRatio is the relative difference (of the invoice amount) below which amounts are near
	NearAmountRatio decimal.Decimal `json:"near_amount_ratio"`

	ExactAmountPoints float64 `json:"exact_amount_points"`
	NearAmountPoints  float64 `json:"near_amount_points"`

	// CloseDateDays and LooseDateDays bound the date windows, inclusive
	CloseDateDays   float64 `json:"close_date_days"`
	LooseDateDays   float64 `json:"loose_date_days"`
	CloseDatePoints float64 `json:"close_date_points"`
	LooseDatePoints float64 `json:"loose_date_points"`

	// PointsPerSharedToken is awarded per invoice token found in the transaction description
	PointsPerSharedToken float64 `json:"points_per_shared_token"`
	MaxTextPoints        float64 `json:"max_text_points"`
}

// DefaultScoringConfig returns the production scoring rules
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		ExactAmountTolerance: decimal.RequireFromString("0.01"),
		NearAmountRatio:      decimal.RequireFromString("0.05"),
		ExactAmountPoints:    50,
		NearAmountPoints:     30,
		CloseDateDays:        3,
		LooseDateDays:        7,
		CloseDatePoints:      20,
		LooseDatePoints:      10,
		PointsPerSharedToken: 5,
		MaxTextPoints:        30,
	}
}

// Validate checks if the scoring configuration is valid
func (sc *ScoringConfig) Validate() error {
	if !sc.ExactAmountTolerance.IsPositive() {
		return fmt.Errorf("exact amount tolerance must be positive: %s", sc.ExactAmountTolerance)
	}

	if sc.NearAmountRatio.IsNegative() || sc.NearAmountRatio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("near amount ratio must be between 0 and 1: %s", sc.NearAmountRatio)
	}

	if sc.CloseDateDays < 0 || sc.LooseDateDays < sc.CloseDateDays {
		return fmt.Errorf("date windows must satisfy 0 <= close (%v) <= loose (%v)", sc.CloseDateDays, sc.LooseDateDays)
	}

	points := []float64{
		sc.ExactAmountPoints, sc.NearAmountPoints,
		sc.CloseDatePoints, sc.LooseDatePoints,
		sc.PointsPerSharedToken, sc.MaxTextPoints,
	}
	for _, p := range points {
		if p < 0 || p > MaxScore {
			return fmt.Errorf("point values must be between 0 and %v: %v", MaxScore, p)
		}
	}

	return nil
}

// Clone creates a copy of the scoring configuration
func (sc *ScoringConfig) Clone() *ScoringConfig {
	if sc == nil {
		return nil
	}
	clone := *sc
	return &clone
}

// String returns a human-readable description of the configuration
func (sc *ScoringConfig) String() string {
	return fmt.Sprintf("ScoringConfig{Exact: %v pts, Near: %s ratio/%v pts, Dates: %v/%v days, Text: %v pts/token max %v}",
		sc.ExactAmountPoints, sc.NearAmountRatio, sc.NearAmountPoints,
		sc.CloseDateDays, sc.LooseDateDays, sc.PointsPerSharedToken, sc.MaxTextPoints)
}

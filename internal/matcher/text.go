package matcher

import (
	"math"
	"strings"
	"time"
)

// Tokenize lowercases s and splits it on runs of whitespace
func Tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// SharedTokenCount counts the invoice tokens, repeats included, that occur
// anywhere in the transaction description.
func SharedTokenCount(invoiceText, transactionText string) int {
	invoiceTokens := Tokenize(invoiceText)
	if len(invoiceTokens) == 0 {
		return 0
	}

	txTokens := tokenSet(Tokenize(transactionText))
	count := 0
	for _, tok := range invoiceTokens {
		if _, ok := txTokens[tok]; ok {
			count++
		}
	}
	return count
}

// DayDifference returns the absolute distance between two instants in days,
// fractional days included.
func DayDifference(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours()) / 24
}

// Package scoresvc is the remote scoring service the candidate scorer calls.
// It pairs every invoice with every transaction of the same currency, scores
// the pair with the ratio strategy and returns the best TopN candidates.
package scoresvc

import (
	"fmt"
	"sort"
	"strings"

	"invoice-reconciliation-service/internal/importer"
	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/scoring"
	"invoice-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

const (
	// DefaultTopN is used when a request does not set topN
	DefaultTopN = 20

	defaultCurrency = "USD"
)

// Service scores candidate pairs
type Service struct {
	strategy matcher.Strategy
}

// NewService creates a service; a nil strategy uses the ratio strategy with
// default weights
func NewService(strategy matcher.Strategy) *Service {
	if strategy == nil {
		strategy = matcher.NewRatioStrategy(nil)
	}
	return &Service{strategy: strategy}
}

// Score ranks every qualifying same-currency pair in the request
func (s *Service) Score(req scoring.ScoreRequest) ([]models.MatchCandidate, error) {
	invoices, err := toInvoices(req.Invoices)
	if err != nil {
		return nil, err
	}
	transactions, err := toTransactions(req.Transactions)
	if err != nil {
		return nil, err
	}

	topN := req.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	candidates := []models.MatchCandidate{}
	for i := range invoices {
		inv := &invoices[i]
		for j := range transactions {
			tx := &transactions[j]
			if inv.Currency != tx.Currency {
				continue
			}

			result := s.strategy.Score(inv, tx)
			if !result.Qualifies() {
				continue
			}
			candidates = append(candidates, models.MatchCandidate{
				InvoiceID:         inv.ID,
				BankTransactionID: tx.ID,
				Score:             result.Score,
				Explanation:       explanationFor(result.Signals),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates, nil
}

func explanationFor(signals matcher.Signals) string {
	reasons := signals.Reasons()
	if len(reasons) == 0 {
		return "No strong signals"
	}
	return strings.Join(reasons, "; ")
}

func toInvoices(wire []scoring.WireInvoice) ([]models.Invoice, error) {
	invoices := make([]models.Invoice, 0, len(wire))
	for i, w := range wire {
		inv := models.Invoice{
			ID:          w.ID,
			Amount:      decimal.NewFromFloat(w.Amount),
			Currency:    normalizeCurrency(w.Currency),
			Description: w.Description,
			VendorID:    w.VendorID,
		}
		if w.InvoiceDate != nil && strings.TrimSpace(*w.InvoiceDate) != "" {
			date, err := importer.ParseDate(*w.InvoiceDate)
			if err != nil {
				return nil, errors.ValidationError(errors.CodeInvalidDate, fieldName("invoices", i, "invoiceDate"), *w.InvoiceDate, err)
			}
			inv.InvoiceDate = &date
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func toTransactions(wire []scoring.WireTransaction) ([]models.BankTransaction, error) {
	transactions := make([]models.BankTransaction, 0, len(wire))
	for i, w := range wire {
		postedAt, err := importer.ParseDate(w.PostedAt)
		if err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidDate, fieldName("transactions", i, "postedAt"), w.PostedAt, err)
		}
		transactions = append(transactions, models.BankTransaction{
			ID:          w.ID,
			PostedAt:    postedAt,
			Amount:      decimal.NewFromFloat(w.Amount),
			Currency:    normalizeCurrency(w.Currency),
			Description: w.Description,
		})
	}
	return transactions, nil
}

func normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return defaultCurrency
	}
	return code
}

func fieldName(list string, index int, field string) string {
	return fmt.Sprintf("%s[%d].%s", list, index, field)
}

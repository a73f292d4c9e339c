// Package scoring produces ranked match candidates for a tenant's open invoices
// and unmatched bank transactions.
//
// The CandidateScorer asks a remote scoring service first. Any remote failure
// (unreachable, timeout, non-2xx status, malformed body) is logged and absorbed:
// the scorer falls back to the in-process matcher strategy, so callers always
// receive a candidate list and never an error.
//
// Example usage:
//
//	remote := scoring.NewRemoteClient("http://scorer:8001", 30*time.Second)
//	scorer := scoring.NewCandidateScorer(remote, matcher.NewPointStrategy(nil))
//	candidates := scorer.ScoreCandidates(ctx, tenantID, invoices, transactions)
package scoring

import (
	"context"
	"sort"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"
)

// MaxCandidates bounds every candidate list returned by the scorer
const MaxCandidates = 20

// Remote is a scoring backend reached over the network
type Remote interface {
	ScoreCandidates(ctx context.Context, tenantID string, invoices []models.Invoice, transactions []models.BankTransaction) ([]models.MatchCandidate, error)
}

// CandidateScorer ranks invoice/transaction pairs
type CandidateScorer struct {
	remote   Remote
	strategy matcher.Strategy
	logger   logger.Logger
}

// NewCandidateScorer creates a scorer. A nil remote scores locally only and a
// nil strategy uses the default point strategy.
func NewCandidateScorer(remote Remote, strategy matcher.Strategy) *CandidateScorer {
	if strategy == nil {
		strategy = matcher.NewPointStrategy(nil)
	}
	return &CandidateScorer{
		remote:   remote,
		strategy: strategy,
		logger:   logger.GetGlobalLogger().WithComponent("scoring"),
	}
}

// ScoreCandidates returns at most MaxCandidates candidates sorted by score,
// highest first. It never fails.
func (s *CandidateScorer) ScoreCandidates(ctx context.Context, tenantID string, invoices []models.Invoice, transactions []models.BankTransaction) []models.MatchCandidate {
	log := s.logger.WithFields(logger.Fields{
		"tenant_id":    tenantID,
		"invoices":     len(invoices),
		"transactions": len(transactions),
	})

	if s.remote != nil {
		candidates, err := s.remote.ScoreCandidates(ctx, tenantID, invoices, transactions)
		if err == nil {
			candidates = rankAndTrim(candidates)
			log.WithField("candidates", len(candidates)).Debug("Remote scoring succeeded")
			return candidates
		}
		log.WithError(err).Warn("Remote scoring failed, falling back to local scoring")
	}

	candidates := s.ScoreLocal(invoices, transactions)
	log.WithField("candidates", len(candidates)).Debug("Local scoring completed")
	return candidates
}

// ScoreLocal scores the full cross product with the in-process strategy, keeps
// qualifying pairs and returns the best MaxCandidates. Ties keep invoice-major
// input order.
func (s *CandidateScorer) ScoreLocal(invoices []models.Invoice, transactions []models.BankTransaction) []models.MatchCandidate {
	candidates := make([]models.MatchCandidate, 0)

	for i := range invoices {
		for j := range transactions {
			result := s.strategy.Score(&invoices[i], &transactions[j])
			if !result.Qualifies() {
				continue
			}
			candidates = append(candidates, models.MatchCandidate{
				InvoiceID:         invoices[i].ID,
				BankTransactionID: transactions[j].ID,
				Score:             result.Score,
			})
		}
	}

	return rankAndTrim(candidates)
}

func rankAndTrim(candidates []models.MatchCandidate) []models.MatchCandidate {
	if candidates == nil {
		return []models.MatchCandidate{}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	return candidates
}

// Package reconciler coordinates the tenant-scoped reconciliation workflow:
//   - Reconcile: score open invoices against unmatched bank transactions and
//     persist every candidate as a proposed match
//   - ConfirmMatch: accept a proposed match and mark its invoice matched,
//     atomically
//   - ExplainMatch: explain why an invoice and a transaction pair up
//   - ListMatches: list a tenant's matches by status
//
// The orchestrator owns no scoring or explanation logic. It loads data
// through the store, delegates to a CandidateScorer and an Explainer, and
// maps store failures onto the application error taxonomy.
//
// Example usage:
//
//	orchestrator := reconciler.NewOrchestrator(db, scorer, explainer)
//	result, err := orchestrator.Reconcile(ctx, tenantID)
//	if err != nil {
//		return err
//	}
//	for _, c := range result.Candidates {
//		fmt.Printf("%s <-> %s: %.2f\n", c.InvoiceID, c.BankTransactionID, c.Score)
//	}
package reconciler

import (
	"context"
	stderrors "errors"
	"time"

	"invoice-reconciliation-service/internal/explain"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/store"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
)

// CandidateScorer ranks invoice/transaction pairs. It never fails.
type CandidateScorer interface {
	ScoreCandidates(ctx context.Context, tenantID string, invoices []models.Invoice, transactions []models.BankTransaction) []models.MatchCandidate
}

// Explainer explains a pair. It never fails.
type Explainer interface {
	Explain(ctx context.Context, inv *models.Invoice, tx *models.BankTransaction, score *float64) explain.Explanation
}

// Orchestrator runs the reconciliation operations for any tenant
type Orchestrator struct {
	store     store.Store
	scorer    CandidateScorer
	explainer Explainer
	logger    logger.Logger
}

// ReconcileResult is the outcome of one reconciliation run
type ReconcileResult struct {
	TenantID             string                  `json:"tenantId"`
	Candidates           []models.MatchCandidate `json:"candidates"`
	OpenInvoices         int                     `json:"openInvoices"`
	EligibleTransactions int                     `json:"eligibleTransactions"`
	Duration             time.Duration           `json:"duration"`
}

// ConfirmResult is returned by a successful confirmation
type ConfirmResult struct {
	Success   bool               `json:"success"`
	MatchID   string             `json:"matchId"`
	InvoiceID string             `json:"invoiceId"`
	Status    models.MatchStatus `json:"status"`
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(s store.Store, scorer CandidateScorer, explainer Explainer) *Orchestrator {
	return &Orchestrator{
		store:     s,
		scorer:    scorer,
		explainer: explainer,
		logger:    logger.GetGlobalLogger().WithComponent("reconciliation_orchestrator"),
	}
}

// Reconcile scores the tenant's open invoices against its transactions that
// have no confirmed match, and inserts every candidate as a proposed match.
// Running it twice inserts the candidates twice.
func (o *Orchestrator) Reconcile(ctx context.Context, tenantID string) (*ReconcileResult, error) {
	ctx = store.WithTenant(ctx, tenantID)
	start := time.Now()
	op := logger.NewOperationLogger("reconcile", o.logger).WithField("tenant_id", tenantID)

	op.Step("load_open_invoices")
	invoices, err := o.store.ListInvoices(ctx, tenantID, models.InvoiceStatusOpen)
	if err != nil {
		wrapped := errors.StorageError(errors.CodeQueryFailed, "list open invoices", err)
		op.Error(wrapped, "Reconciliation failed")
		return nil, wrapped
	}

	op.Step("load_transactions")
	transactions, err := o.store.ListTransactions(ctx, tenantID)
	if err != nil {
		wrapped := errors.StorageError(errors.CodeQueryFailed, "list transactions", err)
		op.Error(wrapped, "Reconciliation failed")
		return nil, wrapped
	}

	confirmed, err := o.store.ListMatches(ctx, tenantID, models.MatchStatusConfirmed)
	if err != nil {
		wrapped := errors.StorageError(errors.CodeQueryFailed, "list confirmed matches", err)
		op.Error(wrapped, "Reconciliation failed")
		return nil, wrapped
	}
	eligible := excludeConfirmed(transactions, confirmed)

	op.Step("score_candidates")
	candidates := o.scorer.ScoreCandidates(ctx, tenantID, invoices, eligible)

	if len(candidates) > 0 {
		op.Step("persist_proposed_matches")
		matches := make([]models.Match, 0, len(candidates))
		for _, c := range candidates {
			matches = append(matches, c.ToMatch(uuid.NewString(), tenantID))
		}
		if err := o.store.CreateMatches(ctx, tenantID, matches); err != nil {
			wrapped := errors.StorageError(errors.CodeQueryFailed, "create proposed matches", err)
			op.Error(wrapped, "Reconciliation failed")
			return nil, wrapped
		}
	}

	op.WithField("open_invoices", len(invoices)).
		WithField("eligible_transactions", len(eligible)).
		WithField("candidates", len(candidates)).
		Success("Reconciliation completed")

	return &ReconcileResult{
		TenantID:             tenantID,
		Candidates:           candidates,
		OpenInvoices:         len(invoices),
		EligibleTransactions: len(eligible),
		Duration:             time.Since(start),
	}, nil
}

func excludeConfirmed(transactions []models.BankTransaction, confirmed []models.Match) []models.BankTransaction {
	if len(confirmed) == 0 {
		return transactions
	}

	taken := make(map[string]struct{}, len(confirmed))
	for _, m := range confirmed {
		taken[m.BankTransactionID] = struct{}{}
	}

	eligible := make([]models.BankTransaction, 0, len(transactions))
	for _, tx := range transactions {
		if _, ok := taken[tx.ID]; !ok {
			eligible = append(eligible, tx)
		}
	}
	return eligible
}

// ConfirmMatch moves a proposed match to confirmed and its invoice to matched
// in one transaction. A missing match is NotFound; a match in any other status
// is InvalidState.
func (o *Orchestrator) ConfirmMatch(ctx context.Context, tenantID, matchID string) (*ConfirmResult, error) {
	ctx = store.WithTenant(ctx, tenantID)
	op := logger.NewOperationLogger("confirm_match", o.logger).
		WithField("tenant_id", tenantID).
		WithField("match_id", matchID)

	var result *ConfirmResult
	err := o.store.WithinTx(ctx, func(tx store.Store) error {
		match, err := tx.GetMatch(ctx, tenantID, matchID)
		if stderrors.Is(err, store.ErrNotFound) {
			return errors.NotFoundError(errors.CodeMatchNotFound, "Match", matchID)
		}
		if err != nil {
			return errors.StorageError(errors.CodeQueryFailed, "get match", err)
		}
		if match.Status != models.MatchStatusProposed {
			return errors.InvalidStateError(errors.CodeMatchNotProposed, "Match", matchID, string(match.Status))
		}

		ok, err := tx.TransitionMatchStatus(ctx, tenantID, matchID, models.MatchStatusProposed, models.MatchStatusConfirmed)
		if err != nil {
			return errors.StorageError(errors.CodeQueryFailed, "confirm match", err)
		}
		if !ok {
			// confirmed or changed by a concurrent request since it was read
			return errors.InvalidStateError(errors.CodeMatchNotProposed, "Match", matchID, "changed")
		}

		err = tx.UpdateInvoiceStatus(ctx, tenantID, match.InvoiceID, models.InvoiceStatusMatched)
		if stderrors.Is(err, store.ErrNotFound) {
			return errors.NotFoundError(errors.CodeInvoiceNotFound, "Invoice", match.InvoiceID)
		}
		if err != nil {
			return errors.StorageError(errors.CodeQueryFailed, "mark invoice matched", err)
		}

		result = &ConfirmResult{
			Success:   true,
			MatchID:   matchID,
			InvoiceID: match.InvoiceID,
			Status:    models.MatchStatusConfirmed,
		}
		return nil
	})
	if err != nil {
		wrapped := errors.WrapIfNeeded(err, errors.CategoryStorage, errors.CodeTransactionFailed, "confirm match transaction failed")
		op.Error(wrapped, "Match confirmation failed")
		return nil, wrapped
	}

	op.WithField("invoice_id", result.InvoiceID).Success("Match confirmed")
	return result, nil
}

// ExplainMatch explains an invoice/transaction pair. When a match already
// exists for the pair its score feeds the explanation.
func (o *Orchestrator) ExplainMatch(ctx context.Context, tenantID, invoiceID, transactionID string) (*explain.Explanation, error) {
	ctx = store.WithTenant(ctx, tenantID)

	inv, err := o.store.GetInvoice(ctx, tenantID, invoiceID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundError(errors.CodeInvoiceNotFound, "Invoice", invoiceID)
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "get invoice", err)
	}

	tx, err := o.store.GetTransaction(ctx, tenantID, transactionID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundError(errors.CodeTransactionNotFound, "Transaction", transactionID)
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "get transaction", err)
	}

	var score *float64
	match, err := o.store.FindMatch(ctx, tenantID, invoiceID, transactionID)
	switch {
	case err == nil:
		s := match.ScoreValue()
		score = &s
	case !stderrors.Is(err, store.ErrNotFound):
		return nil, errors.StorageError(errors.CodeQueryFailed, "find match", err)
	}

	result := o.explainer.Explain(ctx, inv, tx, score)
	o.logger.WithFields(logger.Fields{
		"tenant_id":      tenantID,
		"invoice_id":     invoiceID,
		"transaction_id": transactionID,
		"confidence":     result.Confidence,
	}).Debug("Explanation generated")

	return &result, nil
}

// ListMatches returns the tenant's matches; an empty status lists all of them
func (o *Orchestrator) ListMatches(ctx context.Context, tenantID string, status models.MatchStatus) ([]models.Match, error) {
	if status != "" && !status.IsValid() {
		return nil, errors.ValidationError(errors.CodeInvalidFormat, "status", status, nil).
			WithSuggestion("use one of: proposed, confirmed, rejected")
	}

	matches, err := o.store.ListMatches(store.WithTenant(ctx, tenantID), tenantID, status)
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "list matches", err)
	}
	return matches, nil
}

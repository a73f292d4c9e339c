// Package memstore is an in-memory store.Store used by tests and by the CLI
// when no database is configured. Transactions run on a private copy of the
// data and are swapped in on commit, so a failed transaction leaves no trace.
package memstore

import (
	"context"
	"sync"
	"time"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/store"
)

type data struct {
	invoices     map[string]models.Invoice
	invoiceOrder []string
	transactions map[string]models.BankTransaction
	txOrder      []string
	matches      map[string]models.Match
	matchOrder   []string
	records      map[string]models.IdempotencyRecord
}

func newData() *data {
	return &data{
		invoices:     make(map[string]models.Invoice),
		transactions: make(map[string]models.BankTransaction),
		matches:      make(map[string]models.Match),
		records:      make(map[string]models.IdempotencyRecord),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.invoices {
		c.invoices[k] = v
	}
	for k, v := range d.transactions {
		c.transactions[k] = v
	}
	for k, v := range d.matches {
		c.matches[k] = v
	}
	for k, v := range d.records {
		c.records[k] = v
	}
	c.invoiceOrder = append([]string(nil), d.invoiceOrder...)
	c.txOrder = append([]string(nil), d.txOrder...)
	c.matchOrder = append([]string(nil), d.matchOrder...)
	return c
}

// Store is a mutex-guarded in-memory store
type Store struct {
	mu   sync.Mutex
	data *data
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{data: newData(), now: time.Now}
}

func (s *Store) view() *view {
	return &view{d: s.data, now: s.now}
}

// WithinTx implements store.Store. Transactions are serialized.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(&view{d: working, now: s.now}); err != nil {
		return err
	}
	s.data = working
	return nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateInvoice(ctx, inv)
}

func (s *Store) GetInvoice(ctx context.Context, tenantID, id string) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetInvoice(ctx, tenantID, id)
}

func (s *Store) ListInvoices(ctx context.Context, tenantID string, status models.InvoiceStatus) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListInvoices(ctx, tenantID, status)
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, tenantID, id string, status models.InvoiceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateInvoiceStatus(ctx, tenantID, id, status)
}

func (s *Store) CreateTransactions(ctx context.Context, tenantID string, txs []models.BankTransaction) ([]models.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateTransactions(ctx, tenantID, txs)
}

func (s *Store) GetTransaction(ctx context.Context, tenantID, id string) (*models.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetTransaction(ctx, tenantID, id)
}

func (s *Store) ListTransactions(ctx context.Context, tenantID string) ([]models.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListTransactions(ctx, tenantID)
}

func (s *Store) CreateMatches(ctx context.Context, tenantID string, matches []models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateMatches(ctx, tenantID, matches)
}

func (s *Store) GetMatch(ctx context.Context, tenantID, id string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetMatch(ctx, tenantID, id)
}

func (s *Store) FindMatch(ctx context.Context, tenantID, invoiceID, transactionID string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindMatch(ctx, tenantID, invoiceID, transactionID)
}

func (s *Store) ListMatches(ctx context.Context, tenantID string, status models.MatchStatus) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListMatches(ctx, tenantID, status)
}

func (s *Store) TransitionMatchStatus(ctx context.Context, tenantID, id string, from, to models.MatchStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().TransitionMatchStatus(ctx, tenantID, id, from, to)
}

func (s *Store) GetIdempotencyRecord(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetIdempotencyRecord(ctx, key)
}

func (s *Store) CreateIdempotencyRecord(ctx context.Context, rec *models.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateIdempotencyRecord(ctx, rec)
}

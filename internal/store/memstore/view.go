package memstore

import (
	"context"
	"time"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/store"

	"github.com/google/uuid"
)

// view operates on a data snapshot without locking. The owning Store holds
// the lock for the lifetime of the view.
type view struct {
	d   *data
	now func() time.Time
}

func (v *view) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(v)
}

func (v *view) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if _, exists := v.d.invoices[inv.ID]; exists {
		return store.ErrDuplicateKey
	}
	if inv.Status == "" {
		inv.Status = models.InvoiceStatusOpen
	}
	if inv.Currency == "" {
		inv.Currency = models.DefaultCurrency
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = v.now().UTC()
	}
	v.d.invoices[inv.ID] = *inv
	v.d.invoiceOrder = append(v.d.invoiceOrder, inv.ID)
	return nil
}

func (v *view) GetInvoice(ctx context.Context, tenantID, id string) (*models.Invoice, error) {
	inv, ok := v.d.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return &inv, nil
}

func (v *view) ListInvoices(ctx context.Context, tenantID string, status models.InvoiceStatus) ([]models.Invoice, error) {
	result := make([]models.Invoice, 0)
	for _, id := range v.d.invoiceOrder {
		inv := v.d.invoices[id]
		if inv.TenantID != tenantID {
			continue
		}
		if status != "" && inv.Status != status {
			continue
		}
		result = append(result, inv)
	}
	return result, nil
}

func (v *view) UpdateInvoiceStatus(ctx context.Context, tenantID, id string, status models.InvoiceStatus) error {
	inv, ok := v.d.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return store.ErrNotFound
	}
	inv.Status = status
	v.d.invoices[id] = inv
	return nil
}

func (v *view) CreateTransactions(ctx context.Context, tenantID string, txs []models.BankTransaction) ([]models.BankTransaction, error) {
	created := make([]models.BankTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if _, exists := v.d.transactions[tx.ID]; exists {
			return nil, store.ErrDuplicateKey
		}
		tx.TenantID = tenantID
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = v.now().UTC()
		}
		v.d.transactions[tx.ID] = tx
		v.d.txOrder = append(v.d.txOrder, tx.ID)
		created = append(created, tx)
	}
	return created, nil
}

func (v *view) GetTransaction(ctx context.Context, tenantID, id string) (*models.BankTransaction, error) {
	tx, ok := v.d.transactions[id]
	if !ok || tx.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return &tx, nil
}

func (v *view) ListTransactions(ctx context.Context, tenantID string) ([]models.BankTransaction, error) {
	result := make([]models.BankTransaction, 0)
	for _, id := range v.d.txOrder {
		if tx := v.d.transactions[id]; tx.TenantID == tenantID {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (v *view) CreateMatches(ctx context.Context, tenantID string, matches []models.Match) error {
	for _, m := range matches {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if _, exists := v.d.matches[m.ID]; exists {
			return store.ErrDuplicateKey
		}
		m.TenantID = tenantID
		if m.CreatedAt.IsZero() {
			m.CreatedAt = v.now().UTC()
		}
		v.d.matches[m.ID] = m
		v.d.matchOrder = append(v.d.matchOrder, m.ID)
	}
	return nil
}

func (v *view) GetMatch(ctx context.Context, tenantID, id string) (*models.Match, error) {
	m, ok := v.d.matches[id]
	if !ok || m.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (v *view) FindMatch(ctx context.Context, tenantID, invoiceID, transactionID string) (*models.Match, error) {
	for _, id := range v.d.matchOrder {
		m := v.d.matches[id]
		if m.TenantID == tenantID && m.InvoiceID == invoiceID && m.BankTransactionID == transactionID {
			return &m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v *view) ListMatches(ctx context.Context, tenantID string, status models.MatchStatus) ([]models.Match, error) {
	result := make([]models.Match, 0)
	for _, id := range v.d.matchOrder {
		m := v.d.matches[id]
		if m.TenantID != tenantID {
			continue
		}
		if status != "" && m.Status != status {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

func (v *view) TransitionMatchStatus(ctx context.Context, tenantID, id string, from, to models.MatchStatus) (bool, error) {
	m, ok := v.d.matches[id]
	if !ok || m.TenantID != tenantID || m.Status != from {
		return false, nil
	}
	m.Status = to
	v.d.matches[id] = m
	return true, nil
}

func (v *view) GetIdempotencyRecord(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	rec, ok := v.d.records[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (v *view) CreateIdempotencyRecord(ctx context.Context, rec *models.IdempotencyRecord) error {
	if _, exists := v.d.records[rec.Key]; exists {
		return store.ErrDuplicateKey
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = v.now().UTC()
	}
	v.d.records[rec.Key] = *rec
	return nil
}

package gormstore

import (
	"context"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/store"

	"github.com/google/uuid"
)

func (s *Store) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Status == "" {
		inv.Status = models.InvoiceStatusOpen
	}
	if inv.Currency == "" {
		inv.Currency = models.DefaultCurrency
	}
	return translate(s.conn(ctx).Create(inv).Error)
}

func (s *Store) GetInvoice(ctx context.Context, tenantID, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.conn(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&inv).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, tenantID string, status models.InvoiceStatus) ([]models.Invoice, error) {
	invoices := make([]models.Invoice, 0)
	q := s.conn(ctx).Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at ASC").Order("id ASC").Find(&invoices).Error; err != nil {
		return nil, translate(err)
	}
	return invoices, nil
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, tenantID, id string, status models.InvoiceStatus) error {
	res := s.conn(ctx).Model(&models.Invoice{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("status", status)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when the status is unchanged.
	var count int64
	if err := s.conn(ctx).Model(&models.Invoice{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Count(&count).Error; err != nil {
		return translate(err)
	}
	if count == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateTransactions(ctx context.Context, tenantID string, txs []models.BankTransaction) ([]models.BankTransaction, error) {
	rows := make([]models.BankTransaction, len(txs))
	for i, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		tx.TenantID = tenantID
		rows[i] = tx
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if err := s.conn(ctx).Create(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (s *Store) GetTransaction(ctx context.Context, tenantID, id string) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	err := s.conn(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&tx).Error
	if err != nil {
		return nil, translate(err)
	}
	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, tenantID string) ([]models.BankTransaction, error) {
	txs := make([]models.BankTransaction, 0)
	err := s.conn(ctx).Where("tenant_id = ?", tenantID).
		Order("created_at ASC").Order("id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, translate(err)
	}
	return txs, nil
}

func (s *Store) CreateMatches(ctx context.Context, tenantID string, matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	rows := make([]models.Match, len(matches))
	for i, m := range matches {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.TenantID = tenantID
		rows[i] = m
	}
	return translate(s.conn(ctx).Create(&rows).Error)
}

func (s *Store) GetMatch(ctx context.Context, tenantID, id string) (*models.Match, error) {
	var m models.Match
	err := s.conn(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) FindMatch(ctx context.Context, tenantID, invoiceID, transactionID string) (*models.Match, error) {
	var m models.Match
	err := s.conn(ctx).
		Where("tenant_id = ? AND invoice_id = ? AND bank_transaction_id = ?", tenantID, invoiceID, transactionID).
		Order("created_at ASC").
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) ListMatches(ctx context.Context, tenantID string, status models.MatchStatus) ([]models.Match, error) {
	matches := make([]models.Match, 0)
	q := s.conn(ctx).Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at ASC").Order("id ASC").Find(&matches).Error; err != nil {
		return nil, translate(err)
	}
	return matches, nil
}

func (s *Store) TransitionMatchStatus(ctx context.Context, tenantID, id string, from, to models.MatchStatus) (bool, error) {
	res := s.conn(ctx).Model(&models.Match{}).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantID, id, from).
		Update("status", to)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetIdempotencyRecord looks the key up across all tenants
func (s *Store) GetIdempotencyRecord(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := s.conn(SkipTenantScope(ctx)).Where("`key` = ?", key).First(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (s *Store) CreateIdempotencyRecord(ctx context.Context, rec *models.IdempotencyRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return translate(s.conn(ctx).Create(rec).Error)
}

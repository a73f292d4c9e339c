// Package store defines the tenant-scoped persistence contract used by the
// reconciliation core. Every read and write takes the tenant explicitly;
// implementations may add ambient scoping on top but never replace it.
package store

import (
	"context"
	"errors"

	"invoice-reconciliation-service/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist for the tenant
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicateKey is returned when a unique constraint rejects an insert
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// InvoiceRepository reads invoices and moves them through their lifecycle
type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoice(ctx context.Context, tenantID, id string) (*models.Invoice, error)
	// ListInvoices returns the tenant's invoices; an empty status returns all
	ListInvoices(ctx context.Context, tenantID string, status models.InvoiceStatus) ([]models.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, tenantID, id string, status models.InvoiceStatus) error
}

// TransactionRepository stores imported bank transactions
type TransactionRepository interface {
	// CreateTransactions inserts all rows for the tenant in input order,
	// assigning IDs where missing, and returns them as stored.
	CreateTransactions(ctx context.Context, tenantID string, txs []models.BankTransaction) ([]models.BankTransaction, error)
	GetTransaction(ctx context.Context, tenantID, id string) (*models.BankTransaction, error)
	ListTransactions(ctx context.Context, tenantID string) ([]models.BankTransaction, error)
}

// MatchRepository stores proposed and confirmed matches
type MatchRepository interface {
	CreateMatches(ctx context.Context, tenantID string, matches []models.Match) error
	GetMatch(ctx context.Context, tenantID, id string) (*models.Match, error)
	// FindMatch returns the earliest match for the pair, in any status
	FindMatch(ctx context.Context, tenantID, invoiceID, transactionID string) (*models.Match, error)
	// ListMatches returns the tenant's matches; an empty status returns all
	ListMatches(ctx context.Context, tenantID string, status models.MatchStatus) ([]models.Match, error)
	// TransitionMatchStatus moves a match from one status to another and
	// reports whether the match was in the expected status.
	TransitionMatchStatus(ctx context.Context, tenantID, id string, from, to models.MatchStatus) (bool, error)
}

// IdempotencyRepository stores idempotency records keyed globally by key
type IdempotencyRepository interface {
	GetIdempotencyRecord(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	// CreateIdempotencyRecord returns ErrDuplicateKey when the key exists
	CreateIdempotencyRecord(ctx context.Context, rec *models.IdempotencyRecord) error
}

// Store is the full persistence surface
type Store interface {
	InvoiceRepository
	TransactionRepository
	MatchRepository
	IdempotencyRepository

	// WithinTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type tenantKey struct{}

// WithTenant attaches the tenant to ctx for implementations that apply
// ambient tenant scoping.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantFromContext returns the tenant attached by WithTenant
func TenantFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tenantKey{}).(string); ok {
		return v
	}
	return ""
}

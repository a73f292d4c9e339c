// Package models defines the tenant-scoped records the reconciliation core reads
// and writes: invoices, bank transactions, matches and idempotency records, plus
// the transient match candidates produced by the scorer.
//
// All monetary amounts are shopspring decimals end-to-end. Scores are on a
// 0-100 scale and are not monetary, so they are plain floats until persisted.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied to imported transactions that omit a currency
const DefaultCurrency = "USD"

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusOpen    InvoiceStatus = "open"
	InvoiceStatusMatched InvoiceStatus = "matched"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// IsValid checks if the invoice status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusOpen, InvoiceStatusMatched, InvoiceStatusPaid:
		return true
	default:
		return false
	}
}

// MatchStatus represents the lifecycle state of a match.
// proposed -> confirmed is the only implemented transition; rejected is reserved.
type MatchStatus string

const (
	MatchStatusProposed  MatchStatus = "proposed"
	MatchStatusConfirmed MatchStatus = "confirmed"
	MatchStatusRejected  MatchStatus = "rejected"
)

// IsValid checks if the match status is valid
func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusProposed, MatchStatusConfirmed, MatchStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusConfirmed || s == MatchStatusRejected
}

// Invoice is a tenant-scoped receivable created by the CRUD collaborator
type Invoice struct {
	ID            string          `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID      string          `gorm:"type:char(36);not null;index:invoices_tenant_idx" json:"tenantId"`
	VendorID      *string         `gorm:"type:char(36);index:invoices_vendor_idx" json:"vendorId,omitempty"`
	InvoiceNumber *string         `gorm:"size:255" json:"invoiceNumber,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(19,2);not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null;default:USD" json:"currency"`
	InvoiceDate   *time.Time      `json:"invoiceDate,omitempty"`
	Description   *string         `gorm:"type:text" json:"description,omitempty"`
	Status        InvoiceStatus   `gorm:"size:16;not null;default:open;index:invoices_status_idx" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName implements gorm's tabler interface
func (Invoice) TableName() string { return "invoices" }

// DescriptionText returns the description or an empty string
func (i *Invoice) DescriptionText() string {
	if i.Description == nil {
		return ""
	}
	return *i.Description
}

// Validate performs basic validation on the Invoice
func (i *Invoice) Validate() error {
	if strings.TrimSpace(i.TenantID) == "" {
		return fmt.Errorf("invoice tenant ID cannot be empty")
	}
	if i.Amount.IsNegative() {
		return fmt.Errorf("invoice amount cannot be negative")
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("invalid invoice status: %s", i.Status)
	}
	return nil
}

// String returns a string representation of the Invoice
func (i *Invoice) String() string {
	return fmt.Sprintf("Invoice{ID: %s, Amount: %s %s, Status: %s}",
		i.ID, i.Amount.StringFixed(2), i.Currency, i.Status)
}

// BankTransaction is an imported, immutable bank statement line
type BankTransaction struct {
	ID          string          `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID    string          `gorm:"type:char(36);not null;index:bank_transactions_tenant_idx" json:"tenantId"`
	ExternalID  *string         `gorm:"size:255;index:bank_transactions_external_id_idx" json:"externalId,omitempty"`
	PostedAt    time.Time       `gorm:"not null" json:"postedAt"`
	Amount      decimal.Decimal `gorm:"type:decimal(19,2);not null" json:"amount"`
	Currency    string          `gorm:"size:3;not null;default:USD" json:"currency"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName implements gorm's tabler interface
func (BankTransaction) TableName() string { return "bank_transactions" }

// DescriptionText returns the description or an empty string
func (t *BankTransaction) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// String returns a string representation of the BankTransaction
func (t *BankTransaction) String() string {
	return fmt.Sprintf("BankTransaction{ID: %s, Amount: %s %s, PostedAt: %s}",
		t.ID, t.Amount.StringFixed(2), t.Currency, t.PostedAt.Format(time.RFC3339))
}

// Match pairs one invoice with one bank transaction
type Match struct {
	ID                string          `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID          string          `gorm:"type:char(36);not null;index:matches_tenant_idx" json:"tenantId"`
	InvoiceID         string          `gorm:"type:char(36);not null;index:matches_invoice_idx" json:"invoiceId"`
	BankTransactionID string          `gorm:"type:char(36);not null;index:matches_transaction_idx" json:"bankTransactionId"`
	Score             decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"score"`
	Status            MatchStatus     `gorm:"size:16;not null;default:proposed;index:matches_status_idx" json:"status"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName implements gorm's tabler interface
func (Match) TableName() string { return "matches" }

// ScoreValue returns the persisted score as a float on the 0-100 scale
func (m *Match) ScoreValue() float64 {
	return m.Score.InexactFloat64()
}

// IdempotencyRecord remembers the first result produced for an idempotency key.
// Once written it never changes.
type IdempotencyRecord struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	Key         string    `gorm:"size:255;not null;uniqueIndex:idempotency_keys_key_idx" json:"key"`
	TenantID    string    `gorm:"type:char(36);not null;index:idempotency_keys_tenant_idx" json:"tenantId"`
	PayloadHash string    `gorm:"size:64;not null" json:"payloadHash"`
	Result      string    `gorm:"type:longtext" json:"result"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName implements gorm's tabler interface
func (IdempotencyRecord) TableName() string { return "idempotency_keys" }

// MatchCandidate is a scored pairing produced by the candidate scorer.
// It is not persisted until the orchestrator stores it as a proposed Match.
type MatchCandidate struct {
	InvoiceID         string  `json:"invoiceId"`
	BankTransactionID string  `json:"bankTransactionId"`
	Score             float64 `json:"score"`
	Explanation       string  `json:"explanation,omitempty"`
}

// ToMatch converts the candidate into a proposed Match for the tenant
func (c MatchCandidate) ToMatch(id, tenantID string) Match {
	return Match{
		ID:                id,
		TenantID:          tenantID,
		InvoiceID:         c.InvoiceID,
		BankTransactionID: c.BankTransactionID,
		Score:             decimal.NewFromFloat(c.Score).Round(2),
		Status:            MatchStatusProposed,
	}
}

// AllModels lists every persisted model, in migration order
func AllModels() []interface{} {
	return []interface{}{
		&Invoice{},
		&BankTransaction{},
		&Match{},
		&IdempotencyRecord{},
	}
}

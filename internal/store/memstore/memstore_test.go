package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/store"

	"github.com/shopspring/decimal"
)

func TestTenantScoping(t *testing.T) {
	ctx := context.Background()
	s := New()

	inv := &models.Invoice{TenantID: "t1", Amount: decimal.RequireFromString("10.00")}
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if inv.ID == "" || inv.Status != models.InvoiceStatusOpen || inv.Currency != "USD" {
		t.Errorf("expected defaults to be applied, got %+v", inv)
	}

	if _, err := s.GetInvoice(ctx, "t2", inv.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound across tenants, got %v", err)
	}
	if err := s.UpdateInvoiceStatus(ctx, "t2", inv.ID, models.InvoiceStatusPaid); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating across tenants, got %v", err)
	}

	list, _ := s.ListInvoices(ctx, "t2", "")
	if len(list) != 0 {
		t.Errorf("expected no invoices for t2, got %d", len(list))
	}
	list, _ = s.ListInvoices(ctx, "t1", models.InvoiceStatusOpen)
	if len(list) != 1 {
		t.Errorf("expected 1 open invoice for t1, got %d", len(list))
	}
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx store.Store) error {
		if _, err := tx.CreateTransactions(ctx, "t1", []models.BankTransaction{
			{PostedAt: time.Now(), Amount: decimal.NewFromInt(5), Currency: "USD"},
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	txs, _ := s.ListTransactions(ctx, "t1")
	if len(txs) != 0 {
		t.Errorf("expected rollback to discard inserts, got %d rows", len(txs))
	}
}

func TestWithinTx_Commit(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithinTx(ctx, func(tx store.Store) error {
		created, err := tx.CreateTransactions(ctx, "t1", []models.BankTransaction{
			{PostedAt: time.Now(), Amount: decimal.NewFromInt(5), Currency: "USD"},
			{PostedAt: time.Now(), Amount: decimal.NewFromInt(6), Currency: "USD"},
		})
		if err != nil {
			return err
		}
		if created[0].TenantID != "t1" || created[0].ID == "" {
			t.Errorf("expected tenant and id to be assigned, got %+v", created[0])
		}
		return tx.CreateIdempotencyRecord(ctx, &models.IdempotencyRecord{Key: "k", TenantID: "t1", PayloadHash: "h"})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txs, _ := s.ListTransactions(ctx, "t1")
	if len(txs) != 2 {
		t.Errorf("expected 2 committed rows, got %d", len(txs))
	}
	if !txs[0].Amount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected insertion order to be kept, got %s first", txs[0].Amount)
	}
	if _, err := s.GetIdempotencyRecord(ctx, "k"); err != nil {
		t.Errorf("expected committed idempotency record, got %v", err)
	}
}

func TestCreateIdempotencyRecord_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateIdempotencyRecord(ctx, &models.IdempotencyRecord{Key: "k", TenantID: "t1"}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	err := s.CreateIdempotencyRecord(ctx, &models.IdempotencyRecord{Key: "k", TenantID: "t2"})
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestTransitionMatchStatus(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateMatches(ctx, "t1", []models.Match{
		{ID: "m1", InvoiceID: "i1", BankTransactionID: "x1", Status: models.MatchStatusProposed},
	}); err != nil {
		t.Fatalf("CreateMatches failed: %v", err)
	}

	ok, err := s.TransitionMatchStatus(ctx, "t1", "m1", models.MatchStatusProposed, models.MatchStatusConfirmed)
	if err != nil || !ok {
		t.Fatalf("expected first transition to succeed, got %v %v", ok, err)
	}

	ok, _ = s.TransitionMatchStatus(ctx, "t1", "m1", models.MatchStatusProposed, models.MatchStatusConfirmed)
	if ok {
		t.Error("expected second transition from proposed to fail")
	}

	ok, _ = s.TransitionMatchStatus(ctx, "t2", "m1", models.MatchStatusConfirmed, models.MatchStatusRejected)
	if ok {
		t.Error("expected transition across tenants to fail")
	}

	m, err := s.FindMatch(ctx, "t1", "i1", "x1")
	if err != nil || m.Status != models.MatchStatusConfirmed {
		t.Errorf("expected confirmed match, got %+v %v", m, err)
	}
}

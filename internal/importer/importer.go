// Package importer bulk-imports bank transactions for a tenant with optional
// idempotency.
//
// A request carrying an idempotency key is fingerprinted. The first request
// for a key inserts its transactions and stores the result under the key in
// the same database transaction. A later request with the same key replays
// that stored result when its fingerprint matches, and fails with a Conflict
// error when it does not. Concurrent first requests race on the key's unique
// constraint; the loser rolls back and resolves exactly like a later request.
//
// Example usage:
//
//	imp := importer.New(db, nil)
//	result, err := imp.BulkImport(ctx, importer.Request{
//		TenantID:       tenantID,
//		Transactions:   inputs,
//		IdempotencyKey: "batch-2024-01-31",
//	})
package importer

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/store"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionInput is one transaction as submitted for import
type TransactionInput struct {
	ExternalID  *string         `json:"externalId,omitempty" validate:"omitempty,max=255"`
	PostedAt    time.Time       `json:"postedAt" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty" validate:"omitempty,currency"`
	Description *string         `json:"description,omitempty"`
}

// Request is a bulk import request
type Request struct {
	TenantID       string             `json:"-" validate:"required,max=36"`
	Transactions   []TransactionInput `json:"transactions" validate:"required,min=1,dive"`
	IdempotencyKey string             `json:"idempotencyKey,omitempty" validate:"omitempty,max=255"`
}

// Result holds the inserted transactions. Replays return the stored result
// byte for byte through JSON.
type Result struct {
	Transactions []models.BankTransaction `json:"transactions"`
	Replayed     bool                     `json:"-"`

	raw []byte
}

// JSON returns the canonical serialized result
func (r *Result) JSON() []byte {
	return r.raw
}

// RecordCache fronts idempotency record lookups and serializes imports that
// share a key. Implementations are best effort.
type RecordCache interface {
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, bool)
	Put(ctx context.Context, rec *models.IdempotencyRecord)
	Lock(ctx context.Context, key string) (release func(), err error)
}

// Importer inserts bank transactions
type Importer struct {
	store  store.Store
	cache  RecordCache
	logger logger.Logger
}

// New creates an importer. The cache is optional.
func New(s store.Store, cache RecordCache) *Importer {
	return &Importer{
		store:  s,
		cache:  cache,
		logger: logger.GetGlobalLogger().WithComponent("importer"),
	}
}

// errKeyTaken signals that another request stored the key first
var errKeyTaken = stderrors.New("idempotency key taken concurrently")

// BulkImport validates and inserts the request's transactions atomically
func (im *Importer) BulkImport(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(&req); err != nil {
		return nil, err
	}

	ctx = store.WithTenant(ctx, req.TenantID)
	op := logger.NewOperationLogger("bulk_import", im.logger).
		WithField("tenant_id", req.TenantID).
		WithField("transactions", len(req.Transactions))

	rows := normalize(req.Transactions)
	key := strings.TrimSpace(req.IdempotencyKey)

	var fingerprint string
	if key != "" {
		op.WithField("idempotency_key", key)

		var err error
		fingerprint, err = Fingerprint(rows)
		if err != nil {
			return nil, errors.InternalError(errors.CodeUnexpectedError, "fingerprint import payload", err)
		}

		if im.cache != nil {
			release, err := im.cache.Lock(ctx, key)
			if err != nil {
				im.logger.WithError(err).WithField("idempotency_key", key).Warn("Could not obtain import lock; proceeding without it")
			}
			defer release()
		}

		rec, err := im.lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			result, err := resolve(rec, req.TenantID, fingerprint)
			if err != nil {
				op.Error(err, "Import rejected")
				return nil, err
			}
			op.Success("Import replayed")
			return result, nil
		}
	}

	result := &Result{}
	var stored *models.IdempotencyRecord
	err := im.store.WithinTx(ctx, func(tx store.Store) error {
		inserted, err := tx.CreateTransactions(ctx, req.TenantID, rows)
		if err != nil {
			return errors.StorageError(errors.CodeQueryFailed, "insert bank transactions", err)
		}

		result.Transactions = inserted
		result.raw, err = json.Marshal(result)
		if err != nil {
			return errors.InternalError(errors.CodeUnexpectedError, "encode import result", err)
		}

		if key == "" {
			return nil
		}

		rec := &models.IdempotencyRecord{
			ID:          uuid.NewString(),
			Key:         key,
			TenantID:    req.TenantID,
			PayloadHash: fingerprint,
			Result:      string(result.raw),
		}
		err = tx.CreateIdempotencyRecord(ctx, rec)
		if stderrors.Is(err, store.ErrDuplicateKey) {
			return errKeyTaken
		}
		if err != nil {
			return errors.StorageError(errors.CodeQueryFailed, "insert idempotency record", err)
		}
		stored = rec
		return nil
	})

	if stderrors.Is(err, errKeyTaken) {
		rec, lookupErr := im.store.GetIdempotencyRecord(ctx, key)
		if lookupErr != nil {
			return nil, errors.StorageError(errors.CodeQueryFailed, "reload idempotency record", lookupErr)
		}
		result, err := resolve(rec, req.TenantID, fingerprint)
		if err != nil {
			op.Error(err, "Import rejected after concurrent insert")
			return nil, err
		}
		op.Success("Import replayed after concurrent insert")
		return result, nil
	}
	if err != nil {
		wrapped := errors.WrapIfNeeded(err, errors.CategoryStorage, errors.CodeTransactionFailed, "bulk import transaction failed")
		op.Error(wrapped, "Import failed")
		return nil, wrapped
	}

	if stored != nil && im.cache != nil {
		im.cache.Put(ctx, stored)
	}

	op.Success("Import completed")
	return result, nil
}

func (im *Importer) lookup(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	if im.cache != nil {
		if rec, ok := im.cache.Get(ctx, key); ok {
			return rec, nil
		}
	}

	rec, err := im.store.GetIdempotencyRecord(ctx, key)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "get idempotency record", err)
	}

	if im.cache != nil {
		im.cache.Put(ctx, rec)
	}
	return rec, nil
}

// resolve replays a stored record or rejects the request. A key stored by
// another tenant is a conflict.
func resolve(rec *models.IdempotencyRecord, tenantID, fingerprint string) (*Result, error) {
	if rec.TenantID != tenantID || rec.PayloadHash != fingerprint {
		return nil, errors.ConflictError(rec.Key)
	}

	result := &Result{Replayed: true, raw: []byte(rec.Result)}
	if err := json.Unmarshal(result.raw, result); err != nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "decode stored import result", err)
	}
	return result, nil
}

// normalize converts inputs to rows, applying the default currency
func normalize(inputs []TransactionInput) []models.BankTransaction {
	rows := make([]models.BankTransaction, 0, len(inputs))
	for _, in := range inputs {
		currency := strings.ToUpper(strings.TrimSpace(in.Currency))
		if currency == "" {
			currency = models.DefaultCurrency
		}
		rows = append(rows, models.BankTransaction{
			ExternalID:  in.ExternalID,
			PostedAt:    in.PostedAt.UTC(),
			Amount:      in.Amount,
			Currency:    currency,
			Description: in.Description,
		})
	}
	return rows
}

package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"invoice-reconciliation-service/internal/models"
)

// canonicalTransaction fixes the field order and formatting hashed for a row
type canonicalTransaction struct {
	ExternalID  *string `json:"externalId"`
	PostedAt    string  `json:"postedAt"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Description *string `json:"description"`
}

// Fingerprint returns the hex SHA-256 of the rows' canonical JSON encoding.
// Amounts are rendered without trailing zeros and timestamps in UTC, so
// equivalent payloads hash alike.
func Fingerprint(rows []models.BankTransaction) (string, error) {
	canonical := make([]canonicalTransaction, 0, len(rows))
	for _, row := range rows {
		canonical = append(canonical, canonicalTransaction{
			ExternalID:  row.ExternalID,
			PostedAt:    row.PostedAt.UTC().Format(time.RFC3339Nano),
			Amount:      row.Amount.String(),
			Currency:    row.Currency,
			Description: row.Description,
		})
	}

	payload, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

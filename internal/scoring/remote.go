package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	apperrors "invoice-reconciliation-service/pkg/errors"

	"github.com/pkg/errors"
)

const (
	// DefaultRemoteTimeout bounds a single remote scoring call
	DefaultRemoteTimeout = 30 * time.Second

	// ScorePath is the remote endpoint, relative to the base URL
	ScorePath = "/reconcile/score"
)

// ScoreRequest is the wire body of a remote scoring call
type ScoreRequest struct {
	TenantID     string            `json:"tenantId" binding:"required"`
	Invoices     []WireInvoice     `json:"invoices" binding:"dive"`
	Transactions []WireTransaction `json:"transactions" binding:"dive"`
	TopN         int               `json:"topN,omitempty" binding:"gte=0"`
}

// WireInvoice is an invoice as sent to the scoring service
type WireInvoice struct {
	ID          string  `json:"id" binding:"required"`
	Amount      float64 `json:"amount"`
	InvoiceDate *string `json:"invoiceDate"`
	Description *string `json:"description"`
	VendorID    *string `json:"vendorId"`
	Currency    string  `json:"currency,omitempty"`
}

// WireTransaction is a bank transaction as sent to the scoring service
type WireTransaction struct {
	ID          string  `json:"id" binding:"required"`
	PostedAt    string  `json:"postedAt" binding:"required"`
	Amount      float64 `json:"amount"`
	Description *string `json:"description"`
	Currency    string  `json:"currency,omitempty"`
}

// ScoreResponse is the wire body returned by the scoring service
type ScoreResponse struct {
	Candidates []models.MatchCandidate `json:"candidates"`
}

// RemoteClient calls the scoring service over HTTP
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteClient creates a client for the service at baseURL. A non-positive
// timeout uses DefaultRemoteTimeout.
func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &RemoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the full scoring URL
func (c *RemoteClient) Endpoint() string {
	return c.baseURL + ScorePath
}

// ScoreCandidates implements Remote
func (c *RemoteClient) ScoreCandidates(ctx context.Context, tenantID string, invoices []models.Invoice, transactions []models.BankTransaction) ([]models.MatchCandidate, error) {
	endpoint := c.Endpoint()

	body, err := json.Marshal(NewScoreRequest(tenantID, invoices, transactions))
	if err != nil {
		return nil, apperrors.InternalError(apperrors.CodeUnexpectedError, "encode score request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.ExternalError(apperrors.CodeConnectionFailed, endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, apperrors.ExternalError(apperrors.CodeTimeout, endpoint, err)
		}
		return nil, apperrors.ExternalError(apperrors.CodeConnectionFailed, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, apperrors.ExternalError(apperrors.CodeServiceUnavailable, endpoint,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var decoded ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperrors.ExternalError(apperrors.CodeMalformedResponse, endpoint, err)
	}
	if decoded.Candidates == nil {
		return nil, apperrors.ExternalError(apperrors.CodeMalformedResponse, endpoint,
			errors.New("response has no candidates field"))
	}
	if err := validateCandidates(decoded.Candidates, invoices, transactions); err != nil {
		return nil, apperrors.ExternalError(apperrors.CodeMalformedResponse, endpoint, err)
	}

	return decoded.Candidates, nil
}

// NewScoreRequest converts domain records to the wire format
func NewScoreRequest(tenantID string, invoices []models.Invoice, transactions []models.BankTransaction) ScoreRequest {
	req := ScoreRequest{
		TenantID:     tenantID,
		Invoices:     make([]WireInvoice, 0, len(invoices)),
		Transactions: make([]WireTransaction, 0, len(transactions)),
	}

	for _, inv := range invoices {
		wire := WireInvoice{
			ID:          inv.ID,
			Amount:      inv.Amount.InexactFloat64(),
			Description: inv.Description,
			VendorID:    inv.VendorID,
			Currency:    inv.Currency,
		}
		if inv.InvoiceDate != nil {
			date := inv.InvoiceDate.UTC().Format(time.RFC3339)
			wire.InvoiceDate = &date
		}
		req.Invoices = append(req.Invoices, wire)
	}

	for _, tx := range transactions {
		req.Transactions = append(req.Transactions, WireTransaction{
			ID:          tx.ID,
			PostedAt:    tx.PostedAt.UTC().Format(time.RFC3339),
			Amount:      tx.Amount.InexactFloat64(),
			Description: tx.Description,
			Currency:    tx.Currency,
		})
	}

	return req
}

// validateCandidates rejects candidates that reference unknown records or
// carry an out-of-range score.
func validateCandidates(candidates []models.MatchCandidate, invoices []models.Invoice, transactions []models.BankTransaction) error {
	invoiceIDs := make(map[string]struct{}, len(invoices))
	for _, inv := range invoices {
		invoiceIDs[inv.ID] = struct{}{}
	}
	txIDs := make(map[string]struct{}, len(transactions))
	for _, tx := range transactions {
		txIDs[tx.ID] = struct{}{}
	}

	for i, c := range candidates {
		if _, ok := invoiceIDs[c.InvoiceID]; !ok {
			return errors.Errorf("candidate %d references unknown invoice %q", i, c.InvoiceID)
		}
		if _, ok := txIDs[c.BankTransactionID]; !ok {
			return errors.Errorf("candidate %d references unknown transaction %q", i, c.BankTransactionID)
		}
		if c.Score < 0 || c.Score > matcher.MaxScore {
			return errors.Errorf("candidate %d has out-of-range score %v", i, c.Score)
		}
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() == context.DeadlineExceeded {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

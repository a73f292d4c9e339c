package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invoice-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func createTestData(invoiceCount, txCount int) ([]models.Invoice, []models.BankTransaction) {
	invoices := make([]models.Invoice, 0, invoiceCount)
	for i := 0; i < invoiceCount; i++ {
		date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		invoices = append(invoices, models.Invoice{
			ID:          fmt.Sprintf("inv-%02d", i),
			TenantID:    "t1",
			Amount:      decimal.RequireFromString("100.00"),
			Currency:    "USD",
			InvoiceDate: &date,
			Status:      models.InvoiceStatusOpen,
		})
	}

	transactions := make([]models.BankTransaction, 0, txCount)
	for j := 0; j < txCount; j++ {
		transactions = append(transactions, models.BankTransaction{
			ID:       fmt.Sprintf("tx-%02d", j),
			TenantID: "t1",
			Amount:   decimal.RequireFromString("100.00"),
			Currency: "USD",
			PostedAt: time.Date(2024, 1, 1+j, 0, 0, 0, 0, time.UTC),
		})
	}

	return invoices, transactions
}

func TestScoreLocal_SortedAndCapped(t *testing.T) {
	scorer := NewCandidateScorer(nil, nil)
	invoices, transactions := createTestData(5, 10)

	candidates := scorer.ScoreLocal(invoices, transactions)

	if len(candidates) != MaxCandidates {
		t.Fatalf("expected %d candidates, got %d", MaxCandidates, len(candidates))
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Score > candidates[i-1].Score {
			t.Fatalf("candidates not sorted at %d: %v > %v", i, candidates[i].Score, candidates[i-1].Score)
		}
	}
	// tx-00..tx-03 are within three days and score 70; ties keep invoice-major order.
	if candidates[0].InvoiceID != "inv-00" || candidates[0].BankTransactionID != "tx-00" {
		t.Errorf("expected first candidate inv-00/tx-00, got %s/%s", candidates[0].InvoiceID, candidates[0].BankTransactionID)
	}
	if candidates[1].InvoiceID != "inv-00" || candidates[1].BankTransactionID != "tx-01" {
		t.Errorf("expected stable tie order, got %s/%s", candidates[1].InvoiceID, candidates[1].BankTransactionID)
	}
	if candidates[0].Score != 70 {
		t.Errorf("expected top score 70, got %v", candidates[0].Score)
	}
}

func TestScoreLocal_FiltersBelowThreshold(t *testing.T) {
	scorer := NewCandidateScorer(nil, nil)
	invoices, transactions := createTestData(1, 1)
	transactions[0].Amount = decimal.RequireFromString("500.00")

	candidates := scorer.ScoreLocal(invoices, transactions)
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
	if candidates == nil {
		t.Error("expected an empty, non-nil slice")
	}
}

func TestScoreCandidates_EmptyInputs(t *testing.T) {
	scorer := NewCandidateScorer(nil, nil)
	invoices, _ := createTestData(3, 0)

	if got := scorer.ScoreCandidates(context.Background(), "t1", invoices, nil); len(got) != 0 {
		t.Errorf("expected no candidates without transactions, got %d", len(got))
	}
}

func TestScoreCandidates_Remote(t *testing.T) {
	invoices, transactions := createTestData(2, 2)

	var received ScoreRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ScorePath || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[
			{"invoiceId":"inv-00","bankTransactionId":"tx-01","score":60},
			{"invoiceId":"inv-01","bankTransactionId":"tx-00","score":95.5,"explanation":"strong"}
		]}`)
	}))
	defer server.Close()

	scorer := NewCandidateScorer(NewRemoteClient(server.URL, time.Second), nil)
	candidates := scorer.ScoreCandidates(context.Background(), "t1", invoices, transactions)

	if received.TenantID != "t1" || len(received.Invoices) != 2 || len(received.Transactions) != 2 {
		t.Errorf("unexpected request payload: %+v", received)
	}
	if received.Invoices[0].InvoiceDate == nil || *received.Invoices[0].InvoiceDate != "2024-01-01T00:00:00Z" {
		t.Errorf("expected RFC3339 invoice date, got %v", received.Invoices[0].InvoiceDate)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Score != 95.5 || candidates[0].Explanation != "strong" {
		t.Errorf("expected remote candidates re-sorted by score, got %+v", candidates[0])
	}
}

func TestScoreCandidates_RemoteFailuresFallBack(t *testing.T) {
	invoices, transactions := createTestData(1, 1)

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"candidates": [`)
			},
		},
		{
			name: "missing candidates field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{}`)
			},
		},
		{
			name: "unknown invoice reference",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"candidates":[{"invoiceId":"other","bankTransactionId":"tx-00","score":90}]}`)
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				fmt.Fprint(w, `{"candidates":[]}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			scorer := NewCandidateScorer(NewRemoteClient(server.URL, 50*time.Millisecond), nil)
			candidates := scorer.ScoreCandidates(context.Background(), "t1", invoices, transactions)

			if len(candidates) != 1 {
				t.Fatalf("expected local fallback candidate, got %d", len(candidates))
			}
			if candidates[0].InvoiceID != "inv-00" || candidates[0].Score != 70 {
				t.Errorf("unexpected fallback candidate %+v", candidates[0])
			}
		})
	}
}

func TestScoreCandidates_UnreachableFallsBack(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	invoices, transactions := createTestData(1, 1)
	scorer := NewCandidateScorer(NewRemoteClient(url, time.Second), nil)

	if got := scorer.ScoreCandidates(context.Background(), "t1", invoices, transactions); len(got) != 1 {
		t.Errorf("expected local fallback, got %d candidates", len(got))
	}
}

func TestScoreCandidates_RemoteResultsClamped(t *testing.T) {
	invoices, transactions := createTestData(5, 5)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := ScoreResponse{}
		for _, inv := range invoices {
			for _, tx := range transactions {
				resp.Candidates = append(resp.Candidates, models.MatchCandidate{
					InvoiceID: inv.ID, BankTransactionID: tx.ID, Score: 55,
				})
			}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	scorer := NewCandidateScorer(NewRemoteClient(server.URL, time.Second), nil)
	if got := scorer.ScoreCandidates(context.Background(), "t1", invoices, transactions); len(got) != MaxCandidates {
		t.Errorf("expected %d candidates, got %d", MaxCandidates, len(got))
	}
}

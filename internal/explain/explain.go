// Package explain produces short natural-language explanations of why an
// invoice and a bank transaction are likely the same payment.
//
// An Explainer tries its language-model Backend first. When no backend is
// configured, or the backend fails or returns nothing, it falls back to a
// deterministic explanation built from the same signals the matcher scores.
// Explain never returns an error.
package explain

import (
	"context"
	"strings"
	"time"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"
)

// DefaultTimeout bounds a single backend call
const DefaultTimeout = 30 * time.Second

// Confidence is a coarse label derived from the match score
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

// ConfidenceFor maps a score to its label; a nil score is unknown
func ConfidenceFor(score *float64) Confidence {
	switch {
	case score == nil:
		return ConfidenceUnknown
	case *score >= 80:
		return ConfidenceHigh
	case *score >= 60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Explanation is the result returned to callers
type Explanation struct {
	Explanation string     `json:"explanation"`
	Confidence  Confidence `json:"confidence"`
}

// Backend generates free text for a prompt
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Explainer explains invoice/transaction pairs
type Explainer struct {
	backend Backend
	timeout time.Duration
	logger  logger.Logger
}

// NewExplainer creates an explainer. A nil backend always uses the
// deterministic explanation.
func NewExplainer(backend Backend, timeout time.Duration) *Explainer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Explainer{
		backend: backend,
		timeout: timeout,
		logger:  logger.GetGlobalLogger().WithComponent("explain"),
	}
}

// Explain returns an explanation and a confidence label for the pair
func (e *Explainer) Explain(ctx context.Context, inv *models.Invoice, tx *models.BankTransaction, score *float64) Explanation {
	confidence := ConfidenceFor(score)

	if e.backend != nil {
		text, err := e.generate(ctx, BuildPrompt(inv, tx, score))
		if err == nil {
			return Explanation{Explanation: text, Confidence: confidence}
		}
		e.logger.WithError(err).
			WithFields(logger.Fields{"invoice_id": inv.ID, "transaction_id": tx.ID}).
			Warn("Explanation backend failed, using deterministic explanation")
	}

	return Explanation{
		Explanation: Deterministic(inv, tx, score),
		Confidence:  confidence,
	}
}

func (e *Explainer) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.backend.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

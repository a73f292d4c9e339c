package api

import (
	"net/http"
	"strings"

	"invoice-reconciliation-service/internal/importer"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/store"
	"invoice-reconciliation-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

// importBody is the JSON body of a bulk import
type importBody struct {
	Transactions   []importer.TransactionInput `json:"transactions"`
	IdempotencyKey string                      `json:"idempotencyKey,omitempty"`
}

func (h *Handler) importTransactions(c *gin.Context) {
	var body importBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errors.ValidationError(errors.CodeInvalidFormat, "body", nil, err).
			WithSuggestion("send {\"transactions\": [...]} with RFC3339 or YYYY-MM-DD postedAt values"))
		return
	}

	// the body key wins over the header
	key := body.IdempotencyKey
	if key == "" {
		key = c.GetHeader(idempotencyHeader)
	}

	result, err := h.importer.BulkImport(c.Request.Context(), importer.Request{
		TenantID:       c.Param("tenantId"),
		Transactions:   body.Transactions,
		IdempotencyKey: key,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	// replays return the stored bytes unchanged
	c.Data(http.StatusCreated, "application/json; charset=utf-8", result.JSON())
}

func (h *Handler) listTransactions(c *gin.Context) {
	tenantID := c.Param("tenantId")

	txs, err := h.transactions.ListTransactions(store.WithTenant(c.Request.Context(), tenantID), tenantID)
	if err != nil {
		writeError(c, errors.StorageError(errors.CodeQueryFailed, "list transactions", err))
		return
	}
	if txs == nil {
		txs = []models.BankTransaction{}
	}
	c.JSON(http.StatusOK, txs)
}

func (h *Handler) reconcile(c *gin.Context) {
	result, err := h.reconciler.Reconcile(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		writeError(c, err)
		return
	}

	candidates := result.Candidates
	if candidates == nil {
		candidates = []models.MatchCandidate{}
	}
	c.JSON(http.StatusCreated, candidates)
}

func (h *Handler) confirmMatch(c *gin.Context) {
	result, err := h.reconciler.ConfirmMatch(c.Request.Context(), c.Param("tenantId"), c.Param("matchId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) listMatches(c *gin.Context) {
	status := models.MatchStatus(strings.ToLower(c.Query("status")))

	matches, err := h.reconciler.ListMatches(c.Request.Context(), c.Param("tenantId"), status)
	if err != nil {
		writeError(c, err)
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}
	c.JSON(http.StatusOK, matches)
}

func (h *Handler) explain(c *gin.Context) {
	invoiceID := firstQuery(c, "invoiceId", "invoice_id")
	transactionID := firstQuery(c, "transactionId", "transaction_id")

	if invoiceID == "" {
		writeError(c, errors.ValidationError(errors.CodeMissingField, "invoiceId", nil, nil))
		return
	}
	if transactionID == "" {
		writeError(c, errors.ValidationError(errors.CodeMissingField, "transactionId", nil, nil))
		return
	}

	result, err := h.reconciler.ExplainMatch(c.Request.Context(), c.Param("tenantId"), invoiceID, transactionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func firstQuery(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(c.Query(name)); v != "" {
			return v
		}
	}
	return ""
}

package api

import (
	"net/http"
	"strings"
	"time"

	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	correlationHeader = "X-Correlation-Id"
	idempotencyHeader = "Idempotency-Key"
	correlationKey    = "correlation_id"
	maxTenantIDLength = 36
)

// correlationID reuses the caller's correlation id or mints one
func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(correlationHeader)
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Set(correlationKey, cid)
		c.Header(correlationHeader, cid)
		c.Next()
	}
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logger.Fields{
			"method":         c.Request.Method,
			"path":           c.FullPath(),
			"status":         c.Writer.Status(),
			"duration":       time.Since(start).String(),
			"correlation_id": c.GetString(correlationKey),
		})
		if tenantID := c.Param("tenantId"); tenantID != "" {
			entry = entry.WithField("tenant_id", tenantID)
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Debug("Request served")
		}
	}
}

// requireTenant rejects blank or oversized tenant ids before any handler runs
func requireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.Param("tenantId"))
		if tenantID == "" || len(tenantID) > maxTenantIDLength {
			writeError(c, errors.ValidationError(errors.CodeInvalidFormat, "tenantId", tenantID, nil))
			c.Abort()
			return
		}
		c.Next()
	}
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Category   errors.ErrorCategory `json:"category"`
	Code       errors.ErrorCode     `json:"code"`
	Message    string               `json:"message"`
	Suggestion string               `json:"suggestion,omitempty"`
}

// writeError renders err with the status its category maps to
func writeError(c *gin.Context, err error) {
	rerr, ok := errors.AsReconcilerError(err)
	if !ok {
		rerr = errors.InternalError(errors.CodeUnexpectedError, c.FullPath(), err)
	}

	c.JSON(rerr.HTTPStatus(), errorBody{
		Category:   rerr.Category,
		Code:       rerr.Code,
		Message:    rerr.Message,
		Suggestion: rerr.Suggestion,
	})
}

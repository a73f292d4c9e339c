package scoresvc

import (
	"net/http"
	"time"

	"invoice-reconciliation-service/internal/scoring"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// NewRouter serves POST /reconcile/score and GET /health
func NewRouter(svc *Service) *gin.Engine {
	log := logger.GetGlobalLogger().WithComponent("scoresvc")

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST(scoring.ScorePath, func(c *gin.Context) {
		start := time.Now()

		var req scoring.ScoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, errors.ValidationError(errors.CodeInvalidFormat, "body", nil, err))
			return
		}

		candidates, err := svc.Score(req)
		if err != nil {
			writeError(c, err)
			return
		}

		log.WithFields(logger.Fields{
			"tenant_id":    req.TenantID,
			"invoices":     len(req.Invoices),
			"transactions": len(req.Transactions),
			"candidates":   len(candidates),
			"duration":     time.Since(start).String(),
		}).Debug("Scored candidates")

		c.JSON(http.StatusOK, scoring.ScoreResponse{Candidates: candidates})
	})

	return r
}

func writeError(c *gin.Context, err error) {
	rerr, ok := errors.AsReconcilerError(err)
	if !ok {
		rerr = errors.InternalError(errors.CodeUnexpectedError, "score candidates", err)
	}
	c.JSON(rerr.HTTPStatus(), gin.H{"code": rerr.Code, "message": rerr.Message})
}

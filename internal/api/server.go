// Package api exposes the reconciliation operations over HTTP.
//
// Every business route lives under /tenants/:tenantId and acts for that
// tenant only. Application errors are rendered as JSON with the status
// reported by ReconcilerError.HTTPStatus.
package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"invoice-reconciliation-service/internal/explain"
	"invoice-reconciliation-service/internal/importer"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Reconciler is the set of orchestrator operations the transport needs
type Reconciler interface {
	Reconcile(ctx context.Context, tenantID string) (*reconciler.ReconcileResult, error)
	ConfirmMatch(ctx context.Context, tenantID, matchID string) (*reconciler.ConfirmResult, error)
	ExplainMatch(ctx context.Context, tenantID, invoiceID, transactionID string) (*explain.Explanation, error)
	ListMatches(ctx context.Context, tenantID string, status models.MatchStatus) ([]models.Match, error)
}

// Importer bulk-imports bank transactions
type Importer interface {
	BulkImport(ctx context.Context, req importer.Request) (*importer.Result, error)
}

// TransactionLister lists a tenant's bank transactions
type TransactionLister interface {
	ListTransactions(ctx context.Context, tenantID string) ([]models.BankTransaction, error)
}

// Config holds HTTP server settings
type Config struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
}

// DefaultConfig returns the defaults used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		ReadTimeout:     30 * time.Second,
	}
}

// Handler serves the REST routes
type Handler struct {
	reconciler   Reconciler
	importer     Importer
	transactions TransactionLister
	logger       logger.Logger
}

// NewHandler creates the route handlers
func NewHandler(rec Reconciler, imp Importer, transactions TransactionLister) *Handler {
	return &Handler{
		reconciler:   rec,
		importer:     imp,
		transactions: transactions,
		logger:       logger.GetGlobalLogger().WithComponent("api"),
	}
}

// NewRouter builds the gin engine with middleware and routes installed
func NewRouter(cfg Config, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(correlationID())
	r.Use(requestLogger(h.logger))
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	tenants := r.Group("/tenants/:tenantId")
	tenants.Use(requireTenant())
	{
		tenants.POST("/bank-transactions/import", h.importTransactions)
		tenants.GET("/bank-transactions", h.listTransactions)
		tenants.POST("/reconcile", h.reconcile)
		tenants.GET("/reconcile/explain", h.explain)
		tenants.GET("/explain", h.explain)
		tenants.GET("/matches", h.listMatches)
		tenants.POST("/matches/:matchId/confirm", h.confirmMatch)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "route_not_found", "message": "no route for " + c.Request.URL.Path})
	})

	return r
}

func corsConfig(allowedOrigins []string) cors.Config {
	config := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}
	config.AddAllowMethods("GET", "POST", "OPTIONS")
	config.AddAllowHeaders("Origin", "Content-Type", "Authorization", idempotencyHeader, correlationHeader)
	config.AddExposeHeaders("Content-Length", correlationHeader)
	return config
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for up to cfg.ShutdownTimeout
func Serve(ctx context.Context, cfg Config, handler http.Handler) error {
	log := logger.GetGlobalLogger().WithComponent("http_server")

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

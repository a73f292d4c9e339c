package cmd

import (
	"context"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/explain"
	"invoice-reconciliation-service/internal/importer"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/scoring"
	"invoice-reconciliation-service/internal/store"
	"invoice-reconciliation-service/internal/store/cache"
	"invoice-reconciliation-service/internal/store/gormstore"
	"invoice-reconciliation-service/internal/store/memstore"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/spf13/viper"
)

// application holds the wired components shared by the commands
type application struct {
	config       *config.AppConfig
	store        store.Store
	orchestrator *reconciler.Orchestrator
	importer     *importer.Importer
	closers      []func() error
}

func loadConfig() (*config.AppConfig, error) {
	return config.Load(viper.GetViper())
}

// newApplication wires the store, the optional cache and the scoring and
// explanation backends from cfg
func newApplication(ctx context.Context, cfg *config.AppConfig) (*application, error) {
	log := logger.GetGlobalLogger().WithComponent("app")
	app := &application{config: cfg}

	switch cfg.Store {
	case config.StoreMySQL:
		db, err := gormstore.Open(cfg.Database)
		if err != nil {
			return nil, errors.StorageError(errors.CodeConnectionFailed, "open database", err)
		}
		app.store = db
		app.closers = append(app.closers, db.Close)
	default:
		log.Warn("Using the in-memory store; data is lost when the process exits")
		app.store = memstore.New()
	}

	var recordCache importer.RecordCache
	if cfg.RedisEnabled() {
		c, err := cache.New(ctx, cfg.Redis)
		if err != nil {
			// imports stay correct without the cache
			log.WithError(err).Warn("Idempotency cache unavailable, continuing without it")
		} else {
			recordCache = c
			app.closers = append(app.closers, c.Close)
		}
	}

	var remote scoring.Remote
	if cfg.RemoteScoringEnabled() {
		remote = scoring.NewRemoteClient(cfg.Scorer.URL, cfg.Scorer.Timeout)
	}

	var backend explain.Backend
	if cfg.GenerativeExplainEnabled() {
		b, err := explain.NewGenAIBackend(ctx, cfg.Explain.GenAIConfig)
		if err != nil {
			log.WithError(err).Warn("Generative explanations unavailable, using deterministic text")
		} else {
			backend = b
		}
	}

	app.orchestrator = reconciler.NewOrchestrator(
		app.store,
		scoring.NewCandidateScorer(remote, nil),
		explain.NewExplainer(backend, cfg.Explain.Timeout),
	)
	app.importer = importer.New(app.store, recordCache)

	log.WithFields(logger.Fields{
		"store":          cfg.Store,
		"remote_scoring": cfg.RemoteScoringEnabled(),
		"cache":          recordCache != nil,
		"generative":     backend != nil,
	}).Debug("Application wired")

	return app, nil
}

// Close releases connections in reverse order of acquisition
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.WithError(err).Warn("Failed to release resource")
		}
	}
}

package cmd

import (
	"fmt"

	"invoice-reconciliation-service/internal/api"
	"invoice-reconciliation-service/internal/scoresvc"
	"invoice-reconciliation-service/internal/store/gormstore"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API",
	Long: `Serve runs the tenant-scoped REST API until interrupted.

Routes (all under /tenants/:tenantId):
  POST /bank-transactions/import
  GET  /bank-transactions
  POST /reconcile
  GET  /matches?status=proposed|confirmed
  POST /matches/:matchId/confirm
  GET  /explain?invoiceId=&transactionId=`,
	RunE: runServe,
}

var scorerCmd = &cobra.Command{
	Use:   "scorer",
	Short: "Run the remote scoring service",
	Long: `Scorer runs the stateless scoring service that answers
POST /reconcile/score for the API's candidate scorer.

Point the API at it with RECONCILER_SCORER_URL.`,
	RunE: runScorer,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reconciler %s\n", getVersionString())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scorerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides http.addr)")
	scorerCmd.Flags().String("addr", "", "listen address (overrides score_service.addr)")
}

func setGinMode() {
	if !viper.GetBool("verbose") {
		gin.SetMode(gin.ReleaseMode)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTP.Addr = addr
	}

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	setGinMode()
	router := api.NewRouter(cfg.HTTP, api.NewHandler(app.orchestrator, app.importer, app.store))

	if err := api.Serve(ctx, cfg.HTTP, router); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "serve http", err)
	}
	return nil
}

func runScorer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	serverConfig := cfg.HTTP
	serverConfig.Addr = cfg.ScoreService.Addr
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		serverConfig.Addr = addr
	}

	setGinMode()
	router := scoresvc.NewRouter(scoresvc.NewService(nil))

	if err := api.Serve(cmd.Context(), serverConfig, router); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "serve scoring", err)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.DSN == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "database.dsn", nil, nil).
			WithSuggestion("set RECONCILER_DATABASE_DSN")
	}

	db, err := gormstore.Open(cfg.Database)
	if err != nil {
		return errors.StorageError(errors.CodeConnectionFailed, "open database", err)
	}
	defer db.Close()

	op := logger.NewOperationLogger("migrate", logger.GetGlobalLogger().WithComponent("cli"))
	if err := db.AutoMigrate(cmd.Context()); err != nil {
		wrapped := errors.StorageError(errors.CodeQueryFailed, "auto migrate", err)
		op.Error(wrapped, "Migration failed")
		return wrapped
	}
	op.Success("Tables are up to date")
	return nil
}

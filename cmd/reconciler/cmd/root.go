package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Multi-tenant invoice reconciliation service",
	Long: `Reconciler matches a tenant's open invoices against imported bank
transactions, proposes scored matches, and lets an operator confirm them.

It runs the REST API, the remote scoring service, and one-shot commands
against the same store.

Examples:
  reconciler serve
  reconciler import --tenant t1 --file statement.csv --idempotency-key jan-2024
  reconciler reconcile --tenant t1 --output-format xlsx --output-file candidates.xlsx
  reconciler confirm --tenant t1 --match 6f1c...
  reconciler explain --tenant t1 --invoice inv-1 --transaction tx-1`,
	Version:       getVersionString(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig loads .env, the optional config file and RECONCILER_* variables,
// then installs the configured logger.
func initConfig() {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(4)
		}
	}

	viper.SetEnvPrefix("RECONCILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	initLogger()

	if viper.GetBool("verbose") && viper.ConfigFileUsed() != "" {
		logger.WithField("file", viper.ConfigFileUsed()).Info("Using config file")
	}
}

func initLogger() {
	logConfig := &logger.Config{
		Level:  logger.Level(viper.GetString("log.level")),
		Format: logger.Format(viper.GetString("log.format")),
		Output: logger.Output(viper.GetString("log.output")),
		File:   viper.GetString("log.file"),
	}
	if viper.GetBool("verbose") {
		logConfig.Level = logger.DebugLevel
	}

	log, err := logger.NewLogger(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid logging configuration, using defaults: %v\n", err)
		return
	}
	logger.SetGlobalLogger(log)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}

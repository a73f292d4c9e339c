package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/reporter"
	"invoice-reconciliation-service/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	reconcileTenant string
	outputFormat    string
	outputFile      string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Score a tenant's open invoices against its bank transactions",
	Long: `Reconcile scores every open invoice of the tenant against every bank
transaction not already part of a confirmed match, stores the best candidates
as proposed matches, and prints a report.

Each run adds a new set of proposed matches; confirm the right ones with
'reconciler confirm'.

Examples:
  # Console report
  reconciler reconcile --tenant t1

  # Spreadsheet for review
  reconciler reconcile --tenant t1 --output-format xlsx --output-file candidates.xlsx

  # Machine-readable output
  reconciler reconcile --tenant t1 --output-format json > candidates.json`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&reconcileTenant, "tenant", "t", "", "tenant id (required)")
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv, xlsx")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	reconcileCmd.MarkFlagRequired("tenant")

	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")

	if err := requireFlag("tenant", reconcileTenant); err != nil {
		return err
	}

	reportConfig, err := config.CreateReportConfig(outputFormat)
	if err != nil {
		return err
	}
	if reportConfig.Format.Binary() && outputFile == "" {
		return errors.ValidationError(errors.CodeMissingField, "output-file", nil, nil).
			WithSuggestion(fmt.Sprintf("%s output is binary; pass --output-file", reportConfig.Format))
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return errors.FileError(errors.CodeFileNotFound, dir, err).
					WithSuggestion("create the output directory first")
			}
		}
	}

	return nil
}

// requireFlag rejects blank values of a required flag
func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.ValidationError(errors.CodeMissingField, name, nil, nil).
			WithSuggestion(fmt.Sprintf("pass --%s", name))
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Reconciling tenant %s (store: %s)...\n", reconcileTenant, cfg.Store)
	}

	result, err := app.orchestrator.Reconcile(ctx, reconcileTenant)
	if err != nil {
		return err
	}

	reportConfig, err := config.CreateReportConfig(outputFormat)
	if err != nil {
		return err
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := generator.WriteFile(result, outputFile); err != nil {
			return err
		}
	} else if err := generator.GenerateReport(result, cmd.OutOrStdout()); err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed in %v.\n", result.Duration)
		fmt.Fprintf(os.Stderr, "Scored %d open invoices against %d eligible transactions; proposed %d matches.\n",
			result.OpenInvoices, result.EligibleTransactions, len(result.Candidates))
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", outputFile)
		}
	}

	return nil
}

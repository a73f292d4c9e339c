package cmd

import (
	"fmt"
	"os"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/importer"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	importTenant         string
	importFile           string
	importFormat         string
	importIdempotencyKey string
	importSkipInvalid    bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a bank statement CSV for a tenant",
	Long: `Import parses a bank statement CSV and inserts its rows as bank
transactions in one atomic batch.

With --idempotency-key, repeating the same import returns the first result
without inserting again; reusing the key for different rows is rejected.

Supported formats: standard (external_id, posted_at, amount, currency,
description), european (semicolon separated, DD.MM.YYYY, decimal comma), us
(MM/DD/YYYY).

Examples:
  reconciler import --tenant t1 --file statement.csv
  reconciler import --tenant t1 --file export.csv --format european --idempotency-key 2024-01`,

	PreRunE: validateImportFlags,
	RunE:    runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importTenant, "tenant", "t", "", "tenant id (required)")
	importCmd.Flags().StringVar(&importFile, "file", "", "path to the statement CSV (required)")
	importCmd.Flags().StringVar(&importFormat, "format", "standard", "statement format: standard, european, us")
	importCmd.Flags().StringVar(&importIdempotencyKey, "idempotency-key", "", "idempotency key for safe retries")
	importCmd.Flags().BoolVar(&importSkipInvalid, "skip-invalid", false, "import the valid rows when some rows fail to parse")

	importCmd.MarkFlagRequired("tenant")
	importCmd.MarkFlagRequired("file")
}

func validateImportFlags(cmd *cobra.Command, args []string) error {
	if err := requireFlag("tenant", importTenant); err != nil {
		return err
	}
	if err := validateFileExists(importFile, "statement file"); err != nil {
		return err
	}
	_, err := config.CreateStatementFormat(importFormat)
	return err
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.ValidationError(errors.CodeMissingField, description, nil, nil)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, filePath, err)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}
	if info.IsDir() {
		return errors.FileError(errors.CodeFileCorrupted, filePath, fmt.Errorf("%s is a directory, expected a file", description))
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, err := config.CreateStatementFormat(importFormat)
	if err != nil {
		return err
	}
	parser, err := parsers.NewStatementParser(format, nil)
	if err != nil {
		return err
	}

	inputs, stats, err := parser.ParseFile(ctx, importFile)
	if err != nil {
		if stats == nil || len(stats.Errors) == 0 || !importSkipInvalid || len(inputs) == 0 {
			return err
		}
		fmt.Fprintln(os.Stderr, errors.FormatParseErrorsForUser(stats.Errors))
		fmt.Fprintf(os.Stderr, "Skipping %d invalid rows, importing %d valid rows\n", len(stats.Errors), len(inputs))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.importer.BulkImport(ctx, importer.Request{
		TenantID:       importTenant,
		Transactions:   inputs,
		IdempotencyKey: importIdempotencyKey,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Replayed {
		fmt.Fprintf(out, "Idempotency key %q already used with the same rows; returning the original %d transactions.\n",
			importIdempotencyKey, len(result.Transactions))
	} else {
		fmt.Fprintf(out, "Imported %d transactions for tenant %s.\n", len(result.Transactions), importTenant)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Parsed %d lines from %s (%d valid)\n", stats.TotalLines, importFile, stats.RecordsValid)
		out.Write(result.JSON())
		fmt.Fprintln(out)
	}
	return nil
}

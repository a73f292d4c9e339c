package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	confirmTenant string
	confirmMatch  string

	explainTenant      string
	explainInvoice     string
	explainTransaction string
	explainJSON        bool
)

var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Confirm a proposed match",
	Long: `Confirm moves a proposed match to confirmed and marks its invoice as
matched, atomically. Confirming a match twice fails.

Example:
  reconciler confirm --tenant t1 --match 6f1c2d3e-...`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFlag("tenant", confirmTenant); err != nil {
			return err
		}
		return requireFlag("match", confirmMatch)
	},
	RunE: runConfirm,
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain how well an invoice and a bank transaction match",
	Long: `Explain describes an invoice/transaction pair in plain language with a
confidence label. When a match exists for the pair, its score sets the
confidence; otherwise the confidence is unknown.

Example:
  reconciler explain --tenant t1 --invoice inv-1 --transaction tx-9`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFlag("tenant", explainTenant); err != nil {
			return err
		}
		if err := requireFlag("invoice", explainInvoice); err != nil {
			return err
		}
		return requireFlag("transaction", explainTransaction)
	},
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(explainCmd)

	confirmCmd.Flags().StringVarP(&confirmTenant, "tenant", "t", "", "tenant id (required)")
	confirmCmd.Flags().StringVarP(&confirmMatch, "match", "m", "", "match id (required)")
	confirmCmd.MarkFlagRequired("tenant")
	confirmCmd.MarkFlagRequired("match")

	explainCmd.Flags().StringVarP(&explainTenant, "tenant", "t", "", "tenant id (required)")
	explainCmd.Flags().StringVar(&explainInvoice, "invoice", "", "invoice id (required)")
	explainCmd.Flags().StringVar(&explainTransaction, "transaction", "", "bank transaction id (required)")
	explainCmd.Flags().BoolVar(&explainJSON, "json", false, "print the explanation as JSON")
	explainCmd.MarkFlagRequired("tenant")
	explainCmd.MarkFlagRequired("invoice")
	explainCmd.MarkFlagRequired("transaction")
}

func runConfirm(cmd *cobra.Command, args []string) error {
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

	result, err := app.orchestrator.ConfirmMatch(ctx, confirmTenant, confirmMatch)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Match %s confirmed; invoice %s is now matched.\n", result.MatchID, result.InvoiceID)
	return nil
}

func runExplain(cmd *cobra.Command, args []string) error {
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

	result, err := app.orchestrator.ExplainMatch(ctx, explainTenant, explainInvoice, explainTransaction)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if explainJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "Confidence: %s\n\n%s\n", result.Confidence, result.Explanation)
	return nil
}

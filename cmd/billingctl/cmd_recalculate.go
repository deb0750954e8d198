package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var (
	recalcModel string
	recalcDate  string
)

var recalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Rebuild consolidated totals",
	Long: `Recompute totals from live values, platform rules and current rates.
Without --model every model of the period is rebuilt.

Examples:
  billingctl recalculate --model 7f1c
  billingctl recalculate --date 2025-03-16`,
	RunE: runRecalculate,
}

func init() {
	rootCmd.AddCommand(recalculateCmd)
	recalculateCmd.Flags().StringVar(&recalcModel, "model", "", "Model id (default: all models)")
	recalculateCmd.Flags().StringVar(&recalcDate, "date", "", "Any date inside the period (default: current period)")
}

func runRecalculate(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	a, err := e.app()
	if err != nil {
		return err
	}

	ctx := context.Background()
	now := time.Now()
	if recalcModel == "" {
		res, err := a.Totals.RecalculateAll(ctx, recalcDate, now)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	}

	res, err := a.Totals.Recalculate(ctx, recalcModel, recalcDate, now)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

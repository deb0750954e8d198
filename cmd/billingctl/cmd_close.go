package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gestioncalc/internal/handlers/business"
)

var (
	closeDate  string
	closeForce bool
)

var closePeriodCmd = &cobra.Command{
	Use:   "close-period",
	Short: "Archive and reset a finished period",
	Long: `Close a billing period. Without --date the previous period is closed.
A completed period is left alone unless --force is given, in which case
models that failed before are retried.

Examples:
  billingctl close-period
  billingctl close-period --date 2025-03-01 --force`,
	RunE: runClosePeriod,
}

func init() {
	rootCmd.AddCommand(closePeriodCmd)
	closePeriodCmd.Flags().StringVar(&closeDate, "date", "", "Any date inside the period to close (YYYY-MM-DD)")
	closePeriodCmd.Flags().BoolVar(&closeForce, "force", false, "Re-run a completed closure")
}

func runClosePeriod(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	a, err := e.app()
	if err != nil {
		return err
	}

	now := time.Now()
	date := closeDate
	if date == "" {
		date = a.Clock.Previous(now).BucketDate()
	}

	res, err := a.Closure.Close(context.Background(), business.CloseRequest{PeriodDate: date, Force: closeForce}, now)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if res.ModelsFailed > 0 {
		return fmt.Errorf("%d model(s) failed: %v", res.ModelsFailed, res.FailedModels())
	}
	return nil
}

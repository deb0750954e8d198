package main

import (
	"time"

	"github.com/spf13/cobra"

	"gestioncalc/internal/period"
	"gestioncalc/pkg/config"
)

var clockAt string

var clockCmd = &cobra.Command{
	Use:   "clock",
	Short: "Print the period clock",
	Long: `Print the current and previous periods with their cutoff instants.

Examples:
  billingctl clock
  billingctl clock --at 2025-03-15T18:30:00-05:00`,
	RunE: runClock,
}

func init() {
	rootCmd.AddCommand(clockCmd)
	clockCmd.Flags().StringVar(&clockAt, "at", "", "RFC3339 instant to evaluate (default: now)")
}

func runClock(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	clock, err := period.Load(settings.LocalTimezone, settings.ForeignTimezone)
	if err != nil {
		return err
	}

	now := time.Now()
	if clockAt != "" {
		if now, err = time.Parse(time.RFC3339, clockAt); err != nil {
			return err
		}
	}
	return printJSON(cmd.OutOrStdout(), clock.Snapshot(now))
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gestioncalc/pkg/config"
)

var queueCmd = &cobra.Command{
	Use:   "purge-queue <name>",
	Short: "Drop every pending message of a queue",
	Long: `Purge a RabbitMQ queue, for example after a watchdog alert storm.

Examples:
  billingctl purge-queue billing_alerts`,
	Args: cobra.ExactArgs(1),
	RunE: runPurgeQueue,
}

func init() {
	rootCmd.AddCommand(queueCmd)
}

func runPurgeQueue(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	log := config.NewLogger(settings)

	conn, err := config.InitRabbitMQ(context.Background(), settings, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	n, err := config.PurgeQueue(conn, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d message(s) from %s\n", n, args[0])
	return nil
}

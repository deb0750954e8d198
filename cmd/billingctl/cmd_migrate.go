package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gestioncalc/pkg/config"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down]",
	Short: "Apply or roll back SQL migrations",
	Long: `Run the shipped SQL migrations against DATABASE_URL.

Examples:
  billingctl migrate up
  billingctl migrate down --dir ./migrations`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "Directory holding the migration files")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		err = config.ExecuteMigrations(e.db, migrationsDir)
	case "down":
		err = config.RollbackMigration(e.db, migrationsDir)
	default:
		return fmt.Errorf("unknown direction %q (want up or down)", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", args[0])
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"gestioncalc/internal/app"
	"gestioncalc/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:           "billingctl",
	Short:         "Operate the quincena billing engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is what every command needs: settings, a logger and a connection.
type env struct {
	settings *config.Settings
	log      *logrus.Logger
	db       *gorm.DB
}

func loadEnv() (*env, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}
	log := config.NewLogger(settings)
	db, err := config.InitDB(settings, log)
	if err != nil {
		return nil, err
	}
	return &env{settings: settings, log: log, db: db}, nil
}

func (e *env) app() (*app.App, error) {
	return app.Build(e.settings, e.db, e.log, nil, nil)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

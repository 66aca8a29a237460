package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sells-group/pharma-pipeline/pkg/database"
)

// migrateCmd applies embedded schema migrations. database.NewClient already
// runs them as part of connecting, so this subcommand exists for operators
// who want migrations applied without starting the HTTP server.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbCfg, err := database.LoadConfigFromEnv()
		if err != nil {
			return fmt.Errorf("loading database config: %w", err)
		}
		dbClient, err := database.NewClient(cmd.Context(), dbCfg)
		if err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		defer dbClient.Close()
		slog.Info("migrations applied", "database", dbCfg.Database)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

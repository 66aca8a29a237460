// Command pharmaengine runs the pharmaceutical-intelligence analysis
// pipeline: an HTTP control API, the database migrator, and the retention
// sweep, following the sells-group-research-cli cmd/ layout (cobra root
// plus one file per subcommand, var cfg populated in PersistentPreRunE).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/pharma-pipeline/pkg/config"
)

var (
	configDir string
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pharmaengine",
	Short: "Pharmaceutical-intelligence analysis pipeline engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Initialize(cmd.Context(), configDir)
		if err != nil {
			return fmt.Errorf("initializing configuration: %w", err)
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sells-group/pharma-pipeline/pkg/database"
	"github.com/sells-group/pharma-pipeline/pkg/retention"
	"github.com/sells-group/pharma-pipeline/pkg/store"
)

var retentionDryRun bool

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Retention sweep administration",
}

var retentionRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the retention sweep once, outside its cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dbCfg, err := database.LoadConfigFromEnv()
		if err != nil {
			return fmt.Errorf("loading database config: %w", err)
		}
		dbClient, err := database.NewClient(ctx, dbCfg)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer dbClient.Close()

		st := store.New(dbClient.Pool)
		mgr := retention.New(retention.Policy{
			AuditYears:              cfg.Retention.AuditYears,
			RequestYears:            cfg.Retention.RequestYears,
			CategoryResultYears:     cfg.Retention.CategoryResultYears,
			SourceConflictYears:     cfg.Retention.SourceConflictYears,
			ProcessTrackingYears:    cfg.Retention.ProcessTrackingYears,
			FailedRequestDays:       cfg.Retention.FailedRequestDays,
			FailedRequestMinRetries: cfg.Retention.FailedRequestMinRetries,
			CronSpec:                cfg.Retention.CronSpec,
		}, st)

		if retentionDryRun {
			if err := mgr.DryRun(ctx); err != nil {
				return fmt.Errorf("retention dry run: %w", err)
			}
			slog.Info("retention dry run complete")
			return nil
		}
		if err := mgr.RunOnce(ctx); err != nil {
			return fmt.Errorf("retention sweep: %w", err)
		}
		slog.Info("retention sweep complete")
		return nil
	},
}

func init() {
	retentionRunCmd.Flags().BoolVar(&retentionDryRun, "dry-run", false, "run the sweep without deleting anything (no per-entity counts are reported)")
	retentionCmd.AddCommand(retentionRunCmd)
	rootCmd.AddCommand(retentionCmd)
}

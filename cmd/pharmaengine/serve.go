package main

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/sells-group/pharma-pipeline/pkg/api"
	"github.com/sells-group/pharma-pipeline/pkg/audit"
	"github.com/sells-group/pharma-pipeline/pkg/config"
	"github.com/sells-group/pharma-pipeline/pkg/database"
	"github.com/sells-group/pharma-pipeline/pkg/engine"
	"github.com/sells-group/pharma-pipeline/pkg/ratelimit"
	"github.com/sells-group/pharma-pipeline/pkg/retention"
	"github.com/sells-group/pharma-pipeline/pkg/store"
	"github.com/sells-group/pharma-pipeline/pkg/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control API and the background retention sweep",
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
		slog.Info("connected to database", "database", dbCfg.Database)

		st := store.New(dbClient.Pool)
		auditLogger := audit.New(st.AuditRepo)

		adapters, err := engine.BuildRegistry(ctx, cfg.Providers)
		if err != nil {
			return fmt.Errorf("building provider registry: %w", err)
		}
		slog.Info("provider registry ready", "providers", len(adapters))

		limiter := buildLimiter(cfg.RateLimit)
		delivery := webhook.New(3)
		eng := engine.New(cfg, st, auditLogger, delivery, adapters, limiter)

		retentionMgr := retention.New(retention.Policy{
			AuditYears:              cfg.Retention.AuditYears,
			RequestYears:            cfg.Retention.RequestYears,
			CategoryResultYears:     cfg.Retention.CategoryResultYears,
			SourceConflictYears:     cfg.Retention.SourceConflictYears,
			ProcessTrackingYears:    cfg.Retention.ProcessTrackingYears,
			FailedRequestDays:       cfg.Retention.FailedRequestDays,
			FailedRequestMinRetries: cfg.Retention.FailedRequestMinRetries,
			CronSpec:                cfg.Retention.CronSpec,
		}, st)
		if err := retentionMgr.Start(ctx); err != nil {
			return fmt.Errorf("starting retention sweep: %w", err)
		}
		defer retentionMgr.Stop()

		gin.SetMode(cfg.HTTP.GinMode)
		srv := api.NewServer(eng, st, auditLogger, cfg, dbClient.Pool)

		slog.Info("HTTP server listening", "port", cfg.HTTP.Port)
		if err := srv.Router().Run(":" + cfg.HTTP.Port); err != nil {
			return fmt.Errorf("running HTTP server: %w", err)
		}
		return nil
	},
}

// buildLimiter wires the Redis sliding-window limiter as primary, falling
// back to the in-process token bucket when Redis is unavailable (spec §5).
// With no Redis address configured, the in-process limiter runs alone.
func buildLimiter(cfg config.RateLimitConfig) ratelimit.Limiter {
	inProcess := ratelimit.NewInProcessLimiter(cfg.MaxRPM)
	if cfg.RedisAddr == "" {
		return inProcess
	}
	client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	redisLimiter := ratelimit.NewRedisLimiter(client, cfg.MaxRPM, cfg.WindowSecs)
	return ratelimit.NewFallback(redisLimiter, inProcess)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

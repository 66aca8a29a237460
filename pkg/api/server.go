// Package api implements the Request Control API (spec §4.13): a thin gin
// HTTP surface over pkg/engine's Submit/Cancel and pkg/store's read paths,
// with a Server struct holding each collaborator and one handler per
// operation.
package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sells-group/pharma-pipeline/pkg/audit"
	"github.com/sells-group/pharma-pipeline/pkg/config"
	"github.com/sells-group/pharma-pipeline/pkg/engine"
	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// Store is the read surface handlers need beyond what engine.Store exposes
// for writes; satisfied by *store.Store.
type Store interface {
	Get(ctx context.Context, id string) (models.Request, error)
	TrackingGet(ctx context.Context, requestID string) (models.ProcessTracking, error)
	BulkGet(ctx context.Context, requestIDs []string) (map[string]models.ProcessTracking, error)
	FinalOutput(ctx context.Context, requestID string) (models.RequestFinalOutput, error)
	CategoryResultsByRequestID(ctx context.Context, requestID string) ([]models.CategoryResult, error)
}

// Server wires the engine and store into gin handlers.
type Server struct {
	engine *engine.Engine
	store  Store
	audit  *audit.Logger
	cfg    *config.Config
	pool   *pgxpool.Pool
}

// NewServer builds a Server.
func NewServer(eng *engine.Engine, store Store, auditLogger *audit.Logger, cfg *config.Config, pool *pgxpool.Pool) *Server {
	return &Server{engine: eng, store: store, audit: auditLogger, cfg: cfg, pool: pool}
}

// Router builds the gin.Engine with every route and its scope middleware
// wired.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.health)

	v1 := r.Group("/v1")
	v1.POST("/requests", requireScope(s.cfg.HTTP.APIKeys, canSubmit), s.submit)
	v1.GET("/requests/:id/status", requireScope(s.cfg.HTTP.APIKeys, canRead), s.getStatus)
	v1.GET("/requests/:id/history", requireScope(s.cfg.HTTP.APIKeys, canRead), s.getHistory)
	v1.GET("/requests/:id/results", requireScope(s.cfg.HTTP.APIKeys, canRead), s.getResults)
	v1.POST("/requests/bulk-status", requireScope(s.cfg.HTTP.APIKeys, canRead), s.bulkStatus)
	v1.POST("/requests/:id/cancel", requireScope(s.cfg.HTTP.APIKeys, canCancel), s.cancel)
	v1.POST("/requests/:id/reprocess", requireScope(s.cfg.HTTP.APIKeys, canSubmit), s.reprocess)

	return r
}

// Package store implements every repository in spec §3 directly against
// PostgreSQL via jackc/pgx/v5, following the pool.QueryRow/Exec +
// rotisserie/eris idiom from sells-group-research-cli's internal/db and
// internal/discovery packages. There is no generated ent client available
// in this codebase (see DESIGN.md "Entities & schema"), so these
// repositories are the real persistence layer, not a thin ent wrapper.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// DB is the subset of pgxpool.Pool's surface the repositories need, narrow
// enough that github.com/pashagolub/pgxmock/v4's PgxPoolIface satisfies it
// for tests without a live database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles every repository behind the connection pool.
type Store struct {
	*RequestRepo
	*CategoryRepo
	*Phase2Repo
	*AuditRepo
	*TrackingRepo
}

// New builds a Store backed by a live pgxpool.Pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		RequestRepo:  &RequestRepo{db: pool},
		CategoryRepo: &CategoryRepo{db: pool},
		Phase2Repo:   &Phase2Repo{db: pool},
		AuditRepo:    &AuditRepo{db: pool},
		TrackingRepo: &TrackingRepo{db: pool},
	}
}

// RequestRepo and TrackingRepo both define Create/Get, so the embedded
// promotion is ambiguous; these forwarders resolve both halves of that pair
// with unambiguous names.

func (s *Store) Create(ctx context.Context, req models.Request) error {
	return s.RequestRepo.Create(ctx, req)
}

func (s *Store) Get(ctx context.Context, id string) (models.Request, error) {
	return s.RequestRepo.Get(ctx, id)
}

func (s *Store) TrackingCreate(ctx context.Context, t models.ProcessTracking) error {
	return s.TrackingRepo.Create(ctx, t)
}

func (s *Store) TrackingGet(ctx context.Context, requestID string) (models.ProcessTracking, error) {
	return s.TrackingRepo.Get(ctx, requestID)
}

func (s *Store) TrackingUpdate(ctx context.Context, t models.ProcessTracking) error {
	return s.TrackingRepo.Update(ctx, t)
}

// CategoryRepo and AuditRepo both define ByRequestID, so that promotion is
// ambiguous too; these forwarders give each an unambiguous name.

func (s *Store) CategoryResultsByRequestID(ctx context.Context, requestID string) ([]models.CategoryResult, error) {
	return s.CategoryRepo.ByRequestID(ctx, requestID)
}

func (s *Store) AuditEventsByRequestID(ctx context.Context, requestID string) ([]models.AuditEvent, error) {
	return s.AuditRepo.ByRequestID(ctx, requestID)
}

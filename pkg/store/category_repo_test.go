package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

func TestCategoryRepo_SaveCategoryResult(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CategoryRepo{db: mock}
	cr := models.CategoryResult{ID: "cr-1", RequestID: "req-1", CategoryID: "pharmacokinetics", Status: models.CategoryCompleted}

	mock.ExpectExec(`INSERT INTO category_results`).
		WithArgs(cr.ID, cr.RequestID, cr.CategoryID, cr.CategoryName, cr.Summary, cr.ConfidenceScore,
			cr.DataQualityScore, cr.Status, cr.ProcessingTimeMS, cr.RetryCount, cr.ErrorMessage, cr.SkipReason,
			cr.StartedAt, cr.CompletedAt, cr.APICallsMade, cr.TokenCount, cr.CostEstimate).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.SaveCategoryResult(context.Background(), cr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepo_SaveProviderResponses(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CategoryRepo{db: mock}
	resp := models.ProviderResponse{ID: "pr-1", Provider: "anthropic_claude"}

	mock.ExpectExec(`INSERT INTO provider_responses`).
		WithArgs(resp.ID, "cr-1", resp.Provider, resp.Model, resp.Temperature, resp.QueryParameters,
			resp.RawText, resp.CitedURLs, resp.LatencyMS, resp.TokenCount, resp.Cost, resp.Checksum,
			resp.RetentionExpiresAt, resp.Kind, resp.AuthorityWeight, resp.Credibility).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.SaveProviderResponses(context.Background(), "cr-1", []models.ProviderResponse{resp}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepo_ByRequestID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CategoryRepo{db: mock}
	cols := []string{"id", "request_id", "category_id", "category_name", "summary", "confidence_score",
		"data_quality_score", "status", "processing_time_ms", "retry_count", "error_message",
		"skip_reason", "started_at", "completed_at", "api_calls_made", "token_count", "cost_estimate"}

	mock.ExpectQuery(`FROM category_results cr`).
		WithArgs("req-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			"cr-1", "req-1", "pharmacokinetics", "Pharmacokinetics", "summary text", 0.9,
			0.8, models.CategoryCompleted, int64(1200), 0, "", "",
			(*time.Time)(nil), (*time.Time)(nil), 2, 500, 0.01))

	got, err := repo.ByRequestID(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cr-1", got[0].ID)
	assert.Equal(t, models.CategoryCompleted, got[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepo_PurgeCategoryResultsOlderThan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CategoryRepo{db: mock}
	cutoff := time.Now()
	mock.ExpectExec(`DELETE FROM category_results WHERE completed_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := repo.PurgeCategoryResultsOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "x", nullIfEmpty("x"))
}

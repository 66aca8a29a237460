package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// CategoryRepo persists CategoryResult, ProviderResponse, MergedData, and
// PipelineStageEvent rows. It implements pkg/stageexec.Sink directly.
type CategoryRepo struct {
	db DB
}

// SaveProviderResponses implements stageexec.Sink.
func (r *CategoryRepo) SaveProviderResponses(ctx context.Context, categoryResultID string, responses []models.ProviderResponse) error {
	for _, resp := range responses {
		_, err := r.db.Exec(ctx,
			`INSERT INTO provider_responses
			 (id, category_result_id, provider, model, temperature, query_parameters, raw_text, cited_urls,
			  latency_ms, token_count, cost, checksum, retention_expires_at, kind, authority_weight, credibility)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			 ON CONFLICT (id) DO NOTHING`,
			resp.ID, categoryResultID, resp.Provider, resp.Model, resp.Temperature, resp.QueryParameters,
			resp.RawText, resp.CitedURLs, resp.LatencyMS, resp.TokenCount, resp.Cost, resp.Checksum,
			resp.RetentionExpiresAt, resp.Kind, resp.AuthorityWeight, resp.Credibility)
		if err != nil {
			return eris.Wrap(err, "store: save provider response")
		}
	}
	return nil
}

// SaveMergedData implements stageexec.Sink.
func (r *CategoryRepo) SaveMergedData(ctx context.Context, merged models.MergedData) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO merged_data
		 (id, category_result_id, merge_method, merged_text, structured_data, confidence, data_quality_score,
		  source_references, conflicts_resolved, key_findings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (category_result_id) DO UPDATE SET
		   merge_method = EXCLUDED.merge_method, merged_text = EXCLUDED.merged_text,
		   structured_data = EXCLUDED.structured_data, confidence = EXCLUDED.confidence,
		   data_quality_score = EXCLUDED.data_quality_score, source_references = EXCLUDED.source_references,
		   conflicts_resolved = EXCLUDED.conflicts_resolved, key_findings = EXCLUDED.key_findings`,
		merged.ID, merged.CategoryResultID, merged.MergeMethod, merged.MergedText, merged.StructuredData,
		merged.Confidence, merged.DataQualityScore, merged.SourceReferences, merged.ConflictsResolved, merged.KeyFindings)
	if err != nil {
		return eris.Wrap(err, "store: save merged data")
	}
	return nil
}

// SaveCategoryResult implements stageexec.Sink.
func (r *CategoryRepo) SaveCategoryResult(ctx context.Context, result models.CategoryResult) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO category_results
		 (id, request_id, category_id, category_name, summary, confidence_score, data_quality_score, status,
		  processing_time_ms, retry_count, error_message, skip_reason, started_at, completed_at,
		  api_calls_made, token_count, cost_estimate)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (request_id, category_id) DO UPDATE SET
		   summary = EXCLUDED.summary, confidence_score = EXCLUDED.confidence_score,
		   data_quality_score = EXCLUDED.data_quality_score, status = EXCLUDED.status,
		   processing_time_ms = EXCLUDED.processing_time_ms, retry_count = EXCLUDED.retry_count,
		   error_message = EXCLUDED.error_message, skip_reason = EXCLUDED.skip_reason,
		   completed_at = EXCLUDED.completed_at, api_calls_made = EXCLUDED.api_calls_made,
		   token_count = EXCLUDED.token_count, cost_estimate = EXCLUDED.cost_estimate`,
		result.ID, result.RequestID, result.CategoryID, result.CategoryName, result.Summary,
		result.ConfidenceScore, result.DataQualityScore, result.Status, result.ProcessingTimeMS,
		result.RetryCount, result.ErrorMessage, result.SkipReason, result.StartedAt, result.CompletedAt,
		result.APICallsMade, result.TokenCount, result.CostEstimate)
	if err != nil {
		return eris.Wrap(err, "store: save category result")
	}
	return nil
}

// RecordStageEvent implements stageexec.Sink.
func (r *CategoryRepo) RecordStageEvent(ctx context.Context, event models.PipelineStageEvent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO pipeline_stage_events
		 (id, request_id, category_id, stage_name, stage_order, executed, skipped, input_digest, output_digest, duration_ms, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, nullIfEmpty(event.RequestID), event.CategoryID, event.StageName, event.Order,
		event.Executed, event.Skipped, event.InputDigest, event.OutputDigest, event.DurationMS, event.Timestamp)
	if err != nil {
		return eris.Wrap(err, "store: record stage event")
	}
	return nil
}

// ByRequestID returns every persisted category result for a request, in
// display order.
func (r *CategoryRepo) ByRequestID(ctx context.Context, requestID string) ([]models.CategoryResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT cr.id, cr.request_id, cr.category_id, cr.category_name, cr.summary, cr.confidence_score,
		        cr.data_quality_score, cr.status, cr.processing_time_ms, cr.retry_count, cr.error_message,
		        cr.skip_reason, cr.started_at, cr.completed_at, cr.api_calls_made, cr.token_count, cr.cost_estimate
		 FROM category_results cr
		 JOIN pharmaceutical_categories pc ON pc.id = cr.category_id
		 WHERE cr.request_id = $1
		 ORDER BY pc.display_order`, requestID)
	if err != nil {
		return nil, eris.Wrap(err, "store: list category results")
	}
	defer rows.Close()

	var out []models.CategoryResult
	for rows.Next() {
		var cr models.CategoryResult
		if err := rows.Scan(&cr.ID, &cr.RequestID, &cr.CategoryID, &cr.CategoryName, &cr.Summary, &cr.ConfidenceScore,
			&cr.DataQualityScore, &cr.Status, &cr.ProcessingTimeMS, &cr.RetryCount, &cr.ErrorMessage,
			&cr.SkipReason, &cr.StartedAt, &cr.CompletedAt, &cr.APICallsMade, &cr.TokenCount, &cr.CostEstimate); err != nil {
			return nil, eris.Wrap(err, "store: scan category result row")
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// PurgeCategoryResultsOlderThan implements retention.Purger.
func (r *CategoryRepo) PurgeCategoryResultsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM category_results WHERE completed_at < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "store: purge category results")
	}
	return tag.RowsAffected(), nil
}

// PurgeSourceConflictsOlderThan implements retention.Purger.
func (r *CategoryRepo) PurgeSourceConflictsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM source_conflicts WHERE detected_at < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "store: purge source conflicts")
	}
	return tag.RowsAffected(), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

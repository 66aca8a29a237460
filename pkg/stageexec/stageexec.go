// Package stageexec runs the fixed collect -> verify -> merge -> summarize
// pipeline (spec §4.2/§4.6) for one category of one request, honoring the
// category's StageToggles and recording a PipelineStageEvent for audit/replay
// for each collect, verify and merge stage it runs. The summarize stage and
// stages disabled in StageToggles record no event.
package stageexec

import (
	"bytes"
	"context"
	"log/slog"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/merge"
	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
	"github.com/sells-group/pharma-pipeline/pkg/summary"
	"github.com/sells-group/pharma-pipeline/pkg/validation"
	"github.com/sells-group/pharma-pipeline/pkg/weighting"
)

// Collector fetches raw provider responses for one category. It fans out to
// every configured provider adapter itself; stageexec treats collection as
// a single step so the scheduler can bound overall category concurrency
// without knowing the provider fan-out inside it.
type Collector interface {
	Collect(ctx context.Context, q providers.Query) ([]models.ProviderResponse, error)
}

// Sink persists stage outputs and PipelineStageEvent records. Implemented by
// pkg/store in production; tests may fake it.
type Sink interface {
	SaveProviderResponses(ctx context.Context, categoryResultID string, responses []models.ProviderResponse) error
	SaveMergedData(ctx context.Context, merged models.MergedData) error
	SaveCategoryResult(ctx context.Context, result models.CategoryResult) error
	RecordStageEvent(ctx context.Context, event models.PipelineStageEvent) error
}

// Executor runs the four stages for one category.
type Executor struct {
	collector Collector
	checker   *validation.Checker
	weigher   *weighting.Weigher
	merger    *merge.Merger
	summarizer *summary.Generator
	sink      Sink
}

// New builds an Executor from its stage collaborators.
func New(collector Collector, checker *validation.Checker, weigher *weighting.Weigher, merger *merge.Merger, summarizer *summary.Generator, sink Sink) *Executor {
	return &Executor{collector: collector, checker: checker, weigher: weigher, merger: merger, summarizer: summarizer, sink: sink}
}

// Run executes collect/verify/merge/summarize for one category, skipping any
// stage disabled in toggles. It returns the final CategoryResult; a stage
// error downgrades the result to CategoryFailed rather than propagating, so
// a single category's failure never aborts the request (spec §4.2).
func (e *Executor) Run(ctx context.Context, req models.Request, cat *models.PharmaceuticalCategory) models.CategoryResult {
	log := slog.With("request_id", req.ID, "category_id", cat.ID)
	start := time.Now()
	result := models.CategoryResult{
		ID: uuid.NewString(), RequestID: req.ID, CategoryID: cat.ID, CategoryName: cat.Name,
		Status: models.CategoryProcessing, StartedAt: ptr(start),
	}

	var responses []models.ProviderResponse
	if cat.StageToggles.Collect {
		var err error
		responses, err = e.runCollect(ctx, req, cat, &result)
		if err != nil {
			return e.fail(ctx, result, start, err)
		}
	}

	if cat.StageToggles.Verify && len(responses) > 0 {
		responses = e.runVerify(ctx, cat, &result, responses)
		if len(responses) == 0 {
			log.WarnContext(ctx, "all provider responses failed verification")
		}
	}

	var merged models.MergedData
	if cat.StageToggles.Merge {
		merged = e.runMerge(ctx, result.ID, cat, responses)
		if err := e.sink.SaveMergedData(ctx, merged); err != nil {
			return e.fail(ctx, result, start, apperr.Wrap(apperr.FatalInternal, err, "persist merged data"))
		}
	}

	if cat.StageToggles.Summarize {
		text, fallback := e.summarizer.Generate(ctx, cat.SummaryStyle, merged)
		result.Summary = text
		if fallback {
			log.WarnContext(ctx, "summary stage used truncation fallback")
		}
	}

	result.Status = models.CategoryCompleted
	result.CompletedAt = ptr(time.Now())
	result.ProcessingTimeMS = time.Since(start).Milliseconds()
	result.ConfidenceScore = merged.Confidence
	result.DataQualityScore = merged.DataQualityScore
	result.StructuredDataKeys = len(merged.StructuredData)

	if err := e.sink.SaveCategoryResult(ctx, result); err != nil {
		log.ErrorContext(ctx, "failed to persist category result", "error", err)
	}
	return result
}

func (e *Executor) runCollect(ctx context.Context, req models.Request, cat *models.PharmaceuticalCategory, result *models.CategoryResult) ([]models.ProviderResponse, error) {
	stageStart := time.Now()
	responses, err := e.collector.Collect(ctx, providers.Query{
		DrugName: req.DrugName, DeliveryMethod: req.DeliveryMethod,
		CategoryID: cat.ID, Prompt: renderPrompt(cat.PromptTemplate, req),
	})
	e.recordStage(ctx, req.ID, cat.ID, models.StageCollect, err == nil, stageStart)
	if err != nil {
		return nil, apperr.Wrap(apperr.TransientExternal, err, "collect stage failed")
	}
	for i := range responses {
		responses[i] = e.weigher.Annotate(responses[i])
	}
	result.APICallsMade = len(responses)
	if err := e.sink.SaveProviderResponses(ctx, result.ID, responses); err != nil {
		slog.WarnContext(ctx, "failed to persist provider responses", "error", err)
	}
	return responses, nil
}

func (e *Executor) runVerify(ctx context.Context, cat *models.PharmaceuticalCategory, result *models.CategoryResult, responses []models.ProviderResponse) []models.ProviderResponse {
	stageStart := time.Now()
	var verified []models.ProviderResponse
	for _, r := range responses {
		checks := e.checker.Verify(r, cat.VerificationCriteria)
		if validation.AllPassed(checks) {
			verified = append(verified, r)
		}
	}
	e.recordStage(ctx, result.RequestID, cat.ID, models.StageVerify, true, stageStart)
	return verified
}

func (e *Executor) runMerge(ctx context.Context, categoryResultID string, cat *models.PharmaceuticalCategory, responses []models.ProviderResponse) models.MergedData {
	stageStart := time.Now()
	merged := e.merger.Merge(ctx, categoryResultID, cat.ID, cat.ConflictResolutionStrategy, responses)
	e.recordStage(ctx, "", cat.ID, models.StageMerge, true, stageStart)
	return merged
}

func (e *Executor) recordStage(ctx context.Context, requestID, categoryID string, stage models.Stage, executed bool, start time.Time) {
	event := models.PipelineStageEvent{
		RequestID: requestID, CategoryID: categoryID, StageName: stage,
		Executed: executed, Skipped: !executed,
		DurationMS: time.Since(start).Milliseconds(), Timestamp: time.Now(),
	}
	if err := e.sink.RecordStageEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to record stage event", "error", err, "stage", stage)
	}
}

func (e *Executor) fail(ctx context.Context, result models.CategoryResult, start time.Time, err error) models.CategoryResult {
	result.Status = models.CategoryFailed
	result.ErrorMessage = err.Error()
	result.CompletedAt = ptr(time.Now())
	result.ProcessingTimeMS = time.Since(start).Milliseconds()
	if saveErr := e.sink.SaveCategoryResult(ctx, result); saveErr != nil {
		slog.ErrorContext(ctx, "failed to persist failed category result", "error", saveErr)
	}
	return result
}

func ptr[T any](v T) *T { return &v }

// renderPrompt substitutes {{.DrugName}}/{{.DeliveryMethod}} into a
// category's prompt template. A template error falls back to the raw
// template text rather than failing the stage outright.
func renderPrompt(tmpl string, req models.Request) string {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, req); err != nil {
		return tmpl
	}
	return buf.String()
}

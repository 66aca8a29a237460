package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/audit"
	"github.com/sells-group/pharma-pipeline/pkg/config"
	"github.com/sells-group/pharma-pipeline/pkg/merge"
	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
	"github.com/sells-group/pharma-pipeline/pkg/ratelimit"
	"github.com/sells-group/pharma-pipeline/pkg/report"
	"github.com/sells-group/pharma-pipeline/pkg/scheduler"
	"github.com/sells-group/pharma-pipeline/pkg/scoring"
	"github.com/sells-group/pharma-pipeline/pkg/stageexec"
	"github.com/sells-group/pharma-pipeline/pkg/status"
	"github.com/sells-group/pharma-pipeline/pkg/summary"
	"github.com/sells-group/pharma-pipeline/pkg/validation"
	"github.com/sells-group/pharma-pipeline/pkg/webhook"
	"github.com/sells-group/pharma-pipeline/pkg/weighting"
)

// Store is the subset of pkg/store.Store the engine needs, expressed as an
// interface so tests can fake it without a live database.
type Store interface {
	Create(ctx context.Context, req models.Request) error
	Get(ctx context.Context, id string) (models.Request, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus, errMsg string) error

	stageexec.Sink

	TrackingCreate(ctx context.Context, t models.ProcessTracking) error
	TrackingGet(ctx context.Context, requestID string) (models.ProcessTracking, error)
	TrackingUpdate(ctx context.Context, t models.ProcessTracking) error

	SaveRouteScore(ctx context.Context, requestID string, score models.RouteScore) error
	SaveFinalOutput(ctx context.Context, out models.RequestFinalOutput) error

	CategoryResultsByRequestID(ctx context.Context, requestID string) ([]models.CategoryResult, error)
}

// Engine runs the full pipeline for one request end to end.
type Engine struct {
	cfg       *config.Config
	store     Store
	audit     *audit.Logger
	webhook   *webhook.Delivery
	collector *FanOutCollector
	adapters  map[string]providers.Adapter
	cancelled map[string]bool
}

// New builds an Engine from its wired collaborators.
func New(cfg *config.Config, store Store, auditLogger *audit.Logger, delivery *webhook.Delivery, adapters map[string]providers.Adapter, limiter ratelimit.Limiter) *Engine {
	return &Engine{
		cfg: cfg, store: store, audit: auditLogger, webhook: delivery,
		adapters:  adapters,
		collector: NewFanOutCollector(adapters, limiter),
		cancelled: make(map[string]bool),
	}
}

// CategoryCount reports the number of active categories a submitted request
// will run, for the submission acknowledgement body.
func (e *Engine) CategoryCount() int {
	return len(activeCategories(e.cfg.Pipeline.Categories, models.Phase1)) + len(activeCategories(e.cfg.Pipeline.Categories, models.Phase2))
}

// EstimateSubmissionCompletion projects total pipeline duration for a
// freshly submitted batch of drugCount requests, on top of the mean
// per-stage durations summed across every active category.
func (e *Engine) EstimateSubmissionCompletion(drugCount int) time.Duration {
	total := e.CategoryCount()
	eta := status.EstimateCompletion(time.Now(), models.ProcessTracking{}, e.cfg.Scoring.MeanStageDurations, total, e.cfg.Pipeline.P1MaxParallel, drugCount)
	if eta == nil {
		return 0
	}
	return time.Until(*eta)
}

// Submit creates a Request and its tracking row and starts processing in the
// background, returning the persisted Request (with its generated ID)
// immediately per spec §4.13's async submission model.
func (e *Engine) Submit(ctx context.Context, req models.Request) (models.Request, error) {
	req.ID = uuid.NewString()
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}

	if err := e.store.Create(ctx, req); err != nil {
		return models.Request{}, apperr.Wrap(apperr.FatalInternal, err, "create request")
	}

	total := e.CategoryCount()
	tracking := models.ProcessTracking{RequestID: req.ID, Status: models.StatusSubmitted, CategoriesTotal: total}
	if err := e.store.TrackingCreate(ctx, tracking); err != nil {
		return models.Request{}, apperr.Wrap(apperr.FatalInternal, err, "create process tracking")
	}

	if err := e.audit.RecordProcessStart(ctx, req.ID, req.CorrelationID); err != nil {
		slog.ErrorContext(ctx, "failed to record process start", "error", err)
	}

	go e.process(context.Background(), req)
	return req, nil
}

// Cancel flips a request to cancelled. The running pipeline observes this at
// its next suspension point (spec §5).
func (e *Engine) Cancel(ctx context.Context, requestID string) error {
	tracking, err := e.store.TrackingGet(ctx, requestID)
	if err != nil {
		return apperr.Wrap(apperr.FatalInternal, err, "load tracking for cancel")
	}
	if err := status.Transition(&tracking, models.StatusCancelled); err != nil {
		return err
	}
	e.cancelled[requestID] = true
	if err := e.store.TrackingUpdate(ctx, tracking); err != nil {
		return apperr.Wrap(apperr.FatalInternal, err, "persist cancellation")
	}
	return e.store.UpdateStatus(ctx, requestID, models.StatusCancelled, "")
}

func (e *Engine) isCancelled(requestID string) bool {
	return e.cancelled[requestID]
}

// process runs Phase 1, Phase 2, scoring, and report composition for req,
// persisting status transitions along the way and delivering the webhook at
// completion. Each suspension point checks the cancellation flag.
func (e *Engine) process(ctx context.Context, req models.Request) {
	log := slog.With("request_id", req.ID, "drug_name", req.DrugName)

	checker := validation.New()
	weigher := weighting.New(time.Now)
	merger := merge.New(merge.AdapterLLMMerger{Adapter: e.pickAdapter("anthropic_claude")})
	summarizer := summary.New(e.pickAdapter("anthropic_claude"))
	executor := stageexec.New(e.collector, checker, weigher, merger, summarizer, e.store)

	sched := scheduler.New(e.cfg.Pipeline.P1MaxParallel, &phase1Runner{executor: executor}, &phase2Runner{executor: executor, engine: e})

	if err := e.advance(ctx, req.ID, models.StatusCollecting); err != nil {
		log.ErrorContext(ctx, "failed to advance to collecting", "error", err)
		return
	}

	p1Categories := activeCategories(e.cfg.Pipeline.Categories, models.Phase1)
	phase1Results := sched.RunPhase1(ctx, req, p1Categories)
	e.persistCategoryProgress(ctx, req.ID, phase1Results)

	if e.isCancelled(req.ID) {
		e.finishCancelled(ctx, req.ID, phase1Results)
		return
	}

	if allFailed(phase1Results) {
		e.fail(ctx, req, "all phase 1 categories failed")
		return
	}

	if err := e.advance(ctx, req.ID, models.StatusVerifying); err != nil {
		return
	}
	if err := e.advance(ctx, req.ID, models.StatusMerging); err != nil {
		return
	}
	if err := e.advance(ctx, req.ID, models.StatusSummarizing); err != nil {
		return
	}

	e.runPhase2Onward(ctx, req, executor, phase1Results)
}

// runPhase2Onward scores both delivery routes, runs every active Phase-2
// category, composes the final report, and delivers the webhook. Shared by
// process (fresh Phase-1 results) and Reprocess (Phase-1 results loaded
// back from storage).
func (e *Engine) runPhase2Onward(ctx context.Context, req models.Request, executor *stageexec.Executor, phase1Results []models.CategoryResult) {
	log := slog.With("request_id", req.ID, "drug_name", req.DrugName)

	scorer := e.buildScorer()
	td := scorer.ScoreRequest(ctx, withRoute(req, models.DeliveryTransdermal), phase1Results)
	tm := scorer.ScoreRequest(ctx, withRoute(req, models.DeliveryTransmucosal), phase1Results)
	if err := e.store.SaveRouteScore(ctx, req.ID, td); err != nil {
		log.ErrorContext(ctx, "failed to save transdermal route score", "error", err)
	}
	if err := e.store.SaveRouteScore(ctx, req.ID, tm); err != nil {
		log.ErrorContext(ctx, "failed to save transmucosal route score", "error", err)
	}

	p2Ctx := &phase2Context{td: td, tm: tm, phase1: phase1Results}
	p2Runner := &phase2Runner{executor: executor, engine: e, ctx: p2Ctx}
	sched2 := scheduler.New(e.cfg.Pipeline.P1MaxParallel, &phase1Runner{executor: executor}, p2Runner)
	p2Categories := activeCategories(e.cfg.Pipeline.Categories, models.Phase2)
	phase2Results, err := sched2.RunPhase2(ctx, req, p2Categories, e.cfg.Pipeline.Dependencies)
	if err != nil {
		e.fail(ctx, req, "phase 2 scheduling error: "+err.Error())
		return
	}
	e.persistCategoryProgress(ctx, req.ID, phase2Results)

	composer := report.New(report.AdapterNarrativeGenerator{Adapter: e.pickAdapter("anthropic_claude")})
	final := composer.Compose(ctx, req, phase1Results, phase2Results, td, tm)
	if err := e.store.SaveFinalOutput(ctx, final); err != nil {
		log.ErrorContext(ctx, "failed to save final output", "error", err)
	}

	if err := e.store.UpdateStatus(ctx, req.ID, models.StatusCompleted, ""); err != nil {
		log.ErrorContext(ctx, "failed to mark request completed", "error", err)
	}
	if err := e.audit.RecordProcessComplete(ctx, req.ID, req.CorrelationID); err != nil {
		log.ErrorContext(ctx, "failed to record process complete", "error", err)
	}

	if req.CallbackURL != "" {
		payload := webhook.Payload{RequestID: req.ID, Status: string(models.StatusCompleted), CompletedAt: time.Now(), CorrelationID: req.CorrelationID}
		if td.Verdict == models.VerdictGo || tm.Verdict == models.VerdictGo {
			payload.Verdict = models.VerdictGo
		} else {
			payload.Verdict = tm.Verdict
		}
		if err := e.webhook.Send(ctx, req.CallbackURL, payload); err != nil {
			log.WarnContext(ctx, "webhook delivery failed", "error", err)
		}
	}
}

// Reprocess reruns only the Phase-2 chain for a request whose Phase-1
// results are already persisted, without repeating data collection. It is
// supplemental to spec §4.13's named operations (SPEC_FULL.md §12), modeled
// on the reference implementation's phase2_reprocess endpoint, and is
// restricted to requests already in a terminal state with at least one
// completed Phase-1 category result on record.
func (e *Engine) Reprocess(ctx context.Context, requestID string) error {
	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		return apperr.Wrap(apperr.FatalInternal, err, "load request for reprocess")
	}
	tracking, err := e.store.TrackingGet(ctx, requestID)
	if err != nil {
		return apperr.Wrap(apperr.FatalInternal, err, "load tracking for reprocess")
	}
	if tracking.Status != models.StatusCompleted && tracking.Status != models.StatusFailed {
		return apperr.New(apperr.ClientBadRequest, "reprocess requires a terminal request")
	}

	all, err := e.store.CategoryResultsByRequestID(ctx, requestID)
	if err != nil {
		return apperr.Wrap(apperr.FatalInternal, err, "load category results for reprocess")
	}
	phase1Categories := activeCategories(e.cfg.Pipeline.Categories, models.Phase1)
	phase1ByID := make(map[string]bool, len(phase1Categories))
	for _, c := range phase1Categories {
		phase1ByID[c.ID] = true
	}
	var phase1Results []models.CategoryResult
	for _, r := range all {
		if phase1ByID[r.CategoryID] {
			phase1Results = append(phase1Results, r)
		}
	}
	if len(phase1Results) == 0 {
		return apperr.New(apperr.ClientBadRequest, "no phase 1 results available to reprocess from")
	}

	checker := validation.New()
	weigher := weighting.New(time.Now)
	merger := merge.New(merge.AdapterLLMMerger{Adapter: e.pickAdapter("anthropic_claude")})
	summarizer := summary.New(e.pickAdapter("anthropic_claude"))
	executor := stageexec.New(e.collector, checker, weigher, merger, summarizer, e.store)

	// Reprocessing re-enters the state machine from a terminal state, which
	// the normal submitted->...->completed transition table has no edge
	// for; set the tracking row directly rather than through Transition.
	tracking.Status = models.StatusSummarizing
	if err := e.store.TrackingUpdate(ctx, tracking); err != nil {
		return apperr.Wrap(apperr.FatalInternal, err, "reset tracking for reprocess")
	}
	go e.runPhase2Onward(context.Background(), req, executor, phase1Results)
	return nil
}

func (e *Engine) advance(ctx context.Context, requestID string, to models.RequestStatus) error {
	tracking, err := e.store.TrackingGet(ctx, requestID)
	if err != nil {
		return apperr.Wrap(apperr.FatalInternal, err, "load tracking")
	}
	if err := status.Transition(&tracking, to); err != nil {
		return err
	}
	return e.store.TrackingUpdate(ctx, tracking)
}

func (e *Engine) fail(ctx context.Context, req models.Request, reason string) {
	if err := e.store.UpdateStatus(ctx, req.ID, models.StatusFailed, reason); err != nil {
		slog.ErrorContext(ctx, "failed to mark request failed", "error", err)
	}
	if err := e.audit.RecordProcessError(ctx, req.ID, req.CorrelationID, reason); err != nil {
		slog.ErrorContext(ctx, "failed to record process error", "error", err)
	}
}

func (e *Engine) finishCancelled(ctx context.Context, requestID string, _ []models.CategoryResult) {
	if err := e.store.UpdateStatus(ctx, requestID, models.StatusCancelled, ""); err != nil {
		slog.ErrorContext(ctx, "failed to persist cancellation", "error", err)
	}
}

func (e *Engine) persistCategoryProgress(ctx context.Context, requestID string, results []models.CategoryResult) {
	tracking, err := e.store.TrackingGet(ctx, requestID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load tracking for progress update", "error", err)
		return
	}
	completed := 0
	for _, r := range results {
		if r.Status == models.CategoryCompleted {
			completed++
		}
	}
	tracking.CategoriesCompleted += completed
	tracking.ProgressPercent = status.ProgressPercent(tracking)
	if err := e.store.TrackingUpdate(ctx, tracking); err != nil {
		slog.ErrorContext(ctx, "failed to persist progress", "error", err)
	}
}

func (e *Engine) buildScorer() *scoring.Scorer {
	ranges := make([]scoring.Range, len(e.cfg.Scoring.Ranges))
	for i, r := range e.cfg.Scoring.Ranges {
		ranges[i] = scoring.Range{Parameter: r.Parameter, DeliveryMethod: r.DeliveryMethod, Min: r.Min, Max: r.Max, Score: r.Score, IsExclusion: r.IsExclusion, RangeText: r.RangeText}
	}
	keywords := map[models.Parameter][]string{
		models.ParamDose:            {"dose", "dosage", "mg/day"},
		models.ParamMolecularWeight: {"molecular weight", "Da", "mw"},
		models.ParamMeltingPoint:    {"melting point"},
		models.ParamLogP:            {"logp", "log p", "partition coefficient"},
	}
	waterfall := []scoring.Extractor{
		scoring.Phase1SummaryExtractor{Keywords: keywords},
		scoring.DedicatedLLMExtractor{Adapter: e.pickAdapter("anthropic_claude")},
		scoring.LiveSearchExtractor{Adapter: e.pickAdapter("tavily_search")},
	}
	return scoring.New(waterfall, ranges, e.pickAdapter("anthropic_claude"))
}

func (e *Engine) pickAdapter(name string) providers.Adapter {
	return e.adapters[name]
}

func withRoute(req models.Request, route models.DeliveryMethod) models.Request {
	req.DeliveryMethod = route
	return req
}

func activeCategories(all map[string]*models.PharmaceuticalCategory, phase models.CategoryPhase) []*models.PharmaceuticalCategory {
	out := make([]*models.PharmaceuticalCategory, 0, len(all))
	for _, c := range all {
		if c.IsActive && c.Phase == phase {
			out = append(out, c)
		}
	}
	return out
}

func allFailed(results []models.CategoryResult) bool {
	for _, r := range results {
		if r.Status == models.CategoryCompleted {
			return false
		}
	}
	return len(results) > 0
}

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/stageexec"
)

// scoringMatrixCategoryID is the one Phase-2 category that never runs
// through stageexec: its output is the already-computed RouteScore pair
// rather than an LLM synthesis of prior text (spec §4.8).
const scoringMatrixCategoryID = "scoring_matrix"

// phase1Runner adapts *stageexec.Executor to scheduler.Phase1Runner.
type phase1Runner struct {
	executor *stageexec.Executor
}

func (r *phase1Runner) RunPhase1(ctx context.Context, req models.Request, cat *models.PharmaceuticalCategory) models.CategoryResult {
	return r.executor.Run(ctx, req, cat)
}

// phase2Context carries the data a Phase-2 category run needs beyond what
// the scheduler's priorResults map provides: the two already-scored routes.
type phase2Context struct {
	td, tm models.RouteScore
	phase1 []models.CategoryResult
}

// phase2Runner adapts *stageexec.Executor to scheduler.Phase2Runner,
// special-casing the scoring matrix and enriching every other category's
// prompt with the prior Phase-1/Phase-2 results before delegating to Run.
type phase2Runner struct {
	executor *stageexec.Executor
	engine   *Engine
	ctx      *phase2Context
}

func (r *phase2Runner) RunPhase2(ctx context.Context, req models.Request, cat *models.PharmaceuticalCategory, priorResults map[string]models.CategoryResult) models.CategoryResult {
	if cat.ID == scoringMatrixCategoryID {
		return r.scoringMatrixResult(cat)
	}

	enriched := enrichedCategory(cat, r.ctx, priorResults)
	return r.executor.Run(ctx, req, enriched)
}

// scoringMatrixResult turns the routes already computed and persisted in
// Engine.process into a CategoryResult so downstream Phase-2 categories see
// it as a satisfied dependency.
func (r *phase2Runner) scoringMatrixResult(cat *models.PharmaceuticalCategory) models.CategoryResult {
	now := time.Now()
	summary := fmt.Sprintf(
		"Transdermal: %.1f/9 (%s). Transmucosal: %.1f/9 (%s).",
		r.ctx.td.Total, r.ctx.td.Verdict, r.ctx.tm.Total, r.ctx.tm.Verdict,
	)
	return models.CategoryResult{
		ID: uuid.NewString(), CategoryID: cat.ID, CategoryName: cat.Name,
		Status: models.CategoryCompleted, Summary: summary,
		StartedAt: &now, CompletedAt: &now,
	}
}

// enrichedCategory shallow-copies cat and rewrites its PromptTemplate to
// include prior results, returning a fresh value so concurrent requests
// never mutate the category shared from the global config map.
func enrichedCategory(cat *models.PharmaceuticalCategory, p2 *phase2Context, priorResults map[string]models.CategoryResult) *models.PharmaceuticalCategory {
	clone := *cat
	clone.PromptTemplate = cat.PromptTemplate + "\n\n" + priorContext(p2, priorResults)
	return &clone
}

func priorContext(p2 *phase2Context, priorResults map[string]models.CategoryResult) string {
	out := fmt.Sprintf("Scoring matrix: transdermal %.1f/9 (%s), transmucosal %.1f/9 (%s).\n",
		p2.td.Total, p2.td.Verdict, p2.tm.Total, p2.tm.Verdict)
	for _, r := range p2.phase1 {
		if r.Summary != "" {
			out += fmt.Sprintf("%s: %s\n", r.CategoryName, r.Summary)
		}
	}
	for _, r := range priorResults {
		if r.Summary != "" {
			out += fmt.Sprintf("%s: %s\n", r.CategoryName, r.Summary)
		}
	}
	return out
}

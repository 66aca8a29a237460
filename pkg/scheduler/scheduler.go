// Package scheduler runs Phase 1 (bounded-parallel) and Phase 2
// (dependency-ordered, sequential) category execution for one request (spec
// §4.1/§4.7). Phase 1 fan-out uses golang.org/x/sync/errgroup with
// SetLimit(P1_MAX); Phase 2 topologically sorts the configured dependency
// graph and runs one category at a time so a later category can consume an
// earlier one's output.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// Phase1Runner executes one category and returns its result. Phase1Runner
// and Phase2Runner may be the same *stageexec.Executor in production, kept
// as separate interfaces here since Phase 2 categories consume the prior
// Phase 1/Phase 2 results as additional context.
type Phase1Runner interface {
	RunPhase1(ctx context.Context, req models.Request, cat *models.PharmaceuticalCategory) models.CategoryResult
}

type Phase2Runner interface {
	RunPhase2(ctx context.Context, req models.Request, cat *models.PharmaceuticalCategory, priorResults map[string]models.CategoryResult) models.CategoryResult
}

// Scheduler orchestrates phase execution for one request.
type Scheduler struct {
	p1Max int
	p1    Phase1Runner
	p2    Phase2Runner
}

// New builds a Scheduler. p1Max caps Phase-1 concurrency (spec §4.7's
// P1_MAX = min(N_categories, 8)).
func New(p1Max int, p1 Phase1Runner, p2 Phase2Runner) *Scheduler {
	if p1Max <= 0 {
		p1Max = 8
	}
	return &Scheduler{p1Max: p1Max, p1: p1, p2: p2}
}

// RunPhase1 executes every active Phase-1 category for req, bounded to
// p1Max concurrent categories. One category's failure does not cancel the
// others; results for every category are always returned, ordered by
// DisplayOrder.
func (s *Scheduler) RunPhase1(ctx context.Context, req models.Request, categories []*models.PharmaceuticalCategory) []models.CategoryResult {
	ordered := sortedActive(categories, models.Phase1)
	results := make([]models.CategoryResult, len(ordered))

	limit := s.p1Max
	if limit > len(ordered) {
		limit = len(ordered)
	}
	if limit <= 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, cat := range ordered {
		i, cat := i, cat
		g.Go(func() error {
			results[i] = s.p1.RunPhase1(gctx, req, cat)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// RunPhase2 executes active Phase-2 categories in dependency order (spec
// §4.7 step 4: scoring first, then categories that consume it). A category
// whose dependency failed or was skipped is itself marked skipped rather
// than run against incomplete input.
func (s *Scheduler) RunPhase2(ctx context.Context, req models.Request, categories []*models.PharmaceuticalCategory, deps []models.CategoryDependency) ([]models.CategoryResult, error) {
	ordered := sortedActive(categories, models.Phase2)
	order, err := topoSort(ordered, deps)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.PharmaceuticalCategory, len(ordered))
	for _, c := range ordered {
		byID[c.ID] = c
	}
	required := requiredBy(deps)

	var mu sync.Mutex
	priorResults := make(map[string]models.CategoryResult)
	results := make([]models.CategoryResult, 0, len(order))

	for _, id := range order {
		cat, ok := byID[id]
		if !ok {
			continue
		}

		if skipReason := unmetDependency(required[id], priorResults); skipReason != "" {
			res := models.CategoryResult{
				RequestID: req.ID, CategoryID: cat.ID, CategoryName: cat.Name,
				Status: models.CategorySkipped, SkipReason: skipReason,
			}
			mu.Lock()
			priorResults[id] = res
			mu.Unlock()
			results = append(results, res)
			slog.WarnContext(ctx, "skipping phase 2 category with unmet dependency", "category_id", id, "reason", skipReason)
			continue
		}

		res := s.p2.RunPhase2(ctx, req, cat, priorResults)
		mu.Lock()
		priorResults[id] = res
		mu.Unlock()
		results = append(results, res)
	}
	return results, nil
}

func unmetDependency(requiredIDs []string, priorResults map[string]models.CategoryResult) string {
	for _, reqID := range requiredIDs {
		res, ok := priorResults[reqID]
		if !ok || (res.Status != models.CategoryCompleted) {
			return fmt.Sprintf("required category %q did not complete", reqID)
		}
	}
	return ""
}

func requiredBy(deps []models.CategoryDependency) map[string][]string {
	out := make(map[string][]string)
	for _, d := range deps {
		out[d.Dependent] = append(out[d.Dependent], d.Required)
	}
	return out
}

func sortedActive(categories []*models.PharmaceuticalCategory, phase models.CategoryPhase) []*models.PharmaceuticalCategory {
	var out []*models.PharmaceuticalCategory
	for _, c := range categories {
		if c.IsActive && c.Phase == phase {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out
}

// topoSort orders category ids so every dependency precedes its dependent,
// breaking ties by DisplayOrder for determinism. Returns an error if the
// graph (restricted to the active category set) contains a cycle -- this
// should never happen for a config that passed pkg/config.Validate, but
// RunPhase2 checks again since a Phase-2 category can be deactivated
// independently at runtime.
func topoSort(categories []*models.PharmaceuticalCategory, deps []models.CategoryDependency) ([]string, error) {
	present := make(map[string]bool, len(categories))
	orderOf := make(map[string]int, len(categories))
	for _, c := range categories {
		present[c.ID] = true
		orderOf[c.ID] = c.DisplayOrder
	}

	adj := make(map[string][]string)
	indegree := make(map[string]int)
	for _, c := range categories {
		indegree[c.ID] = 0
	}
	for _, d := range deps {
		if !present[d.Dependent] || !present[d.Required] {
			continue
		}
		adj[d.Required] = append(adj[d.Required], d.Dependent)
		indegree[d.Dependent]++
	}

	var queue []string
	for _, c := range categories {
		if indegree[c.ID] == 0 {
			queue = append(queue, c.ID)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool { return orderOf[queue[i]] < orderOf[queue[j]] })

	var order []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		var next []string
		for _, dep := range adj[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				next = append(next, dep)
			}
		}
		sort.SliceStable(next, func(i, j int) bool { return orderOf[next[i]] < orderOf[next[j]] })
		queue = append(queue, next...)
		sort.SliceStable(queue, func(i, j int) bool { return orderOf[queue[i]] < orderOf[queue[j]] })
	}

	if len(order) != len(categories) {
		return nil, fmt.Errorf("phase 2 category dependency graph has a cycle")
	}
	return order, nil
}

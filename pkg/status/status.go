// Package status implements the request state machine and progress
// projection (spec §4.10): legal transitions between RequestStatus values,
// the progress-percent formula derived from completed stages/categories,
// and an estimated-completion time from configured mean stage durations.
package status

import (
	"time"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// transitions enumerates the legal state machine edges. Terminal states
// (completed/failed/cancelled) have no outgoing edges.
var transitions = map[models.RequestStatus][]models.RequestStatus{
	models.StatusSubmitted:   {models.StatusCollecting, models.StatusFailed, models.StatusCancelled},
	models.StatusCollecting:  {models.StatusVerifying, models.StatusFailed, models.StatusCancelled},
	models.StatusVerifying:   {models.StatusMerging, models.StatusFailed, models.StatusCancelled},
	models.StatusMerging:     {models.StatusSummarizing, models.StatusFailed, models.StatusCancelled},
	models.StatusSummarizing: {models.StatusCompleted, models.StatusFailed, models.StatusCancelled},
}

// CanTransition reports whether from -> to is a legal state machine edge.
func CanTransition(from, to models.RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change, returning an
// apperr.InvalidTransition error for an illegal edge.
func Transition(tracking *models.ProcessTracking, to models.RequestStatus) error {
	if !CanTransition(tracking.Status, to) {
		return apperr.Newf(apperr.InvalidTransition, "cannot transition from %s to %s", tracking.Status, to)
	}
	tracking.Status = to
	return nil
}

// stageBaseProgress is the floor each status contributes before accounting
// for categories completed within that stage, per spec §4.10.
var stageBaseProgress = map[models.RequestStatus]int{
	models.StatusSubmitted:   0,
	models.StatusCollecting:  20,
	models.StatusVerifying:   80,
	models.StatusMerging:     90,
	models.StatusSummarizing: 95,
	models.StatusCompleted:   100,
}

// ProgressPercent computes overall completion from the current stage's base
// value plus a share of that stage's budget proportional to how many
// categories have already completed, per spec §4.10: collecting spans
// 20-80, verifying 80-90, merging 90-95, summarizing 95-99. Failed and
// cancelled requests keep whatever progress was last recorded.
func ProgressPercent(tracking models.ProcessTracking) int {
	if tracking.Status == models.StatusFailed || tracking.Status == models.StatusCancelled {
		return tracking.ProgressPercent
	}
	base, ok := stageBaseProgress[tracking.Status]
	if !ok {
		return tracking.ProgressPercent
	}
	if tracking.CategoriesTotal <= 0 {
		return base
	}
	ratio := float64(tracking.CategoriesCompleted) / float64(tracking.CategoriesTotal)

	switch tracking.Status {
	case models.StatusCollecting:
		return min(80, base+int(ratio*60))
	case models.StatusVerifying:
		return min(90, base+int(ratio*10))
	case models.StatusMerging:
		return min(95, base+int(ratio*5))
	case models.StatusSummarizing:
		return min(99, base+int(ratio*4))
	default:
		return base
	}
}

// EstimateCompletion projects a completion time from mean stage durations,
// the number of categories remaining to run, and the drug count of the
// submission being estimated. Phase-1's parallel execution is weighted by
// p1Max so a wide category fan-out doesn't serialize in the estimate the
// way it won't in practice, and the remaining time is scaled by spec
// §4.10's batch-size factor (1 + 0.5*(drugCount-1)) * 1.2 to account for
// larger submissions and general system load.
func EstimateCompletion(now time.Time, tracking models.ProcessTracking, meanDurations map[models.Stage]time.Duration, categoriesRemaining, p1Max, drugCount int) *time.Time {
	if categoriesRemaining <= 0 {
		return nil
	}
	var perCategory time.Duration
	for _, stage := range models.StageOrder {
		perCategory += meanDurations[stage]
	}
	if p1Max <= 0 {
		p1Max = 1
	}
	batches := (categoriesRemaining + p1Max - 1) / p1Max
	remaining := time.Duration(batches) * perCategory

	if drugCount < 1 {
		drugCount = 1
	}
	multiplier := (1 + 0.5*float64(drugCount-1)) * 1.2
	remaining = time.Duration(float64(remaining) * multiplier)

	eta := now.Add(remaining)
	return &eta
}

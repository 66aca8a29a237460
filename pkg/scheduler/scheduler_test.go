package scheduler

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

type fakePhase1 struct {
	calls int32
}

func (f *fakePhase1) RunPhase1(_ context.Context, req models.Request, cat *models.PharmaceuticalCategory) models.CategoryResult {
	atomic.AddInt32(&f.calls, 1)
	return models.CategoryResult{RequestID: req.ID, CategoryID: cat.ID, CategoryName: cat.Name, Status: models.CategoryCompleted}
}

type fakePhase2 struct {
	fail map[string]bool
}

func (f *fakePhase2) RunPhase2(_ context.Context, req models.Request, cat *models.PharmaceuticalCategory, prior map[string]models.CategoryResult) models.CategoryResult {
	status := models.CategoryCompleted
	if f.fail != nil && f.fail[cat.ID] {
		status = models.CategoryFailed
	}
	return models.CategoryResult{RequestID: req.ID, CategoryID: cat.ID, CategoryName: cat.Name, Status: status}
}

func cat(id string, phase models.CategoryPhase, order int) *models.PharmaceuticalCategory {
	return &models.PharmaceuticalCategory{ID: id, Name: id, Phase: phase, DisplayOrder: order, IsActive: true}
}

func TestScheduler_RunPhase1_RunsAllActiveCategories(t *testing.T) {
	p1 := &fakePhase1{}
	s := New(2, p1, &fakePhase2{})

	cats := []*models.PharmaceuticalCategory{
		cat("a", models.Phase1, 1),
		cat("b", models.Phase1, 2),
		{ID: "c", Name: "c", Phase: models.Phase1, DisplayOrder: 3, IsActive: false},
		cat("d", models.Phase2, 4),
	}

	results := s.RunPhase1(context.Background(), models.Request{ID: "r1"}, cats)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].CategoryID)
	assert.Equal(t, "b", results[1].CategoryID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&p1.calls))
}

func TestScheduler_RunPhase1_ZeroActiveReturnsEmpty(t *testing.T) {
	s := New(4, &fakePhase1{}, &fakePhase2{})
	results := s.RunPhase1(context.Background(), models.Request{ID: "r1"}, nil)
	assert.Empty(t, results)
}

func TestScheduler_RunPhase2_OrdersByDependency(t *testing.T) {
	s := New(4, &fakePhase1{}, &fakePhase2{})
	cats := []*models.PharmaceuticalCategory{
		cat("scoring", models.Phase2, 1),
		cat("report", models.Phase2, 2),
	}
	deps := []models.CategoryDependency{{Dependent: "report", Required: "scoring"}}

	results, err := s.RunPhase2(context.Background(), models.Request{ID: "r1"}, cats, deps)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "scoring", results[0].CategoryID)
	assert.Equal(t, "report", results[1].CategoryID)
	assert.Equal(t, models.CategoryCompleted, results[1].Status)
}

func TestScheduler_RunPhase2_SkipsDependentOnFailure(t *testing.T) {
	s := New(4, &fakePhase1{}, &fakePhase2{fail: map[string]bool{"scoring": true}})
	cats := []*models.PharmaceuticalCategory{
		cat("scoring", models.Phase2, 1),
		cat("report", models.Phase2, 2),
	}
	deps := []models.CategoryDependency{{Dependent: "report", Required: "scoring"}}

	results, err := s.RunPhase2(context.Background(), models.Request{ID: "r1"}, cats, deps)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, models.CategoryFailed, results[0].Status)
	assert.Equal(t, models.CategorySkipped, results[1].Status)
	assert.Contains(t, results[1].SkipReason, "scoring")
}

func TestScheduler_RunPhase2_CycleReturnsError(t *testing.T) {
	s := New(4, &fakePhase1{}, &fakePhase2{})
	cats := []*models.PharmaceuticalCategory{
		cat("a", models.Phase2, 1),
		cat("b", models.Phase2, 2),
	}
	deps := []models.CategoryDependency{
		{Dependent: "a", Required: "b"},
		{Dependent: "b", Required: "a"},
	}

	_, err := s.RunPhase2(context.Background(), models.Request{ID: "r1"}, cats, deps)
	assert.Error(t, err)
}

func TestNew_DefaultsP1Max(t *testing.T) {
	s := New(0, &fakePhase1{}, &fakePhase2{})
	assert.Equal(t, 8, s.p1Max)
}

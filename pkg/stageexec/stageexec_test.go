package stageexec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pharma-pipeline/pkg/merge"
	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
	"github.com/sells-group/pharma-pipeline/pkg/summary"
	"github.com/sells-group/pharma-pipeline/pkg/validation"
	"github.com/sells-group/pharma-pipeline/pkg/weighting"
)

type fakeCollector struct {
	responses []models.ProviderResponse
	err       error
}

func (f fakeCollector) Collect(context.Context, providers.Query) ([]models.ProviderResponse, error) {
	return f.responses, f.err
}

type fakeSink struct {
	savedResponses []models.ProviderResponse
	savedMerged    *models.MergedData
	savedResult    *models.CategoryResult
	events         []models.PipelineStageEvent
}

func (f *fakeSink) SaveProviderResponses(_ context.Context, _ string, responses []models.ProviderResponse) error {
	f.savedResponses = responses
	return nil
}

func (f *fakeSink) SaveMergedData(_ context.Context, merged models.MergedData) error {
	f.savedMerged = &merged
	return nil
}

func (f *fakeSink) SaveCategoryResult(_ context.Context, result models.CategoryResult) error {
	f.savedResult = &result
	return nil
}

func (f *fakeSink) RecordStageEvent(_ context.Context, event models.PipelineStageEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newExecutor(collector Collector, sink Sink) *Executor {
	return New(collector, validation.New(), weighting.New(nil), merge.New(nil), summary.New(nil), sink)
}

func allStagesCategory() *models.PharmaceuticalCategory {
	return &models.PharmaceuticalCategory{
		ID: "cat-1", Name: "Chemistry",
		StageToggles: models.StageToggles{Collect: true, Verify: true, Merge: true, Summarize: true},
	}
}

func TestExecutor_Run_FullPipelineSucceeds(t *testing.T) {
	collector := fakeCollector{responses: []models.ProviderResponse{
		{Provider: "fda_label", RawText: "melting point 150C"},
	}}
	sink := &fakeSink{}
	e := newExecutor(collector, sink)

	result := e.Run(context.Background(), models.Request{ID: "r1", DrugName: "aspirin"}, allStagesCategory())

	assert.Equal(t, models.CategoryCompleted, result.Status)
	assert.Equal(t, 1, result.APICallsMade)
	require.NotNil(t, sink.savedResult)
	require.NotNil(t, sink.savedMerged)
	assert.NotEmpty(t, sink.events)
}

func TestExecutor_Run_CollectFailureMarksFailed(t *testing.T) {
	collector := fakeCollector{err: errors.New("provider down")}
	sink := &fakeSink{}
	e := newExecutor(collector, sink)

	result := e.Run(context.Background(), models.Request{ID: "r1"}, allStagesCategory())

	assert.Equal(t, models.CategoryFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "collect stage failed")
	require.NotNil(t, sink.savedResult)
	assert.Equal(t, models.CategoryFailed, sink.savedResult.Status)
}

func TestExecutor_Run_CollectDisabledSkipsStage(t *testing.T) {
	collector := fakeCollector{responses: []models.ProviderResponse{{RawText: "unused"}}}
	sink := &fakeSink{}
	cat := allStagesCategory()
	cat.StageToggles.Collect = false
	e := newExecutor(collector, sink)

	result := e.Run(context.Background(), models.Request{ID: "r1"}, cat)

	assert.Equal(t, models.CategoryCompleted, result.Status)
	assert.Equal(t, 0, result.APICallsMade)
	assert.Nil(t, sink.savedResponses)
}

func TestExecutor_Run_SummarizeDisabledLeavesSummaryEmpty(t *testing.T) {
	collector := fakeCollector{responses: []models.ProviderResponse{{RawText: "data"}}}
	sink := &fakeSink{}
	cat := allStagesCategory()
	cat.StageToggles.Summarize = false
	e := newExecutor(collector, sink)

	result := e.Run(context.Background(), models.Request{ID: "r1"}, cat)

	assert.Equal(t, models.CategoryCompleted, result.Status)
	assert.Empty(t, result.Summary)
}

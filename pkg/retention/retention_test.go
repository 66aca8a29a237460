package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	auditCount      int64
	requestsPurged  int64
	categoryPurged  int64
	conflictsPurged int64
	trackingPurged  int64
	failedPurged    int64
	auditPurged     int64

	calls []string
}

func (f *fakePurger) PurgeRequestsOlderThan(context.Context, time.Time) (int64, error) {
	f.calls = append(f.calls, "requests")
	return f.requestsPurged, nil
}

func (f *fakePurger) PurgeCategoryResultsOlderThan(context.Context, time.Time) (int64, error) {
	f.calls = append(f.calls, "category_results")
	return f.categoryPurged, nil
}

func (f *fakePurger) PurgeSourceConflictsOlderThan(context.Context, time.Time) (int64, error) {
	f.calls = append(f.calls, "source_conflicts")
	return f.conflictsPurged, nil
}

func (f *fakePurger) PurgeProcessTrackingOlderThan(context.Context, time.Time) (int64, error) {
	f.calls = append(f.calls, "process_tracking")
	return f.trackingPurged, nil
}

func (f *fakePurger) PurgeFailedRequestsOlderThan(context.Context, time.Time, int) (int64, error) {
	f.calls = append(f.calls, "failed_requests")
	return f.failedPurged, nil
}

func (f *fakePurger) PurgeAuditEventsOlderThan(context.Context, time.Time) (int64, error) {
	f.calls = append(f.calls, "audit_events")
	f.auditCount -= f.auditPurged
	return f.auditPurged, nil
}

func (f *fakePurger) CountAuditEvents(context.Context) (int64, error) {
	return f.auditCount, nil
}

func testPolicy() Policy {
	return Policy{
		AuditYears: 7, RequestYears: 2, CategoryResultYears: 2, SourceConflictYears: 2,
		ProcessTrackingYears: 1, FailedRequestDays: 30, FailedRequestMinRetries: 3,
		CronSpec: "0 3 * * *",
	}
}

func TestManager_RunOnce_SweepsEveryEntity(t *testing.T) {
	purger := &fakePurger{auditCount: 100, requestsPurged: 5}
	m := New(testPolicy(), purger)

	require.NoError(t, m.RunOnce(context.Background()))
	assert.Contains(t, purger.calls, "requests")
	assert.Contains(t, purger.calls, "category_results")
	assert.Contains(t, purger.calls, "source_conflicts")
	assert.Contains(t, purger.calls, "process_tracking")
	assert.Contains(t, purger.calls, "failed_requests")
	assert.Contains(t, purger.calls, "audit_events")
}

func TestManager_DryRun_NeverPurges(t *testing.T) {
	purger := &fakePurger{auditCount: 100}
	m := New(testPolicy(), purger)

	require.NoError(t, m.DryRun(context.Background()))
	assert.Empty(t, purger.calls, "dry run must not call any Purge* method")
}

func TestManager_StartStop(t *testing.T) {
	purger := &fakePurger{auditCount: 10}
	m := New(testPolicy(), purger)

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()), "starting twice is a no-op")
	m.Stop()
	m.Stop()
}

func TestManager_Start_InvalidCronSpec(t *testing.T) {
	purger := &fakePurger{}
	policy := testPolicy()
	policy.CronSpec = "not a cron spec"
	m := New(policy, purger)

	assert.Error(t, m.Start(context.Background()))
}

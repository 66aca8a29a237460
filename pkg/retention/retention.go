// Package retention implements the scheduled retention sweep (spec §4.12):
// each entity class is purged past its configured age, audit events past
// the audit policy are deleted last (they are not archived, so a run lowers
// the audit count by the number it removes), and the run then logs a
// warning if the audit count fell by more than that audit purge removed.
// The sweep itself is driven by github.com/robfig/cron rather than a bare
// ticker so operators can configure it with a standard cron expression.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
)

// Purger deletes entity rows older than cutoff and returns the row count
// removed. Implemented by pkg/store for each entity class.
type Purger interface {
	PurgeRequestsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeCategoryResultsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeSourceConflictsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeProcessTrackingOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeFailedRequestsOlderThan(ctx context.Context, cutoff time.Time, minRetries int) (int64, error)
	PurgeAuditEventsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	CountAuditEvents(ctx context.Context) (int64, error)
}

// Policy mirrors pkg/config.RetentionConfig's numeric fields.
type Policy struct {
	AuditYears              int
	RequestYears            int
	CategoryResultYears     int
	SourceConflictYears     int
	ProcessTrackingYears    int
	FailedRequestDays       int
	FailedRequestMinRetries int
	CronSpec                string
}

// Manager runs the retention sweep on a cron schedule.
type Manager struct {
	policy Policy
	purger Purger
	now    func() time.Time
	cron   *cron.Cron
}

// New builds a Manager.
func New(policy Policy, purger Purger) *Manager {
	return &Manager{policy: policy, purger: purger, now: time.Now}
}

// Start schedules the sweep per policy.CronSpec and begins running it in
// the background. Calling Start twice is a no-op after the first.
func (m *Manager) Start(ctx context.Context) error {
	if m.cron != nil {
		return nil
	}
	m.cron = cron.New()
	err := m.cron.AddFunc(m.policy.CronSpec, func() {
		if err := m.RunOnce(ctx); err != nil {
			slog.ErrorContext(ctx, "retention sweep failed", "error", err)
		}
	})
	if err != nil {
		m.cron = nil
		return apperr.Wrap(apperr.FatalInternal, err, "invalid retention cron spec")
	}
	m.cron.Start()
	slog.InfoContext(ctx, "retention manager started", "cron_spec", m.policy.CronSpec)
	return nil
}

// Stop halts the scheduled sweep; in-flight runs complete.
func (m *Manager) Stop() {
	if m.cron == nil {
		return
	}
	m.cron.Stop()
	m.cron = nil
}

// RunOnce executes the full sweep immediately, used both by the scheduled
// job and by the `pharmaengine retention run` CLI subcommand.
func (m *Manager) RunOnce(ctx context.Context) error {
	return m.run(ctx, false)
}

// DryRun goes through the sweep without deleting anything: it calls no
// Purge* method and computes or reports no per-entity counts; it only reads
// the audit-event count.
func (m *Manager) DryRun(ctx context.Context) error {
	return m.run(ctx, true)
}

func (m *Manager) run(ctx context.Context, dryRun bool) error {
	now := m.now()
	log := slog.With("dry_run", dryRun)

	countBefore, err := m.purger.CountAuditEvents(ctx)
	if err != nil {
		return apperr.Wrap(apperr.FatalInternal, err, "count audit events before sweep")
	}

	sweeps := []struct {
		name   string
		cutoff time.Time
		run    func(time.Time) (int64, error)
	}{
		{"requests", now.AddDate(-m.policy.RequestYears, 0, 0), m.purger.PurgeRequestsOlderThan},
		{"category_results", now.AddDate(-m.policy.CategoryResultYears, 0, 0), m.purger.PurgeCategoryResultsOlderThan},
		{"source_conflicts", now.AddDate(-m.policy.SourceConflictYears, 0, 0), m.purger.PurgeSourceConflictsOlderThan},
		{"process_tracking", now.AddDate(-m.policy.ProcessTrackingYears, 0, 0), m.purger.PurgeProcessTrackingOlderThan},
	}

	for _, s := range sweeps {
		if dryRun {
			continue
		}
		count, err := s.run(ctx, s.cutoff)
		if err != nil {
			return apperr.Wrap(apperr.FatalInternal, err, "purge "+s.name)
		}
		if count > 0 {
			log.InfoContext(ctx, "retention swept entity", "entity", s.name, "count", count)
		}
	}

	failedCutoff := now.AddDate(0, 0, -m.policy.FailedRequestDays)
	if !dryRun {
		if count, err := m.purger.PurgeFailedRequestsOlderThan(ctx, failedCutoff, m.policy.FailedRequestMinRetries); err != nil {
			return apperr.Wrap(apperr.FatalInternal, err, "purge failed requests")
		} else if count > 0 {
			log.InfoContext(ctx, "retention swept failed requests", "count", count)
		}
	}

	auditCutoff := now.AddDate(-m.policy.AuditYears, 0, 0)
	var auditPurged int64
	if !dryRun {
		n, err := m.purger.PurgeAuditEventsOlderThan(ctx, auditCutoff)
		if err != nil {
			return apperr.Wrap(apperr.FatalInternal, err, "purge audit events")
		}
		auditPurged = n
	}

	countAfter, err := m.purger.CountAuditEvents(ctx)
	if err != nil {
		return apperr.Wrap(apperr.FatalInternal, err, "count audit events after sweep")
	}
	// Any drop beyond the audit purge's own count is unexpected loss (e.g. a
	// cascading delete from an unrelated foreign key).
	if !dryRun && countAfter < countBefore-auditPurged {
		log.WarnContext(ctx, "audit event count dropped more than the sweep itself accounts for",
			"before", countBefore, "after", countAfter, "audit_purged", auditPurged)
	}

	return nil
}

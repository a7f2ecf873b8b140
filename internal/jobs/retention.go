// Package jobs contains the service's background loops. retention.go
// implements the RetentionJob, which periodically purges audit log rows whose
// soft-deletion timestamp has aged past the configured retention window. Soft
// deletion keeps rows recoverable and visible to compliance tooling; the purge
// is what eventually reclaims the space. The job is a no-op when
// audit.retention_days is zero, so it is always safe to start.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/audittrail/audittrail/internal/telemetry"
)

// RetentionJob hard-deletes audit log rows soft-deleted longer ago than the
// retention window.
type RetentionJob struct {
	db            *sqlx.DB
	retentionDays int
	interval      time.Duration
	stopChan      chan struct{}
}

// NewRetentionJob creates the job. intervalHours controls how often the purge
// runs (default 24h).
func NewRetentionJob(db *sqlx.DB, retentionDays, intervalHours int) *RetentionJob {
	if intervalHours <= 0 {
		intervalHours = 24
	}
	return &RetentionJob{
		db:            db,
		retentionDays: retentionDays,
		interval:      time.Duration(intervalHours) * time.Hour,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the background purge loop. It runs an initial purge
// immediately, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop() is called.
func (j *RetentionJob) Start(ctx context.Context) {
	if j.retentionDays <= 0 {
		slog.Info("audit retention job disabled (audit.retention_days=0)")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	slog.Info("audit retention job started",
		"interval", j.interval,
		"retention_days", j.retentionDays)

	j.runPurge(ctx)

	for {
		select {
		case <-ticker.C:
			j.runPurge(ctx)
		case <-j.stopChan:
			slog.Info("audit retention job stopped")
			return
		case <-ctx.Done():
			slog.Info("audit retention job context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (j *RetentionJob) Stop() {
	close(j.stopChan)
}

// runPurge removes rows whose deleted_at is older than the retention window.
// Live rows are never touched; only soft-deleted rows age out.
func (j *RetentionJob) runPurge(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)

	result, err := j.db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE deleted_at IS NOT NULL AND deleted_at < $1`,
		cutoff,
	)
	if err != nil {
		slog.Error("audit retention purge failed", "error", err)
		return
	}

	purged, err := result.RowsAffected()
	if err != nil || purged == 0 {
		return
	}

	telemetry.RetentionPurgedTotal.Add(float64(purged))
	slog.Info("audit retention purge completed", "purged", purged, "cutoff", cutoff)
}

package jobs

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newRetentionJob(t *testing.T, retentionDays int) (*RetentionJob, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRetentionJob(sqlx.NewDb(db, "sqlmock"), retentionDays, 24), mock
}

func TestRunPurge_DeletesOnlyAgedSoftDeletedRows(t *testing.T) {
	job, mock := newRetentionJob(t, 90)

	mock.ExpectExec(`DELETE FROM audit_logs WHERE deleted_at IS NOT NULL AND deleted_at < \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 17))

	job.runPurge(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStart_DisabledWhenRetentionIsZero(t *testing.T) {
	job, mock := newRetentionJob(t, 0)

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("disabled job must return immediately")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("disabled job must not touch the database: %v", err)
	}
}

func TestStart_RunsInitialPurgeAndStops(t *testing.T) {
	job, mock := newRetentionJob(t, 30)

	mock.ExpectExec(`DELETE FROM audit_logs`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	// Give the initial purge a moment before stopping the loop.
	time.Sleep(50 * time.Millisecond)
	job.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	job, mock := newRetentionJob(t, 30)

	mock.ExpectExec(`DELETE FROM audit_logs`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not react to context cancellation")
	}
}

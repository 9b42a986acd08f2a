package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

func TestReportRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec("INSERT INTO report_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	job := &models.ReportJob{TermID: "term-1", Format: "csv"}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM report_jobs WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateBuildsDynamicSet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	status := models.ReportStatusCompleted
	progress := 100
	resultURL := "/api/v1/schedule/exports/token"
	finished := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET status = $1, progress = $2, result_url = $3, finished_at = $4 WHERE id = $5")).
		WithArgs(status, progress, resultURL, finished, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateReportJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  &resultURL,
		FinishedAt: &finished,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateNoFieldsIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateReportJobParams{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListFinishedBefore(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	cutoff := time.Now().Add(-24 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "term_id", "format", "status", "progress", "result_url", "created_at", "finished_at", "error_message"}).
		AddRow("job-1", "term-1", "csv", "COMPLETED", 100, "/api/v1/schedule/exports/tok", time.Now().Add(-48*time.Hour), time.Now().Add(-47*time.Hour), nil)
	mock.ExpectQuery("SELECT (.+) FROM report_jobs\\s+WHERE status IN").
		WithArgs(cutoff, 10).
		WillReturnRows(rows)

	jobs, err := repo.ListFinishedBefore(context.Background(), cutoff, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.True(t, jobs[0].ResultURL.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"id", "term_id", "format", "status", "progress", "result_url", "created_at", "finished_at", "error_message"}).
		AddRow("job-2", "term-1", "pdf", "QUEUED", 0, nil, time.Now(), nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM report_jobs WHERE status = 'QUEUED'").
		WithArgs(20).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.ReportStatusQueued, jobs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

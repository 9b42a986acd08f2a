package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssignmentRepositoryBulkCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_assignments")).
		WithArgs(sqlmock.AnyArg(), "term-1", "sec-1", "slot-1", "room-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_assignments")).
		WithArgs(sqlmock.AnyArg(), "term-1", "sec-2", "slot-2", "room-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignments := []models.Assignment{
		{TermID: "term-1", SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
		{TermID: "term-1", SectionID: "sec-2", TimeSlotID: "slot-2", ClassroomID: "room-1"},
	}

	require.NoError(t, repo.BulkCreate(context.Background(), nil, assignments))
	assert.NotEmpty(t, assignments[0].ID, "ids are generated on insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListByTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "term_id", "section_id", "time_slot_id", "classroom_id", "created_at", "updated_at"}).
		AddRow("a-1", "term-1", "sec-1", "slot-1", "room-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, term_id, section_id, time_slot_id, classroom_id, created_at, updated_at FROM schedule_assignments WHERE term_id = $1 ORDER BY section_id ASC")).
		WithArgs("term-1").
		WillReturnRows(rows)

	assignments, err := repo.ListByTerm(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
	assert.Equal(t, "sec-1", assignments[0].SectionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeleteByTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_assignments WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnResult(sqlmock.NewResult(0, 12))

	affected, err := repo.DeleteByTerm(context.Background(), nil, "term-1")
	require.NoError(t, err)
	assert.EqualValues(t, 12, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryWithTxRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_assignments WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		_, err := repo.DeleteByTerm(context.Background(), tx, "term-1")
		return err
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

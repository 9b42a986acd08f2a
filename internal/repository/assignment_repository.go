package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetable-api/internal/models"
)

// AssignmentRepository persists timetable rows.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const assignmentColumns = `id, term_id, section_id, time_slot_id, classroom_id, created_at, updated_at`

// ListByTerm returns the persisted timetable for a term ordered by section.
func (r *AssignmentRepository) ListByTerm(ctx context.Context, termID string) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_assignments WHERE term_id = $1 ORDER BY section_id ASC`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, termID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// CountByTerm returns the number of timetable rows stored for a term.
func (r *AssignmentRepository) CountByTerm(ctx context.Context, termID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM schedule_assignments WHERE term_id = $1`, termID); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return total, nil
}

// BulkCreate inserts assignments, optionally inside a caller-owned
// transaction. One session per section is enforced by the unique index on
// (term_id, section_id).
func (r *AssignmentRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, assignments []models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO schedule_assignments (id, term_id, section_id, time_slot_id, classroom_id, created_at, updated_at)
VALUES (:id, :term_id, :section_id, :time_slot_id, :classroom_id, :created_at, :updated_at)`

	for i := range assignments {
		a := &assignments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, a); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

// DeleteByTerm removes every timetable row of a term and reports how many
// rows were dropped. Runs against the transaction when one is supplied.
func (r *AssignmentRepository) DeleteByTerm(ctx context.Context, exec sqlx.ExtContext, termID string) (int64, error) {
	target := r.exec(exec)
	res, err := target.ExecContext(ctx, `DELETE FROM schedule_assignments WHERE term_id = $1`, termID)
	if err != nil {
		return 0, fmt.Errorf("delete assignments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete assignments rows affected: %w", err)
	}
	return affected, nil
}

// WithTx runs fn inside a transaction, rolling back on error.
func (r *AssignmentRepository) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

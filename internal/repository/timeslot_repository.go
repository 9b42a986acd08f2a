package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

// TimeSlotRepository manages the per-term slot catalog.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs a TimeSlotRepository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

const timeSlotColumns = `id, term_id, day_of_week, start_time, end_time, period_index, created_at, updated_at`

// ListByTerm returns the full slot catalog ordered by day and period.
func (r *TimeSlotRepository) ListByTerm(ctx context.Context, termID string) ([]models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE term_id = $1 ORDER BY day_of_week ASC, period_index ASC`, timeSlotColumns)
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, termID); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// GetByID returns one slot or ErrNotFound.
func (r *TimeSlotRepository) GetByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE id = $1`, timeSlotColumns)
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, fmt.Errorf("get time slot: %w", err)
	}
	return &slot, nil
}

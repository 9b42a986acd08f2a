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

// TermRepository reads academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs a TermRepository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

const termColumns = `id, academic_year, semester, name, active, created_at, updated_at`

// GetByID returns one term or ErrNotFound.
func (r *TermRepository) GetByID(ctx context.Context, id string) (*models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM terms WHERE id = $1`, termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, fmt.Errorf("get term: %w", err)
	}
	return &term, nil
}

// List returns all terms, newest academic year first.
func (r *TermRepository) List(ctx context.Context) ([]models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM terms ORDER BY academic_year DESC, semester DESC`, termColumns)
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

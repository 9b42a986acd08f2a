package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

// SectionRepository manages persistence for course sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionColumns = `id, term_id, course_id, teacher_id, student_group_id, required_capacity, session_length, preference_tags, created_at, updated_at`

// ListByTerm returns every section of a term ordered by id.
func (r *SectionRepository) ListByTerm(ctx context.Context, termID string) ([]models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE term_id = $1 ORDER BY id ASC`, sectionColumns)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, termID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// GetByID returns one section or ErrNotFound.
func (r *SectionRepository) GetByID(ctx context.Context, id string) (*models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE id = $1`, sectionColumns)
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, fmt.Errorf("get section: %w", err)
	}
	return &section, nil
}

// List returns sections matching filters along with the total count.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error) {
	base := "FROM sections WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("student_group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"id":                "id",
		"course_id":         "course_id",
		"required_capacity": "required_capacity",
		"created_at":        "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "id"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", sectionColumns, base, column, order, size, offset)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}

	return sections, total, nil
}

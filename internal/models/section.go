package models

import (
	"time"

	"github.com/lib/pq"
)

// Section represents one weekly-recurring course offering that needs a
// single timetable placement. Sections are produced by the course catalog
// and are immutable while a scheduling run is in flight.
type Section struct {
	ID               string         `db:"id" json:"id"`
	TermID           string         `db:"term_id" json:"term_id"`
	CourseID         string         `db:"course_id" json:"course_id"`
	TeacherID        string         `db:"teacher_id" json:"teacher_id"`
	StudentGroupID   string         `db:"student_group_id" json:"student_group_id"`
	RequiredCapacity int            `db:"required_capacity" json:"required_capacity"`
	SessionLength    int            `db:"session_length" json:"session_length"`
	PreferenceTags   pq.StringArray `db:"preference_tags" json:"preference_tags,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// SessionSlots normalises SessionLength to at least one slot.
func (s Section) SessionSlots() int {
	if s.SessionLength < 1 {
		return 1
	}
	return s.SessionLength
}

// SectionFilter captures filtering options for listing sections.
type SectionFilter struct {
	TermID    string
	CourseID  string
	TeacherID string
	GroupID   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

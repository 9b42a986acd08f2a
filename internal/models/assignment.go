package models

import "time"

// Assignment binds a section to one time slot and one classroom within a
// term. It is the engine's unit of work and the persisted timetable row.
type Assignment struct {
	ID          string    `db:"id" json:"id,omitempty"`
	TermID      string    `db:"term_id" json:"term_id"`
	SectionID   string    `db:"section_id" json:"section_id"`
	TimeSlotID  string    `db:"time_slot_id" json:"time_slot_id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// ConflictKind enumerates hard constraint violations.
type ConflictKind string

const (
	ConflictTeacherDoubleBooked      ConflictKind = "TEACHER_DOUBLE_BOOKED"
	ConflictClassroomDoubleBooked    ConflictKind = "CLASSROOM_DOUBLE_BOOKED"
	ConflictStudentGroupDoubleBooked ConflictKind = "STUDENT_GROUP_DOUBLE_BOOKED"
	ConflictCapacityExceeded         ConflictKind = "CAPACITY_EXCEEDED"
	ConflictClassroomUnavailable     ConflictKind = "CLASSROOM_UNAVAILABLE"
)

// Conflict describes one detected violation. OtherSectionID is empty for
// violations local to a single assignment (capacity, availability).
type Conflict struct {
	Kind           ConflictKind `json:"kind"`
	SectionID      string       `json:"section_id"`
	OtherSectionID string       `json:"other_section_id,omitempty"`
	TimeSlotID     string       `json:"time_slot_id"`
	ClassroomID    string       `json:"classroom_id,omitempty"`
	Message        string       `json:"message"`
}

// ScheduleConflictError wraps detected conflicts for the error path used by
// transactional imports.
type ScheduleConflictError struct {
	Message   string     `json:"message"`
	Conflicts []Conflict `json:"conflicts"`
}

// Error implements the error interface.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

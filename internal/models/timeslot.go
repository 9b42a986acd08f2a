package models

import (
	"strconv"
	"strings"
	"time"
)

// DayPeriod buckets a slot's start time into a coarse time-of-day band used
// by the preference scoring.
type DayPeriod string

const (
	PeriodMorning   DayPeriod = "MORNING"
	PeriodAfternoon DayPeriod = "AFTERNOON"
	PeriodEvening   DayPeriod = "EVENING"
)

// TimeSlot is a discrete weekly interval from a term's fixed slot catalog.
// The engine only ever looks slots up; it never creates them.
type TimeSlot struct {
	ID          string    `db:"id" json:"id"`
	TermID      string    `db:"term_id" json:"term_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	PeriodIndex int       `db:"period_index" json:"period_index"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Period classifies the slot by its start hour: before 12:00 morning,
// before 17:00 afternoon, evening otherwise. Unparseable times count as
// morning so they never score negative.
func (t TimeSlot) Period() DayPeriod {
	hour := parseHour(t.StartTime)
	switch {
	case hour < 12:
		return PeriodMorning
	case hour < 17:
		return PeriodAfternoon
	default:
		return PeriodEvening
	}
}

func parseHour(raw string) int {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, ":"); idx > 0 {
		raw = raw[:idx]
	}
	hour, err := strconv.Atoi(raw)
	if err != nil || hour < 0 || hour > 23 {
		return 0
	}
	return hour
}

// TimeSlotFilter narrows slot availability lookups.
type TimeSlotFilter struct {
	TermID      string
	CourseID    string
	ClassroomID string
	TeacherID   string
}

// Package engine implements the automatic course-timetabling core: conflict
// detection, greedy candidate generation and local-search optimization. The
// engine is pure: it consumes in-memory catalogs, owns a private copy of the
// schedule for the duration of a run and returns plain results. Persistence
// and transport live with the callers.
package engine

import (
	"sort"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
)

// Request carries the full universe for one scheduling run.
type Request struct {
	TermID     string
	Sections   []models.Section
	TimeSlots  []models.TimeSlot
	Classrooms []models.Classroom
	Config     dto.AlgorithmConfig
}

// Schedule maps section id to its assignment. Sections without an entry are
// unscheduled.
type Schedule map[string]models.Assignment

// Clone returns an independent copy.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Assignments returns the schedule's assignments sorted by section id so
// identical schedules serialize identically.
func (s Schedule) Assignments() []models.Assignment {
	out := make([]models.Assignment, 0, len(s))
	for _, a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionID < out[j].SectionID })
	return out
}

// Result is the outcome of a run. A partially scheduled term is a valid,
// successfully computed result with Success=false.
type Result struct {
	TermID      string
	Success     bool
	Schedule    Schedule
	Conflicts   []models.Conflict
	Unscheduled []string
	Message     string
	Iterations  int
	InitialCost float64
	FinalCost   float64
}

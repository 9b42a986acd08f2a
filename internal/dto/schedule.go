package dto

import (
	"github.com/campusops/timetable-api/internal/models"
)

// ConflictWeights prices each hard-constraint kind in the cost function.
type ConflictWeights struct {
	Teacher      float64 `json:"teacher" validate:"omitempty,min=0"`
	Classroom    float64 `json:"classroom" validate:"omitempty,min=0"`
	StudentGroup float64 `json:"studentGroup" validate:"omitempty,min=0"`
	Capacity     float64 `json:"capacity" validate:"omitempty,min=0"`
	Availability float64 `json:"availability" validate:"omitempty,min=0"`
}

// PreferenceWeights rewards desirable time-of-day placement and balanced
// per-day distribution.
type PreferenceWeights struct {
	MorningWeight   float64 `json:"morningWeight" validate:"omitempty,min=0"`
	AfternoonWeight float64 `json:"afternoonWeight" validate:"omitempty,min=0"`
	EveningWeight   float64 `json:"eveningWeight" validate:"omitempty,min=0"`
	BalanceWeight   float64 `json:"balanceWeight" validate:"omitempty,min=0"`
}

// AlgorithmConfig governs one scheduling run. Zero values are filled in by
// Normalize; out-of-range values are rejected at the API boundary.
type AlgorithmConfig struct {
	Algorithm        string            `json:"algorithm" validate:"omitempty,oneof=greedy"`
	MaxIterations    int               `json:"maxIterations" validate:"omitempty,min=1,max=100000"`
	NeighborhoodSize int               `json:"neighborhoodSize" validate:"omitempty,min=1,max=4096"`
	Seed             int64             `json:"seed" validate:"omitempty,min=0"`
	ConflictWeights  ConflictWeights   `json:"conflictWeights"`
	Preferences      PreferenceWeights `json:"preferences"`
}

// DefaultAlgorithmConfig returns the documented defaults.
func DefaultAlgorithmConfig() AlgorithmConfig {
	return AlgorithmConfig{
		Algorithm:        "greedy",
		MaxIterations:    200,
		NeighborhoodSize: 16,
		Seed:             1,
		ConflictWeights: ConflictWeights{
			Teacher:      10,
			Classroom:    8,
			StudentGroup: 10,
			Capacity:     6,
			Availability: 6,
		},
		Preferences: PreferenceWeights{
			MorningWeight:   1.0,
			AfternoonWeight: 0.8,
			EveningWeight:   0.4,
			BalanceWeight:   0.5,
		},
	}
}

// Normalize fills unset fields with defaults and returns the result.
func (c AlgorithmConfig) Normalize() AlgorithmConfig {
	def := DefaultAlgorithmConfig()
	if c.Algorithm == "" {
		c.Algorithm = def.Algorithm
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.NeighborhoodSize <= 0 {
		c.NeighborhoodSize = def.NeighborhoodSize
	}
	if c.Seed <= 0 {
		c.Seed = def.Seed
	}
	if c.ConflictWeights == (ConflictWeights{}) {
		c.ConflictWeights = def.ConflictWeights
	}
	if c.Preferences == (PreferenceWeights{}) {
		c.Preferences = def.Preferences
	}
	return c
}

// WeightFor returns the conflict weight for a kind.
func (w ConflictWeights) WeightFor(kind models.ConflictKind) float64 {
	switch kind {
	case models.ConflictTeacherDoubleBooked:
		return w.Teacher
	case models.ConflictClassroomDoubleBooked:
		return w.Classroom
	case models.ConflictStudentGroupDoubleBooked:
		return w.StudentGroup
	case models.ConflictCapacityExceeded:
		return w.Capacity
	case models.ConflictClassroomUnavailable:
		return w.Availability
	default:
		return 0
	}
}

// PeriodWeight returns the preference weight for a day period.
func (p PreferenceWeights) PeriodWeight(period models.DayPeriod) float64 {
	switch period {
	case models.PeriodMorning:
		return p.MorningWeight
	case models.PeriodAfternoon:
		return p.AfternoonWeight
	case models.PeriodEvening:
		return p.EveningWeight
	default:
		return 0
	}
}

// AutoScheduleRequest triggers a full scheduling run for a term.
type AutoScheduleRequest struct {
	TermID string          `json:"termId" validate:"required"`
	Config AlgorithmConfig `json:"config"`
}

// AssignmentPayload is the wire form of one assignment.
type AssignmentPayload struct {
	SectionID   string `json:"sectionId" validate:"required"`
	TimeSlotID  string `json:"timeSlotId" validate:"required"`
	ClassroomID string `json:"classroomId" validate:"required"`
}

// ValidateScheduleRequest asks for conflict detection over a hand-supplied
// assignment set.
type ValidateScheduleRequest struct {
	TermID      string              `json:"termId" validate:"required"`
	Assignments []AssignmentPayload `json:"assignments" validate:"required,min=1,dive"`
}

// OptimizeScheduleRequest refines an existing assignment set.
type OptimizeScheduleRequest struct {
	TermID      string              `json:"termId" validate:"required"`
	Assignments []AssignmentPayload `json:"assignments" validate:"required,min=1,dive"`
	Config      AlgorithmConfig     `json:"config"`
}

// CheckConflictsRequest probes one candidate against an existing set.
type CheckConflictsRequest struct {
	TermID    string              `json:"termId" validate:"required"`
	Candidate AssignmentPayload   `json:"candidate" validate:"required"`
	Existing  []AssignmentPayload `json:"existing" validate:"dive"`
}

// BatchImportRequest persists an externally produced assignment set.
type BatchImportRequest struct {
	TermID      string              `json:"termId" validate:"required"`
	Assignments []AssignmentPayload `json:"assignments" validate:"required,min=1,dive"`
}

// CopyScheduleRequest clones a persisted schedule into another term.
type CopyScheduleRequest struct {
	FromTermID string `json:"fromTermId" validate:"required"`
	ToTermID   string `json:"toTermId" validate:"required,nefield=FromTermID"`
	Force      bool   `json:"force"`
}

// SaveProposalRequest persists a previously generated proposal.
type SaveProposalRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
}

// ScheduleRunStats summarises the engine's work for one run.
type ScheduleRunStats struct {
	Iterations   int     `json:"iterations"`
	InitialCost  float64 `json:"initialCost"`
	FinalCost    float64 `json:"finalCost"`
	ElapsedMilli int64   `json:"elapsedMs"`
}

// ScheduleResult is the uniform outcome of scheduling, validation and batch
// operations. Infeasibility is data here, never an error.
type ScheduleResult struct {
	ProposalID  string              `json:"proposalId,omitempty"`
	TermID      string              `json:"termId"`
	Success     bool                `json:"success"`
	Assignments []models.Assignment `json:"assignments"`
	Conflicts   []models.Conflict   `json:"conflicts"`
	Unscheduled []string            `json:"unscheduledSectionIds"`
	Message     string              `json:"message"`
	Stats       ScheduleRunStats    `json:"stats"`
}

// AvailabilityQuery filters slot availability lookups.
type AvailabilityQuery struct {
	TermID      string `form:"termId" json:"termId" validate:"required"`
	CourseID    string `form:"courseId" json:"courseId"`
	ClassroomID string `form:"classroomId" json:"classroomId"`
	TeacherID   string `form:"teacherId" json:"teacherId"`
}

// RecommendClassroomsQuery asks for ranked rooms for a section/slot pair.
type RecommendClassroomsQuery struct {
	TermID     string `form:"termId" json:"termId" validate:"required"`
	SectionID  string `form:"sectionId" json:"sectionId" validate:"required"`
	TimeSlotID string `form:"timeSlotId" json:"timeSlotId" validate:"required"`
	Limit      int    `form:"limit" json:"limit" validate:"omitempty,min=1,max=50"`
}

// ClassroomRecommendation pairs a compatible free room with its seat
// surplus for the probed section.
type ClassroomRecommendation struct {
	Classroom  models.Classroom `json:"classroom"`
	SpareSeats int              `json:"spareSeats"`
}

// ConflictProbeQuery backs the teacher/classroom conflict checks.
type ConflictProbeQuery struct {
	TermID      string `form:"termId" json:"termId" validate:"required"`
	TeacherID   string `form:"teacherId" json:"teacherId"`
	ClassroomID string `form:"classroomId" json:"classroomId"`
	TimeSlotID  string `form:"timeSlotId" json:"timeSlotId" validate:"required"`
}

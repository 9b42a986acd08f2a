package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/engine"
	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type stubSections struct{ items []models.Section }

func (s *stubSections) ListByTerm(_ context.Context, termID string) ([]models.Section, error) {
	var out []models.Section
	for _, sec := range s.items {
		if sec.TermID == termID {
			out = append(out, sec)
		}
	}
	return out, nil
}

func (s *stubSections) GetByID(_ context.Context, id string) (*models.Section, error) {
	for _, sec := range s.items {
		if sec.ID == id {
			copied := sec
			return &copied, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
}

type stubSlots struct{ items []models.TimeSlot }

func (s *stubSlots) ListByTerm(_ context.Context, termID string) ([]models.TimeSlot, error) {
	var out []models.TimeSlot
	for _, slot := range s.items {
		if slot.TermID == termID {
			out = append(out, slot)
		}
	}
	return out, nil
}

type stubRooms struct{ items []models.Classroom }

func (s *stubRooms) ListAll(_ context.Context) ([]models.Classroom, error) {
	return s.items, nil
}

type stubTerms struct{ ids []string }

func (s *stubTerms) GetByID(_ context.Context, id string) (*models.Term, error) {
	for _, known := range s.ids {
		if known == id {
			return &models.Term{ID: id, Name: id}, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
}

type stubAssignments struct {
	byTerm  map[string][]models.Assignment
	deleted []string
	created []models.Assignment
}

func newStubAssignments() *stubAssignments {
	return &stubAssignments{byTerm: map[string][]models.Assignment{}}
}

func (s *stubAssignments) ListByTerm(_ context.Context, termID string) ([]models.Assignment, error) {
	return s.byTerm[termID], nil
}

func (s *stubAssignments) BulkCreate(_ context.Context, _ sqlx.ExtContext, assignments []models.Assignment) error {
	s.created = append(s.created, assignments...)
	for _, a := range assignments {
		s.byTerm[a.TermID] = append(s.byTerm[a.TermID], a)
	}
	return nil
}

func (s *stubAssignments) DeleteByTerm(_ context.Context, _ sqlx.ExtContext, termID string) (int64, error) {
	s.deleted = append(s.deleted, termID)
	removed := int64(len(s.byTerm[termID]))
	delete(s.byTerm, termID)
	return removed, nil
}

func (s *stubAssignments) WithTx(_ context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

type stubEngine struct {
	result    engine.Result
	conflicts []models.Conflict
}

func (e *stubEngine) AutoSchedule(_ context.Context, req engine.Request) engine.Result {
	e.result.TermID = req.TermID
	return e.result
}

func (e *stubEngine) Validate(req engine.Request, assignments []models.Assignment) engine.Result {
	schedule := make(engine.Schedule, len(assignments))
	for _, a := range assignments {
		schedule[a.SectionID] = a
	}
	return engine.Result{
		TermID:    req.TermID,
		Success:   len(e.conflicts) == 0,
		Schedule:  schedule,
		Conflicts: e.conflicts,
	}
}

func (e *stubEngine) Optimize(_ context.Context, req engine.Request, _ []models.Assignment) engine.Result {
	e.result.TermID = req.TermID
	return e.result
}

type stubInvalidator struct{ terms []string }

func (s *stubInvalidator) InvalidateTerm(_ context.Context, termID string) {
	s.terms = append(s.terms, termID)
}

type scheduleFixture struct {
	svc         *ScheduleService
	sections    *stubSections
	slots       *stubSlots
	rooms       *stubRooms
	assignments *stubAssignments
	engine      *stubEngine
	invalidator *stubInvalidator
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()
	sections := &stubSections{items: []models.Section{
		{ID: "sec-1", TermID: "term-1", CourseID: "MATH", TeacherID: "t-1", StudentGroupID: "g-1", RequiredCapacity: 30, SessionLength: 1},
		{ID: "sec-2", TermID: "term-1", CourseID: "PHYS", TeacherID: "t-2", StudentGroupID: "g-2", RequiredCapacity: 25, SessionLength: 1},
		{ID: "sec-10", TermID: "term-2", CourseID: "MATH", TeacherID: "t-1", StudentGroupID: "g-1", RequiredCapacity: 30, SessionLength: 1},
	}}
	slots := &stubSlots{items: []models.TimeSlot{
		{ID: "slot-1", TermID: "term-1", DayOfWeek: 1, PeriodIndex: 1, StartTime: "08:00", EndTime: "09:00"},
		{ID: "slot-2", TermID: "term-1", DayOfWeek: 1, PeriodIndex: 2, StartTime: "09:00", EndTime: "10:00"},
		{ID: "slot-10", TermID: "term-2", DayOfWeek: 1, PeriodIndex: 1, StartTime: "08:00", EndTime: "09:00"},
	}}
	rooms := &stubRooms{items: []models.Classroom{
		{ID: "room-1", Code: "A101", Capacity: 40, Type: models.RoomLecture},
		{ID: "room-2", Code: "B201", Capacity: 32, Type: models.RoomLecture},
	}}
	assignments := newStubAssignments()
	eng := &stubEngine{}
	inv := &stubInvalidator{}

	svc := NewScheduleService(
		sections, slots, rooms, assignments,
		&stubTerms{ids: []string{"term-1", "term-2"}},
		eng, inv, nil, nil, nil,
		ScheduleServiceConfig{ProposalTTL: time.Minute, RunTimeout: time.Second, Defaults: dto.DefaultAlgorithmConfig()},
	)
	return &scheduleFixture{
		svc:         svc,
		sections:    sections,
		slots:       slots,
		rooms:       rooms,
		assignments: assignments,
		engine:      eng,
		invalidator: inv,
	}
}

func TestAutoScheduleCreatesProposal(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.engine.result = engine.Result{
		Success: true,
		Schedule: engine.Schedule{
			"sec-1": {SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
			"sec-2": {SectionID: "sec-2", TimeSlotID: "slot-2", ClassroomID: "room-2"},
		},
		Iterations: 42,
	}

	result, err := fx.svc.AutoSchedule(context.Background(), dto.AutoScheduleRequest{TermID: "term-1"})

	require.NoError(t, err)
	require.NotEmpty(t, result.ProposalID)
	assert.True(t, result.Success)
	assert.Len(t, result.Assignments, 2)
	for _, a := range result.Assignments {
		assert.Equal(t, "term-1", a.TermID)
	}
	assert.Equal(t, 42, result.Stats.Iterations)
	assert.Empty(t, fx.assignments.created, "nothing persists before the proposal is saved")
}

func TestAutoScheduleUnknownTerm(t *testing.T) {
	fx := newScheduleFixture(t)

	_, err := fx.svc.AutoSchedule(context.Background(), dto.AutoScheduleRequest{TermID: "term-missing"})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSaveProposalPersistsAtomically(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.engine.result = engine.Result{
		Success: true,
		Schedule: engine.Schedule{
			"sec-1": {SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
		},
	}
	proposal, err := fx.svc.AutoSchedule(context.Background(), dto.AutoScheduleRequest{TermID: "term-1"})
	require.NoError(t, err)

	saved, err := fx.svc.SaveProposal(context.Background(), dto.SaveProposalRequest{ProposalID: proposal.ProposalID})

	require.NoError(t, err)
	assert.True(t, saved.Success)
	assert.Equal(t, []string{"term-1"}, fx.assignments.deleted)
	require.Len(t, fx.assignments.created, 1)
	assert.Equal(t, "sec-1", fx.assignments.created[0].SectionID)
	assert.Equal(t, []string{"term-1"}, fx.invalidator.terms)

	// A proposal is single use.
	_, err = fx.svc.SaveProposal(context.Background(), dto.SaveProposalRequest{ProposalID: proposal.ProposalID})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrProposalExpired.Code, appErr.Code)
}

func TestSaveProposalUnknownID(t *testing.T) {
	fx := newScheduleFixture(t)

	_, err := fx.svc.SaveProposal(context.Background(), dto.SaveProposalRequest{ProposalID: "nope"})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrProposalExpired.Code, appErr.Code)
}

func TestSaveProposalRejectsConflictedProposal(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.engine.result = engine.Result{
		Schedule: engine.Schedule{
			"sec-1": {SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
		},
		Conflicts: []models.Conflict{{Kind: models.ConflictTeacherDoubleBooked, SectionID: "sec-1"}},
	}
	proposal, err := fx.svc.AutoSchedule(context.Background(), dto.AutoScheduleRequest{TermID: "term-1"})
	require.NoError(t, err)

	_, err = fx.svc.SaveProposal(context.Background(), dto.SaveProposalRequest{ProposalID: proposal.ProposalID})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErr.Code)
	assert.Empty(t, fx.assignments.created)
}

func TestValidateRejectsDuplicateSections(t *testing.T) {
	fx := newScheduleFixture(t)

	_, err := fx.svc.Validate(context.Background(), dto.ValidateScheduleRequest{
		TermID: "term-1",
		Assignments: []dto.AssignmentPayload{
			{SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
			{SectionID: "sec-1", TimeSlotID: "slot-2", ClassroomID: "room-2"},
		},
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestValidateReturnsConflictsAsData(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.engine.conflicts = []models.Conflict{{Kind: models.ConflictClassroomDoubleBooked, SectionID: "sec-1"}}

	result, err := fx.svc.Validate(context.Background(), dto.ValidateScheduleRequest{
		TermID: "term-1",
		Assignments: []dto.AssignmentPayload{
			{SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
		},
	})

	require.NoError(t, err, "detected conflicts are data, not an error")
	assert.False(t, result.Success)
	assert.Len(t, result.Conflicts, 1)
}

func TestBatchImportRejectsConflicts(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.engine.conflicts = []models.Conflict{{Kind: models.ConflictTeacherDoubleBooked, SectionID: "sec-1"}}

	result, err := fx.svc.BatchImport(context.Background(), dto.BatchImportRequest{
		TermID: "term-1",
		Assignments: []dto.AssignmentPayload{
			{SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
		},
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErr.Code)
	require.NotNil(t, result, "conflict detail travels with the error")
	assert.Len(t, result.Conflicts, 1)
	assert.Empty(t, fx.assignments.created)
	assert.Empty(t, fx.assignments.deleted)
}

func TestBatchImportReplacesSchedule(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.assignments.byTerm["term-1"] = []models.Assignment{
		{ID: "old", TermID: "term-1", SectionID: "sec-2", TimeSlotID: "slot-2", ClassroomID: "room-2"},
	}

	result, err := fx.svc.BatchImport(context.Background(), dto.BatchImportRequest{
		TermID: "term-1",
		Assignments: []dto.AssignmentPayload{
			{SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
		},
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"term-1"}, fx.assignments.deleted)
	require.Len(t, fx.assignments.created, 1)
	assert.Equal(t, "sec-1", fx.assignments.created[0].SectionID)
	assert.Equal(t, []string{"term-1"}, fx.invalidator.terms)
}

func TestClearIsIdempotent(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.assignments.byTerm["term-1"] = []models.Assignment{
		{ID: "a1", TermID: "term-1", SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
	}

	removed, err := fx.svc.Clear(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = fx.svc.Clear(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestCopyRemapsStructure(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.assignments.byTerm["term-1"] = []models.Assignment{
		{ID: "a1", TermID: "term-1", SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
		{ID: "a2", TermID: "term-1", SectionID: "sec-2", TimeSlotID: "slot-2", ClassroomID: "room-2"},
	}

	result, err := fx.svc.Copy(context.Background(), dto.CopyScheduleRequest{FromTermID: "term-1", ToTermID: "term-2"})

	require.NoError(t, err)
	require.Len(t, fx.assignments.created, 1)
	copied := fx.assignments.created[0]
	assert.Equal(t, "term-2", copied.TermID)
	assert.Equal(t, "sec-10", copied.SectionID, "sections match by course and student group")
	assert.Equal(t, "slot-10", copied.TimeSlotID, "slots match by day and period")
	assert.Equal(t, "room-1", copied.ClassroomID)
	assert.Equal(t, []string{"sec-2"}, result.Unscheduled, "entries without a structural match are reported")
}

func TestCopyRequiresNonEmptySource(t *testing.T) {
	fx := newScheduleFixture(t)

	_, err := fx.svc.Copy(context.Background(), dto.CopyScheduleRequest{FromTermID: "term-1", ToTermID: "term-2"})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestCopyRefusesOccupiedTargetWithoutForce(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.assignments.byTerm["term-1"] = []models.Assignment{
		{ID: "a1", TermID: "term-1", SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
	}
	fx.assignments.byTerm["term-2"] = []models.Assignment{
		{ID: "b1", TermID: "term-2", SectionID: "sec-10", TimeSlotID: "slot-10", ClassroomID: "room-1"},
	}

	_, err := fx.svc.Copy(context.Background(), dto.CopyScheduleRequest{FromTermID: "term-1", ToTermID: "term-2"})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	_, err = fx.svc.Copy(context.Background(), dto.CopyScheduleRequest{FromTermID: "term-1", ToTermID: "term-2", Force: true})
	require.NoError(t, err)
}

func TestCheckConflictsAgainstPersistedSchedule(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.assignments.byTerm["term-1"] = []models.Assignment{
		{ID: "a1", TermID: "term-1", SectionID: "sec-2", TimeSlotID: "slot-1", ClassroomID: "room-1"},
	}

	conflicts, err := fx.svc.CheckConflicts(context.Background(), dto.CheckConflictsRequest{
		TermID:    "term-1",
		Candidate: dto.AssignmentPayload{SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
	})

	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictClassroomDoubleBooked, conflicts[0].Kind)
}

func TestAvailableTimeSlotsSkipsBusyTeacher(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.assignments.byTerm["term-1"] = []models.Assignment{
		{ID: "a1", TermID: "term-1", SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
	}

	free, err := fx.svc.AvailableTimeSlots(context.Background(), dto.AvailabilityQuery{TermID: "term-1", TeacherID: "t-1"})

	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, "slot-2", free[0].ID)
}

func TestRecommendClassroomsPrefersTightestFit(t *testing.T) {
	fx := newScheduleFixture(t)

	recs, err := fx.svc.RecommendClassrooms(context.Background(), dto.RecommendClassroomsQuery{
		TermID:     "term-1",
		SectionID:  "sec-1",
		TimeSlotID: "slot-1",
	})

	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "B201", recs[0].Classroom.Code, "smaller adequate room ranks first")
	assert.Equal(t, 2, recs[0].SpareSeats)
	assert.Equal(t, "A101", recs[1].Classroom.Code)
}

func TestRecommendClassroomsSkipsOccupiedRooms(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.assignments.byTerm["term-1"] = []models.Assignment{
		{ID: "a1", TermID: "term-1", SectionID: "sec-2", TimeSlotID: "slot-1", ClassroomID: "room-2"},
	}

	recs, err := fx.svc.RecommendClassrooms(context.Background(), dto.RecommendClassroomsQuery{
		TermID:     "term-1",
		SectionID:  "sec-1",
		TimeSlotID: "slot-1",
	})

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "A101", recs[0].Classroom.Code)
}

func TestResourceConflictsFiltersByTeacher(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.sections.items = append(fx.sections.items, models.Section{
		ID: "sec-3", TermID: "term-1", CourseID: "CHEM", TeacherID: "t-1", StudentGroupID: "g-3", RequiredCapacity: 20, SessionLength: 1,
	})
	fx.assignments.byTerm["term-1"] = []models.Assignment{
		{ID: "a1", TermID: "term-1", SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
		{ID: "a2", TermID: "term-1", SectionID: "sec-3", TimeSlotID: "slot-1", ClassroomID: "room-2"},
	}

	conflicts, err := fx.svc.ResourceConflicts(context.Background(), dto.ConflictProbeQuery{
		TermID:     "term-1",
		TeacherID:  "t-1",
		TimeSlotID: "slot-1",
	})

	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictTeacherDoubleBooked, conflicts[0].Kind)
}

func TestResourceConflictsRequiresAResource(t *testing.T) {
	fx := newScheduleFixture(t)

	_, err := fx.svc.ResourceConflicts(context.Background(), dto.ConflictProbeQuery{TermID: "term-1", TimeSlotID: "slot-1"})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestProposalStoreExpiry(t *testing.T) {
	store := newProposalStore(10 * time.Millisecond)
	store.Save(scheduleProposal{ProposalID: "p1", TermID: "term-1", RequestedAt: time.Now().Add(-time.Minute)})

	_, ok := store.Get("p1")
	assert.False(t, ok, "expired proposals are dropped on read")
}

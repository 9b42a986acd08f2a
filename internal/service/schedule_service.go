package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/engine"
	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type sectionReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.Section, error)
	GetByID(ctx context.Context, id string) (*models.Section, error)
}

type timeSlotReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.TimeSlot, error)
}

type classroomReader interface {
	ListAll(ctx context.Context) ([]models.Classroom, error)
}

type assignmentStore interface {
	ListByTerm(ctx context.Context, termID string) ([]models.Assignment, error)
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, assignments []models.Assignment) error
	DeleteByTerm(ctx context.Context, exec sqlx.ExtContext, termID string) (int64, error)
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type termReader interface {
	GetByID(ctx context.Context, id string) (*models.Term, error)
}

type timetableEngine interface {
	AutoSchedule(ctx context.Context, req engine.Request) engine.Result
	Validate(req engine.Request, assignments []models.Assignment) engine.Result
	Optimize(ctx context.Context, req engine.Request, assignments []models.Assignment) engine.Result
}

// statsInvalidator drops cached statistics after timetable mutations.
type statsInvalidator interface {
	InvalidateTerm(ctx context.Context, termID string)
}

// ScheduleServiceConfig governs run budgets and proposal retention.
type ScheduleServiceConfig struct {
	ProposalTTL time.Duration
	RunTimeout  time.Duration
	Defaults    dto.AlgorithmConfig
}

// ScheduleService orchestrates scheduling runs, validation and timetable
// persistence for a term.
type ScheduleService struct {
	sections    sectionReader
	slots       timeSlotReader
	rooms       classroomReader
	assignments assignmentStore
	terms       termReader
	engine      timetableEngine
	invalidator statsInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	store       *proposalStore
	cfg         ScheduleServiceConfig
}

// NewScheduleService wires scheduling dependencies.
func NewScheduleService(
	sections sectionReader,
	slots timeSlotReader,
	rooms classroomReader,
	assignments assignmentStore,
	terms termReader,
	eng timetableEngine,
	invalidator statsInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleServiceConfig,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Second
	}
	return &ScheduleService{
		sections:    sections,
		slots:       slots,
		rooms:       rooms,
		assignments: assignments,
		terms:       terms,
		engine:      eng,
		invalidator: invalidator,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		store:       newProposalStore(cfg.ProposalTTL),
		cfg:         cfg,
	}
}

// AutoSchedule runs the full pipeline for a term and caches the outcome as
// a proposal. Nothing is persisted until the proposal is saved.
func (s *ScheduleService) AutoSchedule(ctx context.Context, req dto.AutoScheduleRequest) (*dto.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid auto schedule payload")
	}
	universe, err := s.loadUniverse(ctx, req.TermID)
	if err != nil {
		return nil, err
	}
	universe.Config = s.mergeConfig(req.Config)

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	started := time.Now()
	outcome := s.engine.AutoSchedule(runCtx, universe)
	elapsed := time.Since(started)
	s.metrics.ObserveScheduleRun("auto", outcome.Success, outcome.Iterations, len(outcome.Unscheduled), elapsed)

	result := s.toResult(req.TermID, outcome, elapsed)
	result.ProposalID = uuid.NewString()
	s.store.Save(scheduleProposal{
		ProposalID:  result.ProposalID,
		TermID:      req.TermID,
		Assignments: result.Assignments,
		Conflicts:   result.Conflicts,
		Unscheduled: result.Unscheduled,
		RequestedAt: time.Now().UTC(),
	})

	s.logger.Info("auto schedule proposal created",
		zap.String("term_id", req.TermID),
		zap.String("proposal_id", result.ProposalID),
		zap.Bool("success", result.Success),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

// SaveProposal atomically replaces the persisted timetable of the
// proposal's term with the proposal content.
func (s *ScheduleService) SaveProposal(ctx context.Context, req dto.SaveProposalRequest) (*dto.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save proposal payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrProposalExpired, "")
	}
	if len(proposal.Conflicts) > 0 {
		return nil, appErrors.Clone(appErrors.ErrScheduleConflict, "proposal contains unresolved conflicts")
	}

	err := s.assignments.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.assignments.DeleteByTerm(ctx, tx, proposal.TermID); err != nil {
			return err
		}
		return s.assignments.BulkCreate(ctx, tx, proposal.Assignments)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
	}

	s.store.Delete(req.ProposalID)
	s.invalidate(ctx, proposal.TermID)
	s.logger.Info("schedule proposal saved",
		zap.String("term_id", proposal.TermID),
		zap.String("proposal_id", req.ProposalID),
		zap.Int("assignments", len(proposal.Assignments)),
	)

	return &dto.ScheduleResult{
		TermID:      proposal.TermID,
		Success:     true,
		Assignments: proposal.Assignments,
		Conflicts:   []models.Conflict{},
		Unscheduled: proposal.Unscheduled,
		Message:     fmt.Sprintf("saved %d assignments", len(proposal.Assignments)),
	}, nil
}

// Validate checks a hand-supplied assignment set for hard constraint
// violations. Conflicts are returned as data, never as an error.
func (s *ScheduleService) Validate(ctx context.Context, req dto.ValidateScheduleRequest) (*dto.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validate payload")
	}
	universe, err := s.loadUniverse(ctx, req.TermID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.toAssignments(universe, req.TermID, req.Assignments)
	if err != nil {
		return nil, err
	}

	outcome := s.engine.Validate(universe, assignments)
	return s.toResult(req.TermID, outcome, 0), nil
}

// Optimize refines an assignment set under the configured budget and
// caches the refined set as a proposal.
func (s *ScheduleService) Optimize(ctx context.Context, req dto.OptimizeScheduleRequest) (*dto.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid optimize payload")
	}
	universe, err := s.loadUniverse(ctx, req.TermID)
	if err != nil {
		return nil, err
	}
	universe.Config = s.mergeConfig(req.Config)
	assignments, err := s.toAssignments(universe, req.TermID, req.Assignments)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	started := time.Now()
	outcome := s.engine.Optimize(runCtx, universe, assignments)
	elapsed := time.Since(started)
	s.metrics.ObserveScheduleRun("optimize", outcome.Success, outcome.Iterations, len(outcome.Unscheduled), elapsed)

	result := s.toResult(req.TermID, outcome, elapsed)
	result.ProposalID = uuid.NewString()
	s.store.Save(scheduleProposal{
		ProposalID:  result.ProposalID,
		TermID:      req.TermID,
		Assignments: result.Assignments,
		Conflicts:   result.Conflicts,
		Unscheduled: result.Unscheduled,
		RequestedAt: time.Now().UTC(),
	})
	return result, nil
}

// CheckConflicts probes one candidate placement against an assignment set.
// When no explicit set is supplied the persisted timetable is used.
func (s *ScheduleService) CheckConflicts(ctx context.Context, req dto.CheckConflictsRequest) ([]models.Conflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	universe, err := s.loadUniverse(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	var existing []models.Assignment
	if len(req.Existing) > 0 {
		existing, err = s.toAssignments(universe, req.TermID, req.Existing)
		if err != nil {
			return nil, err
		}
	} else {
		existing, err = s.assignments.ListByTerm(ctx, req.TermID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load persisted schedule")
		}
	}

	candidate := models.Assignment{
		TermID:      req.TermID,
		SectionID:   req.Candidate.SectionID,
		TimeSlotID:  req.Candidate.TimeSlotID,
		ClassroomID: req.Candidate.ClassroomID,
	}
	det := engine.NewDetector(universe.Sections, universe.TimeSlots, universe.Classrooms)
	conflicts := det.Check(candidate, existing)
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	return conflicts, nil
}

// AvailableTimeSlots lists slots where the probed resources are all free
// given the persisted timetable.
func (s *ScheduleService) AvailableTimeSlots(ctx context.Context, q dto.AvailabilityQuery) ([]models.TimeSlot, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	universe, err := s.loadUniverse(ctx, q.TermID)
	if err != nil {
		return nil, err
	}
	persisted, err := s.assignments.ListByTerm(ctx, q.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load persisted schedule")
	}

	det := engine.NewDetector(universe.Sections, universe.TimeSlots, universe.Classrooms)
	busyTeacher, busyGroup, busyRoom := occupiedResources(det, persisted)

	teachers := map[string]bool{}
	groups := map[string]bool{}
	if q.TeacherID != "" {
		teachers[q.TeacherID] = true
	}
	if q.CourseID != "" {
		for _, sec := range universe.Sections {
			if sec.CourseID == q.CourseID {
				teachers[sec.TeacherID] = true
				groups[sec.StudentGroupID] = true
			}
		}
	}

	free := []models.TimeSlot{}
	for _, slot := range universe.TimeSlots {
		ok := true
		for teacherID := range teachers {
			if busyTeacher[resourceSlot{teacherID, slot.ID}] {
				ok = false
				break
			}
		}
		for groupID := range groups {
			if !ok {
				break
			}
			if busyGroup[resourceSlot{groupID, slot.ID}] {
				ok = false
			}
		}
		if ok && q.ClassroomID != "" && busyRoom[resourceSlot{q.ClassroomID, slot.ID}] {
			ok = false
		}
		if ok {
			free = append(free, slot)
		}
	}
	sort.Slice(free, func(i, j int) bool {
		if free[i].DayOfWeek != free[j].DayOfWeek {
			return free[i].DayOfWeek < free[j].DayOfWeek
		}
		return free[i].PeriodIndex < free[j].PeriodIndex
	})
	return free, nil
}

// RecommendClassrooms ranks compatible free rooms for a section at a slot.
// Smaller adequate rooms rank first so large rooms stay available.
func (s *ScheduleService) RecommendClassrooms(ctx context.Context, q dto.RecommendClassroomsQuery) ([]dto.ClassroomRecommendation, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recommendation query")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}
	universe, err := s.loadUniverse(ctx, q.TermID)
	if err != nil {
		return nil, err
	}
	det := engine.NewDetector(universe.Sections, universe.TimeSlots, universe.Classrooms)
	sec, ok := det.Section(q.SectionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found in term")
	}
	slotIDs, ok := det.SessionSlotIDs(sec, q.TimeSlotID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section does not fit at the requested slot")
	}

	persisted, err := s.assignments.ListByTerm(ctx, q.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load persisted schedule")
	}
	_, _, busyRoom := occupiedResources(det, persisted)

	recs := []dto.ClassroomRecommendation{}
	for _, roomID := range det.RoomIDs() {
		room, _ := det.Room(roomID)
		if !det.RoomCompatible(sec, room) {
			continue
		}
		available := true
		for _, slotID := range slotIDs {
			if !room.AvailableOn(slotID) || busyRoom[resourceSlot{roomID, slotID}] {
				available = false
				break
			}
		}
		if !available {
			continue
		}
		recs = append(recs, dto.ClassroomRecommendation{
			Classroom:  room,
			SpareSeats: room.Capacity - sec.RequiredCapacity,
		})
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].SpareSeats != recs[j].SpareSeats {
			return recs[i].SpareSeats < recs[j].SpareSeats
		}
		return recs[i].Classroom.Code < recs[j].Classroom.Code
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// ResourceConflicts reports double bookings of one teacher or classroom at
// a slot within the persisted timetable.
func (s *ScheduleService) ResourceConflicts(ctx context.Context, q dto.ConflictProbeQuery) ([]models.Conflict, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict probe query")
	}
	if q.TeacherID == "" && q.ClassroomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacherId or classroomId is required")
	}
	universe, err := s.loadUniverse(ctx, q.TermID)
	if err != nil {
		return nil, err
	}
	persisted, err := s.assignments.ListByTerm(ctx, q.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load persisted schedule")
	}

	det := engine.NewDetector(universe.Sections, universe.TimeSlots, universe.Classrooms)
	all := det.CheckAll(persisted)

	sectionsByID := make(map[string]models.Section, len(universe.Sections))
	for _, sec := range universe.Sections {
		sectionsByID[sec.ID] = sec
	}

	matched := []models.Conflict{}
	for _, c := range all {
		if c.TimeSlotID != q.TimeSlotID {
			continue
		}
		if q.TeacherID != "" {
			if c.Kind != models.ConflictTeacherDoubleBooked || sectionsByID[c.SectionID].TeacherID != q.TeacherID {
				continue
			}
		}
		if q.ClassroomID != "" {
			if c.Kind != models.ConflictClassroomDoubleBooked || c.ClassroomID != q.ClassroomID {
				continue
			}
		}
		matched = append(matched, c)
	}
	return matched, nil
}

// BatchImport atomically replaces a term's timetable with an externally
// produced assignment set. Any conflict rejects the whole batch.
func (s *ScheduleService) BatchImport(ctx context.Context, req dto.BatchImportRequest) (*dto.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import payload")
	}
	universe, err := s.loadUniverse(ctx, req.TermID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.toAssignments(universe, req.TermID, req.Assignments)
	if err != nil {
		return nil, err
	}

	outcome := s.engine.Validate(universe, assignments)
	result := s.toResult(req.TermID, outcome, 0)
	if len(result.Conflicts) > 0 {
		result.Message = fmt.Sprintf("import rejected: %d conflicts", len(result.Conflicts))
		return result, appErrors.Clone(appErrors.ErrScheduleConflict, "import rejected because of conflicts")
	}

	err = s.assignments.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.assignments.DeleteByTerm(ctx, tx, req.TermID); err != nil {
			return err
		}
		return s.assignments.BulkCreate(ctx, tx, assignments)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import schedule")
	}

	s.invalidate(ctx, req.TermID)
	result.Message = fmt.Sprintf("imported %d assignments", len(assignments))
	return result, nil
}

// Clear drops a term's persisted timetable. Clearing an empty term is a
// no-op, not an error.
func (s *ScheduleService) Clear(ctx context.Context, termID string) (int64, error) {
	if termID == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "term id is required")
	}
	if _, err := s.terms.GetByID(ctx, termID); err != nil {
		return 0, err
	}
	var removed int64
	err := s.assignments.WithTx(ctx, func(tx *sqlx.Tx) error {
		n, err := s.assignments.DeleteByTerm(ctx, tx, termID)
		removed = n
		return err
	})
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear schedule")
	}
	s.invalidate(ctx, termID)
	s.logger.Info("schedule cleared", zap.String("term_id", termID), zap.Int64("removed", removed))
	return removed, nil
}

// Copy clones the source term's timetable into the target term. Slots are
// matched by day and period, sections by course and student group. Entries
// with no structural match in the target are reported as unscheduled.
func (s *ScheduleService) Copy(ctx context.Context, req dto.CopyScheduleRequest) (*dto.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid copy payload")
	}
	source, err := s.assignments.ListByTerm(ctx, req.FromTermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source schedule")
	}
	if len(source) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "source term has no schedule to copy")
	}
	existing, err := s.assignments.ListByTerm(ctx, req.ToTermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target schedule")
	}
	if len(existing) > 0 && !req.Force {
		return nil, appErrors.Clone(appErrors.ErrConflict, "target term already has a schedule; set force to overwrite")
	}

	sourceSlots, err := s.slots.ListByTerm(ctx, req.FromTermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source slots")
	}
	sourceSections, err := s.sections.ListByTerm(ctx, req.FromTermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source sections")
	}
	target, err := s.loadUniverse(ctx, req.ToTermID)
	if err != nil {
		return nil, err
	}

	slotByID := make(map[string]models.TimeSlot, len(sourceSlots))
	for _, slot := range sourceSlots {
		slotByID[slot.ID] = slot
	}
	type dayPeriod struct{ day, period int }
	targetSlot := make(map[dayPeriod]string, len(target.TimeSlots))
	for _, slot := range target.TimeSlots {
		targetSlot[dayPeriod{slot.DayOfWeek, slot.PeriodIndex}] = slot.ID
	}

	sectionByID := make(map[string]models.Section, len(sourceSections))
	for _, sec := range sourceSections {
		sectionByID[sec.ID] = sec
	}
	type courseGroup struct{ course, group string }
	targetSection := make(map[courseGroup]string, len(target.Sections))
	for _, sec := range target.Sections {
		targetSection[courseGroup{sec.CourseID, sec.StudentGroupID}] = sec.ID
	}

	var copied []models.Assignment
	unmatched := []string{}
	for _, a := range source {
		srcSec, ok := sectionByID[a.SectionID]
		if !ok {
			unmatched = append(unmatched, a.SectionID)
			continue
		}
		dstSecID, ok := targetSection[courseGroup{srcSec.CourseID, srcSec.StudentGroupID}]
		if !ok {
			unmatched = append(unmatched, a.SectionID)
			continue
		}
		srcSlot, ok := slotByID[a.TimeSlotID]
		if !ok {
			unmatched = append(unmatched, a.SectionID)
			continue
		}
		dstSlotID, ok := targetSlot[dayPeriod{srcSlot.DayOfWeek, srcSlot.PeriodIndex}]
		if !ok {
			unmatched = append(unmatched, a.SectionID)
			continue
		}
		copied = append(copied, models.Assignment{
			TermID:      req.ToTermID,
			SectionID:   dstSecID,
			TimeSlotID:  dstSlotID,
			ClassroomID: a.ClassroomID,
		})
	}
	sort.Strings(unmatched)

	outcome := s.engine.Validate(target, copied)
	result := s.toResult(req.ToTermID, outcome, 0)
	result.Unscheduled = unmatched
	if len(result.Conflicts) > 0 {
		result.Message = fmt.Sprintf("copy rejected: %d conflicts in target term", len(result.Conflicts))
		return result, appErrors.Clone(appErrors.ErrScheduleConflict, "copied schedule conflicts in the target term")
	}

	err = s.assignments.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.assignments.DeleteByTerm(ctx, tx, req.ToTermID); err != nil {
			return err
		}
		return s.assignments.BulkCreate(ctx, tx, copied)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist copied schedule")
	}

	s.invalidate(ctx, req.ToTermID)
	result.Message = fmt.Sprintf("copied %d assignments, %d without a structural match", len(copied), len(unmatched))
	s.logger.Info("schedule copied",
		zap.String("from_term", req.FromTermID),
		zap.String("to_term", req.ToTermID),
		zap.Int("copied", len(copied)),
		zap.Int("unmatched", len(unmatched)),
	)
	return result, nil
}

// PersistedSchedule returns the stored timetable of a term.
func (s *ScheduleService) PersistedSchedule(ctx context.Context, termID string) ([]models.Assignment, error) {
	if _, err := s.terms.GetByID(ctx, termID); err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load persisted schedule")
	}
	return assignments, nil
}

func (s *ScheduleService) loadUniverse(ctx context.Context, termID string) (engine.Request, error) {
	if _, err := s.terms.GetByID(ctx, termID); err != nil {
		return engine.Request{}, err
	}
	sections, err := s.sections.ListByTerm(ctx, termID)
	if err != nil {
		return engine.Request{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	slots, err := s.slots.ListByTerm(ctx, termID)
	if err != nil {
		return engine.Request{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return engine.Request{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	return engine.Request{TermID: termID, Sections: sections, TimeSlots: slots, Classrooms: rooms}, nil
}

// mergeConfig fills request config gaps with the server defaults before
// the engine applies the documented fallbacks.
func (s *ScheduleService) mergeConfig(cfg dto.AlgorithmConfig) dto.AlgorithmConfig {
	def := s.cfg.Defaults
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.NeighborhoodSize <= 0 {
		cfg.NeighborhoodSize = def.NeighborhoodSize
	}
	if cfg.Seed <= 0 {
		cfg.Seed = def.Seed
	}
	if cfg.ConflictWeights == (dto.ConflictWeights{}) {
		cfg.ConflictWeights = def.ConflictWeights
	}
	if cfg.Preferences == (dto.PreferenceWeights{}) {
		cfg.Preferences = def.Preferences
	}
	return cfg.Normalize()
}

func (s *ScheduleService) toAssignments(universe engine.Request, termID string, payloads []dto.AssignmentPayload) ([]models.Assignment, error) {
	known := make(map[string]bool, len(universe.Sections))
	for _, sec := range universe.Sections {
		known[sec.ID] = true
	}
	seen := make(map[string]bool, len(payloads))
	assignments := make([]models.Assignment, 0, len(payloads))
	for _, p := range payloads {
		if !known[p.SectionID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown section %s", p.SectionID))
		}
		if seen[p.SectionID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section %s appears more than once", p.SectionID))
		}
		seen[p.SectionID] = true
		assignments = append(assignments, models.Assignment{
			TermID:      termID,
			SectionID:   p.SectionID,
			TimeSlotID:  p.TimeSlotID,
			ClassroomID: p.ClassroomID,
		})
	}
	return assignments, nil
}

func (s *ScheduleService) toResult(termID string, outcome engine.Result, elapsed time.Duration) *dto.ScheduleResult {
	assignments := outcome.Schedule.Assignments()
	for i := range assignments {
		assignments[i].TermID = termID
	}
	conflicts := outcome.Conflicts
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	unscheduled := outcome.Unscheduled
	if unscheduled == nil {
		unscheduled = []string{}
	}
	return &dto.ScheduleResult{
		TermID:      termID,
		Success:     outcome.Success,
		Assignments: assignments,
		Conflicts:   conflicts,
		Unscheduled: unscheduled,
		Message:     outcome.Message,
		Stats: dto.ScheduleRunStats{
			Iterations:   outcome.Iterations,
			InitialCost:  outcome.InitialCost,
			FinalCost:    outcome.FinalCost,
			ElapsedMilli: elapsed.Milliseconds(),
		},
	}
}

func (s *ScheduleService) invalidate(ctx context.Context, termID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateTerm(ctx, termID)
	}
}

type resourceSlot struct {
	ResourceID string
	SlotID     string
}

// occupiedResources expands persisted assignments into per-slot busy maps
// for teachers, student groups and rooms.
func occupiedResources(det *engine.Detector, assignments []models.Assignment) (teacher, group, room map[resourceSlot]bool) {
	teacher = map[resourceSlot]bool{}
	group = map[resourceSlot]bool{}
	room = map[resourceSlot]bool{}
	for _, a := range assignments {
		sec, ok := det.Section(a.SectionID)
		if !ok {
			continue
		}
		slotIDs, ok := det.SessionSlotIDs(sec, a.TimeSlotID)
		if !ok {
			slotIDs = []string{a.TimeSlotID}
		}
		for _, slotID := range slotIDs {
			teacher[resourceSlot{sec.TeacherID, slotID}] = true
			group[resourceSlot{sec.StudentGroupID, slotID}] = true
			room[resourceSlot{a.ClassroomID, slotID}] = true
		}
	}
	return teacher, group, room
}

// --- Proposal cache ---

type scheduleProposal struct {
	ProposalID  string
	TermID      string
	Assignments []models.Assignment
	Conflicts   []models.Conflict
	Unscheduled []string
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]scheduleProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]scheduleProposal),
	}
}

func (s *proposalStore) Save(proposal scheduleProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (scheduleProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return scheduleProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return scheduleProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/engine"
	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

const statsCacheKeyPrefix = "stats:schedule:"

// StatisticsService aggregates persisted timetables into utilization
// metrics and report rows. Results are cached per term until the timetable
// changes.
type StatisticsService struct {
	sections    sectionReader
	slots       timeSlotReader
	rooms       classroomReader
	assignments assignmentStore
	terms       termReader
	cache       *CacheService
	logger      *zap.Logger
	ttl         time.Duration
}

// NewStatisticsService constructs the service.
func NewStatisticsService(
	sections sectionReader,
	slots timeSlotReader,
	rooms classroomReader,
	assignments assignmentStore,
	terms termReader,
	cache *CacheService,
	logger *zap.Logger,
	ttl time.Duration,
) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StatisticsService{
		sections:    sections,
		slots:       slots,
		rooms:       rooms,
		assignments: assignments,
		terms:       terms,
		cache:       cache,
		logger:      logger,
		ttl:         ttl,
	}
}

// Statistics returns utilization and conflict metrics for a term's
// persisted timetable, cache-first.
func (s *StatisticsService) Statistics(ctx context.Context, termID string) (*models.ScheduleStatistics, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term id is required")
	}
	key := statsCacheKeyPrefix + termID
	var cached models.ScheduleStatistics
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	universe, assignments, err := s.load(ctx, termID)
	if err != nil {
		return nil, err
	}

	det := engine.NewDetector(universe.Sections, universe.TimeSlots, universe.Classrooms)
	conflicts := det.CheckAll(assignments)
	unscheduled := unscheduledSections(universe.Sections, assignments)

	stats := engine.BuildStatistics(termID, universe, assignments, unscheduled, conflicts)
	if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
		s.logger.Warn("statistics cache write failed", zap.String("term_id", termID), zap.Error(err))
	}
	return &stats, nil
}

// Report renders the persisted timetable as flat, display-ready rows
// ordered by day, period and classroom code.
func (s *StatisticsService) Report(ctx context.Context, termID string) ([]dto.ScheduleReportRow, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term id is required")
	}
	universe, assignments, err := s.load(ctx, termID)
	if err != nil {
		return nil, err
	}

	det := engine.NewDetector(universe.Sections, universe.TimeSlots, universe.Classrooms)
	rows := []dto.ScheduleReportRow{}
	for _, a := range assignments {
		sec, ok := det.Section(a.SectionID)
		if !ok {
			continue
		}
		slot, ok := det.Slot(a.TimeSlotID)
		if !ok {
			continue
		}
		room, _ := det.Room(a.ClassroomID)
		rows = append(rows, dto.ScheduleReportRow{
			DayOfWeek:      slot.DayOfWeek,
			PeriodIndex:    slot.PeriodIndex,
			StartTime:      slot.StartTime,
			EndTime:        slot.EndTime,
			SectionID:      sec.ID,
			CourseID:       sec.CourseID,
			TeacherID:      sec.TeacherID,
			StudentGroupID: sec.StudentGroupID,
			ClassroomCode:  room.Code,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.PeriodIndex != b.PeriodIndex {
			return a.PeriodIndex < b.PeriodIndex
		}
		return a.ClassroomCode < b.ClassroomCode
	})
	return rows, nil
}

// InvalidateTerm drops cached statistics for a term after a timetable
// mutation.
func (s *StatisticsService) InvalidateTerm(ctx context.Context, termID string) {
	if err := s.cache.Invalidate(ctx, statsCacheKeyPrefix+termID+"*"); err != nil {
		s.logger.Warn("statistics cache invalidation failed", zap.String("term_id", termID), zap.Error(err))
	}
}

func (s *StatisticsService) load(ctx context.Context, termID string) (engine.Request, []models.Assignment, error) {
	if _, err := s.terms.GetByID(ctx, termID); err != nil {
		return engine.Request{}, nil, err
	}
	sections, err := s.sections.ListByTerm(ctx, termID)
	if err != nil {
		return engine.Request{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	slots, err := s.slots.ListByTerm(ctx, termID)
	if err != nil {
		return engine.Request{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return engine.Request{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	assignments, err := s.assignments.ListByTerm(ctx, termID)
	if err != nil {
		return engine.Request{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load persisted schedule")
	}
	return engine.Request{TermID: termID, Sections: sections, TimeSlots: slots, Classrooms: rooms}, assignments, nil
}

func unscheduledSections(sections []models.Section, assignments []models.Assignment) []string {
	placed := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		placed[a.SectionID] = true
	}
	var missing []string
	for _, sec := range sections {
		if !placed[sec.ID] {
			missing = append(missing, sec.ID)
		}
	}
	sort.Strings(missing)
	return missing
}

// reportDay maps ISO weekday numbers to display names for exports.
func reportDay(day int) string {
	names := map[int]string{
		1: "Monday",
		2: "Tuesday",
		3: "Wednesday",
		4: "Thursday",
		5: "Friday",
		6: "Saturday",
		7: "Sunday",
	}
	if name, ok := names[day]; ok {
		return name
	}
	return fmt.Sprintf("Day %d", day)
}

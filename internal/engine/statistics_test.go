package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/models"
)

func TestBuildStatisticsCountsUtilization(t *testing.T) {
	slots, rooms := twoDayUniverse()
	sections := []models.Section{
		testSection("sec-a", "t1", "g1", 20),
		testSection("sec-b", "t2", "g2", 20),
	}
	req := Request{TermID: "term-1", Sections: sections, TimeSlots: slots, Classrooms: rooms}
	assignments := []models.Assignment{
		{SectionID: "sec-a", TimeSlotID: "slot-1", ClassroomID: "room-1"},
		{SectionID: "sec-b", TimeSlotID: "slot-1", ClassroomID: "room-2"},
	}

	stats := BuildStatistics("term-1", req, assignments, []string{"sec-c"}, nil)

	assert.Equal(t, 2, stats.ScheduledSections)
	assert.Equal(t, 1, stats.UnscheduledCount)
	assert.Equal(t, 2, stats.PerDayLoad[1])
	assert.Zero(t, stats.PerDayLoad[2])
	require.Len(t, stats.SlotUtilization, 4)

	first := stats.SlotUtilization[0]
	assert.Equal(t, "slot-1", first.TimeSlotID)
	assert.Equal(t, 2, first.UsedRooms)
	assert.Equal(t, 2, first.AvailableRooms)
	assert.Equal(t, 1.0, first.Ratio)

	assert.Equal(t, 8, stats.TotalRoomSlotPairs)
	assert.InDelta(t, 0.25, stats.RoomUtilization, 1e-9)
}

func TestBuildStatisticsConflictCounts(t *testing.T) {
	slots, rooms := twoDayUniverse()
	req := Request{TermID: "term-1", TimeSlots: slots, Classrooms: rooms}
	conflicts := []models.Conflict{
		{Kind: models.ConflictTeacherDoubleBooked},
		{Kind: models.ConflictTeacherDoubleBooked},
		{Kind: models.ConflictCapacityExceeded},
	}

	stats := BuildStatistics("term-1", req, nil, nil, conflicts)

	assert.Equal(t, 2, stats.ConflictsByKind[models.ConflictTeacherDoubleBooked])
	assert.Equal(t, 1, stats.ConflictsByKind[models.ConflictCapacityExceeded])
	assert.Zero(t, stats.ScheduledSections)
}

func TestBuildStatisticsMultiSlotSessionsCountEachSlot(t *testing.T) {
	slots, rooms := twoDayUniverse()
	long := testSection("sec-long", "t1", "g1", 10)
	long.SessionLength = 2
	req := Request{TermID: "term-1", Sections: []models.Section{long}, TimeSlots: slots, Classrooms: rooms}

	stats := BuildStatistics("term-1", req, []models.Assignment{
		{SectionID: "sec-long", TimeSlotID: "slot-1", ClassroomID: "room-1"},
	}, nil, nil)

	assert.Equal(t, 2, stats.PerDayLoad[1], "a two-period session loads both slots of the day")
	assert.Equal(t, 1, stats.SlotUtilization[0].UsedRooms)
	assert.Equal(t, 1, stats.SlotUtilization[1].UsedRooms)
}

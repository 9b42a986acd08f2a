package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
)

func eveningHeavyFixture() (*Detector, Schedule) {
	slots := []models.TimeSlot{
		testSlot("slot-1", 1, 1, "08:00"),
		testSlot("slot-2", 1, 2, "09:00"),
		testSlot("slot-3", 1, 9, "18:00"),
		testSlot("slot-4", 1, 10, "19:00"),
	}
	rooms := []models.Classroom{testRoom("room-1", 40), testRoom("room-2", 40)}
	sections := []models.Section{
		testSection("sec-a", "t1", "g1", 20),
		testSection("sec-b", "t2", "g2", 20),
	}
	det := NewDetector(sections, slots, rooms)
	// Feasible but undesirable: everything in the evening.
	schedule := Schedule{
		"sec-a": {SectionID: "sec-a", TimeSlotID: "slot-3", ClassroomID: "room-1"},
		"sec-b": {SectionID: "sec-b", TimeSlotID: "slot-4", ClassroomID: "room-2"},
	}
	return det, schedule
}

func TestOptimizerImprovesCostMonotonically(t *testing.T) {
	det, schedule := eveningHeavyFixture()
	opt := NewOptimizer(det, dto.DefaultAlgorithmConfig())

	outcome := opt.Optimize(context.Background(), schedule, nil)

	assert.LessOrEqual(t, outcome.FinalCost, outcome.InitialCost)
	assert.Empty(t, det.CheckAll(outcome.Schedule.Assignments()))
	for _, a := range outcome.Schedule {
		slot, ok := det.Slot(a.TimeSlotID)
		require.True(t, ok)
		assert.Equal(t, models.PeriodMorning, slot.Period(), "default weights should pull sections into morning slots")
	}
}

func TestOptimizerIdempotentAfterConvergence(t *testing.T) {
	det, schedule := eveningHeavyFixture()
	opt := NewOptimizer(det, dto.DefaultAlgorithmConfig())

	first := opt.Optimize(context.Background(), schedule, nil)
	second := opt.Optimize(context.Background(), first.Schedule, first.Unscheduled)

	assert.LessOrEqual(t, second.FinalCost, first.FinalCost+scoreEpsilon)
	assert.Equal(t, first.Schedule, second.Schedule)
}

func TestOptimizerHonoursDeadline(t *testing.T) {
	det, schedule := eveningHeavyFixture()
	opt := NewOptimizer(det, dto.DefaultAlgorithmConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := opt.Optimize(ctx, schedule, nil)

	assert.Zero(t, outcome.Iterations)
	assert.Equal(t, schedule, outcome.Schedule, "cancelled run returns the input schedule untouched")
}

func TestOptimizerPlacesUnscheduledSections(t *testing.T) {
	slots := []models.TimeSlot{
		testSlot("slot-1", 1, 1, "08:00"),
		testSlot("slot-2", 1, 2, "09:00"),
	}
	rooms := []models.Classroom{testRoom("room-1", 40)}
	sections := []models.Section{
		testSection("sec-a", "t1", "g1", 20),
		testSection("sec-b", "t2", "g2", 20),
	}
	det := NewDetector(sections, slots, rooms)
	schedule := Schedule{
		"sec-a": {SectionID: "sec-a", TimeSlotID: "slot-1", ClassroomID: "room-1"},
	}

	outcome := NewOptimizer(det, dto.DefaultAlgorithmConfig()).Optimize(context.Background(), schedule, []string{"sec-b"})

	assert.Empty(t, outcome.Unscheduled)
	require.Contains(t, outcome.Schedule, "sec-b")
	assert.Empty(t, det.CheckAll(outcome.Schedule.Assignments()))
	assert.Less(t, outcome.FinalCost, outcome.InitialCost, "placing a section removes its unscheduled penalty")
}

func TestOptimizerSwapEscapesRelocationMinimum(t *testing.T) {
	// One morning and one evening slot, one room each: no single relocation
	// can move the morning-preferred section forward, only a swap can.
	slots := []models.TimeSlot{
		testSlot("slot-am", 1, 1, "08:00"),
		testSlot("slot-pm", 2, 1, "18:00"),
	}
	rooms := []models.Classroom{testRoom("room-1", 40)}
	wantsMorning := testSection("sec-a", "t1", "g1", 20)
	wantsMorning.PreferenceTags = []string{"morning-preferred"}
	indifferent := testSection("sec-b", "t2", "g2", 20)

	det := NewDetector([]models.Section{wantsMorning, indifferent}, slots, rooms)
	schedule := Schedule{
		"sec-a": {SectionID: "sec-a", TimeSlotID: "slot-pm", ClassroomID: "room-1"},
		"sec-b": {SectionID: "sec-b", TimeSlotID: "slot-am", ClassroomID: "room-1"},
	}

	outcome := NewOptimizer(det, dto.DefaultAlgorithmConfig()).Optimize(context.Background(), schedule, nil)

	assert.Equal(t, "slot-am", outcome.Schedule["sec-a"].TimeSlotID)
	assert.Equal(t, "slot-pm", outcome.Schedule["sec-b"].TimeSlotID)
	assert.Empty(t, det.CheckAll(outcome.Schedule.Assignments()))
}

func TestOptimizeEndpointNeverWorsensFeasibility(t *testing.T) {
	req := mediumRequest()
	result := New(nil).AutoSchedule(context.Background(), req)
	require.Empty(t, result.Conflicts)

	refined := New(nil).Optimize(context.Background(), req, result.Schedule.Assignments())

	assert.Empty(t, refined.Conflicts)
	assert.LessOrEqual(t, refined.FinalCost, refined.InitialCost)
	assert.LessOrEqual(t, len(refined.Unscheduled), len(result.Unscheduled))
}

package engine

import (
	"sort"

	"github.com/campusops/timetable-api/internal/models"
)

// BuildStatistics aggregates a finished schedule into utilization and
// conflict metrics for display. Pure counting, no side effects.
func BuildStatistics(termID string, req Request, assignments []models.Assignment, unscheduled []string, conflicts []models.Conflict) models.ScheduleStatistics {
	det := NewDetector(req.Sections, req.TimeSlots, req.Classrooms)

	stats := models.ScheduleStatistics{
		TermID:            termID,
		ScheduledSections: len(assignments),
		UnscheduledCount:  len(unscheduled),
		PerDayLoad:        make(map[int]int),
		ConflictsByKind:   make(map[models.ConflictKind]int),
	}

	usedBySlot := make(map[string]int)
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
			usedBySlot[slotID]++
			if slot, found := det.Slot(slotID); found {
				stats.PerDayLoad[slot.DayOfWeek]++
			}
		}
	}

	for _, c := range conflicts {
		stats.ConflictsByKind[c.Kind]++
	}

	totalPairs := 0
	totalUsed := 0
	for _, slotID := range det.SlotIDs() {
		slot, _ := det.Slot(slotID)
		available := 0
		for _, roomID := range det.RoomIDs() {
			room, _ := det.Room(roomID)
			if room.AvailableOn(slotID) {
				available++
			}
		}
		used := usedBySlot[slotID]
		ratio := 0.0
		if available > 0 {
			ratio = float64(used) / float64(available)
		}
		stats.SlotUtilization = append(stats.SlotUtilization, models.SlotUtilization{
			TimeSlotID:     slotID,
			DayOfWeek:      slot.DayOfWeek,
			PeriodIndex:    slot.PeriodIndex,
			UsedRooms:      used,
			AvailableRooms: available,
			Ratio:          ratio,
		})
		totalPairs += available
		totalUsed += used
	}
	sort.Slice(stats.SlotUtilization, func(i, j int) bool {
		a, b := stats.SlotUtilization[i], stats.SlotUtilization[j]
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return a.PeriodIndex < b.PeriodIndex
	})

	stats.TotalRoomSlotPairs = totalPairs
	if totalPairs > 0 {
		stats.RoomUtilization = float64(totalUsed) / float64(totalPairs)
	}
	return stats
}

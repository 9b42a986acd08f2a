package models

// SlotUtilization reports classroom usage for one time slot.
type SlotUtilization struct {
	TimeSlotID     string  `json:"time_slot_id"`
	DayOfWeek      int     `json:"day_of_week"`
	PeriodIndex    int     `json:"period_index"`
	UsedRooms      int     `json:"used_rooms"`
	AvailableRooms int     `json:"available_rooms"`
	Ratio          float64 `json:"ratio"`
}

// ScheduleStatistics aggregates a finished schedule for display.
type ScheduleStatistics struct {
	TermID             string               `json:"term_id"`
	ScheduledSections  int                  `json:"scheduled_sections"`
	UnscheduledCount   int                  `json:"unscheduled_count"`
	PerDayLoad         map[int]int          `json:"per_day_load"`
	SlotUtilization    []SlotUtilization    `json:"slot_utilization"`
	ConflictsByKind    map[ConflictKind]int `json:"conflicts_by_kind"`
	RoomUtilization    float64              `json:"room_utilization"`
	TotalRoomSlotPairs int                  `json:"total_room_slot_pairs"`
}

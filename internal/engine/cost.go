package engine

import (
	"math"
	"sort"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
)

// costModel prices a schedule: weighted conflicts plus the negated
// preference score plus an imbalance penalty across teaching days. Lower is
// better; a fully feasible schedule has a zero conflict term.
type costModel struct {
	det  *Detector
	cfg  dto.AlgorithmConfig
	days []int
}

func newCostModel(det *Detector, cfg dto.AlgorithmConfig) costModel {
	daySet := make(map[int]struct{})
	for _, id := range det.SlotIDs() {
		slot, _ := det.Slot(id)
		daySet[slot.DayOfWeek] = struct{}{}
	}
	days := make([]int, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}
	sort.Ints(days)
	return costModel{det: det, cfg: cfg, days: days}
}

// Cost computes the full additive cost of a schedule.
func (m costModel) Cost(s Schedule) float64 {
	assignments := s.Assignments()

	var total float64
	for _, c := range m.det.CheckAll(assignments) {
		total += m.cfg.ConflictWeights.WeightFor(c.Kind)
	}

	loads := make(map[int]int, len(m.days))
	for _, a := range assignments {
		total -= m.preference(a)
		if slot, ok := m.det.Slot(a.TimeSlotID); ok {
			loads[slot.DayOfWeek]++
		}
	}
	total += m.balancePenalty(loads, len(assignments))
	return total
}

// preference scores a single assignment by its slot's time-of-day band,
// doubled when the section carries the matching *-preferred tag.
func (m costModel) preference(a models.Assignment) float64 {
	slot, ok := m.det.Slot(a.TimeSlotID)
	if !ok {
		return 0
	}
	period := slot.Period()
	score := m.cfg.Preferences.PeriodWeight(period)

	sec, ok := m.det.Section(a.SectionID)
	if !ok {
		return score
	}
	for _, tag := range sec.PreferenceTags {
		if preferredPeriod(tag) == period {
			score += m.cfg.Preferences.PeriodWeight(period)
		}
	}
	return score
}

func preferredPeriod(tag string) models.DayPeriod {
	switch tag {
	case "morning-preferred":
		return models.PeriodMorning
	case "afternoon-preferred":
		return models.PeriodAfternoon
	case "evening-preferred":
		return models.PeriodEvening
	default:
		return ""
	}
}

// balancePenalty charges the mean absolute deviation of per-day load,
// scaled by the balance weight.
func (m costModel) balancePenalty(loads map[int]int, total int) float64 {
	if len(m.days) == 0 || total == 0 {
		return 0
	}
	mean := float64(total) / float64(len(m.days))
	var deviation float64
	for _, day := range m.days {
		deviation += math.Abs(float64(loads[day]) - mean)
	}
	return m.cfg.Preferences.BalanceWeight * deviation / float64(len(m.days))
}

package engine

import (
	"sort"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
)

const scoreEpsilon = 1e-9

// Generator builds an initial conflict-free schedule greedily. Sections are
// placed most-constrained-first; every placement is filtered through the
// occupancy index so the draft never contains a hard conflict. Sections with
// no feasible pair are reported unscheduled rather than aborting the run.
type Generator struct {
	det  *Detector
	cfg  dto.AlgorithmConfig
	cost costModel
}

// NewGenerator wires a generator over the detector's universe.
func NewGenerator(det *Detector, cfg dto.AlgorithmConfig) *Generator {
	return &Generator{det: det, cfg: cfg, cost: newCostModel(det, cfg)}
}

// Generate produces a draft schedule plus the ids of sections that could
// not be placed anywhere.
func (g *Generator) Generate() (Schedule, []string) {
	occ := newOccupancy(g.det)
	dayLoad := make(map[int]int)
	schedule := make(Schedule)
	var unscheduled []string

	for _, sec := range g.orderByDifficulty() {
		assignment, ok := g.placeBest(occ, dayLoad, sec)
		if !ok {
			unscheduled = append(unscheduled, sec.ID)
			continue
		}
		schedule[sec.ID] = assignment
		occ.add(assignment)
		if slot, found := g.det.Slot(assignment.TimeSlotID); found {
			dayLoad[slot.DayOfWeek]++
		}
	}
	sort.Strings(unscheduled)
	return schedule, unscheduled
}

// orderByDifficulty sorts sections most-constrained-first: fewest compatible
// classrooms, then fewest feasible start slots, then largest capacity need,
// then id for reproducibility.
func (g *Generator) orderByDifficulty() []models.Section {
	sections := g.det.Sections()
	type ranked struct {
		sec    models.Section
		rooms  int
		starts int
	}
	items := make([]ranked, 0, len(sections))
	for _, sec := range sections {
		items = append(items, ranked{
			sec:    sec,
			rooms:  g.compatibleRoomCount(sec),
			starts: g.feasibleStartCount(sec),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.rooms != b.rooms {
			return a.rooms < b.rooms
		}
		if a.starts != b.starts {
			return a.starts < b.starts
		}
		if a.sec.RequiredCapacity != b.sec.RequiredCapacity {
			return a.sec.RequiredCapacity > b.sec.RequiredCapacity
		}
		return a.sec.ID < b.sec.ID
	})
	out := make([]models.Section, len(items))
	for i, item := range items {
		out[i] = item.sec
	}
	return out
}

func (g *Generator) compatibleRoomCount(sec models.Section) int {
	count := 0
	for _, id := range g.det.RoomIDs() {
		room, _ := g.det.Room(id)
		if g.det.RoomCompatible(sec, room) {
			count++
		}
	}
	return count
}

func (g *Generator) feasibleStartCount(sec models.Section) int {
	count := 0
	for _, id := range g.det.SlotIDs() {
		if _, ok := g.det.SessionSlotIDs(sec, id); ok {
			count++
		}
	}
	return count
}

// placeBest enumerates feasible (slot, classroom) pairs for the section and
// picks the highest-scoring one. Ties break on lowest classroom id, then
// lowest slot id, keeping output reproducible for identical input.
func (g *Generator) placeBest(occ *occupancy, dayLoad map[int]int, sec models.Section) (models.Assignment, bool) {
	var (
		best      models.Assignment
		bestScore float64
		found     bool
	)
	for _, slotID := range g.det.SlotIDs() {
		slot, _ := g.det.Slot(slotID)
		for _, roomID := range g.det.RoomIDs() {
			if !occ.canPlace(sec, slotID, roomID) {
				continue
			}
			candidate := models.Assignment{
				TermID:      sec.TermID,
				SectionID:   sec.ID,
				TimeSlotID:  slotID,
				ClassroomID: roomID,
			}
			score := g.cost.preference(candidate) - g.cfg.Preferences.BalanceWeight*float64(dayLoad[slot.DayOfWeek])
			if !found || score > bestScore+scoreEpsilon || (score > bestScore-scoreEpsilon && lowerPair(candidate, best)) {
				best = candidate
				bestScore = score
				found = true
			}
		}
	}
	return best, found
}

func lowerPair(a, b models.Assignment) bool {
	if a.ClassroomID != b.ClassroomID {
		return a.ClassroomID < b.ClassroomID
	}
	return a.TimeSlotID < b.TimeSlotID
}

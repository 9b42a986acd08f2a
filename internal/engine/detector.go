package engine

import (
	"fmt"
	"sort"

	"github.com/campusops/timetable-api/internal/models"
)

// Detector answers hard-constraint questions about candidate assignments.
// It is pure and deterministic; double-booking lookups go through an
// occupancy index so a single check is O(1) amortized in the number of
// existing assignments.
type Detector struct {
	sections map[string]models.Section
	slots    map[string]models.TimeSlot
	rooms    map[string]models.Classroom

	slotIDs []string
	roomIDs []string

	// nextSlot maps a slot to the slot of the following period on the same
	// day, for sections spanning consecutive slots.
	nextSlot map[string]string
}

// NewDetector indexes the term's universe.
func NewDetector(sections []models.Section, slots []models.TimeSlot, rooms []models.Classroom) *Detector {
	d := &Detector{
		sections: make(map[string]models.Section, len(sections)),
		slots:    make(map[string]models.TimeSlot, len(slots)),
		rooms:    make(map[string]models.Classroom, len(rooms)),
		nextSlot: make(map[string]string),
	}
	for _, s := range sections {
		d.sections[s.ID] = s
	}
	for _, t := range slots {
		d.slots[t.ID] = t
		d.slotIDs = append(d.slotIDs, t.ID)
	}
	for _, r := range rooms {
		d.rooms[r.ID] = r
		d.roomIDs = append(d.roomIDs, r.ID)
	}
	sort.Strings(d.slotIDs)
	sort.Strings(d.roomIDs)

	byDay := make(map[int][]models.TimeSlot)
	for _, t := range slots {
		byDay[t.DayOfWeek] = append(byDay[t.DayOfWeek], t)
	}
	for _, daySlots := range byDay {
		sort.Slice(daySlots, func(i, j int) bool { return daySlots[i].PeriodIndex < daySlots[j].PeriodIndex })
		for i := 0; i+1 < len(daySlots); i++ {
			if daySlots[i+1].PeriodIndex == daySlots[i].PeriodIndex+1 {
				d.nextSlot[daySlots[i].ID] = daySlots[i+1].ID
			}
		}
	}
	return d
}

// Section looks up a section by id.
func (d *Detector) Section(id string) (models.Section, bool) {
	s, ok := d.sections[id]
	return s, ok
}

// Slot looks up a time slot by id.
func (d *Detector) Slot(id string) (models.TimeSlot, bool) {
	t, ok := d.slots[id]
	return t, ok
}

// Room looks up a classroom by id.
func (d *Detector) Room(id string) (models.Classroom, bool) {
	r, ok := d.rooms[id]
	return r, ok
}

// SlotIDs returns all slot ids in deterministic order.
func (d *Detector) SlotIDs() []string { return d.slotIDs }

// RoomIDs returns all classroom ids in deterministic order.
func (d *Detector) RoomIDs() []string { return d.roomIDs }

// Sections returns all sections sorted by id.
func (d *Detector) Sections() []models.Section {
	out := make([]models.Section, 0, len(d.sections))
	for _, s := range d.sections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SessionSlotIDs expands a start slot to every slot the section occupies:
// the start plus the following consecutive periods on the same day. The
// second return is false when the day does not have enough consecutive
// periods left.
func (d *Detector) SessionSlotIDs(sec models.Section, startSlotID string) ([]string, bool) {
	length := sec.SessionSlots()
	ids := make([]string, 0, length)
	current := startSlotID
	for i := 0; i < length; i++ {
		if _, ok := d.slots[current]; !ok {
			return nil, false
		}
		ids = append(ids, current)
		if i+1 < length {
			next, ok := d.nextSlot[current]
			if !ok {
				return nil, false
			}
			current = next
		}
	}
	return ids, true
}

// RoomCompatible reports whether the room can host the section at all:
// capacity and, when the section demands a room type, type match.
func (d *Detector) RoomCompatible(sec models.Section, room models.Classroom) bool {
	if room.Capacity < sec.RequiredCapacity {
		return false
	}
	if required := requiredRoomType(sec); required != "" && room.Type != required {
		return false
	}
	return true
}

func requiredRoomType(sec models.Section) models.ClassroomType {
	for _, tag := range sec.PreferenceTags {
		switch tag {
		case "needs-lab":
			return models.RoomLab
		case "needs-multimedia":
			return models.RoomMultimedia
		}
	}
	return ""
}

// Check validates one candidate against an existing assignment set. Local
// violations (capacity, availability) are independent of the existing set.
func (d *Detector) Check(candidate models.Assignment, existing []models.Assignment) []models.Conflict {
	occ := newOccupancy(d)
	for _, a := range existing {
		occ.add(a)
	}
	conflicts := d.localViolations(candidate)
	return append(conflicts, occ.collisions(candidate)...)
}

// CheckAll validates a whole assignment set. Every pairwise double booking
// is reported once, referencing the earlier assignment in section-id order.
func (d *Detector) CheckAll(assignments []models.Assignment) []models.Conflict {
	ordered := make([]models.Assignment, len(assignments))
	copy(ordered, assignments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SectionID < ordered[j].SectionID })

	occ := newOccupancy(d)
	var conflicts []models.Conflict
	for _, a := range ordered {
		conflicts = append(conflicts, d.localViolations(a)...)
		conflicts = append(conflicts, occ.collisions(a)...)
		occ.add(a)
	}
	return conflicts
}

func (d *Detector) localViolations(a models.Assignment) []models.Conflict {
	sec, okSec := d.sections[a.SectionID]
	room, okRoom := d.rooms[a.ClassroomID]
	if !okSec || !okRoom {
		return nil
	}
	var conflicts []models.Conflict
	if room.Capacity < sec.RequiredCapacity {
		conflicts = append(conflicts, models.Conflict{
			Kind:        models.ConflictCapacityExceeded,
			SectionID:   a.SectionID,
			TimeSlotID:  a.TimeSlotID,
			ClassroomID: a.ClassroomID,
			Message:     fmt.Sprintf("classroom %s holds %d but section %s needs %d", room.ID, room.Capacity, sec.ID, sec.RequiredCapacity),
		})
	}
	slotIDs, ok := d.SessionSlotIDs(sec, a.TimeSlotID)
	if !ok {
		slotIDs = []string{a.TimeSlotID}
	}
	for _, slotID := range slotIDs {
		if !room.AvailableOn(slotID) {
			conflicts = append(conflicts, models.Conflict{
				Kind:        models.ConflictClassroomUnavailable,
				SectionID:   a.SectionID,
				TimeSlotID:  slotID,
				ClassroomID: a.ClassroomID,
				Message:     fmt.Sprintf("classroom %s is not available on slot %s", room.ID, slotID),
			})
		}
	}
	return conflicts
}

// occupancy indexes who holds each (resource, slot) pair. Keys cover every
// slot a multi-period session occupies, so a collision on any occupied slot
// surfaces for the whole assignment.
type occupancy struct {
	det     *Detector
	teacher map[occKey]string
	room    map[occKey]string
	group   map[occKey]string
}

type occKey struct {
	ResourceID string
	SlotID     string
}

func newOccupancy(det *Detector) *occupancy {
	return &occupancy{
		det:     det,
		teacher: make(map[occKey]string),
		room:    make(map[occKey]string),
		group:   make(map[occKey]string),
	}
}

func (o *occupancy) slotSpan(a models.Assignment) ([]string, models.Section, bool) {
	sec, ok := o.det.sections[a.SectionID]
	if !ok {
		return nil, models.Section{}, false
	}
	ids, ok := o.det.SessionSlotIDs(sec, a.TimeSlotID)
	if !ok {
		ids = []string{a.TimeSlotID}
	}
	return ids, sec, true
}

func (o *occupancy) add(a models.Assignment) {
	ids, sec, ok := o.slotSpan(a)
	if !ok {
		return
	}
	for _, slotID := range ids {
		o.teacher[occKey{sec.TeacherID, slotID}] = a.SectionID
		o.room[occKey{a.ClassroomID, slotID}] = a.SectionID
		o.group[occKey{sec.StudentGroupID, slotID}] = a.SectionID
	}
}

func (o *occupancy) remove(a models.Assignment) {
	ids, sec, ok := o.slotSpan(a)
	if !ok {
		return
	}
	for _, slotID := range ids {
		delete(o.teacher, occKey{sec.TeacherID, slotID})
		delete(o.room, occKey{a.ClassroomID, slotID})
		delete(o.group, occKey{sec.StudentGroupID, slotID})
	}
}

// collisions reports double bookings the candidate would cause against the
// current index. Each (kind, other-section) pair is reported once even for
// multi-slot sessions.
func (o *occupancy) collisions(a models.Assignment) []models.Conflict {
	ids, sec, ok := o.slotSpan(a)
	if !ok {
		return nil
	}
	var conflicts []models.Conflict
	seen := make(map[string]bool)
	report := func(kind models.ConflictKind, other, slotID, msg string) {
		key := string(kind) + "|" + other
		if other == a.SectionID || seen[key] {
			return
		}
		seen[key] = true
		conflicts = append(conflicts, models.Conflict{
			Kind:           kind,
			SectionID:      a.SectionID,
			OtherSectionID: other,
			TimeSlotID:     slotID,
			ClassroomID:    a.ClassroomID,
			Message:        msg,
		})
	}
	for _, slotID := range ids {
		if other, busy := o.teacher[occKey{sec.TeacherID, slotID}]; busy {
			report(models.ConflictTeacherDoubleBooked, other, slotID,
				fmt.Sprintf("teacher %s already booked on slot %s by section %s", sec.TeacherID, slotID, other))
		}
		if other, busy := o.room[occKey{a.ClassroomID, slotID}]; busy {
			report(models.ConflictClassroomDoubleBooked, other, slotID,
				fmt.Sprintf("classroom %s already booked on slot %s by section %s", a.ClassroomID, slotID, other))
		}
		if other, busy := o.group[occKey{sec.StudentGroupID, slotID}]; busy {
			report(models.ConflictStudentGroupDoubleBooked, other, slotID,
				fmt.Sprintf("student group %s already booked on slot %s by section %s", sec.StudentGroupID, slotID, other))
		}
	}
	return conflicts
}

// canPlace reports whether the assignment is fully feasible against the
// index: session fits, room compatible and available, no double booking.
func (o *occupancy) canPlace(sec models.Section, slotID, roomID string) bool {
	room, ok := o.det.rooms[roomID]
	if !ok {
		return false
	}
	if !o.det.RoomCompatible(sec, room) {
		return false
	}
	ids, ok := o.det.SessionSlotIDs(sec, slotID)
	if !ok {
		return false
	}
	for _, occupied := range ids {
		if !room.AvailableOn(occupied) {
			return false
		}
		if _, busy := o.teacher[occKey{sec.TeacherID, occupied}]; busy {
			return false
		}
		if _, busy := o.room[occKey{roomID, occupied}]; busy {
			return false
		}
		if _, busy := o.group[occKey{sec.StudentGroupID, occupied}]; busy {
			return false
		}
	}
	return true
}

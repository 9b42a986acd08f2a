package models

import (
	"time"

	"github.com/lib/pq"
)

// ClassroomType categorises rooms for section compatibility.
type ClassroomType string

const (
	RoomLecture    ClassroomType = "LECTURE"
	RoomLab        ClassroomType = "LAB"
	RoomMultimedia ClassroomType = "MULTIMEDIA"
)

// Classroom is a bookable room. Code is the structural identity that
// survives across terms (ids are reissued per term catalog import).
// An empty AvailableSlotIDs list means the room is open on every slot.
type Classroom struct {
	ID               string         `db:"id" json:"id"`
	Code             string         `db:"code" json:"code"`
	Name             string         `db:"name" json:"name"`
	Capacity         int            `db:"capacity" json:"capacity"`
	Type             ClassroomType  `db:"type" json:"type"`
	AvailableSlotIDs pq.StringArray `db:"available_slot_ids" json:"available_slot_ids,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// AvailableOn reports whether the room can be booked on the slot.
func (c Classroom) AvailableOn(slotID string) bool {
	if len(c.AvailableSlotIDs) == 0 {
		return true
	}
	for _, id := range c.AvailableSlotIDs {
		if id == slotID {
			return true
		}
	}
	return false
}

// ClassroomFilter captures filtering options for listing classrooms.
type ClassroomFilter struct {
	Type        ClassroomType
	MinCapacity int
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

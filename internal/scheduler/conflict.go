package scheduler

import "time"

// Slot is an occupied interval of the room.
type Slot struct {
	ID    string
	Class bool
	Start time.Time
	End   time.Time
}

// ConflictType describes how a candidate collides with an existing slot.
type ConflictType string

const (
	// ConflictTypeNormal indicates overlap with an individual booking.
	ConflictTypeNormal ConflictType = "normal"
	// ConflictTypeClass indicates overlap with a class session.
	ConflictTypeClass ConflictType = "class"
)

// Conflict details an overlapping slot that callers can present to users.
type Conflict struct {
	WithSlotID string
	Type       ConflictType
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Contains reports whether at lies within [start, end], both ends inclusive.
func Contains(start, end, at time.Time) bool {
	return !at.Before(start) && !at.After(end)
}

// DetectConflicts identifies existing slots that overlap the candidate, in input order.
func DetectConflicts(existing []Slot, candidate Slot) []Conflict {
	var conflicts []Conflict
	for _, slot := range existing {
		if candidate.ID != "" && slot.ID == candidate.ID {
			continue
		}
		if !Overlaps(slot.Start, slot.End, candidate.Start, candidate.End) {
			continue
		}
		kind := ConflictTypeNormal
		if slot.Class {
			kind = ConflictTypeClass
		}
		conflicts = append(conflicts, Conflict{WithSlotID: slot.ID, Type: kind})
	}
	return conflicts
}

// Package calendar defines the event store the booking engine writes through,
// together with an in-memory implementation and an ICS export.
package calendar

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrEventNotFound indicates the event to delete no longer exists.
var ErrEventNotFound = errors.New("calendar: event not found")

// Kind distinguishes class sessions from individual bookings.
type Kind string

const (
	// KindNormal marks an individual booking.
	KindNormal Kind = "normal"
	// KindClass marks a class session, which always wins over normal bookings.
	KindClass Kind = "class"
)

// Label returns the record-store label for the kind.
func (k Kind) Label() string {
	if k == KindClass {
		return "授業"
	}
	return "通常"
}

// ParseKind accepts both the typed value and the record-store label.
// Unknown values read as KindNormal.
func ParseKind(value string) Kind {
	if kind, ok := LookupKind(value); ok {
		return kind
	}
	return KindNormal
}

// LookupKind is ParseKind that reports whether value named a kind at all.
func LookupKind(value string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(KindClass), "授業":
		return KindClass, true
	case string(KindNormal), "通常":
		return KindNormal, true
	default:
		return "", false
	}
}

// Event is one occupied interval on the room calendar.
type Event struct {
	ID          string
	Title       string
	Description string
	OwnerID     string
	Kind        Kind
	Start       time.Time
	End         time.Time
}

// IsClass reports whether the event is a class session.
func (e Event) IsClass() bool {
	return e.Kind == KindClass
}

// NewEvent is the input for creating an event.
type NewEvent struct {
	Title       string
	Description string
	OwnerID     string
	Kind        Kind
	Start       time.Time
	End         time.Time
}

// Calendar is the event store contract. EventsOverlapping uses half-open
// intervals; EventsOnDay returns events overlapping the calendar day of day.
type Calendar interface {
	EventsOverlapping(ctx context.Context, start, end time.Time) ([]Event, error)
	EventsOnDay(ctx context.Context, day time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, input NewEvent) (Event, error)
	DeleteEvent(ctx context.Context, event Event) error
}

// DayBounds returns [midnight, next midnight) for the day of t in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-reservation/internal/scheduler"
)

// Memory is an in-process Calendar used by tests and single-node demos.
type Memory struct {
	mu          sync.RWMutex
	events      map[string]Event
	idGenerator func() string
}

// NewMemory constructs an empty in-memory calendar.
func NewMemory() *Memory {
	return &Memory{
		events:      make(map[string]Event),
		idGenerator: uuid.NewString,
	}
}

// NewMemoryWithIDs lets tests control event identifiers.
func NewMemoryWithIDs(idGenerator func() string) *Memory {
	m := NewMemory()
	if idGenerator != nil {
		m.idGenerator = idGenerator
	}
	return m
}

// EventsOverlapping returns events intersecting [start, end) ordered by start.
func (m *Memory) EventsOverlapping(ctx context.Context, start, end time.Time) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Event
	for _, ev := range m.events {
		if scheduler.Overlaps(ev.Start, ev.End, start, end) {
			result = append(result, ev)
		}
	}
	sortEvents(result)
	return result, nil
}

// EventsOnDay returns events overlapping the calendar day of day.
func (m *Memory) EventsOnDay(ctx context.Context, day time.Time) ([]Event, error) {
	start, end := DayBounds(day)
	return m.EventsOverlapping(ctx, start, end)
}

// CreateEvent stores a new event. A missing kind is derived from the title.
func (m *Memory) CreateEvent(ctx context.Context, input NewEvent) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	kind := input.Kind
	if kind == "" {
		kind = KindFromTitle(input.Title)
	}
	ev := Event{
		ID:          m.idGenerator(),
		Title:       input.Title,
		Description: input.Description,
		OwnerID:     input.OwnerID,
		Kind:        kind,
		Start:       input.Start,
		End:         input.End,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
	return ev, nil
}

// DeleteEvent removes the event with the same ID.
func (m *Memory) DeleteEvent(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.ID]; !ok {
		return ErrEventNotFound
	}
	delete(m.events, event.ID)
	return nil
}

// All returns every stored event ordered by start.
func (m *Memory) All() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Event, 0, len(m.events))
	for _, ev := range m.events {
		result = append(result, ev)
	}
	sortEvents(result)
	return result
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
}

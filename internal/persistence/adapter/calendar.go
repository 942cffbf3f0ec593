package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-reservation/internal/calendar"
	"github.com/example/room-reservation/internal/persistence"
)

// Calendar is a calendar.Calendar backed by the calendar_events table.
type Calendar struct {
	repo        persistence.CalendarEventRepository
	location    *time.Location
	idGenerator func() string
	now         func() time.Time
}

var _ calendar.Calendar = (*Calendar)(nil)

// NewCalendar wraps repo. Event times are returned in loc.
func NewCalendar(repo persistence.CalendarEventRepository, loc *time.Location, idGenerator func() string) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	return &Calendar{repo: repo, location: loc, idGenerator: idGenerator, now: time.Now}
}

// EventsOverlapping returns events intersecting [start, end).
func (c *Calendar) EventsOverlapping(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	stored, err := c.repo.ListEventsOverlapping(ctx, start, end)
	if err != nil {
		return nil, err
	}
	events := make([]calendar.Event, 0, len(stored))
	for _, ev := range stored {
		events = append(events, calendar.Event{
			ID:          ev.ID,
			Title:       ev.Title,
			Description: ev.Description,
			OwnerID:     ev.OwnerID,
			Kind:        calendar.ResolveKind(ev.Kind, ev.Title),
			Start:       ev.Start.In(c.location),
			End:         ev.End.In(c.location),
		})
	}
	return events, nil
}

// EventsOnDay returns events overlapping the day of day in the calendar's zone.
func (c *Calendar) EventsOnDay(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	start, end := calendar.DayBounds(day.In(c.location))
	return c.EventsOverlapping(ctx, start, end)
}

// CreateEvent stores a new event. A missing kind is derived from the title.
func (c *Calendar) CreateEvent(ctx context.Context, input calendar.NewEvent) (calendar.Event, error) {
	kind := input.Kind
	if kind == "" {
		kind = calendar.KindFromTitle(input.Title)
	}
	ev := calendar.Event{
		ID:          c.idGenerator(),
		Title:       input.Title,
		Description: input.Description,
		OwnerID:     input.OwnerID,
		Kind:        kind,
		Start:       input.Start,
		End:         input.End,
	}
	if err := c.repo.CreateEvent(ctx, persistence.CalendarEvent{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		OwnerID:     ev.OwnerID,
		Kind:        string(ev.Kind),
		Start:       ev.Start,
		End:         ev.End,
		CreatedAt:   c.now(),
	}); err != nil {
		return calendar.Event{}, err
	}
	return ev, nil
}

// DeleteEvent removes the event by id.
func (c *Calendar) DeleteEvent(ctx context.Context, event calendar.Event) error {
	err := c.repo.DeleteEvent(ctx, event.ID)
	if errors.Is(err, persistence.ErrNotFound) {
		return calendar.ErrEventNotFound
	}
	return err
}

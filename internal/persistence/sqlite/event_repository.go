package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/room-reservation/internal/persistence"
)

// CalendarEventRepository implements persistence.CalendarEventRepository using SQLite.
// Times are stored as RFC3339 UTC text so range predicates compare lexically.
type CalendarEventRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewCalendarEventRepository creates a new SQLite calendar event repository
func NewCalendarEventRepository(pool *ConnectionPool) *CalendarEventRepository {
	return &CalendarEventRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateEvent inserts a new event.
func (r *CalendarEventRepository) CreateEvent(ctx context.Context, event persistence.CalendarEvent) error {
	if event.ID == "" || !event.Start.Before(event.End) {
		return persistence.ErrConstraintViolation
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO calendar_events (id, title, description, owner_id, kind, start_time, end_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query,
			event.ID,
			event.Title,
			event.Description,
			event.OwnerID,
			event.Kind,
			formatTime(event.Start),
			formatTime(event.End),
			formatTime(event.CreatedAt),
		)
		return err
	})
}

// ListEventsOverlapping returns events intersecting [start, end) ordered by start.
func (r *CalendarEventRepository) ListEventsOverlapping(ctx context.Context, start, end time.Time) ([]persistence.CalendarEvent, error) {
	query := `
		SELECT id, title, description, owner_id, kind, start_time, end_time, created_at
		FROM calendar_events
		WHERE start_time < ? AND end_time > ?
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.pool.DB().QueryContext(ctx, query, formatTime(end), formatTime(start))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.CalendarEvent
	for rows.Next() {
		var (
			event                        persistence.CalendarEvent
			startStr, endStr, createdStr string
		)
		if err := rows.Scan(&event.ID, &event.Title, &event.Description, &event.OwnerID, &event.Kind, &startStr, &endStr, &createdStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if event.Start, err = parseTime(startStr); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if event.End, err = parseTime(endStr); err != nil {
			return nil, fmt.Errorf("failed to parse end_time: %w", err)
		}
		if event.CreatedAt, err = parseTime(createdStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

// DeleteEvent removes the event with id.
func (r *CalendarEventRepository) DeleteEvent(ctx context.Context, id string) error {
	var affected int64
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM calendar_events WHERE id = ?", id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

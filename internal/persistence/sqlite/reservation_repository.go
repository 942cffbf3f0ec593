package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-reservation/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using SQLite
type ReservationRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// AppendReservation adds a row to the end of the log and returns it with its sequence number.
func (r *ReservationRepository) AppendReservation(ctx context.Context, reservation persistence.Reservation) (persistence.Reservation, error) {
	if reservation.ID == "" || reservation.OwnerID == "" {
		return persistence.Reservation{}, persistence.ErrConstraintViolation
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO reservations (id, owner_id, owner_name, date, start_time, end_time, note, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, query,
			reservation.ID,
			reservation.OwnerID,
			reservation.OwnerName,
			reservation.Date,
			reservation.StartTime,
			reservation.EndTime,
			reservation.Note,
			reservation.Kind,
			formatTime(reservation.CreatedAt),
		)
		if err != nil {
			return err
		}
		seq, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read sequence: %w", err)
		}
		reservation.Seq = seq
		return nil
	})
	if err != nil {
		return persistence.Reservation{}, err
	}

	return reservation, nil
}

// ListReservations returns matching rows in insertion order.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if filter.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.FromDate != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.FromDate)
	}

	query := `
		SELECT seq, id, owner_id, owner_name, date, start_time, end_time, note, kind, created_at
		FROM reservations
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return reservations, nil
}

// DeleteReservations removes the rows with the given IDs in one transaction
// and reports how many existed.
func (r *ReservationRepository) DeleteReservations(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int
	err := r.retry.WithRetry(ctx, func() error {
		deleted = 0
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, "DELETE FROM reservations WHERE id = ?")
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, id := range ids {
				result, err := stmt.ExecContext(ctx, id)
				if err != nil {
					return err
				}
				n, err := result.RowsAffected()
				if err != nil {
					return err
				}
				deleted += int(n)
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation persistence.Reservation
		createdAt   string
	)
	err := row.Scan(
		&reservation.Seq,
		&reservation.ID,
		&reservation.OwnerID,
		&reservation.OwnerName,
		&reservation.Date,
		&reservation.StartTime,
		&reservation.EndTime,
		&reservation.Note,
		&reservation.Kind,
		&createdAt,
	)
	if err != nil {
		return persistence.Reservation{}, NewErrorMapper().MapError(err)
	}
	if reservation.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return reservation, nil
}

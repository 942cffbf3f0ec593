package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/room-reservation/internal/persistence"
)

// NoticeRepository implements persistence.NoticeRepository using SQLite
type NoticeRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewNoticeRepository creates a new SQLite notice repository
func NewNoticeRepository(pool *ConnectionPool) *NoticeRepository {
	return &NoticeRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateNotice queues a notice for a member.
func (r *NoticeRepository) CreateNotice(ctx context.Context, notice persistence.Notice) error {
	if notice.ID == "" || notice.MemberID == "" {
		return persistence.ErrConstraintViolation
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.DB().ExecContext(ctx,
		`INSERT INTO notices (id, member_id, message, created_at, delivered_at) VALUES (?, ?, ?, ?, ?)`,
		notice.ID, notice.MemberID, notice.Message, formatTime(notice.CreatedAt), nullTime(notice.DeliveredAt),
	)
	return r.mapper.MapError(err)
}

// TakePendingNotices returns undelivered notices for memberID oldest first and
// marks them delivered in the same transaction.
func (r *NoticeRepository) TakePendingNotices(ctx context.Context, memberID string, deliveredAt time.Time) ([]persistence.Notice, error) {
	var notices []persistence.Notice
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, member_id, message, created_at
			FROM notices
			WHERE member_id = ? AND delivered_at IS NULL
			ORDER BY created_at ASC, id ASC
		`, memberID)
		if err != nil {
			return r.mapper.MapError(err)
		}

		for rows.Next() {
			var (
				notice    persistence.Notice
				createdAt string
			)
			if err := rows.Scan(&notice.ID, &notice.MemberID, &notice.Message, &createdAt); err != nil {
				rows.Close()
				return r.mapper.MapError(err)
			}
			if notice.CreatedAt, err = parseTime(createdAt); err != nil {
				rows.Close()
				return fmt.Errorf("failed to parse created_at: %w", err)
			}
			delivered := deliveredAt.UTC()
			notice.DeliveredAt = &delivered
			notices = append(notices, notice)
		}
		if err := rows.Close(); err != nil {
			return r.mapper.MapError(err)
		}
		if err := rows.Err(); err != nil {
			return r.mapper.MapError(err)
		}

		for _, notice := range notices {
			if _, err := tx.ExecContext(ctx, `UPDATE notices SET delivered_at = ? WHERE id = ?`, formatTime(deliveredAt), notice.ID); err != nil {
				return r.mapper.MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notices, nil
}

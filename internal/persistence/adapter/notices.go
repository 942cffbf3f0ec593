package adapter

import (
	"context"
	"time"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/persistence"
)

// Notices exposes a persistence.NoticeRepository as an application.NoticeStore.
type Notices struct {
	repo persistence.NoticeRepository
}

// NewNotices wraps repo.
func NewNotices(repo persistence.NoticeRepository) *Notices {
	return &Notices{repo: repo}
}

// SaveNotice queues a notice for the member's next login.
func (a *Notices) SaveNotice(ctx context.Context, notice application.Notice) error {
	return mapError(a.repo.CreateNotice(ctx, persistence.Notice{
		ID:        notice.ID,
		MemberID:  notice.MemberID,
		Message:   notice.Message,
		CreatedAt: notice.CreatedAt,
	}))
}

// TakePendingNotices returns and marks delivered the member's queued notices.
func (a *Notices) TakePendingNotices(ctx context.Context, memberID string, deliveredAt time.Time) ([]application.Notice, error) {
	stored, err := a.repo.TakePendingNotices(ctx, memberID, deliveredAt)
	if err != nil {
		return nil, mapError(err)
	}
	notices := make([]application.Notice, 0, len(stored))
	for _, n := range stored {
		notices = append(notices, application.Notice{
			ID:          n.ID,
			MemberID:    n.MemberID,
			Message:     n.Message,
			CreatedAt:   n.CreatedAt,
			DeliveredAt: cloneTime(n.DeliveredAt),
		})
	}
	return notices, nil
}

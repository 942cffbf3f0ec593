package persistence

import (
	"context"
	"time"
)

// MemberRepository stores member accounts.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, id string) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
}

// ReservationFilter narrows reservation queries. Empty fields match all rows.
type ReservationFilter struct {
	OwnerID  string
	Kind     string
	FromDate string
}

// ReservationRepository is the append-only reservation log. Rows are listed in
// insertion order and removed in batches by ID.
type ReservationRepository interface {
	AppendReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	DeleteReservations(ctx context.Context, ids []string) (int, error)
}

// CalendarEventRepository stores room calendar events.
type CalendarEventRepository interface {
	CreateEvent(ctx context.Context, event CalendarEvent) error
	ListEventsOverlapping(ctx context.Context, start, end time.Time) ([]CalendarEvent, error)
	DeleteEvent(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// NoticeRepository queues notices for members.
type NoticeRepository interface {
	CreateNotice(ctx context.Context, notice Notice) error
	TakePendingNotices(ctx context.Context, memberID string, deliveredAt time.Time) ([]Notice, error)
}

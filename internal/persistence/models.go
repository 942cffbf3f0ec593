package persistence

import "time"

// Member is a person allowed to log in and book the room.
type Member struct {
	ID           string
	DisplayName  string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Reservation is one row of the reservation log. Date is YYYY-MM-DD, the
// times are HH:mm and Kind holds the 通常/授業 label.
type Reservation struct {
	Seq       int64
	ID        string
	OwnerID   string
	OwnerName string
	Date      string
	StartTime string
	EndTime   string
	Note      string
	Kind      string
	CreatedAt time.Time
}

// CalendarEvent is one occupied interval on the room calendar.
type CalendarEvent struct {
	ID          string
	Title       string
	Description string
	OwnerID     string
	Kind        string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
}

// Session represents an authentication session persisted for a member.
type Session struct {
	ID        string
	MemberID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// Notice is a message queued for a member until their next login.
type Notice struct {
	ID          string
	MemberID    string
	Message     string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

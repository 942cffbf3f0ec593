package application

import (
	"strings"
	"time"

	"github.com/example/room-reservation/internal/calendar"
	"github.com/example/room-reservation/internal/term"
)

// Role distinguishes students from teaching staff.
type Role string

const (
	// RoleStudent is the default role. Student reservations yield to classes.
	RoleStudent Role = "student"
	// RoleTeacher may register recurring classes.
	RoleTeacher Role = "teacher"
)

// Label returns the display label used in event titles and responses.
func (r Role) Label() string {
	if r == RoleTeacher {
		return "教員"
	}
	return "学生"
}

// ParseRole accepts both the stored identifiers and the display labels.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "student", "学生":
		return RoleStudent, true
	case "teacher", "教員":
		return RoleTeacher, true
	default:
		return "", false
	}
}

// Principal represents the authenticated member invoking a service method.
type Principal struct {
	MemberID    string
	DisplayName string
	Role        Role
}

// Member represents an account that may hold reservations.
type Member struct {
	ID          string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MemberCredentials couples a member with its stored password hash.
type MemberCredentials struct {
	Member       Member
	PasswordHash string
}

// CreateMemberParams wraps the data required to register a member.
type CreateMemberParams struct {
	ID          string
	DisplayName string
	Role        Role
	Password    string
}

// Reservation is one row of the reservation ledger. For class rows OwnerName
// holds the class name.
type Reservation struct {
	ID        string
	Seq       int64
	OwnerID   string
	OwnerName string
	Date      time.Time
	Start     term.Clock
	End       term.Clock
	Note      string
	Kind      calendar.Kind
	CreatedAt time.Time
}

// DateString renders the reservation date as YYYY-MM-DD.
func (r Reservation) DateString() string {
	return r.Date.Format("2006-01-02")
}

// Interval returns the absolute start and end of the reservation in loc.
func (r Reservation) Interval(loc *time.Location) (time.Time, time.Time) {
	return r.Start.On(r.Date, loc), r.End.On(r.Date, loc)
}

// ReservationFilter narrows ledger listings. Zero values match everything.
type ReservationFilter struct {
	OwnerID  string
	Kind     calendar.Kind
	FromDate time.Time
}

// ReservationView is a reservation stamped with the owner's role.
type ReservationView struct {
	Reservation
	Role Role
}

// BookSlotParams wraps the data required to book a one-off slot.
type BookSlotParams struct {
	OwnerID   string
	OwnerName string
	Date      time.Time
	Start     term.Clock
	End       term.Clock
	Note      string
}

// BookSlotResult carries the appended reservation and its calendar event.
type BookSlotResult struct {
	Reservation Reservation
	Event       calendar.Event
	Message     string
}

// RegisterClassParams wraps the data required to register a weekly class
// for the remainder of a term.
type RegisterClassParams struct {
	OwnerID string
	Name    string
	Weekday time.Weekday
	Period  string
	Term    term.Term
	Note    string
}

// RegisterClassResult summarises a class registration.
type RegisterClassResult struct {
	Count        int
	Reservations []Reservation
	Evicted      int
	Skipped      []time.Time
	Message      string
}

// ReconcileResult lists the student reservations voided by class events.
type ReconcileResult struct {
	Voided   []Reservation
	Messages []string
	Notice   string
}

// CancelClassGroupParams identifies the class series to remove.
type CancelClassGroupParams struct {
	OwnerID   string
	ClassName string
	StartTime string
}

// CancelClassGroupResult reports how many class rows were removed.
type CancelClassGroupResult struct {
	Removed int
	Message string
}

// CancelReservationParams identifies a single booking by its day and start time.
type CancelReservationParams struct {
	OwnerID   string
	Date      time.Time
	StartTime string
}

// ClassGroup aggregates the class rows of one weekly series.
type ClassGroup struct {
	Name         string
	Weekday      time.Weekday
	WeekdayLabel string
	Start        term.Clock
	End          term.Clock
	Count        int
	First        time.Time
	Last         time.Time
	Recurrence   string
	Gaps         int
}

// Notice is a pending message for a member whose bookings were voided while
// they were away.
type Notice struct {
	ID          string
	MemberID    string
	Message     string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// VoidedNotice is published when a sweep voids reservations.
type VoidedNotice struct {
	MemberID string
	Message  string
	Slots    []string
	At       time.Time
}

// SweepResult summarises a reconcile sweep across all students.
type SweepResult struct {
	Members int
	Voided  int
	Failed  int
}

// Session represents an authenticated member session.
type Session struct {
	ID        string
	MemberID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams wraps the login form fields.
type AuthenticateParams struct {
	MemberID string
	Password string
	Role     Role
}

// AuthenticateResult carries the issued session and any notice to show.
type AuthenticateResult struct {
	Member  Member
	Session Session
	Notice  string
}

package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/calendar"
	"github.com/example/room-reservation/internal/persistence"
	"github.com/example/room-reservation/internal/term"
)

var (
	memberCounter      uint64
	reservationCounter uint64
	sessionCounter     uint64
)

// ReferenceTime is Thursday 2025-04-10 09:00 JST, inside the first term.
func ReferenceTime() time.Time {
	return At(2025, time.April, 10, 9, 0)
}

// FastArgon2Params keeps password hashing cheap in tests. Hashes made with it
// verify like production hashes because the parameters travel in the hash.
var FastArgon2Params = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

// ----------------------------- Member fixtures ---------------------------

// MemberFixture is a deterministic member account.
type MemberFixture struct {
	ID          string
	DisplayName string
	Role        application.Role
	Password    string
	CreatedAt   time.Time
}

// MemberOption configures the generated member fixture.
type MemberOption func(*MemberFixture)

// NewMemberFixture returns a student s-NNN with password "password-NNN".
func NewMemberFixture(opts ...MemberOption) MemberFixture {
	idx := atomic.AddUint64(&memberCounter, 1)
	fixture := MemberFixture{
		ID:          fmt.Sprintf("s-%03d", idx),
		DisplayName: fmt.Sprintf("Student %03d", idx),
		Role:        application.RoleStudent,
		Password:    fmt.Sprintf("password-%03d", idx),
		CreatedAt:   ReferenceTime(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMemberID overrides the generated id.
func WithMemberID(id string) MemberOption {
	return func(f *MemberFixture) { f.ID = id }
}

// WithMemberName overrides the display name.
func WithMemberName(name string) MemberOption {
	return func(f *MemberFixture) { f.DisplayName = name }
}

// AsTeacher gives the member the teacher role.
func AsTeacher() MemberOption {
	return func(f *MemberFixture) { f.Role = application.RoleTeacher }
}

// WithPassword overrides the plain password.
func WithPassword(password string) MemberOption {
	return func(f *MemberFixture) { f.Password = password }
}

// Application returns the fixture as an application.Member.
func (f MemberFixture) Application() application.Member {
	return application.Member{
		ID:          f.ID,
		DisplayName: f.DisplayName,
		Role:        f.Role,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// PasswordHash hashes the fixture password with FastArgon2Params.
func (f MemberFixture) PasswordHash() string {
	hash, err := application.CreatePasswordHash(f.Password, FastArgon2Params)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: hash password: %v", err))
	}
	return hash
}

// Credentials returns the member with a freshly computed hash.
func (f MemberFixture) Credentials() application.MemberCredentials {
	return application.MemberCredentials{Member: f.Application(), PasswordHash: f.PasswordHash()}
}

// Persistence returns the fixture as a persistence.Member row.
func (f MemberFixture) Persistence() persistence.Member {
	return persistence.Member{
		ID:           f.ID,
		DisplayName:  f.DisplayName,
		Role:         string(f.Role),
		PasswordHash: f.PasswordHash(),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// Principal returns the principal a session for this member resolves to.
func (f MemberFixture) Principal() application.Principal {
	return application.Principal{MemberID: f.ID, DisplayName: f.DisplayName, Role: f.Role}
}

// -------------------------- Reservation fixtures -------------------------

// ReservationFixture is a deterministic reservation log row.
type ReservationFixture struct {
	ID        string
	OwnerID   string
	OwnerName string
	Date      time.Time
	Start     term.Clock
	End       term.Clock
	Note      string
	Kind      calendar.Kind
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a normal 13:10-14:40 booking on the day
// after ReferenceTime.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	fixture := ReservationFixture{
		ID:        fmt.Sprintf("res-%03d", idx),
		OwnerID:   "s-001",
		OwnerName: "Student 001",
		Date:      Day(2025, time.April, 11),
		Start:     term.MustParseClock("13:10"),
		End:       term.MustParseClock("14:40"),
		Kind:      calendar.KindNormal,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOwner sets the owner id and name.
func WithOwner(id, name string) ReservationOption {
	return func(f *ReservationFixture) {
		f.OwnerID = id
		f.OwnerName = name
	}
}

// OnDate sets the reservation date.
func OnDate(date time.Time) ReservationOption {
	return func(f *ReservationFixture) { f.Date = date }
}

// WithSlot sets the start and end clock values, e.g. "09:00", "10:30".
func WithSlot(start, end string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = term.MustParseClock(start)
		f.End = term.MustParseClock(end)
	}
}

// AsClass marks the row as a class session named name.
func AsClass(name string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Kind = calendar.KindClass
		f.OwnerName = name
	}
}

// Application returns the fixture as an application.Reservation.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:        f.ID,
		OwnerID:   f.OwnerID,
		OwnerName: f.OwnerName,
		Date:      f.Date,
		Start:     f.Start,
		End:       f.End,
		Note:      f.Note,
		Kind:      f.Kind,
		CreatedAt: ReferenceTime(),
	}
}

// Persistence returns the fixture as a persistence.Reservation row.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:        f.ID,
		OwnerID:   f.OwnerID,
		OwnerName: f.OwnerName,
		Date:      f.Date.Format("2006-01-02"),
		StartTime: f.Start.String(),
		EndTime:   f.End.String(),
		Note:      f.Note,
		Kind:      f.Kind.Label(),
		CreatedAt: ReferenceTime(),
	}
}

// NewEvent returns the calendar event the engine would create for the row.
func (f ReservationFixture) NewEvent(roleLabel string) calendar.NewEvent {
	return calendar.NewEvent{
		Title:       calendar.Title(f.Kind, roleLabel, f.OwnerName),
		Description: f.Note,
		OwnerID:     f.OwnerID,
		Kind:        f.Kind,
		Start:       f.Start.On(f.Date, JST),
		End:         f.End.On(f.Date, JST),
	}
}

// ----------------------------- Session fixtures -------------------------

// SessionFixture is a deterministic session record.
type SessionFixture struct {
	ID        string
	MemberID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a session valid for eight hours from ReferenceTime.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		MemberID:  "s-001",
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: ReferenceTime().Add(8 * time.Hour),
		CreatedAt: ReferenceTime(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// ForMember sets the session owner.
func ForMember(id string) SessionOption {
	return func(f *SessionFixture) { f.MemberID = id }
}

// ExpiringAt overrides the expiry.
func ExpiringAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.ExpiresAt = t }
}

// RevokedAt marks the session revoked.
func RevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// Application returns the fixture as an application.Session.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:        f.ID,
		MemberID:  f.MemberID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
		RevokedAt: copyTimePtr(f.RevokedAt),
	}
}

// Persistence returns the fixture as a persistence.Session row.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		MemberID:  f.MemberID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
		RevokedAt: copyTimePtr(f.RevokedAt),
	}
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

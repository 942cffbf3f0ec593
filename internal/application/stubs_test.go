package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/room-reservation/internal/calendar"
)

var testJST = time.FixedZone("JST", 9*60*60)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, testJST)
}

func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type ledgerStub struct {
	mu        sync.Mutex
	rows      []Reservation
	seq       int64
	appendErr error
	listErr   error
	deleteErr error
}

func (l *ledgerStub) AppendReservation(ctx context.Context, r Reservation) (Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return Reservation{}, l.appendErr
	}
	l.seq++
	r.Seq = l.seq
	l.rows = append(l.rows, r)
	return r, nil
}

func (l *ledgerStub) ListReservations(ctx context.Context, f ReservationFilter) ([]Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listErr != nil {
		return nil, l.listErr
	}
	var out []Reservation
	for _, r := range l.rows {
		if f.OwnerID != "" && r.OwnerID != f.OwnerID {
			continue
		}
		if f.Kind != "" && r.Kind != f.Kind {
			continue
		}
		if !f.FromDate.IsZero() && r.DateString() < f.FromDate.Format("2006-01-02") {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (l *ledgerStub) DeleteReservations(ctx context.Context, ids []string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deleteErr != nil {
		return 0, l.deleteErr
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := l.rows[:0]
	removed := 0
	for _, r := range l.rows {
		if _, ok := drop[r.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	l.rows = kept
	return removed, nil
}

func (l *ledgerStub) snapshot() []Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Reservation, len(l.rows))
	copy(out, l.rows)
	return out
}

type directoryStub struct {
	members map[string]Member
	err     error
	calls   int
}

func newDirectory(members ...Member) *directoryStub {
	d := &directoryStub{members: make(map[string]Member)}
	for _, m := range members {
		d.members[m.ID] = m
	}
	return d
}

func (d *directoryStub) GetMember(ctx context.Context, id string) (Member, error) {
	d.calls++
	if d.err != nil {
		return Member{}, d.err
	}
	m, ok := d.members[id]
	if !ok {
		return Member{}, ErrNotFound
	}
	return m, nil
}

func (d *directoryStub) ListMembers(ctx context.Context) ([]Member, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make([]Member, 0, len(d.members))
	for _, m := range d.members {
		out = append(out, m)
	}
	return out, nil
}

// faultyCalendar wraps the in-memory calendar and fails selected calls.
type faultyCalendar struct {
	*calendar.Memory
	readErr   error
	deleteErr error
}

func (f *faultyCalendar) EventsOverlapping(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.Memory.EventsOverlapping(ctx, start, end)
}

func (f *faultyCalendar) EventsOnDay(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.Memory.EventsOnDay(ctx, day)
}

func (f *faultyCalendar) DeleteEvent(ctx context.Context, ev calendar.Event) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Memory.DeleteEvent(ctx, ev)
}

type engineFixture struct {
	ledger    *ledgerStub
	cal       *faultyCalendar
	directory *directoryStub
	svc       *ReservationService
}

func newEngineFixture(now time.Time) *engineFixture {
	ledger := &ledgerStub{}
	cal := &faultyCalendar{Memory: calendar.NewMemoryWithIDs(sequence("ev"))}
	directory := newDirectory(
		Member{ID: "s1", DisplayName: "Alice", Role: RoleStudent},
		Member{ID: "s2", DisplayName: "Bob", Role: RoleStudent},
		Member{ID: "t1", DisplayName: "Prof. Sato", Role: RoleTeacher},
	)
	svc := NewReservationService(ledger, cal, directory, EngineOptions{Location: testJST}, sequence("res"), func() time.Time { return now })
	return &engineFixture{ledger: ledger, cal: cal, directory: directory, svc: svc}
}

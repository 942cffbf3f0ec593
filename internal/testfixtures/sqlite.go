package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/room-reservation/internal/persistence/adapter"
	"github.com/example/room-reservation/internal/persistence/sqlite"
	"github.com/example/room-reservation/internal/persistence/sqlite/migration"
)

// SQLiteHarness bundles a migrated temporary database with the adapters the
// application services consume. Events are read back in JST.
type SQLiteHarness struct {
	Storage      *sqlite.Storage
	Members      *adapter.Members
	Reservations *adapter.Reservations
	Sessions     *adapter.Sessions
	Notices      *adapter.Notices
	Calendar     *adapter.Calendar
	EventIDs     *IDGenerator
}

// NewSQLiteHarness opens and migrates a database in tb.TempDir. The storage is
// closed through tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "reservations.db")
	storage, err := sqlite.Open(migration.TempFileTestSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(context.Background(), nil); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	eventIDs := NewIDGenerator("ev")
	return &SQLiteHarness{
		Storage:      storage,
		Members:      adapter.NewMembers(storage.Members),
		Reservations: adapter.NewReservations(storage.Reservations, JST),
		Sessions:     adapter.NewSessions(storage.Sessions),
		Notices:      adapter.NewNotices(storage.Notices),
		Calendar:     adapter.NewCalendar(storage.Events, JST, eventIDs.NextFunc()),
		EventIDs:     eventIDs,
	}
}

// SeedMembers stores the given member fixtures.
func (h *SQLiteHarness) SeedMembers(tb testing.TB, members ...MemberFixture) {
	tb.Helper()
	for _, m := range members {
		if err := h.Storage.Members.CreateMember(context.Background(), m.Persistence()); err != nil {
			tb.Fatalf("failed to seed member %s: %v", m.ID, err)
		}
	}
}

// SeedReservation stores the row together with its calendar event, the way
// the engine pairs them.
func (h *SQLiteHarness) SeedReservation(tb testing.TB, f ReservationFixture, roleLabel string) {
	tb.Helper()
	ctx := context.Background()
	if _, err := h.Calendar.CreateEvent(ctx, f.NewEvent(roleLabel)); err != nil {
		tb.Fatalf("failed to seed event for %s: %v", f.ID, err)
	}
	if _, err := h.Storage.Reservations.AppendReservation(ctx, f.Persistence()); err != nil {
		tb.Fatalf("failed to seed reservation %s: %v", f.ID, err)
	}
}

package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/room-reservation/internal/persistence/sqlite/migration"
)

// Storage bundles the SQLite-backed repositories that share one pool.
type Storage struct {
	pool *ConnectionPool

	Members      *MemberRepository
	Reservations *ReservationRepository
	Events       *CalendarEventRepository
	Sessions     *SessionRepository
	Notices      *NoticeRepository
}

// Open connects to the database described by cfg. Call Migrate before use.
func Open(cfg migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:         pool,
		Members:      NewMemberRepository(pool),
		Reservations: NewReservationRepository(pool),
		Events:       NewCalendarEventRepository(pool),
		Sessions:     NewSessionRepository(pool),
		Notices:      NewNoticeRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(migration.Files),
		migration.NewSQLiteExecutor(s.pool.DB()),
		logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

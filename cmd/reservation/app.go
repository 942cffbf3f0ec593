package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/config"
	httptransport "github.com/example/room-reservation/internal/http"
	"github.com/example/room-reservation/internal/jobs"
	"github.com/example/room-reservation/internal/notify"
	"github.com/example/room-reservation/internal/persistence/adapter"
	"github.com/example/room-reservation/internal/persistence/sqlite"
	"github.com/example/room-reservation/internal/persistence/sqlite/migration"
	"github.com/example/room-reservation/internal/term"
)

const (
	calendarName   = "Room Reservations"
	idempotencyTTL = 24 * time.Hour
	sweepTimeout   = 5 * time.Minute
)

// app holds the wired server and everything that must be released on exit.
type app struct {
	Handler   http.Handler
	Scheduler *jobs.Scheduler
	Storage   *sqlite.Storage

	closers []func() error
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.Storage = storage
	a.closers = append(a.closers, storage.Close)

	if err := storage.Migrate(ctx, logger); err != nil {
		a.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	periods := term.DefaultPeriods()
	if cfg.PeriodsFile != "" {
		if periods, err = term.LoadPeriods(cfg.PeriodsFile); err != nil {
			a.Close()
			return nil, fmt.Errorf("load periods: %w", err)
		}
	}

	now := time.Now
	loc := cfg.Location

	members := adapter.NewMembers(storage.Members)
	reservations := adapter.NewReservations(storage.Reservations, loc)
	sessions := adapter.NewSessions(storage.Sessions)
	notices := adapter.NewNotices(storage.Notices)
	cal := adapter.NewCalendar(storage.Events, loc, uuid.NewString)

	engine := application.NewReservationServiceWithLogger(reservations, cal, members, application.EngineOptions{
		Location: loc,
		Periods:  periods,
	}, uuid.NewString, now, logger)
	queries := application.NewQueryServiceWithLogger(reservations, members, loc, now, logger)
	auth := application.NewAuthServiceWithLogger(members, sessions, application.AuthDependencies{
		Reconciler: engine,
		Notices:    notices,
	}, application.VerifyPassword, func() string { return randomHex(32) }, now, cfg.SessionTTL, logger)

	notifier, err := a.buildNotifier(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	sweep := application.NewReconcileSweepWithLogger(members, engine, notices, notifier, uuid.NewString, now, logger)
	a.Scheduler, err = jobs.NewScheduler(cfg.ReconcileSchedule, sweep, loc, sweepTimeout, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var loginLimiter func(http.Handler) http.Handler
	if cfg.LoginRatePerMin > 0 {
		loginLimiter = httptransport.NewRateLimiter(cfg.LoginRatePerMin).Middleware(logger)
	}

	a.Handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(auth, logger),
		Reservations: httptransport.NewReservationHandler(engine, queries, loc, logger),
		Classes:      httptransport.NewClassHandler(engine, queries, logger),
		Calendar:     httptransport.NewCalendarHandler(cal, loc, calendarName, logger),
		Session:      httptransport.RequireSession(auth, logger),
		LoginLimiter: loginLimiter,
		Idempotency:  httptransport.Idempotency(a.idempotencyStore(ctx, cfg), idempotencyTTL, logger),
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
	return a, nil
}

// buildNotifier always logs notices and also publishes them to Kafka when
// brokers are configured.
func (a *app) buildNotifier(cfg config.Config) (application.Notifier, error) {
	notifiers := notify.Multi{notify.NewLogNotifier(a.logger)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier, err := notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("kafka notifier: %w", err)
		}
		a.closers = append(a.closers, kafkaNotifier.Close)
		notifiers = append(notifiers, kafkaNotifier)
	}
	return notifiers, nil
}

// idempotencyStore uses Redis when it answers a ping and the in-process store
// otherwise.
func (a *app) idempotencyStore(ctx context.Context, cfg config.Config) httptransport.IdempotencyStore {
	if cfg.RedisAddr == "" {
		return httptransport.NewMemoryIdempotencyStore(nil)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.logger.Warn("redis unavailable, idempotency keys kept in memory", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return httptransport.NewMemoryIdempotencyStore(nil)
	}
	a.closers = append(a.closers, client.Close)
	return httptransport.NewRedisIdempotencyStore(client, "reservation:idem:")
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

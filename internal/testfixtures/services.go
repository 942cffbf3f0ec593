package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/calendar"
	"github.com/example/room-reservation/internal/term"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// ReservationServiceDeps captures dependencies for the booking engine.
type ReservationServiceDeps struct {
	Reservations application.ReservationStore
	Calendar     calendar.Calendar
	Members      application.MemberDirectory
	Periods      term.PeriodTable
}

// NewReservationService builds the booking engine in JST with the default
// timetable unless Periods is set.
func (f *ServiceFactory) NewReservationService(deps ReservationServiceDeps) *application.ReservationService {
	return application.NewReservationServiceWithLogger(
		deps.Reservations,
		deps.Calendar,
		deps.Members,
		application.EngineOptions{Location: JST, Periods: deps.Periods},
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// NewQueryService builds the read-side service in JST.
func (f *ServiceFactory) NewQueryService(reservations application.ReservationStore, members application.MemberDirectory) *application.QueryService {
	return application.NewQueryServiceWithLogger(reservations, members, JST, f.Clock.NowFunc(), f.Logger)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials application.CredentialStore
	Sessions    application.SessionRepository
	Reconciler  application.Reconciler
	Notices     application.NoticeStore
	SessionTTL  time.Duration
}

// NewAuthService builds an auth service whose tokens come from the factory
// id generator.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		application.AuthDependencies{Reconciler: deps.Reconciler, Notices: deps.Notices},
		application.VerifyPassword,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		deps.SessionTTL,
		f.Logger,
	)
}

// NewMemberService builds a member service hashing with FastArgon2Params.
func (f *ServiceFactory) NewMemberService(members application.MemberRepository) *application.MemberService {
	hash := func(password string) (string, error) {
		return application.CreatePasswordHash(password, FastArgon2Params)
	}
	return application.NewMemberServiceWithLogger(members, hash, f.Clock.NowFunc(), f.Logger)
}

// NewReconcileSweep builds a sweep without a notifier.
func (f *ServiceFactory) NewReconcileSweep(members application.MemberDirectory, reconciler application.NoticeReconciler, notices application.NoticeStore) *application.ReconcileSweep {
	return application.NewReconcileSweepWithLogger(members, reconciler, notices, nil, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

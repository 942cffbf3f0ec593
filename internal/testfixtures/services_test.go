package testfixtures

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/term"
)

func TestServiceFactoryAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	harness := NewSQLiteHarness(t)
	factory := NewServiceFactory()

	student := NewMemberFixture(WithMemberID("s-100"), WithMemberName("Alice"))
	teacher := NewMemberFixture(WithMemberID("t-100"), WithMemberName("Prof. Sato"), AsTeacher())
	harness.SeedMembers(t, student, teacher)

	engine := factory.NewReservationService(ReservationServiceDeps{
		Reservations: harness.Reservations,
		Calendar:     harness.Calendar,
		Members:      harness.Members,
	})

	booked, err := engine.BookSlot(ctx, application.BookSlotParams{
		OwnerID:   student.ID,
		OwnerName: student.DisplayName,
		Date:      Day(2025, time.April, 17),
		Start:     term.MustParseClock("13:10"),
		End:       term.MustParseClock("14:40"),
	})
	if err != nil {
		t.Fatalf("BookSlot returned error: %v", err)
	}
	if booked.Event.Title != "【学生】Alice" {
		t.Fatalf("unexpected event title %q", booked.Event.Title)
	}

	registered, err := engine.RegisterClass(ctx, application.RegisterClassParams{
		OwnerID: teacher.ID,
		Name:    "Math",
		Weekday: time.Thursday,
		Period:  "3",
		Term:    term.First,
	})
	if err != nil {
		t.Fatalf("RegisterClass returned error: %v", err)
	}
	if registered.Count != 17 || registered.Evicted != 1 {
		t.Fatalf("expected 17 classes and 1 eviction, got %d and %d", registered.Count, registered.Evicted)
	}

	sweep := factory.NewReconcileSweep(harness.Members, engine, harness.Notices)
	result, err := sweep.ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("ReconcileAll returned error: %v", err)
	}
	if result.Members != 1 || result.Voided != 1 {
		t.Fatalf("unexpected sweep result %+v", result)
	}

	auth := factory.NewAuthService(AuthServiceDeps{
		Credentials: harness.Members,
		Sessions:    harness.Sessions,
		Reconciler:  engine,
		Notices:     harness.Notices,
	})
	login, err := auth.Authenticate(ctx, application.AuthenticateParams{
		MemberID: student.ID,
		Password: student.Password,
		Role:     application.RoleStudent,
	})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if !strings.Contains(login.Notice, "2025-04-17 13:10の予約") {
		t.Fatalf("expected queued notice on login, got %q", login.Notice)
	}

	principal, err := auth.ValidateSession(ctx, login.Session.Token)
	if err != nil || principal.MemberID != student.ID {
		t.Fatalf("expected session for %s, got %+v (%v)", student.ID, principal, err)
	}

	queries := factory.NewQueryService(harness.Reservations, harness.Members)
	views, err := queries.ListMyReservations(ctx, student.ID)
	if err != nil {
		t.Fatalf("ListMyReservations returned error: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected voided booking to be gone, got %+v", views)
	}
	groups, err := queries.ListMyClassGroups(ctx, teacher.ID)
	if err != nil || len(groups) != 1 || groups[0].Count != 17 {
		t.Fatalf("unexpected class groups %+v (%v)", groups, err)
	}
}

func TestServiceFactoryMemberService(t *testing.T) {
	harness := NewSQLiteHarness(t)
	factory := NewServiceFactory()
	members := factory.NewMemberService(harness.Members)

	created, err := members.CreateMember(context.Background(), application.CreateMemberParams{
		ID:          "s-200",
		DisplayName: "Bob",
		Role:        application.RoleStudent,
		Password:    "correct horse",
	})
	if err != nil {
		t.Fatalf("CreateMember returned error: %v", err)
	}
	if !created.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), created.CreatedAt)
	}

	creds, err := harness.Members.GetMemberCredentials(context.Background(), "s-200")
	if err != nil {
		t.Fatalf("GetMemberCredentials returned error: %v", err)
	}
	if err := application.VerifyPassword(creds.PasswordHash, "correct horse"); err != nil {
		t.Fatalf("expected stored hash to verify: %v", err)
	}
}

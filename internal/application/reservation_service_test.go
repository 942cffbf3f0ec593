package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/room-reservation/internal/calendar"
	"github.com/example/room-reservation/internal/term"
)

func TestReservationService_BookSlot(t *testing.T) {
	t.Parallel()

	now := at(2025, time.April, 10, 9, 0)
	book := func(svc *ReservationService, owner string, day time.Time, start, end string) (BookSlotResult, error) {
		return svc.BookSlot(context.Background(), BookSlotParams{
			OwnerID: owner,
			Date:    day,
			Start:   term.MustParseClock(start),
			End:     term.MustParseClock(end),
		})
	}

	t.Run("books a free future slot", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(now)

		result, err := book(f.svc, "s1", at(2025, time.April, 11, 0, 0), "10:00", "11:00")
		if err != nil {
			t.Fatalf("BookSlot returned error: %v", err)
		}
		if result.Message != "予約が完了しました" {
			t.Fatalf("unexpected message %q", result.Message)
		}
		if result.Event.Title != "【学生】Alice" {
			t.Fatalf("expected title to carry role and name, got %q", result.Event.Title)
		}
		rows := f.ledger.snapshot()
		if len(rows) != 1 || rows[0].Kind != calendar.KindNormal || rows[0].DateString() != "2025-04-11" || rows[0].OwnerName != "Alice" {
			t.Fatalf("unexpected ledger rows %+v", rows)
		}
	})

	t.Run("teachers are labelled as staff", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(now)

		result, err := book(f.svc, "t1", at(2025, time.April, 11, 0, 0), "10:00", "11:00")
		if err != nil {
			t.Fatalf("BookSlot returned error: %v", err)
		}
		if result.Event.Title != "【教員】Prof. Sato" {
			t.Fatalf("unexpected title %q", result.Event.Title)
		}
	})

	t.Run("rejects slots in the past", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(now)

		_, err := book(f.svc, "s1", at(2025, time.April, 10, 0, 0), "08:00", "09:30")
		if !errors.Is(err, ErrPastTime) {
			t.Fatalf("expected ErrPastTime, got %v", err)
		}
		if len(f.cal.All()) != 0 || len(f.ledger.snapshot()) != 0 {
			t.Fatalf("expected no writes for past slot")
		}
	})

	t.Run("rejects overlapping slots but allows touching ones", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(now)
		day := at(2025, time.April, 11, 0, 0)

		if _, err := book(f.svc, "s1", day, "10:00", "11:00"); err != nil {
			t.Fatalf("first booking failed: %v", err)
		}
		if _, err := book(f.svc, "s2", day, "10:30", "11:30"); !errors.Is(err, ErrSlotTaken) {
			t.Fatalf("expected ErrSlotTaken, got %v", err)
		}
		if _, err := book(f.svc, "s2", day, "11:00", "12:00"); err != nil {
			t.Fatalf("expected touching slot to succeed, got %v", err)
		}
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(now)

		_, err := book(f.svc, "", time.Time{}, "11:00", "10:00")
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"owner_id", "date", "end_time"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected field error for %s, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("removes the event when the ledger append fails", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(now)
		f.ledger.appendErr = errors.New("disk full")

		_, err := book(f.svc, "s1", at(2025, time.April, 11, 0, 0), "10:00", "11:00")
		if !errors.Is(err, ErrWriteFailure) {
			t.Fatalf("expected ErrWriteFailure, got %v", err)
		}
		if got := len(f.cal.All()); got != 0 {
			t.Fatalf("expected compensating delete, %d events remain", got)
		}
	})

	t.Run("surfaces calendar read failures", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(now)
		f.cal.readErr = errors.New("calendar offline")

		_, err := book(f.svc, "s1", at(2025, time.April, 11, 0, 0), "10:00", "11:00")
		if !errors.Is(err, ErrReadFailure) {
			t.Fatalf("expected ErrReadFailure, got %v", err)
		}
	})
}

func TestReservationService_ClassLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := at(2025, time.April, 10, 9, 0)
	f := newEngineFixture(now)

	if _, err := f.svc.BookSlot(ctx, BookSlotParams{
		OwnerID: "s1",
		Date:    at(2025, time.April, 17, 0, 0),
		Start:   term.MustParseClock("13:00"),
		End:     term.MustParseClock("14:00"),
	}); err != nil {
		t.Fatalf("student booking failed: %v", err)
	}
	if _, err := f.cal.CreateEvent(ctx, calendar.NewEvent{
		Title: "[授業] Other",
		Kind:  calendar.KindClass,
		Start: at(2025, time.April, 24, 13, 10),
		End:   at(2025, time.April, 24, 14, 40),
	}); err != nil {
		t.Fatalf("seed class failed: %v", err)
	}

	registered, err := f.svc.RegisterClass(ctx, RegisterClassParams{
		OwnerID: "t1",
		Name:    "Math",
		Weekday: time.Thursday,
		Period:  "3",
		Term:    term.First,
	})
	if err != nil {
		t.Fatalf("RegisterClass returned error: %v", err)
	}

	t.Run("registers every remaining week except occupied ones", func(t *testing.T) {
		if registered.Count != 16 {
			t.Fatalf("expected 16 sessions, got %d", registered.Count)
		}
		if registered.Evicted != 1 {
			t.Fatalf("expected 1 evicted booking, got %d", registered.Evicted)
		}
		if len(registered.Skipped) != 1 || registered.Skipped[0].Format("2006-01-02") != "2025-04-24" {
			t.Fatalf("expected 2025-04-24 to be skipped, got %v", registered.Skipped)
		}
		if registered.Message != "16件の授業を登録しました（重複する学生予約は自動解除されます）" {
			t.Fatalf("unexpected message %q", registered.Message)
		}
		first := registered.Reservations[0]
		if first.DateString() != "2025-04-10" || first.Start.String() != "13:10" || first.OwnerName != "Math" {
			t.Fatalf("unexpected first session %+v", first)
		}
		for _, ev := range f.cal.All() {
			if !ev.IsClass() {
				t.Fatalf("expected student event to be evicted, found %+v", ev)
			}
		}
	})

	t.Run("reconcile voids the evicted student row", func(t *testing.T) {
		result, err := f.svc.Reconcile(ctx, "s1")
		if err != nil {
			t.Fatalf("Reconcile returned error: %v", err)
		}
		if len(result.Voided) != 1 {
			t.Fatalf("expected one voided row, got %d", len(result.Voided))
		}
		want := "【重要】教員が後日授業を登録したため、以下の予約は授業が優先され、取り消されました。日時を変更してください：\n2025-04-17 13:00の予約"
		if result.Notice != want {
			t.Fatalf("expected notice %q, got %q", want, result.Notice)
		}

		again, err := f.svc.Reconcile(ctx, "s1")
		if err != nil || len(again.Voided) != 0 || again.Notice != "" {
			t.Fatalf("expected second reconcile to be a no-op, got %+v, %v", again, err)
		}
	})

	t.Run("re-registering skips existing sessions", func(t *testing.T) {
		again, err := f.svc.RegisterClass(ctx, RegisterClassParams{OwnerID: "t1", Name: "Math", Weekday: time.Thursday, Period: "3", Term: term.First})
		if err != nil {
			t.Fatalf("RegisterClass returned error: %v", err)
		}
		if again.Count != 0 || again.Message != "登録可能な日程がありませんでした" {
			t.Fatalf("expected nothing registered, got %+v", again)
		}
	})

	t.Run("cancel class group removes the series", func(t *testing.T) {
		result, err := f.svc.CancelClassGroup(ctx, CancelClassGroupParams{OwnerID: "t1", ClassName: "Math", StartTime: "13:10:00"})
		if err != nil {
			t.Fatalf("CancelClassGroup returned error: %v", err)
		}
		if result.Removed != 16 {
			t.Fatalf("expected 16 removed, got %d", result.Removed)
		}
		if result.Message != "Math (13:10〜) の予約を 16 件削除しました。" {
			t.Fatalf("unexpected message %q", result.Message)
		}
		if rows := f.ledger.snapshot(); len(rows) != 0 {
			t.Fatalf("expected empty ledger, got %d rows", len(rows))
		}
		if events := f.cal.All(); len(events) != 1 || events[0].Title != "[授業] Other" {
			t.Fatalf("expected only the unrelated class to remain, got %+v", events)
		}
	})
}

func TestReservationService_RegisterClassValidation(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(at(2025, time.April, 10, 9, 0))
	_, err := f.svc.RegisterClass(context.Background(), RegisterClassParams{OwnerID: "t1", Name: " ", Weekday: time.Weekday(9), Period: "7", Term: term.First})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "weekday", "period"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected field error for %s, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestReservationService_CancelClassGroupKeepsRowsOnDeleteFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newEngineFixture(at(2025, time.July, 1, 9, 0))
	registered, err := f.svc.RegisterClass(ctx, RegisterClassParams{OwnerID: "t1", Name: "Art", Weekday: time.Tuesday, Period: "1", Term: term.First})
	if err != nil {
		t.Fatalf("RegisterClass returned error: %v", err)
	}
	if registered.Count == 0 {
		t.Fatalf("expected sessions to be registered")
	}

	f.cal.deleteErr = errors.New("calendar rejected delete")
	result, err := f.svc.CancelClassGroup(ctx, CancelClassGroupParams{OwnerID: "t1", ClassName: "Art", StartTime: "08:50"})
	if !errors.Is(err, ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure, got %v", err)
	}
	if result.Removed != 0 {
		t.Fatalf("expected no rows removed, got %d", result.Removed)
	}
	if got := len(f.ledger.snapshot()); got != registered.Count {
		t.Fatalf("expected %d rows kept, got %d", registered.Count, got)
	}
}

func TestReservationService_CancelReservation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	day := at(2025, time.April, 11, 0, 0)

	t.Run("owner cancels own booking", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(at(2025, time.April, 10, 9, 0))
		if _, err := f.svc.BookSlot(ctx, BookSlotParams{OwnerID: "s1", Date: day, Start: term.MustParseClock("10:00"), End: term.MustParseClock("11:00")}); err != nil {
			t.Fatalf("BookSlot returned error: %v", err)
		}

		if err := f.svc.CancelReservation(ctx, CancelReservationParams{OwnerID: "s2", Date: day, StartTime: "10:00"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for another member, got %v", err)
		}
		if err := f.svc.CancelReservation(ctx, CancelReservationParams{OwnerID: "s1", Date: day, StartTime: "10:00:00"}); err != nil {
			t.Fatalf("CancelReservation returned error: %v", err)
		}
		if len(f.cal.All()) != 0 || len(f.ledger.snapshot()) != 0 {
			t.Fatalf("expected event and row to be removed")
		}
	})

	t.Run("events without owner match anyone", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(at(2025, time.April, 10, 9, 0))
		if _, err := f.cal.CreateEvent(ctx, calendar.NewEvent{Title: "legacy", Start: at(2025, time.April, 11, 9, 5), End: at(2025, time.April, 11, 10, 0)}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		if err := f.svc.CancelReservation(ctx, CancelReservationParams{OwnerID: "s2", Date: day, StartTime: "9:5"}); err != nil {
			t.Fatalf("CancelReservation returned error: %v", err)
		}
		if len(f.cal.All()) != 0 {
			t.Fatalf("expected legacy event to be removed")
		}
	})

	t.Run("nothing to cancel", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(at(2025, time.April, 10, 9, 0))
		if err := f.svc.CancelReservation(ctx, CancelReservationParams{OwnerID: "s1", Date: day, StartTime: "10:00"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReservationService_RoomBusy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "inside the event", now: at(2025, time.April, 10, 8, 45), want: true},
		{name: "end is inclusive", now: at(2025, time.April, 10, 9, 0), want: true},
		{name: "after the event", now: at(2025, time.April, 10, 9, 1), want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newEngineFixture(tc.now)
			if _, err := f.cal.CreateEvent(ctx, calendar.NewEvent{Title: "x", Start: at(2025, time.April, 10, 8, 30), End: at(2025, time.April, 10, 9, 0)}); err != nil {
				t.Fatalf("seed failed: %v", err)
			}
			busy, err := f.svc.RoomBusy(ctx)
			if err != nil {
				t.Fatalf("RoomBusy returned error: %v", err)
			}
			if busy != tc.want {
				t.Fatalf("expected busy=%v, got %v", tc.want, busy)
			}
		})
	}
}

func TestReservationService_MemberLookupIsCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newEngineFixture(at(2025, time.April, 10, 9, 0))
	for _, start := range []string{"10:00", "11:00", "12:00"} {
		end := term.MustParseClock(start)
		end.Hour++
		if _, err := f.svc.BookSlot(ctx, BookSlotParams{OwnerID: "s1", Date: at(2025, time.April, 11, 0, 0), Start: term.MustParseClock(start), End: end}); err != nil {
			t.Fatalf("BookSlot returned error: %v", err)
		}
	}
	if f.directory.calls != 1 {
		t.Fatalf("expected a single directory lookup, got %d", f.directory.calls)
	}

	result, err := f.svc.BookSlot(ctx, BookSlotParams{OwnerID: "ghost", OwnerName: "Guest", Date: at(2025, time.April, 12, 0, 0), Start: term.MustParseClock("10:00"), End: term.MustParseClock("11:00")})
	if err != nil {
		t.Fatalf("BookSlot returned error: %v", err)
	}
	if !strings.HasPrefix(result.Event.Title, "【学生】") {
		t.Fatalf("expected unknown member to book as student, got %q", result.Event.Title)
	}
}

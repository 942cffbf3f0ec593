package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
	if clock.Now().Weekday() != time.Thursday {
		t.Fatalf("expected reference time on a Thursday, got %v", clock.Now().Weekday())
	}
}

func TestClockAdvance(t *testing.T) {
	start := At(2025, time.April, 10, 9, 0)
	clock := NewClock(start)

	if updated := clock.Advance(90 * time.Minute); !updated.Equal(At(2025, time.April, 10, 10, 30)) {
		t.Fatalf("advance returned %v", updated)
	}
	if updated := clock.AdvanceDays(7); !updated.Equal(At(2025, time.April, 17, 10, 30)) {
		t.Fatalf("advance days returned %v", updated)
	}

	clock.Set(Day(2025, time.October, 1))
	if got := clock.Now(); got.Month() != time.October || got.Hour() != 0 {
		t.Fatalf("expected October midnight, got %v", got)
	}
}

func TestClockNowFunc(t *testing.T) {
	clock := NewClock(At(2025, time.April, 1, 0, 0))
	nowFn := clock.NowFunc()

	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(clock.Now()) {
		t.Fatalf("expected updated time %v, got %v", clock.Now(), got)
	}

	var nilClock *Clock
	if nilClock.NowFunc() == nil {
		t.Fatalf("expected wall clock fallback for nil clock")
	}
}

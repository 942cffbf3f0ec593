package term

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var jst = time.FixedZone("JST", 9*60*60)

func TestNormalizeTime(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  string
	}{
		{name: "pads single digits", input: "9:5", want: "09:05"},
		{name: "drops seconds", input: "13:10:00", want: "13:10"},
		{name: "already canonical", input: "08:50", want: "08:50"},
		{name: "clock value", input: Clock{Hour: 7, Minute: 3}, want: "07:03"},
		{name: "time value", input: time.Date(2025, 4, 10, 16, 30, 45, 0, jst), want: "16:30"},
		{name: "no colon passes through", input: "noon", want: "noon"},
		{name: "nil", input: nil, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeTime(tc.input)
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
			if again := NormalizeTime(got); again != got {
				t.Fatalf("expected idempotent result %q, got %q", got, again)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	t.Run("accepts short form", func(t *testing.T) {
		c, err := ParseClock("9:5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c != (Clock{Hour: 9, Minute: 5}) {
			t.Fatalf("unexpected clock %+v", c)
		}
	})

	t.Run("rejects out of range values", func(t *testing.T) {
		for _, input := range []string{"24:00", "12:60", "ab:cd", "1200", ""} {
			if _, err := ParseClock(input); !errors.Is(err, ErrInvalidClock) {
				t.Fatalf("expected ErrInvalidClock for %q, got %v", input, err)
			}
		}
	})

	t.Run("places clock on date", func(t *testing.T) {
		day := time.Date(2025, 4, 10, 23, 59, 0, 0, jst)
		got := Clock{Hour: 13, Minute: 10}.On(day, jst)
		want := time.Date(2025, 4, 10, 13, 10, 0, 0, jst)
		if !got.Equal(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})
}

func TestTermWindow(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, jst)
	}

	cases := []struct {
		name      string
		now       time.Time
		term      Term
		wantStart time.Time
		wantEnd   time.Time
	}{
		{name: "first term", now: date(2025, time.April, 10), term: First, wantStart: date(2025, time.April, 1), wantEnd: date(2025, time.July, 31)},
		{name: "second term from february", now: date(2025, time.February, 14), term: Second, wantStart: date(2024, time.September, 1), wantEnd: date(2025, time.January, 31)},
		{name: "second term from october", now: date(2025, time.October, 3), term: Second, wantStart: date(2025, time.September, 1), wantEnd: date(2026, time.January, 31)},
		{name: "second term from april", now: date(2025, time.April, 1), term: Second, wantStart: date(2025, time.September, 1), wantEnd: date(2026, time.January, 31)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := TermWindow(tc.now, tc.term, "3", nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !w.StartDate.Equal(tc.wantStart) || !w.EndDate.Equal(tc.wantEnd) {
				t.Fatalf("expected %v..%v, got %v..%v", tc.wantStart, tc.wantEnd, w.StartDate, w.EndDate)
			}
			if w.Start.String() != "13:10" || w.End.String() != "14:40" {
				t.Fatalf("expected period 3 to be 13:10-14:40, got %s-%s", w.Start, w.End)
			}
		})
	}

	t.Run("unknown period", func(t *testing.T) {
		if _, err := TermWindow(date(2025, time.April, 1), First, "9", nil); !errors.Is(err, ErrUnknownPeriod) {
			t.Fatalf("expected ErrUnknownPeriod, got %v", err)
		}
	})

	t.Run("unknown term", func(t *testing.T) {
		if _, err := TermWindow(date(2025, time.April, 1), Term("summer"), "1", nil); !errors.Is(err, ErrUnknownTerm) {
			t.Fatalf("expected ErrUnknownTerm, got %v", err)
		}
	})
}

func TestParseTerm(t *testing.T) {
	for input, want := range map[string]Term{"first": First, "前期": First, "Second": Second, "後期": Second} {
		got, err := ParseTerm(input)
		if err != nil || got != want {
			t.Fatalf("ParseTerm(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseTerm("winter"); !errors.Is(err, ErrUnknownTerm) {
		t.Fatalf("expected ErrUnknownTerm, got %v", err)
	}
}

func TestLoadPeriods(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		table, err := LoadPeriods("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := table.Labels(); len(got) != 5 || got[0] != "1" || got[4] != "5" {
			t.Fatalf("unexpected labels %v", got)
		}
	})

	t.Run("reads yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "periods.yaml")
		doc := "periods:\n  - label: \"A\"\n    start: \"9:00\"\n    end: \"10:30\"\n  - label: \"B\"\n    start: \"10:40\"\n    end: \"12:10\"\n"
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatalf("write file: %v", err)
		}
		table, err := LoadPeriods(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p, err := table.Lookup("B")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if p.Start.String() != "10:40" || p.End.String() != "12:10" {
			t.Fatalf("unexpected period %+v", p)
		}
	})

	t.Run("rejects inverted period", func(t *testing.T) {
		doc := []byte("periods:\n  - label: \"1\"\n    start: \"10:00\"\n    end: \"09:00\"\n")
		if _, err := ParsePeriods(doc); err == nil {
			t.Fatal("expected error for inverted period")
		}
	})
}

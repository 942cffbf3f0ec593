package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

var jst = time.FixedZone("JST", 9*60*60)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("ev-%d", n)
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	at := func(day, h, m int) time.Time {
		return time.Date(2025, time.April, day, h, m, 0, 0, jst)
	}

	t.Run("overlap excludes touching events", func(t *testing.T) {
		cal := NewMemoryWithIDs(sequentialIDs())
		if _, err := cal.CreateEvent(ctx, NewEvent{Title: "【学生】A", Start: at(10, 10, 30), End: at(10, 12, 0)}); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := cal.EventsOverlapping(ctx, at(10, 12, 0), at(10, 13, 0))
		if err != nil {
			t.Fatalf("overlapping: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no events, got %+v", got)
		}

		got, err = cal.EventsOverlapping(ctx, at(10, 11, 59), at(10, 13, 0))
		if err != nil {
			t.Fatalf("overlapping: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 event, got %d", len(got))
		}
	})

	t.Run("kind derives from title when unset", func(t *testing.T) {
		cal := NewMemory()
		ev, err := cal.CreateEvent(ctx, NewEvent{Title: "[Class] Physics", Start: at(10, 13, 10), End: at(10, 14, 40)})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if !ev.IsClass() {
			t.Fatalf("expected class kind, got %q", ev.Kind)
		}
	})

	t.Run("events on day", func(t *testing.T) {
		cal := NewMemoryWithIDs(sequentialIDs())
		for _, day := range []int{9, 10, 11} {
			if _, err := cal.CreateEvent(ctx, NewEvent{Title: "x", Start: at(day, 9, 0), End: at(day, 10, 0)}); err != nil {
				t.Fatalf("create: %v", err)
			}
		}
		got, err := cal.EventsOnDay(ctx, at(10, 18, 0))
		if err != nil {
			t.Fatalf("on day: %v", err)
		}
		if len(got) != 1 || got[0].Start.Day() != 10 {
			t.Fatalf("unexpected events %+v", got)
		}
	})

	t.Run("delete missing event", func(t *testing.T) {
		cal := NewMemory()
		if err := cal.DeleteEvent(ctx, Event{ID: "nope"}); !errors.Is(err, ErrEventNotFound) {
			t.Fatalf("expected ErrEventNotFound, got %v", err)
		}
	})
}

func TestTitle(t *testing.T) {
	if got := Title(KindNormal, "学生", "山田"); got != "【学生】山田" {
		t.Fatalf("unexpected normal title %q", got)
	}
	class := Title(KindClass, "教員", "情報処理")
	if class != "[授業] 情報処理" {
		t.Fatalf("unexpected class title %q", class)
	}
	if KindFromTitle(class) != KindClass {
		t.Fatal("expected class marker to round trip")
	}
	if ResolveKind("", "【教員】佐藤") != KindNormal {
		t.Fatal("expected normal kind for unmarked title")
	}
	if ResolveKind("class", "no marker") != KindClass {
		t.Fatal("expected stored kind to win")
	}
}

func TestICSRoundTrip(t *testing.T) {
	events := []Event{
		{ID: "e1", Title: "[授業] 情報処理", Kind: KindClass, Start: time.Date(2025, 4, 10, 13, 10, 0, 0, jst), End: time.Date(2025, 4, 10, 14, 40, 0, 0, jst)},
		{ID: "e2", Title: "【学生】山田", Description: "ゼミ", Kind: KindNormal, Start: time.Date(2025, 4, 11, 9, 0, 0, 0, jst), End: time.Date(2025, 4, 11, 10, 0, 0, 0, jst)},
	}

	var buf bytes.Buffer
	if err := WriteICS(&buf, events, ICSOptions{Name: "Room", Now: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "BEGIN:VEVENT") {
		t.Fatalf("expected VEVENT in output:\n%s", buf.String())
	}

	decoded, err := ReadICS(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 events, got %d", len(decoded))
	}
	if decoded[0].Kind != KindClass || decoded[1].Kind != KindNormal {
		t.Fatalf("unexpected kinds %q %q", decoded[0].Kind, decoded[1].Kind)
	}
	if !decoded[0].Start.Equal(events[0].Start) || !decoded[1].End.Equal(events[1].End) {
		t.Fatalf("unexpected times %+v", decoded)
	}
}

func TestReadICSForeignCategories(t *testing.T) {
	raw := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//other//calendar//EN",
		"BEGIN:VEVENT",
		"UID:a",
		"DTSTAMP:20250401T000000Z",
		"DTSTART:20250410T041000Z",
		"DTEND:20250410T054000Z",
		"SUMMARY:[授業] English",
		"CATEGORIES:Lecture",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:b",
		"DTSTAMP:20250401T000000Z",
		"DTSTART:20250411T000000Z",
		"DTEND:20250411T010000Z",
		"SUMMARY:Staff meeting",
		"CATEGORIES:Work,class",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:c",
		"DTSTAMP:20250401T000000Z",
		"DTSTART:20250412T000000Z",
		"DTEND:20250412T010000Z",
		"SUMMARY:[Class] Seminar",
		"CATEGORIES:通常",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	decoded, err := ReadICS(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("expected 3 events, got %d", len(decoded))
	}

	tests := []struct {
		title string
		want  Kind
	}{
		{title: "[授業] English", want: KindClass},
		{title: "Staff meeting", want: KindClass},
		{title: "[Class] Seminar", want: KindNormal},
	}
	for i, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if decoded[i].Title != tt.title {
				t.Fatalf("expected title %q, got %q", tt.title, decoded[i].Title)
			}
			if decoded[i].Kind != tt.want {
				t.Fatalf("expected kind %q, got %q", tt.want, decoded[i].Kind)
			}
		})
	}
}

func TestLookupKind(t *testing.T) {
	for _, value := range []string{"class", "Class", "授業", " 授業 "} {
		if kind, ok := LookupKind(value); !ok || kind != KindClass {
			t.Fatalf("expected %q to name the class kind, got %q %v", value, kind, ok)
		}
	}
	for _, value := range []string{"normal", "通常"} {
		if kind, ok := LookupKind(value); !ok || kind != KindNormal {
			t.Fatalf("expected %q to name the normal kind, got %q %v", value, kind, ok)
		}
	}
	if _, ok := LookupKind("Lecture"); ok {
		t.Fatal("expected foreign label to be unknown")
	}
	if ParseKind("Lecture") != KindNormal {
		t.Fatal("expected ParseKind to default to normal")
	}
}

package scheduler

import (
	"testing"
	"time"
)

func TestDetectConflicts(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2025, time.April, 10, h, m, 0, 0, time.UTC)
	}
	candidate := Slot{Start: at(13, 10), End: at(14, 40)}

	t.Run("overlapping class slot produces class conflict", func(t *testing.T) {
		existing := []Slot{{ID: "c1", Class: true, Start: at(13, 0), End: at(14, 0)}}
		conflicts := DetectConflicts(existing, candidate)
		if len(conflicts) != 1 || conflicts[0].Type != ConflictTypeClass || conflicts[0].WithSlotID != "c1" {
			t.Fatalf("unexpected conflicts %+v", conflicts)
		}
	})

	t.Run("overlapping normal slot produces normal conflict", func(t *testing.T) {
		existing := []Slot{{ID: "n1", Start: at(14, 0), End: at(15, 0)}}
		conflicts := DetectConflicts(existing, candidate)
		if len(conflicts) != 1 || conflicts[0].Type != ConflictTypeNormal {
			t.Fatalf("unexpected conflicts %+v", conflicts)
		}
	})

	t.Run("touching slots yield no conflicts", func(t *testing.T) {
		existing := []Slot{
			{ID: "before", Start: at(12, 0), End: at(13, 10)},
			{ID: "after", Start: at(14, 40), End: at(16, 0)},
		}
		if conflicts := DetectConflicts(existing, candidate); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("slot does not conflict with itself", func(t *testing.T) {
		self := Slot{ID: "same", Start: at(13, 10), End: at(14, 40)}
		if conflicts := DetectConflicts([]Slot{self}, self); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})
}

func TestContains(t *testing.T) {
	start := time.Date(2025, time.April, 10, 13, 10, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	for _, at := range []time.Time{start, end, start.Add(time.Minute)} {
		if !Contains(start, end, at) {
			t.Fatalf("expected %v to be contained", at)
		}
	}
	if Contains(start, end, end.Add(time.Second)) {
		t.Fatal("expected instant after end to be outside")
	}
}

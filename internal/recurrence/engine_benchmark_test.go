package recurrence

import (
	"testing"
	"time"

	"github.com/example/room-reservation/internal/term"
)

func BenchmarkEngineGenerateOccurrences(b *testing.B) {
	engine := NewEngine(nil)
	rule := Rule{
		Frequency: FrequencyWeekly,
		Weekdays:  []time.Weekday{time.Thursday},
		StartsOn:  time.Date(2025, time.September, 1, 0, 0, 0, 0, jst),
		EndsOn:    time.Date(2026, time.January, 31, 0, 0, 0, 0, jst),
		Start:     term.Clock{Hour: 8, Minute: 50},
		End:       term.Clock{Hour: 10, Minute: 20},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		occurrences, err := engine.GenerateOccurrences(rule, GenerateOptions{})
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) == 0 {
			b.Fatal("expected occurrences to be generated")
		}
	}
}

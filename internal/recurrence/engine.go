package recurrence

import (
	"errors"
	"time"

	"github.com/example/room-reservation/internal/term"
)

var jst = time.FixedZone("JST", 9*60*60)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyWeekly generates occurrences for the selected weekdays.
	FrequencyWeekly
)

// Rule describes a series of same-time slots between two dates.
// StartsOn and EndsOn are compared as dates only and both are inclusive.
type Rule struct {
	Frequency Frequency
	Weekdays  []time.Weekday
	StartsOn  time.Time
	EndsOn    time.Time
	Start     term.Clock
	End       term.Clock
}

// GenerateOptions narrows the walk. RangeStart raises the first date walked.
type GenerateOptions struct {
	RangeStart *time.Time
}

// Occurrence represents a generated instance of a recurrence rule.
type Occurrence struct {
	Date  time.Time
	Start time.Time
	End   time.Time
}

// Engine expands recurrence rules into occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that places occurrences in loc.
// If loc is nil, Asia/Tokyo (JST) is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = jst
	}
	return &Engine{location: loc}
}

// ErrInvalidFrequency indicates the recurrence frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidWindow indicates the rule has no end date.
var ErrInvalidWindow = errors.New("recurrence: generation window requires an end bound")

// ErrInvalidDuration indicates the slot does not end after it starts.
var ErrInvalidDuration = errors.New("recurrence: slot duration must be positive")

// GenerateOccurrences walks one day at a time from max(StartsOn, RangeStart)
// to EndsOn and emits a slot for every day the rule selects.
//
// Term boundaries rarely fall on the target weekday, so the walk does not try
// to stride by weeks.
func (e *Engine) GenerateOccurrences(rule Rule, opts GenerateOptions) ([]Occurrence, error) {
	loc := e.location
	if loc == nil {
		loc = jst
	}

	if !rule.Start.Before(rule.End) {
		return nil, ErrInvalidDuration
	}
	if rule.EndsOn.IsZero() {
		return nil, ErrInvalidWindow
	}

	lowerBound := dateOf(rule.StartsOn, loc)
	if opts.RangeStart != nil {
		if rs := dateOf(*opts.RangeStart, loc); rs.After(lowerBound) {
			lowerBound = rs
		}
	}
	upperBound := dateOf(rule.EndsOn, loc)
	if lowerBound.After(upperBound) {
		return nil, nil
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	occurrences := make([]Occurrence, 0)
	for current := lowerBound; !current.After(upperBound); current = current.AddDate(0, 0, 1) {
		include, err := shouldInclude(rule.Frequency, weekdaySet, current.Weekday())
		if err != nil {
			return nil, err
		}
		if !include {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			Date:  current,
			Start: rule.Start.On(current, loc),
			End:   rule.End.On(current, loc),
		})
	}

	return occurrences, nil
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func shouldInclude(freq Frequency, weekdaySet map[time.Weekday]struct{}, day time.Weekday) (bool, error) {
	switch freq {
	case FrequencyWeekly:
		if len(weekdaySet) == 0 {
			return false, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyUnspecified:
		fallthrough
	default:
		return false, ErrInvalidFrequency
	}
}

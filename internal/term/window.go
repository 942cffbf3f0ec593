package term

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownTerm indicates the term label is neither first nor second.
var ErrUnknownTerm = errors.New("term: unknown term")

// Term identifies an academic half year.
type Term string

const (
	// First runs from April through July.
	First Term = "first"
	// Second runs from September through the following January.
	Second Term = "second"
)

// ParseTerm accepts the English labels and the 前期/後期 labels used on the
// registration form.
func ParseTerm(label string) (Term, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "first", "前期":
		return First, nil
	case "second", "後期":
		return Second, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTerm, label)
	}
}

// Window is the date range of a term together with the daily slot of a period.
// StartDate and EndDate are midnights; EndDate is inclusive.
type Window struct {
	StartDate time.Time
	EndDate   time.Time
	Start     Clock
	End       Clock
}

// TermWindow computes the window for term and period relative to now.
//
// The second term crosses the new year, so while now is still in January to
// March the window is the one that began the previous September.
func TermWindow(now time.Time, t Term, period string, periods PeriodTable) (Window, error) {
	if periods == nil {
		periods = DefaultPeriods()
	}
	p, err := periods.Lookup(period)
	if err != nil {
		return Window{}, err
	}

	loc := now.Location()
	year := now.Year()
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}

	w := Window{Start: p.Start, End: p.End}
	switch t {
	case First:
		w.StartDate = date(year, time.April, 1)
		w.EndDate = date(year, time.July, 31)
	case Second:
		if now.Month() <= time.March {
			w.StartDate = date(year-1, time.September, 1)
			w.EndDate = date(year, time.January, 31)
		} else {
			w.StartDate = date(year, time.September, 1)
			w.EndDate = date(year+1, time.January, 31)
		}
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrUnknownTerm, string(t))
	}
	return w, nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

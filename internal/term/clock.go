package term

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidClock indicates a time-of-day string could not be parsed.
var ErrInvalidClock = errors.New("term: invalid time of day")

// Clock is a minute-precision time of day.
type Clock struct {
	Hour   int
	Minute int
}

// String renders the clock as zero-padded HH:mm.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c is earlier in the day than other.
func (c Clock) Before(other Clock) bool {
	return c.Minutes() < other.Minutes()
}

// On places the clock on the calendar day of date in loc.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = date.Location()
	}
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

// ClockOf extracts the time of day from t in its own location.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// ParseClock accepts "H:m", "HH:mm" and "HH:mm:ss" forms.
func ParseClock(value string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// MustParseClock is ParseClock for package-level tables and tests.
func MustParseClock(value string) Clock {
	c, err := ParseClock(value)
	if err != nil {
		panic(err)
	}
	return c
}

// NormalizeTime canonicalizes a time-of-day value to HH:mm.
//
// Structured values (time.Time, Clock) are formatted directly. Strings
// containing a colon have their hour and minute components zero padded and
// any seconds dropped. Anything else is returned as its string form so that
// the function stays idempotent for unexpected input.
func NormalizeTime(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case Clock:
		return v.String()
	case *Clock:
		if v == nil {
			return ""
		}
		return v.String()
	case time.Time:
		return v.Format("15:04")
	case string:
		return normalizeString(v)
	case fmt.Stringer:
		return normalizeString(v.String())
	default:
		return normalizeString(fmt.Sprint(v))
	}
}

func normalizeString(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		return s
	}
	parts := strings.Split(s, ":")
	hour := padLeft(parts[0], 2)
	minute := parts[1]
	if len(minute) > 2 {
		minute = minute[:2]
	}
	minute = padLeft(minute, 2)
	return hour + ":" + minute
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

package calendar

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// ICSOptions configures the exported VCALENDAR envelope.
type ICSOptions struct {
	ProductID string
	Name      string
	Now       time.Time
}

// WriteICS serializes events as a published VCALENDAR. The kind is carried in
// CATEGORIES so that consumers need not parse the title marker.
func WriteICS(w io.Writer, events []Event, opts ICSOptions) error {
	productID := opts.ProductID
	if productID == "" {
		productID = "-//room-reservation//calendar//JA"
	}
	stamp := opts.Now
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetName(opts.Name)
		cal.SetXWRCalName(opts.Name)
	}

	for _, ev := range events {
		vevent := cal.AddEvent(ev.ID)
		vevent.SetDtStampTime(stamp.UTC())
		vevent.SetStartAt(ev.Start.UTC())
		vevent.SetEndAt(ev.End.UTC())
		vevent.SetSummary(ev.Title)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		vevent.AddProperty(ical.ComponentPropertyCategories, ev.Kind.Label())
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

// ReadICS decodes VEVENTs into events ready for CreateEvent. CATEGORIES wins
// over the title marker when deciding the kind.
func ReadICS(r io.Reader) ([]NewEvent, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, err
	}

	var result []NewEvent
	for _, ve := range cal.Events() {
		start, err := ve.GetStartAt()
		if err != nil {
			return nil, err
		}
		end, err := ve.GetEndAt()
		if err != nil {
			return nil, err
		}
		ev := NewEvent{Start: start, End: end}
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			ev.Title = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
			ev.Description = p.Value
		}
		ev.Kind = KindFromTitle(ev.Title)
		if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
			if kind, ok := categoryKind(p.Value); ok {
				ev.Kind = kind
			}
		}
		result = append(result, ev)
	}
	return result, nil
}

// categoryKind picks the first CATEGORIES entry that names a kind. Other
// calendars put their own labels there, and those leave the title marker in
// charge.
func categoryKind(value string) (Kind, bool) {
	for _, part := range strings.Split(value, ",") {
		if kind, ok := LookupKind(part); ok {
			return kind, true
		}
	}
	return "", false
}

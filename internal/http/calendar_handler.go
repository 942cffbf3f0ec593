package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/room-reservation/internal/calendar"
)

const defaultFeedDays = 35

// CalendarHandler exports the room calendar as an ICS feed.
type CalendarHandler struct {
	calendar  calendar.Calendar
	location  *time.Location
	name      string
	now       func() time.Time
	responder responder
}

// NewCalendarHandler constructs a CalendarHandler. name becomes the feed's
// calendar name.
func NewCalendarHandler(cal calendar.Calendar, loc *time.Location, name string, logger *slog.Logger) *CalendarHandler {
	if loc == nil {
		loc = time.Local
	}
	return &CalendarHandler{calendar: cal, location: loc, name: name, now: time.Now, responder: newResponder(logger)}
}

// Feed handles GET /calendar.ics?from=YYYY-MM-DD&to=YYYY-MM-DD. The range is
// half open and defaults to today plus five weeks.
func (h *CalendarHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.calendar == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	now := h.now().In(h.location)
	from, _ := calendar.DayBounds(now)
	to := from.AddDate(0, 0, defaultFeedDays)
	query := r.URL.Query()
	if raw := query.Get("from"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		from = parsed
		to = from.AddDate(0, 0, defaultFeedDays)
	}
	if raw := query.Get("to"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil || !parsed.After(from) {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		to = parsed
	}

	events, err := h.calendar.EventsOverlapping(r.Context(), from, to)
	if err != nil {
		h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, errorResponse{ErrorCode: "READ_FAILURE", Message: "予約データの取得に失敗しました"})
		return
	}

	var buf bytes.Buffer
	if err := calendar.WriteICS(&buf, events, calendar.ICSOptions{Name: h.name, Now: now}); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/room-reservation/internal/calendar"
	"github.com/example/room-reservation/internal/term"
)

// QueryService serves the read-only views over the reservation ledger.
type QueryService struct {
	reservations ReservationStore
	members      MemberDirectory
	location     *time.Location
	now          func() time.Time
	logger       *slog.Logger
}

// NewQueryService constructs a QueryService.
func NewQueryService(reservations ReservationStore, members MemberDirectory, loc *time.Location, now func() time.Time) *QueryService {
	return NewQueryServiceWithLogger(reservations, members, loc, now, nil)
}

// NewQueryServiceWithLogger constructs a QueryService with a specified logger.
func NewQueryServiceWithLogger(reservations ReservationStore, members MemberDirectory, loc *time.Location, now func() time.Time, logger *slog.Logger) *QueryService {
	if loc == nil {
		loc = defaultLocation
	}
	if now == nil {
		now = time.Now
	}
	return &QueryService{
		reservations: reservations,
		members:      members,
		location:     loc,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *QueryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "QueryService", operation, attrs...)
}

// ListMyReservations returns the owner's reservations from today on, ordered
// by date and start time.
func (s *QueryService) ListMyReservations(ctx context.Context, ownerID string) (views []ReservationView, err error) {
	if s == nil {
		err = fmt.Errorf("QueryService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation store not configured")
		return
	}

	ownerID = strings.TrimSpace(ownerID)
	logger := s.loggerWith(ctx, "ListMyReservations", "owner_id", ownerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "list reservations failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("count", len(views)).InfoContext(ctx, "reservations listed")
	}()

	role := RoleStudent
	if s.members != nil {
		member, mErr := s.members.GetMember(ctx, ownerID)
		switch {
		case mErr == nil:
			if member.Role == RoleTeacher {
				role = RoleTeacher
			}
		case errors.Is(mErr, ErrNotFound):
		default:
			err = fmt.Errorf("%w: member lookup: %v", ErrReadFailure, mErr)
			return
		}
	}

	today := term.StartOfDay(s.now().In(s.location))
	var rows []Reservation
	rows, err = s.reservations.ListReservations(ctx, ReservationFilter{OwnerID: ownerID, FromDate: today})
	if err != nil {
		err = fmt.Errorf("%w: list reservations: %v", ErrReadFailure, err)
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if di, dj := rows[i].DateString(), rows[j].DateString(); di != dj {
			return di < dj
		}
		return rows[i].Start.Before(rows[j].Start)
	})

	views = make([]ReservationView, 0, len(rows))
	for _, row := range rows {
		views = append(views, ReservationView{Reservation: row, Role: role})
	}
	return
}

// ListMyClassGroups groups the owner's class rows by class name, weekday and
// start time, in order of first appearance.
func (s *QueryService) ListMyClassGroups(ctx context.Context, ownerID string) (groups []ClassGroup, err error) {
	if s == nil {
		err = fmt.Errorf("QueryService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation store not configured")
		return
	}

	ownerID = strings.TrimSpace(ownerID)
	logger := s.loggerWith(ctx, "ListMyClassGroups", "owner_id", ownerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "list class groups failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("groups", len(groups)).InfoContext(ctx, "class groups listed")
	}()

	var rows []Reservation
	rows, err = s.reservations.ListReservations(ctx, ReservationFilter{OwnerID: ownerID, Kind: calendar.KindClass})
	if err != nil {
		err = fmt.Errorf("%w: list reservations: %v", ErrReadFailure, err)
		return
	}

	type groupKey struct {
		name    string
		weekday time.Weekday
		start   term.Clock
	}
	index := make(map[groupKey]int)
	for _, row := range rows {
		key := groupKey{name: row.OwnerName, weekday: row.Date.Weekday(), start: row.Start}
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, ClassGroup{
				Name:         row.OwnerName,
				Weekday:      key.weekday,
				WeekdayLabel: WeekdayLabel(key.weekday),
				Start:        row.Start,
				End:          row.End,
				Count:        1,
				First:        row.Date,
				Last:         row.Date,
			})
			continue
		}
		g := &groups[i]
		g.Count++
		if row.Date.Before(g.First) {
			g.First = row.Date
		}
		if row.Date.After(g.Last) {
			g.Last = row.Date
		}
	}

	for i := range groups {
		rule, rErr := weeklyRule(groups[i], s.location)
		if rErr != nil {
			logger.WarnContext(ctx, "recurrence rule not built", "class_name", groups[i].Name, "error", rErr)
			continue
		}
		groups[i].Recurrence = rule.String()
		if weeks := len(rule.All()); weeks > groups[i].Count {
			groups[i].Gaps = weeks - groups[i].Count
		}
	}
	return
}

var rruleWeekdays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// weeklyRule describes the group's span as an RFC 5545 weekly rule.
func weeklyRule(g ClassGroup, loc *time.Location) (*rrule.RRule, error) {
	return rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   g.Start.On(g.First, loc),
		Until:     g.Start.On(g.Last, loc),
		Byweekday: []rrule.Weekday{rruleWeekdays[g.Weekday]},
	})
}

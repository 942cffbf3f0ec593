package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-reservation/internal/calendar"
	"github.com/example/room-reservation/internal/recurrence"
	"github.com/example/room-reservation/internal/scheduler"
	"github.com/example/room-reservation/internal/term"
)

// ReservationStore is the append-only reservation ledger.
type ReservationStore interface {
	AppendReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	DeleteReservations(ctx context.Context, ids []string) (int, error)
}

// MemberDirectory resolves members and their roles.
type MemberDirectory interface {
	GetMember(ctx context.Context, id string) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
}

// EngineOptions configures the time zone and timetable the engine books against.
type EngineOptions struct {
	Location       *time.Location
	Periods        term.PeriodTable
	MemberCacheTTL time.Duration
}

var defaultLocation = time.FixedZone("JST", 9*60*60)

// ReservationService keeps the calendar and the reservation ledger in step.
// Every booking first writes the calendar event and then appends the ledger
// row; a failed append removes the event again.
type ReservationService struct {
	reservations ReservationStore
	calendar     calendar.Calendar
	members      MemberDirectory
	recurrence   *recurrence.Engine
	periods      term.PeriodTable
	location     *time.Location
	memberCache  *memberCache
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService constructs a ReservationService.
func NewReservationService(reservations ReservationStore, cal calendar.Calendar, members MemberDirectory, opts EngineOptions, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, cal, members, opts, idGenerator, now, nil)
}

// NewReservationServiceWithLogger constructs a ReservationService with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationStore, cal calendar.Calendar, members MemberDirectory, opts EngineOptions, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = defaultLocation
	}
	periods := opts.Periods
	if periods == nil {
		periods = term.DefaultPeriods()
	}
	return &ReservationService{
		reservations: reservations,
		calendar:     cal,
		members:      members,
		recurrence:   recurrence.NewEngine(loc),
		periods:      periods,
		location:     loc,
		memberCache:  newMemberCache(opts.MemberCacheTTL, 0, now),
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

func (s *ReservationService) ready() error {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return fmt.Errorf("reservation store not configured")
	}
	if s.calendar == nil {
		return fmt.Errorf("calendar not configured")
	}
	return nil
}

func (s *ReservationService) clock() time.Time {
	return s.now().In(s.location)
}

// Location returns the zone all dates are interpreted in.
func (s *ReservationService) Location() *time.Location {
	if s == nil || s.location == nil {
		return defaultLocation
	}
	return s.location
}

// Periods returns the timetable used for class registration.
func (s *ReservationService) Periods() term.PeriodTable {
	if s == nil {
		return term.DefaultPeriods()
	}
	return s.periods
}

// BookSlot books a one-off slot for a member. The slot must lie in the future
// and must not overlap any existing event.
func (s *ReservationService) BookSlot(ctx context.Context, params BookSlotParams) (result BookSlotResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	ownerID := strings.TrimSpace(params.OwnerID)
	logger := s.loggerWith(ctx, "BookSlot",
		"owner_id", ownerID,
		"date", params.Date.Format("2006-01-02"),
		"start_time", params.Start.String(),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "booking failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", result.Reservation.ID, "event_id", result.Event.ID).InfoContext(ctx, "slot booked")
	}()

	vErr := &ValidationError{}
	if ownerID == "" {
		vErr.add("owner_id", "required")
	}
	if params.Date.IsZero() {
		vErr.add("date", "required")
	}
	if !params.Start.Before(params.End) {
		vErr.add("end_time", "must be after start_time")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.clock()
	day := term.StartOfDay(params.Date.In(s.location))
	start := params.Start.On(day, s.location)
	end := params.End.On(day, s.location)
	if start.Before(now) {
		err = ErrPastTime
		return
	}

	var occ occupancy
	occ, err = s.occupancy(ctx, start, end)
	if err != nil {
		return
	}
	if !occ.empty() {
		err = ErrSlotTaken
		return
	}

	member, _ := s.lookupMember(ctx, ownerID)
	ownerName := strings.TrimSpace(params.OwnerName)
	if ownerName == "" {
		ownerName = member.DisplayName
	}

	var event calendar.Event
	event, err = s.calendar.CreateEvent(ctx, calendar.NewEvent{
		Title:       calendar.Title(calendar.KindNormal, member.Role.Label(), ownerName),
		Description: params.Note,
		OwnerID:     ownerID,
		Kind:        calendar.KindNormal,
		Start:       start,
		End:         end,
	})
	if err != nil {
		err = fmt.Errorf("%w: create event: %v", ErrWriteFailure, err)
		return
	}

	var reservation Reservation
	reservation, err = s.appendPaired(ctx, logger, event, Reservation{
		ID:        s.idGenerator(),
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Date:      day,
		Start:     params.Start,
		End:       params.End,
		Note:      params.Note,
		Kind:      calendar.KindNormal,
		CreatedAt: now,
	})
	if err != nil {
		return
	}

	result = BookSlotResult{Reservation: reservation, Event: event, Message: bookedMessage}
	return
}

// RegisterClass books the given weekday and period for every remaining week of
// the term. Student bookings in the way are removed from the calendar; their
// ledger rows are voided later by Reconcile. Dates that already hold a class
// are skipped.
func (s *ReservationService) RegisterClass(ctx context.Context, params RegisterClassParams) (result RegisterClassResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	ownerID := strings.TrimSpace(params.OwnerID)
	name := strings.TrimSpace(params.Name)
	logger := s.loggerWith(ctx, "RegisterClass",
		"owner_id", ownerID,
		"class_name", name,
		"weekday", int(params.Weekday),
		"period", params.Period,
		"term", string(params.Term),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "class registration failed", "error", err, "error_kind", ErrorKind(err), "registered", result.Count)
			return
		}
		logger.With("registered", result.Count, "evicted", result.Evicted, "skipped", len(result.Skipped)).InfoContext(ctx, "class registered")
	}()

	vErr := &ValidationError{}
	if ownerID == "" {
		vErr.add("owner_id", "required")
	}
	if name == "" {
		vErr.add("name", "required")
	}
	if params.Weekday < time.Sunday || params.Weekday > time.Saturday {
		vErr.add("weekday", "must be between 0 and 6")
	}

	now := s.clock()
	window, wErr := term.TermWindow(now, params.Term, params.Period, s.periods)
	switch {
	case errors.Is(wErr, term.ErrUnknownPeriod):
		vErr.add("period", "unknown period")
	case errors.Is(wErr, term.ErrUnknownTerm):
		vErr.add("term", "unknown term")
	case wErr != nil:
		vErr.add("term", wErr.Error())
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	today := term.StartOfDay(now)
	var occurrences []recurrence.Occurrence
	occurrences, err = s.recurrence.GenerateOccurrences(recurrence.Rule{
		Frequency: recurrence.FrequencyWeekly,
		Weekdays:  []time.Weekday{params.Weekday},
		StartsOn:  window.StartDate,
		EndsOn:    window.EndDate,
		Start:     window.Start,
		End:       window.End,
	}, recurrence.GenerateOptions{RangeStart: &today})
	if err != nil {
		return
	}

	title := calendar.Title(calendar.KindClass, "", name)
	for _, occurrence := range occurrences {
		if !occurrence.Start.After(now) {
			continue
		}

		var occ occupancy
		occ, err = s.occupancy(ctx, occurrence.Start, occurrence.End)
		if err != nil {
			result.Message = registeredMessage(result.Count)
			return
		}
		if len(occ.class) > 0 {
			result.Skipped = append(result.Skipped, occurrence.Date)
			continue
		}

		for _, ev := range occ.normal {
			if dErr := s.calendar.DeleteEvent(ctx, ev); dErr != nil && !errors.Is(dErr, calendar.ErrEventNotFound) {
				err = fmt.Errorf("%w: evict event %s: %v", ErrWriteFailure, ev.ID, dErr)
				result.Message = registeredMessage(result.Count)
				return
			}
			result.Evicted++
		}

		var event calendar.Event
		event, err = s.calendar.CreateEvent(ctx, calendar.NewEvent{
			Title:       title,
			Description: params.Note,
			OwnerID:     ownerID,
			Kind:        calendar.KindClass,
			Start:       occurrence.Start,
			End:         occurrence.End,
		})
		if err != nil {
			err = fmt.Errorf("%w: create event: %v", ErrWriteFailure, err)
			result.Message = registeredMessage(result.Count)
			return
		}

		var reservation Reservation
		reservation, err = s.appendPaired(ctx, logger, event, Reservation{
			ID:        s.idGenerator(),
			OwnerID:   ownerID,
			OwnerName: name,
			Date:      occurrence.Date,
			Start:     window.Start,
			End:       window.End,
			Note:      params.Note,
			Kind:      calendar.KindClass,
			CreatedAt: now,
		})
		if err != nil {
			result.Message = registeredMessage(result.Count)
			return
		}
		result.Reservations = append(result.Reservations, reservation)
		result.Count++
	}

	result.Message = registeredMessage(result.Count)
	return
}

// Reconcile voids the owner's normal reservations that now overlap a class
// event. Rows are scanned newest first and removed in one batch. The calendar
// is not touched.
func (s *ReservationService) Reconcile(ctx context.Context, ownerID string) (ReconcileResult, error) {
	return s.reconcile(ctx, "Reconcile", ownerID, nil)
}

// ReconcileAndDeliver is Reconcile with deliver called on the notice before
// the voided rows are removed. When deliver fails the rows stay in place and
// the error is returned wrapped in ErrWriteFailure, so the next pass reports
// the same slots again.
func (s *ReservationService) ReconcileAndDeliver(ctx context.Context, ownerID string, deliver func(ReconcileResult) error) (ReconcileResult, error) {
	return s.reconcile(ctx, "ReconcileAndDeliver", ownerID, deliver)
}

func (s *ReservationService) reconcile(ctx context.Context, operation, ownerID string, deliver func(ReconcileResult) error) (result ReconcileResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	ownerID = strings.TrimSpace(ownerID)
	logger := s.loggerWith(ctx, operation, "owner_id", ownerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "reconcile failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("voided", len(result.Voided)).InfoContext(ctx, "reconcile completed")
	}()

	if ownerID == "" {
		err = &ValidationError{FieldErrors: map[string]string{"owner_id": "required"}}
		return
	}

	var rows []Reservation
	rows, err = s.reservations.ListReservations(ctx, ReservationFilter{OwnerID: ownerID, Kind: calendar.KindNormal})
	if err != nil {
		err = fmt.Errorf("%w: list reservations: %v", ErrReadFailure, err)
		return
	}

	var voided []Reservation
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		start, end := row.Interval(s.location)

		var occ occupancy
		occ, err = s.occupancy(ctx, start, end)
		if err != nil {
			return
		}
		if len(occ.class) == 0 {
			continue
		}
		voided = append(voided, row)
	}
	if len(voided) == 0 {
		return
	}

	ids := make([]string, len(voided))
	messages := make([]string, len(voided))
	for i, row := range voided {
		ids[i] = row.ID
		messages[i] = voidedEntry(row)
	}
	pending := ReconcileResult{Voided: voided, Messages: messages, Notice: voidedNotice(messages)}
	if deliver != nil {
		if dErr := deliver(pending); dErr != nil {
			err = fmt.Errorf("%w: deliver notice: %v", ErrWriteFailure, dErr)
			return
		}
	}
	if _, err = s.reservations.DeleteReservations(ctx, ids); err != nil {
		err = fmt.Errorf("%w: delete voided reservations: %v", ErrWriteFailure, err)
		return
	}

	result = pending
	return
}

// CancelClassGroup removes every class row of the owner's series identified by
// class name and start time, together with the matching class events. A row
// whose event could not be deleted is kept; such failures are joined into the
// returned error after the remaining rows are processed.
func (s *ReservationService) CancelClassGroup(ctx context.Context, params CancelClassGroupParams) (result CancelClassGroupResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	ownerID := strings.TrimSpace(params.OwnerID)
	name := strings.TrimSpace(params.ClassName)
	start := term.NormalizeTime(params.StartTime)
	logger := s.loggerWith(ctx, "CancelClassGroup",
		"owner_id", ownerID,
		"class_name", name,
		"start_time", start,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "class group cancellation failed", "error", err, "error_kind", ErrorKind(err), "removed", result.Removed)
			return
		}
		logger.With("removed", result.Removed).InfoContext(ctx, "class group cancelled")
	}()

	vErr := &ValidationError{}
	if ownerID == "" {
		vErr.add("owner_id", "required")
	}
	if name == "" {
		vErr.add("class_name", "required")
	}
	if start == "" {
		vErr.add("start_time", "required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var rows []Reservation
	rows, err = s.reservations.ListReservations(ctx, ReservationFilter{OwnerID: ownerID, Kind: calendar.KindClass})
	if err != nil {
		err = fmt.Errorf("%w: list reservations: %v", ErrReadFailure, err)
		return
	}

	var (
		ids  []string
		errs []error
	)
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if row.OwnerName != name || row.Start.String() != start {
			continue
		}

		events, lErr := s.calendar.EventsOnDay(ctx, row.Start.On(row.Date, s.location))
		if lErr != nil {
			errs = append(errs, fmt.Errorf("%w: events on %s: %v", ErrReadFailure, row.DateString(), lErr))
			continue
		}

		failed := false
		for _, ev := range events {
			if !ev.IsClass() || term.NormalizeTime(ev.Start.In(s.location)) != start {
				continue
			}
			if dErr := s.calendar.DeleteEvent(ctx, ev); dErr != nil && !errors.Is(dErr, calendar.ErrEventNotFound) {
				errs = append(errs, fmt.Errorf("%w: delete event %s: %v", ErrWriteFailure, ev.ID, dErr))
				failed = true
			}
		}
		if !failed {
			ids = append(ids, row.ID)
		}
	}

	if len(ids) > 0 {
		removed, dErr := s.reservations.DeleteReservations(ctx, ids)
		if dErr != nil {
			errs = append(errs, fmt.Errorf("%w: delete reservations: %v", ErrWriteFailure, dErr))
		}
		result.Removed = removed
	}
	result.Message = cancelledGroupMessage(name, start, result.Removed)
	err = errors.Join(errs...)
	return
}

// CancelReservation deletes the caller's events starting at the given time on
// date and then the newest matching ledger row. Events without an owner are
// treated as the caller's.
func (s *ReservationService) CancelReservation(ctx context.Context, params CancelReservationParams) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	ownerID := strings.TrimSpace(params.OwnerID)
	start := term.NormalizeTime(params.StartTime)
	day := term.StartOfDay(params.Date.In(s.location))
	logger := s.loggerWith(ctx, "CancelReservation",
		"owner_id", ownerID,
		"date", day.Format("2006-01-02"),
		"start_time", start,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "cancellation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	vErr := &ValidationError{}
	if ownerID == "" {
		vErr.add("owner_id", "required")
	}
	if params.Date.IsZero() {
		vErr.add("date", "required")
	}
	if start == "" {
		vErr.add("start_time", "required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	events, lErr := s.calendar.EventsOnDay(ctx, day)
	if lErr != nil {
		err = fmt.Errorf("%w: events on day: %v", ErrReadFailure, lErr)
		return
	}

	var matched []calendar.Event
	for _, ev := range events {
		if term.NormalizeTime(ev.Start.In(s.location)) != start {
			continue
		}
		if ev.OwnerID != "" && ev.OwnerID != ownerID {
			continue
		}
		matched = append(matched, ev)
	}
	if len(matched) == 0 {
		err = ErrNotFound
		return
	}

	for _, ev := range matched {
		if dErr := s.calendar.DeleteEvent(ctx, ev); dErr != nil && !errors.Is(dErr, calendar.ErrEventNotFound) {
			err = fmt.Errorf("%w: delete event %s: %v", ErrWriteFailure, ev.ID, dErr)
			return
		}
	}

	rows, lErr := s.reservations.ListReservations(ctx, ReservationFilter{OwnerID: ownerID})
	if lErr != nil {
		err = fmt.Errorf("%w: list reservations: %v", ErrReadFailure, lErr)
		return
	}
	date := day.Format("2006-01-02")
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].DateString() != date || rows[i].Start.String() != start {
			continue
		}
		if _, dErr := s.reservations.DeleteReservations(ctx, []string{rows[i].ID}); dErr != nil {
			err = fmt.Errorf("%w: delete reservation: %v", ErrWriteFailure, dErr)
		}
		return
	}
	return
}

// RoomBusy reports whether any event today covers the current instant.
func (s *ReservationService) RoomBusy(ctx context.Context) (busy bool, err error) {
	if err = s.ready(); err != nil {
		return
	}

	now := s.clock()
	events, lErr := s.calendar.EventsOnDay(ctx, now)
	if lErr != nil {
		err = fmt.Errorf("%w: events on day: %v", ErrReadFailure, lErr)
		s.loggerWith(ctx, "RoomBusy").ErrorContext(ctx, "room status failed", "error", err, "error_kind", ErrorKind(err))
		return
	}
	for _, ev := range events {
		if scheduler.Contains(ev.Start, ev.End, now) {
			return true, nil
		}
	}
	return false, nil
}

type occupancy struct {
	normal []calendar.Event
	class  []calendar.Event
}

func (o occupancy) empty() bool {
	return len(o.normal) == 0 && len(o.class) == 0
}

// occupancy splits the events overlapping [start, end) by kind.
func (s *ReservationService) occupancy(ctx context.Context, start, end time.Time) (occupancy, error) {
	events, err := s.calendar.EventsOverlapping(ctx, start, end)
	if err != nil {
		return occupancy{}, fmt.Errorf("%w: events overlapping: %v", ErrReadFailure, err)
	}

	slots := make([]scheduler.Slot, len(events))
	byID := make(map[string]calendar.Event, len(events))
	for i, ev := range events {
		slots[i] = scheduler.Slot{ID: ev.ID, Class: ev.IsClass(), Start: ev.Start, End: ev.End}
		byID[ev.ID] = ev
	}

	var occ occupancy
	for _, conflict := range scheduler.DetectConflicts(slots, scheduler.Slot{Start: start, End: end}) {
		ev := byID[conflict.WithSlotID]
		if conflict.Type == scheduler.ConflictTypeClass {
			occ.class = append(occ.class, ev)
			continue
		}
		occ.normal = append(occ.normal, ev)
	}
	return occ, nil
}

// appendPaired appends the ledger row for an event that was just created. If
// the append fails the event is deleted again.
func (s *ReservationService) appendPaired(ctx context.Context, logger *slog.Logger, event calendar.Event, row Reservation) (Reservation, error) {
	stored, err := s.reservations.AppendReservation(ctx, row)
	if err == nil {
		return stored, nil
	}

	if dErr := s.calendar.DeleteEvent(ctx, event); dErr != nil && !errors.Is(dErr, calendar.ErrEventNotFound) {
		logger.ErrorContext(ctx, "calendar and ledger diverged",
			"event_id", event.ID,
			"error", dErr,
			"error_kind", "partial_write",
		)
	}
	return Reservation{}, fmt.Errorf("%w: append reservation: %v", ErrWriteFailure, err)
}

// lookupMember resolves the member for id. Unknown members read as students.
func (s *ReservationService) lookupMember(ctx context.Context, id string) (Member, bool) {
	if member, found, ok := s.memberCache.Get(id); ok {
		if !found {
			return Member{ID: id, Role: RoleStudent}, false
		}
		return member, true
	}
	if s.members == nil {
		return Member{ID: id, Role: RoleStudent}, false
	}

	member, err := s.members.GetMember(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.memberCache.Store(id, Member{}, false)
		} else {
			s.loggerWith(ctx, "lookupMember", "member_id", id).WarnContext(ctx, "member lookup failed", "error", err)
		}
		return Member{ID: id, Role: RoleStudent}, false
	}
	if member.Role != RoleTeacher {
		member.Role = RoleStudent
	}
	s.memberCache.Store(id, member, true)
	return member, true
}

package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/calendar"
	"github.com/example/room-reservation/internal/persistence"
	"github.com/example/room-reservation/internal/term"
)

// Reservations exposes a persistence.ReservationRepository as an
// application.ReservationStore. Dates are read back as midnights in loc.
type Reservations struct {
	repo     persistence.ReservationRepository
	location *time.Location
}

// NewReservations wraps repo.
func NewReservations(repo persistence.ReservationRepository, loc *time.Location) *Reservations {
	if loc == nil {
		loc = time.Local
	}
	return &Reservations{repo: repo, location: loc}
}

// AppendReservation adds a row to the end of the log.
func (a *Reservations) AppendReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	stored, err := a.repo.AppendReservation(ctx, toPersistenceReservation(reservation))
	if err != nil {
		return application.Reservation{}, mapError(err)
	}
	return a.toApplication(stored)
}

// ListReservations returns the matching rows in insertion order.
func (a *Reservations) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.Reservation, error) {
	pf := persistence.ReservationFilter{OwnerID: filter.OwnerID}
	if filter.Kind != "" {
		pf.Kind = filter.Kind.Label()
	}
	if !filter.FromDate.IsZero() {
		pf.FromDate = filter.FromDate.In(a.location).Format(dateLayout)
	}

	stored, err := a.repo.ListReservations(ctx, pf)
	if err != nil {
		return nil, mapError(err)
	}
	rows := make([]application.Reservation, 0, len(stored))
	for _, s := range stored {
		row, err := a.toApplication(s)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DeleteReservations removes the rows with the given ids in one batch.
func (a *Reservations) DeleteReservations(ctx context.Context, ids []string) (int, error) {
	n, err := a.repo.DeleteReservations(ctx, ids)
	return n, mapError(err)
}

func (a *Reservations) toApplication(model persistence.Reservation) (application.Reservation, error) {
	date, err := time.ParseInLocation(dateLayout, model.Date, a.location)
	if err != nil {
		return application.Reservation{}, fmt.Errorf("reservation %s: date %q: %w", model.ID, model.Date, err)
	}
	start, err := term.ParseClock(model.StartTime)
	if err != nil {
		return application.Reservation{}, fmt.Errorf("reservation %s: start %q: %w", model.ID, model.StartTime, err)
	}
	end, err := term.ParseClock(model.EndTime)
	if err != nil {
		return application.Reservation{}, fmt.Errorf("reservation %s: end %q: %w", model.ID, model.EndTime, err)
	}
	return application.Reservation{
		ID:        model.ID,
		Seq:       model.Seq,
		OwnerID:   model.OwnerID,
		OwnerName: model.OwnerName,
		Date:      date,
		Start:     start,
		End:       end,
		Note:      model.Note,
		Kind:      calendar.ParseKind(model.Kind),
		CreatedAt: model.CreatedAt,
	}, nil
}

func toPersistenceReservation(r application.Reservation) persistence.Reservation {
	kind := r.Kind
	if kind == "" {
		kind = calendar.KindNormal
	}
	return persistence.Reservation{
		Seq:       r.Seq,
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		OwnerName: r.OwnerName,
		Date:      r.DateString(),
		StartTime: r.Start.String(),
		EndTime:   r.End.String(),
		Note:      r.Note,
		Kind:      kind.Label(),
		CreatedAt: r.CreatedAt,
	}
}

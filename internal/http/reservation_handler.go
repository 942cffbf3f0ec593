package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/term"
)

type reservationService interface {
	BookSlot(ctx context.Context, params application.BookSlotParams) (application.BookSlotResult, error)
	CancelReservation(ctx context.Context, params application.CancelReservationParams) error
	Reconcile(ctx context.Context, ownerID string) (application.ReconcileResult, error)
	RoomBusy(ctx context.Context) (bool, error)
}

type reservationQueries interface {
	ListMyReservations(ctx context.Context, ownerID string) ([]application.ReservationView, error)
}

// ReservationHandler serves the member's own bookings and the room status.
type ReservationHandler struct {
	service   reservationService
	queries   reservationQueries
	location  *time.Location
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

// NewReservationHandler constructs a ReservationHandler. Dates in requests are
// read in loc.
func NewReservationHandler(service reservationService, queries reservationQueries, loc *time.Location, logger *slog.Logger) *ReservationHandler {
	if loc == nil {
		loc = time.Local
	}
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, queries: queries, location: loc, now: time.Now, responder: newResponder(base), logger: base}
}

// List handles GET /reservations.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	views, err := h.queries.ListMyReservations(r.Context(), principal.MemberID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]reservationDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toReservationDTO(v.Reservation, v.Role))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationListResponse{Reservations: out})
}

// Create handles POST /reservations.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookRequest
	if err := decodeRequest(r, &req); err != nil {
		h.writeDecodeError(r.Context(), w, err)
		return
	}
	day, err := time.ParseInLocation("2006-01-02", req.Date, h.location)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.service.BookSlot(r.Context(), application.BookSlotParams{
		OwnerID:   principal.MemberID,
		OwnerName: principal.DisplayName,
		Date:      day,
		Start:     term.MustParseClock(req.StartTime),
		End:       term.MustParseClock(req.EndTime),
		Note:      strings.TrimSpace(req.Note),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "ReservationHandler", "Create").InfoContext(r.Context(), "reservation created", "reservation_id", result.Reservation.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookResponse{
		Message:     result.Message,
		Reservation: toReservationDTO(result.Reservation, principal.Role),
	})
}

// Delete handles DELETE /reservations/:date/:start.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params := httprouter.ParamsFromContext(r.Context())
	day, err := time.ParseInLocation("2006-01-02", params.ByName("date"), h.location)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	start := params.ByName("start")
	if _, err := term.ParseClock(start); err != nil {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{FieldErrors: map[string]string{"start_time": "clock"}})
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.CancelReservation(r.Context(), application.CancelReservationParams{
		OwnerID:   principal.MemberID,
		Date:      day,
		StartTime: start,
	}); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Reconcile handles POST /reconcile. Only students have bookings that classes
// can displace, so teachers get 403.
func (h *ReservationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok || principal.Role == application.RoleTeacher {
		handlerLogger(r.Context(), h.logger, "ReservationHandler", "Reconcile", "error_kind", "forbidden").WarnContext(r.Context(), "teacher attempted reconcile")
		h.responder.handleServiceError(r.Context(), w, application.ErrForbidden)
		return
	}
	result, err := h.service.Reconcile(r.Context(), principal.MemberID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	voided := make([]reservationDTO, 0, len(result.Voided))
	for _, v := range result.Voided {
		voided = append(voided, toReservationDTO(v, principal.Role))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reconcileResponse{Voided: voided, Notice: result.Notice})
}

// RoomStatus handles GET /room/status.
func (h *ReservationHandler) RoomStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	busy, err := h.service.RoomBusy(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomStatusResponse{
		Busy:      busy,
		CheckedAt: h.now().In(h.location).Format(time.RFC3339),
	})
}

func (h *ReservationHandler) writeDecodeError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, errBadRequestBody) {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	h.responder.handleServiceError(ctx, w, err)
}

type bookRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
	Note      string `json:"note" validate:"max=500"`
}

type reservationDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	OwnerName string `json:"owner_name"`
	Note      string `json:"note,omitempty"`
	Kind      string `json:"kind"`
	Role      string `json:"role,omitempty"`
	RoleLabel string `json:"role_label,omitempty"`
}

func toReservationDTO(r application.Reservation, role application.Role) reservationDTO {
	dto := reservationDTO{
		ID:        r.ID,
		Date:      r.DateString(),
		StartTime: r.Start.String(),
		EndTime:   r.End.String(),
		OwnerName: r.OwnerName,
		Note:      r.Note,
		Kind:      r.Kind.Label(),
	}
	if role != "" {
		dto.Role = string(role)
		dto.RoleLabel = role.Label()
	}
	return dto
}

type reservationListResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type bookResponse struct {
	Message     string         `json:"message"`
	Reservation reservationDTO `json:"reservation"`
}

type reconcileResponse struct {
	Voided []reservationDTO `json:"voided"`
	Notice string           `json:"notice,omitempty"`
}

type roomStatusResponse struct {
	Busy      bool   `json:"busy"`
	CheckedAt string `json:"checked_at"`
}

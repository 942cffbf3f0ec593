package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/term"
)

type classService interface {
	RegisterClass(ctx context.Context, params application.RegisterClassParams) (application.RegisterClassResult, error)
	CancelClassGroup(ctx context.Context, params application.CancelClassGroupParams) (application.CancelClassGroupResult, error)
}

type classQueries interface {
	ListMyClassGroups(ctx context.Context, ownerID string) ([]application.ClassGroup, error)
}

// ClassHandler serves class series registration for teachers.
type ClassHandler struct {
	service   classService
	queries   classQueries
	responder responder
	logger    *slog.Logger
}

// NewClassHandler constructs a ClassHandler.
func NewClassHandler(service classService, queries classQueries, logger *slog.Logger) *ClassHandler {
	base := defaultLogger(logger)
	return &ClassHandler{service: service, queries: queries, responder: newResponder(base), logger: base}
}

// List handles GET /classes.
func (h *ClassHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	groups, err := h.queries.ListMyClassGroups(r.Context(), principal.MemberID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]classGroupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, toClassGroupDTO(g))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, classGroupListResponse{Classes: out})
}

// Create handles POST /classes.
func (h *ClassHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.requireTeacher(w, r, "Create")
	if !ok {
		return
	}

	var req registerClassRequest
	if err := decodeRequest(r, &req); err != nil {
		if errors.Is(err, errBadRequestBody) {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	semester, err := term.ParseTerm(req.Term)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{FieldErrors: map[string]string{"term": "unknown term"}})
		return
	}

	result, err := h.service.RegisterClass(r.Context(), application.RegisterClassParams{
		OwnerID: principal.MemberID,
		Name:    strings.TrimSpace(req.Name),
		Weekday: time.Weekday(*req.Weekday),
		Period:  strings.TrimSpace(req.Period),
		Term:    semester,
		Note:    strings.TrimSpace(req.Note),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	skipped := make([]string, 0, len(result.Skipped))
	for _, d := range result.Skipped {
		skipped = append(skipped, d.Format("2006-01-02"))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, registerClassResponse{
		Message: result.Message,
		Count:   result.Count,
		Evicted: result.Evicted,
		Skipped: skipped,
	})
}

// Delete handles DELETE /classes?name=&start=.
func (h *ClassHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.requireTeacher(w, r, "Delete")
	if !ok {
		return
	}

	query := r.URL.Query()
	req := cancelClassRequest{Name: strings.TrimSpace(query.Get("name")), StartTime: strings.TrimSpace(query.Get("start"))}
	if err := validateRequest(&req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result, err := h.service.CancelClassGroup(r.Context(), application.CancelClassGroupParams{
		OwnerID:   principal.MemberID,
		ClassName: req.Name,
		StartTime: req.StartTime,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, cancelClassResponse{Message: result.Message, Removed: result.Removed})
}

func (h *ClassHandler) requireTeacher(w http.ResponseWriter, r *http.Request, operation string) (application.Principal, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok || principal.Role != application.RoleTeacher {
		handlerLogger(r.Context(), h.logger, "ClassHandler", operation, "error_kind", "forbidden").WarnContext(r.Context(), "non-teacher attempted class management")
		h.responder.handleServiceError(r.Context(), w, application.ErrForbidden)
		return application.Principal{}, false
	}
	return principal, true
}

type registerClassRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Weekday *int   `json:"weekday" validate:"required,weekday"`
	Period  string `json:"period" validate:"required"`
	Term    string `json:"term" validate:"required"`
	Note    string `json:"note" validate:"max=500"`
}

type cancelClassRequest struct {
	Name      string `json:"name" validate:"required"`
	StartTime string `json:"start" validate:"required,clock"`
}

type classGroupDTO struct {
	Name         string `json:"name"`
	Weekday      int    `json:"weekday"`
	WeekdayLabel string `json:"weekday_label"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Count        int    `json:"count"`
	FirstDate    string `json:"first_date"`
	LastDate     string `json:"last_date"`
	Recurrence   string `json:"recurrence,omitempty"`
	Gaps         int    `json:"gaps"`
}

func toClassGroupDTO(g application.ClassGroup) classGroupDTO {
	return classGroupDTO{
		Name:         g.Name,
		Weekday:      int(g.Weekday),
		WeekdayLabel: g.WeekdayLabel,
		StartTime:    g.Start.String(),
		EndTime:      g.End.String(),
		Count:        g.Count,
		FirstDate:    g.First.Format("2006-01-02"),
		LastDate:     g.Last.Format("2006-01-02"),
		Recurrence:   g.Recurrence,
		Gaps:         g.Gaps,
	}
}

type classGroupListResponse struct {
	Classes []classGroupDTO `json:"classes"`
}

type registerClassResponse struct {
	Message string   `json:"message"`
	Count   int      `json:"count"`
	Evicted int      `json:"evicted"`
	Skipped []string `json:"skipped"`
}

type cancelClassResponse struct {
	Message string `json:"message"`
	Removed int    `json:"removed"`
}

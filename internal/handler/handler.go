// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/calendar"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// EventHandler holds the HTTP handlers for the events API.
type EventHandler struct {
	svc    *service.EventService
	logger *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps a service error to an HTTP status and client message.
func statusFor(err error) (int, string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "event not found"
	case errors.Is(err, repository.ErrEventFull),
		errors.Is(err, repository.ErrAlreadyRegistered),
		errors.Is(err, repository.ErrNotRegistered),
		errors.Is(err, repository.ErrCapacityTooLow):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrEmailTaken), errors.Is(err, repository.ErrContention):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrFacultyOnly):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeError(w, status, msg)
}

// identity returns the caller set by Authenticate. Routes mounted without
// that middleware get a 401.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, service.ErrUnauthorized.Error())
	}
	return id, ok
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// createEventBody accepts the server-owned fields a client may echo back
// and discards them. The organizer is always the caller.
type createEventBody struct {
	model.CreateEventRequest
	ID           json.RawMessage `json:"id"`
	Organizer    json.RawMessage `json:"organizer"`
	Participants json.RawMessage `json:"participants"`
	CreatedAt    json.RawMessage `json:"createdAt"`
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var body createEventBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), caller, body.CreateEventRequest)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events, optionally narrowed by ?category=.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context(), model.EventFilter{
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ListFacultyEvents handles GET /events/faculty
func (h *EventHandler) ListFacultyEvents(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	events, err := h.svc.ListFacultyEvents(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ListRegistered handles GET /events/registered
func (h *EventHandler) ListRegistered(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	events, err := h.svc.ListRegistered(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /events/{id}. Fields outside the editable set are
// rejected by the decoder.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), chi.URLParam(r, "id"), caller, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id"), caller); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, "event deleted")
}

// Register handles POST /events/{id}/register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.svc.Register(r.Context(), chi.URLParam(r, "id"), caller); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, "registered for event")
}

// Unregister handles POST /events/{id}/unregister
func (h *EventHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.svc.Unregister(r.Context(), chi.URLParam(r, "id"), caller); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, "unregistered from event")
}

// ListParticipants handles GET /events/{id}/participants
func (h *EventHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	refs, err := h.svc.ListParticipants(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

// EventCalendar handles GET /events/{id}/calendar.ics
func (h *EventHandler) EventCalendar(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.writeCalendar(w, r, calendar.FileName(event.Title), []model.EventView{*event})
}

// RegisteredCalendar handles GET /events/registered/calendar.ics. A caller
// with no registrations gets a 404 since an empty calendar is not valid
// iCalendar.
func (h *EventHandler) RegisteredCalendar(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	events, err := h.svc.ListRegistered(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.writeCalendar(w, r, "my-events.ics", events)
}

func (h *EventHandler) writeCalendar(w http.ResponseWriter, r *http.Request, filename string, events []model.EventView) {
	var buf bytes.Buffer
	if err := calendar.Encode(&buf, events, time.Now()); err != nil {
		if errors.Is(err, calendar.ErrEmpty) {
			writeError(w, http.StatusNotFound, "no registered events")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Package api provides HTTP handlers for the reminder module.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brukd/attend/internal/reminder/domain"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
)

// Processor sends reminders on demand. *scheduler.Service implements it.
type Processor interface {
	ProcessDue(ctx context.Context) (int, error)
	ProcessOne(ctx context.Context, id types.ID) (*domain.ReminderEvent, error)
}

// Handler provides HTTP handlers for the reminder module
type Handler struct {
	repo      domain.Repository
	processor Processor
}

// NewHandler creates a new reminder handler
func NewHandler(repo domain.Repository, processor Processor) *Handler {
	return &Handler{repo: repo, processor: processor}
}

// Routes registers the reminder routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/stats", h.GetStats)
	r.Post("/process", h.ProcessReminders)
	r.Get("/appointment/{appointmentID}", h.ListByAppointment)

	r.Route("/{reminderID}", func(r chi.Router) {
		r.Get("/", h.GetReminder)
		r.Post("/send", h.SendReminder)
	})

	return r
}

// GetStats returns reminder outcome totals
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ProcessReminders triggers a due-reminder sweep
func (h *Handler) ProcessReminders(w http.ResponseWriter, r *http.Request) {
	processed, err := h.processor.ProcessDue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"processed": processed,
	})
}

// ListByAppointment returns all reminder events for an appointment
func (h *Handler) ListByAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := types.ParseID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid appointment ID"))
		return
	}

	events, err := h.repo.FindByAppointment(r.Context(), appointmentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  events,
		"total": len(events),
	})
}

// GetReminder returns one reminder event
func (h *Handler) GetReminder(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "reminderID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid reminder ID"))
		return
	}

	event, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// SendReminder sends one scheduled reminder immediately
func (h *Handler) SendReminder(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "reminderID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid reminder ID"))
		return
	}

	event, err := h.processor.ProcessOne(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}

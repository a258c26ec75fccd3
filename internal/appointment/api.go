package appointment

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for the appointment module
type Handler struct {
	service *Service
}

// NewHandler creates a new appointment handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the appointment routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{appointmentID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Get("/risk", h.Risk)
	})

	return r
}

// AnalyticsRoutes registers the analytics routes served under /api/analytics
func (h *Handler) AnalyticsRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/no-show-predictions", h.Predictions)
	r.Get("/dashboard-stats", h.Dashboard)

	return r
}

// List lists appointments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListAppointmentsFilter{}

	if v := r.URL.Query().Get("patient_id"); v != "" {
		id, err := types.ParseID(v)
		if err != nil {
			writeError(w, errors.BadRequest("invalid patient_id"))
			return
		}
		filter.PatientID = &id
	}
	if v := r.URL.Query().Get("clinic_id"); v != "" {
		id, err := types.ParseID(v)
		if err != nil {
			writeError(w, errors.BadRequest("invalid clinic_id"))
			return
		}
		filter.ClinicID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := AppointmentStatus(v)
		if !status.Valid() {
			writeError(w, errors.BadRequest("unknown appointment status: "+v))
			return
		}
		filter.Status = &status
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, errors.BadRequest("invalid from timestamp"))
			return
		}
		filter.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, errors.BadRequest("invalid to timestamp"))
			return
		}
		filter.To = &t
	}

	appointments, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  appointments,
		"total": total,
	})
}

// Get gets an appointment by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid appointment ID"))
		return
	}

	appt, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

// Create books a new appointment
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.PatientID == "" || req.ClinicID == "" || req.ScheduledTime.IsZero() || req.AppointmentType == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"patient_id":       "patient_id is required",
			"clinic_id":        "clinic_id is required",
			"scheduled_time":   "scheduled_time is required",
			"appointment_type": "appointment_type is required",
		}))
		return
	}

	result, err := h.service.Book(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Update updates an appointment's time, status, duration or notes
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid appointment ID"))
		return
	}

	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	appt, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

// Risk returns the current no-show assessment for one appointment
func (h *Handler) Risk(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid appointment ID"))
		return
	}

	assessment, err := h.service.Assess(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assessment)
}

// Predictions reports risk for every upcoming scheduled appointment
func (h *Handler) Predictions(w http.ResponseWriter, r *http.Request) {
	predictions, err := h.service.Predictions(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"predictions": predictions,
		"count":       len(predictions),
	})
}

// Dashboard reports aggregate clinic activity
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
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

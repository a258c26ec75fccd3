package privacy

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/brukd/attend/internal/shared/auth"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/events"
	"github.com/brukd/attend/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for the privacy module
type Handler struct {
	service *Service
	bus     *events.Bus
	devMode bool
}

// NewHandler creates a new privacy handler
func NewHandler(service *Service, bus *events.Bus) *Handler {
	env := os.Getenv("ENV")
	devMode := env == "" || env == "development" || env == "dev"

	return &Handler{service: service, bus: bus, devMode: devMode}
}

// Routes registers the privacy routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/retention", h.CheckRetention)
	r.Get("/export/{patientID}", h.ExportPatientData)

	return r
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if h.devMode {
		return true
	}
	user := auth.GetUser(r.Context())
	if user == nil || !user.IsAdmin() {
		writeError(w, errors.Forbidden("admin access required"))
		return false
	}
	return true
}

// CheckRetention reports records past the retention window
func (h *Handler) CheckRetention(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	report, err := h.service.CheckRetention(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ExportPatientData exports everything stored about a patient
func (h *Handler) ExportPatientData(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	export, err := h.service.ExportPatientData(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Exports are sensitive data access and must leave an audit trace
	if h.bus != nil {
		user := auth.GetUser(r.Context())
		actorID := types.ID("")
		clinicID := types.ID("")
		if user != nil {
			actorID = user.ID
			clinicID = user.ClinicID
		}

		event := events.NewEvent("patient.data_exported", "privacy", map[string]any{
			"patient_id": id,
		}).WithActor(actorID, "staff", clinicID)

		h.bus.Publish(r.Context(), event)
	}

	writeJSON(w, http.StatusOK, export)
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

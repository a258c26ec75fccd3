package patient

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/brukd/attend/internal/shared/auth"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/events"
	"github.com/brukd/attend/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for the patient module
type Handler struct {
	repo *Repository
	bus  *events.Bus
}

// NewHandler creates a new patient handler
func NewHandler(repo *Repository, bus *events.Bus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes registers the patient routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{patientID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})

	return r
}

// List lists patients
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListPatientsFilter{
		Search: r.URL.Query().Get("search"),
	}

	if c := r.URL.Query().Get("consent_given"); c != "" {
		consent := c == "true"
		filter.ConsentGiven = &consent
	}

	patients, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  patients,
		"total": total,
	})
}

// Get gets a patient by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Create registers a new patient
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	// Validate request
	if req.Name == "" || req.Email == "" || req.Phone == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"name":  "name is required",
			"email": "email is required",
			"phone": "phone is required",
		}))
		return
	}

	var mrn types.MRN
	if req.MRN != "" {
		parsed, err := types.ParseMRN(req.MRN)
		if err != nil {
			writeError(w, errors.BadRequest("invalid MRN"))
			return
		}
		mrn = parsed
	}

	p := &Patient{
		ID:               types.NewID(),
		MRN:              mrn,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		DateOfBirth:      req.DateOfBirth,
		EmergencyContact: req.EmergencyContact,
		MedicalNotes:     req.MedicalNotes,
		ConsentGiven:     req.ConsentGiven,
	}

	if req.ConsentGiven {
		now := time.Now().UTC()
		p.ConsentDate = &now
	}

	if err := h.repo.Create(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	// Publish event
	if h.bus != nil {
		user := auth.GetUser(r.Context())
		actorID := types.ID("")
		clinicID := types.ID("")
		if user != nil {
			actorID = user.ID
			clinicID = user.ClinicID
		}

		event := events.NewEvent("patient.created", "patient", map[string]any{
			"patient_id":    p.ID,
			"consent_given": p.ConsentGiven,
		}).WithActor(actorID, "staff", clinicID)

		h.bus.Publish(r.Context(), event)
	}

	writeJSON(w, http.StatusCreated, p)
}

// Update updates a patient
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	// Apply updates
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.DateOfBirth != nil {
		p.DateOfBirth = req.DateOfBirth
	}
	if req.EmergencyContact != nil {
		p.EmergencyContact = *req.EmergencyContact
	}
	if req.MedicalNotes != nil {
		p.MedicalNotes = *req.MedicalNotes
	}
	if req.ConsentGiven != nil && *req.ConsentGiven != p.ConsentGiven {
		p.ConsentGiven = *req.ConsentGiven
		if p.ConsentGiven {
			now := time.Now().UTC()
			p.ConsentDate = &now
		} else {
			p.ConsentDate = nil
		}
	}

	if err := h.repo.Update(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Delete soft-deletes a patient. Deletion requires recorded consent,
// without it the request is rejected with 403.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if !p.ConsentGiven {
		writeError(w, errors.Forbidden("patient consent required for deletion"))
		return
	}

	if err := h.repo.SoftDelete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	// Publish event
	if h.bus != nil {
		user := auth.GetUser(r.Context())
		actorID := types.ID("")
		clinicID := types.ID("")
		if user != nil {
			actorID = user.ID
			clinicID = user.ClinicID
		}

		event := events.NewEvent("patient.deleted", "patient", map[string]any{
			"patient_id": id,
		}).WithActor(actorID, "staff", clinicID)

		h.bus.Publish(r.Context(), event)
	}

	w.WriteHeader(http.StatusNoContent)
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

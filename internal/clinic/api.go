package clinic

import (
	"encoding/json"
	"net/http"

	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for the clinic module
type Handler struct {
	repo *Repository
}

// NewHandler creates a new clinic handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes registers the clinic routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{clinicID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})

	return r
}

// List lists clinics
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListClinicsFilter{
		Specialty: r.URL.Query().Get("specialty"),
		Search:    r.URL.Query().Get("search"),
	}

	clinics, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  clinics,
		"total": total,
	})
}

// Get gets a clinic by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "clinicID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid clinic ID"))
		return
	}

	c, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// Create creates a new clinic
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateClinicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Name == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"name": "name is required",
		}))
		return
	}

	c := &Clinic{
		ID:             types.NewID(),
		Name:           req.Name,
		Address:        req.Address,
		Phone:          req.Phone,
		Email:          req.Email,
		Specialties:    req.Specialties,
		OperatingHours: req.OperatingHours,
	}

	if err := h.repo.Create(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// Update updates a clinic
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "clinicID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid clinic ID"))
		return
	}

	c, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdateClinicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	// Apply updates
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Address != nil {
		c.Address = *req.Address
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	if req.Email != nil {
		c.Email = *req.Email
	}
	if req.Specialties != nil {
		c.Specialties = *req.Specialties
	}
	if req.OperatingHours != nil {
		c.OperatingHours = *req.OperatingHours
	}

	if err := h.repo.Update(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// Delete deletes a clinic
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "clinicID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid clinic ID"))
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
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

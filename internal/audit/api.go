package audit

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/brukd/attend/internal/shared/auth"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for the audit module
type Handler struct {
	repo    *Repository
	devMode bool
}

// NewHandler creates a new audit handler
func NewHandler(repo *Repository) *Handler {
	env := os.Getenv("ENV")
	devMode := env == "" || env == "development" || env == "dev"

	return &Handler{
		repo:    repo,
		devMode: devMode,
	}
}

// Routes registers the audit routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Admin-only endpoints
	r.Get("/", h.ListEntries)
	r.Get("/verify", h.VerifyChain)
	r.Get("/resource/{resourceType}/{resourceID}", h.GetByResource)

	// Entry by ID (must be after /verify to avoid conflicts)
	r.Get("/{entryID}", h.GetEntry)

	return r
}

// requireAdmin gates audit access to admins outside dev mode
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

// ListEntries lists audit entries with filters
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	filter := ListEntriesFilter{}

	if actorID := r.URL.Query().Get("actor_id"); actorID != "" {
		id, err := types.ParseID(actorID)
		if err == nil {
			filter.ActorID = &id
		}
	}

	if actorType := r.URL.Query().Get("actor_type"); actorType != "" {
		at := ActorType(actorType)
		filter.ActorType = &at
	}

	if action := r.URL.Query().Get("action"); action != "" {
		filter.Action = action
	}

	if resourceType := r.URL.Query().Get("resource_type"); resourceType != "" {
		filter.ResourceType = resourceType
	}

	if resourceID := r.URL.Query().Get("resource_id"); resourceID != "" {
		id, err := types.ParseID(resourceID)
		if err == nil {
			filter.ResourceID = &id
		}
	}

	if startTime := r.URL.Query().Get("start_time"); startTime != "" {
		t, err := time.Parse(time.RFC3339, startTime)
		if err == nil {
			filter.StartTime = &t
		}
	}

	if endTime := r.URL.Query().Get("end_time"); endTime != "" {
		t, err := time.Parse(time.RFC3339, endTime)
		if err == nil {
			filter.EndTime = &t
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			filter.Limit = l
		}
	}

	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			filter.Offset = o
		}
	}

	entries, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  entries,
		"total": total,
	})
}

// GetEntry gets an audit entry by ID
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid entry ID"))
		return
	}

	entry, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// VerifyChain verifies the integrity of the audit chain
func (h *Handler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	includeDetails := r.URL.Query().Get("details") == "true"

	result, err := h.repo.VerifyChain(r.Context(), limit, includeDetails)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetByResource gets audit entries for a specific resource
func (h *Handler) GetByResource(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	resourceType := chi.URLParam(r, "resourceType")
	resourceID, err := types.ParseID(chi.URLParam(r, "resourceID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid resource ID"))
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.repo.GetByResource(r.Context(), resourceType, resourceID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  entries,
		"total": len(entries),
	})
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

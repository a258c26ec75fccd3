package risk

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/events"
)

// SampleSource supplies labeled samples assembled from recorded
// appointment outcomes. The booking service implements it.
type SampleSource interface {
	TrainingSamples(ctx context.Context) ([]Sample, error)
}

// Handler provides HTTP handlers for model operations
type Handler struct {
	service          *Service
	source           SampleSource
	retrainThreshold int
	bus              *events.Bus
}

// NewHandler creates a new model operations handler. source may be nil,
// in which case training always uses the synthetic bootstrap dataset.
func NewHandler(service *Service, source SampleSource, retrainThreshold int, bus *events.Bus) *Handler {
	return &Handler{
		service:          service,
		source:           source,
		retrainThreshold: retrainThreshold,
		bus:              bus,
	}
}

// Routes registers the model operation routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/train", h.Train)
	r.Get("/model", h.GetModel)

	return r
}

// trainRequest tunes a training run. synthetic forces the bootstrap
// dataset even when enough stored outcomes exist.
type trainRequest struct {
	SyntheticSamples int  `json:"synthetic_samples"`
	Synthetic        bool `json:"synthetic"`
}

// Train retrains the model. Stored appointment outcomes are preferred;
// when too few exist to train on, the synthetic bootstrap dataset is
// used instead.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if req.SyntheticSamples < 0 {
		writeError(w, errors.Validation("synthetic_samples must not be negative", nil))
		return
	}

	result, source := h.train(r.Context(), req)
	if !result.Success {
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}

	if h.bus != nil {
		event := events.NewEvent("model.trained", "risk", map[string]any{
			"accuracy":         result.Accuracy,
			"training_samples": result.TrainingSamples,
			"data_source":      source,
		})
		h.bus.Publish(r.Context(), event)
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) train(ctx context.Context, req trainRequest) (TrainingResult, string) {
	if h.source != nil && !req.Synthetic {
		samples, err := h.source.TrainingSamples(ctx)
		if err != nil {
			log.Printf("Failed to load stored outcomes, falling back to synthetic data: %v", err)
		} else if len(samples) >= h.retrainThreshold {
			return h.service.Train(samples), "outcomes"
		} else {
			log.Printf("Only %d stored outcomes (threshold %d), training on synthetic data",
				len(samples), h.retrainThreshold)
		}
	}

	return h.service.TrainSynthetic(req.SyntheticSamples), "synthetic"
}

// GetModel returns the deployed model's status and feature importances
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ModelInfo())
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

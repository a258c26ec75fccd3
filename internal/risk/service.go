package risk

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brukd/attend/internal/shared/config"
	"github.com/brukd/attend/internal/shared/metrics"
)

// evaluationFraction of the dataset is held out for accuracy reporting.
const evaluationFraction = 0.2

// TrainingResult reports the outcome of one training run. A failed run
// carries Error and leaves the previously deployed artifact untouched.
type TrainingResult struct {
	Success           bool               `json:"success"`
	Accuracy          float64            `json:"accuracy,omitempty"`
	TrainingSamples   int                `json:"training_samples,omitempty"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// ModelInfo describes the currently deployed artifact.
type ModelInfo struct {
	Status            string             `json:"status"`
	Message           string             `json:"message,omitempty"`
	ModelType         string             `json:"model_type,omitempty"`
	FeatureCount      int                `json:"feature_count,omitempty"`
	TrainedAt         *time.Time         `json:"trained_at,omitempty"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
}

// Service owns the deployed model artifact and exposes risk assessment and
// training. Predictions read the artifact through an atomic pointer, so a
// retrain never exposes a half-replaced model; readers keep the prior
// artifact until the swap completes.
type Service struct {
	artifact atomic.Pointer[Artifact]
	store    *FileStore

	// trainMu serializes training runs; it is never taken on the
	// prediction path.
	trainMu sync.Mutex

	extractor        *Extractor
	params           ForestParams
	syntheticSamples int
}

// NewService creates the risk service from model configuration.
func NewService(cfg config.ModelConfig) *Service {
	return &Service{
		store:            NewFileStore(cfg.Path),
		extractor:        NewExtractor(cfg.AppointmentTypes),
		params:           DefaultForestParams(),
		syntheticSamples: cfg.SyntheticSamples,
	}
}

// SetForestParams overrides the ensemble hyperparameters. Intended for
// tests; production uses the defaults.
func (s *Service) SetForestParams(params ForestParams) {
	s.params = params
}

// Load restores a previously persisted artifact. Starting without one is
// fine; predictions fall back until the first training run.
func (s *Service) Load() error {
	artifact, err := s.store.Load()
	if err != nil {
		return err
	}
	if artifact != nil {
		s.artifact.Store(artifact)
	}
	return nil
}

// Loaded reports whether an artifact is currently deployed.
func (s *Service) Loaded() bool {
	return s.artifact.Load() != nil
}

// Assess predicts the no-show risk for one appointment. It never fails:
// with no artifact, or on any prediction error, it returns the fixed
// fallback assessment so booking is never blocked by the model.
func (s *Service) Assess(appt Input, history History) Assessment {
	artifact := s.artifact.Load()
	if artifact == nil {
		metrics.RecordPrediction(string(TierMedium), true)
		return Fallback()
	}

	fv := artifact.extractor().Extract(appt, history)
	probability, err := artifact.predict(fv)
	if err != nil {
		metrics.RecordPrediction(string(TierMedium), true)
		return Fallback()
	}

	assessment := Classify(round3(probability))
	metrics.RecordPrediction(string(assessment.Tier), false)
	return assessment
}

// BuildSample assembles a labeled training example from a recorded outcome,
// using the configured vocabularies that the next artifact will freeze.
func (s *Service) BuildSample(appt Input, history History, noShow bool) Sample {
	label := 0
	if noShow {
		label = 1
	}
	return Sample{Features: s.extractor.Extract(appt, history), Label: label}
}

// Train fits a new artifact from labeled samples: stratified 80/20 split,
// scaler fitted on the training partition only, bagged tree ensemble, and
// accuracy plus feature importances from the held-out partition. On success
// the artifact is persisted and swapped in atomically. Failure is scoped to
// this run; the previous artifact stays deployed.
func (s *Service) Train(samples []Sample) TrainingResult {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	start := time.Now()
	result := s.train(samples)
	metrics.RecordTrainingRun(result.Success, time.Since(start))
	return result
}

func (s *Service) train(samples []Sample) TrainingResult {
	if len(samples) == 0 {
		return TrainingResult{Success: false, Error: "training dataset is empty"}
	}

	rng := rand.New(rand.NewSource(s.params.Seed))
	trainSet, testSet := stratifiedSplit(samples, evaluationFraction, rng)
	if len(trainSet) == 0 {
		return TrainingResult{Success: false, Error: "training partition is empty after split"}
	}

	scaler := FitScaler(trainSet)
	scaled := make([]Sample, len(trainSet))
	for i, sample := range trainSet {
		scaled[i] = Sample{Features: scaler.Transform(sample.Features), Label: sample.Label}
	}

	forest, err := TrainForest(scaled, s.params)
	if err != nil {
		return TrainingResult{Success: false, Error: fmt.Sprintf("fit failed: %v", err)}
	}

	accuracy := evaluateAccuracy(forest, scaler, testSet)

	importance := make(map[string]float64, FeatureCount)
	for i, col := range FeatureColumns {
		importance[col] = forest.FeatureImportance[i]
	}

	artifact := &Artifact{
		Forest:            forest,
		Scaler:            scaler,
		AppointmentTypes:  s.extractor.AppointmentTypes,
		WeatherConditions: s.extractor.WeatherConditions,
		TrainedAt:         time.Now().UTC(),
		FeatureColumns:    FeatureColumns,
		FeatureImportance: importance,
	}

	// A persist failure must not discard a valid in-memory model; the
	// next successful run will overwrite the artifact on disk.
	if err := s.store.Save(artifact); err != nil {
		log.Printf("Failed to persist model artifact: %v", err)
	}

	s.artifact.Store(artifact)

	return TrainingResult{
		Success:           true,
		Accuracy:          accuracy,
		TrainingSamples:   len(samples),
		FeatureImportance: importance,
	}
}

// TrainSynthetic bootstraps the model from the deterministic synthetic
// dataset, used when too few real outcomes are recorded.
func (s *Service) TrainSynthetic(n int) TrainingResult {
	if n <= 0 {
		n = s.syntheticSamples
	}
	return s.Train(SyntheticDataset(n, SyntheticSeed))
}

// ModelInfo reports the deployed artifact's status and importances.
func (s *Service) ModelInfo() ModelInfo {
	artifact := s.artifact.Load()
	if artifact == nil {
		return ModelInfo{
			Status:  "no_model",
			Message: "No model is currently loaded",
		}
	}

	trainedAt := artifact.TrainedAt
	return ModelInfo{
		Status:            "loaded",
		ModelType:         "random_forest",
		FeatureCount:      len(artifact.FeatureColumns),
		TrainedAt:         &trainedAt,
		FeatureImportance: artifact.FeatureImportance,
	}
}

// evaluateAccuracy scores the ensemble on the held-out partition at the 0.5
// decision threshold. An empty partition yields 0.
func evaluateAccuracy(forest *Forest, scaler *Scaler, testSet []Sample) float64 {
	if len(testSet) == 0 {
		return 0
	}
	correct := 0
	for _, sample := range testSet {
		predicted := 0
		if forest.Proba(scaler.Transform(sample.Features)) >= 0.5 {
			predicted = 1
		}
		if predicted == sample.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(testSet))
}

// round3 rounds to three decimals, the precision reported to callers.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

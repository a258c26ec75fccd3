package risk

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Scaler standardizes features to zero mean and unit variance using
// statistics computed from the training partition only.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-feature mean and standard deviation.
func FitScaler(samples []Sample) *Scaler {
	scaler := &Scaler{
		Mean: make([]float64, FeatureCount),
		Std:  make([]float64, FeatureCount),
	}
	if len(samples) == 0 {
		for i := range scaler.Std {
			scaler.Std[i] = 1
		}
		return scaler
	}

	n := float64(len(samples))
	for _, s := range samples {
		for i, v := range s.Features {
			scaler.Mean[i] += v
		}
	}
	for i := range scaler.Mean {
		scaler.Mean[i] /= n
	}

	for _, s := range samples {
		for i, v := range s.Features {
			d := v - scaler.Mean[i]
			scaler.Std[i] += d * d
		}
	}
	for i := range scaler.Std {
		scaler.Std[i] = math.Sqrt(scaler.Std[i] / n)
		// A constant feature scales by 1 so it passes through centered.
		if scaler.Std[i] == 0 {
			scaler.Std[i] = 1
		}
	}

	return scaler
}

// Transform standardizes one vector with the fitted statistics.
func (s *Scaler) Transform(fv FeatureVector) FeatureVector {
	var out FeatureVector
	for i, v := range fv {
		out[i] = (v - s.Mean[i]) / s.Std[i]
	}
	return out
}

// Artifact is the deployable bundle produced by a training run: the fitted
// ensemble, the frozen scaler statistics and vocabularies, and training
// metadata. In-flight predictions always read one consistent artifact; a
// retrain swaps the whole bundle atomically, never mutates it in place.
type Artifact struct {
	Forest            *Forest    `json:"forest"`
	Scaler            *Scaler    `json:"scaler"`
	AppointmentTypes  Vocabulary `json:"appointment_types"`
	WeatherConditions Vocabulary `json:"weather_conditions"`
	TrainedAt         time.Time  `json:"trained_at"`
	FeatureColumns    []string   `json:"feature_columns"`

	FeatureImportance map[string]float64 `json:"feature_importance"`
}

// extractor rebuilds the feature extractor from the frozen vocabularies.
func (a *Artifact) extractor() *Extractor {
	return &Extractor{
		AppointmentTypes:  a.AppointmentTypes,
		WeatherConditions: a.WeatherConditions,
	}
}

// predict standardizes the vector and runs the ensemble.
func (a *Artifact) predict(fv FeatureVector) (float64, error) {
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return 0, fmt.Errorf("artifact has no fitted ensemble")
	}
	if a.Scaler == nil || len(a.Scaler.Mean) != FeatureCount || len(a.Scaler.Std) != FeatureCount {
		return 0, fmt.Errorf("artifact scaler does not match the feature schema")
	}
	return a.Forest.Proba(a.Scaler.Transform(fv)), nil
}

// stratifiedSplit shuffles and partitions the dataset so both partitions
// preserve the label ratio. testFrac of each class goes to the evaluation
// partition.
func stratifiedSplit(samples []Sample, testFrac float64, rng *rand.Rand) (train, test []Sample) {
	byLabel := map[int][]int{}
	for i, s := range samples {
		byLabel[s.Label] = append(byLabel[s.Label], i)
	}

	train = make([]Sample, 0, len(samples))
	test = make([]Sample, 0, len(samples))

	for _, label := range []int{0, 1} {
		indices := byLabel[label]
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		nTest := int(float64(len(indices)) * testFrac)
		for i, idx := range indices {
			if i < nTest {
				test = append(test, samples[idx])
			} else {
				train = append(train, samples[idx])
			}
		}
	}

	return train, test
}

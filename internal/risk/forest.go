package risk

import (
	"fmt"
	"math"
	"math/rand"
)

// ForestParams are the ensemble hyperparameters.
type ForestParams struct {
	Trees           int   `json:"trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"seed"`
}

// DefaultForestParams returns the production ensemble settings.
func DefaultForestParams() ForestParams {
	return ForestParams{
		Trees:           100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		Seed:            42,
	}
}

// Forest is a bagged ensemble of depth-limited decision trees. No-shows are
// the minority class, so samples carry balanced class weights during fit.
type Forest struct {
	Trees             []*Tree   `json:"trees"`
	FeatureImportance []float64 `json:"feature_importance"`
}

// TrainForest fits the ensemble on the (already standardized) samples.
func TrainForest(samples []Sample, params ForestParams) (*Forest, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty training set")
	}
	if params.Trees <= 0 {
		return nil, fmt.Errorf("tree count must be positive, got %d", params.Trees)
	}

	weights := balancedWeights(samples)
	rng := rand.New(rand.NewSource(params.Seed))
	mtry := int(math.Sqrt(float64(FeatureCount)))
	if mtry < 1 {
		mtry = 1
	}

	forest := &Forest{
		Trees:             make([]*Tree, 0, params.Trees),
		FeatureImportance: make([]float64, FeatureCount),
	}

	for t := 0; t < params.Trees; t++ {
		indices := bootstrapIndices(rng, len(samples))

		builder := &treeBuilder{
			samples:    samples,
			weights:    weights,
			params:     params,
			rng:        rng,
			mtry:       mtry,
			importance: make([]float64, FeatureCount),
		}
		root := builder.grow(indices, 0)
		forest.Trees = append(forest.Trees, &Tree{Root: root})

		// Average per-tree normalized importances across the ensemble.
		var total float64
		for _, imp := range builder.importance {
			total += imp
		}
		if total > 0 {
			for i, imp := range builder.importance {
				forest.FeatureImportance[i] += imp / total
			}
		}
	}

	var total float64
	for _, imp := range forest.FeatureImportance {
		total += imp
	}
	if total > 0 {
		for i := range forest.FeatureImportance {
			forest.FeatureImportance[i] /= total
		}
	}

	return forest, nil
}

// Proba returns the ensemble no-show probability, the mean of the per-tree
// leaf probabilities.
func (f *Forest) Proba(fv FeatureVector) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, tree := range f.Trees {
		sum += tree.Proba(fv)
	}
	return sum / float64(len(f.Trees))
}

// balancedWeights assigns each sample n/(classes*count(class)) so the
// minority class carries proportionally more weight.
func balancedWeights(samples []Sample) []float64 {
	counts := [2]int{}
	for _, s := range samples {
		if s.Label == 1 {
			counts[1]++
		} else {
			counts[0]++
		}
	}

	classes := 0
	for _, c := range counts {
		if c > 0 {
			classes++
		}
	}

	classWeight := [2]float64{1, 1}
	for label, c := range counts {
		if c > 0 {
			classWeight[label] = float64(len(samples)) / float64(classes*c)
		}
	}

	weights := make([]float64, len(samples))
	for i, s := range samples {
		if s.Label == 1 {
			weights[i] = classWeight[1]
		} else {
			weights[i] = classWeight[0]
		}
	}
	return weights
}

// bootstrapIndices draws n indices with replacement.
func bootstrapIndices(rng *rand.Rand, n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = rng.Intn(n)
	}
	return indices
}

package risk

import (
	"math/rand"
	"sort"
)

// TreeNode is one node of a fitted decision tree. Internal nodes carry a
// feature index and threshold; leaves carry the weighted no-show fraction.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
	Prob      float64   `json:"prob"`
}

// Tree is one depth-limited CART classifier trained on a bootstrap sample.
type Tree struct {
	Root *TreeNode `json:"root"`
}

// Proba returns the tree's no-show probability for a feature vector.
func (t *Tree) Proba(fv FeatureVector) float64 {
	node := t.Root
	for node.Left != nil {
		if fv[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Prob
}

// treeBuilder grows a single tree with weighted gini splits.
type treeBuilder struct {
	samples []Sample
	weights []float64
	params  ForestParams
	rng     *rand.Rand
	mtry    int

	// impurity decrease accumulated per feature while growing
	importance []float64
}

// grow recursively builds the subtree over the given sample indices.
func (b *treeBuilder) grow(indices []int, depth int) *TreeNode {
	var wTotal, wPos float64
	for _, idx := range indices {
		wTotal += b.weights[idx]
		if b.samples[idx].Label == 1 {
			wPos += b.weights[idx]
		}
	}

	prob := 0.0
	if wTotal > 0 {
		prob = wPos / wTotal
	}
	leaf := &TreeNode{Prob: prob}

	if depth >= b.params.MaxDepth || len(indices) < b.params.MinSamplesSplit {
		return leaf
	}
	if wPos == 0 || wPos == wTotal {
		return leaf
	}

	split, ok := b.bestSplit(indices, wTotal, wPos)
	if !ok {
		return leaf
	}

	b.importance[split.feature] += split.decrease

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, idx := range indices {
		if b.samples[idx].Features[split.feature] <= split.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	return &TreeNode{
		Feature:   split.feature,
		Threshold: split.threshold,
		Left:      b.grow(left, depth+1),
		Right:     b.grow(right, depth+1),
	}
}

type splitCandidate struct {
	feature   int
	threshold float64
	decrease  float64 // weighted impurity decrease, for importances
}

// bestSplit searches a random feature subset for the split with the highest
// gini gain, honoring the minimum leaf size on both sides.
func (b *treeBuilder) bestSplit(indices []int, wTotal, wPos float64) (splitCandidate, bool) {
	parentGini := giniImpurity(wPos, wTotal)

	var best splitCandidate
	bestGain := 1e-12
	found := false

	for _, feature := range b.rng.Perm(FeatureCount)[:b.mtry] {
		ordered := make([]int, len(indices))
		copy(ordered, indices)
		sort.Slice(ordered, func(i, j int) bool {
			return b.samples[ordered[i]].Features[feature] < b.samples[ordered[j]].Features[feature]
		})

		var wLeft, wPosLeft float64
		for i := 0; i < len(ordered)-1; i++ {
			idx := ordered[i]
			wLeft += b.weights[idx]
			if b.samples[idx].Label == 1 {
				wPosLeft += b.weights[idx]
			}

			value := b.samples[idx].Features[feature]
			next := b.samples[ordered[i+1]].Features[feature]
			if value == next {
				continue
			}
			if i+1 < b.params.MinSamplesLeaf || len(ordered)-(i+1) < b.params.MinSamplesLeaf {
				continue
			}

			wRight := wTotal - wLeft
			wPosRight := wPos - wPosLeft
			leftGini := giniImpurity(wPosLeft, wLeft)
			rightGini := giniImpurity(wPosRight, wRight)

			gain := parentGini - (wLeft/wTotal)*leftGini - (wRight/wTotal)*rightGini
			if gain > bestGain {
				bestGain = gain
				best = splitCandidate{
					feature:   feature,
					threshold: (value + next) / 2,
					decrease:  wTotal*parentGini - wLeft*leftGini - wRight*rightGini,
				}
				found = true
			}
		}
	}

	return best, found
}

// giniImpurity is the binary gini 1 - p1^2 - p0^2 over weighted counts.
func giniImpurity(wPos, wTotal float64) float64 {
	if wTotal <= 0 {
		return 0
	}
	p := wPos / wTotal
	return 1 - p*p - (1-p)*(1-p)
}

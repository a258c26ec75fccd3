package risk

// Tier is the discrete risk bucket driving reminder intensity.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Tier thresholds. Boundaries are half-open on the lower bound: exactly
// 0.10 is medium and exactly 0.25 is high.
const (
	mediumThreshold = 0.10
	highThreshold   = 0.25
)

// FallbackProbability is returned whenever no artifact is loaded or a
// prediction fails. Risk scoring is advisory; booking never blocks on it.
const FallbackProbability = 0.15

// Assessment is the outcome of one risk prediction. Immutable once returned.
type Assessment struct {
	Probability        float64  `json:"probability"`
	Tier               Tier     `json:"risk_level"`
	RecommendedActions []string `json:"recommended_actions"`
}

// Classify maps a no-show probability to a tier and its action list.
func Classify(probability float64) Assessment {
	switch {
	case probability < mediumThreshold:
		return Assessment{
			Probability: probability,
			Tier:        TierLow,
			RecommendedActions: []string{
				"Standard reminder 24 hours before",
			},
		}
	case probability < highThreshold:
		return Assessment{
			Probability: probability,
			Tier:        TierMedium,
			RecommendedActions: []string{
				"Send reminder 48 hours before",
				"Confirm appointment day before",
			},
		}
	default:
		return Assessment{
			Probability: probability,
			Tier:        TierHigh,
			RecommendedActions: []string{
				"Send reminder 72 hours before",
				"Confirm appointment 2 days before",
				"Send final reminder day before",
				"Consider calling patient directly",
			},
		}
	}
}

// Fallback is the assessment used when no model is available.
func Fallback() Assessment {
	return Classify(FallbackProbability)
}

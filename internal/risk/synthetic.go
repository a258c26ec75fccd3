package risk

import (
	"math"
	"math/rand"
)

// SyntheticSeed makes bootstrap datasets reproducible across deployments.
const SyntheticSeed = 42

// SyntheticDataset generates a labeled bootstrap dataset for environments
// with too few recorded outcomes to train on. Feature distributions and the
// label model approximate observed clinic patterns: most bookings are made
// within two days, afternoons peak around 2 PM, and the no-show base rate
// sits near 10% with bumps for repeat offenders, long lead times, weekends
// and edge-of-day slots.
func SyntheticDataset(n int, seed int64) []Sample {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]Sample, n)

	for i := range samples {
		var fv FeatureVector
		fv[0] = rng.ExpFloat64() * 48                // booking_lead_time_hours
		fv[1] = float64(rng.Intn(7))                 // day_of_week
		fv[2] = rng.NormFloat64()*4 + 14             // time_of_day
		fv[3] = float64(poisson(rng, 0.5))           // previous_no_shows
		fv[4] = rng.ExpFloat64() * 2                 // appointment_frequency
		fv[5] = float64(rng.Intn(4))                 // appointment_type_encoded
		fv[6] = float64(rng.Intn(5))                 // weather_condition_encoded
		fv[7] = float64(1 + rng.Intn(12))            // month
		fv[8] = float64(rng.Intn(2))                 // is_weekend

		prob := 0.1
		if fv[3] > 2 {
			prob += 0.05
		}
		if fv[0] > 168 {
			prob += 0.03
		}
		if fv[8] == 1 {
			prob += 0.02
		}
		if fv[2] < 9 {
			prob += 0.01
		}
		if fv[2] > 17 {
			prob += 0.01
		}
		prob += rng.NormFloat64() * 0.02
		prob = math.Max(0, math.Min(1, prob))

		label := 0
		if rng.Float64() < prob {
			label = 1
		}

		samples[i] = Sample{Features: fv, Label: label}
	}

	return samples
}

// poisson draws from Poisson(lambda) via Knuth's method. Lambda stays small
// here so the loop is short.
func poisson(rng *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

package risk

import "testing"

// TestSyntheticDatasetShape tests sizes and value ranges of the bootstrap
// dataset
func TestSyntheticDatasetShape(t *testing.T) {
	samples := SyntheticDataset(1000, SyntheticSeed)

	if len(samples) != 1000 {
		t.Fatalf("Expected 1000 samples, got %d", len(samples))
	}

	noShows := 0
	for i, s := range samples {
		fv := s.Features
		if s.Label != 0 && s.Label != 1 {
			t.Fatalf("Expected binary label for sample %d, got %d", i, s.Label)
		}
		if s.Label == 1 {
			noShows++
		}
		if fv[0] < 0 {
			t.Errorf("Expected non-negative lead time for sample %d, got %v", i, fv[0])
		}
		if fv[1] < 0 || fv[1] > 6 {
			t.Errorf("Expected day_of_week in [0,6] for sample %d, got %v", i, fv[1])
		}
		if fv[3] < 0 {
			t.Errorf("Expected non-negative no-show count for sample %d, got %v", i, fv[3])
		}
		if fv[7] < 1 || fv[7] > 12 {
			t.Errorf("Expected month in [1,12] for sample %d, got %v", i, fv[7])
		}
		if fv[8] != 0 && fv[8] != 1 {
			t.Errorf("Expected binary is_weekend for sample %d, got %v", i, fv[8])
		}
	}

	// The label model centers around a ~10-15% base rate
	rate := float64(noShows) / float64(len(samples))
	if rate < 0.05 || rate > 0.30 {
		t.Errorf("Expected no-show rate between 5%% and 30%%, got %v", rate)
	}
}

// TestSyntheticDatasetDeterministic tests seed-stable generation
func TestSyntheticDatasetDeterministic(t *testing.T) {
	first := SyntheticDataset(50, SyntheticSeed)
	second := SyntheticDataset(50, SyntheticSeed)

	for i := range first {
		if first[i].Features != second[i].Features || first[i].Label != second[i].Label {
			t.Fatalf("Expected identical samples at index %d", i)
		}
	}

	other := SyntheticDataset(50, 7)
	same := true
	for i := range first {
		if first[i].Features != other[i].Features {
			same = false
			break
		}
	}
	if same {
		t.Error("Expected a different seed to produce different samples")
	}
}

package risk

import (
	"testing"
	"time"
)

var testAppointmentTypes = []string{
	"consultation", "follow_up", "treatment", "emergency",
	"checkup", "therapy", "surgery",
}

// TestExtractFeatureVector tests extraction of a fully populated appointment
func TestExtractFeatureVector(t *testing.T) {
	extractor := NewExtractor(testAppointmentTypes)

	// Wednesday March 12 2025, 14:30, booked exactly two days earlier
	scheduled := time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)
	appt := Input{
		ScheduledTime:    scheduled,
		CreatedTime:      scheduled.Add(-48 * time.Hour),
		AppointmentType:  "treatment",
		WeatherCondition: "rainy",
	}
	history := History{PreviousNoShows: 2, AppointmentFrequency: 1.5}

	fv := extractor.Extract(appt, history)

	expected := FeatureVector{48, 2, 14.5, 2, 1.5, 2, 1, 3, 0}
	for i, want := range expected {
		if fv[i] != want {
			t.Errorf("Expected %s = %v, got %v", FeatureColumns[i], want, fv[i])
		}
	}
}

// TestExtractDeterministic tests that identical inputs yield identical vectors
func TestExtractDeterministic(t *testing.T) {
	extractor := NewExtractor(testAppointmentTypes)

	appt := Input{
		ScheduledTime:    time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC),
		CreatedTime:      time.Date(2025, 5, 30, 11, 0, 0, 0, time.UTC),
		AppointmentType:  "checkup",
		WeatherCondition: "sunny",
	}
	history := History{PreviousNoShows: 1, AppointmentFrequency: 0.5}

	first := extractor.Extract(appt, history)
	second := extractor.Extract(appt, history)

	if first != second {
		t.Errorf("Expected identical vectors, got %v and %v", first, second)
	}
}

// TestExtractLeadTime tests lead time defaults and clamping
func TestExtractLeadTime(t *testing.T) {
	extractor := NewExtractor(testAppointmentTypes)
	scheduled := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		created  time.Time
		expected float64
	}{
		{"Missing creation time defaults to 24", time.Time{}, 24},
		{"Booked after scheduled clamps to zero", scheduled.Add(2 * time.Hour), 0},
		{"Normal lead time", scheduled.Add(-72 * time.Hour), 72},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := extractor.Extract(Input{
				ScheduledTime:   scheduled,
				CreatedTime:     tt.created,
				AppointmentType: "consultation",
			}, DefaultHistory())

			if fv[0] != tt.expected {
				t.Errorf("Expected lead time %v, got %v", tt.expected, fv[0])
			}
		})
	}
}

// TestExtractUnknownCategories tests that unseen categories degrade to the
// reserved unknown code instead of failing
func TestExtractUnknownCategories(t *testing.T) {
	extractor := NewExtractor(testAppointmentTypes)

	appt := Input{
		ScheduledTime:    time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
		CreatedTime:      time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC),
		AppointmentType:  "acupuncture",
		WeatherCondition: "foggy",
	}

	fv := extractor.Extract(appt, DefaultHistory())

	if fv[5] != extractor.AppointmentTypes.UnknownCode() {
		t.Errorf("Expected unknown appointment type code %v, got %v", extractor.AppointmentTypes.UnknownCode(), fv[5])
	}
	if fv[6] != 4 {
		t.Errorf("Expected unknown weather code 4, got %v", fv[6])
	}

	// Empty strings degrade the same way
	appt.AppointmentType = ""
	appt.WeatherCondition = ""
	fv = extractor.Extract(appt, DefaultHistory())

	if fv[5] != extractor.AppointmentTypes.UnknownCode() {
		t.Errorf("Expected unknown appointment type code for empty string, got %v", fv[5])
	}
	if fv[6] != 4 {
		t.Errorf("Expected unknown weather code 4 for empty string, got %v", fv[6])
	}
}

// TestExtractWeekend tests Monday-indexed weekday and weekend detection
func TestExtractWeekend(t *testing.T) {
	extractor := NewExtractor(testAppointmentTypes)

	tests := []struct {
		name      string
		scheduled time.Time
		dayOfWeek float64
		isWeekend float64
	}{
		{"Monday", time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), 0, 0},
		{"Friday", time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC), 4, 0},
		{"Saturday", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), 5, 1},
		{"Sunday", time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC), 6, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := extractor.Extract(Input{
				ScheduledTime:   tt.scheduled,
				CreatedTime:     tt.scheduled.Add(-24 * time.Hour),
				AppointmentType: "consultation",
			}, DefaultHistory())

			if fv[1] != tt.dayOfWeek {
				t.Errorf("Expected day_of_week %v, got %v", tt.dayOfWeek, fv[1])
			}
			if fv[8] != tt.isWeekend {
				t.Errorf("Expected is_weekend %v, got %v", tt.isWeekend, fv[8])
			}
		})
	}
}

// TestVocabularyEncode tests stable codes and the unknown sentinel
func TestVocabularyEncode(t *testing.T) {
	vocab := NewVocabulary("sunny", "rainy", "snowy", "cloudy")

	tests := []struct {
		term     string
		expected float64
	}{
		{"sunny", 0},
		{"rainy", 1},
		{"snowy", 2},
		{"cloudy", 3},
		{"unknown", 4},
		{"hail", 4},
		{"", 4},
	}

	for _, tt := range tests {
		if got := vocab.Encode(tt.term); got != tt.expected {
			t.Errorf("Expected Encode(%q) = %v, got %v", tt.term, tt.expected, got)
		}
	}

	if vocab.UnknownCode() != 4 {
		t.Errorf("Expected unknown code 4, got %v", vocab.UnknownCode())
	}
}

// TestFeatureVectorNamed tests the column-keyed view
func TestFeatureVectorNamed(t *testing.T) {
	fv := FeatureVector{48, 2, 14.5, 2, 1.5, 2, 1, 3, 0}
	named := fv.Named()

	if len(named) != FeatureCount {
		t.Fatalf("Expected %d named features, got %d", FeatureCount, len(named))
	}
	if named["booking_lead_time_hours"] != 48 {
		t.Errorf("Expected booking_lead_time_hours 48, got %v", named["booking_lead_time_hours"])
	}
	if named["is_weekend"] != 0 {
		t.Errorf("Expected is_weekend 0, got %v", named["is_weekend"])
	}
}

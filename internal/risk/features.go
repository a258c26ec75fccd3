// Package risk implements the no-show risk pipeline: feature extraction,
// a trainable classifier, and the mapping from probability to a risk tier
// with recommended follow-up actions.
package risk

import "time"

// FeatureCount is the length of every extracted feature vector.
const FeatureCount = 9

// FeatureColumns lists the features in extraction order. The order is part
// of the trained artifact and must not change between training and inference.
var FeatureColumns = []string{
	"booking_lead_time_hours",
	"day_of_week",
	"time_of_day",
	"previous_no_shows",
	"appointment_frequency",
	"appointment_type_encoded",
	"weather_condition_encoded",
	"month",
	"is_weekend",
}

// FeatureVector is a fixed-schema numeric summary of one appointment,
// ordered per FeatureColumns.
type FeatureVector [FeatureCount]float64

// Named returns the vector as a column-name keyed map.
func (fv FeatureVector) Named() map[string]float64 {
	named := make(map[string]float64, FeatureCount)
	for i, col := range FeatureColumns {
		named[col] = fv[i]
	}
	return named
}

// Sample is one labeled training example. Label is 1 for a no-show.
type Sample struct {
	Features FeatureVector `json:"features"`
	Label    int           `json:"label"`
}

// Vocabulary is a closed set of category terms with stable integer codes.
// Terms encode by position; anything outside the set maps to the reserved
// unknown code one past the last term. Vocabularies are fixed at training
// time and frozen into the artifact, so an unseen category at inference
// degrades to unknown instead of erroring.
type Vocabulary struct {
	Terms []string `json:"terms"`
}

// NewVocabulary creates a vocabulary from an ordered term list.
func NewVocabulary(terms ...string) Vocabulary {
	return Vocabulary{Terms: terms}
}

// Encode returns the code for a term, or the unknown code for anything
// outside the vocabulary.
func (v Vocabulary) Encode(term string) float64 {
	for i, t := range v.Terms {
		if t == term {
			return float64(i)
		}
	}
	return v.UnknownCode()
}

// UnknownCode is the reserved code for terms outside the vocabulary.
func (v Vocabulary) UnknownCode() float64 {
	return float64(len(v.Terms))
}

// WeatherConditions is the fixed weather vocabulary. "unknown" is not a
// term; it is the reserved code one past "cloudy".
func WeatherConditions() Vocabulary {
	return NewVocabulary("sunny", "rainy", "snowy", "cloudy")
}

// Input carries the appointment fields the extractor reads. The booking
// layer owns the appointment entity; the pipeline only reads this view.
type Input struct {
	ScheduledTime    time.Time
	CreatedTime      time.Time
	AppointmentType  string
	WeatherCondition string
}

// History summarizes a patient's attendance record.
type History struct {
	PreviousNoShows      int
	AppointmentFrequency float64 // visits per month
}

// DefaultHistory is what a history supplier returns when no records exist.
func DefaultHistory() History {
	return History{PreviousNoShows: 0, AppointmentFrequency: 1.0}
}

// defaultLeadTimeHours is assumed when either booking timestamp is missing.
const defaultLeadTimeHours = 24.0

// Extractor derives feature vectors from appointments. Its vocabularies are
// frozen into the artifact at training time and reused at inference.
type Extractor struct {
	AppointmentTypes  Vocabulary `json:"appointment_types"`
	WeatherConditions Vocabulary `json:"weather_conditions"`
}

// NewExtractor creates an extractor with the given appointment-type
// vocabulary and the fixed weather vocabulary.
func NewExtractor(appointmentTypes []string) *Extractor {
	return &Extractor{
		AppointmentTypes:  NewVocabulary(appointmentTypes...),
		WeatherConditions: WeatherConditions(),
	}
}

// Extract derives the feature vector for one appointment. It is
// deterministic and never fails: missing timestamps fall back to the
// default lead time and unseen categories encode as unknown.
func (e *Extractor) Extract(appt Input, history History) FeatureVector {
	var fv FeatureVector

	fv[0] = leadTimeHours(appt)
	fv[1] = float64(mondayIndexedWeekday(appt.ScheduledTime))
	fv[2] = float64(appt.ScheduledTime.Hour()) + float64(appt.ScheduledTime.Minute())/60.0
	fv[3] = float64(history.PreviousNoShows)
	fv[4] = history.AppointmentFrequency
	fv[5] = e.AppointmentTypes.Encode(appt.AppointmentType)
	fv[6] = e.WeatherConditions.Encode(appt.WeatherCondition)
	fv[7] = float64(appt.ScheduledTime.Month())
	if mondayIndexedWeekday(appt.ScheduledTime) >= 5 {
		fv[8] = 1
	}

	return fv
}

// leadTimeHours is the booking-to-appointment gap in hours, clamped to >= 0.
func leadTimeHours(appt Input) float64 {
	if appt.CreatedTime.IsZero() || appt.ScheduledTime.IsZero() {
		return defaultLeadTimeHours
	}
	hours := appt.ScheduledTime.Sub(appt.CreatedTime).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// mondayIndexedWeekday maps time.Weekday to Monday=0 .. Sunday=6, so the
// weekend check is a single >= 5 comparison.
func mondayIndexedWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

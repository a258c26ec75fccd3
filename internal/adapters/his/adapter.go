// Package his defines the adapter boundary to hospital information
// systems. HIS visit records are the source of truth for whether a
// patient actually attended, so adapters feed attendance outcomes back
// into the booking lifecycle.
package his

import (
	"context"
	"time"
)

// Adapter defines the interface for hospital information system adapters.
// Implementations connect to Horizon or other HIS deployments.
type Adapter interface {
	// Visit data
	FetchVisitOutcomes(ctx context.Context, mrn string, from, to time.Time) ([]VisitOutcome, error)

	// Real-time subscriptions
	SubscribeAttendance(ctx context.Context, handler AttendanceHandler) error

	// Adapter metadata
	SourceSystem() string
	IsConnected() bool

	// Lifecycle
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) error
}

// AttendanceHandler is called when the HIS records a visit outcome
type AttendanceHandler func(event AttendanceEvent)

// AttendanceEvent represents a visit outcome recorded in the HIS
type AttendanceEvent struct {
	EventID      string    `json:"event_id"`
	Timestamp    time.Time `json:"timestamp"`
	PatientMRN   string    `json:"patient_mrn"`
	PatientName  string    `json:"patient_name,omitempty"`
	VisitTime    time.Time `json:"visit_time"`
	Department   string    `json:"department,omitempty"`
	Attended     bool      `json:"attended"`
	SourceSystem string    `json:"source_system"`
}

// VisitOutcome represents one completed or missed visit in the HIS
type VisitOutcome struct {
	VisitID      string     `json:"visit_id"`
	PatientMRN   string     `json:"patient_mrn"`
	VisitTime    time.Time  `json:"visit_time"`
	Department   string     `json:"department,omitempty"`
	Provider     string     `json:"provider,omitempty"`
	Attended     bool       `json:"attended"`
	CheckinTime  *time.Time `json:"checkin_time,omitempty"`
	CheckoutTime *time.Time `json:"checkout_time,omitempty"`
	SourceSystem string     `json:"source_system"`
}

// Config holds common configuration for HIS adapters
type Config struct {
	// Database connection
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"ssl_mode"`

	// Polling configuration
	PollInterval time.Duration `json:"poll_interval"`
	BatchSize    int           `json:"batch_size"`

	// Event publishing
	EventBufferSize int `json:"event_buffer_size"`
}

// DefaultConfig returns default adapter configuration
func DefaultConfig() Config {
	return Config{
		Port:            1433, // SQL Server default
		SSLMode:         "disable",
		PollInterval:    30 * time.Second,
		BatchSize:       100,
		EventBufferSize: 1000,
	}
}

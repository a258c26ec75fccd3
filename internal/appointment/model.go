package appointment

import (
	"fmt"
	"time"

	"github.com/brukd/attend/internal/shared/types"
)

// AppointmentStatus defines the lifecycle state of an appointment
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Valid reports whether the status is a known lifecycle state
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// IsOutcome reports whether the status records an attendance outcome
// usable as a training label
func (s AppointmentStatus) IsOutcome() bool {
	return s == StatusCompleted || s == StatusNoShow
}

// Appointment represents a booked visit
type Appointment struct {
	ID              types.ID          `json:"id"`
	PatientID       types.ID          `json:"patient_id"`
	ClinicID        types.ID          `json:"clinic_id"`
	ScheduledTime   time.Time         `json:"scheduled_time"`
	AppointmentType string            `json:"appointment_type"`
	DurationMinutes int               `json:"duration_minutes"`
	Status          AppointmentStatus `json:"status"`
	Notes           string            `json:"notes,omitempty"`

	// WeatherCondition is the forecast snapshot taken at booking time,
	// kept because it feeds the risk features
	WeatherCondition string `json:"weather_condition,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// defaultDurationMinutes applies when a booking does not specify one
const defaultDurationMinutes = 60

// NewAppointment creates a new appointment in scheduled status
func NewAppointment(patientID, clinicID types.ID, scheduledTime time.Time, appointmentType string, durationMinutes int, notes string) (*Appointment, error) {
	if patientID.IsZero() {
		return nil, fmt.Errorf("patient is required")
	}
	if clinicID.IsZero() {
		return nil, fmt.Errorf("clinic is required")
	}
	if scheduledTime.IsZero() {
		return nil, fmt.Errorf("scheduled time is required")
	}
	if appointmentType == "" {
		return nil, fmt.Errorf("appointment type is required")
	}
	if durationMinutes <= 0 {
		durationMinutes = defaultDurationMinutes
	}

	now := time.Now().UTC()
	return &Appointment{
		ID:              types.NewID(),
		PatientID:       patientID,
		ClinicID:        clinicID,
		ScheduledTime:   scheduledTime.UTC(),
		AppointmentType: appointmentType,
		DurationMinutes: durationMinutes,
		Status:          StatusScheduled,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Confirm marks the appointment as confirmed by the patient
func (a *Appointment) Confirm() error {
	if a.Status != StatusScheduled {
		return fmt.Errorf("cannot confirm a %s appointment", a.Status)
	}
	a.Status = StatusConfirmed
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete records that the patient attended
func (a *Appointment) Complete() error {
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return fmt.Errorf("cannot complete a %s appointment", a.Status)
	}
	a.Status = StatusCompleted
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel cancels the appointment
func (a *Appointment) Cancel() error {
	if a.Status.IsTerminal() {
		return fmt.Errorf("cannot cancel a %s appointment", a.Status)
	}
	a.Status = StatusCancelled
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkNoShow records that the patient did not attend
func (a *Appointment) MarkNoShow() error {
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return fmt.Errorf("cannot mark a %s appointment as no-show", a.Status)
	}
	a.Status = StatusNoShow
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Reschedule moves the appointment to a new time and returns it to
// scheduled status so the reminder cadence restarts from the new slot
func (a *Appointment) Reschedule(newTime time.Time) error {
	if a.Status.IsTerminal() {
		return fmt.Errorf("cannot reschedule a %s appointment", a.Status)
	}
	if newTime.IsZero() {
		return fmt.Errorf("scheduled time is required")
	}
	a.ScheduledTime = newTime.UTC()
	a.Status = StatusScheduled
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// TransitionTo applies the transition matching the target status
func (a *Appointment) TransitionTo(status AppointmentStatus) error {
	switch status {
	case StatusConfirmed:
		return a.Confirm()
	case StatusCompleted:
		return a.Complete()
	case StatusCancelled:
		return a.Cancel()
	case StatusNoShow:
		return a.MarkNoShow()
	case StatusScheduled:
		if a.Status == StatusScheduled {
			return nil
		}
		return fmt.Errorf("cannot move a %s appointment back to scheduled", a.Status)
	default:
		return fmt.Errorf("unknown appointment status: %s", status)
	}
}

// IsUpcoming reports whether the appointment is still scheduled for a
// future slot
func (a *Appointment) IsUpcoming(now time.Time) bool {
	return a.Status == StatusScheduled && a.ScheduledTime.After(now)
}

// --- Request/Response types ---

// CreateAppointmentRequest is the request to book an appointment
type CreateAppointmentRequest struct {
	PatientID       types.ID  `json:"patient_id" validate:"required"`
	ClinicID        types.ID  `json:"clinic_id" validate:"required"`
	ScheduledTime   time.Time `json:"scheduled_time" validate:"required"`
	AppointmentType string    `json:"appointment_type" validate:"required"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// UpdateAppointmentRequest is the request to update an appointment.
// A new scheduled_time reschedules it and replans its reminders.
type UpdateAppointmentRequest struct {
	ScheduledTime   *time.Time         `json:"scheduled_time,omitempty"`
	Status          *AppointmentStatus `json:"status,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	DurationMinutes *int               `json:"duration_minutes,omitempty"`
}

// ListAppointmentsFilter defines filters for listing appointments
type ListAppointmentsFilter struct {
	PatientID *types.ID          `json:"patient_id,omitempty"`
	ClinicID  *types.ID          `json:"clinic_id,omitempty"`
	Status    *AppointmentStatus `json:"status,omitempty"`
	From      *time.Time         `json:"from,omitempty"`
	To        *time.Time         `json:"to,omitempty"`
	Limit     int                `json:"limit,omitempty"`
	Offset    int                `json:"offset,omitempty"`
}

// NoShowPrediction is one row of the upcoming-risk report
type NoShowPrediction struct {
	AppointmentID      types.ID  `json:"appointment_id"`
	PatientName        string    `json:"patient_name"`
	ScheduledTime      time.Time `json:"appointment_time"`
	NoShowProbability  float64   `json:"no_show_probability"`
	RiskLevel          string    `json:"risk_level"`
	RecommendedActions []string  `json:"recommended_actions"`
}

// DashboardStats summarizes clinic activity for the dashboard
type DashboardStats struct {
	TotalAppointments    int     `json:"total_appointments"`
	UpcomingAppointments int     `json:"upcoming_appointments"`
	NoShowRate           float64 `json:"no_show_rate"`
	TotalPatients        int     `json:"total_patients"`
	HighRiskAppointments int     `json:"high_risk_appointments"`
}

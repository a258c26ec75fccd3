package domain

import (
	"context"
	"time"

	"github.com/brukd/attend/internal/shared/types"
)

// Repository defines the interface for reminder persistence
type Repository interface {
	// Save persists a new reminder event
	Save(ctx context.Context, e *ReminderEvent) error

	// SaveAll persists a batch of planned reminder events
	SaveAll(ctx context.Context, events []*ReminderEvent) error

	// FindByID loads one reminder event
	FindByID(ctx context.Context, id types.ID) (*ReminderEvent, error)

	// FindByAppointment lists all reminder events for an appointment
	FindByAppointment(ctx context.Context, appointmentID types.ID) ([]*ReminderEvent, error)

	// FindDue returns scheduled events whose time has passed
	FindDue(ctx context.Context, now time.Time, limit int) ([]*ReminderEvent, error)

	// Transition persists a status change guarded on the stored event still
	// being scheduled. It reports false when another processor already won
	// the transition, which callers treat as a benign skip.
	Transition(ctx context.Context, e *ReminderEvent) (bool, error)

	// CancelByAppointment cancels every scheduled event for an appointment
	// and returns how many were cancelled. Terminal events are untouched.
	CancelByAppointment(ctx context.Context, appointmentID types.ID) (int, error)

	// Stats summarizes reminder outcomes
	Stats(ctx context.Context) (Stats, error)
}

// Stats summarizes reminder outcomes across all events.
type Stats struct {
	Total     int `json:"total_reminders"`
	Sent      int `json:"sent_reminders"`
	Failed    int `json:"failed_reminders"`
	Scheduled int `json:"scheduled_reminders"`
	Cancelled int `json:"cancelled_reminders"`

	// SuccessRate is sent/total as a percentage; 0 with no reminders.
	SuccessRate float64 `json:"success_rate"`
}

// Package domain holds the reminder aggregate and the planning logic that
// derives a reminder cadence from a booked appointment.
package domain

import (
	"fmt"
	"time"

	"github.com/brukd/attend/internal/shared/types"
)

// Channel is the delivery mechanism for a reminder.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelChat  Channel = "chat"
)

// Category identifies a slot in the reminder cadence.
type Category string

const (
	CategoryEarly     Category = "early"
	CategoryStandard  Category = "standard"
	CategoryDayBefore Category = "day_before"
	CategoryFinal     Category = "final"
)

// Status defines the lifecycle of a reminder event. Scheduled is the only
// non-terminal state; sent, failed and cancelled are never re-opened.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// DeliveryStatusDelivered is recorded when dispatch reports success.
const DeliveryStatusDelivered = "delivered"

// ReminderEvent is the aggregate root for one planned reminder. Status
// transitions go through the Mark*/Cancel methods, which guard on the
// current status; stores additionally make the transition conditional so
// overlapping due-scans settle on exactly one winner per event.
type ReminderEvent struct {
	ID            types.ID   `json:"id"`
	AppointmentID types.ID   `json:"appointment_id"`
	Channel       Channel    `json:"channel"`
	Category      Category   `json:"category"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	SentTime      *time.Time `json:"sent_time,omitempty"`
	Status        Status     `json:"status"`
	Message       string     `json:"message"`

	// Dispatch outcome
	DeliveryStatus string `json:"delivery_status,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewReminderEvent creates a scheduled reminder with validation. A
// scheduled time already in the past is allowed; the scheduler decides
// whether to fire it immediately.
func NewReminderEvent(appointmentID types.ID, channel Channel, category Category, scheduledTime time.Time, message string) (*ReminderEvent, error) {
	if appointmentID.IsZero() {
		return nil, fmt.Errorf("appointment is required")
	}
	if !channel.Valid() {
		return nil, fmt.Errorf("invalid channel: %s", channel)
	}
	if !category.Valid() {
		return nil, fmt.Errorf("invalid category: %s", category)
	}
	if scheduledTime.IsZero() {
		return nil, fmt.Errorf("scheduled time is required")
	}

	return &ReminderEvent{
		ID:            types.NewID(),
		AppointmentID: appointmentID,
		Channel:       channel,
		Category:      category,
		ScheduledTime: scheduledTime,
		Status:        StatusScheduled,
		Message:       message,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Valid reports whether the channel is one of the supported mechanisms.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelChat:
		return true
	}
	return false
}

// Valid reports whether the category is a known cadence slot.
func (c Category) Valid() bool {
	switch c {
	case CategoryEarly, CategoryStandard, CategoryDayBefore, CategoryFinal:
		return true
	}
	return false
}

// IsTerminal reports whether the event can no longer transition.
func (e *ReminderEvent) IsTerminal() bool {
	return e.Status != StatusScheduled
}

// IsDue reports whether a scheduled event is eligible for dispatch.
func (e *ReminderEvent) IsDue(now time.Time) bool {
	return e.Status == StatusScheduled && !e.ScheduledTime.After(now)
}

// MarkSent transitions scheduled -> sent, recording the send time and the
// provider message id.
func (e *ReminderEvent) MarkSent(messageID string) error {
	if e.Status != StatusScheduled {
		return fmt.Errorf("cannot send a %s reminder", e.Status)
	}

	now := time.Now().UTC()
	e.Status = StatusSent
	e.SentTime = &now
	e.DeliveryStatus = DeliveryStatusDelivered
	e.MessageID = messageID

	return nil
}

// MarkFailed transitions scheduled -> failed, recording the error. Failed
// is terminal; re-sending requires a new explicit event.
func (e *ReminderEvent) MarkFailed(errorMessage string) error {
	if e.Status != StatusScheduled {
		return fmt.Errorf("cannot fail a %s reminder", e.Status)
	}

	e.Status = StatusFailed
	e.ErrorMessage = errorMessage

	return nil
}

// Cancel transitions scheduled -> cancelled. Sent and failed events are
// untouched so the historical record survives cancellation.
func (e *ReminderEvent) Cancel() error {
	if e.Status != StatusScheduled {
		return fmt.Errorf("cannot cancel a %s reminder", e.Status)
	}

	e.Status = StatusCancelled

	return nil
}

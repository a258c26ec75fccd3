package domain

import (
	"fmt"
	"time"

	"github.com/brukd/attend/internal/shared/types"
)

// AppointmentDetails is the read-only view of a booking the planner needs
// to schedule and render reminders.
type AppointmentDetails struct {
	AppointmentID   types.ID
	ScheduledTime   time.Time
	AppointmentType string
	PatientName     string
	ClinicName      string
	ClinicPhone     string
}

// cadence is the fixed reminder schedule, offsets before the appointment.
var cadence = []struct {
	offset   time.Duration
	channel  Channel
	category Category
}{
	{72 * time.Hour, ChannelEmail, CategoryEarly},
	{48 * time.Hour, ChannelEmail, CategoryStandard},
	{24 * time.Hour, ChannelSMS, CategoryDayBefore},
	{2 * time.Hour, ChannelSMS, CategoryFinal},
}

// Planner computes the reminder events for a booking.
type Planner struct{}

// NewPlanner creates a reminder planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan produces the reminder events for an appointment. The cadence is the
// same for every tier; the tier shapes the operator's recommended actions,
// not the schedule. Events whose slot is already in the past are still
// created as scheduled; the due-scan decides whether to fire or skip them.
func (p *Planner) Plan(details AppointmentDetails, tier string) ([]*ReminderEvent, error) {
	if details.AppointmentID.IsZero() {
		return nil, fmt.Errorf("appointment is required")
	}
	if details.ScheduledTime.IsZero() {
		return nil, fmt.Errorf("appointment time is required")
	}

	msgCtx := MessageContext{
		PatientName:     details.PatientName,
		AppointmentTime: details.ScheduledTime,
		AppointmentType: details.AppointmentType,
		ClinicName:      details.ClinicName,
		ClinicPhone:     details.ClinicPhone,
	}

	events := make([]*ReminderEvent, 0, len(cadence))
	for _, step := range cadence {
		message := RenderMessage(step.channel, step.category, msgCtx)

		event, err := NewReminderEvent(
			details.AppointmentID,
			step.channel,
			step.category,
			details.ScheduledTime.Add(-step.offset),
			message,
		)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, nil
}

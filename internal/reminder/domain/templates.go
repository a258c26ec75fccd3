package domain

import (
	"fmt"
	"time"
)

// Appointment times render in the long clinic style, e.g.
// "March 12, 2025 at 02:30 PM".
const (
	messageTimeFormat = "January 02, 2006 at 03:04 PM"
	subjectDateFormat = "January 02, 2006"
)

// MessageContext carries the fields reminder templates interpolate.
// Templates are data; swapping copy never changes scheduling behavior.
type MessageContext struct {
	PatientName     string
	AppointmentTime time.Time
	AppointmentType string
	ClinicName      string
	ClinicPhone     string
}

// RenderSubject returns the email subject line for a reminder.
func RenderSubject(appointmentTime time.Time) string {
	return fmt.Sprintf("Appointment Reminder - %s", appointmentTime.Format(subjectDateFormat))
}

// RenderMessage returns the message body for a channel and cadence slot.
// Unknown combinations fall back to a generic reminder line.
func RenderMessage(channel Channel, category Category, msgCtx MessageContext) string {
	when := msgCtx.AppointmentTime.Format(messageTimeFormat)

	switch category {
	case CategoryEarly:
		switch channel {
		case ChannelEmail:
			return fmt.Sprintf(`Dear %s,

This is a friendly reminder that you have an upcoming appointment:

Date & Time: %s
Type: %s
Location: %s

Please confirm your attendance by replying to this email or calling us at %s.

If you need to reschedule, please contact us at least 24 hours in advance.

Best regards,
%s Team`,
				msgCtx.PatientName, when, msgCtx.AppointmentType, msgCtx.ClinicName, msgCtx.ClinicPhone, msgCtx.ClinicName)
		case ChannelSMS:
			return fmt.Sprintf("Hi %s, you have an appointment on %s at %s. Please confirm by replying YES or call %s to reschedule.",
				msgCtx.PatientName, when, msgCtx.ClinicName, msgCtx.ClinicPhone)
		}

	case CategoryStandard:
		switch channel {
		case ChannelEmail:
			return fmt.Sprintf(`Dear %s,

Reminder: Your appointment is scheduled for %s

Appointment Type: %s
Location: %s

Please arrive 15 minutes early for check-in. If you need to reschedule, please contact us at %s.

Thank you,
%s`,
				msgCtx.PatientName, when, msgCtx.AppointmentType, msgCtx.ClinicName, msgCtx.ClinicPhone, msgCtx.ClinicName)
		case ChannelSMS:
			return fmt.Sprintf("Reminder: %s, your %s appointment is tomorrow at %s at %s. Reply STOP to opt out.",
				msgCtx.PatientName, msgCtx.AppointmentType, when, msgCtx.ClinicName)
		}

	case CategoryDayBefore:
		switch channel {
		case ChannelEmail:
			return fmt.Sprintf(`Dear %s,

Final reminder: Your appointment is tomorrow at %s

Please bring:
- Valid ID
- Insurance card (if applicable)
- List of current medications

If you need to reschedule, please call us immediately at %s.

See you tomorrow,
%s`,
				msgCtx.PatientName, when, msgCtx.ClinicPhone, msgCtx.ClinicName)
		case ChannelSMS:
			return fmt.Sprintf("Final reminder: %s, your appointment is tomorrow at %s at %s. Call %s if you need to reschedule.",
				msgCtx.PatientName, when, msgCtx.ClinicName, msgCtx.ClinicPhone)
		}

	case CategoryFinal:
		switch channel {
		case ChannelEmail:
			return fmt.Sprintf(`Dear %s,

Your appointment is in 2 hours at %s

Please arrive 15 minutes early for check-in.

We look forward to seeing you soon!

%s`,
				msgCtx.PatientName, when, msgCtx.ClinicName)
		case ChannelSMS:
			return fmt.Sprintf("Your appointment is in 2 hours at %s. Please arrive 15 minutes early. %s",
				when, msgCtx.ClinicName)
		}
	}

	return "Appointment reminder"
}

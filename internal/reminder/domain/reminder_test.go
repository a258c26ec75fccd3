package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/brukd/attend/internal/shared/types"
)

// TestNewReminderEvent tests creating a scheduled reminder
func TestNewReminderEvent(t *testing.T) {
	appointmentID := types.NewID()
	scheduledTime := time.Now().Add(24 * time.Hour)

	e, err := NewReminderEvent(appointmentID, ChannelEmail, CategoryStandard, scheduledTime, "See you soon")

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if e.ID.IsZero() {
		t.Error("Expected non-zero ID")
	}

	if e.AppointmentID != appointmentID {
		t.Errorf("Expected appointment %s, got %s", appointmentID, e.AppointmentID)
	}

	if e.Status != StatusScheduled {
		t.Errorf("Expected status %s, got %s", StatusScheduled, e.Status)
	}

	if e.Channel != ChannelEmail {
		t.Errorf("Expected channel %s, got %s", ChannelEmail, e.Channel)
	}

	if e.Category != CategoryStandard {
		t.Errorf("Expected category %s, got %s", CategoryStandard, e.Category)
	}

	if !e.ScheduledTime.Equal(scheduledTime) {
		t.Errorf("Expected scheduled time %v, got %v", scheduledTime, e.ScheduledTime)
	}

	if e.SentTime != nil {
		t.Error("Expected no sent time on a new reminder")
	}

	if e.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}
}

// TestNewReminderEventValidation tests validation when creating a reminder
func TestNewReminderEventValidation(t *testing.T) {
	appointmentID := types.NewID()
	scheduledTime := time.Now().Add(time.Hour)

	tests := []struct {
		name          string
		appointmentID types.ID
		channel       Channel
		category      Category
		scheduledTime time.Time
		expectError   bool
	}{
		{"Zero appointment ID", types.ID(""), ChannelEmail, CategoryEarly, scheduledTime, true},
		{"Invalid channel", appointmentID, Channel("pigeon"), CategoryEarly, scheduledTime, true},
		{"Invalid category", appointmentID, ChannelSMS, Category("someday"), scheduledTime, true},
		{"Zero scheduled time", appointmentID, ChannelSMS, CategoryFinal, time.Time{}, true},
		{"Past scheduled time", appointmentID, ChannelSMS, CategoryFinal, time.Now().Add(-time.Hour), false},
		{"Valid reminder", appointmentID, ChannelEmail, CategoryEarly, scheduledTime, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReminderEvent(tt.appointmentID, tt.channel, tt.category, tt.scheduledTime, "msg")

			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

// TestMarkSent tests the scheduled -> sent transition
func TestMarkSent(t *testing.T) {
	e, _ := NewReminderEvent(types.NewID(), ChannelSMS, CategoryFinal, time.Now(), "msg")

	if err := e.MarkSent("msg-123"); err != nil {
		t.Fatalf("Failed to mark sent: %v", err)
	}

	if e.Status != StatusSent {
		t.Errorf("Expected status %s, got %s", StatusSent, e.Status)
	}

	if e.SentTime == nil {
		t.Fatal("Expected sent time to be set")
	}

	if time.Since(*e.SentTime) > time.Minute {
		t.Errorf("Expected recent sent time, got %v", *e.SentTime)
	}

	if e.DeliveryStatus != DeliveryStatusDelivered {
		t.Errorf("Expected delivery status %s, got %s", DeliveryStatusDelivered, e.DeliveryStatus)
	}

	if e.MessageID != "msg-123" {
		t.Errorf("Expected message id msg-123, got %s", e.MessageID)
	}
}

// TestMarkFailed tests the scheduled -> failed transition
func TestMarkFailed(t *testing.T) {
	e, _ := NewReminderEvent(types.NewID(), ChannelEmail, CategoryEarly, time.Now(), "msg")

	if err := e.MarkFailed("Appointment not found"); err != nil {
		t.Fatalf("Failed to mark failed: %v", err)
	}

	if e.Status != StatusFailed {
		t.Errorf("Expected status %s, got %s", StatusFailed, e.Status)
	}

	if e.ErrorMessage != "Appointment not found" {
		t.Errorf("Expected error message to be recorded, got %s", e.ErrorMessage)
	}

	if e.SentTime != nil {
		t.Error("Expected no sent time on a failed reminder")
	}
}

// TestCancel tests the scheduled -> cancelled transition
func TestCancel(t *testing.T) {
	e, _ := NewReminderEvent(types.NewID(), ChannelEmail, CategoryStandard, time.Now(), "msg")

	if err := e.Cancel(); err != nil {
		t.Fatalf("Failed to cancel: %v", err)
	}

	if e.Status != StatusCancelled {
		t.Errorf("Expected status %s, got %s", StatusCancelled, e.Status)
	}
}

// TestTerminalStatesRejectTransitions tests that sent, failed and cancelled
// reminders never transition again
func TestTerminalStatesRejectTransitions(t *testing.T) {
	terminal := []struct {
		name  string
		setup func(e *ReminderEvent)
	}{
		{"sent", func(e *ReminderEvent) { e.MarkSent("msg-1") }},
		{"failed", func(e *ReminderEvent) { e.MarkFailed("provider down") }},
		{"cancelled", func(e *ReminderEvent) { e.Cancel() }},
	}

	for _, tt := range terminal {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := NewReminderEvent(types.NewID(), ChannelSMS, CategoryDayBefore, time.Now(), "msg")
			tt.setup(e)

			if !e.IsTerminal() {
				t.Fatalf("Expected %s to be terminal", e.Status)
			}

			if err := e.MarkSent("msg-2"); err == nil {
				t.Errorf("Expected error marking a %s reminder sent", e.Status)
			}
			if err := e.MarkFailed("late failure"); err == nil {
				t.Errorf("Expected error marking a %s reminder failed", e.Status)
			}
			if err := e.Cancel(); err == nil {
				t.Errorf("Expected error cancelling a %s reminder", e.Status)
			}
		})
	}
}

// TestIsDue tests due detection against a reference time
func TestIsDue(t *testing.T) {
	now := time.Now()

	past, _ := NewReminderEvent(types.NewID(), ChannelSMS, CategoryFinal, now.Add(-time.Minute), "msg")
	if !past.IsDue(now) {
		t.Error("Expected a past scheduled reminder to be due")
	}

	exact, _ := NewReminderEvent(types.NewID(), ChannelSMS, CategoryFinal, now, "msg")
	if !exact.IsDue(now) {
		t.Error("Expected a reminder scheduled exactly now to be due")
	}

	future, _ := NewReminderEvent(types.NewID(), ChannelSMS, CategoryFinal, now.Add(time.Minute), "msg")
	if future.IsDue(now) {
		t.Error("Expected a future reminder not to be due")
	}

	sent, _ := NewReminderEvent(types.NewID(), ChannelSMS, CategoryFinal, now.Add(-time.Minute), "msg")
	sent.MarkSent("msg-1")
	if sent.IsDue(now) {
		t.Error("Expected a sent reminder not to be due")
	}
}

// TestChannelAndCategoryValidation tests the enumeration guards
func TestChannelAndCategoryValidation(t *testing.T) {
	validChannels := []Channel{ChannelEmail, ChannelSMS, ChannelChat}
	for _, c := range validChannels {
		if !c.Valid() {
			t.Errorf("Expected channel %s to be valid", c)
		}
	}
	if Channel("fax").Valid() {
		t.Error("Expected unknown channel to be invalid")
	}

	validCategories := []Category{CategoryEarly, CategoryStandard, CategoryDayBefore, CategoryFinal}
	for _, c := range validCategories {
		if !c.Valid() {
			t.Errorf("Expected category %s to be valid", c)
		}
	}
	if Category("weekly").Valid() {
		t.Error("Expected unknown category to be invalid")
	}
}

// TestRenderSubject tests the email subject line
func TestRenderSubject(t *testing.T) {
	when := time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)

	subject := RenderSubject(when)
	if subject != "Appointment Reminder - March 12, 2025" {
		t.Errorf("Expected subject with long date, got %q", subject)
	}
}

// TestRenderMessage tests the template copy per channel and cadence slot
func TestRenderMessage(t *testing.T) {
	msgCtx := MessageContext{
		PatientName:     "Jane Doe",
		AppointmentTime: time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC),
		AppointmentType: "consultation",
		ClinicName:      "Downtown Clinic",
		ClinicPhone:     "555-0100",
	}

	tests := []struct {
		name     string
		channel  Channel
		category Category
		contains []string
	}{
		{"Early email", ChannelEmail, CategoryEarly, []string{"Dear Jane Doe", "friendly reminder", "March 12, 2025 at 02:30 PM", "consultation", "555-0100", "Downtown Clinic Team"}},
		{"Early sms", ChannelSMS, CategoryEarly, []string{"Hi Jane Doe", "replying YES", "555-0100"}},
		{"Standard email", ChannelEmail, CategoryStandard, []string{"arrive 15 minutes early", "Appointment Type: consultation"}},
		{"Standard sms", ChannelSMS, CategoryStandard, []string{"Reply STOP to opt out"}},
		{"Day before email", ChannelEmail, CategoryDayBefore, []string{"Valid ID", "Insurance card", "List of current medications"}},
		{"Day before sms", ChannelSMS, CategoryDayBefore, []string{"Final reminder", "Call 555-0100"}},
		{"Final email", ChannelEmail, CategoryFinal, []string{"in 2 hours", "We look forward to seeing you soon!"}},
		{"Final sms", ChannelSMS, CategoryFinal, []string{"in 2 hours", "arrive 15 minutes early"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := RenderMessage(tt.channel, tt.category, msgCtx)
			for _, fragment := range tt.contains {
				if !strings.Contains(msg, fragment) {
					t.Errorf("Expected message to contain %q, got:\n%s", fragment, msg)
				}
			}
		})
	}
}

// TestRenderMessageFallback tests the generic copy for unmapped combinations
func TestRenderMessageFallback(t *testing.T) {
	msg := RenderMessage(ChannelChat, CategoryEarly, MessageContext{})
	if msg != "Appointment reminder" {
		t.Errorf("Expected generic fallback message, got %q", msg)
	}
}

// TestMessageTimeZeroPadding tests that single-digit days and hours render
// zero-padded in message copy
func TestMessageTimeZeroPadding(t *testing.T) {
	msgCtx := MessageContext{
		PatientName:     "Jane Doe",
		AppointmentTime: time.Date(2025, 4, 5, 9, 5, 0, 0, time.UTC),
		ClinicName:      "Downtown Clinic",
	}

	msg := RenderMessage(ChannelSMS, CategoryFinal, msgCtx)
	if !strings.Contains(msg, "April 05, 2025 at 09:05 AM") {
		t.Errorf("Expected zero-padded time, got %q", msg)
	}
}

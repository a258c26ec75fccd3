package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/brukd/attend/internal/reminder/domain"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
)

func newTestReminder(t *testing.T, appointmentID types.ID, scheduledTime time.Time) *domain.ReminderEvent {
	t.Helper()
	e, err := domain.NewReminderEvent(appointmentID, domain.ChannelSMS, domain.CategoryFinal, scheduledTime, "msg")
	if err != nil {
		t.Fatalf("Failed to create reminder: %v", err)
	}
	return e
}

// TestMemorySaveAndFind tests round-tripping a reminder through the store
func TestMemorySaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	e := newTestReminder(t, types.NewID(), time.Now().Add(time.Hour))
	if err := repo.Save(ctx, e); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	found, err := repo.FindByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if found.ID != e.ID {
		t.Errorf("Expected id %s, got %s", e.ID, found.ID)
	}
	if found.Status != domain.StatusScheduled {
		t.Errorf("Expected status %s, got %s", domain.StatusScheduled, found.Status)
	}

	// Duplicate save is a conflict
	if err := repo.Save(ctx, e); err == nil {
		t.Error("Expected conflict saving the same reminder twice")
	}
}

// TestMemoryFindMissing tests the not-found path
func TestMemoryFindMissing(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.FindByID(context.Background(), types.NewID())
	if err == nil {
		t.Fatal("Expected error for missing reminder")
	}

	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("Expected AppError, got %T", err)
	}
	if appErr.Code != "NOT_FOUND" {
		t.Errorf("Expected code NOT_FOUND, got %s", appErr.Code)
	}
}

// TestMemoryStoreIsolation tests that mutating a returned event does not
// change the stored copy
func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	e := newTestReminder(t, types.NewID(), time.Now().Add(-time.Minute))
	repo.Save(ctx, e)

	found, _ := repo.FindByID(ctx, e.ID)
	found.MarkSent("msg-1")

	again, _ := repo.FindByID(ctx, e.ID)
	if again.Status != domain.StatusScheduled {
		t.Errorf("Expected stored copy to remain %s, got %s", domain.StatusScheduled, again.Status)
	}
}

// TestMemoryFindDue tests due selection, ordering and the limit
func TestMemoryFindDue(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now()

	later := newTestReminder(t, types.NewID(), now.Add(-time.Minute))
	earlier := newTestReminder(t, types.NewID(), now.Add(-2*time.Hour))
	future := newTestReminder(t, types.NewID(), now.Add(time.Hour))
	sent := newTestReminder(t, types.NewID(), now.Add(-time.Hour))
	sent.MarkSent("msg-1")

	for _, e := range []*domain.ReminderEvent{later, earlier, future, sent} {
		if err := repo.Save(ctx, e); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	due, err := repo.FindDue(ctx, now, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(due) != 2 {
		t.Fatalf("Expected 2 due reminders, got %d", len(due))
	}
	if due[0].ID != earlier.ID {
		t.Errorf("Expected oldest reminder first, got %s", due[0].ID)
	}
	if due[1].ID != later.ID {
		t.Errorf("Expected newer reminder second, got %s", due[1].ID)
	}

	limited, err := repo.FindDue(ctx, now, 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected limit to cap results at 1, got %d", len(limited))
	}
}

// TestMemoryTransition tests that exactly one caller wins a transition
func TestMemoryTransition(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	e := newTestReminder(t, types.NewID(), time.Now().Add(-time.Minute))
	repo.Save(ctx, e)

	first, _ := repo.FindByID(ctx, e.ID)
	second, _ := repo.FindByID(ctx, e.ID)

	first.MarkSent("msg-1")
	won, err := repo.Transition(ctx, first)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !won {
		t.Fatal("Expected first transition to win")
	}

	second.MarkFailed("provider down")
	won, err = repo.Transition(ctx, second)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if won {
		t.Error("Expected second transition to lose")
	}

	stored, _ := repo.FindByID(ctx, e.ID)
	if stored.Status != domain.StatusSent {
		t.Errorf("Expected status %s, got %s", domain.StatusSent, stored.Status)
	}
	if stored.MessageID != "msg-1" {
		t.Errorf("Expected message id msg-1, got %s", stored.MessageID)
	}
}

// TestMemoryCancelByAppointment tests that cancellation touches only
// scheduled reminders
func TestMemoryCancelByAppointment(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	appointmentID := types.NewID()
	now := time.Now()

	pending1 := newTestReminder(t, appointmentID, now.Add(time.Hour))
	pending2 := newTestReminder(t, appointmentID, now.Add(2*time.Hour))
	delivered := newTestReminder(t, appointmentID, now.Add(-time.Hour))
	delivered.MarkSent("msg-1")
	other := newTestReminder(t, types.NewID(), now.Add(time.Hour))

	for _, e := range []*domain.ReminderEvent{pending1, pending2, delivered, other} {
		repo.Save(ctx, e)
	}

	cancelled, err := repo.CancelByAppointment(ctx, appointmentID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cancelled != 2 {
		t.Errorf("Expected 2 cancelled reminders, got %d", cancelled)
	}

	events, _ := repo.FindByAppointment(ctx, appointmentID)
	for _, e := range events {
		switch e.ID {
		case delivered.ID:
			if e.Status != domain.StatusSent {
				t.Errorf("Expected sent reminder to survive cancellation, got %s", e.Status)
			}
		default:
			if e.Status != domain.StatusCancelled {
				t.Errorf("Expected reminder %s to be cancelled, got %s", e.ID, e.Status)
			}
		}
	}

	unrelated, _ := repo.FindByID(ctx, other.ID)
	if unrelated.Status != domain.StatusScheduled {
		t.Errorf("Expected unrelated reminder untouched, got %s", unrelated.Status)
	}
}

// TestMemoryStats tests outcome aggregation
func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now()

	empty, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if empty.Total != 0 || empty.SuccessRate != 0 {
		t.Errorf("Expected zeroed stats, got %+v", empty)
	}

	sent1 := newTestReminder(t, types.NewID(), now.Add(-time.Hour))
	sent1.MarkSent("msg-1")
	sent2 := newTestReminder(t, types.NewID(), now.Add(-time.Hour))
	sent2.MarkSent("msg-2")
	sent3 := newTestReminder(t, types.NewID(), now.Add(-time.Hour))
	sent3.MarkSent("msg-3")
	failed := newTestReminder(t, types.NewID(), now.Add(-time.Hour))
	failed.MarkFailed("provider down")
	pending := newTestReminder(t, types.NewID(), now.Add(time.Hour))

	for _, e := range []*domain.ReminderEvent{sent1, sent2, sent3, failed, pending} {
		repo.Save(ctx, e)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if stats.Total != 5 {
		t.Errorf("Expected 5 total reminders, got %d", stats.Total)
	}
	if stats.Sent != 3 {
		t.Errorf("Expected 3 sent, got %d", stats.Sent)
	}
	if stats.Failed != 1 {
		t.Errorf("Expected 1 failed, got %d", stats.Failed)
	}
	if stats.Scheduled != 1 {
		t.Errorf("Expected 1 scheduled, got %d", stats.Scheduled)
	}
	if stats.SuccessRate != 60 {
		t.Errorf("Expected success rate 60, got %v", stats.SuccessRate)
	}
}

// TestMemorySaveAll tests batch persistence
func TestMemorySaveAll(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	appointmentID := types.NewID()
	now := time.Now()

	batch := []*domain.ReminderEvent{
		newTestReminder(t, appointmentID, now.Add(time.Hour)),
		newTestReminder(t, appointmentID, now.Add(2*time.Hour)),
		newTestReminder(t, appointmentID, now.Add(3*time.Hour)),
	}

	if err := repo.SaveAll(ctx, batch); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	events, err := repo.FindByAppointment(ctx, appointmentID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(events) != 3 {
		t.Errorf("Expected 3 reminders, got %d", len(events))
	}

	// Events come back ordered by scheduled time
	for i := 1; i < len(events); i++ {
		if events[i].ScheduledTime.Before(events[i-1].ScheduledTime) {
			t.Error("Expected reminders ordered by scheduled time")
		}
	}
}

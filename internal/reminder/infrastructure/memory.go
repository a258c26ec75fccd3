package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/brukd/attend/internal/reminder/domain"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
)

// MemoryRepository implements domain.Repository with an in-process map. It
// backs the test suites and mirrors the conditional-transition semantics of
// the PostgreSQL implementation.
type MemoryRepository struct {
	mu     sync.RWMutex
	events map[types.ID]*domain.ReminderEvent
}

// NewMemoryRepository creates an empty in-memory reminder repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		events: make(map[types.ID]*domain.ReminderEvent),
	}
}

// Save persists a new reminder event
func (r *MemoryRepository) Save(ctx context.Context, e *domain.ReminderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[e.ID]; exists {
		return errors.Conflict("reminder already exists")
	}

	r.events[e.ID] = cloneReminder(e)
	return nil
}

// SaveAll persists a batch of planned reminder events
func (r *MemoryRepository) SaveAll(ctx context.Context, events []*domain.ReminderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range events {
		if _, exists := r.events[e.ID]; exists {
			return errors.Conflict("reminder already exists")
		}
	}
	for _, e := range events {
		r.events[e.ID] = cloneReminder(e)
	}

	return nil
}

// FindByID loads one reminder event
func (r *MemoryRepository) FindByID(ctx context.Context, id types.ID) (*domain.ReminderEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[id]
	if !ok {
		return nil, errors.NotFound("reminder", id.String())
	}

	return cloneReminder(e), nil
}

// FindByAppointment lists all reminder events for an appointment
func (r *MemoryRepository) FindByAppointment(ctx context.Context, appointmentID types.ID) ([]*domain.ReminderEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []*domain.ReminderEvent
	for _, e := range r.events {
		if e.AppointmentID == appointmentID {
			events = append(events, cloneReminder(e))
		}
	}

	sortByScheduledTime(events)
	return events, nil
}

// FindDue returns scheduled events whose time has passed, oldest first
func (r *MemoryRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.ReminderEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []*domain.ReminderEvent
	for _, e := range r.events {
		if e.IsDue(now) {
			events = append(events, cloneReminder(e))
		}
	}

	sortByScheduledTime(events)
	if len(events) > limit {
		events = events[:limit]
	}

	return events, nil
}

// Transition persists a status change guarded on the stored event still
// being scheduled
func (r *MemoryRepository) Transition(ctx context.Context, e *domain.ReminderEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.events[e.ID]
	if !ok {
		return false, errors.NotFound("reminder", e.ID.String())
	}
	if stored.Status != domain.StatusScheduled {
		return false, nil
	}

	r.events[e.ID] = cloneReminder(e)
	return true, nil
}

// CancelByAppointment cancels every scheduled reminder for an appointment
func (r *MemoryRepository) CancelByAppointment(ctx context.Context, appointmentID types.ID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancelled := 0
	for _, e := range r.events {
		if e.AppointmentID == appointmentID && e.Status == domain.StatusScheduled {
			e.Status = domain.StatusCancelled
			cancelled++
		}
	}

	return cancelled, nil
}

// Stats summarizes reminder outcomes
func (r *MemoryRepository) Stats(ctx context.Context) (domain.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.Stats
	for _, e := range r.events {
		stats.Total++
		switch e.Status {
		case domain.StatusSent:
			stats.Sent++
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusScheduled:
			stats.Scheduled++
		case domain.StatusCancelled:
			stats.Cancelled++
		}
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Sent) / float64(stats.Total) * 100
	}

	return stats, nil
}

func cloneReminder(e *domain.ReminderEvent) *domain.ReminderEvent {
	c := *e
	if e.SentTime != nil {
		t := *e.SentTime
		c.SentTime = &t
	}
	return &c
}

func sortByScheduledTime(events []*domain.ReminderEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].ScheduledTime.Before(events[j].ScheduledTime)
	})
}

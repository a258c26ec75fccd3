// Package scheduler sweeps due reminders, hands them to dispatch and records
// the outcome on each event.
package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brukd/attend/internal/dispatch"
	"github.com/brukd/attend/internal/reminder/domain"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/events"
	"github.com/brukd/attend/internal/shared/metrics"
	"github.com/brukd/attend/internal/shared/types"
)

const defaultBatchSize = 100

// Contact carries the delivery coordinates for one appointment.
type Contact struct {
	PatientName     string
	Email           string
	Phone           string
	AppointmentTime time.Time
}

// ContactResolver looks up who an appointment is for. A missing appointment
// comes back as a not-found error, which the sweep records as a failed
// delivery rather than an outage.
type ContactResolver interface {
	Resolve(ctx context.Context, appointmentID types.ID) (*Contact, error)
}

// Dispatcher delivers reminder messages. *dispatch.Service implements it.
type Dispatcher interface {
	Send(ctx context.Context, channel domain.Channel, recipient, subject, body string) dispatch.Receipt
	Submit(job dispatch.Job) error
}

// Service owns the due-reminder sweep and the manual send path.
type Service struct {
	repo       domain.Repository
	contacts   ContactResolver
	dispatcher Dispatcher
	bus        *events.Bus

	interval  time.Duration
	batchSize int

	stopCh chan struct{}
}

// NewService creates a reminder scheduler. The bus is optional.
func NewService(repo domain.Repository, contacts ContactResolver, dispatcher Dispatcher, bus *events.Bus, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Service{
		repo:       repo,
		contacts:   contacts,
		dispatcher: dispatcher,
		bus:        bus,
		interval:   interval,
		batchSize:  defaultBatchSize,
		stopCh:     make(chan struct{}),
	}
}

// Start runs the periodic due-reminder sweep until the context is cancelled
// or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			if n, err := s.ProcessDue(ctx); err != nil {
				log.Printf("Reminder sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("Processed %d due reminders", n)
			}
		}
	}
}

// Stop ends the sweep loop
func (s *Service) Stop() {
	close(s.stopCh)
}

// ProcessDue processes every scheduled reminder whose time has passed and
// returns how many transitions this sweep won. Each event settles
// independently; one failure never aborts the batch. Overlapping sweeps are
// safe because the store accepts a transition only from the first processor.
func (s *Service) ProcessDue(ctx context.Context) (int, error) {
	due, err := s.repo.FindDue(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		return 0, err
	}

	var wg sync.WaitGroup
	var processed atomic.Int64

	for _, event := range due {
		event := event // the Done closure outlives the iteration; pre-1.22 range vars are shared
		contact, err := s.contacts.Resolve(ctx, event.AppointmentID)
		if err != nil {
			if errors.IsNotFound(err) {
				if s.finalizeFailed(ctx, event, "Appointment not found") {
					processed.Add(1)
				}
			} else {
				// Transient lookup failure; the event stays scheduled
				// and the next sweep retries it.
				log.Printf("Failed to resolve appointment %s: %v", event.AppointmentID, err)
			}
			continue
		}

		wg.Add(1)
		job := dispatch.Job{
			Channel:   event.Channel,
			Recipient: recipientFor(event.Channel, contact),
			Subject:   subjectFor(event.Channel, contact),
			Body:      event.Message,
			Done: func(receipt dispatch.Receipt) {
				defer wg.Done()
				if s.finalize(ctx, event, receipt) {
					processed.Add(1)
				}
			},
		}

		if err := s.dispatcher.Submit(job); err != nil {
			// Pool unavailable; deliver inline.
			job.Done(s.dispatcher.Send(ctx, job.Channel, job.Recipient, job.Subject, job.Body))
		}
	}

	wg.Wait()
	return int(processed.Load()), nil
}

// ProcessOne sends a single scheduled reminder immediately, regardless of
// its slot time, and returns the updated event.
func (s *Service) ProcessOne(ctx context.Context, id types.ID) (*domain.ReminderEvent, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.IsTerminal() {
		return nil, errors.Conflict("reminder is not in scheduled status")
	}

	contact, err := s.contacts.Resolve(ctx, event.AppointmentID)
	if err != nil {
		if errors.IsNotFound(err) {
			if !s.finalizeFailed(ctx, event, "Appointment not found") {
				return nil, errors.Conflict("reminder was already processed")
			}
			return event, nil
		}
		return nil, err
	}

	receipt := s.dispatcher.Send(ctx, event.Channel,
		recipientFor(event.Channel, contact), subjectFor(event.Channel, contact), event.Message)

	if !s.finalize(ctx, event, receipt) {
		return nil, errors.Conflict("reminder was already processed")
	}

	return event, nil
}

// finalize applies the dispatch outcome to the event and persists the
// transition. Reports whether this caller won the event.
func (s *Service) finalize(ctx context.Context, e *domain.ReminderEvent, receipt dispatch.Receipt) bool {
	if receipt.Success {
		if err := e.MarkSent(receipt.MessageID); err != nil {
			return false
		}
	} else {
		if err := e.MarkFailed(receipt.Error); err != nil {
			return false
		}
	}

	return s.persistTransition(ctx, e)
}

func (s *Service) finalizeFailed(ctx context.Context, e *domain.ReminderEvent, reason string) bool {
	if err := e.MarkFailed(reason); err != nil {
		return false
	}
	return s.persistTransition(ctx, e)
}

func (s *Service) persistTransition(ctx context.Context, e *domain.ReminderEvent) bool {
	won, err := s.repo.Transition(ctx, e)
	if err != nil {
		log.Printf("Failed to persist reminder %s transition: %v", e.ID, err)
		return false
	}
	if !won {
		return false
	}

	metrics.RecordReminderProcessed(string(e.Status))

	if s.bus != nil {
		event := events.NewEvent("reminder."+string(e.Status), "reminder", map[string]interface{}{
			"reminder_id":    e.ID,
			"appointment_id": e.AppointmentID,
			"channel":        e.Channel,
			"category":       e.Category,
		})
		if err := s.bus.Publish(ctx, event); err != nil {
			log.Printf("Failed to publish reminder event: %v", err)
		}
	}

	return true
}

func recipientFor(channel domain.Channel, contact *Contact) string {
	switch channel {
	case domain.ChannelEmail:
		return contact.Email
	case domain.ChannelSMS:
		return contact.Phone
	default:
		return ""
	}
}

func subjectFor(channel domain.Channel, contact *Contact) string {
	if channel == domain.ChannelEmail {
		return domain.RenderSubject(contact.AppointmentTime)
	}
	return ""
}

// Package dispatch delivers reminder messages through per-channel providers.
// Real transports (Twilio, SendGrid) plug in behind the provider interfaces;
// the repo ships console and mock implementations.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/brukd/attend/internal/reminder/domain"
	"github.com/brukd/attend/internal/shared/config"
	"github.com/brukd/attend/internal/shared/metrics"
)

// Receipt is the outcome of one delivery attempt.
type Receipt struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EmailProvider delivers email reminders.
type EmailProvider interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// SMSProvider delivers SMS reminders.
type SMSProvider interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Job is one queued delivery. Done, when set, receives the outcome on a
// worker goroutine.
type Job struct {
	Channel   domain.Channel
	Recipient string
	Subject   string
	Body      string
	Done      func(Receipt)
}

// Service fans deliveries out to channel providers through a worker pool,
// throttling each channel independently.
type Service struct {
	email EmailProvider
	sms   SMSProvider

	emailLimiter *rate.Limiter
	smsLimiter   *rate.Limiter

	jobCh   chan Job
	workers int

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewService creates a dispatch service. Nil providers are allowed; sends on
// an unconfigured channel fail with a receipt, never an outage.
func NewService(email EmailProvider, sms SMSProvider, cfg config.DispatchConfig) *Service {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 3
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 100
	}

	return &Service{
		email:        email,
		sms:          sms,
		emailLimiter: channelLimiter(cfg.EmailPerMinute),
		smsLimiter:   channelLimiter(cfg.SMSPerMinute),
		jobCh:        make(chan Job, bufferSize),
		workers:      workers,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the send workers
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("dispatch service already started")
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	return nil
}

// Stop shuts the workers down and fails any jobs still queued, so callers
// waiting on Done callbacks are always released.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("dispatch service not started")
	}
	s.started = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	for {
		select {
		case job := <-s.jobCh:
			if job.Done != nil {
				job.Done(Receipt{Error: "dispatch service stopped"})
			}
		default:
			return nil
		}
	}
}

// Submit queues a delivery for the worker pool. Callers needing the outcome
// set Job.Done or fall back to the synchronous Send.
func (s *Service) Submit(job Job) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		return fmt.Errorf("dispatch service not started")
	}

	select {
	case s.jobCh <- job:
		return nil
	default:
		return fmt.Errorf("dispatch queue full")
	}
}

// Send delivers one message synchronously, honoring the channel throttle.
func (s *Service) Send(ctx context.Context, channel domain.Channel, recipient, subject, body string) Receipt {
	start := time.Now()
	receipt := s.send(ctx, channel, recipient, subject, body)
	metrics.RecordDispatch(string(channel), time.Since(start))
	return receipt
}

func (s *Service) send(ctx context.Context, channel domain.Channel, recipient, subject, body string) Receipt {
	switch channel {
	case domain.ChannelEmail:
		if s.email == nil {
			return Receipt{Error: "email provider not configured"}
		}
		if err := s.emailLimiter.Wait(ctx); err != nil {
			return Receipt{Error: err.Error()}
		}
		messageID, err := s.email.Send(ctx, recipient, subject, body)
		if err != nil {
			return Receipt{Error: err.Error()}
		}
		return Receipt{Success: true, MessageID: messageID}

	case domain.ChannelSMS:
		if s.sms == nil {
			return Receipt{Error: "sms provider not configured"}
		}
		if err := s.smsLimiter.Wait(ctx); err != nil {
			return Receipt{Error: err.Error()}
		}
		messageID, err := s.sms.Send(ctx, recipient, body)
		if err != nil {
			return Receipt{Error: err.Error()}
		}
		return Receipt{Success: true, MessageID: messageID}

	case domain.ChannelChat:
		// No chat transport is wired up; deliveries are simulated.
		return Receipt{Success: true, MessageID: fmt.Sprintf("chat-%d", time.Now().UnixNano())}

	default:
		return Receipt{Error: fmt.Sprintf("unknown channel: %s", channel)}
	}
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case job := <-s.jobCh:
			receipt := s.Send(ctx, job.Channel, job.Recipient, job.Subject, job.Body)
			if job.Done != nil {
				job.Done(receipt)
			}
		}
	}
}

func channelLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	// Full burst lets a due-scan batch go out immediately, then throttle.
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

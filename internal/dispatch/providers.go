package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SentMessage records one delivery made by a mock provider.
type SentMessage struct {
	To      string
	Subject string
	Body    string
}

// MockEmailProvider is a mock email provider for testing
type MockEmailProvider struct {
	mu         sync.RWMutex
	sent       []SentMessage
	failOnSend bool
	sendDelay  time.Duration
}

// NewMockEmailProvider creates a new mock email provider
func NewMockEmailProvider() *MockEmailProvider {
	return &MockEmailProvider{}
}

// Send sends an email (mock implementation)
func (p *MockEmailProvider) Send(ctx context.Context, to, subject, body string) (string, error) {
	if p.sendDelay > 0 {
		time.Sleep(p.sendDelay)
	}

	if p.failOnSend {
		return "", fmt.Errorf("mock send failure")
	}

	if to == "" {
		return "", fmt.Errorf("no email address provided")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sent = append(p.sent, SentMessage{To: to, Subject: subject, Body: body})
	fmt.Printf("[MOCK EMAIL] To: %s, Subject: %s\n", to, subject)

	return fmt.Sprintf("email-%d", time.Now().UnixNano()), nil
}

// SetFailOnSend sets whether Send should fail
func (p *MockEmailProvider) SetFailOnSend(fail bool) {
	p.failOnSend = fail
}

// SetSendDelay sets artificial delay for Send
func (p *MockEmailProvider) SetSendDelay(delay time.Duration) {
	p.sendDelay = delay
}

// SentMessages returns all messages sent through this provider
func (p *MockEmailProvider) SentMessages() []SentMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]SentMessage, len(p.sent))
	copy(result, p.sent)
	return result
}

// MockSMSProvider is a mock SMS provider for testing
type MockSMSProvider struct {
	mu         sync.RWMutex
	sent       []SentMessage
	failOnSend bool
	sendDelay  time.Duration
}

// NewMockSMSProvider creates a new mock SMS provider
func NewMockSMSProvider() *MockSMSProvider {
	return &MockSMSProvider{}
}

// Send sends an SMS (mock implementation)
func (p *MockSMSProvider) Send(ctx context.Context, to, body string) (string, error) {
	if p.sendDelay > 0 {
		time.Sleep(p.sendDelay)
	}

	if p.failOnSend {
		return "", fmt.Errorf("mock send failure")
	}

	if to == "" {
		return "", fmt.Errorf("no phone number provided")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sent = append(p.sent, SentMessage{To: to, Body: body})
	fmt.Printf("[MOCK SMS] To: %s, Message: %s\n", to, body[:min(50, len(body))])

	return fmt.Sprintf("sms-%d", time.Now().UnixNano()), nil
}

// SetFailOnSend sets whether Send should fail
func (p *MockSMSProvider) SetFailOnSend(fail bool) {
	p.failOnSend = fail
}

// SentMessages returns all messages sent through this provider
func (p *MockSMSProvider) SentMessages() []SentMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]SentMessage, len(p.sent))
	copy(result, p.sent)
	return result
}

// ConsoleEmailProvider prints email reminders to stdout (for development)
type ConsoleEmailProvider struct {
	from string
}

// NewConsoleEmailProvider creates a console email provider
func NewConsoleEmailProvider(from string) *ConsoleEmailProvider {
	return &ConsoleEmailProvider{from: from}
}

// Send logs the email to console
func (p *ConsoleEmailProvider) Send(ctx context.Context, to, subject, body string) (string, error) {
	fmt.Printf("\n[EMAIL REMINDER]\n")
	fmt.Printf("  From:    %s\n", p.from)
	fmt.Printf("  To:      %s\n", to)
	fmt.Printf("  Subject: %s\n", subject)
	fmt.Printf("  Body:\n%s\n\n", body)
	return fmt.Sprintf("console-email-%d", time.Now().UnixNano()), nil
}

// ConsoleSMSProvider prints SMS reminders to stdout (for development)
type ConsoleSMSProvider struct {
	from string
}

// NewConsoleSMSProvider creates a console SMS provider
func NewConsoleSMSProvider(from string) *ConsoleSMSProvider {
	return &ConsoleSMSProvider{from: from}
}

// Send logs the SMS to console
func (p *ConsoleSMSProvider) Send(ctx context.Context, to, body string) (string, error) {
	fmt.Printf("\n[SMS REMINDER]\n")
	if p.from != "" {
		fmt.Printf("  From: %s\n", p.from)
	}
	fmt.Printf("  To:   %s\n", to)
	fmt.Printf("  Body: %s\n\n", body)
	return fmt.Sprintf("console-sms-%d", time.Now().UnixNano()), nil
}

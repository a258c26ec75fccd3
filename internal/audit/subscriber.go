package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brukd/attend/internal/shared/events"
	"github.com/brukd/attend/internal/shared/metrics"
	"github.com/brukd/attend/internal/shared/types"
)

// Recorder appends entries to the audit log. *Repository implements it.
type Recorder interface {
	Append(ctx context.Context, entry *AuditEntry) error
}

// Subscriber listens to domain events and creates audit entries
type Subscriber struct {
	repo Recorder
	bus  events.EventBus
}

// NewSubscriber creates a new audit subscriber
func NewSubscriber(repo Recorder, bus events.EventBus) *Subscriber {
	return &Subscriber{repo: repo, bus: bus}
}

// Start subscribes to all relevant events
func (s *Subscriber) Start(ctx context.Context) error {
	patterns := []struct {
		pattern      string
		consumerName string
	}{
		{"patient.*", "audit-patient-subscriber"},
		{"appointment.*", "audit-appointment-subscriber"},
		{"reminder.*", "audit-reminder-subscriber"},
		{"model.*", "audit-model-subscriber"},
		{"auth.*", "audit-auth-subscriber"},
	}

	for _, p := range patterns {
		if err := s.bus.Subscribe(ctx, p.pattern, p.consumerName, s.handleEvent); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", p.pattern, err)
		}
	}

	return nil
}

// handleEvent processes incoming events and creates audit entries
func (s *Subscriber) handleEvent(ctx context.Context, event events.Event) error {
	entry := s.eventToAuditEntry(event)
	if entry == nil {
		return nil // Skip events that don't need auditing
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	metrics.RecordAuditEntry()

	return nil
}

// eventToAuditEntry converts a domain event to an audit entry
func (s *Subscriber) eventToAuditEntry(event events.Event) *AuditEntry {
	// Event types follow "resource.action"
	parts := strings.SplitN(event.Type, ".", 2)
	if len(parts) < 2 {
		return nil
	}

	resourceType := parts[0]
	action := event.Type

	// Extract resource ID from event data
	var resourceID *types.ID
	if data, ok := event.Data.(map[string]any); ok {
		idFields := []string{
			resourceType + "_id",
			"id",
		}
		for _, field := range idFields {
			if idVal, ok := data[field]; ok {
				if idStr, ok := idVal.(string); ok {
					id := types.ID(idStr)
					resourceID = &id
					break
				}
				if id, ok := idVal.(types.ID); ok {
					resourceID = &id
					break
				}
			}
		}
	}

	actorType := ActorTypeStaff
	switch event.ActorType {
	case "patient":
		actorType = ActorTypePatient
	case "system", "":
		actorType = ActorTypeSystem
	case "external":
		actorType = ActorTypeExternal
	}

	// Truncate timestamp to microseconds for deterministic hash verification
	entry := &AuditEntry{
		ID:           types.NewID(),
		Timestamp:    event.Timestamp.UTC().Truncate(time.Microsecond),
		ActorType:    actorType,
		ActorID:      event.ActorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}

	if !event.ActorClinic.IsZero() {
		entry.ActorClinicID = &event.ActorClinic
	}

	if event.CorrelationID != "" {
		correlationID := types.ID(event.CorrelationID)
		entry.CorrelationID = &correlationID
	}

	if data, ok := event.Data.(map[string]any); ok {
		entry.Changes = data
	}

	return entry
}

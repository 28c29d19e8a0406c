// Package eventstream publishes completed exchanges to an event stream
// backend so downstream consumers can follow conversations.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/agentchat/pkg/transcript"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeExchangeCompleted is emitted after an exchange finishes.
	EventTypeExchangeCompleted = "agentchat.exchange.completed"
)

// ExchangeCompletedEvent is a transport-neutral event payload for a
// completed exchange.
type ExchangeCompletedEvent struct {
	SchemaVersion int                 `json:"schema_version"`
	EventType     string              `json:"event_type"`
	EventID       string              `json:"event_id"`
	EmittedAt     time.Time           `json:"emitted_at"`
	Source        EventSource         `json:"source"`
	Exchange      transcript.Exchange `json:"exchange"`
}

// EventSource identifies where the exchange originated.
type EventSource struct {
	// Component is "cli", "tui" or "relay".
	Component string `json:"component"`
	Agent     string `json:"agent,omitempty"`
	Upstream  string `json:"upstream,omitempty"`
}

// NewExchangeCompletedEvent wraps ex in a versioned event with a fresh ID.
func NewExchangeCompletedEvent(ex *transcript.Exchange, source EventSource) *ExchangeCompletedEvent {
	return &ExchangeCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeExchangeCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Exchange:      *ex,
	}
}

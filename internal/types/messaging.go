package types

import (
	"fmt"
	"time"
)

// EventMessage is the SQS envelope produced by the record store's change feed
// when a watched document is created. Exactly one variant payload is set,
// matching Kind. JSON tags use snake_case to match the upstream producer.
type EventMessage struct {
	// Core identity
	EventID    string    `json:"event_id"`
	Kind       EventKind `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`

	// Observability
	TraceID string `json:"trace_id,omitempty"`

	// Variant payloads
	Session       *SessionCreated       `json:"session,omitempty"`
	CircleMessage *CircleMessageCreated `json:"circle_message,omitempty"`
	DirectMessage *DirectMessageCreated `json:"direct_message,omitempty"`
	Call          *CallCreated          `json:"call,omitempty"`
}

// Record extracts the EventRecord from the envelope, validating that the
// populated variant matches Kind.
func (m *EventMessage) Record() (*EventRecord, error) {
	rec := &EventRecord{
		Kind:          m.Kind,
		Session:       m.Session,
		CircleMessage: m.CircleMessage,
		DirectMessage: m.DirectMessage,
		Call:          m.Call,
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("event %s: %w", m.EventID, err)
	}
	return rec, nil
}

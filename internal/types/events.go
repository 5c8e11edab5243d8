// Package types defines the shared domain model for the RallyPoint
// notification tier: event records, notification payloads, dispatch outcomes,
// and the cross-cutting interfaces (Logger, record stores, delivery channel)
// that the fan-out engine depends on.
package types

import (
	"fmt"
	"time"
)

// EventKind identifies the variant of an EventRecord.
type EventKind string

const (
	EventSessionCreated       EventKind = "session_created"
	EventCircleMessageCreated EventKind = "circle_message_created"
	EventDirectMessageCreated EventKind = "direct_message_created"
	EventCallCreated          EventKind = "call_created"
)

// Valid reports whether k is one of the supported event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventSessionCreated, EventCircleMessageCreated, EventDirectMessageCreated, EventCallCreated:
		return true
	}
	return false
}

// SessionCreated is the snapshot of a newly created rally session (ready check).
// Participants may include the host; the host is excluded at resolution time.
type SessionCreated struct {
	SessionID      string   `json:"session_id"`
	ActivityTitle  string   `json:"activity_title,omitempty"`
	HostID         string   `json:"host_id"`
	ParticipantIDs []string `json:"participant_ids"`
}

// CircleMessageCreated is the snapshot of a new message in a circle chat.
// The circle's member list is not embedded; it is fetched from the record
// store at resolution time.
type CircleMessageCreated struct {
	CircleID   string `json:"circle_id"`
	MessageID  string `json:"message_id,omitempty"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
	Text       string `json:"text,omitempty"`
}

// DirectMessageCreated is the snapshot of a new direct (two-party) message.
type DirectMessageCreated struct {
	ChatID     string `json:"chat_id"`
	MessageID  string `json:"message_id,omitempty"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
	Text       string `json:"text,omitempty"`
}

// CallCreated is the snapshot of a newly initiated call. ReceiverIDs is
// already exclusive of the caller.
type CallCreated struct {
	CallID      string   `json:"call_id"`
	CallerName  string   `json:"caller_name,omitempty"`
	ReceiverIDs []string `json:"receiver_ids"`
}

// EventRecord is the tagged union consumed by the fan-out router. Exactly one
// variant pointer must be populated, matching Kind. Records are immutable
// snapshots created by the upstream store at trigger time; nothing in the
// engine mutates them.
type EventRecord struct {
	Kind          EventKind
	Session       *SessionCreated
	CircleMessage *CircleMessageCreated
	DirectMessage *DirectMessageCreated
	Call          *CallCreated
}

// Validate checks that Kind is supported and that the matching variant is the
// only one populated.
func (e *EventRecord) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("unsupported event kind %q", e.Kind)
	}

	populated := 0
	if e.Session != nil {
		populated++
	}
	if e.CircleMessage != nil {
		populated++
	}
	if e.DirectMessage != nil {
		populated++
	}
	if e.Call != nil {
		populated++
	}
	if populated != 1 {
		return fmt.Errorf("event record must carry exactly one variant, has %d", populated)
	}

	var ok bool
	switch e.Kind {
	case EventSessionCreated:
		ok = e.Session != nil
	case EventCircleMessageCreated:
		ok = e.CircleMessage != nil
	case EventDirectMessageCreated:
		ok = e.DirectMessage != nil
	case EventCallCreated:
		ok = e.Call != nil
	}
	if !ok {
		return fmt.Errorf("event record variant does not match kind %q", e.Kind)
	}
	return nil
}

// Profile is a user record as read from the record store. DeviceToken is the
// opaque push address for the user's current device; it may be empty when the
// user has never registered a device or has logged out.
type Profile struct {
	UserID      string
	DisplayName string
	DeviceToken string
	UpdatedAt   time.Time
}

// Circle is a group chat record. MemberIDs includes every member, senders
// included.
type Circle struct {
	CircleID  string
	Name      string
	MemberIDs []string
}

// DirectChat is a two-party chat record.
type DirectChat struct {
	ChatID         string
	ParticipantIDs []string
}

// Priority is the requested delivery priority for a push message. It is a
// hint to the delivery channel, not a guarantee.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// NotificationPayload is the channel-ready message built once per event and
// reused across every recipient in that event's batch.
//
// Data values must remain flat string-keyed, string-valued pairs; the
// delivery channel rejects nested structures.
type NotificationPayload struct {
	Title string
	Body  string
	Data  map[string]string

	Priority Priority

	// DataOnly suppresses the platform notification block so the client's
	// background handler renders the alert itself (full-screen ready checks).
	DataOnly bool

	// ChannelID is the Android notification channel for rendered messages.
	// Empty for data-only payloads.
	ChannelID string

	// TTL is the requested time-to-live. nil leaves the channel default in
	// place; a zero duration means deliver immediately or drop.
	TTL *time.Duration
}

// SendResponse is the per-address result of one multicast send, in request
// order.
type SendResponse struct {
	Token   string
	Success bool
	Error   string
}

// MulticastResult is the delivery channel's breakdown for one multi-target
// send call.
type MulticastResult struct {
	SuccessCount int
	FailureCount int
	Responses    []SendResponse
}

// DispatchOutcome is the aggregate accounting for one event's notification
// batch. It is observability data only: failures recorded here are never
// retried by the engine.
type DispatchOutcome struct {
	SuccessCount int
	FailureCount int
	Failures     []SendResponse
}

// Zero reports whether no delivery attempt produced any result, i.e. the
// event was dispatched to zero addresses or the transport failed outright.
func (o DispatchOutcome) Zero() bool {
	return o.SuccessCount == 0 && o.FailureCount == 0
}

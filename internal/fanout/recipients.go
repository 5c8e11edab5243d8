// Package fanout implements the notification fan-out engine: recipient
// resolution, device token resolution, payload construction, and dispatch,
// coordinated per event by the Router.
package fanout

import (
	"context"

	"rallypoint/internal/types"
)

// RecipientResolver computes the set of user ids to notify for one event,
// applying per-kind exclusion rules. Parent-record lookup failures degrade
// to an empty set rather than failing the event.
type RecipientResolver struct {
	store  types.RecordStore
	logger types.Logger

	// dedupe removes duplicate participant ids from session events before
	// resolution. Off by default: upstream data is expected to be unique,
	// and a user signed in on multiple profiles is a product decision.
	dedupe bool
}

func NewRecipientResolver(store types.RecordStore, logger types.Logger, dedupe bool) *RecipientResolver {
	return &RecipientResolver{
		store:  store,
		logger: logger,
		dedupe: dedupe,
	}
}

// Resolve returns the ordered recipient ids for the event. The originator
// (session host, message sender) never appears in the result. An empty
// result is a legitimate outcome, not an error; Resolve returns a non-nil
// error only for unsupported event kinds.
func (r *RecipientResolver) Resolve(ctx context.Context, record *types.EventRecord) ([]string, error) {
	switch record.Kind {
	case types.EventSessionCreated:
		return r.resolveSession(record.Session), nil
	case types.EventCircleMessageCreated:
		return r.resolveCircleMessage(ctx, record.CircleMessage), nil
	case types.EventDirectMessageCreated:
		return r.resolveDirectMessage(ctx, record.DirectMessage), nil
	case types.EventCallCreated:
		return record.Call.ReceiverIDs, nil
	}
	return nil, types.NewAppError(
		types.ErrCodeValidationInvalidEvent,
		"unsupported event kind: "+string(record.Kind),
		nil,
	)
}

// resolveSession strips the host from the participant list, preserving
// input order.
func (r *RecipientResolver) resolveSession(s *types.SessionCreated) []string {
	recipients := make([]string, 0, len(s.ParticipantIDs))
	seen := make(map[string]struct{}, len(s.ParticipantIDs))

	for _, id := range s.ParticipantIDs {
		if id == s.HostID {
			continue
		}
		if r.dedupe {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		recipients = append(recipients, id)
	}

	return recipients
}

// resolveCircleMessage fetches the circle's member list and strips the
// sender. A failed or absent circle lookup yields an empty set; the event
// is skipped, not failed, so the event source does not redeliver.
func (r *RecipientResolver) resolveCircleMessage(ctx context.Context, m *types.CircleMessageCreated) []string {
	circle, err := r.store.GetCircle(ctx, m.CircleID)
	if err != nil {
		r.logger.Warn("circle lookup failed, skipping recipients",
			"circle_id", m.CircleID,
			"error", err.Error(),
		)
		return nil
	}

	recipients := make([]string, 0, len(circle.MemberIDs))
	for _, id := range circle.MemberIDs {
		if id == m.SenderID {
			continue
		}
		recipients = append(recipients, id)
	}

	return recipients
}

// resolveDirectMessage fetches the parent chat and picks the one participant
// that is not the sender. A chat with no such participant is malformed and
// yields an empty set.
func (r *RecipientResolver) resolveDirectMessage(ctx context.Context, m *types.DirectMessageCreated) []string {
	chat, err := r.store.GetDirectChat(ctx, m.ChatID)
	if err != nil {
		r.logger.Warn("chat lookup failed, skipping recipients",
			"chat_id", m.ChatID,
			"error", err.Error(),
		)
		return nil
	}

	for _, id := range chat.ParticipantIDs {
		if id != m.SenderID {
			return []string{id}
		}
	}

	r.logger.Warn("chat has no participant other than the sender",
		"chat_id", m.ChatID,
		"sender_id", m.SenderID,
	)
	return nil
}

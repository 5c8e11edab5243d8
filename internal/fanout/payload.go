package fanout

import (
	"fmt"
	"strconv"
	"time"

	"rallypoint/internal/types"
)

const (
	// maxBodyLength is the longest free-text body before truncation.
	maxBodyLength  = 100
	ellipsisMarker = "..."

	// Fallbacks for optional display fields.
	fallbackSenderName    = "Someone"
	fallbackActivityTitle = "Your squad"

	// chatChannelID is the Android notification channel for chat messages.
	chatChannelID = "chat_channel"

	sessionTitle = "Ready Check"
	callTitle    = "Incoming Call"
)

// BuildPayload produces the channel-ready message for one event. The payload
// is built once and reused across every recipient in the event's batch.
// Data values are flat string pairs; the delivery channel rejects anything
// nested.
func BuildPayload(record *types.EventRecord) *types.NotificationPayload {
	switch record.Kind {
	case types.EventSessionCreated:
		return buildSessionPayload(record.Session)
	case types.EventCircleMessageCreated:
		return buildCircleMessagePayload(record.CircleMessage)
	case types.EventDirectMessageCreated:
		return buildDirectMessagePayload(record.DirectMessage)
	case types.EventCallCreated:
		return buildCallPayload(record.Call)
	}
	return nil
}

// buildSessionPayload builds a data-only ready-check message. The client
// renders a full-screen interruptive alert from the data map itself, so no
// platform notification block is attached; the headline and body text ride
// inside the data map so the background handler still has them to render.
func buildSessionPayload(s *types.SessionCreated) *types.NotificationPayload {
	title := s.ActivityTitle
	if title == "" {
		title = fallbackActivityTitle
	}

	return &types.NotificationPayload{
		Title: sessionTitle,
		Body:  title,
		Data: map[string]string{
			"type":           "summon",
			"title":          sessionTitle,
			"body":           title,
			"session_id":     s.SessionID,
			"activity_title": title,
			"host_id":        s.HostID,
			"click_action":   "FLUTTER_NOTIFICATION_CLICK",
		},
		Priority: types.PriorityHigh,
		DataOnly: true,
	}
}

func buildCircleMessagePayload(m *types.CircleMessageCreated) *types.NotificationPayload {
	sender := m.SenderName
	if sender == "" {
		sender = fallbackSenderName
	}

	return &types.NotificationPayload{
		Title: sender,
		Body:  truncateBody(m.Text),
		Data: map[string]string{
			"type":         "circle_message",
			"circle_id":    m.CircleID,
			"sender_id":    m.SenderID,
			"click_action": "FLUTTER_NOTIFICATION_CLICK",
		},
		Priority:  types.PriorityHigh,
		ChannelID: chatChannelID,
	}
}

func buildDirectMessagePayload(m *types.DirectMessageCreated) *types.NotificationPayload {
	sender := m.SenderName
	if sender == "" {
		sender = fallbackSenderName
	}

	return &types.NotificationPayload{
		Title: sender,
		Body:  truncateBody(m.Text),
		Data: map[string]string{
			"type":         "direct_message",
			"chat_id":      m.ChatID,
			"sender_id":    m.SenderID,
			"click_action": "FLUTTER_NOTIFICATION_CLICK",
		},
		Priority:  types.PriorityHigh,
		ChannelID: chatChannelID,
	}
}

// buildCallPayload builds a call alert with zero time-to-live: a call
// notification that cannot be delivered immediately must be dropped, never
// delivered late.
func buildCallPayload(c *types.CallCreated) *types.NotificationPayload {
	caller := c.CallerName
	if caller == "" {
		caller = fallbackSenderName
	}

	ttl := time.Duration(0)

	return &types.NotificationPayload{
		Title: callTitle,
		Body:  fmt.Sprintf("%s is calling you", caller),
		Data: map[string]string{
			"type":         "call",
			"call_id":      c.CallID,
			"caller_name":  caller,
			"one_to_one":   strconv.FormatBool(len(c.ReceiverIDs) == 1),
			"click_action": "FLUTTER_NOTIFICATION_CLICK",
		},
		Priority:  types.PriorityHigh,
		ChannelID: chatChannelID,
		TTL:       &ttl,
	}
}

// truncateBody caps free-text bodies at maxBodyLength characters, appending
// the ellipsis marker when truncated. Bodies at or under the limit pass
// through unchanged.
func truncateBody(text string) string {
	runes := []rune(text)
	if len(runes) <= maxBodyLength {
		return text
	}
	return string(runes[:maxBodyLength]) + ellipsisMarker
}

package fanout

import (
	"strings"
	"testing"

	"rallypoint/internal/types"
)

func TestTruncateBody(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		want    string
	}{
		{"empty", "", 0, ""},
		{"short passes through", "hello", 5, "hello"},
		{"exactly at limit", strings.Repeat("a", 100), 100, strings.Repeat("a", 100)},
		{"one over limit", strings.Repeat("a", 101), 103, strings.Repeat("a", 100) + "..."},
		{"far over limit", strings.Repeat("b", 500), 103, strings.Repeat("b", 100) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateBody(tt.input)
			if got != tt.want {
				t.Errorf("unexpected output: %q", got)
			}
			if len([]rune(got)) != tt.wantLen {
				t.Errorf("expected length %d, got %d", tt.wantLen, len([]rune(got)))
			}
		})
	}
}

func TestBuildPayload_Session(t *testing.T) {
	payload := BuildPayload(&types.EventRecord{
		Kind: types.EventSessionCreated,
		Session: &types.SessionCreated{
			SessionID:      "sess-1",
			ActivityTitle:  "Evening Raid",
			HostID:         "H",
			ParticipantIDs: []string{"A", "B"},
		},
	})

	if payload.Title != "Ready Check" {
		t.Errorf("unexpected title: %q", payload.Title)
	}
	if payload.Body != "Evening Raid" {
		t.Errorf("unexpected body: %q", payload.Body)
	}
	if !payload.DataOnly {
		t.Error("session payload must be data-only")
	}
	if payload.Priority != types.PriorityHigh {
		t.Errorf("expected high priority, got %q", payload.Priority)
	}
	if payload.Data["type"] != "summon" {
		t.Errorf("expected summon type, got %q", payload.Data["type"])
	}
	if payload.Data["session_id"] != "sess-1" {
		t.Errorf("session id missing from data: %v", payload.Data)
	}
	// Data-only delivery means the client renders from the data map alone,
	// so the headline and body text must travel inside it.
	if payload.Data["title"] != "Ready Check" {
		t.Errorf("title missing from data map: %v", payload.Data)
	}
	if payload.Data["body"] != "Evening Raid" {
		t.Errorf("body missing from data map: %v", payload.Data)
	}
	if payload.TTL != nil {
		t.Error("session payload must not set a TTL")
	}
}

func TestBuildPayload_SessionFallbackTitle(t *testing.T) {
	payload := BuildPayload(&types.EventRecord{
		Kind: types.EventSessionCreated,
		Session: &types.SessionCreated{
			SessionID: "sess-1",
			HostID:    "H",
		},
	})

	if payload.Body != "Your squad" {
		t.Errorf("expected fallback body, got %q", payload.Body)
	}
	if payload.Data["body"] != "Your squad" {
		t.Errorf("fallback body missing from data map: %v", payload.Data)
	}
}

func TestBuildPayload_CircleMessage(t *testing.T) {
	payload := BuildPayload(&types.EventRecord{
		Kind: types.EventCircleMessageCreated,
		CircleMessage: &types.CircleMessageCreated{
			CircleID:   "circle-1",
			SenderID:   "U1",
			SenderName: "Maya",
			Text:       "anyone up for a run?",
		},
	})

	if payload.Title != "Maya" {
		t.Errorf("expected sender name title, got %q", payload.Title)
	}
	if payload.Body != "anyone up for a run?" {
		t.Errorf("unexpected body: %q", payload.Body)
	}
	if payload.DataOnly {
		t.Error("chat messages carry a rendered notification")
	}
	if payload.ChannelID != "chat_channel" {
		t.Errorf("expected chat_channel, got %q", payload.ChannelID)
	}
}

func TestBuildPayload_MissingSenderNameFallsBack(t *testing.T) {
	payload := BuildPayload(&types.EventRecord{
		Kind: types.EventDirectMessageCreated,
		DirectMessage: &types.DirectMessageCreated{
			ChatID:   "chat-1",
			SenderID: "U1",
			Text:     "hey",
		},
	})

	if payload.Title != "Someone" {
		t.Errorf("expected fallback sender, got %q", payload.Title)
	}
}

func TestBuildPayload_Call(t *testing.T) {
	payload := BuildPayload(&types.EventRecord{
		Kind: types.EventCallCreated,
		Call: &types.CallCreated{
			CallID:      "call-1",
			CallerName:  "Jo",
			ReceiverIDs: []string{"R1"},
		},
	})

	if payload.Title != "Incoming Call" {
		t.Errorf("unexpected title: %q", payload.Title)
	}
	if payload.Body != "Jo is calling you" {
		t.Errorf("unexpected body: %q", payload.Body)
	}
	if payload.TTL == nil || *payload.TTL != 0 {
		t.Error("call payload must have a zero TTL")
	}
	if payload.Data["one_to_one"] != "true" {
		t.Errorf("expected one_to_one=true for single receiver, got %q", payload.Data["one_to_one"])
	}
}

func TestBuildPayload_GroupCallFlag(t *testing.T) {
	payload := BuildPayload(&types.EventRecord{
		Kind: types.EventCallCreated,
		Call: &types.CallCreated{
			CallID:      "call-1",
			CallerName:  "Jo",
			ReceiverIDs: []string{"R1", "R2", "R3"},
		},
	})

	if payload.Data["one_to_one"] != "false" {
		t.Errorf("expected one_to_one=false for group call, got %q", payload.Data["one_to_one"])
	}
}

func TestBuildPayload_FlatStringData(t *testing.T) {
	records := []*types.EventRecord{
		{Kind: types.EventSessionCreated, Session: &types.SessionCreated{SessionID: "s", HostID: "h"}},
		{Kind: types.EventCircleMessageCreated, CircleMessage: &types.CircleMessageCreated{CircleID: "c", SenderID: "u"}},
		{Kind: types.EventDirectMessageCreated, DirectMessage: &types.DirectMessageCreated{ChatID: "c", SenderID: "u"}},
		{Kind: types.EventCallCreated, Call: &types.CallCreated{CallID: "c"}},
	}

	for _, record := range records {
		payload := BuildPayload(record)
		if payload == nil {
			t.Fatalf("no payload for %s", record.Kind)
		}
		if len(payload.Data) == 0 {
			t.Errorf("%s: payload must carry a data map", record.Kind)
		}
		if payload.Data["type"] == "" {
			t.Errorf("%s: data map must carry a type key", record.Kind)
		}
	}
}

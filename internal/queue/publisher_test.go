package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"rallypoint/internal/config"
	"rallypoint/internal/types"
)

// --- Mock SQS Client ---

// mockSQSSender captures SendMessage calls for test assertions.
type mockSQSSender struct {
	// calls records every SendMessageInput passed to SendMessage.
	calls []*sqs.SendMessageInput
	// err is returned by SendMessage if non-nil (simulates SQS failures).
	err error
}

func (m *mockSQSSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.calls = append(m.calls, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{}, nil
}

// --- Test Helpers ---

const testQueueURL = "https://sqs.us-east-1.amazonaws.com/123456789/rallypoint-events"

func newTestPublisher(mock *mockSQSSender) *EventPublisher {
	awsCfg := config.AWSConfig{EventQueue: testQueueURL}
	return NewEventPublisher(mock, awsCfg, slog.Default())
}

func sessionRecord() *types.EventRecord {
	return &types.EventRecord{
		Kind: types.EventSessionCreated,
		Session: &types.SessionCreated{
			SessionID:      "sess-1",
			ActivityTitle:  "Evening Raid",
			HostID:         "H",
			ParticipantIDs: []string{"H", "A"},
		},
	}
}

// --- Tests ---

func TestPublishRecord_SendsEnvelope(t *testing.T) {
	mock := &mockSQSSender{}
	publisher := newTestPublisher(mock)

	err := publisher.PublishRecord(context.Background(), sessionRecord(), "injector")
	if err != nil {
		t.Fatalf("PublishRecord returned unexpected error: %v", err)
	}

	if len(mock.calls) != 1 {
		t.Fatalf("expected 1 SQS call, got %d", len(mock.calls))
	}

	call := mock.calls[0]
	if *call.QueueUrl != testQueueURL {
		t.Errorf("expected queue URL %q, got %q", testQueueURL, *call.QueueUrl)
	}

	var msg types.EventMessage
	if err := json.Unmarshal([]byte(*call.MessageBody), &msg); err != nil {
		t.Fatalf("failed to unmarshal message body: %v", err)
	}

	if msg.EventID == "" || msg.TraceID == "" {
		t.Error("expected generated event and trace ids")
	}
	if msg.Kind != types.EventSessionCreated {
		t.Errorf("unexpected kind: %s", msg.Kind)
	}
	if msg.Session == nil || msg.Session.SessionID != "sess-1" {
		t.Errorf("session payload not carried: %+v", msg.Session)
	}
	if msg.OccurredAt.IsZero() {
		t.Error("expected OccurredAt to be stamped")
	}
}

func TestPublishRecord_SetsMessageAttributes(t *testing.T) {
	mock := &mockSQSSender{}
	publisher := newTestPublisher(mock)

	if err := publisher.PublishRecord(context.Background(), sessionRecord(), "injector"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attrs := mock.calls[0].MessageAttributes
	if got := *attrs["source"].StringValue; got != "injector" {
		t.Errorf("expected source attribute injector, got %q", got)
	}
	if got := *attrs["kind"].StringValue; got != string(types.EventSessionCreated) {
		t.Errorf("expected kind attribute, got %q", got)
	}
}

func TestPublishRecord_RejectsMalformedRecord(t *testing.T) {
	mock := &mockSQSSender{}
	publisher := newTestPublisher(mock)

	err := publisher.PublishRecord(context.Background(), &types.EventRecord{
		Kind: types.EventSessionCreated,
		// No variant payload.
	}, "injector")

	if err == nil {
		t.Fatal("expected error for malformed record")
	}
	if len(mock.calls) != 0 {
		t.Error("malformed record must not reach SQS")
	}
}

func TestPublish_SQSFailureReturnsError(t *testing.T) {
	mock := &mockSQSSender{err: errors.New("sqs unavailable")}
	publisher := newTestPublisher(mock)

	err := publisher.PublishRecord(context.Background(), sessionRecord(), "injector")
	if err == nil {
		t.Fatal("expected error when SQS send fails")
	}
}

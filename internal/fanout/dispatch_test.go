package fanout

import (
	"context"
	"errors"
	"testing"

	"rallypoint/internal/types"
)

func TestDispatch_ZeroTokensIsNoop(t *testing.T) {
	channel := &fakeChannel{}
	dispatcher := NewDispatcher(channel, nopLogger{})

	outcome := dispatcher.Dispatch(context.Background(), &types.NotificationPayload{}, nil)

	if !outcome.Zero() {
		t.Errorf("expected zero outcome, got %+v", outcome)
	}
	if len(channel.sendOneCalls) != 0 || len(channel.multicastCalls) != 0 {
		t.Error("no send call may be issued with zero tokens")
	}
}

func TestDispatch_SingleToken(t *testing.T) {
	channel := &fakeChannel{}
	dispatcher := NewDispatcher(channel, nopLogger{})

	outcome := dispatcher.Dispatch(context.Background(), &types.NotificationPayload{}, []string{"t1"})

	if outcome.SuccessCount != 1 || outcome.FailureCount != 0 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if len(channel.sendOneCalls) != 1 {
		t.Fatalf("expected 1 single send, got %d", len(channel.sendOneCalls))
	}
	if len(channel.multicastCalls) != 0 {
		t.Error("single token must not multicast")
	}
}

func TestDispatch_SingleTokenFailure(t *testing.T) {
	channel := &fakeChannel{sendOneErr: errors.New("NotRegistered")}
	dispatcher := NewDispatcher(channel, nopLogger{})

	outcome := dispatcher.Dispatch(context.Background(), &types.NotificationPayload{}, []string{"t1"})

	if outcome.SuccessCount != 0 || outcome.FailureCount != 1 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Token != "t1" {
		t.Errorf("unexpected failures: %+v", outcome.Failures)
	}
}

func TestDispatch_MulticastAggregatesResults(t *testing.T) {
	channel := &fakeChannel{
		multicastResult: &types.MulticastResult{
			SuccessCount: 2,
			FailureCount: 1,
			Responses: []types.SendResponse{
				{Token: "t1", Success: true},
				{Token: "t2", Error: "NotRegistered"},
				{Token: "t3", Success: true},
			},
		},
	}
	dispatcher := NewDispatcher(channel, nopLogger{})

	outcome := dispatcher.Dispatch(context.Background(), &types.NotificationPayload{}, []string{"t1", "t2", "t3"})

	if outcome.SuccessCount != 2 || outcome.FailureCount != 1 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Token != "t2" {
		t.Errorf("unexpected failures: %+v", outcome.Failures)
	}
}

func TestDispatch_TransportFailureSwallowed(t *testing.T) {
	channel := &fakeChannel{multicastErr: errors.New("gateway unreachable")}
	dispatcher := NewDispatcher(channel, nopLogger{})

	outcome := dispatcher.Dispatch(context.Background(), &types.NotificationPayload{}, []string{"t1", "t2"})

	if !outcome.Zero() {
		t.Errorf("transport failure must yield a zero outcome, got %+v", outcome)
	}
}

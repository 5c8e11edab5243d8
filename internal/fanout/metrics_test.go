package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"rallypoint/internal/types"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestCloudWatchMetrics_RecordDispatch(t *testing.T) {
	client := &fakeCloudWatch{}
	metrics := NewCloudWatchMetrics(client, "", nopLogger{})

	metrics.RecordDispatch(context.Background(), types.EventSessionCreated, MetricResultPartial)

	if len(client.inputs) != 1 {
		t.Fatalf("expected 1 put, got %d", len(client.inputs))
	}

	input := client.inputs[0]
	if *input.Namespace != types.MetricNamespace {
		t.Errorf("expected default namespace, got %q", *input.Namespace)
	}
	if len(input.MetricData) != 1 {
		t.Fatalf("expected 1 datum, got %d", len(input.MetricData))
	}

	datum := input.MetricData[0]
	if *datum.MetricName != types.MetricDispatchAttempt {
		t.Errorf("unexpected metric name: %q", *datum.MetricName)
	}
	if len(datum.Dimensions) != 2 {
		t.Fatalf("expected EventKind and Result dimensions, got %d", len(datum.Dimensions))
	}
	if *datum.Dimensions[1].Value != "partial" {
		t.Errorf("unexpected result dimension: %q", *datum.Dimensions[1].Value)
	}
}

func TestCloudWatchMetrics_RecordResolutionBatchesBothCounts(t *testing.T) {
	client := &fakeCloudWatch{}
	metrics := NewCloudWatchMetrics(client, "Custom/NS", nopLogger{})

	metrics.RecordResolution(context.Background(), types.EventCallCreated, 5, 3)

	if len(client.inputs) != 1 {
		t.Fatalf("expected one batched put, got %d", len(client.inputs))
	}
	if *client.inputs[0].Namespace != "Custom/NS" {
		t.Errorf("namespace override not applied: %q", *client.inputs[0].Namespace)
	}
	if len(client.inputs[0].MetricData) != 2 {
		t.Errorf("expected recipients and tokens data, got %d", len(client.inputs[0].MetricData))
	}
}

func TestCloudWatchMetrics_EmissionErrorDoesNotPanic(t *testing.T) {
	client := &fakeCloudWatch{err: errors.New("throttled")}
	metrics := NewCloudWatchMetrics(client, "", nopLogger{})

	// Must absorb the error silently.
	metrics.RecordLatency(context.Background(), types.EventCallCreated, 120*time.Millisecond)
	metrics.RecordSkip(context.Background(), types.EventCallCreated, SkipNoTokens)
}

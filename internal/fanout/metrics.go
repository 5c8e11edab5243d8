package fanout

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"rallypoint/internal/types"
)

// MetricResult is the outcome dimension value for a dispatch attempt.
type MetricResult string

const (
	MetricResultSuccess MetricResult = "success"
	MetricResultPartial MetricResult = "partial"
	MetricResultFailure MetricResult = "failure"
)

// Metrics records fan-out engine telemetry. Implementations must never
// fail the caller; emission errors are logged and dropped.
type Metrics interface {
	RecordDispatch(ctx context.Context, kind types.EventKind, result MetricResult)
	RecordLatency(ctx context.Context, kind types.EventKind, duration time.Duration)
	RecordResolution(ctx context.Context, kind types.EventKind, recipients, tokens int)
	RecordSkip(ctx context.Context, kind types.EventKind, reason SkipReason)
}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics implements Metrics by emitting to AWS CloudWatch.
//
// Metrics emitted:
//   - DispatchAttempt: Dims {EventKind, Result} -- on every dispatch outcome
//   - DispatchLatency: Dims {EventKind} -- end-to-end time for one event
//   - RecipientsResolved / TokensResolved: Dims {EventKind}
//   - EventSkipped: Dims {EventKind, Reason}
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

var _ Metrics = (*CloudWatchMetrics)(nil)

func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (m *CloudWatchMetrics) RecordDispatch(ctx context.Context, kind types.EventKind, result MetricResult) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDispatchAttempt),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimEventKind), Value: aws.String(string(kind))},
			{Name: aws.String(types.DimResult), Value: aws.String(string(result))},
		},
	})
}

// RecordLatency records end-to-end dispatch time in milliseconds.
func (m *CloudWatchMetrics) RecordLatency(ctx context.Context, kind types.EventKind, duration time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDispatchLatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimEventKind), Value: aws.String(string(kind))},
		},
	})
}

func (m *CloudWatchMetrics) RecordResolution(ctx context.Context, kind types.EventKind, recipients, tokens int) {
	dims := []cwtypes.Dimension{
		{Name: aws.String(types.DimEventKind), Value: aws.String(string(kind))},
	}
	m.put(ctx,
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricRecipientsResolved),
			Value:      aws.Float64(float64(recipients)),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricTokensResolved),
			Value:      aws.Float64(float64(tokens)),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
	)
}

func (m *CloudWatchMetrics) RecordSkip(ctx context.Context, kind types.EventKind, reason SkipReason) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricEventSkipped),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimEventKind), Value: aws.String(string(kind))},
			{Name: aws.String(types.DimReason), Value: aws.String(string(reason))},
		},
	})
}

func (m *CloudWatchMetrics) put(ctx context.Context, data ...cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record fanout metric", "error", err.Error())
	}
}

// NopMetrics discards all telemetry. Used in tests and local runs where
// CloudWatch is unavailable.
type NopMetrics struct{}

var _ Metrics = NopMetrics{}

func (NopMetrics) RecordDispatch(context.Context, types.EventKind, MetricResult)    {}
func (NopMetrics) RecordLatency(context.Context, types.EventKind, time.Duration)    {}
func (NopMetrics) RecordResolution(context.Context, types.EventKind, int, int)      {}
func (NopMetrics) RecordSkip(context.Context, types.EventKind, SkipReason)          {}

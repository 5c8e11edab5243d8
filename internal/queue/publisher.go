// Package queue provides the SQS producer for record-created event
// envelopes consumed by the fan-out worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"rallypoint/internal/config"
	"rallypoint/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// EventPublisher serializes EventMessage envelopes and sends them to the
// event queue. The record store's change feed is the primary producer; this
// publisher exists for service-side producers and the injection tool.
type EventPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewEventPublisher creates an EventPublisher reading the queue URL from
// the AWS configuration.
func NewEventPublisher(client SQSSender, awsCfg config.AWSConfig, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		client:   client,
		queueURL: awsCfg.EventQueue,
		logger:   logger,
	}
}

// PublishRecord wraps an EventRecord in a fresh envelope and sends it.
// EventID and TraceID are generated; OccurredAt is stamped now.
func (p *EventPublisher) PublishRecord(ctx context.Context, record *types.EventRecord, source string) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("queue: refusing to publish malformed record: %w", err)
	}

	msg := types.EventMessage{
		EventID:       uuid.New().String(),
		Kind:          record.Kind,
		OccurredAt:    time.Now().UTC(),
		TraceID:       uuid.New().String(),
		Session:       record.Session,
		CircleMessage: record.CircleMessage,
		DirectMessage: record.DirectMessage,
		Call:          record.Call,
	}

	return p.Publish(ctx, msg, source)
}

// Publish serializes the envelope to JSON and dispatches it to the event
// queue. The source attribute identifies the producer for queue-side
// filtering and debugging.
func (p *EventPublisher) Publish(ctx context.Context, msg types.EventMessage, source string) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal EventMessage: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"source": {
				DataType:    aws.String("String"),
				StringValue: aws.String(source),
			},
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.Kind)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send EventMessage to %s: %w", p.queueURL, err)
	}

	p.logger.InfoContext(ctx, "event message sent",
		"queue_url", p.queueURL,
		"event_id", msg.EventID,
		"trace_id", msg.TraceID,
		"kind", string(msg.Kind),
		"source", source,
	)

	return nil
}

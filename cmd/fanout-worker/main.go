// Package main is the entrypoint for the Fanout Worker Lambda function.
//
// The Fanout Worker consumes record-created event envelopes from the event
// SQS queue and runs each through the fan-out pipeline: recipient
// resolution, device token resolution, payload construction, and push
// dispatch via FCM.
//
// Cold Start (main):
//  1. Initialize structured logger.
//  2. Load service configuration (SSM-backed in deployed environments).
//  3. Load AWS SDK configuration.
//  4. Connect to the record store (pgx pool).
//  5. Initialize the FCM delivery channel.
//  6. Initialize CloudWatch metrics.
//  7. Assemble the fan-out router and register the Lambda handler.
//
// Handler flow per SQS message in the batch:
//  1. Unmarshal the EventMessage envelope. Malformed bodies are permanent
//     failures and are ACKed without retry.
//  2. Extract the EventRecord and route it through the fan-out engine.
//  3. The router never fails an event: transport errors, missing records,
//     and empty resolutions all terminate as Dispatched or Skipped, so
//     batch item failures are reported only for infrastructure-level panics
//     upstream of routing (none today).
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"rallypoint/internal/config"
	"rallypoint/internal/db"
	"rallypoint/internal/fanout"
	"rallypoint/internal/push"
	"rallypoint/internal/types"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
// slog.Logger satisfies Info, Error, and Warn directly but With returns
// *slog.Logger, not types.Logger, so an adapter is necessary.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// Handler holds the dependencies for the fanout worker Lambda handler.
type Handler struct {
	router *fanout.Router
	logger types.Logger
}

// Handle processes an SQS event containing one or more record-created
// envelopes. Each message is processed independently. Lambda SQS integration
// uses partial batch responses: messages that fail processing are returned
// in batchItemFailures so SQS can retry them.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.Error("failed to process SQS message",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			// Report partial failure so SQS retries only this message.
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

// processMessage handles a single SQS message through the fan-out pipeline.
func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	var msg types.EventMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		h.logger.Error("failed to unmarshal event envelope",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		// Permanent parse failure - do not retry (return nil to ACK).
		return nil
	}

	logger := h.logger.With(
		"event_id", msg.EventID,
		"kind", string(msg.Kind),
		"trace_id", msg.TraceID,
	)

	logger.Info("processing event envelope")

	// Record queue lag for observability.
	if sentTimestamp, ok := record.Attributes["SentTimestamp"]; ok {
		if sent, err := parseMillisTimestamp(sentTimestamp); err == nil {
			logger.Info("queue lag observed", "lag_ms", time.Since(sent).Milliseconds())
		}
	}

	eventRecord, err := msg.Record()
	if err != nil {
		// Malformed envelope content is permanent: the variant payload
		// will never start matching its kind on retry.
		logger.Warn("discarding malformed event record", "error", err.Error())
		return nil
	}

	result := h.router.Route(ctx, eventRecord)

	if result.Dispatched {
		logger.Info("event dispatched",
			"success_count", result.Outcome.SuccessCount,
			"failure_count", result.Outcome.FailureCount,
		)
	} else {
		logger.Info("event skipped", "reason", string(result.SkipReason))
	}

	return nil
}

// parseMillisTimestamp parses a millisecond-epoch string into a time.Time.
// Used for the SQS SentTimestamp attribute to calculate queue lag.
func parseMillisTimestamp(ms string) (time.Time, error) {
	millis, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis), nil
}

func main() {
	// Initialize structured logger at startup (Cold Start).
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("Fanout Worker Lambda initializing (cold start)")

	typedLogger := &slogAdapter{logger: logger}

	// Load service configuration. Lambda environments resolve *_SSM_PARAM
	// bindings via the SSM provider.
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Load AWS SDK configuration.
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("Failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	// Connect to the record store.
	poolCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.NewPool(poolCtx, cfg.Database)
	cancel()
	if err != nil {
		logger.Error("Failed to connect to record store", "error", err)
		os.Exit(1)
	}
	store := db.NewStore(pool)

	// Initialize the FCM delivery channel.
	channel := push.NewFCMClient(
		&http.Client{Timeout: cfg.Push.Timeout},
		push.FCMClientConfig{
			ServerKey: cfg.Push.ServerKey.Unmask(),
			Endpoint:  cfg.Push.Endpoint,
			UserAgent: cfg.Push.UserAgent,
			Logger:    logger,
		},
	)

	// Initialize CloudWatch metrics.
	var metrics fanout.Metrics = fanout.NopMetrics{}
	if cfg.Observability.EnableMetrics {
		cwClient := cloudwatch.NewFromConfig(awsCfg)
		metrics = fanout.NewCloudWatchMetrics(cwClient, cfg.Observability.MetricNamespace, typedLogger)
	}

	// Assemble the fan-out router.
	router := fanout.NewRouter(
		fanout.NewRecipientResolver(store, typedLogger, cfg.Fanout.DedupeRecipients),
		fanout.NewTokenResolver(store, typedLogger, cfg.Fanout.TokenConcurrency),
		fanout.NewDispatcher(channel, typedLogger),
		metrics,
		typedLogger,
	)

	handler := &Handler{
		router: router,
		logger: typedLogger,
	}

	logger.Info("Fanout Worker Lambda initialized",
		"event_queue", cfg.AWS.EventQueue,
		"metric_namespace", cfg.Observability.MetricNamespace,
		"fcm_endpoint", cfg.Push.Endpoint,
		"token_concurrency", cfg.Fanout.TokenConcurrency,
		"dedupe_recipients", cfg.Fanout.DedupeRecipients,
	)

	lambda.Start(handler.Handle)
}

// Compile-time assertion that slogAdapter implements types.Logger.
var _ types.Logger = (*slogAdapter)(nil)

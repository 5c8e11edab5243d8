// Package main implements the event-injector CLI tool for publishing
// synthetic record-created envelopes to the event queue, bypassing the
// record store's change feed.
//
// This tool is intended for local development and operational debugging of
// the fanout worker. It constructs a types.EventRecord from flags and
// publishes it via queue.EventPublisher.
//
// Usage:
//
//	go run ./cmd/tools/event-injector --kind=session_created --host=user_1 --participants=user_1,user_2,user_3
//	go run ./cmd/tools/event-injector --kind=circle_message_created --circle=circle_9 --sender=user_2 --text="who's on tonight?"
//	go run ./cmd/tools/event-injector --kind=direct_message_created --chat=chat_4 --sender=user_2 --sender-name=Maya --text=hey
//	go run ./cmd/tools/event-injector --kind=call_created --caller-name=Ana --receivers=user_2,user_3
//	go run ./cmd/tools/event-injector --dry-run --kind=call_created --receivers=user_2
//
// The tool reads SQS_EVENTS and AWS credentials from environment variables
// (or a .env file via godotenv). In --dry-run mode, it prints the
// constructed JSON envelope without sending.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"rallypoint/internal/config"
	"rallypoint/internal/queue"
	"rallypoint/internal/types"
)

const publishSource = "event-injector"

func main() {
	kindFlag := flag.String("kind", "", "Event kind (session_created, circle_message_created, direct_message_created, call_created)")
	dryRunFlag := flag.Bool("dry-run", false, "Print the JSON envelope without sending")

	// session_created
	hostFlag := flag.String("host", "", "Session host user id")
	participantsFlag := flag.String("participants", "", "Comma-separated session participant user ids")
	activityFlag := flag.String("activity", "", "Session activity title")

	// circle_message_created / direct_message_created
	circleFlag := flag.String("circle", "", "Circle id")
	chatFlag := flag.String("chat", "", "Direct chat id")
	senderFlag := flag.String("sender", "", "Message sender user id")
	senderNameFlag := flag.String("sender-name", "", "Message sender display name")
	textFlag := flag.String("text", "", "Message text")

	// call_created
	callerNameFlag := flag.String("caller-name", "", "Caller display name")
	receiversFlag := flag.String("receivers", "", "Comma-separated call receiver user ids")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: event-injector [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Publish a synthetic record-created envelope to the event queue.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *kindFlag == "" {
		fmt.Fprintf(os.Stderr, "error: --kind is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	record, err := buildRecord(types.EventKind(*kindFlag), recordFlags{
		host:         *hostFlag,
		participants: splitList(*participantsFlag),
		activity:     *activityFlag,
		circle:       *circleFlag,
		chat:         *chatFlag,
		sender:       *senderFlag,
		senderName:   *senderNameFlag,
		text:         *textFlag,
		callerName:   *callerNameFlag,
		receivers:    splitList(*receiversFlag),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *dryRunFlag {
		if err := printEnvelope(record); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Load .env for local development; absence is not an error.
	_ = godotenv.Load()

	queueURL := os.Getenv("SQS_EVENTS")
	if queueURL == "" {
		fmt.Fprintf(os.Stderr, "error: SQS_EVENTS is not set\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading AWS config: %v\n", err)
		os.Exit(1)
	}

	// LocalStack support.
	endpointURL := os.Getenv("AWS_ENDPOINT_URL")
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = &endpointURL
		}
	})

	publisher := queue.NewEventPublisher(sqsClient, config.AWSConfig{EventQueue: queueURL}, logger)

	if err := publisher.PublishRecord(ctx, record, publishSource); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("published %s envelope to %s\n", record.Kind, queueURL)
}

// recordFlags carries the parsed flag values into buildRecord.
type recordFlags struct {
	host         string
	participants []string
	activity     string
	circle       string
	chat         string
	sender       string
	senderName   string
	text         string
	callerName   string
	receivers    []string
}

// buildRecord constructs and validates an EventRecord for the given kind.
func buildRecord(kind types.EventKind, f recordFlags) (*types.EventRecord, error) {
	record := &types.EventRecord{Kind: kind}

	switch kind {
	case types.EventSessionCreated:
		record.Session = &types.SessionCreated{
			SessionID:      "inj_" + uuid.New().String(),
			ActivityTitle:  f.activity,
			HostID:         f.host,
			ParticipantIDs: f.participants,
		}
	case types.EventCircleMessageCreated:
		record.CircleMessage = &types.CircleMessageCreated{
			CircleID:   f.circle,
			MessageID:  "inj_" + uuid.New().String(),
			SenderID:   f.sender,
			SenderName: f.senderName,
			Text:       f.text,
		}
	case types.EventDirectMessageCreated:
		record.DirectMessage = &types.DirectMessageCreated{
			ChatID:     f.chat,
			MessageID:  "inj_" + uuid.New().String(),
			SenderID:   f.sender,
			SenderName: f.senderName,
			Text:       f.text,
		}
	case types.EventCallCreated:
		record.Call = &types.CallCreated{
			CallID:      "inj_" + uuid.New().String(),
			CallerName:  f.callerName,
			ReceiverIDs: f.receivers,
		}
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// printEnvelope renders the envelope that PublishRecord would send,
// with placeholder identity fields.
func printEnvelope(record *types.EventRecord) error {
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

	out, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// splitList splits a comma-separated flag value into trimmed non-empty parts.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

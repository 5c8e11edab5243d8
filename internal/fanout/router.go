package fanout

import (
	"context"
	"time"

	"rallypoint/internal/types"
)

// SkipReason explains why an event produced no delivery attempt.
type SkipReason string

const (
	SkipNoRecipients SkipReason = "no_recipients"
	SkipNoTokens     SkipReason = "no_tokens"
	SkipInvalidEvent SkipReason = "invalid_event"
)

// Result is the terminal state of one routed event: either Dispatched with
// an outcome, or Skipped with a reason. Dispatched is terminal-successful
// even when the outcome carries failures; individual send failures are
// observability data only.
type Result struct {
	Dispatched bool
	Outcome    types.DispatchOutcome
	SkipReason SkipReason
}

// Router coordinates one event through recipient resolution, token
// resolution, payload construction, and dispatch. Nothing inside the
// fan-out path is allowed to propagate past Route: every failure is
// absorbed at the smallest possible scope and logged.
type Router struct {
	recipients *RecipientResolver
	tokens     *TokenResolver
	dispatcher *Dispatcher
	metrics    Metrics
	logger     types.Logger
}

func NewRouter(
	recipients *RecipientResolver,
	tokens *TokenResolver,
	dispatcher *Dispatcher,
	metrics Metrics,
	logger types.Logger,
) *Router {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Router{
		recipients: recipients,
		tokens:     tokens,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Route processes one event to completion. It never returns an error to the
// caller; a malformed record or empty resolution is reported as Skipped.
func (r *Router) Route(ctx context.Context, record *types.EventRecord) Result {
	start := time.Now()

	log := r.logger.With("event_kind", string(record.Kind))

	if err := record.Validate(); err != nil {
		log.Error("rejecting malformed event record", "error", err.Error())
		r.metrics.RecordSkip(ctx, record.Kind, SkipInvalidEvent)
		return Result{SkipReason: SkipInvalidEvent}
	}

	recipients, err := r.recipients.Resolve(ctx, record)
	if err != nil {
		log.Error("recipient resolution rejected event", "error", err.Error())
		r.metrics.RecordSkip(ctx, record.Kind, SkipInvalidEvent)
		return Result{SkipReason: SkipInvalidEvent}
	}
	if len(recipients) == 0 {
		log.Info("no recipients for event, skipping dispatch")
		r.metrics.RecordSkip(ctx, record.Kind, SkipNoRecipients)
		return Result{SkipReason: SkipNoRecipients}
	}

	tokens := r.tokens.ResolveMany(ctx, recipients)
	r.metrics.RecordResolution(ctx, record.Kind, len(recipients), len(tokens))
	if len(tokens) == 0 {
		log.Info("no device tokens resolved, skipping dispatch",
			"recipients", len(recipients),
		)
		r.metrics.RecordSkip(ctx, record.Kind, SkipNoTokens)
		return Result{SkipReason: SkipNoTokens}
	}

	payload := BuildPayload(record)

	outcome := r.dispatcher.Dispatch(ctx, payload, tokens)

	log.Info("event dispatched",
		"recipients", len(recipients),
		"tokens", len(tokens),
		"success", outcome.SuccessCount,
		"failure", outcome.FailureCount,
	)

	r.metrics.RecordDispatch(ctx, record.Kind, dispatchResult(outcome))
	r.metrics.RecordLatency(ctx, record.Kind, time.Since(start))

	return Result{Dispatched: true, Outcome: outcome}
}

func dispatchResult(outcome types.DispatchOutcome) MetricResult {
	switch {
	case outcome.Zero():
		// Tokens were resolved but nothing was delivered: the transport
		// itself failed.
		return MetricResultFailure
	case outcome.FailureCount == 0:
		return MetricResultSuccess
	case outcome.SuccessCount > 0:
		return MetricResultPartial
	default:
		return MetricResultFailure
	}
}

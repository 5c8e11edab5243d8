package fanout

import (
	"context"

	"rallypoint/internal/types"
)

// Dispatcher executes delivery for one built payload against a resolved
// token list and aggregates per-address outcomes. Transport failures are
// absorbed here: the event source applies its own retry-on-error semantics,
// and a redelivered event would duplicate every successful send.
type Dispatcher struct {
	channel types.DeliveryChannel
	logger  types.Logger
}

func NewDispatcher(channel types.DeliveryChannel, logger types.Logger) *Dispatcher {
	return &Dispatcher{
		channel: channel,
		logger:  logger,
	}
}

// Dispatch sends the payload to every token. Zero tokens is a no-op. One
// token issues a single-target send; more issue one multicast call. Failed
// sends are counted and logged, never retried, and never returned as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, payload *types.NotificationPayload, tokens []string) types.DispatchOutcome {
	switch len(tokens) {
	case 0:
		return types.DispatchOutcome{}
	case 1:
		return d.dispatchOne(ctx, payload, tokens[0])
	default:
		return d.dispatchMany(ctx, payload, tokens)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, payload *types.NotificationPayload, token string) types.DispatchOutcome {
	if err := d.channel.SendOne(ctx, token, payload); err != nil {
		d.logger.Warn("single-target send failed",
			"error", err.Error(),
		)
		return types.DispatchOutcome{
			FailureCount: 1,
			Failures: []types.SendResponse{
				{Token: token, Error: err.Error()},
			},
		}
	}
	return types.DispatchOutcome{SuccessCount: 1}
}

func (d *Dispatcher) dispatchMany(ctx context.Context, payload *types.NotificationPayload, tokens []string) types.DispatchOutcome {
	result, err := d.channel.SendMulticast(ctx, tokens, payload)
	if err != nil {
		// Transport-level failure: the whole batch went nowhere. Swallow
		// and report an empty outcome so the event handler completes.
		d.logger.Error("multicast send failed",
			"tokens", len(tokens),
			"error", err.Error(),
		)
		return types.DispatchOutcome{}
	}

	outcome := types.DispatchOutcome{
		SuccessCount: result.SuccessCount,
		FailureCount: result.FailureCount,
	}
	for _, resp := range result.Responses {
		if !resp.Success {
			outcome.Failures = append(outcome.Failures, resp)
		}
	}

	if outcome.FailureCount > 0 {
		d.logger.Warn("multicast send had failures",
			"success", outcome.SuccessCount,
			"failure", outcome.FailureCount,
		)
	}

	return outcome
}

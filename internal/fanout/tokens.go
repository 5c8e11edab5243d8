package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"

	"rallypoint/internal/types"
)

// defaultTokenConcurrency bounds concurrent profile reads when no limit is
// configured.
const defaultTokenConcurrency = 8

// TokenResolver maps user ids to their current device tokens. Per-user
// lookup failures are isolated: one bad record never suppresses delivery
// to the remaining recipients in a batch.
type TokenResolver struct {
	store       types.ProfileStore
	logger      types.Logger
	concurrency int
}

func NewTokenResolver(store types.ProfileStore, logger types.Logger, concurrency int) *TokenResolver {
	if concurrency <= 0 {
		concurrency = defaultTokenConcurrency
	}
	return &TokenResolver{
		store:       store,
		logger:      logger,
		concurrency: concurrency,
	}
}

// ResolveAddress returns the user's device token, or ok=false when the
// profile is missing or carries no token.
func (r *TokenResolver) ResolveAddress(ctx context.Context, userID string) (string, bool, error) {
	profile, err := r.store.GetProfile(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if profile.DeviceToken == "" {
		return "", false, nil
	}
	return profile.DeviceToken, true, nil
}

// ResolveMany resolves each user id independently and concurrently, dropping
// users with no profile or no stored token. The returned addresses preserve
// the input order of the users they were resolved for. Lookup errors are
// logged and the affected user excluded; ResolveMany itself never fails.
func (r *TokenResolver) ResolveMany(ctx context.Context, userIDs []string) []string {
	if len(userIDs) == 0 {
		return nil
	}

	// Slot per input id keeps results in recipient order regardless of
	// completion order. Each goroutine writes only its own slot.
	slots := make([]string, len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, userID := range userIDs {
		g.Go(func() error {
			token, ok, err := r.ResolveAddress(gctx, userID)
			if err != nil {
				r.logger.Warn("token lookup failed, excluding user",
					"user_id", userID,
					"error", err.Error(),
				)
				return nil
			}
			if !ok {
				return nil
			}

			slots[i] = token
			return nil
		})
	}

	// Workers always return nil; Wait only synchronizes.
	_ = g.Wait()

	tokens := make([]string, 0, len(userIDs))
	for _, token := range slots {
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

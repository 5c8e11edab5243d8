package types

import "context"

// Logger defines the structured logging interface used throughout the service.
// Worker and API entry points adapt *slog.Logger to this interface.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// ProfileStore reads user profiles from the record store. Implementations
// must distinguish "not found" (AppError with ErrCodeNotFoundProfile) from
// transient failures (ErrCodeInternalDB); the engine treats both as "no
// usable data" but logs them differently.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// CircleStore reads circle (group chat) records from the record store.
type CircleStore interface {
	GetCircle(ctx context.Context, circleID string) (*Circle, error)
}

// DirectChatStore reads two-party chat records from the record store.
type DirectChatStore interface {
	GetDirectChat(ctx context.Context, chatID string) (*DirectChat, error)
}

// RecordStore aggregates the read-only record store surface the fan-out
// engine depends on.
type RecordStore interface {
	ProfileStore
	CircleStore
	DirectChatStore
}

// DeliveryChannel is the external push-notification transport. Priority and
// TTL on the payload are request hints, not guarantees.
type DeliveryChannel interface {
	// SendOne issues a single-target send. The result is success or failure
	// as a whole.
	SendOne(ctx context.Context, token string, payload *NotificationPayload) error

	// SendMulticast issues one multi-target send carrying all tokens and
	// returns a per-token breakdown in request order.
	SendMulticast(ctx context.Context, tokens []string, payload *NotificationPayload) (*MulticastResult, error)
}

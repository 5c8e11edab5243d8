package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"rallypoint/internal/types"
)

// ChatRepository provides read access to the direct_chats table. It implements
// types.DirectChatStore for direct-message recipient resolution.
type ChatRepository struct {
	db DBTX
}

// NewChatRepository creates a new ChatRepository backed by the given database
// connection (pool or transaction).
func NewChatRepository(db DBTX) *ChatRepository {
	return &ChatRepository{db: db}
}

// GetDirectChat retrieves a direct chat by id, including its two-party
// participant list. Returns an AppError with ErrCodeNotFoundChat if no chat
// exists.
func (r *ChatRepository) GetDirectChat(ctx context.Context, chatID string) (*types.DirectChat, error) {
	row := r.db.QueryRow(ctx,
		`SELECT d.id, d.participant_ids
		 FROM direct_chats d
		 WHERE d.id = $1`,
		chatID,
	)

	var chat types.DirectChat
	if err := row.Scan(&chat.ChatID, &chat.ParticipantIDs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundChat, "direct chat not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve direct chat", err)
	}
	return &chat, nil
}

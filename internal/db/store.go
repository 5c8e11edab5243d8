package db

import "rallypoint/internal/types"

// Compile-time assertion that Store implements types.RecordStore.
var _ types.RecordStore = (*Store)(nil)

// Store aggregates the individual repositories into the single read-only
// record store surface the fan-out engine depends on.
type Store struct {
	*ProfileRepository
	*CircleRepository
	*ChatRepository
}

// NewStore creates a Store with all repositories sharing the given connection.
func NewStore(db DBTX) *Store {
	return &Store{
		ProfileRepository: NewProfileRepository(db),
		CircleRepository:  NewCircleRepository(db),
		ChatRepository:    NewChatRepository(db),
	}
}

package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"rallypoint/internal/types"
)

// CircleRepository provides read access to the circles table. It implements
// types.CircleStore for circle-message recipient resolution.
type CircleRepository struct {
	db DBTX
}

// NewCircleRepository creates a new CircleRepository backed by the given
// database connection (pool or transaction).
func NewCircleRepository(db DBTX) *CircleRepository {
	return &CircleRepository{db: db}
}

// GetCircle retrieves a circle by id, including its full member list.
// Returns an AppError with ErrCodeNotFoundCircle if no circle exists.
func (r *CircleRepository) GetCircle(ctx context.Context, circleID string) (*types.Circle, error) {
	row := r.db.QueryRow(ctx,
		`SELECT c.id, c.name, c.member_ids
		 FROM circles c
		 WHERE c.id = $1`,
		circleID,
	)

	var c types.Circle
	var name *string
	if err := row.Scan(&c.CircleID, &name, &c.MemberIDs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundCircle, "circle not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve circle", err)
	}
	if name != nil {
		c.Name = *name
	}
	return &c, nil
}

package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"rallypoint/internal/types"
)

// ProfileRepository provides read access to the profiles table. It implements
// types.ProfileStore for the fan-out engine's token resolution.
type ProfileRepository struct {
	db DBTX
}

// NewProfileRepository creates a new ProfileRepository backed by the given
// database connection (pool or transaction).
func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// profileColumns is the standard column set for profile queries.
const profileColumns = `p.user_id, p.display_name, p.device_token, p.updated_at`

// scanProfile scans a single profile row. device_token and display_name may
// be NULL for users who never registered a device or name.
func scanProfile(row pgx.Row) (*types.Profile, error) {
	var p types.Profile
	var (
		displayName *string
		deviceToken *string
	)
	err := row.Scan(
		&p.UserID,
		&displayName,
		&deviceToken,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if displayName != nil {
		p.DisplayName = *displayName
	}
	if deviceToken != nil {
		p.DeviceToken = *deviceToken
	}
	return &p, nil
}

// GetProfile retrieves a user profile by its user id.
// Returns an AppError with ErrCodeNotFoundProfile if no profile exists.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*types.Profile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles p
		 WHERE p.user_id = $1`,
		userID,
	)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundProfile, "profile not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve profile", err)
	}
	return p, nil
}

// SetDeviceToken upserts the device token for a user. An empty token clears
// the stored address (logout). Used by the record store's registration path
// and by integration tooling; the fan-out engine itself never writes.
func (r *ProfileRepository) SetDeviceToken(ctx context.Context, userID string, token string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO profiles (user_id, device_token, updated_at)
		 VALUES ($1, NULLIF($2, ''), NOW())
		 ON CONFLICT (user_id)
		 DO UPDATE SET device_token = NULLIF($2, ''), updated_at = NOW()`,
		userID,
		token,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to set device token", err)
	}
	return nil
}

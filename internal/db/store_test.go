package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rallypoint/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- ProfileRepository Tests ---

func TestProfileRepository_GetProfile_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	updated := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "user_a" // user_id
			name := "Ana"                 // display_name (nullable)
			*dest[1].(**string) = &name
			token := "tok_a" // device_token (nullable)
			*dest[2].(**string) = &token
			*dest[3].(*time.Time) = updated // updated_at
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"user_a"}).Return(row)

	p, err := repo.GetProfile(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, "user_a", p.UserID)
	assert.Equal(t, "Ana", p.DisplayName)
	assert.Equal(t, "tok_a", p.DeviceToken)
	db.AssertExpectations(t)
}

func TestProfileRepository_GetProfile_NullToken(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "user_b"
			*dest[1].(**string) = nil
			*dest[2].(**string) = nil
			*dest[3].(*time.Time) = time.Now()
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"user_b"}).Return(row)

	p, err := repo.GetProfile(ctx, "user_b")
	require.NoError(t, err)
	assert.Empty(t, p.DeviceToken, "NULL device_token should scan to empty string")
}

func TestProfileRepository_GetProfile_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"ghost"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetProfile(ctx, "ghost")
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundProfile, appErr.Code)
}

func TestProfileRepository_GetProfile_QueryError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"user_a"}).
		Return(&mockRow{scanErr: errors.New("connection reset")})

	_, err := repo.GetProfile(ctx, "user_a")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestProfileRepository_SetDeviceToken(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"user_a", "tok_new"}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.SetDeviceToken(ctx, "user_a", "tok_new"))
	db.AssertExpectations(t)
}

// --- CircleRepository Tests ---

func TestCircleRepository_GetCircle_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCircleRepository(db)
	ctx := context.Background()

	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "circle_1"
			name := "Weekend Squad"
			*dest[1].(**string) = &name
			*dest[2].(*[]string) = []string{"u1", "u2", "u3"}
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"circle_1"}).Return(row)

	c, err := repo.GetCircle(ctx, "circle_1")
	require.NoError(t, err)
	assert.Equal(t, "circle_1", c.CircleID)
	assert.Equal(t, "Weekend Squad", c.Name)
	assert.Equal(t, []string{"u1", "u2", "u3"}, c.MemberIDs)
}

func TestCircleRepository_GetCircle_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCircleRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"missing"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetCircle(ctx, "missing")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundCircle, appErr.Code)
}

// --- ChatRepository Tests ---

func TestChatRepository_GetDirectChat_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewChatRepository(db)
	ctx := context.Background()

	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "chat_1"
			*dest[1].(*[]string) = []string{"u1", "u2"}
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"chat_1"}).Return(row)

	chat, err := repo.GetDirectChat(ctx, "chat_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, chat.ParticipantIDs)
}

func TestChatRepository_GetDirectChat_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewChatRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"missing"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetDirectChat(ctx, "missing")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundChat, appErr.Code)
}

// --- Store ---

func TestStoreImplementsRecordStore(t *testing.T) {
	store := NewStore(new(mockDBTX))
	var _ types.RecordStore = store
	assert.NotNil(t, store.ProfileRepository)
	assert.NotNil(t, store.CircleRepository)
	assert.NotNil(t, store.ChatRepository)
}

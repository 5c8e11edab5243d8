// Package rtc issues time-boxed signed credentials for joining real-time
// audio/video channels. The credential is an HS256 JWT carrying the channel
// name and optional numeric participant id.
package rtc

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rallypoint/internal/types"
)

// DefaultTokenTTL is the credential validity applied when the service is
// constructed without an explicit TTL.
const DefaultTokenTTL = 3600 * time.Second

// ChannelClaims is the JWT payload for one channel credential.
type ChannelClaims struct {
	jwt.RegisteredClaims
	// Channel is the real-time channel the bearer may join.
	Channel string `json:"channel"`
	// UID is the numeric participant id within the channel; zero means the
	// media server assigns one.
	UID uint32 `json:"uid,omitempty"`
}

// TokenService signs channel join credentials.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	logger types.Logger

	// now is swappable in tests for deterministic expiry assertions.
	now func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, issuer string, logger types.Logger) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		logger: logger,
		now:    time.Now,
	}
}

// IssueResult is the signed credential plus the claims it carries, so the
// handler can echo expiry back to the caller.
type IssueResult struct {
	Token     string
	Channel   string
	UID       uint32
	ExpiresAt time.Time
}

// Issue signs a credential for the channel. uid is the caller-supplied
// numeric participant id as a string; empty means unassigned. A non-numeric
// uid is rejected with a validation error.
func (s *TokenService) Issue(channel, uid string) (*IssueResult, error) {
	if channel == "" {
		return nil, types.NewAppError(
			types.ErrCodeValidationMissingChannel,
			"channel name is required",
			nil,
		)
	}

	var numericUID uint32
	if uid != "" {
		parsed, err := strconv.ParseUint(uid, 10, 32)
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeValidationInvalidUID,
				"uid must be a numeric participant id",
				err,
			)
		}
		numericUID = uint32(parsed)
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	claims := ChannelClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Channel: channel,
		UID:     numericUID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to sign channel credential",
			err,
		)
	}

	return &IssueResult{
		Token:     signed,
		Channel:   channel,
		UID:       numericUID,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify parses and validates a credential previously produced by Issue.
// Used by tests and by operators debugging tokens; the media server does its
// own verification.
func (s *TokenService) Verify(tokenString string) (*ChannelClaims, error) {
	claims := &ChannelClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeAuthTokenInvalid,
			"channel credential is invalid",
			err,
		)
	}
	if !token.Valid {
		return nil, types.NewAppError(
			types.ErrCodeAuthTokenInvalid,
			"channel credential failed validation",
			nil,
		)
	}
	return claims, nil
}

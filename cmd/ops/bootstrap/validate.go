package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// ValidationResult holds the outcome of a validation check. It provides
// both a boolean pass/fail signal and a human-readable message suitable
// for display in the bootstrap CLI.
type ValidationResult struct {
	// Valid is true if the input passed all validation checks.
	Valid bool

	// Message is a human-readable description of the result.
	// On success, it describes what was validated (e.g., "database connection verified").
	// On failure, it describes why validation failed.
	Message string
}

// HTTPClient is the interface used by validators that make outbound HTTP calls.
// It enables injecting mock HTTP transports for testing without making real
// network calls.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DatabaseConnector abstracts the database connection logic for testing.
// In production, the real implementation uses pgx.Connect. Tests inject
// a mock that simulates connection success/failure.
type DatabaseConnector interface {
	// Connect attempts to establish a connection to the database at the
	// given DSN. It returns an error if the connection fails.
	// The implementation MUST close the connection before returning.
	Connect(ctx context.Context, dsn string) error
}

// PgxConnector is the production implementation of DatabaseConnector.
// It uses pgx.Connect to make a real TCP connection to the database.
type PgxConnector struct{}

// Connect establishes a connection to the database using pgx and immediately
// closes it. The purpose is to verify that the DSN is reachable and the
// credentials are valid, not to maintain an open connection.
func (c *PgxConnector) Connect(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	return conn.Close(ctx)
}

// Validator encapsulates the dependencies needed by input validation functions.
// It is constructed during bootstrap initialization and threaded through
// the validation phases.
type Validator struct {
	httpClient HTTPClient
	dbConn     DatabaseConnector
}

// NewValidator creates a Validator with production dependencies: a real
// HTTP client with a 10-second timeout and a real pgx connector.
func NewValidator() *Validator {
	return &Validator{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		dbConn: &PgxConnector{},
	}
}

// NewValidatorWithDeps creates a Validator with injected dependencies
// for testing.
func NewValidatorWithDeps(httpClient HTTPClient, dbConn DatabaseConnector) *Validator {
	return &Validator{
		httpClient: httpClient,
		dbConn:     dbConn,
	}
}

// validateTimeout is the per-probe timeout for active validation calls.
// This is separate from the HTTP client timeout to serve as an outer bound
// that also covers DNS resolution, TLS handshake, etc.
const validateTimeout = 15 * time.Second

// ---------------------------------------------------------------------------
// ValidateDatabaseURL
// ---------------------------------------------------------------------------

// ValidateDatabaseURL validates a PostgreSQL connection string.
//
// Validation steps:
//  1. Parse the URL and verify the postgres:// or postgresql:// scheme.
//  2. Attempt an actual connection using pgx to verify the credentials
//     and network reachability.
//
// The connection is immediately closed after verification. This function
// does not maintain a persistent connection.
func (v *Validator) ValidateDatabaseURL(ctx context.Context, rawURL string) ValidationResult {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ValidationResult{Valid: false, Message: "database URL must not be empty"}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("invalid URL format: %v", err),
		}
	}

	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("expected postgres:// or postgresql:// scheme, got %q", parsed.Scheme),
		}
	}

	if parsed.Hostname() == "" {
		return ValidationResult{
			Valid:   false,
			Message: "database URL must include a host",
		}
	}

	// Attempt a real connection to verify credentials and reachability.
	connCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	if err := v.dbConn.Connect(connCtx, rawURL); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("connection failed: %v", err),
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("database connection verified (host=%s)", parsed.Hostname()),
	}
}

// ---------------------------------------------------------------------------
// ValidateFCMServerKey
// ---------------------------------------------------------------------------

// fcmProbeEndpoint is the legacy FCM HTTP endpoint used to verify the
// server key. A POST with an intentionally empty payload is enough to
// distinguish an invalid key (401) from a valid one (400, complaining
// about the missing registration target).
const fcmProbeEndpoint = "https://fcm.googleapis.com/fcm/send"

// ValidateFCMServerKey validates an FCM server key by:
//  1. Checking the key is non-trivial in length.
//  2. Making a POST request to the legacy FCM send endpoint with an empty
//     JSON body. FCM authenticates the key before parsing the payload, so
//     an invalid key yields 401 while a valid key yields 400.
//
// No message is sent by the probe; the request never names a registration
// token, so FCM rejects it after authentication.
func (v *Validator) ValidateFCMServerKey(ctx context.Context, key string) ValidationResult {
	key = strings.TrimSpace(key)
	if key == "" {
		return ValidationResult{Valid: false, Message: "FCM server key must not be empty"}
	}

	if len(key) <= 20 {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("FCM server key must be longer than 20 characters (got %d)", len(key)),
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodPost, fcmProbeEndpoint, strings.NewReader("{}"))
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	// The legacy FCM API authenticates with "key=" rather than "Bearer".
	req.Header.Set("Authorization", "key="+key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "RallyPoint-Bootstrap/1.0")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("FCM API probe failed: %v", err),
		}
	}
	defer resp.Body.Close()

	// Read and discard the body to allow connection reuse.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("FCM API returned HTTP %d: server key is invalid or revoked", resp.StatusCode),
		}
	}

	// 400 means the key authenticated and FCM rejected the empty payload,
	// which is the expected outcome of the probe. 200 would also indicate
	// a working key.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("FCM API returned unexpected HTTP %d: %s", resp.StatusCode, truncateBody(body, 200)),
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: "FCM server key verified (authenticated against send endpoint)",
	}
}

// ---------------------------------------------------------------------------
// ValidateAPIKey
// ---------------------------------------------------------------------------

// ValidateAPIKey validates the shared client API key using a length check
// only. The key is chosen by the operator and has no vendor endpoint to
// probe; the minimum length guards against weak keys ending up hashed
// into SSM.
func (v *Validator) ValidateAPIKey(_ context.Context, key string) ValidationResult {
	key = strings.TrimSpace(key)
	if key == "" {
		return ValidationResult{Valid: false, Message: "API key must not be empty"}
	}

	if len(key) <= 20 {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("API key must be longer than 20 characters (got %d)", len(key)),
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("API key accepted (length: %d chars)", len(key)),
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// truncateBody returns the first n bytes of body as a string, appending
// "..." if truncation occurred. This is used for including partial API
// response bodies in error messages without overwhelming the user.
func truncateBody(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}

// Package config defines the global configuration structure for the RallyPoint
// notification tier. Configuration is loaded once at process initialization
// (Lambda cold start) and is immutable thereafter. It follows 12-Factor App
// principles by strictly separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup.
package config

import (
	"time"

	"rallypoint/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	// System metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"rallypoint-fanout"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain configurations
	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Push          PushConfig
	RTC           RTCConfig
	Fanout        FanoutConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// Build metadata (injected via ldflags, not env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration for the token API.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// DatabaseConfig holds record store connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// EventQueue is the SQS queue carrying record-created event envelopes.
	EventQueue string `envconfig:"SQS_EVENTS" validate:"required,url"`

	// LocalStack support (empty in prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// PushConfig holds delivery channel (FCM) credentials and tuning.
type PushConfig struct {
	ServerKey SecretString  `envconfig:"FCM_SERVER_KEY" validate:"required"`
	Endpoint  string        `envconfig:"FCM_ENDPOINT" default:"https://fcm.googleapis.com/fcm/send"`
	Timeout   time.Duration `envconfig:"FCM_TIMEOUT" default:"10s"`
	UserAgent string        `envconfig:"PUSH_USER_AGENT" default:"RallyPoint-Push/1.0"`
}

// RTCConfig holds the signing configuration for real-time channel credentials.
type RTCConfig struct {
	SigningSecret SecretString  `envconfig:"RTC_SIGNING_SECRET" validate:"required,min=32"`
	TokenTTL      time.Duration `envconfig:"RTC_TOKEN_TTL" default:"1h"`
	Issuer        string        `envconfig:"RTC_TOKEN_ISSUER" default:"rallypoint"`
}

// FanoutConfig holds engine policy knobs.
type FanoutConfig struct {
	// DedupeRecipients removes duplicate user ids from a session's
	// participant list before token resolution. Off by default: source data
	// is trusted to be de-duplicated upstream.
	DedupeRecipients bool `envconfig:"FANOUT_DEDUPE_RECIPIENTS" default:"false"`

	// TokenConcurrency bounds the number of concurrent per-recipient
	// profile lookups within one event.
	TokenConcurrency int `envconfig:"FANOUT_TOKEN_CONCURRENCY" default:"8"`
}

// SecurityConfig holds authentication settings for the token API.
type SecurityConfig struct {
	// APIKeyHash is the bcrypt hash of the shared caller API key.
	APIKeyHash SecretString `envconfig:"API_KEY_HASH" validate:"required"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"RallyPoint/Fanout"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)

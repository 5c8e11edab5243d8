package core

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"rallypoint/internal/config"
	"rallypoint/internal/types"
)

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	s, err := NewServer(cfg, slog.Default())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s
}

// --- RequestID middleware ---

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var captured string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = types.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if captured == "" {
		t.Error("expected a generated request id in context")
	}
	if got := w.Header().Get("X-Request-Id"); got != captured {
		t.Errorf("response header %q does not match context id %q", got, captured)
	}
}

func TestRequestIDMiddleware_PropagatesIncomingID(t *testing.T) {
	var captured string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = types.GetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "upstream-id")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if captured != "upstream-id" {
		t.Errorf("expected incoming id to be reused, got %q", captured)
	}
}

// --- Recoverer ---

func TestRecoverer_CatchesPanic(t *testing.T) {
	s := newTestServer(t, nil)

	handler := s.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}

	var body APIErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("recoverer must write valid JSON: %v", err)
	}
	if body.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("unexpected code: %q", body.Error.Code)
	}
}

// --- Security headers ---

func TestSecurityHeadersMiddleware(t *testing.T) {
	s := newTestServer(t, nil)

	handler := s.SecurityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY, got %q", got)
	}
}

// --- API key auth ---

func newAuthedServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash test key: %v", err)
	}
	cfg := &config.Config{}
	cfg.Security.APIKeyHash = types.SecretString(hash)
	return newTestServer(t, cfg)
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	s := newAuthedServer(t, "sk_test_valid")

	var caller types.Caller
	var authenticated bool
	handler := s.APIKeyAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, authenticated = types.GetCaller(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/v1/rtc/token", nil)
	r.Header.Set("Authorization", "Bearer sk_test_valid")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Result().StatusCode)
	}
	if !authenticated {
		t.Fatal("expected caller in context")
	}
	if caller.AppID == "" {
		t.Error("expected populated caller")
	}
}

func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	s := newAuthedServer(t, "sk_test_valid")

	handler := s.APIKeyAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without credentials")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/rtc/token", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	var body APIErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error.Code != string(types.ErrCodeAuthTokenMissing) {
		t.Errorf("unexpected code: %q", body.Error.Code)
	}
}

func TestAPIKeyAuth_WrongKey(t *testing.T) {
	s := newAuthedServer(t, "sk_test_valid")

	handler := s.APIKeyAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with a wrong key")
	}))

	r := httptest.NewRequest(http.MethodPost, "/v1/rtc/token", nil)
	r.Header.Set("Authorization", "Bearer sk_test_wrong")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	var body APIErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error.Code != string(types.ErrCodeAuthTokenInvalid) {
		t.Errorf("unexpected code: %q", body.Error.Code)
	}
}

func TestAPIKeyAuth_HealthIsPublic(t *testing.T) {
	s := newAuthedServer(t, "sk_test_valid")

	var ran bool
	handler := s.APIKeyAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if !ran {
		t.Error("health endpoint must bypass authentication")
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Bearer   abc123  ", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := extractBearerToken(tt.header); got != tt.want {
			t.Errorf("extractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

// --- Context timeout ---

func TestContextTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var deadlineSet bool
	handler := ContextTimeoutMiddleware(defaultRequestTimeout)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadlineSet = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !deadlineSet {
		t.Error("expected a context deadline")
	}
}

// Compile-time check that responseCapture still satisfies the interface
// http.ResponseController unwraps to.
var _ interface{ Unwrap() http.ResponseWriter } = (*responseCapture)(nil)

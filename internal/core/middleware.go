package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rallypoint/internal/types"
)

// responseCapture wraps an http.ResponseWriter to capture the status code
// written by downstream handlers, for logging middleware that needs to
// observe the response status after the handler chain completes.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rc *responseCapture) WriteHeader(code int) {
	if !rc.written {
		rc.statusCode = code
		rc.written = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

// Write ensures the status code is captured even when WriteHeader is not
// called explicitly (the default is 200 per the net/http spec).
func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.written {
		rc.statusCode = http.StatusOK
		rc.written = true
	}
	return rc.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter, enabling
// http.ResponseController and other standard library helpers.
func (rc *responseCapture) Unwrap() http.ResponseWriter {
	return rc.ResponseWriter
}

// Recoverer catches panics in the handler chain, logs the stack trace
// internally, and writes a standardized 500 to the client. This middleware
// MUST be the outermost handler in the chain.
func (s *Server) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				stack := debug.Stack()

				s.Logger.Error("panic recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("panic", fmt.Sprintf("%v", rvr)),
					slog.String("stack", string(stack)),
				)

				requestID := types.GetRequestID(r.Context())
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				// Manual encoding: we are inside panic recovery and must
				// not risk another panic from json.Marshal.
				_, _ = fmt.Fprintf(w,
					`{"error":{"code":"%s","message":"an unexpected error occurred","request_id":"%s"}}`,
					types.ErrCodeInternalUnexpected, escapeJSON(requestID),
				)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// escapeJSON performs minimal JSON string escaping for known-safe strings.
func escapeJSON(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// RequestIDMiddleware generates or propagates a unique request ID for
// correlation across logs and traces. An incoming X-Request-Id header is
// reused; otherwise a new random ID is generated. The ID is stored in the
// context and echoed in the X-Request-Id response header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := types.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateRequestID produces a cryptographically random hex string suitable
// for use as a request correlation ID.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// If crypto/rand fails we still need a non-empty ID for correlation.
		return "fallback-" + hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(b)
}

// ContextTimeoutMiddleware sets a deadline on the request context. The
// duration should be set to (Lambda timeout - 1 second) so cleanup can run
// before the Lambda hard timeout kills the process.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SecurityHeadersMiddleware sets standard security response headers on all
// API responses. It executes early in the chain so headers are present
// regardless of downstream processing or errors.
func (s *Server) SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs request metadata (method, path, status, duration). The
// Authorization header is never logged.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rc := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rc, r)

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rc.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if reqID := types.GetRequestID(r.Context()); reqID != "" {
				args = append(args, slog.String("request_id", reqID))
			}

			switch {
			case rc.statusCode >= 500:
				logger.Error("request completed", args...)
			case rc.statusCode >= 400:
				logger.Warn("request completed", args...)
			default:
				logger.Info("request completed", args...)
			}
		})
	}
}

// authPublicPaths lists URL paths exempt from authentication.
var authPublicPaths = map[string]bool{
	"/health": true,
}

// APIKeyAuthMiddleware authenticates callers by comparing the Bearer token
// from the Authorization header against the configured bcrypt hash of the
// shared caller key.
//
// Distinct 401 error codes:
//   - auth_token_missing: no Authorization header or empty Bearer token.
//   - auth_token_invalid: the key does not match.
//
// If keyHash is empty (tests that don't configure auth), the middleware
// passes through without authentication.
func (s *Server) APIKeyAuthMiddleware(next http.Handler) http.Handler {
	keyHash := s.Config.Security.APIKeyHash.Unmask()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if keyHash == "" || authPublicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			Error(w, r, types.NewAppError(
				types.ErrCodeAuthTokenMissing,
				"Authorization header is required",
				nil,
			))
			return
		}

		key := extractBearerToken(authHeader)
		if key == "" {
			Error(w, r, types.NewAppError(
				types.ErrCodeAuthTokenMissing,
				"Bearer token is required",
				nil,
			))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			s.Logger.Warn("rejected caller with invalid api key",
				"remote_addr", r.RemoteAddr,
				"request_id", types.GetRequestID(r.Context()),
			)
			Error(w, r, types.NewAppError(
				types.ErrCodeAuthTokenInvalid,
				"invalid API key",
				nil,
			))
			return
		}

		ctx := types.WithCaller(r.Context(), types.Caller{
			AppID: "shared-key",
			Name:  "client-app",
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken parses the Authorization header value and returns the
// token. It expects "Bearer <token>" (case-insensitive scheme per RFC 7235)
// and returns an empty string for any other format.
func extractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}

package core

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rallypoint/internal/types"
)

// --- JSON helper tests ---

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	data := APIResponse{Data: map[string]string{"token": "abc"}}
	JSON(w, r, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var body APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	dataMap, ok := body.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected data to be a map, got %T", body.Data)
	}
	if dataMap["token"] != "abc" {
		t.Errorf("expected token=abc, got %v", dataMap["token"])
	}
}

// --- Error helper tests ---

func TestError_AppErrorMapsStatus(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r = r.WithContext(types.WithRequestID(r.Context(), "req-1"))

	Error(w, r, types.NewAppError(
		types.ErrCodeValidationMissingChannel,
		"channel name is required",
		nil,
	))

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.StatusCode)
	}

	var body APIErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error.Code != string(types.ErrCodeValidationMissingChannel) {
		t.Errorf("unexpected code: %q", body.Error.Code)
	}
	if body.Error.RequestID != "req-1" {
		t.Errorf("expected request id in error body, got %q", body.Error.RequestID)
	}
}

func TestError_AuthErrorIs401(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authorization header is required", nil))

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Result().StatusCode)
	}
}

func TestError_GenericErrorHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(w, r, errors.New("pgx: connection refused to db-internal.example.com"))

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}

	var body APIErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("unexpected code: %q", body.Error.Code)
	}
	if strings.Contains(body.Error.Message, "pgx") {
		t.Error("internal error details must not leak to clients")
	}
}

// --- DecodeJSON tests ---

func TestDecodeJSON_Valid(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"channel":"lobby-7"}`))

	var dst struct {
		Channel string `json:"channel"`
	}
	if err := DecodeJSON(w, r, &dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Channel != "lobby-7" {
		t.Errorf("unexpected decoded value: %q", dst.Channel)
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed json", `{"channel":`},
		{"unknown field", `{"channel":"x","bogus":true}`},
		{"multiple values", `{"channel":"x"}{"channel":"y"}`},
		{"type mismatch", `{"channel":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst struct {
				Channel string `json:"channel"`
			}
			err := DecodeJSON(w, r, &dst)
			if err == nil {
				t.Fatal("expected decode error")
			}

			var appErr *types.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *types.AppError, got %T", err)
			}
			if appErr.Code != errCodeValidationInvalidJSON {
				t.Errorf("unexpected code: %s", appErr.Code)
			}
			if appErr.HTTPStatus() != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", appErr.HTTPStatus())
			}
		})
	}
}

// Package handlers contains the HTTP handler implementations for the
// RallyPoint token API.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rallypoint/internal/core"
	"rallypoint/internal/rtc"
	"rallypoint/internal/types"
)

// TokenIssuer is the subset of rtc.TokenService the handler depends on.
type TokenIssuer interface {
	Issue(channel, uid string) (*rtc.IssueResult, error)
}

// RTCHandler serves channel credential requests. Authentication is enforced
// by the chassis middleware before requests reach this handler.
type RTCHandler struct {
	issuer TokenIssuer
	logger *slog.Logger
}

func NewRTCHandler(issuer TokenIssuer, logger *slog.Logger) *RTCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RTCHandler{
		issuer: issuer,
		logger: logger,
	}
}

// RegisterRoutes mounts the handler under the given router group.
func (h *RTCHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rtc/token", h.HandleIssueToken)
}

// --- Request/Response Models ---

// IssueTokenRequest is the POST /v1/rtc/token request body. UID is the
// optional numeric participant id, carried as a string to distinguish
// "absent" from "zero".
type IssueTokenRequest struct {
	Channel string `json:"channel"`
	UID     string `json:"uid,omitempty"`
}

// IssueTokenResponse is the credential returned to the caller.
type IssueTokenResponse struct {
	Token     string    `json:"token"`
	Channel   string    `json:"channel"`
	UID       uint32    `json:"uid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleIssueToken issues a time-boxed signed credential for joining a
// real-time channel.
//
// Error responses:
//   - 400 validation_missing_channel: channel name absent.
//   - 400 validation_invalid_uid: uid present but not numeric.
//   - 401: handled by the auth middleware before this handler runs.
func (h *RTCHandler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req IssueTokenRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.issuer.Issue(req.Channel, req.UID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	caller, _ := types.GetCaller(r.Context())
	h.logger.InfoContext(r.Context(), "issued channel credential",
		"channel", result.Channel,
		"uid", result.UID,
		"caller", caller.Name,
		"expires_at", result.ExpiresAt,
	)

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: IssueTokenResponse{
		Token:     result.Token,
		Channel:   result.Channel,
		UID:       result.UID,
		ExpiresAt: result.ExpiresAt,
	}})
}

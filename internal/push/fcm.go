// Package push implements the delivery channel over the FCM legacy HTTP
// API. All requests flow through external.BaseClient so pushes get the
// same circuit breaker, retry, and error mapping as every other upstream
// call.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rallypoint/internal/external"
	"rallypoint/internal/types"
)

// fcmAPIBase is the default FCM legacy send endpoint.
// Overridable in tests via FCMClientConfig.Endpoint.
const fcmAPIBase = "https://fcm.googleapis.com/fcm/send"

// FCMClientConfig holds the configuration for creating an FCMClient.
type FCMClientConfig struct {
	ServerKey string
	Endpoint  string // Override for testing; defaults to fcmAPIBase
	UserAgent string
	Logger    *slog.Logger
}

// FCMClient implements types.DeliveryChannel against the FCM legacy HTTP
// API. Single-target sends use the "to" field; multi-target sends use
// "registration_ids" and map the per-token results array back into a
// MulticastResult in request order.
type FCMClient struct {
	base      *external.BaseClient
	serverKey string
	endpoint  string
	logger    *slog.Logger
}

// NewFCMClient creates a new FCMClient. The httpClient timeout should come
// from PushConfig (10 seconds by default).
func NewFCMClient(httpClient *http.Client, cfg FCMClientConfig) *FCMClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fcmAPIBase
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "RallyPoint-Push/1.0"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := external.NewBaseClient(
		httpClient,
		"fcm",
		external.RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		userAgent,
		external.WithSleepFunc(time.Sleep),
	)

	return &FCMClient{
		base:      base,
		serverKey: cfg.ServerKey,
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		logger:    logger,
	}
}

// NewFCMClientWithBase creates an FCMClient with a pre-configured
// BaseClient. This is useful for testing when you want to control the
// BaseClient configuration (e.g., disable retries).
func NewFCMClientWithBase(base *external.BaseClient, cfg FCMClientConfig) *FCMClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fcmAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FCMClient{
		base:      base,
		serverKey: cfg.ServerKey,
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		logger:    logger,
	}
}

var _ types.DeliveryChannel = (*FCMClient)(nil)

// ---------------------------------------------------------------------------
// DeliveryChannel Implementation
// ---------------------------------------------------------------------------

// SendOne sends a single-target message. A transport-level success with a
// per-message error in the results array is reported as an error so callers
// see one outcome per address.
func (c *FCMClient) SendOne(ctx context.Context, token string, payload *types.NotificationPayload) error {
	req := c.buildSendRequest(payload)
	req.To = token

	result, err := c.send(ctx, req, 1)
	if err != nil {
		return err
	}

	if result.FailureCount > 0 {
		errMsg := "unknown"
		if len(result.Responses) > 0 && result.Responses[0].Error != "" {
			errMsg = result.Responses[0].Error
		}
		return types.NewAppError(
			types.ErrCodeUpstreamPush,
			fmt.Sprintf("push rejected for token: %s", errMsg),
			nil,
		)
	}

	return nil
}

// SendMulticast sends one message to every token in a single request and
// returns the per-token breakdown in request order.
func (c *FCMClient) SendMulticast(ctx context.Context, tokens []string, payload *types.NotificationPayload) (*types.MulticastResult, error) {
	if len(tokens) == 0 {
		return &types.MulticastResult{}, nil
	}

	req := c.buildSendRequest(payload)
	req.RegistrationIDs = tokens

	result, err := c.send(ctx, req, len(tokens))
	if err != nil {
		return nil, err
	}

	// Attach the token to each positional result.
	for i := range result.Responses {
		if i < len(tokens) {
			result.Responses[i].Token = tokens[i]
		}
	}

	return result, nil
}

// ---------------------------------------------------------------------------
// Payload Construction
// ---------------------------------------------------------------------------

// fcmSendRequest is the FCM legacy HTTP send request body. Exactly one of
// To or RegistrationIDs is set per request.
type fcmSendRequest struct {
	To              string            `json:"to,omitempty"`
	RegistrationIDs []string          `json:"registration_ids,omitempty"`
	Priority        string            `json:"priority,omitempty"`
	TimeToLive      *int              `json:"time_to_live,omitempty"`
	Notification    *fcmNotification  `json:"notification,omitempty"`
	Data            map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title            string `json:"title"`
	Body             string `json:"body"`
	AndroidChannelID string `json:"android_channel_id,omitempty"`
}

// buildSendRequest maps a domain NotificationPayload to the FCM legacy
// request body. Data-only payloads omit the notification block entirely so
// the client app renders the alert itself.
func (c *FCMClient) buildSendRequest(payload *types.NotificationPayload) *fcmSendRequest {
	req := &fcmSendRequest{
		Priority: string(payload.Priority),
		Data:     payload.Data,
	}

	if !payload.DataOnly {
		req.Notification = &fcmNotification{
			Title:            payload.Title,
			Body:             payload.Body,
			AndroidChannelID: payload.ChannelID,
		}
	}

	if payload.TTL != nil {
		seconds := int(payload.TTL.Seconds())
		req.TimeToLive = &seconds
	}

	return req
}

// ---------------------------------------------------------------------------
// HTTP Helpers
// ---------------------------------------------------------------------------

// fcmSendResponse is the FCM legacy HTTP send response body.
type fcmSendResponse struct {
	Success int             `json:"success"`
	Failure int             `json:"failure"`
	Results []fcmSendResult `json:"results"`
}

type fcmSendResult struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// send executes one send request against the FCM endpoint and parses the
// per-token results. expected is the number of addresses in the request,
// used to size the result when FCM returns no results array.
func (c *FCMClient) send(ctx context.Context, sendReq *fcmSendRequest, expected int) (*types.MulticastResult, error) {
	body, err := json.Marshal(sendReq)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to marshal push send payload",
			err,
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create push send request",
			err,
		)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, c.wrapPushError("send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var fcmResp fcmSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&fcmResp); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamPush,
			"push gateway returned an unparseable response body",
			err,
		)
	}

	result := &types.MulticastResult{
		SuccessCount: fcmResp.Success,
		FailureCount: fcmResp.Failure,
		Responses:    make([]types.SendResponse, 0, len(fcmResp.Results)),
	}

	for _, r := range fcmResp.Results {
		result.Responses = append(result.Responses, types.SendResponse{
			Success: r.Error == "",
			Error:   r.Error,
		})
	}

	// Some gateway error modes return counts without a results array.
	if len(result.Responses) == 0 && result.FailureCount > 0 && expected > 0 {
		for i := 0; i < expected; i++ {
			result.Responses = append(result.Responses, types.SendResponse{
				Success: false,
				Error:   "unknown",
			})
		}
	}

	return result, nil
}

// ---------------------------------------------------------------------------
// Error Handling
// ---------------------------------------------------------------------------

// handleErrorResponse maps a non-200 gateway response to a types.AppError.
// 401 means a bad server key, which is a configuration fault rather than a
// transient upstream problem.
func (c *FCMClient) handleErrorResponse(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamPush,
			fmt.Sprintf("push gateway returned status %d and response body was unreadable", resp.StatusCode),
			readErr,
		)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return types.NewAppError(
			types.ErrCodeUpstreamPush,
			"push gateway rejected the server key",
			nil,
		)
	}

	return types.NewAppError(
		types.ErrCodeUpstreamPush,
		fmt.Sprintf("push gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		nil,
	)
}

// wrapPushError preserves AppErrors from BaseClient (rate limit, unavailable)
// and wraps anything else as a push upstream failure.
func (c *FCMClient) wrapPushError(operation string, err error) error {
	if appErr, ok := err.(*types.AppError); ok {
		return appErr
	}
	return types.NewAppError(
		types.ErrCodeUpstreamPush,
		fmt.Sprintf("%s: push gateway request failed", operation),
		err,
	)
}

package livekit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/qualivoice/qualivoice/internal/util"
)

// Errors returned by the LiveKit client.
var (
	// ErrRoomNotFound indicates the upstream answered definitively that the
	// room does not exist. The upstream itself is healthy.
	ErrRoomNotFound = errors.New("livekit room not found")
	// ErrUpstreamUnavailable indicates retries were exhausted against a
	// degraded upstream.
	ErrUpstreamUnavailable = errors.New("livekit upstream unavailable")
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxRetries         = 3
	backoffBase        = 500 * time.Millisecond
	defaultVoice       = "alloy"
)

// Opts holds configuration applied by Option functions.
type Opts struct {
	BaseURL        string
	APIKey         string
	APISecret      string
	Voice          string
	WebhookBaseURL string
	HTTPClient     *http.Client
	Breaker        *CircuitBreaker
}

// Option configures the LiveKit client.
type Option func(*Opts)

// WithBaseURL sets the LiveKit API base URL.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = strings.TrimRight(url, "/") }
}

// WithCredentials sets the API key and secret used for token minting.
func WithCredentials(apiKey, apiSecret string) Option {
	return func(o *Opts) {
		o.APIKey = apiKey
		o.APISecret = apiSecret
	}
}

// WithVoice sets the TTS voice.
func WithVoice(voice string) Option {
	return func(o *Opts) { o.Voice = voice }
}

// WithWebhookBaseURL sets the public base URL LiveKit calls back into.
func WithWebhookBaseURL(url string) Option {
	return func(o *Opts) { o.WebhookBaseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = client }
}

// WithBreaker injects a shared circuit breaker.
func WithBreaker(breaker *CircuitBreaker) Option {
	return func(o *Opts) { o.Breaker = breaker }
}

// Client talks to the LiveKit server API. All operations share one circuit
// breaker and one token cache; transient upstream failures are retried with
// exponential backoff before counting against the breaker.
type Client struct {
	http           *http.Client
	baseURL        string
	voice          string
	webhookBaseURL string
	minter         *tokenMinter
	breaker        *CircuitBreaker
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewClient creates a LiveKit client based on provided options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("LiveKit base URL not set")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("LiveKit API credentials not set")
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if cfg.Breaker == nil {
		cfg.Breaker = NewCircuitBreaker()
	}
	slog.Debug("livekit.NewClient: created client", "baseURL", cfg.BaseURL, "voice", cfg.Voice)
	return &Client{
		http:           cfg.HTTPClient,
		baseURL:        cfg.BaseURL,
		voice:          cfg.Voice,
		webhookBaseURL: cfg.WebhookBaseURL,
		minter:         newTokenMinter(cfg.APIKey, cfg.APISecret),
		breaker:        cfg.Breaker,
		sleep:          sleepCtx,
	}, nil
}

// CreateRoom creates an audio-only room for the call.
func (c *Client) CreateRoom(ctx context.Context, roomName string) error {
	payload := map[string]any{
		"name":            roomName,
		"emptyTimeout":    300,
		"maxParticipants": 10,
		"metadata":        `{"audio_only":true}`,
	}
	_, err := c.do(ctx, http.MethodPost, "/twirp/livekit.RoomService/CreateRoom", payload)
	if err != nil {
		return fmt.Errorf("failed to create room %s: %w", roomName, err)
	}
	slog.Info("Client.CreateRoom: room created", "room", roomName)
	return nil
}

// RoomExists reports whether the room is known to the upstream. A definitive
// not-found answer is not an error.
func (c *Client) RoomExists(ctx context.Context, roomName string) (bool, error) {
	_, err := c.do(ctx, http.MethodPost, "/twirp/livekit.RoomService/GetRoom", map[string]any{"name": roomName})
	if errors.Is(err, ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get room %s: %w", roomName, err)
	}
	return true, nil
}

// CloseRoom deletes the room, disconnecting any remaining participants.
func (c *Client) CloseRoom(ctx context.Context, roomName string) error {
	_, err := c.do(ctx, http.MethodPost, "/twirp/livekit.RoomService/DeleteRoom", map[string]any{"name": roomName})
	if err != nil {
		return fmt.Errorf("failed to close room %s: %w", roomName, err)
	}
	slog.Info("Client.CloseRoom: room closed", "room", roomName)
	return nil
}

// ConfigureVoicePipeline enables DTMF detection, noise suppression, VAD, and
// Deepgram transcription on the room, with transcripts delivered to our
// webhook for the call.
func (c *Client) ConfigureVoicePipeline(ctx context.Context, roomName, callID string) error {
	if callID == "" {
		callID = roomName
	}
	payload := map[string]any{
		"room_name":  roomName,
		"audio_only": true,
		"egress": map[string]any{
			"dtmf": map[string]any{"enabled": true},
			"noise_suppression": map[string]any{
				"enabled": true,
				"level":   "HIGH",
			},
			"vad": map[string]any{
				"enabled":              true,
				"silence_threshold_ms": 1000,
				"speech_threshold_ms":  300,
				"mode":                 "QUALITY",
			},
			"transcription": map[string]any{
				"enabled":          true,
				"provider":         "deepgram",
				"language":         "en-US",
				"model":            "nova-2",
				"tier":             "enhanced",
				"interim_results":  true,
				"profanity_filter": false,
				"redact_pii":       false,
				"webhook_url":      c.webhookBaseURL + "/v1/transcripts/" + callID,
			},
		},
	}
	_, err := c.do(ctx, http.MethodPost, "/twirp/livekit.RoomService/CreateEgress", payload)
	if err != nil {
		return fmt.Errorf("failed to configure voice pipeline for %s: %w", roomName, err)
	}
	slog.Info("Client.ConfigureVoicePipeline: pipeline configured", "room", roomName, "callID", callID)
	return nil
}

// SpeakText plays the text through TTS in the room.
func (c *Client) SpeakText(ctx context.Context, roomName, text string) error {
	payload := map[string]any{
		"text":  text,
		"voice": c.voice,
	}
	_, err := c.do(ctx, http.MethodPost, "/v1/rooms/"+roomName+"/tts/speak", payload)
	if err != nil {
		return fmt.Errorf("failed to speak in room %s: %w", roomName, err)
	}
	return nil
}

// AddSIPParticipant bridges a SIP leg into the room. The participant identity
// is derived from the URI user part: an E.164 number or call ID passes
// through, anything else falls back to "customer".
func (c *Client) AddSIPParticipant(ctx context.Context, roomName, sipURI string) error {
	identity := "customer"
	if at := strings.Index(sipURI, "@"); at >= 0 {
		user := strings.TrimPrefix(sipURI[:at], "sip:")
		if strings.HasPrefix(user, "+") || strings.HasPrefix(user, util.CallIDPrefix) {
			identity = user
		}
	}
	if !strings.HasPrefix(sipURI, "sip:") {
		sipURI = "sip:" + sipURI
	}
	payload := map[string]any{
		"address":         sipURI,
		"identity":        identity,
		"client_metadata": `{"type":"customer","auto_subscribe":true}`,
	}
	_, err := c.do(ctx, http.MethodPost, "/v1/rooms/"+roomName+"/participants/add_sip", payload)
	if err != nil {
		return fmt.Errorf("failed to add SIP participant to %s: %w", roomName, err)
	}
	slog.Info("Client.AddSIPParticipant: participant added", "room", roomName, "identity", identity)
	return nil
}

// EnsureDispatchRules creates the SIP dispatch rules that route inbound
// calls into rooms: E.164 numbers and call_ prefixed IDs both map to a room
// named after the URI user part.
func (c *Client) EnsureDispatchRules(ctx context.Context) error {
	rules := []map[string]any{
		{
			"name":     "call-prefix-rule",
			"pattern":  `^(call_[a-z0-9]+)@.*$`,
			"priority": 100,
			"roomNameRegex": map[string]any{
				"roomNameRegex":     "$1",
				"createIfNotExists": true,
			},
			"webhook_url": c.webhookBaseURL + "/v1/inbound_sip",
		},
		{
			"name":     "e164-phone-number-rule",
			"pattern":  `^(\+[0-9]+)@.*$`,
			"priority": 200,
			"roomNameRegex": map[string]any{
				"roomNameRegex":     "$1",
				"createIfNotExists": true,
			},
			"webhook_url": c.webhookBaseURL + "/v1/inbound_sip",
		},
	}
	for _, rule := range rules {
		if _, err := c.do(ctx, http.MethodPost, "/v1/sip/dispatch/rules/create", rule); err != nil {
			return fmt.Errorf("failed to create dispatch rule %v: %w", rule["name"], err)
		}
	}
	slog.Info("Client.EnsureDispatchRules: dispatch rules created")
	return nil
}

// scopeForEndpoint picks the narrowest token scope that covers the endpoint.
func scopeForEndpoint(endpoint string) TokenScope {
	lower := strings.ToLower(endpoint)
	switch {
	case strings.Contains(lower, "rooms") && strings.Contains(lower, "add_sip"):
		return ScopeBoth
	case strings.Contains(lower, "room"):
		return ScopeRoom
	case strings.Contains(lower, "sip"):
		return ScopeSIP
	default:
		return ScopeBoth
	}
}

// retryableStatus reports whether the upstream response indicates a
// transient condition worth retrying.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// do executes one API call through the breaker with retries. A nil body with
// a 2xx status is success; 404 maps to ErrRoomNotFound without counting as
// an upstream failure.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (json.RawMessage, error) {
	if err := c.breaker.Allow(); err != nil {
		slog.Warn("Client.do: request rejected by circuit breaker", "endpoint", endpoint)
		return nil, err
	}

	// Every exit after Allow must settle the breaker, or a half-open trial
	// would stay reserved forever.
	token, err := c.minter.Token(scopeForEndpoint(endpoint))
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}

	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			c.breaker.RecordFailure()
			return nil, fmt.Errorf("failed to encode request payload: %w", err)
		}
	}

	// One initial attempt plus maxRetries retries, backoff doubling from
	// backoffBase between them.
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader(body))
		if err != nil {
			c.breaker.RecordFailure()
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else {
				switch {
				case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
					c.breaker.RecordSuccess()
					return respBody, nil
				case resp.StatusCode == http.StatusNotFound:
					c.breaker.RecordSuccess()
					return nil, ErrRoomNotFound
				case retryableStatus(resp.StatusCode):
					lastErr = fmt.Errorf("upstream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
				default:
					c.breaker.RecordFailure()
					return nil, fmt.Errorf("API request failed: %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
				}
			}
		}

		if attempt < maxRetries {
			delay := backoffBase << attempt
			slog.Warn("Client.do: transient failure, retrying", "endpoint", endpoint,
				"attempt", attempt+1, "delay", delay, "error", lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				c.breaker.RecordFailure()
				return nil, err
			}
		}
	}

	c.breaker.RecordFailure()
	slog.Error("Client.do: retries exhausted", "endpoint", endpoint, "error", lastErr)
	return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package api provides HTTP handlers and the main API server logic for
// QualiVoice.
//
// It exposes the webhook endpoints the voice platform calls back into: call
// initiation, per-turn transcripts, voice events, and transcript queries.
// The API integrates with the flow engine, store, NLU, LiveKit, and transfer
// modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/qualivoice/qualivoice/internal/flow"
	"github.com/qualivoice/qualivoice/internal/livekit"
	"github.com/qualivoice/qualivoice/internal/nlu"
	"github.com/qualivoice/qualivoice/internal/store"
	"github.com/qualivoice/qualivoice/internal/transfer"
)

// DefaultAddr is the default API server listen address.
const DefaultAddr = ":8080"

// DefaultSIPDomain is the SIP domain advertised in call initiation responses
// when none is configured.
const DefaultSIPDomain = "sip.qualivoice.local"

// Opts holds configuration applied by Option functions.
type Opts struct {
	Addr               string
	SIPDomain          string
	TransferWebhookURL string
	SMSHandoff         bool
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithSIPDomain sets the SIP domain used when building dial-in URIs.
func WithSIPDomain(domain string) Option {
	return func(o *Opts) { o.SIPDomain = domain }
}

// WithTransferWebhookURL enables the webhook hand-off channel.
func WithTransferWebhookURL(url string) Option {
	return func(o *Opts) { o.TransferWebhookURL = url }
}

// WithSMSHandoff enables the agent SMS hand-off channel.
func WithSMSHandoff() Option {
	return func(o *Opts) { o.SMSHandoff = true }
}

// Server routes webhook traffic into the conversation engine. Turns for the
// same call are serialized through a per-call lock; webhook delivery order is
// not guaranteed and the engine assumes one active turn per call.
type Server struct {
	addr      string
	sipDomain string
	engine    *flow.Engine
	locks     *callLocks
}

// NewServer creates an API server over a constructed engine.
func NewServer(engine *flow.Engine, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.SIPDomain == "" {
		cfg.SIPDomain = DefaultSIPDomain
	}
	return &Server{
		addr:      cfg.Addr,
		sipDomain: cfg.SIPDomain,
		engine:    engine,
		locks:     newCallLocks(),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/webhook", s.webhookHandler)
	mux.HandleFunc("POST /v1/inbound_sip", s.inboundSIPHandler)
	mux.HandleFunc("POST /v1/transcripts/{call_id}", s.transcriptHandler)
	mux.HandleFunc("GET /v1/transcripts/{call_id}", s.listTranscriptsHandler)
	mux.HandleFunc("POST /v1/voice-events/{call_id}", s.voiceEventsHandler)
	mux.HandleFunc("GET /v1/health", s.healthHandler)
	return mux
}

// ListenAndServe starts the server and blocks.
func (s *Server) ListenAndServe() error {
	slog.Info("Server.ListenAndServe: QualiVoice API running", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// Run builds all modules from their options and starts the API server. It is
// the single bootstrap entry point used by cmd/qualivoice.
func Run(storeOpts []store.Option, nluOpts []nlu.Option, lkOpts []livekit.Option, smsOpts []transfer.Option, apiOpts []Option) error {
	var cfg Opts
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	analyzer, err := nlu.NewClient(nluOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize NLU client: %w", err)
	}

	voice, err := livekit.NewClient(lkOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize LiveKit client: %w", err)
	}
	if err := voice.EnsureDispatchRules(context.Background()); err != nil {
		slog.Warn("api.Run: SIP dispatch rule setup failed, inbound routing may be stale", "error", err)
	}

	handoff, err := buildHandoff(cfg, smsOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize hand-off channels: %w", err)
	}

	engine := flow.NewEngine(st, analyzer, voice, handoff)
	server := NewServer(engine, apiOpts...)
	return server.ListenAndServe()
}

// buildStore selects a backend from the configured options; with no DSN at
// all it falls back to the in-memory store.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	switch {
	case cfg.RedisURL != "":
		return store.NewRedisStore(storeOpts...)
	case store.DetectDSNType(cfg.DSN) == "postgres":
		return store.NewPostgresStore(storeOpts...)
	case cfg.DSN != "":
		return store.NewSQLiteStore(storeOpts...)
	default:
		slog.Warn("api.buildStore: no DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
}

// buildHandoff assembles the hand-off dispatcher from the configured
// channels. A nil trigger is valid; the engine logs and continues.
func buildHandoff(cfg Opts, smsOpts []transfer.Option) (flow.HandoffTrigger, error) {
	var notifiers []transfer.Notifier
	if cfg.TransferWebhookURL != "" {
		notifiers = append(notifiers, transfer.NewWebhookNotifier(cfg.TransferWebhookURL))
	}
	if cfg.SMSHandoff {
		sms, err := transfer.NewSMSNotifier(smsOpts...)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, sms)
	}
	if len(notifiers) == 0 {
		slog.Warn("api.buildHandoff: no hand-off channels configured")
		return nil, nil
	}
	return transfer.NewDispatcher(notifiers...), nil
}

// callLocks serializes turns per call_id. Entries are never pruned; a call's
// lock is a few bytes and call volume per process is bounded by telephony
// capacity, not request rate.
type callLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCallLocks() *callLocks {
	return &callLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the call's mutex and returns the release function.
func (c *callLocks) acquire(callID string) func() {
	c.mu.Lock()
	lock, ok := c.locks[callID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[callID] = lock
	}
	c.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

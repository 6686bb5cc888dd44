// Package store provides storage backends for QualiVoice call state.
//
// The record store owns durable call records, customer profiles, and the
// append-only transcript log. Backends: in-memory (tests), SQLite, PostgreSQL,
// and Redis. All writes are full-document overwrites with last-write-wins
// semantics per key; the only guarantee consumers may rely on is per-key
// atomicity.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/qualivoice/qualivoice/internal/models"
)

// Store is the record-store contract consumed by the conversation engine.
// Get methods return (nil, nil) for unknown call IDs; absence is not an error
// at this layer.
type Store interface {
	GetCall(ctx context.Context, callID string) (*models.CallRecord, error)
	SaveCall(ctx context.Context, record models.CallRecord) error
	GetProfile(ctx context.Context, callID string) (*models.CustomerProfile, error)
	SaveProfile(ctx context.Context, profile models.CustomerProfile) error
	AppendTranscript(ctx context.Context, entry models.TranscriptEntry) error
	ListTranscripts(ctx context.Context, callID string) ([]models.TranscriptEntry, error)
	Close() error
}

// Opts holds configuration applied by Option functions.
type Opts struct {
	DSN      string
	RedisURL string
}

// Option configures a store backend.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets the SQLite database path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithRedisURL sets the Redis connection URL.
func WithRedisURL(url string) Option {
	return func(o *Opts) { o.RedisURL = url }
}

// DetectDSNType classifies a DSN string as postgres, redis, or sqlite.
// File paths and anything unrecognized default to sqlite.
func DetectDSNType(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return "postgres"
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return "redis"
	default:
		return "sqlite"
	}
}

// InMemoryStore is a map-backed Store used in tests and single-process setups.
type InMemoryStore struct {
	mu          sync.RWMutex
	calls       map[string]models.CallRecord
	profiles    map[string]models.CustomerProfile
	transcripts map[string][]models.TranscriptEntry
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		calls:       make(map[string]models.CallRecord),
		profiles:    make(map[string]models.CustomerProfile),
		transcripts: make(map[string][]models.TranscriptEntry),
	}
}

// GetCall returns a copy of the stored call record, or nil when absent.
func (s *InMemoryStore) GetCall(ctx context.Context, callID string) (*models.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.calls[callID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// SaveCall overwrites the call record for its call ID.
func (s *InMemoryStore) SaveCall(ctx context.Context, record models.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[record.CallID] = record
	return nil
}

// GetProfile returns a copy of the stored customer profile, or nil when absent.
func (s *InMemoryStore) GetProfile(ctx context.Context, callID string) (*models.CustomerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[callID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

// SaveProfile overwrites the customer profile for its call ID.
func (s *InMemoryStore) SaveProfile(ctx context.Context, profile models.CustomerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.CallID] = profile
	return nil
}

// AppendTranscript adds an immutable transcript entry for the call.
func (s *InMemoryStore) AppendTranscript(ctx context.Context, entry models.TranscriptEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[entry.CallID] = append(s.transcripts[entry.CallID], entry)
	return nil
}

// ListTranscripts returns the call's transcript entries in chronological order.
func (s *InMemoryStore) ListTranscripts(ctx context.Context, callID string) ([]models.TranscriptEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]models.TranscriptEntry, len(s.transcripts[callID]))
	copy(entries, s.transcripts[callID])
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

// touch stamps the record's LastUpdate if the caller has not.
func touch(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

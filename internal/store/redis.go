// Package store provides storage backends for QualiVoice call state.
//
// This file implements the Redis-backed store. Call records and profiles are
// JSON values at call:{id} and profile:{id}; transcripts are a list at
// transcript:{id} appended with RPUSH, so insertion order is chronological.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/qualivoice/qualivoice/internal/models"
)

// RedisStore persists call state in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store based on provided options.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = cfg.DSN
	}
	slog.Debug("RedisStore.NewRedisStore: creating Redis store", "url_set", cfg.RedisURL != "")
	if cfg.RedisURL == "" {
		slog.Error("RedisStore URL not set")
		return nil, fmt.Errorf("redis URL not set")
	}

	ropts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("RedisStore.NewRedisStore: invalid Redis URL", "error", err)
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(ropts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("RedisStore.NewRedisStore: ping failed", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Debug("RedisStore.NewRedisStore: connected")
	return &RedisStore{client: client}, nil
}

func callKey(callID string) string       { return "call:" + callID }
func profileKey(callID string) string    { return "profile:" + callID }
func transcriptKey(callID string) string { return "transcript:" + callID }

// GetCall retrieves a call record by ID, or nil when absent.
func (s *RedisStore) GetCall(ctx context.Context, callID string) (*models.CallRecord, error) {
	data, err := s.client.Get(ctx, callKey(callID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore.GetCall: get failed", "error", err, "callID", callID)
		return nil, fmt.Errorf("failed to get call %s: %w", callID, err)
	}
	var record models.CallRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode call %s: %w", callID, err)
	}
	return &record, nil
}

// SaveCall overwrites the full call record document (last-write-wins).
func (s *RedisStore) SaveCall(ctx context.Context, record models.CallRecord) error {
	touch(&record.LastUpdate)
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, callKey(record.CallID), data, 0).Err(); err != nil {
		slog.Error("RedisStore.SaveCall: set failed", "error", err, "callID", record.CallID)
		return fmt.Errorf("failed to save call %s: %w", record.CallID, err)
	}
	return nil
}

// GetProfile retrieves a customer profile by call ID, or nil when absent.
func (s *RedisStore) GetProfile(ctx context.Context, callID string) (*models.CustomerProfile, error) {
	data, err := s.client.Get(ctx, profileKey(callID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore.GetProfile: get failed", "error", err, "callID", callID)
		return nil, fmt.Errorf("failed to get profile %s: %w", callID, err)
	}
	var profile models.CustomerProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", callID, err)
	}
	return &profile, nil
}

// SaveProfile overwrites the full customer profile document (last-write-wins).
func (s *RedisStore) SaveProfile(ctx context.Context, profile models.CustomerProfile) error {
	touch(&profile.LastUpdate)
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, profileKey(profile.CallID), data, 0).Err(); err != nil {
		slog.Error("RedisStore.SaveProfile: set failed", "error", err, "callID", profile.CallID)
		return fmt.Errorf("failed to save profile %s: %w", profile.CallID, err)
	}
	return nil
}

// AppendTranscript pushes one transcript entry onto the call's list.
func (s *RedisStore) AppendTranscript(ctx context.Context, entry models.TranscriptEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, transcriptKey(entry.CallID), data).Err(); err != nil {
		slog.Error("RedisStore.AppendTranscript: rpush failed", "error", err, "callID", entry.CallID)
		return fmt.Errorf("failed to append transcript for %s: %w", entry.CallID, err)
	}
	return nil
}

// ListTranscripts returns all transcript entries for a call in append order.
func (s *RedisStore) ListTranscripts(ctx context.Context, callID string) ([]models.TranscriptEntry, error) {
	raw, err := s.client.LRange(ctx, transcriptKey(callID), 0, -1).Result()
	if err != nil {
		slog.Error("RedisStore.ListTranscripts: lrange failed", "error", err, "callID", callID)
		return nil, fmt.Errorf("failed to list transcripts for %s: %w", callID, err)
	}
	var entries []models.TranscriptEntry
	for _, item := range raw {
		var e models.TranscriptEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to decode transcript entry for %s: %w", callID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	slog.Debug("RedisStore.Close: closing Redis client")
	return s.client.Close()
}

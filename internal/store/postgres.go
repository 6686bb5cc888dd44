// Package store provides storage backends for QualiVoice call state.
//
// This file implements the PostgreSQL-backed store. Call records and customer
// profiles are stored as JSONB documents keyed by call_id; transcripts are an
// append-only table ordered by spoken_at.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/qualivoice/qualivoice/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists call state in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("PostgresStore.NewPostgresStore: failed to open connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore.NewPostgresStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore.NewPostgresStore: migrations failed", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.NewPostgresStore: migrations applied")
	return &PostgresStore{db: db}, nil
}

// GetCall retrieves a call record by ID, or nil when absent.
func (s *PostgresStore) GetCall(ctx context.Context, callID string) (*models.CallRecord, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM calls WHERE call_id = $1`, callID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetCall: query failed", "error", err, "callID", callID)
		return nil, fmt.Errorf("failed to query call %s: %w", callID, err)
	}
	var record models.CallRecord
	if err := json.Unmarshal(data, &record); err != nil {
		slog.Error("PostgresStore.GetCall: unmarshal failed", "error", err, "callID", callID)
		return nil, fmt.Errorf("failed to decode call %s: %w", callID, err)
	}
	return &record, nil
}

// SaveCall upserts the full call record document (last-write-wins).
func (s *PostgresStore) SaveCall(ctx context.Context, record models.CallRecord) error {
	touch(&record.LastUpdate)
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("PostgresStore.SaveCall: marshal failed", "error", err, "callID", record.CallID)
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calls (call_id, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (call_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		record.CallID, data, record.LastUpdate)
	if err != nil {
		slog.Error("PostgresStore.SaveCall: upsert failed", "error", err, "callID", record.CallID)
		return fmt.Errorf("failed to save call %s: %w", record.CallID, err)
	}
	slog.Debug("PostgresStore.SaveCall: succeeded", "callID", record.CallID, "state", record.CurrentState)
	return nil
}

// GetProfile retrieves a customer profile by call ID, or nil when absent.
func (s *PostgresStore) GetProfile(ctx context.Context, callID string) (*models.CustomerProfile, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM customer_profiles WHERE call_id = $1`, callID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetProfile: query failed", "error", err, "callID", callID)
		return nil, fmt.Errorf("failed to query profile %s: %w", callID, err)
	}
	var profile models.CustomerProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		slog.Error("PostgresStore.GetProfile: unmarshal failed", "error", err, "callID", callID)
		return nil, fmt.Errorf("failed to decode profile %s: %w", callID, err)
	}
	return &profile, nil
}

// SaveProfile upserts the full customer profile document (last-write-wins).
func (s *PostgresStore) SaveProfile(ctx context.Context, profile models.CustomerProfile) error {
	touch(&profile.LastUpdate)
	data, err := json.Marshal(profile)
	if err != nil {
		slog.Error("PostgresStore.SaveProfile: marshal failed", "error", err, "callID", profile.CallID)
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO customer_profiles (call_id, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (call_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		profile.CallID, data, profile.LastUpdate)
	if err != nil {
		slog.Error("PostgresStore.SaveProfile: upsert failed", "error", err, "callID", profile.CallID)
		return fmt.Errorf("failed to save profile %s: %w", profile.CallID, err)
	}
	slog.Debug("PostgresStore.SaveProfile: succeeded", "callID", profile.CallID)
	return nil
}

// AppendTranscript inserts one transcript entry.
func (s *PostgresStore) AppendTranscript(ctx context.Context, entry models.TranscriptEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (call_id, speaker, body, spoken_at) VALUES ($1, $2, $3, $4)`,
		entry.CallID, entry.Speaker, entry.Text, entry.Timestamp)
	if err != nil {
		slog.Error("PostgresStore.AppendTranscript: insert failed", "error", err, "callID", entry.CallID)
		return fmt.Errorf("failed to append transcript for %s: %w", entry.CallID, err)
	}
	return nil
}

// ListTranscripts returns all transcript entries for a call, oldest first.
func (s *PostgresStore) ListTranscripts(ctx context.Context, callID string) ([]models.TranscriptEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT call_id, speaker, body, spoken_at FROM transcripts WHERE call_id = $1 ORDER BY spoken_at, id`, callID)
	if err != nil {
		slog.Error("PostgresStore.ListTranscripts: query failed", "error", err, "callID", callID)
		return nil, fmt.Errorf("failed to query transcripts for %s: %w", callID, err)
	}
	defer rows.Close()
	var entries []models.TranscriptEntry
	for rows.Next() {
		var e models.TranscriptEntry
		if err := rows.Scan(&e.CallID, &e.Speaker, &e.Text, &e.Timestamp); err != nil {
			slog.Error("PostgresStore.ListTranscripts: scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore.ListTranscripts: rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate transcript rows: %w", err)
	}
	slog.Debug("PostgresStore.ListTranscripts: succeeded", "callID", callID, "count", len(entries))
	return entries, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("PostgresStore.Close: closing database connection")
	return s.db.Close()
}

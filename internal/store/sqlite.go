// Package store provides storage backends for QualiVoice call state.
//
// This file implements the SQLite-backed store, the default for single-host
// deployments without an external database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/qualivoice/qualivoice/internal/models"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists call state in a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store based on provided options.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating SQLite store", "path", cfg.DSN)
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: failed to open database", "error", err, "path", cfg.DSN)
		return nil, err
	}
	// SQLite allows a single writer; serialize access through one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: migrations failed", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: migrations applied")
	return &SQLiteStore{db: db}, nil
}

// GetCall retrieves a call record by ID, or nil when absent.
func (s *SQLiteStore) GetCall(ctx context.Context, callID string) (*models.CallRecord, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM calls WHERE call_id = ?`, callID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetCall: query failed", "error", err, "callID", callID)
		return nil, fmt.Errorf("failed to query call %s: %w", callID, err)
	}
	var record models.CallRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode call %s: %w", callID, err)
	}
	return &record, nil
}

// SaveCall upserts the full call record document (last-write-wins).
func (s *SQLiteStore) SaveCall(ctx context.Context, record models.CallRecord) error {
	touch(&record.LastUpdate)
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calls (call_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (call_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		record.CallID, data, record.LastUpdate)
	if err != nil {
		slog.Error("SQLiteStore.SaveCall: upsert failed", "error", err, "callID", record.CallID)
		return fmt.Errorf("failed to save call %s: %w", record.CallID, err)
	}
	return nil
}

// GetProfile retrieves a customer profile by call ID, or nil when absent.
func (s *SQLiteStore) GetProfile(ctx context.Context, callID string) (*models.CustomerProfile, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM customer_profiles WHERE call_id = ?`, callID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetProfile: query failed", "error", err, "callID", callID)
		return nil, fmt.Errorf("failed to query profile %s: %w", callID, err)
	}
	var profile models.CustomerProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", callID, err)
	}
	return &profile, nil
}

// SaveProfile upserts the full customer profile document (last-write-wins).
func (s *SQLiteStore) SaveProfile(ctx context.Context, profile models.CustomerProfile) error {
	touch(&profile.LastUpdate)
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO customer_profiles (call_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (call_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		profile.CallID, data, profile.LastUpdate)
	if err != nil {
		slog.Error("SQLiteStore.SaveProfile: upsert failed", "error", err, "callID", profile.CallID)
		return fmt.Errorf("failed to save profile %s: %w", profile.CallID, err)
	}
	return nil
}

// AppendTranscript inserts one transcript entry.
func (s *SQLiteStore) AppendTranscript(ctx context.Context, entry models.TranscriptEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (call_id, speaker, body, spoken_at) VALUES (?, ?, ?, ?)`,
		entry.CallID, entry.Speaker, entry.Text, entry.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore.AppendTranscript: insert failed", "error", err, "callID", entry.CallID)
		return fmt.Errorf("failed to append transcript for %s: %w", entry.CallID, err)
	}
	return nil
}

// ListTranscripts returns all transcript entries for a call, oldest first.
func (s *SQLiteStore) ListTranscripts(ctx context.Context, callID string) ([]models.TranscriptEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT call_id, speaker, body, spoken_at FROM transcripts WHERE call_id = ? ORDER BY spoken_at, id`, callID)
	if err != nil {
		slog.Error("SQLiteStore.ListTranscripts: query failed", "error", err, "callID", callID)
		return nil, fmt.Errorf("failed to query transcripts for %s: %w", callID, err)
	}
	defer rows.Close()
	var entries []models.TranscriptEntry
	for rows.Next() {
		var e models.TranscriptEntry
		if err := rows.Scan(&e.CallID, &e.Speaker, &e.Text, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcript rows: %w", err)
	}
	return entries, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("SQLiteStore.Close: closing database connection")
	return s.db.Close()
}

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db          *sql.DB
	maxPerAgent int
}

// NewSQLite creates a SQLite-backed history store at the given path. The
// parent directory is created if needed.
func NewSQLite(dbPath string, maxPerAgent int) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if maxPerAgent <= 0 {
		maxPerAgent = defaultMaxPerAgent
	}

	store := &SQLiteStore{db: db, maxPerAgent: maxPerAgent}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS histories (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		title TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_histories_agent ON histories(agent_id, updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save upserts a record and evicts the agent's least recently updated
// records beyond the cap. A missing title is derived from the transcript.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("save history: record ID must not be empty")
	}
	if rec.AgentID == "" {
		return fmt.Errorf("save history: agent ID must not be empty")
	}

	if rec.Title == "" {
		rec.Title = TitleFor(rec.Messages)
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	messagesJSON, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	query := `
	INSERT INTO histories (id, agent_id, title, messages_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		messages_json = excluded.messages_json,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.AgentID, rec.Title, string(messagesJSON),
		rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}

	return s.evict(ctx, rec.AgentID)
}

// evict drops the agent's records beyond the cap, oldest update first.
func (s *SQLiteStore) evict(ctx context.Context, agentID string) error {
	query := `
	DELETE FROM histories WHERE agent_id = ? AND id NOT IN (
		SELECT id FROM histories WHERE agent_id = ?
		ORDER BY updated_at DESC, id DESC LIMIT ?
	)`
	if _, err := s.db.ExecContext(ctx, query, agentID, agentID, s.maxPerAgent); err != nil {
		return fmt.Errorf("evict histories: %w", err)
	}
	return nil
}

// List returns an agent's records, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context, agentID string) ([]Record, error) {
	query := `
	SELECT id, agent_id, title, messages_json, created_at, updated_at
	FROM histories WHERE agent_id = ?
	ORDER BY updated_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("query histories: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate histories: %w", err)
	}
	return records, nil
}

// Get retrieves one record by ID. Returns ErrNotFound for unknown IDs.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	query := `
	SELECT id, agent_id, title, messages_json, created_at, updated_at
	FROM histories WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("history %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// Delete removes one record. Missing IDs are ignored.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM histories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// Purge removes all of an agent's records.
func (s *SQLiteStore) Purge(ctx context.Context, agentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM histories WHERE agent_id = ?`, agentID); err != nil {
		return fmt.Errorf("purge histories: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var rec Record
	var messagesJSON string
	var createdAt, updatedAt int64

	if err := scan(&rec.ID, &rec.AgentID, &rec.Title, &messagesJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan history row: %w", err)
	}

	if err := json.Unmarshal([]byte(messagesJSON), &rec.Messages); err != nil {
		return rec, fmt.Errorf("unmarshal messages: %w", err)
	}

	rec.CreatedAt = time.UnixMilli(createdAt)
	rec.UpdatedAt = time.UnixMilli(updatedAt)
	return rec, nil
}

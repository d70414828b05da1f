package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"chatd/internal/chat"
	"chatd/internal/common/fsutil"
)

const schema = `CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	turns_json TEXT NOT NULL,
	expires_at INTEGER NOT NULL
)`

// SQLiteStore keeps conversations in a SQLite database so they survive a
// restart within their lifetime.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path. Pass ":memory:" for a
// throwaway database.
func OpenSQLite(path string, ttl time.Duration) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		p, err := fsutil.PrepareFile(path)
		if err != nil {
			return nil, fmt.Errorf("preparing database path: %w", err)
		}
		dsn = p
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" and keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (chat.Conversation, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT turns_json FROM conversations WHERE id = ? AND expires_at > ?",
		id, s.now().Unix()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	var conv chat.Conversation
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return conv, nil
}

// Save upserts the conversation and purges expired rows.
func (s *SQLiteStore) Save(ctx context.Context, id string, conv chat.Conversation) error {
	if conv == nil {
		conv = chat.Conversation{}
	}
	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	now := s.now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE expires_at <= ?", now.Unix()); err != nil {
		return fmt.Errorf("purging expired sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (id, turns_json, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET turns_json = excluded.turns_json, expires_at = excluded.expires_at`,
		id, string(raw), now.Add(s.ttl).Unix()); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return tx.Commit()
}

// Count returns the number of stored rows, expired or not.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&n)
	return n, err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

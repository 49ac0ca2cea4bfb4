// Package history persists submitted selections so prompts can offer the
// most recent picks first.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoKey is returned when an entry has no prompt key.
var ErrNoKey = errors.New("history entry has no key")

// Entry is one submitted selection.
type Entry struct {
	ID         string
	Key        string // Prompt the selection was made in
	Value      string
	Name       string
	Flag       string
	Input      string
	SelectedAt time.Time
}

// KeyStats summarizes the entries recorded under one key.
type KeyStats struct {
	Key   string
	Count int
	Last  time.Time
}

// Store is a SQLite-backed selection history.
type Store struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

// Open opens or creates the history database at path and brings its
// schema up to date.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Record stores a selection and returns it with its ID and time filled in.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.Key == "" {
		return Entry{}, ErrNoKey
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.SelectedAt.IsZero() {
		e.SelectedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO selections (entry_id, prompt_key, value, name, flag, input, selected_at_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Key, e.Value, e.Name, e.Flag, e.Input, e.SelectedAt.UnixMilli())
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record selection: %w", err)
	}
	return e, nil
}

// Recent returns up to limit distinct values selected under key, most
// recent first. Each value appears once, with its latest entry.
func (s *Store) Recent(ctx context.Context, key string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.entry_id, h.prompt_key, h.value, h.name, h.flag, h.input, h.selected_at_unix_ms
		FROM selections h
		JOIN (
			SELECT MAX(id) AS last_id FROM selections WHERE prompt_key = ? GROUP BY value
		) latest ON h.id = latest.last_id
		ORDER BY h.id DESC
		LIMIT ?
	`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.ID, &e.Key, &e.Value, &e.Name, &e.Flag, &e.Input, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.SelectedAt = time.UnixMilli(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Keys lists every key with entries, alphabetically.
func (s *Store) Keys(ctx context.Context) ([]KeyStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prompt_key, COUNT(*), MAX(selected_at_unix_ms)
		FROM selections
		GROUP BY prompt_key
		ORDER BY prompt_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history keys: %w", err)
	}
	defer rows.Close()

	var out []KeyStats
	for rows.Next() {
		var k KeyStats
		var ms int64
		if err := rows.Scan(&k.Key, &k.Count, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan history key: %w", err)
		}
		k.Last = time.UnixMilli(ms)
		out = append(out, k)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep entries under key and deletes the rest.
func (s *Store) Prune(ctx context.Context, key string, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM selections
		WHERE prompt_key = ? AND id NOT IN (
			SELECT id FROM selections WHERE prompt_key = ? ORDER BY id DESC LIMIT ?
		)
	`, key, key, max(keep, 0))
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// Clear deletes the entries under key, or every entry when key is empty.
func (s *Store) Clear(ctx context.Context, key string) (int64, error) {
	var res sql.Result
	var err error
	if key == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM selections`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM selections WHERE prompt_key = ?`, key)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) migrate(ctx context.Context) error {
	current := 0
	row := s.db.QueryRowContext(ctx, `SELECT version FROM schema_meta ORDER BY version DESC LIMIT 1`)
	if err := row.Scan(&current); err != nil {
		if !errors.Is(err, sql.ErrNoRows) && !strings.Contains(err.Error(), "no such table") {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		current = 0
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{version: 1, sql: migrationV1},
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO schema_meta (version, applied_at_unix_ms) VALUES (?, ?)
		`, m.version, time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// SchemaVersion returns the applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_meta`).Scan(&v)
	return v, err
}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS schema_meta (
  version INTEGER PRIMARY KEY,
  applied_at_unix_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS selections (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  entry_id TEXT NOT NULL UNIQUE,
  prompt_key TEXT NOT NULL,
  value TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  flag TEXT NOT NULL DEFAULT '',
  input TEXT NOT NULL DEFAULT '',
  selected_at_unix_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_selections_key ON selections(prompt_key, id DESC);
CREATE INDEX IF NOT EXISTS idx_selections_value ON selections(prompt_key, value);
`

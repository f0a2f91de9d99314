// Package progress persists listening positions per document so playback
// can resume where it stopped.
package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	_ "modernc.org/sqlite"

	"github.com/keczkasz/studywave/tts"
)

// Entry is the stored position of one document.
type Entry struct {
	DocumentID  string
	Title       string
	Fraction    float64
	Rate        float64
	Personality string
	Language    tts.Language
	Listened    time.Duration
	Completed   bool
	UpdatedAt   time.Time
}

// ResumeFraction returns where playback should restart. Finished documents
// start over.
func (e Entry) ResumeFraction() float64 {
	if e.Completed || e.Fraction >= 1 || e.Fraction < 0 {
		return 0
	}
	return e.Fraction
}

// Store is a SQLite backed progress database.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the progress database location in the user data
// directory.
func DefaultPath() (string, error) {
	return gap.NewScope(gap.User, "studywave").DataPath("progress.db")
}

// Open opens or creates the database at path and runs migrations. An
// empty path uses DefaultPath.
func Open(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("unable to find data directory: %w", err)
		}
		path = p
	}

	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("unable to expand path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Single writer; WAL lets readers proceed during saves
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to enable WAL mode: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			document_id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			fraction REAL NOT NULL DEFAULT 0,
			rate REAL NOT NULL DEFAULT 1,
			personality TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			listened_ms INTEGER NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			listened_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_document ON sessions(document_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("unable to migrate progress database: %w", err)
		}
	}
	return nil
}

// Save inserts or replaces the entry for e.DocumentID. A zero UpdatedAt is
// set to now.
func (s *Store) Save(ctx context.Context, e Entry) error {
	if e.DocumentID == "" {
		return errors.New("progress entry has no document id")
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (document_id, title, fraction, rate, personality, language, listened_ms, completed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			title = excluded.title,
			fraction = excluded.fraction,
			rate = excluded.rate,
			personality = excluded.personality,
			language = excluded.language,
			listened_ms = excluded.listened_ms,
			completed = excluded.completed,
			updated_at = excluded.updated_at`,
		e.DocumentID, e.Title, e.Fraction, e.Rate, e.Personality, string(e.Language),
		e.Listened.Milliseconds(), e.Completed, e.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("unable to save progress: %w", err)
	}
	return nil
}

// Load returns the entry for id. ok is false when nothing is stored.
func (s *Store) Load(ctx context.Context, id string) (e Entry, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT document_id, title, fraction, rate, personality, language, listened_ms, completed, updated_at
		FROM documents WHERE document_id = ?`, id)

	e, err = scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("unable to load progress: %w", err)
	}
	return e, true, nil
}

// List returns up to limit entries, most recently updated first. A limit
// of zero or less returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, title, fraction, rate, personality, language, listened_ms, completed, updated_at
		FROM documents ORDER BY updated_at DESC, document_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list progress: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to read progress: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the entry and sessions for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to delete progress: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("unable to delete sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("unable to delete progress: %w", err)
	}
	return tx.Commit()
}

// StartSession records the start of a listening session and returns its id.
func (s *Store) StartSession(ctx context.Context, documentID string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, document_id, started_at) VALUES (?, ?, ?)`,
		id, documentID, time.Now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("unable to start session: %w", err)
	}
	return id, nil
}

// EndSession stores the listening time of a session.
func (s *Store) EndSession(ctx context.Context, sessionID string, listened time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, listened_ms = ? WHERE session_id = ?`,
		time.Now().UnixMilli(), listened.Milliseconds(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("unable to end session: %w", err)
	}
	return nil
}

// TotalListened sums the listening time of every ended session of a
// document.
func (s *Store) TotalListened(ctx context.Context, documentID string) (time.Duration, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(listened_ms), 0) FROM sessions WHERE document_id = ?`, documentID,
	).Scan(&ms)
	if err != nil {
		return 0, fmt.Errorf("unable to sum sessions: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e         Entry
		lang      string
		listened  int64
		updatedAt int64
	)
	err := row.Scan(&e.DocumentID, &e.Title, &e.Fraction, &e.Rate, &e.Personality,
		&lang, &listened, &e.Completed, &updatedAt)
	if err != nil {
		return Entry{}, err
	}
	e.Language = tts.Language(lang)
	e.Listened = time.Duration(listened) * time.Millisecond
	e.UpdatedAt = time.UnixMilli(updatedAt)
	return e, nil
}

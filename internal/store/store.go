// Package store persists users and analysis history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// User is a registered API account. Tier gates the hourly analysis quota.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Tier         string
	CreatedAt    time.Time
}

// HistoryEntry is one persisted analysis run. Results and Errors hold the
// pipeline output as JSON so the schema stays stable as the pipeline grows.
type HistoryEntry struct {
	ID           string
	UID          string
	FileID       string
	AudioURL     string
	Status       string
	ProcessingMs int64
	ResultsJSON  string
	ErrorsJSON   string
	CreatedAt    time.Time
}

// Store wraps the SQLite connection and runs the schema migration on open.
type Store struct {
	db *sql.DB
}

func New(storagePath string) (*Store, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name TEXT,
		tier TEXT NOT NULL DEFAULT 'free',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		uid TEXT NOT NULL,
		file_id TEXT,
		audio_url TEXT,
		status TEXT,
		processing_ms INTEGER,
		results TEXT,
		errors TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(uid) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_history_uid_created
		ON history(uid, created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// CreateUser inserts a new account. A duplicate email maps to ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, tier, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Tier, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, tier, created_at
		FROM users WHERE email = ?`, email))
}

func (s *Store) UserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, tier, created_at
		FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (User, error) {
	var u User
	var displayName sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &displayName, &u.Tier, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("load user: %w", err)
	}
	if displayName.Valid {
		u.DisplayName = displayName.String
	}
	return u, nil
}

// SaveResult appends one analysis run to the user's history.
func (s *Store) SaveResult(ctx context.Context, e HistoryEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (id, uid, file_id, audio_url, status, processing_ms, results, errors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UID, e.FileID, e.AudioURL, e.Status, e.ProcessingMs, e.ResultsJSON, e.ErrorsJSON, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("save history entry: %w", err)
	}
	return nil
}

// History returns the user's most recent runs, newest first.
func (s *Store) History(ctx context.Context, uid string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uid, file_id, audio_url, status, processing_ms, results, errors, created_at
		FROM history WHERE uid = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var fileID, audioURL, status, results, errs sql.NullString
		if err := rows.Scan(&e.ID, &e.UID, &fileID, &audioURL, &status, &e.ProcessingMs, &results, &errs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.FileID = fileID.String
		e.AudioURL = audioURL.String
		e.Status = status.String
		e.ResultsJSON = results.String
		e.ErrorsJSON = errs.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// RecentCount counts the user's runs since the cutoff, for rate limiting.
func (s *Store) RecentCount(ctx context.Context, uid string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM history WHERE uid = ? AND created_at >= ?`,
		uid, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent runs: %w", err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Package credstore caches the logged-in account's token and identity
// in a local sqlite file, so a restarted client resumes its session
// without re-entering credentials.
package credstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNoSession = errors.New("no saved session")

const schema = `
CREATE TABLE IF NOT EXISTS session (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	token TEXT NOT NULL,
	user_id INTEGER NOT NULL,
	roles TEXT NOT NULL,
	saved_at TIMESTAMP NOT NULL
);`

// Saved is one cached login.
type Saved struct {
	Token   string
	UserID  int64
	Roles   string // comma-separated, as issued
	SavedAt time.Time
}

// Store is a single-row sqlite credential cache.
type Store struct {
	db *sql.DB
}

// Open creates or opens the cache file and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init credential store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the cached login.
func (s *Store) Save(saved Saved) error {
	_, err := s.db.Exec(`
		INSERT INTO session (id, token, user_id, roles, saved_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			roles = excluded.roles,
			saved_at = excluded.saved_at
	`, saved.Token, saved.UserID, saved.Roles, saved.SavedAt.UTC())
	return err
}

// Load returns the cached login, or ErrNoSession.
func (s *Store) Load() (Saved, error) {
	var saved Saved
	err := s.db.QueryRow(`
		SELECT token, user_id, roles, saved_at FROM session WHERE id = 1
	`).Scan(&saved.Token, &saved.UserID, &saved.Roles, &saved.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Saved{}, ErrNoSession
	}
	if err != nil {
		return Saved{}, err
	}
	return saved, nil
}

// Clear drops the cached login; logout.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM session WHERE id = 1`)
	return err
}

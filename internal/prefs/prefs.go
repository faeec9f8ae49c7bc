// Package prefs is the console client's local preference store, kept in a
// small sqlite database under the user's config directory.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwebster45206/choice-engine/internal/credentials"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

const (
	keyAPIKey   = "api_key"
	keyLanguage = "language"
	keyGenres   = "last_genres"
)

// Store reads and writes console preferences.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the database location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "choice-engine", "prefs.db"), nil
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create prefs dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open prefs db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate prefs db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored value for key and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete preference %s: %w", key, err)
	}
	return nil
}

// APIKey returns the saved provider key. The sample placeholder counts as
// unset.
func (s *Store) APIKey(ctx context.Context) (string, bool, error) {
	key, ok, err := s.Get(ctx, keyAPIKey)
	if err != nil || !ok {
		return "", false, err
	}
	if !credentials.Usable(key) {
		return "", false, nil
	}
	return strings.TrimSpace(key), true, nil
}

// SetAPIKey saves the provider key. An empty key clears it.
func (s *Store) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.Delete(ctx, keyAPIKey)
	}
	return s.Set(ctx, keyAPIKey, key)
}

// Language returns the saved story language, or the default.
func (s *Store) Language(ctx context.Context) (lang.Code, error) {
	v, ok, err := s.Get(ctx, keyLanguage)
	if err != nil || !ok {
		return lang.Default, err
	}
	return lang.Parse(v), nil
}

// SetLanguage saves the story language.
func (s *Store) SetLanguage(ctx context.Context, code lang.Code) error {
	return s.Set(ctx, keyLanguage, string(code.OrDefault()))
}

// LastGenres returns the genres picked for the previous story.
func (s *Store) LastGenres(ctx context.Context) ([]string, error) {
	v, ok, err := s.Get(ctx, keyGenres)
	if err != nil || !ok || v == "" {
		return nil, err
	}
	return strings.Split(v, ","), nil
}

// SetLastGenres saves the genre selection.
func (s *Store) SetLastGenres(ctx context.Context, ids []string) error {
	return s.Set(ctx, keyGenres, strings.Join(ids, ","))
}

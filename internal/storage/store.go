// Package storage provides local persistence for the gallery: the
// schema-versioned image/character database, the simple and session string
// stores, and read-only access to arbitrary SQLite files for recovery.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/promptmarket/gallery/internal/models"
)

const (
	// DatabaseName is the file name of the application database in the data directory
	DatabaseName = "prompt_market.db"

	ImagesCollection     = "generated_images"
	CharactersCollection = "custom_characters"

	// SchemaVersion is stored in PRAGMA user_version. Version 1 only had
	// the images collection.
	SchemaVersion = 2
)

var (
	ErrStorageUnavailable = errors.New("structured storage unavailable")
	ErrWrite              = errors.New("storage write failed")
	ErrEmptyPayload       = errors.New("image payload is empty")
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store is the application database holding generated images and custom
// characters.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and brings its schema up to
// SchemaVersion. Opening an already current database is a no-op.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create data directory: %w", ErrStorageUnavailable, err)
	}

	dsn, err := sqliteDSN(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve database path: %w", ErrStorageUnavailable, err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %w", ErrStorageUnavailable, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: apply pragma %q: %w", ErrStorageUnavailable, pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version > SchemaVersion {
		return fmt.Errorf("database has schema version %d, newer than supported %d", version, SchemaVersion)
	}
	if version == SchemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, collection := range []string{ImagesCollection, CharactersCollection} {
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value TEXT NOT NULL)", quoteIdent(collection))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create collection %s: %w", collection, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}

	slog.Debug("Database schema upgraded", "path", s.path, "from", version, "to", SchemaVersion)
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutImage inserts or replaces the payload stored for id.
func (s *Store) PutImage(ctx context.Context, id, payload string) error {
	if payload == "" {
		return fmt.Errorf("%w: %w", ErrWrite, ErrEmptyPayload)
	}
	if id == "" {
		return fmt.Errorf("%w: image id is empty", ErrWrite)
	}
	return s.put(ctx, ImagesCollection, id, payload)
}

// GetImage returns the payload stored for id.
func (s *Store) GetImage(ctx context.Context, id string) (string, bool) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT value FROM %s WHERE key = ?", quoteIdent(ImagesCollection)), id,
	).Scan(&payload)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("Failed to read image", "id", id, "err", err)
		}
		return "", false
	}
	return payload, true
}

// HasImage reports whether a payload is stored for id. Read failures report
// false.
func (s *Store) HasImage(ctx context.Context, id string) bool {
	var exists int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE key = ?", quoteIdent(ImagesCollection)), id,
	).Scan(&exists)
	if err != nil {
		slog.Warn("Failed to check image", "id", id, "err", err)
		return false
	}
	return exists > 0
}

// GetAllImages returns every stored image. Read failures are logged and
// yield an empty map so callers can keep rendering.
func (s *Store) GetAllImages(ctx context.Context) map[string]string {
	results := map[string]string{}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT key, value FROM %s", quoteIdent(ImagesCollection)))
	if err != nil {
		slog.Warn("Failed to read images", "err", err)
		return map[string]string{}
	}
	defer rows.Close()

	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			slog.Warn("Failed to scan image row", "err", err)
			return map[string]string{}
		}
		results[id] = payload
	}
	if err := rows.Err(); err != nil {
		slog.Warn("Image cursor failed", "err", err)
		return map[string]string{}
	}

	return results
}

// ClearImages deletes every stored image.
func (s *Store) ClearImages(ctx context.Context) error {
	_, err := s.execWithRetry(ctx, fmt.Sprintf("DELETE FROM %s", quoteIdent(ImagesCollection)))
	if err != nil {
		return fmt.Errorf("%w: clear images: %w", ErrWrite, err)
	}
	return nil
}

// PutCharacter stores the character under its own id, replacing any
// previous record.
func (s *Store) PutCharacter(ctx context.Context, character models.Character) error {
	if character.ID == "" {
		return fmt.Errorf("%w: character id is empty", ErrWrite)
	}
	data, err := json.Marshal(character)
	if err != nil {
		return fmt.Errorf("%w: marshal character: %w", ErrWrite, err)
	}
	return s.put(ctx, CharactersCollection, character.ID, string(data))
}

// GetAllCharacters returns custom characters, newest first. Read failures
// yield an empty list.
func (s *Store) GetAllCharacters(ctx context.Context) []models.Character {
	characters := []models.Character{}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT key, value FROM %s ORDER BY key DESC", quoteIdent(CharactersCollection)))
	if err != nil {
		slog.Warn("Failed to read characters", "err", err)
		return characters
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			slog.Warn("Failed to scan character row", "err", err)
			return []models.Character{}
		}
		var character models.Character
		if err := json.Unmarshal([]byte(value), &character); err != nil {
			slog.Warn("Skipping unreadable character", "key", key, "err", err)
			continue
		}
		characters = append(characters, character)
	}
	if err := rows.Err(); err != nil {
		slog.Warn("Character cursor failed", "err", err)
		return []models.Character{}
	}

	return characters
}

// DeleteCharacter removes the character with id. Deleting an unknown id is
// not an error.
func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	_, err := s.execWithRetry(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE key = ?", quoteIdent(CharactersCollection)), id)
	if err != nil {
		return fmt.Errorf("%w: delete character: %w", ErrWrite, err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, collection, key, value string) error {
	stmt := fmt.Sprintf(
		"INSERT INTO %s (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		quoteIdent(collection))
	if _, err := s.execWithRetry(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("%w: put %s/%s: %w", ErrWrite, collection, key, err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqliteDSN returns path as a file: URI. Characters such as '?' and '#' in
// the path are escaped so they stay part of the file name.
func sqliteDSN(path string, query url.Values) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	u := url.URL{Scheme: "file", Path: abs, RawQuery: query.Encode()}
	return u.String(), nil
}

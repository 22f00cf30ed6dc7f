// Package localstore is the device-local key/value store of the shopper
// client. It keeps the guest cart and the saved sign-in between runs.
package localstore

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

	"github.com/ashendes/pickle-storefront/internal/models"
)

// CredentialKey is where the signed-in credential is kept
const CredentialKey = "credential"

// Store is a SQLite-backed key/value store holding JSON documents
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the store in dir
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return OpenPath(filepath.Join(dir, "local.db"))
}

// OpenPath opens the store at an explicit database path; ":memory:" works for tests
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Save stores a cart under key
func (s *Store) Save(ctx context.Context, key string, items []models.LineItem) error {
	return s.put(ctx, key, models.CloneItems(items))
}

// Load returns the cart saved under key
func (s *Store) Load(ctx context.Context, key string) ([]models.LineItem, bool, error) {
	var items []models.LineItem
	found, err := s.get(ctx, key, &items)
	if err != nil || !found {
		return nil, found, err
	}
	return items, true, nil
}

// SaveCredential remembers the signed-in credential
func (s *Store) SaveCredential(ctx context.Context, cred models.Credential) error {
	return s.put(ctx, CredentialKey, cred)
}

// LoadCredential returns the remembered credential, if any
func (s *Store) LoadCredential(ctx context.Context) (models.Credential, bool, error) {
	var cred models.Credential
	found, err := s.get(ctx, CredentialKey, &cred)
	return cred, found, err
}

// ClearCredential forgets the signed-in credential
func (s *Store) ClearCredential(ctx context.Context) error {
	return s.Delete(ctx, CredentialKey)
}

// Delete removes key; deleting an absent key is not an error
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string, v interface{}) (bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

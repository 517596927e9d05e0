package credential

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/faceforge/faceforge/internal/log"
)

// Store is a SQLite-backed credential repository.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// NewStore opens (creating if necessary) the credential database at dbPath
// and ensures the schema exists.
func NewStore(dbPath string, logger log.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("credential store: database path is empty")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("credential store: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("credential store: open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("credential store: ping database: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("credential store: initialize schema: %w", err)
	}
	return store, nil
}

// dsn builds the connection string. WAL keeps concurrent HTTP handlers from
// tripping over each other; the pragmas use the modernc driver's
// _pragma=name(value) form and apply to every pooled connection.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS api_keys (
		client_id TEXT PRIMARY KEY,
		api_key TEXT NOT NULL,
		key_hash TEXT NOT NULL,
		key_preview TEXT NOT NULL,
		set_at INTEGER NOT NULL,
		last_used INTEGER
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Set stores or replaces the key for a client.
func (s *Store) Set(ctx context.Context, clientID, key string) error {
	if clientID == "" {
		return ErrEmptyClient
	}
	if key == "" {
		return ErrEmptyKey
	}

	query := `
	INSERT INTO api_keys (client_id, api_key, key_hash, key_preview, set_at, last_used)
	VALUES (?, ?, ?, ?, ?, NULL)
	ON CONFLICT(client_id) DO UPDATE SET
		api_key = excluded.api_key,
		key_hash = excluded.key_hash,
		key_preview = excluded.key_preview,
		set_at = excluded.set_at,
		last_used = NULL`

	_, err := s.db.ExecContext(ctx, query,
		clientID, key, Hash(key), Mask(key), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("credential store: set key: %w", err)
	}
	s.logger.Info("api key stored", "client_id", clientID, "preview", Mask(key))
	return nil
}

// Get returns the raw key for a client and bumps its last-used timestamp.
// This is the only read path that yields key material.
func (s *Store) Get(ctx context.Context, clientID string) (string, error) {
	if clientID == "" {
		return "", ErrEmptyClient
	}

	var key string
	err := s.db.QueryRowContext(ctx,
		`SELECT api_key FROM api_keys WHERE client_id = ?`, clientID).Scan(&key)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", ErrNotFound, clientID)
	}
	if err != nil {
		return "", fmt.Errorf("credential store: get key: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = ? WHERE client_id = ?`,
		time.Now().Unix(), clientID); err != nil {
		s.logger.Warn("failed to update last_used", "client_id", clientID, "error", err)
	}
	return key, nil
}

// Has reports key presence and metadata for a client. A missing key is not
// an error: HasKey is false and no timestamps are set.
func (s *Store) Has(ctx context.Context, clientID string) (*Status, error) {
	if clientID == "" {
		return nil, ErrEmptyClient
	}

	var preview string
	var setAt int64
	var lastUsed sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT key_preview, set_at, last_used FROM api_keys WHERE client_id = ?`,
		clientID).Scan(&preview, &setAt, &lastUsed)
	if err == sql.ErrNoRows {
		return &Status{ClientID: clientID, HasKey: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credential store: check key: %w", err)
	}

	status := &Status{ClientID: clientID, HasKey: true, Preview: preview}
	set := time.Unix(setAt, 0).UTC()
	status.SetAt = &set
	if lastUsed.Valid {
		used := time.Unix(lastUsed.Int64, 0).UTC()
		status.LastUsed = &used
	}
	return status, nil
}

// Delete removes a client's key and reports whether one existed.
func (s *Store) Delete(ctx context.Context, clientID string) (bool, error) {
	if clientID == "" {
		return false, ErrEmptyClient
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM api_keys WHERE client_id = ?`, clientID)
	if err != nil {
		return false, fmt.Errorf("credential store: delete key: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("credential store: rows affected: %w", err)
	}
	if rows > 0 {
		s.logger.Info("api key removed", "client_id", clientID)
	}
	return rows > 0, nil
}

// Stats summarizes the table without exposing key material.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var total int
	var lastSet, lastUsed sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(set_at), MAX(last_used) FROM api_keys`).Scan(&total, &lastSet, &lastUsed)
	if err != nil {
		return nil, fmt.Errorf("credential store: stats: %w", err)
	}

	stats := &Stats{TotalClients: total}
	if lastSet.Valid {
		t := time.Unix(lastSet.Int64, 0).UTC()
		stats.LastSet = &t
	}
	if lastUsed.Valid {
		t := time.Unix(lastUsed.Int64, 0).UTC()
		stats.LastUsed = &t
	}
	return stats, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("credential store: close database: %w", err)
	}
	return nil
}

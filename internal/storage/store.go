package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5000

// Store wraps the SQLite handle behind the search-result cache. Room state is
// deliberately never persisted; this cache is the only durable data the
// backend keeps.
type Store struct {
	db *sql.DB
}

// CachedSearch is one cached lookup row.
type CachedSearch struct {
	ID        string
	Query     string
	Results   []byte
	CreatedAt time.Time
}

// NewStore initializes the SQLite database at the provided path. Call Close
// when done.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "together-cache.db"
	}
	dsn := buildDSN(path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d", path, separator, defaultBusyTimeout)
}

// Migrate runs the schema creation statements.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS search_cache (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL UNIQUE,
			results TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_search_cache_created_at ON search_cache(created_at);`,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PutSearchResults inserts or replaces the cached results for a query key.
func (s *Store) PutSearchResults(ctx context.Context, query string, results []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_cache(id, query, results, created_at) VALUES(?, ?, ?, ?)
		 ON CONFLICT(query) DO UPDATE SET results=excluded.results, created_at=excluded.created_at`,
		uuid.NewString(), query, string(results), time.Now().UTC())
	return err
}

// GetSearchResults returns the cached results for a query key if they are
// younger than maxAge, or nil when missing/stale.
func (s *Store) GetSearchResults(ctx context.Context, query string, maxAge time.Duration) ([]byte, error) {
	row := s.db.QueryRowContext(ctx, `SELECT results, created_at FROM search_cache WHERE query = ?`, query)
	var results string
	var createdAt time.Time
	if err := row.Scan(&results, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if maxAge > 0 && time.Since(createdAt) > maxAge {
		return nil, nil
	}
	return []byte(results), nil
}

// PruneExpired removes cache rows older than maxAge and reports how many went.
func (s *Store) PruneExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

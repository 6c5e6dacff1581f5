// Package analysiscache provides persistent memoization of one-shot document
// analysis results. Clean Architecture: Adapter implementing ports.AnalysisCache.
//
// Only the derived summary is persisted, keyed by document content hash.
// Session state itself stays in memory; this cache exists so re-uploading an
// unchanged file skips the model call.
package analysiscache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteCache implements ports.AnalysisCache on a local SQLite file.
type SQLiteCache struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteCache opens (or creates) the cache database under dataPath.
func NewSQLiteCache(dataPath string) (*SQLiteCache, error) {
	if dataPath == "" {
		dataPath = "./data"
	}

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "analysis.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	cache := &SQLiteCache{db: db}
	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return cache, nil
}

// initSchema creates the necessary tables.
func (c *SQLiteCache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		content_hash TEXT PRIMARY KEY,
		summary TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Get returns the cached summary for the hash, or ok=false on a miss.
func (c *SQLiteCache) Get(ctx context.Context, contentHash string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var summary string
	err := c.db.QueryRowContext(ctx,
		"SELECT summary FROM analyses WHERE content_hash = ?", contentHash,
	).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying cache: %w", err)
	}
	return summary, true, nil
}

// Put stores the summary for the hash, replacing any previous entry.
func (c *SQLiteCache) Put(ctx context.Context, contentHash, summary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO analyses (content_hash, summary) VALUES (?, ?)",
		contentHash, summary,
	)
	if err != nil {
		return fmt.Errorf("inserting cache entry: %w", err)
	}
	return nil
}

// Purge removes all cached entries.
func (c *SQLiteCache) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx, "DELETE FROM analyses")
	return err
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

package indexer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

const dataSchema = `
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL,
		key TEXT NOT NULL,
		key_folded TEXT NOT NULL,
		value BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_key ON entries(key);
	CREATE INDEX IF NOT EXISTS idx_entries_file ON entries(file_path);
`

// Entry is one keyed value stored for a file
type Entry[T any] struct {
	Key  string
	Item T
}

// DataIndexer stores msgpack encoded values in SQLite, keyed by name and
// grouped by the file they came from
type DataIndexer[T any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewDataIndexer opens or creates the database at dbPath
func NewDataIndexer[T any](dbPath string) (*DataIndexer[T], error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// a single connection serialises writers without SQLITE_BUSY retries
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(dataSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return &DataIndexer[T]{db: db, dbPath: dbPath}, nil
}

// ReplaceFile swaps all entries of filePath for entries in one transaction
func (idx *DataIndexer[T]) ReplaceFile(filePath string, entries []Entry[T]) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM entries WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}

	if len(entries) > 0 {
		stmt, err := tx.Prepare("INSERT INTO entries (file_path, key, key_folded, value) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, entry := range entries {
			data, err := msgpack.Marshal(entry.Item)
			if err != nil {
				return fmt.Errorf("failed to marshal item: %w", err)
			}
			if _, err := stmt.Exec(filePath, entry.Key, strings.ToLower(entry.Key), data); err != nil {
				return fmt.Errorf("failed to save item: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteByFilePaths removes every entry of the given files
func (idx *DataIndexer[T]) DeleteByFilePaths(filePaths []string) error {
	if len(filePaths) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, filePath := range filePaths {
		if _, err := tx.Exec("DELETE FROM entries WHERE file_path = ?", filePath); err != nil {
			return fmt.Errorf("failed to delete entries: %w", err)
		}
	}

	return tx.Commit()
}

// GetValues returns all items stored under key, in insertion order
func (idx *DataIndexer[T]) GetValues(key string) ([]T, error) {
	return idx.query("SELECT value FROM entries WHERE key = ? ORDER BY id", key)
}

// Search returns the items whose key contains substr, ignoring case. An empty
// substr matches everything. limit <= 0 means no limit.
func (idx *DataIndexer[T]) Search(substr string, limit int) ([]T, error) {
	pattern := "%" + escapeLike(strings.ToLower(substr)) + "%"
	if limit <= 0 {
		limit = -1
	}
	return idx.query(`SELECT value FROM entries WHERE key_folded LIKE ? ESCAPE '\' ORDER BY key_folded, id LIMIT ?`, pattern, limit)
}

func (idx *DataIndexer[T]) query(query string, args ...any) ([]T, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var item T
		if err := msgpack.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (idx *DataIndexer[T]) Clear() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, err := idx.db.Exec("DELETE FROM entries")
	return err
}

// Close checkpoints the WAL and closes the database
func (idx *DataIndexer[T]) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, _ = idx.db.Exec("PRAGMA optimize")
	_, _ = idx.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")

	return idx.db.Close()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

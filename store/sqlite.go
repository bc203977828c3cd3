package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lexandro/filefind-mcp/index"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  path TEXT UNIQUE NOT NULL,
  extension TEXT,
  modified_time INTEGER,
  created_at INTEGER DEFAULT (strftime('%s', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_files_name ON files(name);
CREATE INDEX IF NOT EXISTS idx_files_modified ON files(modified_time DESC);
`

const upsertSQL = `
INSERT INTO files (name, path, extension, modified_time)
VALUES (?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
  name = excluded.name,
  extension = excluded.extension,
  modified_time = excluded.modified_time
`

// SQLiteStore is the persisted record store. Path uniqueness is enforced by the schema.
type SQLiteStore struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

// DefaultDBPath returns the default database path (~/.filefind/filefind.db).
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".filefind", "filefind.db"), nil
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath.
// An empty path selects DefaultDBPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		var err error
		dbPath, err = DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// UpsertFile inserts record or replaces the row with the same path.
func (s *SQLiteStore) UpsertFile(ctx context.Context, record index.FileRecord) error {
	_, err := s.db.ExecContext(ctx, upsertSQL, record.Name, record.Path, record.Extension, record.ModifiedTime)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", record.Path, err)
	}
	return nil
}

// UpsertFiles writes a batch of records in a single transaction.
func (s *SQLiteStore) UpsertFiles(ctx context.Context, records []index.FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx, record.Name, record.Path, record.Extension, record.ModifiedTime); err != nil {
			return fmt.Errorf("upsert %s: %w", record.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// UpdateFile rewrites the row stored under path. Returns false if no row exists.
func (s *SQLiteStore) UpdateFile(ctx context.Context, path string, record index.FileRecord) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE files SET name = ?, extension = ?, modified_time = ? WHERE path = ?`,
		record.Name, record.Extension, record.ModifiedTime, path)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", path, err)
	}
	return affected(result)
}

// DeleteFile removes the row for path. Returns false if no row existed.
func (s *SQLiteStore) DeleteFile(ctx context.Context, path string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", path, err)
	}
	return affected(result)
}

// DeleteUnder removes every row whose path is dir or lies below it.
func (s *SQLiteStore) DeleteUnder(ctx context.Context, dir string) (int, error) {
	dir = filepath.Clean(dir)
	prefix := escapeLike(strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator)) + "%"

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM files WHERE path = ? OR path LIKE ? ESCAPE '\'`, dir, prefix)
	if err != nil {
		return 0, fmt.Errorf("delete under %s: %w", dir, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// LoadAllFiles returns every stored record ordered by path.
func (s *SQLiteStore) LoadAllFiles(ctx context.Context) ([]index.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, path, COALESCE(extension, ''), COALESCE(modified_time, 0) FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}
	defer rows.Close()

	var records []index.FileRecord
	for rows.Next() {
		var record index.FileRecord
		if err := rows.Scan(&record.Name, &record.Path, &record.Extension, &record.ModifiedTime); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file rows: %w", err)
	}
	return records, nil
}

// FileCount returns the number of stored records.
func (s *SQLiteStore) FileCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return count, nil
}

// Clear removes all records.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return fmt.Errorf("clear files: %w", err)
	}
	return nil
}

// Close closes the database connection. It is safe to call Close multiple times.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		// Merge the WAL into the main database before closing
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// escapeLike escapes LIKE wildcards so a path prefix matches literally.
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fileelf/fileelf/pkg/meta"

	_ "modernc.org/sqlite"
)

// SqliteDatabase implements Database on a local SQLite file. A single mutex
// serializes every statement: the writer actor already funnels mutations
// through one goroutine, and readers hold the lock only for one query.
type SqliteDatabase struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSqlite opens (or creates) the store file at path and ensures the
// schema exists.
func OpenSqlite(path string) (*SqliteDatabase, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SqliteDatabase{db: db}
	if err := s.CreateTable(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// CreateTable creates the entries table and its name index if needed.
func (s *SqliteDatabase) CreateTable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			entry        TEXT NOT NULL,
			path         TEXT NOT NULL UNIQUE,
			size         INTEGER NOT NULL,
			modified     INTEGER NOT NULL,
			access_count INTEGER NOT NULL,
			entry_type   TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_entry ON entries(entry);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SqliteDatabase) Close() error {
	return s.db.Close()
}

func (s *SqliteDatabase) Insert(path string, m meta.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO entries (entry, path, size, modified, access_count, entry_type)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entryName(path), path, int64(m.Size), m.Modified.Unix(), int64(m.AccessCount), string(m.Kind))
	if err != nil {
		return fmt.Errorf("insert %s: %w", path, err)
	}
	return nil
}

func (s *SqliteDatabase) Upsert(path string, m meta.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO entries (entry, path, size, modified, access_count, entry_type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			entry = excluded.entry,
			size = excluded.size,
			modified = excluded.modified,
			access_count = excluded.access_count,
			entry_type = excluded.entry_type
	`, entryName(path), path, int64(m.Size), m.Modified.Unix(), int64(m.AccessCount), string(m.Kind))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", path, err)
	}
	return nil
}

func (s *SqliteDatabase) FindByPath(path string) (*meta.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRow(`
		SELECT path, size, modified, access_count, entry_type
		FROM entries WHERE path = ?
	`, path)
	m, err := scanMeta(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s: %w", path, err)
	}
	return &m, nil
}

func (s *SqliteDatabase) FindByPathPrefix(prefix string) ([]meta.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// SQLite's LIKE ignores ASCII case; the substr comparison keeps the
	// prefix match case-sensitive.
	rows, err := s.db.Query(`
		SELECT path, size, modified, access_count, entry_type
		FROM entries WHERE path LIKE ? ESCAPE '\' AND substr(path, 1, length(?)) = ?
	`, escapeLike(prefix)+"%", prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("find prefix %s: %w", prefix, err)
	}
	defer rows.Close()
	return collectMetas(rows)
}

func (s *SqliteDatabase) FindByEntry(name string) ([]meta.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`
		SELECT path, size, modified, access_count, entry_type
		FROM entries WHERE entry = ?
	`, name)
	if err != nil {
		return nil, fmt.Errorf("find entry %s: %w", name, err)
	}
	defer rows.Close()
	return collectMetas(rows)
}

func (s *SqliteDatabase) DeleteByPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM entries WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *SqliteDatabase) DeleteByPathPrefix(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM entries WHERE path LIKE ? ESCAPE '\' AND substr(path, 1, length(?)) = ?`,
		escapeLike(prefix)+"%", prefix, prefix); err != nil {
		return fmt.Errorf("delete prefix %s: %w", prefix, err)
	}
	return nil
}

func (s *SqliteDatabase) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	return nil
}

func (s *SqliteDatabase) IterAll() ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`
		SELECT entry, path, size, modified, access_count, entry_type
		FROM entries
	`)
	if err != nil {
		return nil, fmt.Errorf("iter all: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var entry, path, kind string
		var size, modified, count int64
		if err := rows.Scan(&entry, &path, &size, &modified, &count, &kind); err != nil {
			return nil, err
		}
		out = append(out, Row{Entry: entry, Meta: rowMeta(path, size, modified, count, kind)})
	}
	return out, rows.Err()
}

// entryName is the final path component recorded beside each row so that
// name-only lookup never has to parse paths.
func entryName(path string) string {
	return filepath.Base(path)
}

// escapeLike protects the LIKE wildcards in a literal prefix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func scanMeta(scan func(...any) error) (meta.Meta, error) {
	var path, kind string
	var size, modified, count int64
	if err := scan(&path, &size, &modified, &count, &kind); err != nil {
		return meta.Meta{}, err
	}
	return rowMeta(path, size, modified, count, kind), nil
}

func rowMeta(path string, size, modified, count int64, kind string) meta.Meta {
	return meta.Meta{
		Path:        path,
		Size:        uint64(size),
		Modified:    time.Unix(modified, 0),
		AccessCount: uint32(count),
		Kind:        meta.ParseKind(kind),
	}
}

func collectMetas(rows *sql.Rows) ([]meta.Meta, error) {
	var out []meta.Meta
	for rows.Next() {
		m, err := scanMeta(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ Database = (*SqliteDatabase)(nil)

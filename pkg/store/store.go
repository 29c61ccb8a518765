// Package store defines the persistent record contract and its SQLite
// implementation. The rest of the system depends only on the Database
// interface, so alternative backends can be dropped in behind the dbtype
// config key.
package store

import (
	"fmt"

	"github.com/fileelf/fileelf/pkg/meta"
)

// Row pairs the bare entry name with the full Meta, as produced by IterAll.
type Row struct {
	Entry string
	Meta  meta.Meta
}

// Database is the durable, path-keyed record storage the engine writes
// through and falls back to on cache misses. Implementations serialize
// access internally; callers hold no lock of their own.
type Database interface {
	// CreateTable creates the schema if it does not exist yet.
	CreateTable() error
	// Insert adds a record and fails if the path already exists.
	Insert(path string, m meta.Meta) error
	// Upsert inserts or updates the record keyed by path.
	Upsert(path string, m meta.Meta) error
	// FindByPath returns the record for path, or nil when absent.
	FindByPath(path string) (*meta.Meta, error)
	// FindByPathPrefix returns every record whose path starts with prefix.
	FindByPathPrefix(prefix string) ([]meta.Meta, error)
	// FindByEntry returns every record whose entry name equals name.
	FindByEntry(name string) ([]meta.Meta, error)
	// DeleteByPath removes the single record keyed by path.
	DeleteByPath(path string) error
	// DeleteByPathPrefix removes every record whose path starts with prefix.
	DeleteByPathPrefix(prefix string) error
	// DeleteAll empties the table.
	DeleteAll() error
	// IterAll returns every record with its entry name. Used once at boot.
	IterAll() ([]Row, error)
	// Close releases backend resources.
	Close() error
}

// Open selects a backend by dbtype. SQLite is the only backend shipped.
func Open(dbtype, path string) (Database, error) {
	switch dbtype {
	case "", "sqlite", "sqlite3":
		return OpenSqlite(path)
	default:
		return nil, fmt.Errorf("unknown dbtype %q", dbtype)
	}
}

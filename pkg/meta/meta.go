package meta

import (
	"os"
	"time"
)

// Kind classifies a filesystem entry. The textual values are what the
// persistent store records in its entry_type column.
type Kind string

const (
	KindFile    Kind = "File"
	KindDir     Kind = "Dir"
	KindUnknown Kind = "Unknown"
)

// ParseKind maps a stored entry_type tag back to a Kind. Unrecognized
// tags come back as KindUnknown.
func ParseKind(s string) Kind {
	switch s {
	case string(KindFile):
		return KindFile
	case string(KindDir):
		return KindDir
	default:
		return KindUnknown
	}
}

// Meta describes one tracked filesystem entry: the stat-derived basics plus
// the access counter this service maintains on top of them.
type Meta struct {
	// Path is the absolute path of the entry and its identity.
	Path string
	// Size is the byte length; 0 for directories.
	Size uint64
	// Modified is the last content change.
	Modified time.Time
	// AccessCount is bumped on tracked lookups and touches. It never
	// decreases for the life of the record.
	AccessCount uint32
	// Kind is the entry classification.
	Kind Kind
}

// Empty returns a zero-value Meta stamped with the current time.
func Empty() Meta {
	return Meta{Modified: time.Now(), Kind: KindUnknown}
}

// ForPath builds a Meta from a stat of path. When the path cannot be
// statted (not yet on disk, permission trouble) the Meta still carries the
// path but with KindUnknown, so callers like star can track entries that
// do not exist yet.
func ForPath(path string) Meta {
	if path == "" {
		return Empty()
	}
	info, err := os.Stat(path)
	if err != nil {
		return Meta{Path: path, Modified: time.Now(), Kind: KindUnknown}
	}
	kind := KindFile
	size := uint64(info.Size())
	if info.IsDir() {
		kind = KindDir
		size = 0
	}
	return Meta{
		Path:     path,
		Size:     size,
		Modified: info.ModTime(),
		Kind:     kind,
	}
}

// Touch increments the access counter.
func (m *Meta) Touch() {
	m.AccessCount++
}

// Less reports whether m ranks strictly below other: files rank above
// non-files, and within the same kind a higher access count ranks higher.
func (m Meta) Less(other Meta) bool {
	mFile := m.Kind == KindFile
	oFile := other.Kind == KindFile
	if mFile != oFile {
		return oFile
	}
	return m.AccessCount < other.AccessCount
}

// RankEqual reports whether two records occupy the same rank. Only kind
// and access count participate; path, size, and timestamps do not.
func (m Meta) RankEqual(other Meta) bool {
	return m.Kind == other.Kind && m.AccessCount == other.AccessCount
}

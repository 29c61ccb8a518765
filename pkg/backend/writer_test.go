package backend

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fileelf/fileelf/pkg/meta"
	"github.com/fileelf/fileelf/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileMeta(path string) meta.Meta {
	return meta.Meta{Path: path, Kind: meta.KindFile, Modified: time.Unix(1700000000, 0)}
}

func runActions(t *testing.T, db store.Database, actions ...Action) {
	t.Helper()
	ch := make(chan Action, len(actions))
	for _, a := range actions {
		ch <- a
	}
	close(ch)
	done := make(chan struct{})
	go func() {
		runWriter(db, ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("writer did not drain")
	}
}

func TestWriterCreateUpdateDelete(t *testing.T) {
	db, err := store.OpenSqlite(filepath.Join(t.TempDir(), "elf.db"))
	require.NoError(t, err)
	defer db.Close()

	tmp := t.TempDir()
	file := filepath.Join(tmp, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	m := fileMeta(file)
	updated := m
	updated.AccessCount = 7

	runActions(t, db,
		Action{Op: OpCreate, Path: file, Meta: m},
		Action{Op: OpUpdate, Path: file, Meta: updated},
		Action{Op: OpFind},
	)

	got, err := db.FindByPath(file)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint32(7), got.AccessCount)

	runActions(t, db, Action{Op: OpDelete, Path: file})
	got, err = db.FindByPath(file)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWriterDeleteDirectoryTakesSubtree(t *testing.T) {
	db, err := store.OpenSqlite(filepath.Join(t.TempDir(), "elf.db"))
	require.NoError(t, err)
	defer db.Close()

	tmp := t.TempDir()
	dir := filepath.Join(tmp, "proj")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	inside := filepath.Join(dir, "x.txt")
	sibling := filepath.Join(tmp, "projects.txt")
	for _, p := range []string{dir, inside, sibling} {
		require.NoError(t, db.Upsert(p, fileMeta(p)))
	}

	runActions(t, db, Action{Op: OpDelete, Path: dir})

	got, err := db.FindByPath(inside)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = db.FindByPath(dir)
	require.NoError(t, err)
	assert.Nil(t, got)

	// The sibling shares a string prefix but not a path prefix.
	got, err = db.FindByPath(sibling)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestWriterDeleteVanishedPath(t *testing.T) {
	db, err := store.OpenSqlite(filepath.Join(t.TempDir(), "elf.db"))
	require.NoError(t, err)
	defer db.Close()

	gone := filepath.Join(t.TempDir(), "was-here")
	require.NoError(t, db.Upsert(gone, fileMeta(gone)))
	require.NoError(t, db.Upsert(filepath.Join(gone, "child.txt"), fileMeta(filepath.Join(gone, "child.txt"))))

	runActions(t, db, Action{Op: OpDelete, Path: gone})

	rows, err := db.IterAll()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// failingDB errors on every mutation so the failure policy is observable.
type failingDB struct {
	mu    sync.Mutex
	calls int
}

func (f *failingDB) bump() error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return errors.New("backend down")
}

func (f *failingDB) CreateTable() error                           { return f.bump() }
func (f *failingDB) Insert(string, meta.Meta) error               { return f.bump() }
func (f *failingDB) Upsert(string, meta.Meta) error               { return f.bump() }
func (f *failingDB) FindByPath(string) (*meta.Meta, error)        { return nil, f.bump() }
func (f *failingDB) FindByPathPrefix(string) ([]meta.Meta, error) { return nil, f.bump() }
func (f *failingDB) FindByEntry(string) ([]meta.Meta, error)      { return nil, f.bump() }
func (f *failingDB) DeleteByPath(string) error                    { return f.bump() }
func (f *failingDB) DeleteByPathPrefix(string) error              { return f.bump() }
func (f *failingDB) DeleteAll() error                             { return f.bump() }
func (f *failingDB) IterAll() ([]store.Row, error)                { return nil, f.bump() }
func (f *failingDB) Close() error                                 { return nil }

func TestWriterSurvivesStoreErrors(t *testing.T) {
	db := &failingDB{}

	runActions(t, db,
		Action{Op: OpCreate, Path: "/a", Meta: fileMeta("/a")},
		Action{Op: OpUpdate, Path: "/b", Meta: fileMeta("/b")},
		Action{Op: OpDelete, Path: "/c"},
	)

	// Every command was attempted despite each one failing.
	db.mu.Lock()
	calls := db.calls
	db.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 3)
}

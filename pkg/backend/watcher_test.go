package backend

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleNewEventCreatesAndPersists(t *testing.T) {
	e, db := newTestEngine(t, 4)

	tmp := t.TempDir()
	file := filepath.Join(tmp, "b.txt")
	require.NoError(t, os.WriteFile(file, []byte("data"), 0o644))

	e.handleNewEvent(file)

	e.mu.Lock()
	got, ok := e.trie.SearchPath(file, false)
	e.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, uint32(1), got.AccessCount)

	e.Close()
	row, err := db.FindByPath(file)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, uint64(4), row.Size)
}

func TestHandleNewEventExistingNodeRefreshes(t *testing.T) {
	e, db := newTestEngine(t, 4)

	tmp := t.TempDir()
	file := filepath.Join(tmp, "b.txt")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0o644))

	e.handleNewEvent(file)
	require.NoError(t, os.WriteFile(file, []byte("version-two"), 0o644))
	e.handleNewEvent(file)

	e.mu.Lock()
	got, ok := e.trie.SearchPath(file, false)
	e.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, uint64(11), got.Size)
	assert.Equal(t, uint32(2), got.AccessCount)

	e.Close()
	row, err := db.FindByPath(file)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, uint64(11), row.Size)
}

func TestHandleNewEventAdoptsStoredMeta(t *testing.T) {
	e, db := newTestEngine(t, 4)
	defer e.Close()

	tmp := t.TempDir()
	file := filepath.Join(tmp, "b.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	stored := fileMeta(file)
	stored.AccessCount = 9
	require.NoError(t, db.Upsert(file, stored))

	e.handleNewEvent(file)

	e.mu.Lock()
	got, ok := e.trie.SearchPath(file, false)
	e.mu.Unlock()
	require.True(t, ok)
	// Stored counter survives, plus the bump for this event.
	assert.Equal(t, uint32(10), got.AccessCount)
}

func TestHandleNewEventIgnoresBlacklistedAndStoreFile(t *testing.T) {
	e, _ := newTestEngine(t, 4, `ignored`)
	defer e.Close()

	e.handleNewEvent("/data/ignored/x.txt")
	e.handleNewEvent(e.cfg.Database.Path)

	e.mu.Lock()
	assert.False(t, e.trie.Contains("/data/ignored/x.txt", false))
	assert.False(t, e.trie.Contains(e.cfg.Database.Path, false))
	e.mu.Unlock()
}

func TestHandleRemoveEvent(t *testing.T) {
	e, db := newTestEngine(t, 4)

	tmp := t.TempDir()
	file := filepath.Join(tmp, "b.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	e.handleNewEvent(file)
	require.NoError(t, os.Remove(file))
	e.handleRemoveEvent(file)

	e.mu.Lock()
	assert.False(t, e.trie.Contains(file, false))
	e.mu.Unlock()

	e.Close()
	row, err := db.FindByPath(file)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestRenameIsDeleteThenCreate(t *testing.T) {
	e, db := newTestEngine(t, 4)

	tmp := t.TempDir()
	oldPath := filepath.Join(tmp, "a.txt")
	newPath := filepath.Join(tmp, "b.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("x"), 0o644))

	e.handleNewEvent(oldPath)
	require.NoError(t, os.Rename(oldPath, newPath))

	// The debounced batch for a rename: remove(old) before create(new).
	e.dispatch([]fileEvent{
		{path: oldPath, op: opRemoved},
		{path: newPath, op: opTouched},
	})

	e.mu.Lock()
	assert.False(t, e.trie.Contains(oldPath, false))
	assert.True(t, e.trie.Contains(newPath, false))
	e.mu.Unlock()

	e.Close()
	row, err := db.FindByPath(oldPath)
	require.NoError(t, err)
	assert.Nil(t, row)
	row, err = db.FindByPath(newPath)
	require.NoError(t, err)
	assert.NotNil(t, row)
}

func TestDebouncerCoalescesAndOrders(t *testing.T) {
	var mu sync.Mutex
	var batches [][]fileEvent
	d := newDebouncer(20*time.Millisecond, func(batch []fileEvent) {
		mu.Lock()
		batches = append(batches, batch)
		mu.Unlock()
	})

	d.add("/a", opTouched)
	d.add("/b", opTouched)
	d.add("/a", opTouched) // coalesced into the first marker
	d.add("/b", opRemoved) // removal wins
	d.add("/b", opTouched) // and stays won

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches[0], 2)
	assert.Equal(t, fileEvent{path: "/a", op: opTouched}, batches[0][0])
	assert.Equal(t, fileEvent{path: "/b", op: opRemoved}, batches[0][1])
}

func TestDebouncerStopFlushesPending(t *testing.T) {
	var mu sync.Mutex
	var got []fileEvent
	d := newDebouncer(time.Hour, func(batch []fileEvent) {
		mu.Lock()
		got = append(got, batch...)
		mu.Unlock()
	})

	d.add("/x", opTouched)
	d.stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "/x", got[0].path)

	d.add("/late", opTouched) // ignored after stop
}

func TestWatchEndToEnd(t *testing.T) {
	e, db := newTestEngine(t, 4)
	e.debounce = 50 * time.Millisecond

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, e.Watch(root))

	file := filepath.Join(root, "a", "b.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	require.Eventually(t, func() bool {
		hits := e.Search("b.txt", false)
		return len(hits) == 1 && hits[0].Path == file && hits[0].Known
	}, 5*time.Second, 50*time.Millisecond)

	e.Close()
	rows, err := db.FindByEntry("b.txt")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, file, rows[0].Path)
}

func TestWatchMissingTarget(t *testing.T) {
	e, _ := newTestEngine(t, 4)
	defer e.Close()

	// A target that cannot be watched is reported, not fatal.
	err := e.Watch(filepath.Join(t.TempDir(), "definitely-missing"))
	assert.Error(t, err)
}

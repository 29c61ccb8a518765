package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForPathFile(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "note.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	m := ForPath(file)
	assert.Equal(t, file, m.Path)
	assert.Equal(t, KindFile, m.Kind)
	assert.Equal(t, uint64(5), m.Size)
	assert.Equal(t, uint32(0), m.AccessCount)
	assert.False(t, m.Modified.IsZero())
}

func TestForPathDir(t *testing.T) {
	tmp := t.TempDir()

	m := ForPath(tmp)
	assert.Equal(t, KindDir, m.Kind)
	assert.Equal(t, uint64(0), m.Size)
}

func TestForPathMissing(t *testing.T) {
	m := ForPath("/does/not/exist/anywhere")
	assert.Equal(t, "/does/not/exist/anywhere", m.Path)
	assert.Equal(t, KindUnknown, m.Kind)
}

func TestForPathEmpty(t *testing.T) {
	m := ForPath("")
	assert.Equal(t, "", m.Path)
	assert.Equal(t, KindUnknown, m.Kind)
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindFile, ParseKind("File"))
	assert.Equal(t, KindDir, ParseKind("Dir"))
	assert.Equal(t, KindUnknown, ParseKind("Unknown"))
	assert.Equal(t, KindUnknown, ParseKind("weird"))
}

func TestOrderingFilesAboveDirs(t *testing.T) {
	file := Meta{Kind: KindFile, AccessCount: 1}
	dir := Meta{Kind: KindDir, AccessCount: 100}

	assert.True(t, dir.Less(file))
	assert.False(t, file.Less(dir))
}

func TestOrderingByAccessCount(t *testing.T) {
	cold := Meta{Kind: KindDir, AccessCount: 3}
	hot := Meta{Kind: KindDir, AccessCount: 10}

	assert.True(t, cold.Less(hot))
	assert.False(t, hot.Less(cold))
	assert.False(t, hot.Less(hot))
}

func TestRankEqualIgnoresPathAndSize(t *testing.T) {
	a := Meta{Path: "/a", Size: 1, Kind: KindDir, AccessCount: 5}
	b := Meta{Path: "/b", Size: 9, Kind: KindDir, AccessCount: 5}

	assert.True(t, a.RankEqual(b))
	b.AccessCount = 6
	assert.False(t, a.RankEqual(b))
}

func TestTouchMonotonic(t *testing.T) {
	m := Meta{Kind: KindFile}
	for i := 0; i < 4; i++ {
		m.Touch()
	}
	assert.Equal(t, uint32(4), m.AccessCount)
}

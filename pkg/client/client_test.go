package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchDecodesPairs(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/file_elf/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[["/a/b.txt",true],["/c/d.txt",false]]`))
	}))
	defer srv.Close()

	hits, err := New(srv.URL).Search("b.txt", true)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, Hit{Path: "/a/b.txt", Known: true}, hits[0])
	assert.Equal(t, Hit{Path: "/c/d.txt", Known: false}, hits[1])
	assert.Contains(t, gotQuery, "is_fuzzy=true")
}

func TestStarDecodesBool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file_elf/star_path", r.URL.Path)
		assert.Equal(t, "/pin/me", r.URL.Query().Get("path_data"))
		_, _ = w.Write([]byte(`true`))
	}))
	defer srv.Close()

	ok, err := New(srv.URL).Star("/pin/me")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL).RegexSearch(".*")
	assert.Error(t, err)
}

func TestDaemonDown(t *testing.T) {
	_, err := New("http://127.0.0.1:1").Search("x", false)
	assert.Error(t, err)
}

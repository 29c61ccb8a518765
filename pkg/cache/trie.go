package cache

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fileelf/fileelf/pkg/meta"
	"github.com/sirupsen/logrus"
)

var (
	// ErrBadComponent is returned when a path component cannot be used as
	// a trie key (empty path, or a component containing a NUL byte).
	ErrBadComponent = errors.New("path component cannot be used as a key")
	// ErrPathNotFound is returned by Delete when a prefix of the path is
	// not present in the trie.
	ErrPathNotFound = errors.New("path not found")
)

// Trie is a path-component tree over tracked entries. Each node carries the
// Meta for its own path, so interior directories are first-class records and
// can be ranked by the hot-directory set.
//
// The trie has no internal locking; the owner serializes access (see
// backend.Engine).
type Trie struct {
	root *node
}

type node struct {
	name     string
	fullPath string
	meta     meta.Meta
	children map[string]*node
}

func newNode(name, fullPath string) *node {
	m := meta.ForPath(fullPath)
	return &node{
		name:     name,
		fullPath: fullPath,
		meta:     m,
		children: make(map[string]*node),
	}
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{root: &node{meta: meta.Empty(), children: make(map[string]*node)}}
}

// splitPath breaks an absolute path into trie components. The platform root
// (or volume name on Windows) becomes the leading component so that paths
// sharing a root share a node chain.
func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrBadComponent
	}
	clean := filepath.Clean(path)

	var comps []string
	vol := filepath.VolumeName(clean)
	rest := clean[len(vol):]
	if vol != "" {
		comps = append(comps, vol)
	}
	sep := string(filepath.Separator)
	if strings.HasPrefix(rest, sep) {
		comps = append(comps, sep)
		rest = strings.TrimLeft(rest, sep)
	}
	if rest != "" {
		for _, c := range strings.Split(rest, sep) {
			if c == "" || strings.ContainsRune(c, 0) {
				return nil, ErrBadComponent
			}
			comps = append(comps, c)
		}
	}
	if len(comps) == 0 {
		return nil, ErrBadComponent
	}
	return comps, nil
}

// Insert walks the components of path, creating missing nodes on the way.
// The provided Meta is applied to the terminal node only when that node is
// created by this call; an existing terminal keeps its stored Meta. When
// bump is set, every node visited has its access counter incremented.
// It returns a copy of the terminal node's Meta.
func (t *Trie) Insert(path string, m *meta.Meta, bump bool) (meta.Meta, error) {
	comps, err := splitPath(path)
	if err != nil {
		return meta.Meta{}, err
	}

	cur := t.root
	fullPath := ""
	for i, comp := range comps {
		if fullPath == "" {
			fullPath = comp
		} else {
			fullPath = filepath.Join(fullPath, comp)
		}
		child, ok := cur.children[comp]
		if !ok {
			child = newNode(comp, fullPath)
			if i == len(comps)-1 && m != nil {
				child.meta = *m
			}
			cur.children[comp] = child
		}
		cur = child
		if bump {
			cur.meta.Touch()
		}
	}
	return cur.meta, nil
}

// RefreshMeta replaces the stored Meta of an existing terminal node while
// preserving its access counter. It reports whether the path was present.
func (t *Trie) RefreshMeta(path string, m meta.Meta) bool {
	n := t.walk(path)
	if n == nil {
		return false
	}
	m.AccessCount = n.meta.AccessCount
	n.meta = m
	return true
}

// Delete removes the terminal node of path together with its subtree.
// Ancestor nodes stay in place. Missing prefixes yield ErrPathNotFound.
func (t *Trie) Delete(path string) error {
	comps, err := splitPath(path)
	if err != nil {
		return ErrPathNotFound
	}

	cur := t.root
	for i, comp := range comps {
		child, ok := cur.children[comp]
		if !ok {
			return ErrPathNotFound
		}
		if i == len(comps)-1 {
			delete(cur.children, comp)
			return nil
		}
		cur = child
	}
	return nil
}

// SearchPath resolves the full path and returns a copy of the terminal
// node's Meta. On a hit with bump set, only the terminal counter moves.
func (t *Trie) SearchPath(path string, bump bool) (meta.Meta, bool) {
	n := t.walk(path)
	if n == nil {
		return meta.Meta{}, false
	}
	if bump {
		n.meta.Touch()
	}
	return n.meta, true
}

// Contains reports whether the full path resolves to a node, bumping the
// terminal counter on a hit when requested.
func (t *Trie) Contains(path string, bump bool) bool {
	_, ok := t.SearchPath(path, bump)
	return ok
}

func (t *Trie) walk(path string) *node {
	comps, err := splitPath(path)
	if err != nil {
		return nil
	}
	cur := t.root
	for _, comp := range comps {
		child, ok := cur.children[comp]
		if !ok {
			return nil
		}
		cur = child
	}
	return cur
}

// SearchEntry returns every tracked path whose final component matches name
// under the prefix-window policy. The walk covers the whole trie; result
// order is unspecified.
func (t *Trie) SearchEntry(name string, fuzzy bool) []string {
	if name == "" {
		return nil
	}
	var results []string
	t.root.collectEntry(name, fuzzy, &results)
	return results
}

func (n *node) collectEntry(name string, fuzzy bool, results *[]string) {
	if n.name != "" && PatternMatch(name, n.name, fuzzy) {
		*results = append(*results, n.fullPath)
	}
	for _, child := range n.children {
		child.collectEntry(name, fuzzy, results)
	}
}

// SearchRegex returns every tracked path matched by pattern. An invalid
// pattern is logged and yields an empty result.
func (t *Trie) SearchRegex(pattern string) []string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		logrus.Errorf("invalid pattern %q: %v", pattern, err)
		return nil
	}
	var results []string
	t.root.collectRegex(re, &results)
	return results
}

func (n *node) collectRegex(re *regexp.Regexp, results *[]string) {
	if n.name != "" && re.MatchString(n.fullPath) {
		*results = append(*results, n.fullPath)
	}
	for _, child := range n.children {
		child.collectRegex(re, results)
	}
}

// Walk calls fn for every tracked node's Meta. Used by diagnostics and the
// consistency tests; traversal order is unspecified.
func (t *Trie) Walk(fn func(meta.Meta)) {
	t.root.walkAll(fn)
}

func (n *node) walkAll(fn func(meta.Meta)) {
	if n.name != "" {
		fn(n.meta)
	}
	for _, child := range n.children {
		child.walkAll(fn)
	}
}

package cache

import (
	"container/heap"
	"os"
	"path/filepath"
	"sync"

	"github.com/fileelf/fileelf/pkg/meta"
	"github.com/sirupsen/logrus"
)

// HotDirs is the bounded set of the most-accessed directories. Admission is
// the bounded-heap rule: push, then evict the lowest-ranked record once the
// set grows past capacity. Scans list at most one directory level per
// member, which is what keeps hot_search latency flat regardless of how
// deep a hot directory's subtree is.
type HotDirs struct {
	mu       sync.RWMutex
	capacity int
	heap     metaHeap
	// excluded filters scanned children; wired to the config blacklist.
	excluded func(path string) bool
}

// NewHotDirs builds an empty set with the given capacity. A nil exclude
// function keeps every child.
func NewHotDirs(capacity int, excluded func(string) bool) *HotDirs {
	if excluded == nil {
		excluded = func(string) bool { return false }
	}
	return &HotDirs{capacity: capacity, excluded: excluded}
}

// Push admits a directory record. Non-directories are ignored.
func (h *HotDirs) Push(m meta.Meta) {
	if m.Kind != meta.KindDir {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.capacity <= 0 {
		return
	}
	heap.Push(&h.heap, m)
	if h.heap.Len() > h.capacity {
		heap.Pop(&h.heap)
	}
}

// Len returns the current member count.
func (h *HotDirs) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.heap.Len()
}

// Snapshot copies the current members, in no particular order.
func (h *HotDirs) Snapshot() []meta.Meta {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]meta.Meta, len(h.heap))
	copy(out, h.heap)
	return out
}

// Scan lists the immediate children of every hot directory and returns the
// paths whose names match. With regex set, the pattern applies to the bare
// filename; otherwise the prefix-window matcher runs with the given fuzzy
// flag. Children caught by the exclusion filter are skipped.
func (h *HotDirs) Scan(name string, fuzzy, regex bool) []string {
	h.mu.RLock()
	dirs := make([]string, 0, len(h.heap))
	for _, m := range h.heap {
		dirs = append(dirs, m.Path)
	}
	h.mu.RUnlock()

	var results []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			logrus.Debugf("hot scan: read %s: %v", dir, err)
			continue
		}
		for _, entry := range entries {
			child := filepath.Join(dir, entry.Name())
			if h.excluded(child) {
				continue
			}
			if regex {
				if RegexMatch(entry.Name(), name) {
					results = append(results, child)
				}
			} else if PatternMatch(name, entry.Name(), fuzzy) {
				results = append(results, child)
			}
		}
	}
	return results
}

// metaHeap is a min-heap over Meta rank, so the root is always the record
// the bounded-heap rule evicts next.
type metaHeap []meta.Meta

func (h metaHeap) Len() int            { return len(h) }
func (h metaHeap) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h metaHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *metaHeap) Push(x interface{}) { *h = append(*h, x.(meta.Meta)) }

func (h *metaHeap) Pop() interface{} {
	old := *h
	n := len(old)
	m := old[n-1]
	*h = old[:n-1]
	return m
}

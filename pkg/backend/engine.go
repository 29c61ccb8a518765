// Package backend couples the trie cache, the hot-directory set, and the
// persistent store behind a single Engine. All shared state lives here as
// explicit dependencies; nothing in the core reaches for package globals.
package backend

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/fileelf/fileelf/pkg/cache"
	"github.com/fileelf/fileelf/pkg/config"
	"github.com/fileelf/fileelf/pkg/meta"
	"github.com/fileelf/fileelf/pkg/store"
	"github.com/sirupsen/logrus"
)

// writerQueueLen bounds the writer channel; event bursts beyond this block
// the producing watcher, which is the backpressure the store needs.
const writerQueueLen = 10

// Hit is one query result: a path plus whether the cache currently tracks
// it. It serializes as the [path, known] JSON pair the desktop shell reads.
type Hit struct {
	Path  string
	Known bool
}

// MarshalJSON emits the two-element array form.
func (h Hit) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{h.Path, h.Known})
}

// Engine owns the shared state and exposes the query facade. The trie is
// guarded by mu; the hot set and the store carry their own locks. The
// cardinal rule, restated from the watcher: mu is never held across a store
// call or a writer-channel send.
type Engine struct {
	cfg *config.Config
	db  store.Database

	mu   sync.Mutex
	trie *cache.Trie

	hot *cache.HotDirs

	actions  chan Action
	sendMu   sync.RWMutex
	closed   bool
	writerWg sync.WaitGroup

	debounce time.Duration

	watchMu   sync.Mutex
	watchStop []func()
}

// NewEngine wires an engine from its dependencies. The writer actor starts
// immediately; watchers start per target via Watch.
func NewEngine(cfg *config.Config, db store.Database) *Engine {
	e := &Engine{
		cfg:      cfg,
		db:       db,
		trie:     cache.NewTrie(),
		hot:      cache.NewHotDirs(cfg.Database.HotDirNum, cfg.IsBlacklisted),
		actions:  make(chan Action, writerQueueLen),
		debounce: time.Second,
	}
	e.writerWg.Add(1)
	go func() {
		defer e.writerWg.Done()
		runWriter(db, e.actions)
	}()
	return e
}

// Close stops the watchers, closes the writer channel, and waits for the
// queue to drain.
func (e *Engine) Close() {
	e.watchMu.Lock()
	for _, stop := range e.watchStop {
		stop()
	}
	e.watchStop = nil
	e.watchMu.Unlock()

	e.sendMu.Lock()
	if !e.closed {
		e.closed = true
		close(e.actions)
	}
	e.sendMu.Unlock()
	e.writerWg.Wait()
}

// send enqueues an action for the writer, blocking when the queue is full.
// It reports false once the engine has been closed.
func (e *Engine) send(a Action) bool {
	e.sendMu.RLock()
	defer e.sendMu.RUnlock()
	if e.closed {
		return false
	}
	e.actions <- a
	return true
}

// Boot loads the persistent store into the trie and seeds the hot-directory
// set. Rows whose paths are gone from disk or blacklisted are pruned from
// the store afterwards, so a stale index heals itself at startup.
func (e *Engine) Boot() error {
	rows, err := e.db.IterAll()
	if err != nil {
		return err
	}

	// Partition before taking the trie lock; IsExcluded stats the disk and
	// nothing slow belongs under that lock.
	var pruned []string
	var keep []meta.Meta
	for _, row := range rows {
		if e.cfg.IsExcluded(row.Meta.Path) {
			pruned = append(pruned, row.Meta.Path)
			continue
		}
		keep = append(keep, row.Meta)
	}

	e.mu.Lock()
	for i := range keep {
		if _, err := e.trie.Insert(keep[i].Path, &keep[i], false); err != nil {
			logrus.Errorf("boot: insert %s: %v", keep[i].Path, err)
		}
	}
	e.mu.Unlock()

	for _, m := range keep {
		if m.Kind == meta.KindDir {
			e.hot.Push(m)
		}
	}

	for _, path := range pruned {
		if err := e.db.DeleteByPath(path); err != nil {
			logrus.Errorf("boot: prune %s: %v", path, err)
		}
	}
	logrus.Infof("boot: loaded %d rows, pruned %d, %d hot dirs",
		len(keep), len(pruned), e.hot.Len())
	return nil
}

// Search looks the entry name up in the trie and, when the cache comes back
// empty, falls back to the store's exact name index.
func (e *Engine) Search(entry string, fuzzy bool) []Hit {
	logrus.Debugf("search: entry(%s), fuzzy(%t)", entry, fuzzy)
	if entry == "" {
		return nil
	}

	e.mu.Lock()
	paths := e.trie.SearchEntry(entry, fuzzy)
	e.mu.Unlock()

	if len(paths) == 0 {
		logrus.Debugf("search: cache miss, store lookup for %s", entry)
		recs, err := e.db.FindByEntry(entry)
		if err != nil {
			logrus.Errorf("search: store: %v", err)
			return nil
		}
		hits := make([]Hit, 0, len(recs))
		for _, m := range recs {
			hits = append(hits, Hit{Path: m.Path, Known: true})
		}
		return hits
	}

	hits := make([]Hit, 0, len(paths))
	for _, p := range paths {
		hits = append(hits, Hit{Path: p, Known: true})
	}
	return hits
}

// HotSearch scans the hot directories on disk and marks each result with
// whether the cache already tracks it. Membership checks do not bump
// counters.
func (e *Engine) HotSearch(entry string, fuzzy, regex bool) []Hit {
	logrus.Debugf("hot_search: entry(%s), fuzzy(%t), regex(%t)", entry, fuzzy, regex)
	if entry == "" {
		return nil
	}

	paths := e.hot.Scan(entry, fuzzy, regex)

	e.mu.Lock()
	hits := make([]Hit, 0, len(paths))
	for _, p := range paths {
		hits = append(hits, Hit{Path: p, Known: e.trie.Contains(p, false)})
	}
	e.mu.Unlock()
	return hits
}

// RegexSearch matches the pattern against every tracked path.
func (e *Engine) RegexSearch(pattern string) []Hit {
	logrus.Debugf("regex_search: pattern(%s)", pattern)
	if pattern == "" {
		return nil
	}

	e.mu.Lock()
	paths := e.trie.SearchRegex(pattern)
	e.mu.Unlock()

	hits := make([]Hit, 0, len(paths))
	for _, p := range paths {
		hits = append(hits, Hit{Path: p, Known: true})
	}
	return hits
}

// StarPath pins a path into the index: insert without a counter bump, then
// run the regular new-event path so the store catches up.
func (e *Engine) StarPath(path string) bool {
	e.mu.Lock()
	if _, err := e.trie.Insert(path, nil, false); err != nil {
		e.mu.Unlock()
		logrus.Errorf("star: insert %s: %v", path, err)
		return false
	}
	e.mu.Unlock()
	logrus.Debugf("star: %s cached", path)

	e.handleNewEvent(path)
	return true
}

// UnstarPath removes a pinned path and its subtree from cache and store.
// Blacklisted paths are a successful no-op. The return value reports
// whether the delete command reached the writer queue.
func (e *Engine) UnstarPath(path string) bool {
	if e.cfg.IsBlacklisted(path) {
		return true
	}

	e.mu.Lock()
	_ = e.trie.Delete(path)
	e.mu.Unlock()

	return e.send(Action{Op: OpDelete, Path: path})
}

// Snapshot returns the current hot-directory membership, for diagnostics.
func (e *Engine) Snapshot() []meta.Meta {
	return e.hot.Snapshot()
}

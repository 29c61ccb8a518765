package backend

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fileelf/fileelf/pkg/meta"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// eventOp is the debounced view of the raw notification stream: everything
// collapses to "something appeared or changed here" or "this is gone".
type eventOp int

const (
	opTouched eventOp = iota
	opRemoved
)

// Watch installs a recursive watcher over target and pumps its events
// through the debouncer into the reconciliation handlers. It returns once
// the watches are installed; processing continues in a goroutine until the
// engine is closed.
func (e *Engine) Watch(target string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watchRecursive(w, target); err != nil {
		logrus.Errorf("watch %s: %v", target, err)
		_ = w.Close()
		return err
	}
	logrus.Infof("watching directory %s for changes", target)

	done := make(chan struct{})
	e.watchMu.Lock()
	e.watchStop = append(e.watchStop, func() {
		_ = w.Close()
		<-done
	})
	e.watchMu.Unlock()

	deb := newDebouncer(e.debounce, e.dispatch)
	go func() {
		defer close(done)
		defer deb.stop()
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				e.classify(w, event, deb)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logrus.Errorf("watcher: %v", err)
			}
		}
	}()
	return nil
}

// classify folds a raw fsnotify event into the debouncer and keeps the
// recursive watch set current. Chmod-only events are log noise by contract.
func (e *Engine) classify(w *fsnotify.Watcher, event fsnotify.Event, deb *debouncer) {
	path := event.Name
	switch {
	case event.Has(fsnotify.Create):
		deb.add(path, opTouched)
		// A freshly created directory needs its own watch, and anything
		// already inside it (git checkout, archive extraction) never
		// produced events of its own.
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := watchRecursive(w, path); err != nil {
				logrus.Errorf("watcher: add %s: %v", path, err)
			}
			e.enqueueTree(path, deb)
		}
	case event.Has(fsnotify.Write):
		deb.add(path, opTouched)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A rename surfaces as Rename on the old path plus Create on the
		// new one, so the remove half lands here.
		deb.add(path, opRemoved)
	case event.Has(fsnotify.Chmod):
		logrus.Infof("watcher: permissions changed on %s", path)
	}
}

// enqueueTree marks every entry under root as touched.
func (e *Engine) enqueueTree(root string, deb *debouncer) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != root {
			deb.add(path, opTouched)
		}
		return nil
	})
}

// dispatch receives one debounced batch, in first-seen order.
func (e *Engine) dispatch(batch []fileEvent) {
	for _, ev := range batch {
		switch ev.op {
		case opTouched:
			e.handleNewEvent(ev.path)
		case opRemoved:
			e.handleRemoveEvent(ev.path)
		}
	}
}

// handleNewEvent reconciles a created or written path with cache and store.
//
// The locking dance is deliberate: the trie lock is dropped before the
// store lookup and before any channel send, then retaken for the insert.
// Holding it across either would deadlock against query handlers that take
// cache then store.
func (e *Engine) handleNewEvent(path string) {
	if e.cfg.IsBlacklisted(path) {
		logrus.Tracef("event: %s is blacklisted, ignoring", path)
		return
	}
	logrus.Infof("event: created or written %s", path)

	e.mu.Lock()
	prev, tracked := e.trie.SearchPath(path, true)
	e.mu.Unlock()

	if tracked {
		fresh := meta.ForPath(path)
		fresh.AccessCount = prev.AccessCount
		e.mu.Lock()
		e.trie.RefreshMeta(path, fresh)
		e.mu.Unlock()
		e.send(Action{Op: OpUpdate, Path: path, Meta: fresh})
		return
	}

	stored, err := e.db.FindByPath(path)
	if err != nil {
		logrus.Errorf("event: store lookup %s: %v", path, err)
	}

	e.mu.Lock()
	inserted, err := e.trie.Insert(path, stored, true)
	e.mu.Unlock()
	if err != nil {
		logrus.Errorf("event: insert %s: %v", path, err)
		return
	}

	if stored == nil {
		e.send(Action{Op: OpCreate, Path: path, Meta: inserted})
	}
}

// handleRemoveEvent drops the path from the cache and queues the store
// delete. A path the trie never held is still forwarded: the store may
// know rows the cache lost.
func (e *Engine) handleRemoveEvent(path string) {
	if e.cfg.IsBlacklisted(path) {
		logrus.Tracef("event: %s is blacklisted, ignoring", path)
		return
	}
	logrus.Infof("event: removed %s", path)

	e.mu.Lock()
	_ = e.trie.Delete(path)
	e.mu.Unlock()

	e.send(Action{Op: OpDelete, Path: path})
}

// watchRecursive adds a watch for dir and every directory beneath it.
func watchRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil {
				// The root itself is unreadable; nothing to watch.
				return err
			}
			logrus.Warnf("watcher: skipping %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil {
			logrus.Warnf("watcher: could not add watch for %s: %v", path, err)
		}
		return nil
	})
}

// fileEvent is one coalesced filesystem change.
type fileEvent struct {
	path string
	op   eventOp
}

// debouncer batches events per path over a fixed window that opens with the
// first pending event; later events do not extend it. Within one
// window the remove marker wins, mirroring the rule that a removed path
// must not be resurrected by a stale write. Flush order is first-seen
// order, which is what keeps a rename's delete ahead of its create.
type debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	pending  map[string]eventOp
	order    []string
	timer    *time.Timer
	flush    func([]fileEvent)
	stopped  bool
}

func newDebouncer(interval time.Duration, flush func([]fileEvent)) *debouncer {
	return &debouncer{
		interval: interval,
		pending:  make(map[string]eventOp),
		flush:    flush,
	}
}

func (d *debouncer) add(path string, op eventOp) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if existing, ok := d.pending[path]; ok {
		if existing == opRemoved || op == opRemoved {
			d.pending[path] = opRemoved
		}
	} else {
		d.pending[path] = op
		d.order = append(d.order, path)
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.interval, d.fire)
	}
}

func (d *debouncer) fire() {
	d.mu.Lock()
	batch := make([]fileEvent, 0, len(d.order))
	for _, path := range d.order {
		batch = append(batch, fileEvent{path: path, op: d.pending[path]})
	}
	d.pending = make(map[string]eventOp)
	d.order = nil
	d.timer = nil
	d.mu.Unlock()

	if len(batch) > 0 {
		d.flush(batch)
	}
}

// stop prevents further batches; anything pending is flushed first.
func (d *debouncer) stop() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.stopped = true
	batch := make([]fileEvent, 0, len(d.order))
	for _, path := range d.order {
		batch = append(batch, fileEvent{path: path, op: d.pending[path]})
	}
	d.pending = make(map[string]eventOp)
	d.order = nil
	d.mu.Unlock()

	if len(batch) > 0 {
		d.flush(batch)
	}
}

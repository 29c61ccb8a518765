package backend

import (
	"os"

	"github.com/fileelf/fileelf/pkg/meta"
	"github.com/fileelf/fileelf/pkg/store"
	"github.com/sirupsen/logrus"
)

// Op names a store mutation carried on the writer channel.
type Op int

const (
	// OpCreate inserts a new row unconditionally.
	OpCreate Op = iota
	// OpUpdate upserts the row keyed by path.
	OpUpdate
	// OpDelete removes the row (or, for directories, the whole prefix).
	OpDelete
	// OpFind is a diagnostic no-op.
	OpFind
)

// Action is one command for the writer actor.
type Action struct {
	Op   Op
	Path string
	Meta meta.Meta
}

// runWriter is the single consumer of the writer channel. It applies
// actions in send order; a failing command is logged and the loop keeps
// going, so one bad row never takes the store pipeline down. The loop ends
// when the channel is closed, after draining what is already queued.
func runWriter(db store.Database, actions <-chan Action) {
	logrus.Info("writer: start")
	for a := range actions {
		switch a.Op {
		case OpCreate:
			logrus.Debugf("writer: create %s", a.Path)
			if err := db.Insert(a.Path, a.Meta); err != nil {
				logrus.Errorf("writer: create %s: %v", a.Path, err)
			}
		case OpUpdate:
			logrus.Debugf("writer: update %s", a.Path)
			if err := db.Upsert(a.Path, a.Meta); err != nil {
				logrus.Errorf("writer: update %s: %v", a.Path, err)
			}
		case OpDelete:
			applyDelete(db, a.Path)
		case OpFind:
			logrus.Debug("writer: find: nothing to do")
		}
	}
	logrus.Info("writer: drained, stopping")
}

// applyDelete resolves what a Delete means against the current disk state:
// a directory takes its whole stored prefix with it, a file takes a single
// row, and a path that is already gone from disk is treated as a prefix so
// both cases are covered after the fact.
func applyDelete(db store.Database, path string) {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		logrus.Debugf("writer: delete dir %s", path)
		deleteSubtree(db, path)
	case err == nil:
		logrus.Debugf("writer: delete file %s", path)
		if err := db.DeleteByPath(path); err != nil {
			logrus.Errorf("writer: delete %s: %v", path, err)
		}
	default:
		logrus.Debugf("writer: delete vanished %s", path)
		deleteSubtree(db, path)
	}
}

// deleteSubtree removes the row for path and every row underneath it. The
// separator is appended before the prefix match so a sibling like /a/bc is
// not swept away with /a/b.
func deleteSubtree(db store.Database, path string) {
	if err := db.DeleteByPath(path); err != nil {
		logrus.Errorf("writer: delete %s: %v", path, err)
	}
	if err := db.DeleteByPathPrefix(path + string(os.PathSeparator)); err != nil {
		logrus.Errorf("writer: delete prefix %s: %v", path, err)
	}
}

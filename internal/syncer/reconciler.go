package syncer

import (
	"bloc-editor/internal/tree"

	"golang.org/x/xerrors"
)

// onHistory runs before undo and redo apply. It never handles the command;
// it only schedules a reconciliation for when the history jump has settled.
func (e *Engine) onHistory() bool {
	prev := e.host.State()
	e.host.Defer(func() {
		if err := e.reconcile(prev); err != nil {
			e.log.Error().Err(err).Msg("undo/redo reconciliation failed")
		}
	})
	return false
}

// reconcile diffs the state after a history jump against prev. The dirty
// sets reported for history jumps cannot be trusted, so every node the
// engine knows about is treated as a candidate.
func (e *Engine) reconcile(prev *tree.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.Errorf("panic: %v", r)
		}
	}()

	current := e.host.State()
	if current.Version() == prev.Version() {
		return nil
	}

	elements := make(map[tree.NodeKey]bool)
	for _, keys := range [][]tree.NodeKey{e.bridge.Keys(), e.queuedKeys(), prev.TopLevel(), current.TopLevel()} {
		for _, k := range keys {
			elements[k] = false
		}
	}
	leaves := make(map[tree.NodeKey]struct{})
	for _, k := range e.bridge.Keys() {
		if current.Has(k) && prev.Has(k) && !tree.SameContent(prev, current, k) {
			leaves[k] = struct{}{}
		}
	}
	return e.DetectChange(current, prev, elements, leaves)
}

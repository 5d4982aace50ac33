package syncer

import (
	"context"
	"slices"

	"bloc-editor/internal/bloc"
	"bloc-editor/internal/fractional"
	"bloc-editor/internal/tree"

	"golang.org/x/xerrors"
)

// DetectChange classifies the difference between prev and current and
// dispatches the resulting writes. dirtyElements maps element keys to true
// when the element itself changed and to false when only a descendant or a
// neighbour did; dirtyLeaves holds the leaves whose content changed.
//
// Only direct children of the root are blocs. Removals are handled first,
// then additions and moves in document order, then content updates. The
// returned error reports position keys that could not be generated; every
// other problem is logged and skipped.
func (e *Engine) DetectChange(current, prev *tree.Snapshot, dirtyElements map[tree.NodeKey]bool, dirtyLeaves map[tree.NodeKey]struct{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// structural candidates, with whether they changed themselves
	candidates := make(map[tree.NodeKey]bool)
	owners := make(map[tree.NodeKey]bool)
	var removed []tree.NodeKey

	consider := func(key tree.NodeKey, intentional bool) {
		if key == tree.RootKey {
			return
		}
		nowTop, wasTop := current.IsTopLevel(key), prev.IsTopLevel(key)
		switch {
		case nowTop:
			candidates[key] = candidates[key] || intentional
		case wasTop:
			removed = append(removed, key)
		}
		if !nowTop && current.Has(key) {
			if owner, ok := current.Owner(key); ok {
				owners[owner] = true
			}
		}
	}
	for key, intentional := range dirtyElements {
		consider(key, intentional)
	}
	for key := range dirtyLeaves {
		if current.IsTopLevel(key) || prev.IsTopLevel(key) {
			consider(key, false)
		}
	}

	e.removeAll(prev, removed)
	added, err := e.placeAll(current, prev, candidates)

	for key := range dirtyLeaves {
		if owner, ok := current.Owner(key); ok {
			owners[owner] = true
		}
	}
	for owner := range owners {
		if added[owner] {
			continue
		}
		e.enqueueUpdate(owner)
	}
	return err
}

func (e *Engine) removeAll(prev *tree.Snapshot, removed []tree.NodeKey) {
	order := make(map[tree.NodeKey]int)
	for i, k := range prev.TopLevel() {
		order[k] = i
	}
	slices.SortFunc(removed, func(a, b tree.NodeKey) int { return order[a] - order[b] })

	for _, key := range removed {
		entry, ok := e.bridge.Get(key)
		if !ok {
			e.log.Error().Str("key", string(key)).Msg("not enough information to remove bloc")
			continue
		}
		e.bridge.Delete(key)
		e.updates.Remove(entry.ID)

		id := entry.ID
		e.submit(Change{Type: ChangeRemove, Key: key, ID: id}, true, func(ctx context.Context) error {
			ok, err := e.store.DeleteBloc(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return xerrors.Errorf("delete bloc %s: not found", id)
			}
			return nil
		})
	}
}

// placeAll adds new top-level nodes and moves the ones whose position no
// longer fits their neighbours. It returns the keys added.
//
// Passing the neighbour gate alone does not move a node: a node is kept
// whenever its stored position still sorts between the kept nodes around
// it. Deleting both neighbours of B in one update changes both of its
// siblings, yet B keeps its position since it still sorts between the
// nodes that were beyond them.
func (e *Engine) placeAll(current, prev *tree.Snapshot, candidates map[tree.NodeKey]bool) (map[tree.NodeKey]bool, error) {
	added := make(map[tree.NodeKey]bool)
	if len(candidates) == 0 {
		return added, nil
	}
	order := current.TopLevel()

	// Durable nodes keep their position unless they are out of order.
	var durable []ranked
	gatePassed := make(map[tree.NodeKey]bool)
	for _, key := range order {
		entry, ok := e.bridge.Get(key)
		passed := prev.IsTopLevel(key) && neighboursChanged(current, prev, key)
		gatePassed[key] = passed
		_, isCandidate := candidates[key]
		if !ok {
			if passed && isCandidate {
				e.log.Error().Str("key", string(key)).Msg("not enough information to move bloc")
			}
			continue
		}
		r := ranked{key: key, position: entry.Position, pinned: !passed, bonus: 2}
		if isCandidate {
			r.bonus = 1
			if candidates[key] {
				r.bonus = 0
			}
		}
		durable = append(durable, r)
	}
	kept := keepInOrder(durable)

	pending := make(map[tree.NodeKey]bool)
	for _, key := range order {
		_, known := e.bridge.Get(key)
		_, isCandidate := candidates[key]
		if (!known && isCandidate && !prev.IsTopLevel(key)) || (known && !kept[key]) {
			pending[key] = true
		}
	}

	var firstErr error
	now := e.now().UnixMilli()
	for i, key := range order {
		if !pending[key] {
			// changed in place
			if candidates[key] && kept[key] {
				e.enqueueUpdate(key)
			}
			continue
		}
		lower, upper := e.neighbourPositions(order, i, pending)
		position, err := fractional.KeyBetween(lower, upper)
		delete(pending, key)
		if err != nil {
			err = xerrors.Errorf("position for %s between %q and %q: %w", key, lower, upper, err)
			e.log.Error().Err(err).Msg("cannot place bloc")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if entry, ok := e.bridge.Get(key); ok {
			if !gatePassed[key] {
				e.log.Debug().Str("key", string(key)).Msg("repositioning out of order bloc")
			}
			e.move(key, entry.ID, position, now)
			continue
		}
		if err := e.add(current, key, position, now); err != nil {
			e.log.Error().Err(err).Str("key", string(key)).Msg("cannot add bloc")
			continue
		}
		added[key] = true
	}
	return added, firstErr
}

// neighbourPositions returns the positions of the closest placed nodes
// around order[i]. Nodes still waiting for a position are skipped.
func (e *Engine) neighbourPositions(order []tree.NodeKey, i int, pending map[tree.NodeKey]bool) (lower, upper string) {
	for j := i - 1; j >= 0; j-- {
		if pending[order[j]] {
			continue
		}
		if entry, ok := e.bridge.Get(order[j]); ok {
			lower = entry.Position
			break
		}
	}
	for j := i + 1; j < len(order); j++ {
		if pending[order[j]] {
			continue
		}
		if entry, ok := e.bridge.Get(order[j]); ok {
			upper = entry.Position
			break
		}
	}
	return lower, upper
}

func (e *Engine) add(current *tree.Snapshot, key tree.NodeKey, position string, now int64) error {
	id := e.newID()
	e.bridge.Set(key, id, position)
	body, err := content(current, key, id, position)
	if err != nil {
		e.bridge.Delete(key)
		return err
	}
	b := &bloc.Bloc{
		ID:        id,
		Position:  position,
		Content:   body,
		PageID:    e.pageID,
		BlocType:  current.Type(key),
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.submit(Change{Type: ChangeAdd, Key: key, ID: id}, true, func(ctx context.Context) error {
		got, err := e.store.CreateBloc(ctx, b)
		if err != nil {
			return err
		}
		if got == "" {
			return xerrors.Errorf("create bloc %s: empty id", id)
		}
		if got != id {
			e.log.Warn().Str("bloc_id", id).Str("stored_id", got).Msg("store assigned another id")
		}
		return nil
	})
	return nil
}

func (e *Engine) move(key tree.NodeKey, id, position string, now int64) {
	e.bridge.Set(key, id, position)
	e.submit(Change{Type: ChangeMove, Key: key, ID: id}, true, func(ctx context.Context) error {
		status, err := e.store.UpdateBlocPosition(ctx, id, position, now)
		return e.checkStatus("position", id, status, err)
	})
}

// enqueueUpdate schedules a content write for a top-level node with a
// durable identity.
func (e *Engine) enqueueUpdate(owner tree.NodeKey) {
	entry, ok := e.bridge.Get(owner)
	if !ok {
		return
	}
	c := Change{Type: ChangeUpdate, Key: owner, ID: entry.ID}
	e.updates.Push(c)
	e.state.Set(c)
}

func (e *Engine) checkStatus(field, id string, status bloc.Status, err error) error {
	if err != nil {
		return err
	}
	switch status {
	case bloc.StatusSuccess:
		return nil
	case bloc.StatusNoChange:
		e.log.Info().Str("bloc_id", id).Msgf("bloc %s unchanged", field)
		return nil
	}
	return xerrors.Errorf("update bloc %s %s: status %s", field, id, status)
}

// neighboursChanged reports whether both the previous and the next sibling
// of key differ between prev and current.
func neighboursChanged(current, prev *tree.Snapshot, key tree.NodeKey) bool {
	pp, _ := prev.PrevSibling(key)
	cp, _ := current.PrevSibling(key)
	pn, _ := prev.NextSibling(key)
	cn, _ := current.NextSibling(key)
	return pp != cp && pn != cn
}

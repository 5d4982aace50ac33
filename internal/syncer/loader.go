package syncer

import (
	"context"

	"bloc-editor/internal/bloc"
	"bloc-editor/internal/fractional"
	"bloc-editor/internal/tree"

	"golang.org/x/xerrors"
)

// Open replaces the host document with the blocs stored for the page and
// rebuilds the bridge. Blocs whose position is missing, malformed or out of
// order get a fresh position, written back to the store. The load is not
// undoable: the host history is cleared. It produces no writes besides
// those repairs.
func (e *Engine) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	blocs, err := e.store.GetBlocsByPageID(ctx, e.pageID)
	if err != nil {
		return xerrors.Errorf("load page %s: %w", e.pageID, err)
	}

	type loaded struct {
		bloc bloc.Bloc
		node tree.SerializedNode
		key  tree.NodeKey
	}
	items := make([]loaded, 0, len(blocs))
	for _, b := range blocs {
		n, err := tree.Decode(b.Content)
		if err != nil {
			e.log.Error().Err(err).Str("bloc_id", b.ID).Msg("skipping unreadable bloc")
			continue
		}
		items = append(items, loaded{bloc: b, node: n})
	}

	positions := make([]string, len(items))
	for i, it := range items {
		positions[i] = it.bloc.Position
	}
	repaired, err := repairPositions(positions)
	if err != nil {
		return xerrors.Errorf("repair positions of page %s: %w", e.pageID, err)
	}

	err = e.host.Update(func(m *tree.Mutator) error {
		if err := m.Clear(); err != nil {
			return err
		}
		for i := range items {
			key, err := m.Import(m.Root(), items[i].node)
			if err != nil {
				return xerrors.Errorf("import bloc %s: %w", items[i].bloc.ID, err)
			}
			items[i].key = key
		}
		return nil
	}, tree.TagHistoryMerge)
	if err != nil {
		return err
	}
	// history from before the load refers to nodes that are gone
	e.host.ClearHistory()

	e.bridge.Reset()
	e.arm.Drain()
	e.updates.Drain()
	now := e.now().UnixMilli()
	for i, it := range items {
		e.bridge.Set(it.key, it.bloc.ID, positions[i])
		if !repaired[i] {
			continue
		}
		e.log.Info().Str("bloc_id", it.bloc.ID).Str("position", positions[i]).Msg("repairing bloc position")
		e.move(it.key, it.bloc.ID, positions[i], now)
	}
	e.log.Info().Int("blocs", len(items)).Msg("page opened")
	return nil
}

// repairPositions rewrites, in place, every position that is invalid or not
// strictly greater than the last valid one before it, and reports which
// entries changed.
func repairPositions(positions []string) ([]bool, error) {
	repaired := make([]bool, len(positions))
	last := ""
	for i := 0; i < len(positions); {
		if fractional.Validate(positions[i]) == nil && (last == "" || positions[i] > last) {
			last = positions[i]
			i++
			continue
		}
		// run of broken positions up to the next usable one
		j := i
		for j < len(positions) && (fractional.Validate(positions[j]) != nil || (last != "" && positions[j] <= last)) {
			j++
		}
		upper := ""
		if j < len(positions) {
			upper = positions[j]
		}
		keys, err := fractional.NKeysBetween(last, upper, j-i)
		if err != nil {
			return nil, err
		}
		for k := i; k < j; k++ {
			positions[k] = keys[k-i]
			repaired[k] = true
		}
		last = positions[j-1]
		i = j
	}
	return repaired, nil
}

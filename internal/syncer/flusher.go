package syncer

import (
	"context"

	"bloc-editor/internal/tree"
)

// Flush writes every queued content update and returns how many writes were
// dispatched. The queue is drained in one step: updates arriving during the
// flush wait for the next one.
func (e *Engine) Flush(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	records := e.updates.Drain()
	if len(records) == 0 {
		return 0
	}
	snapshot := e.host.State()
	now := e.now().UnixMilli()

	dispatched := 0
	for _, c := range records {
		if ctx.Err() != nil {
			// keep what is left for the next flush
			e.updates.Push(c)
			continue
		}
		entry, ok := e.bridge.Get(c.Key)
		if !ok || entry.ID != c.ID || !snapshot.IsTopLevel(c.Key) {
			e.log.Debug().Str("bloc_id", c.ID).Msg("dropping update of a vanished bloc")
			continue
		}
		body, err := content(snapshot, c.Key, entry.ID, entry.Position)
		if err != nil {
			e.log.Error().Err(err).Str("bloc_id", c.ID).Msg("cannot serialize bloc")
			e.state.Fail(c)
			continue
		}
		e.writeContent(c, body, now)
		dispatched++
	}
	if dispatched > 0 {
		e.log.Debug().Int("count", dispatched).Msg("flushed bloc updates")
	}
	return dispatched
}

func (e *Engine) writeContent(c Change, body string, now int64) {
	id := c.ID
	e.submit(c, false, func(ctx context.Context) error {
		status, err := e.store.UpdateBlocContent(ctx, id, body, now)
		return e.checkStatus("content", id, status, err)
	})
}

// queuedKeys lists the node keys of every pending record.
func (e *Engine) queuedKeys() []tree.NodeKey {
	return append(e.arm.Keys(), e.updates.Keys()...)
}

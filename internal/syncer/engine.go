// Package syncer mirrors the edits of a tree.Editor into a bloc.Store.
//
// Every committed update is diffed against the previous snapshot. Adds,
// removes and moves are written immediately; content updates are coalesced
// per bloc and written by a periodic flush.
package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"bloc-editor/internal/bloc"
	"bloc-editor/internal/bridge"
	"bloc-editor/internal/tree"
	"bloc-editor/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Host is the part of tree.Editor the engine depends on.
type Host interface {
	State() *tree.Snapshot
	Update(fn func(m *tree.Mutator) error, tags ...string) error
	RegisterUpdateListener(l tree.UpdateListener) func()
	RegisterCommand(cmd tree.Command, priority tree.Priority, h tree.CommandHandler) func()
	Defer(fn func())
	ClearHistory()
}

type Options struct {
	PageID string
	Store  bloc.Store
	Logger zerolog.Logger

	// Optional collaborators, created when nil.
	Bridge  *bridge.Bridge
	State   *DocumentState
	Workers int

	// Strict makes position invariant violations panic instead of being
	// logged.
	Strict bool

	Now   func() time.Time
	NewID func() string
}

type Engine struct {
	host    Host
	store   bloc.Store
	pageID  string
	bridge  *bridge.Bridge
	arm     *ChangeQueue
	updates *ChangeQueue
	state   *DocumentState
	pool    *worker.WorkerPool
	log     zerolog.Logger
	strict  bool
	now     func() time.Time
	newID   func() string

	// mu serializes change detection, flushing and loading.
	mu       sync.Mutex
	inflight atomic.Int64

	detach  []func()
	flusher *worker.Periodic
	closed  atomic.Bool
}

func NewEngine(host Host, opts Options) *Engine {
	e := &Engine{
		host:    host,
		store:   opts.Store,
		pageID:  opts.PageID,
		bridge:  opts.Bridge,
		arm:     NewChangeQueue(),
		updates: NewChangeQueue(),
		state:   opts.State,
		log:     opts.Logger.With().Str("component", "syncer").Str("page_id", opts.PageID).Logger(),
		strict:  opts.Strict,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if e.bridge == nil {
		e.bridge = bridge.New()
	}
	if e.state == nil {
		e.state = NewDocumentState()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 4
	}
	e.pool = worker.NewWorkerPool(workers, opts.Logger)
	return e
}

// Attach starts listening to the host: committed updates are diffed and
// undo/redo are reconciled.
func (e *Engine) Attach() {
	e.detach = append(e.detach,
		e.host.RegisterUpdateListener(e.onUpdate),
		e.host.RegisterCommand(tree.CommandUndo, tree.PriorityLow, e.onHistory),
		e.host.RegisterCommand(tree.CommandRedo, tree.PriorityLow, e.onHistory),
	)
}

// StartFlusher flushes the update queue on every tick of t.
func (e *Engine) StartFlusher(t worker.Ticker) {
	e.flusher = worker.StartPeriodic(context.Background(), t, func(ctx context.Context) {
		e.Flush(ctx)
	})
}

func (e *Engine) Bridge() *bridge.Bridge { return e.bridge }

func (e *Engine) State() *DocumentState { return e.state }

// Pending returns the structural changes not yet acknowledged by the store
// and the queued content updates.
func (e *Engine) Pending() (structural, updates []Change) {
	return e.arm.Records(), e.updates.Records()
}

// Wait blocks until every dispatched store call has returned.
func (e *Engine) Wait() {
	e.pool.Wait()
}

// Close detaches from the host, stops the flusher, writes the queued
// updates and waits for the store calls to finish.
func (e *Engine) Close(ctx context.Context) {
	if e.closed.Swap(true) {
		return
	}
	for _, fn := range e.detach {
		fn()
	}
	if e.flusher != nil {
		e.flusher.Stop()
	}
	e.Flush(ctx)
	e.pool.Wait()
	e.pool.Shutdown()
}

func (e *Engine) onUpdate(u tree.Update) {
	if u.HasTag(tree.TagHistoryMerge) || u.HasTag(tree.TagHistoric) {
		return
	}
	if len(u.DirtyElements) == 0 && len(u.DirtyLeaves) == 0 {
		return
	}
	if err := e.DetectChange(u.State, u.Prev, u.DirtyElements, u.DirtyLeaves); err != nil {
		if e.strict {
			panic(err)
		}
		e.log.Error().Err(err).Msg("position invariant violated")
	}
}

// submit runs call on the worker owning c.ID. Structural changes stay in
// the structural queue until the store acknowledges them.
func (e *Engine) submit(c Change, structural bool, call func(ctx context.Context) error) {
	if structural {
		e.arm.Push(c)
	}
	e.state.Set(c)
	e.inflight.Add(1)
	ok := e.pool.SubmitKeyed(c.ID, func(ctx context.Context) error {
		err := call(ctx)
		e.inflight.Add(-1)
		if err != nil {
			e.log.Error().Err(err).
				Str("type", string(c.Type)).
				Str("bloc_id", c.ID).
				Msg("bloc write failed")
			e.state.Fail(c)
			return nil
		}
		if structural {
			e.arm.Ack(c)
		}
		e.state.Resolve(c.ID, e.idle())
		return nil
	})
	if !ok {
		e.inflight.Add(-1)
		e.state.Fail(c)
	}
}

func (e *Engine) idle() bool {
	return e.inflight.Load() == 0 && e.arm.Len() == 0 && e.updates.Len() == 0
}

// content serializes key from s, stamped with its durable identity.
func content(s *tree.Snapshot, key tree.NodeKey, id, position string) (string, error) {
	n, err := s.Export(key)
	if err != nil {
		return "", err
	}
	n.SetID(id)
	n.SetPosition(position)
	return tree.Encode(n)
}

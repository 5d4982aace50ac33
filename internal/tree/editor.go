package tree

import (
	"sort"
	"sync"
)

// Update tags.
const (
	// TagHistoryMerge marks updates that must not create an undo step, such
	// as loading a document.
	TagHistoryMerge = "history-merge"
	// TagHistoric marks updates produced by undo or redo.
	TagHistoric = "historic"
)

// Update is delivered to listeners once per committed transaction.
type Update struct {
	State         *Snapshot
	Prev          *Snapshot
	DirtyElements map[NodeKey]bool
	DirtyLeaves   map[NodeKey]struct{}
	Tags          map[string]struct{}
}

// HasTag reports whether the update carries tag.
func (u Update) HasTag(tag string) bool {
	_, ok := u.Tags[tag]
	return ok
}

type UpdateListener func(Update)

type Command string

const (
	CommandUndo Command = "undo"
	CommandRedo Command = "redo"
)

// Priority orders command handlers: higher priorities run first.
type Priority int

const (
	PriorityEditor Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// CommandHandler returns true to stop the propagation of a command.
type CommandHandler func() bool

type listenerEntry struct {
	id uint64
	fn UpdateListener
}

type commandEntry struct {
	id       uint64
	priority Priority
	fn       CommandHandler
}

const defaultHistoryLimit = 100

// Editor is the in-memory tree engine. All methods are safe for concurrent
// use; listeners and command handlers run outside the editor lock, on the
// goroutine that triggered them.
type Editor struct {
	mu        sync.Mutex
	state     *Snapshot
	nextKey   uint64
	seq       uint64
	listeners []listenerEntry
	commands  map[Command][]commandEntry
	undo      []*Snapshot
	redo      []*Snapshot
	limit     int
	busy      int
	deferred  []func()
}

// NewEditor returns an editor holding an empty document with undo/redo
// wired at PriorityEditor.
func NewEditor() *Editor {
	e := &Editor{
		state:    NewSnapshot(),
		commands: make(map[Command][]commandEntry),
		limit:    defaultHistoryLimit,
	}
	e.RegisterCommand(CommandUndo, PriorityEditor, func() bool {
		return e.applyHistory(&e.undo, &e.redo)
	})
	e.RegisterCommand(CommandRedo, PriorityEditor, func() bool {
		return e.applyHistory(&e.redo, &e.undo)
	})
	return e
}

// State returns the current snapshot.
func (e *Editor) State() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Update runs fn against a draft of the current state and commits it. When
// fn fails nothing is committed. fn must not call back into the editor.
func (e *Editor) Update(fn func(m *Mutator) error, tags ...string) error {
	e.mu.Lock()
	prev := e.state
	m := newMutator(prev, &e.nextKey)
	if err := fn(m); err != nil {
		e.mu.Unlock()
		return err
	}
	next := m.commit(prev.version + 1)

	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[t] = struct{}{}
	}
	if _, merge := tagSet[TagHistoryMerge]; !merge && m.dirty() {
		e.undo = append(e.undo, prev)
		if len(e.undo) > e.limit {
			e.undo = e.undo[len(e.undo)-e.limit:]
		}
		e.redo = nil
	}
	e.state = next
	e.busy++
	listeners := append([]listenerEntry(nil), e.listeners...)
	e.mu.Unlock()

	e.notify(listeners, Update{
		State:         next,
		Prev:          prev,
		DirtyElements: m.dirtyElements,
		DirtyLeaves:   m.dirtyLeaves,
		Tags:          tagSet,
	})
	e.settle()
	return nil
}

// RegisterUpdateListener adds l and returns a function removing it.
func (e *Editor) RegisterUpdateListener(l UpdateListener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	id := e.seq
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: l})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, le := range e.listeners {
			if le.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// RegisterCommand adds a handler for cmd and returns a function removing it.
func (e *Editor) RegisterCommand(cmd Command, priority Priority, h CommandHandler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	id := e.seq
	e.commands[cmd] = append(e.commands[cmd], commandEntry{id: id, priority: priority, fn: h})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		entries := e.commands[cmd]
		for i, ce := range entries {
			if ce.id == id {
				e.commands[cmd] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Dispatch runs the handlers of cmd from the highest priority down until
// one of them returns true. Deferred work queued meanwhile runs once the
// command has completed.
func (e *Editor) Dispatch(cmd Command) bool {
	e.mu.Lock()
	handlers := append([]commandEntry(nil), e.commands[cmd]...)
	e.busy++
	e.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].priority > handlers[j].priority
	})
	handled := false
	for _, h := range handlers {
		if h.fn() {
			handled = true
			break
		}
	}
	e.settle()
	return handled
}

// Undo dispatches CommandUndo.
func (e *Editor) Undo() bool { return e.Dispatch(CommandUndo) }

// Redo dispatches CommandRedo.
func (e *Editor) Redo() bool { return e.Dispatch(CommandRedo) }

// ClearHistory drops every undo and redo step, so the current state can no
// longer be left through history.
func (e *Editor) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.undo = nil
	e.redo = nil
}

func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo) > 0
}

func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.redo) > 0
}

// Defer schedules fn to run once the current update or command has
// settled. Outside of one, fn runs immediately.
func (e *Editor) Defer(fn func()) {
	e.mu.Lock()
	if e.busy == 0 {
		e.mu.Unlock()
		fn()
		return
	}
	e.deferred = append(e.deferred, fn)
	e.mu.Unlock()
}

// applyHistory swaps the state with the top of from. The resulting update
// reports no dirty nodes: history jumps are not tracked per node.
func (e *Editor) applyHistory(from, to *[]*Snapshot) bool {
	e.mu.Lock()
	if len(*from) == 0 {
		e.mu.Unlock()
		return false
	}
	target := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	prev := e.state
	*to = append(*to, prev)
	next := &Snapshot{nodes: target.nodes, version: prev.version + 1}
	e.state = next
	e.busy++
	listeners := append([]listenerEntry(nil), e.listeners...)
	e.mu.Unlock()

	e.notify(listeners, Update{
		State:         next,
		Prev:          prev,
		DirtyElements: map[NodeKey]bool{},
		DirtyLeaves:   map[NodeKey]struct{}{},
		Tags:          map[string]struct{}{TagHistoric: {}},
	})
	e.settle()
	return true
}

func (e *Editor) notify(listeners []listenerEntry, u Update) {
	for _, l := range listeners {
		l.fn(u)
	}
}

// settle leaves a busy section and, when it was the outermost one, runs the
// deferred work.
func (e *Editor) settle() {
	e.mu.Lock()
	e.busy--
	if e.busy > 0 {
		e.mu.Unlock()
		return
	}
	for len(e.deferred) > 0 {
		fns := e.deferred
		e.deferred = nil
		e.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
		e.mu.Lock()
	}
	e.mu.Unlock()
}

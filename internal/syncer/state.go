package syncer

import (
	"slices"
	"sync"
)

// DocumentState is the unsaved-changes indicator read by the UI. It holds
// the last change reported and stays set while any write failed.
type DocumentState struct {
	mu          sync.Mutex
	current     Change
	failed      map[string]Change
	subscribers []func(Change)
}

func NewDocumentState() *DocumentState {
	return &DocumentState{failed: make(map[string]Change)}
}

// Set records c as the latest unsaved change.
func (s *DocumentState) Set(c Change) {
	s.mu.Lock()
	s.current = c
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()
	notify(subs, c)
}

// Fail records that the write of c did not persist.
func (s *DocumentState) Fail(c Change) {
	s.mu.Lock()
	s.failed[c.ID] = c
	s.current = c
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()
	notify(subs, c)
}

// Resolve records a successful write for id. The indicator is cleared once
// no failure is outstanding and idle reports that nothing else is pending.
func (s *DocumentState) Resolve(id string, idle bool) {
	s.mu.Lock()
	delete(s.failed, id)
	if len(s.failed) > 0 || !idle || s.current.IsZero() {
		s.mu.Unlock()
		return
	}
	s.current = Change{}
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()
	notify(subs, Change{})
}

func (s *DocumentState) Current() Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *DocumentState) IsModified() bool {
	return !s.Current().IsZero()
}

// Failed returns the changes whose write failed and has not succeeded since.
func (s *DocumentState) Failed() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Change, 0, len(s.failed))
	for _, c := range s.failed {
		out = append(out, c)
	}
	return out
}

// Subscribe calls fn on every indicator change and returns a function
// removing it.
func (s *DocumentState) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
	idx := len(s.subscribers) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.subscribers) {
			s.subscribers[idx] = func(Change) {}
		}
	}
}

func notify(subs []func(Change), c Change) {
	for _, fn := range subs {
		fn(c)
	}
}

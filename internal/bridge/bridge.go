// Package bridge binds the ephemeral node keys of an editing session to the
// durable identity and position of their blocs.
package bridge

import (
	"sync"

	"bloc-editor/internal/tree"

	"golang.org/x/exp/maps"
)

// Entry is the durable side of a binding.
type Entry struct {
	ID       string
	Position string
}

// Bridge maps node keys to entries. A bloc id is bound to at most one key.
type Bridge struct {
	mu    sync.RWMutex
	byKey map[tree.NodeKey]Entry
	byID  map[string]tree.NodeKey
}

func New() *Bridge {
	return &Bridge{
		byKey: make(map[tree.NodeKey]Entry),
		byID:  make(map[string]tree.NodeKey),
	}
}

func (b *Bridge) Get(key tree.NodeKey) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.byKey[key]
	return e, ok
}

// Set binds key to id and position, replacing any previous binding of
// either the key or the id.
func (b *Bridge) Set(key tree.NodeKey, id, position string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.byKey[key]; ok && old.ID != id {
		delete(b.byID, old.ID)
	}
	if oldKey, ok := b.byID[id]; ok && oldKey != key {
		delete(b.byKey, oldKey)
	}
	b.byKey[key] = Entry{ID: id, Position: position}
	b.byID[id] = key
}

// Delete removes the binding of key, if any.
func (b *Bridge) Delete(key tree.NodeKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.byKey[key]; ok {
		delete(b.byID, e.ID)
		delete(b.byKey, key)
	}
}

// KeyOf returns the key currently bound to id.
func (b *Bridge) KeyOf(id string) (tree.NodeKey, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	k, ok := b.byID[id]
	return k, ok
}

// Keys returns the bound keys in no particular order.
func (b *Bridge) Keys() []tree.NodeKey {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Keys(b.byKey)
}

func (b *Bridge) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byKey)
}

// Reset drops every binding.
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byKey = make(map[tree.NodeKey]Entry)
	b.byID = make(map[string]tree.NodeKey)
}

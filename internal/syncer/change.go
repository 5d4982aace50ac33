package syncer

import (
	"sync"

	"bloc-editor/internal/tree"
)

type ChangeType string

const (
	ChangeAdd    ChangeType = "add_bloc"
	ChangeRemove ChangeType = "remove_bloc"
	ChangeMove   ChangeType = "move_bloc"
	ChangeUpdate ChangeType = "update_bloc"
)

// Change is one pending write. The zero Change means "nothing unsaved".
type Change struct {
	Type ChangeType   `json:"type"`
	Key  tree.NodeKey `json:"key"`
	ID   string       `json:"id"`
}

func (c Change) IsZero() bool {
	return c == Change{}
}

// ChangeQueue holds at most one record per bloc id, in arrival order.
type ChangeQueue struct {
	mu      sync.Mutex
	records []Change
}

func NewChangeQueue() *ChangeQueue {
	return &ChangeQueue{}
}

// Push appends c, replacing any record for the same id.
func (q *ChangeQueue) Push(c Change) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(c.ID)
	q.records = append(q.records, c)
}

// Remove drops the record for id, if any.
func (q *ChangeQueue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(id)
}

// Ack drops c only if it is still the record queued for its id.
func (q *ChangeQueue) Ack(c Change) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, r := range q.records {
		if r == c {
			q.records = append(q.records[:i:i], q.records[i+1:]...)
			return true
		}
	}
	return false
}

func (q *ChangeQueue) removeLocked(id string) {
	for i, r := range q.records {
		if r.ID == id {
			q.records = append(q.records[:i:i], q.records[i+1:]...)
			return
		}
	}
}

// Drain returns the queued records and empties the queue in one step.
func (q *ChangeQueue) Drain() []Change {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.records
	q.records = nil
	return out
}

// Records returns a copy of the queued records.
func (q *ChangeQueue) Records() []Change {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Change(nil), q.records...)
}

// Keys returns the node keys of the queued records.
func (q *ChangeQueue) Keys() []tree.NodeKey {
	q.mu.Lock()
	defer q.mu.Unlock()
	keys := make([]tree.NodeKey, 0, len(q.records))
	for _, r := range q.records {
		keys = append(keys, r.Key)
	}
	return keys
}

func (q *ChangeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

package history

import (
	"github.com/gofrs/uuid/v5"

	"github.com/objectql/objectui-history/internal/model"
)

// Queue holds conflicts awaiting resolution in insertion order. Two conflicts
// for the same field may coexist when raised independently; the queue does not
// deduplicate. Not safe for concurrent use; Tracker serializes access.
type Queue struct {
	pending []model.ConflictInfo
	newID   func() uuid.UUID
}

// NewQueue constructs an empty queue with the given id source.
func NewQueue(newID func() uuid.UUID) *Queue {
	return &Queue{newID: newID}
}

// Add assigns a fresh id to c, appends it and returns the stored conflict.
func (q *Queue) Add(c model.ConflictInfo) model.ConflictInfo {
	c.ID = q.newID()
	q.pending = append(q.pending, c)
	return c
}

// Remove deletes the conflict with the given id and reports whether anything
// was removed.
func (q *Queue) Remove(id uuid.UUID) bool {
	for i := range q.pending {
		if q.pending[i].ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the pending conflict with the given id.
func (q *Queue) Find(id uuid.UUID) (model.ConflictInfo, bool) {
	for i := range q.pending {
		if q.pending[i].ID == id {
			return q.pending[i], true
		}
	}
	return model.ConflictInfo{}, false
}

// List returns a snapshot of pending conflicts in insertion order.
func (q *Queue) List() []model.ConflictInfo {
	out := make([]model.ConflictInfo, len(q.pending))
	copy(out, q.pending)
	return out
}

// Empty reports whether no conflicts are pending.
func (q *Queue) Empty() bool {
	return len(q.pending) == 0
}

// Len returns the number of pending conflicts.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Clear drops all pending conflicts.
func (q *Queue) Clear() {
	q.pending = nil
}

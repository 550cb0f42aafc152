// Package history implements the version log, conflict queue and resolution
// engine backing collaborative record editing. A record's history is an
// append-only sequence of field-level changes; divergent edits are queued as
// conflicts and resolved into new forward entries, never by rewriting history.
package history

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/objectql/objectui-history/internal/model"
)

// Log owns the ordered, append-only sequence of version entries for one
// record. It is not safe for concurrent use; Tracker serializes access.
type Log struct {
	entries []model.VersionEntry
	newID   func() uuid.UUID
	now     func() time.Time
}

// NewLog constructs an empty log with the given id source and clock.
func NewLog(newID func() uuid.UUID, now func() time.Time) *Log {
	return &Log{newID: newID, now: now}
}

// Append creates and stores a new entry with version = last + 1 (or 1 on an
// empty log). It never fails; an empty changes map produces a no-op entry.
// The changes map is copied, so the stored entry stays immutable even if the
// caller reuses the map.
func (l *Log) Append(author model.Author, changes model.Changes, message string) model.VersionEntry {
	e := model.VersionEntry{
		ID:         l.newID(),
		Version:    l.CurrentVersion() + 1,
		Timestamp:  l.now(),
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Changes:    cloneChanges(changes),
		Message:    message,
	}
	l.entries = append(l.entries, e)
	return e
}

// CurrentVersion returns the version of the last entry, or 0 for an empty log.
func (l *Log) CurrentVersion() int64 {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Version
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// At returns the entry at index i (0-based, ascending version order).
func (l *Log) At(i int) model.VersionEntry {
	return l.entries[i]
}

// Entries returns a copy of the log in ascending version order.
func (l *Log) Entries() []model.VersionEntry {
	out := make([]model.VersionEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Find returns the entry with the given id; absence is not an error.
func (l *Log) Find(id uuid.UUID) (model.VersionEntry, bool) {
	if i := l.IndexOf(id); i >= 0 {
		return l.entries[i], true
	}
	return model.VersionEntry{}, false
}

// IndexOf returns the index of the entry with the given id, or -1.
func (l *Log) IndexOf(id uuid.UUID) int {
	for i := range l.entries {
		if l.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Clear drops all entries. Used for session reset only.
func (l *Log) Clear() {
	l.entries = nil
}

func cloneChanges(in model.Changes) model.Changes {
	out := make(model.Changes, len(in))
	for f, ch := range in {
		out[f] = ch
	}
	return out
}

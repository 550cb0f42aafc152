package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/objectql/objectui-history/internal/errs"
	"github.com/objectql/objectui-history/internal/model"
)

// Tracker combines one record's version log and conflict queue behind a single
// mutex: every exposed operation is one atomic step, so a reader never
// observes a resolution's new entry without its queue removal (or vice versa).
type Tracker struct {
	mu    sync.Mutex
	log   *Log
	queue *Queue

	newID func() uuid.UUID
	now   func() time.Time
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithIDSource replaces the entry/conflict id generator (deterministic tests).
func WithIDSource(fn func() uuid.UUID) Option {
	return func(t *Tracker) { t.newID = fn }
}

// WithClock replaces the timestamp source (deterministic tests).
func WithClock(fn func() time.Time) Option {
	return func(t *Tracker) { t.now = fn }
}

// New constructs a Tracker for a single record. Defaults: random UUIDv4 ids
// and the wall clock.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		newID: func() uuid.UUID { return uuid.Must(uuid.NewV4()) },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = NewLog(t.newID, t.now)
	t.queue = NewQueue(t.newID)
	return t
}

// RecordVersion appends a new entry for a committed local edit. It never
// fails; validation of the changes map is the caller's responsibility.
func (t *Tracker) RecordVersion(author model.Author, changes model.Changes, message string) model.VersionEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.log.Append(author, changes, message)
}

// Versions returns all entries in ascending version order.
func (t *Tracker) Versions() []model.VersionEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.log.Entries()
}

// CurrentVersion returns the last entry's version, or 0 for an empty log.
func (t *Tracker) CurrentVersion() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.log.CurrentVersion()
}

// FindVersion returns the entry with the given id; absence is not an error.
func (t *Tracker) FindVersion(id uuid.UUID) (model.VersionEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.log.Find(id)
}

// AddConflict queues a divergence reported by the synchronization layer. The
// conflict's id is assigned here; any id on c is ignored.
func (t *Tracker) AddConflict(c model.ConflictInfo) model.ConflictInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queue.Add(c)
}

// Conflicts returns pending conflicts in insertion order.
func (t *Tracker) Conflicts() []model.ConflictInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queue.List()
}

// HasConflicts reports whether any conflict is pending.
func (t *Tracker) HasConflicts() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.queue.Empty()
}

// ResolveConflict resolves one pending conflict: it appends a version entry
// carrying the resolved value and removes the conflict from the queue, both
// under one lock. Unknown ids return errs.ErrNotFound without touching the
// log. A merge strategy with no override value falls back to the local value.
func (t *Tracker) ResolveConflict(author model.Author, id uuid.UUID, strategy model.Strategy, merge model.FieldValue) (model.VersionEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !strategy.Valid() {
		return model.VersionEntry{}, fmt.Errorf("resolve conflict: %w: %q", errs.ErrInvalidStrategy, strategy)
	}
	c, ok := t.queue.Find(id)
	if !ok {
		return model.VersionEntry{}, fmt.Errorf("resolve conflict %s: %w", id, errs.ErrNotFound)
	}

	changes := model.Changes{
		c.Field: {
			Before: model.SomeValue(c.BaseValue),
			After:  model.SomeValue(resolvedValue(c, strategy, merge)),
		},
	}
	msg := fmt.Sprintf("Resolved conflict on %s (%s)", c.Field, strategy)
	e := t.log.Append(author, changes, msg)
	t.queue.Remove(id)
	return e, nil
}

// ResolveAllConflicts resolves every pending conflict with one strategy,
// collapsing the whole queue into a single version entry. Merge is not valid
// here; there is no per-field override. An empty queue is a no-op and returns
// nil without appending.
func (t *Tracker) ResolveAllConflicts(author model.Author, strategy model.Strategy) (*model.VersionEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if strategy != model.StrategyLocal && strategy != model.StrategyRemote {
		return nil, fmt.Errorf("resolve all conflicts: %w: %q", errs.ErrInvalidStrategy, strategy)
	}
	pending := t.queue.List()
	if len(pending) == 0 {
		return nil, nil
	}

	changes := make(model.Changes, len(pending))
	for _, c := range pending {
		changes[c.Field] = model.FieldChange{
			Before: model.SomeValue(c.BaseValue),
			After:  model.SomeValue(resolvedValue(c, strategy, model.AbsentValue())),
		}
	}
	msg := fmt.Sprintf("Resolved %d conflicts (%s)", len(pending), strategy)
	e := t.log.Append(author, changes, msg)
	t.queue.Clear()
	return &e, nil
}

// RevertToVersion reconstructs the state at the target entry and, when it
// differs from the current state, appends a forward entry carrying the delta.
// History is never truncated. The target snapshot is returned regardless of
// whether an entry was appended, so callers can repaint to historical values.
func (t *Tracker) RevertToVersion(author model.Author, id uuid.UUID) (model.State, *model.VersionEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.log.IndexOf(id)
	if idx < 0 {
		return nil, nil, fmt.Errorf("revert to version %s: %w", id, errs.ErrNotFound)
	}
	entries := t.log.Entries()
	target := Reconstruct(entries, idx)
	current := Reconstruct(entries, len(entries)-1)

	delta := Diff(current, target)
	if len(delta) == 0 {
		return target, nil, nil
	}
	msg := fmt.Sprintf("Reverted to version %d", t.log.At(idx).Version)
	e := t.log.Append(author, delta, msg)
	return target, &e, nil
}

// CompareVersions diffs the states at two entries. The chronologically earlier
// entry always supplies the before side regardless of argument order.
func (t *Tracker) CompareVersions(idA, idB uuid.UUID) (model.Changes, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ia := t.log.IndexOf(idA)
	ib := t.log.IndexOf(idB)
	if ia < 0 || ib < 0 {
		return nil, fmt.Errorf("compare versions: %w", errs.ErrNotFound)
	}
	if ia > ib {
		ia, ib = ib, ia
	}
	entries := t.log.Entries()
	return Diff(Reconstruct(entries, ia), Reconstruct(entries, ib)), nil
}

// ReconstructAt returns the state snapshot as of the given entry.
func (t *Tracker) ReconstructAt(id uuid.UUID) (model.State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.log.IndexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("reconstruct at %s: %w", id, errs.ErrNotFound)
	}
	return Reconstruct(t.log.Entries(), idx), nil
}

// ClearHistory drops all versions and pending conflicts. Session reset only.
func (t *Tracker) ClearHistory() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log.Clear()
	t.queue.Clear()
}

// resolvedValue derives the value a strategy picks for one conflict.
func resolvedValue(c model.ConflictInfo, strategy model.Strategy, merge model.FieldValue) any {
	switch strategy {
	case model.StrategyRemote:
		return c.RemoteValue
	case model.StrategyMerge:
		if merge.Present {
			return merge.Value
		}
		return c.LocalValue
	default:
		return c.LocalValue
	}
}

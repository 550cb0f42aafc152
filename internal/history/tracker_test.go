package history

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/objectql/objectui-history/internal/errs"
	"github.com/objectql/objectui-history/internal/model"
)

func newTestTracker() *Tracker {
	return New(WithIDSource(seqIDSource()), WithClock(stepClock()))
}

var alice = model.Author{ID: uuid.Must(uuid.FromString("11111111-1111-4111-8111-111111111111")), Name: "alice"}

func TestTracker_ResolveConflict_Atomic(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	tr.RecordVersion(alice, model.Changes{"title": set("draft")}, "")

	c := tr.AddConflict(conflictOn("title", "draft", "local title", "remote title"))
	before := tr.CurrentVersion()

	e, err := tr.ResolveConflict(alice, c.ID, model.StrategyRemote, model.AbsentValue())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tr.HasConflicts() {
		t.Fatalf("conflict must be gone after resolution")
	}
	if got := tr.CurrentVersion(); got != before+1 {
		t.Fatalf("want exactly one new entry: before=%d after=%d", before, got)
	}
	ch := e.Changes["title"]
	if ch.Before.Value != "draft" || ch.After.Value != "remote title" {
		t.Fatalf("resolved change: %#v", ch)
	}
	if e.Message != "Resolved conflict on title (remote)" {
		t.Fatalf("message: %q", e.Message)
	}
}

func TestTracker_ResolveConflict_Strategies(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		strategy model.Strategy
		merge    model.FieldValue
		want     any
	}{
		{"local keeps local", model.StrategyLocal, model.AbsentValue(), "local"},
		{"remote keeps remote", model.StrategyRemote, model.AbsentValue(), "remote"},
		{"merge applies override", model.StrategyMerge, model.SomeValue("merged"), "merged"},
		{"merge without value falls back to local", model.StrategyMerge, model.AbsentValue(), "local"},
		{"merge with explicit null keeps null", model.StrategyMerge, model.SomeValue(nil), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTracker()
			c := tr.AddConflict(conflictOn("field", "base", "local", "remote"))
			e, err := tr.ResolveConflict(alice, c.ID, tc.strategy, tc.merge)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got := e.Changes["field"].After.Value; !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("resolved value: want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestTracker_ResolveConflict_UnknownID(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	tr.AddConflict(conflictOn("field", "base", "local", "remote"))
	before := tr.CurrentVersion()

	_, err := tr.ResolveConflict(alice, uuid.Must(uuid.NewV4()), model.StrategyLocal, model.AbsentValue())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if tr.CurrentVersion() != before || !tr.HasConflicts() {
		t.Fatalf("failed resolve must be a pure non-mutation")
	}
}

func TestTracker_ResolveConflict_UnknownStrategy(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	c := tr.AddConflict(conflictOn("field", "base", "local", "remote"))

	_, err := tr.ResolveConflict(alice, c.ID, model.Strategy("bogus"), model.AbsentValue())
	if !errors.Is(err, errs.ErrInvalidStrategy) {
		t.Fatalf("want ErrInvalidStrategy, got %v", err)
	}
}

func TestTracker_ResolveAllConflicts_CollapsesToOneEntry(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	tr.AddConflict(conflictOn("title", "t0", "t-local", "t-remote"))
	tr.AddConflict(conflictOn("status", "s0", "s-local", "s-remote"))
	tr.AddConflict(conflictOn("owner", "o0", "o-local", "o-remote"))
	before := tr.CurrentVersion()

	e, err := tr.ResolveAllConflicts(alice, model.StrategyLocal)
	if err != nil {
		t.Fatalf("resolve all: %v", err)
	}
	if e == nil || len(e.Changes) != 3 {
		t.Fatalf("want one entry with 3 field changes, got %+v", e)
	}
	if tr.CurrentVersion() != before+1 {
		t.Fatalf("want single version bump, got %d -> %d", before, tr.CurrentVersion())
	}
	if tr.HasConflicts() {
		t.Fatalf("queue must be empty")
	}
	for field, want := range map[string]any{"title": "t-local", "status": "s-local", "owner": "o-local"} {
		if got := e.Changes[field].After.Value; got != want {
			t.Fatalf("field %s: want %v, got %v", field, want, got)
		}
	}
	if e.Message != "Resolved 3 conflicts (local)" {
		t.Fatalf("message: %q", e.Message)
	}
}

func TestTracker_ResolveAllConflicts_EmptyQueueNoop(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()

	e, err := tr.ResolveAllConflicts(alice, model.StrategyRemote)
	if err != nil || e != nil {
		t.Fatalf("empty queue: want nil/nil, got %v/%v", e, err)
	}
	if tr.CurrentVersion() != 0 {
		t.Fatalf("no entry must be appended")
	}
}

func TestTracker_ResolveAllConflicts_RejectsMerge(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	tr.AddConflict(conflictOn("field", "base", "local", "remote"))

	if _, err := tr.ResolveAllConflicts(alice, model.StrategyMerge); !errors.Is(err, errs.ErrInvalidStrategy) {
		t.Fatalf("want ErrInvalidStrategy, got %v", err)
	}
	if !tr.HasConflicts() {
		t.Fatalf("queue must be untouched")
	}
}

// Reproduces the canonical revert scenario: two entries, revert to the first,
// the removed field is recorded as before=closed/after=absent in a new entry.
func TestTracker_RevertToVersion(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	e1 := tr.RecordVersion(alice, model.Changes{"name": set("Alice")}, "")
	tr.RecordVersion(alice, model.Changes{"status": set("closed")}, "")

	state, appended, err := tr.RevertToVersion(alice, e1.ID)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if !reflect.DeepEqual(state, model.State{"name": "Alice"}) {
		t.Fatalf("target state: %v", state)
	}
	if appended == nil {
		t.Fatalf("non-empty delta must append an entry")
	}
	if appended.Version != 3 || appended.Message != "Reverted to version 1" {
		t.Fatalf("appended: v=%d msg=%q", appended.Version, appended.Message)
	}
	ch := appended.Changes["status"]
	if ch.Before.Value != "closed" || ch.After.Present {
		t.Fatalf("delta: want before=closed after=absent, got %#v", ch)
	}

	// replaying the full log including the revert entry lands on the target
	entries := tr.Versions()
	if got := Reconstruct(entries, len(entries)-1); !reflect.DeepEqual(got, state) {
		t.Fatalf("replay after revert: want %v, got %v", state, got)
	}
}

func TestTracker_RevertToVersion_ForwardOnly(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	e1 := tr.RecordVersion(alice, model.Changes{"name": set("Alice")}, "")
	tr.RecordVersion(alice, model.Changes{"status": set("closed")}, "")

	before := tr.CurrentVersion()
	if _, appended, err := tr.RevertToVersion(alice, e1.ID); err != nil || appended == nil {
		t.Fatalf("first revert: %v %v", appended, err)
	}
	if tr.CurrentVersion() != before+1 {
		t.Fatalf("version must increase by exactly 1")
	}

	// reverting again to the same target: delta is empty, no new entry,
	// but the snapshot is still returned
	mid := tr.CurrentVersion()
	state, appended, err := tr.RevertToVersion(alice, e1.ID)
	if err != nil {
		t.Fatalf("second revert: %v", err)
	}
	if appended != nil {
		t.Fatalf("empty delta must not append")
	}
	if tr.CurrentVersion() != mid {
		t.Fatalf("current version must never decrease")
	}
	if !reflect.DeepEqual(state, model.State{"name": "Alice"}) {
		t.Fatalf("snapshot still returned: %v", state)
	}
}

func TestTracker_RevertToVersion_UnknownID(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	tr.RecordVersion(alice, model.Changes{"a": set(1)}, "")
	before := tr.CurrentVersion()

	_, _, err := tr.RevertToVersion(alice, uuid.Must(uuid.NewV4()))
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if tr.CurrentVersion() != before {
		t.Fatalf("log must be untouched")
	}
}

func TestTracker_CompareVersions_DirectionFixedByLogOrder(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	e1 := tr.RecordVersion(alice, model.Changes{"status": set("open")}, "")
	e2 := tr.RecordVersion(alice, model.Changes{"status": set("closed")}, "")

	ab, err := tr.CompareVersions(e1.ID, e2.ID)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	ba, err := tr.CompareVersions(e2.ID, e1.ID)
	if err != nil {
		t.Fatalf("compare swapped: %v", err)
	}
	if !reflect.DeepEqual(ab, ba) {
		t.Fatalf("argument order must not flip diff direction:\n%v\n%v", ab, ba)
	}
	ch := ab["status"]
	if ch.Before.Value != "open" || ch.After.Value != "closed" {
		t.Fatalf("earlier entry must supply before: %#v", ch)
	}
}

func TestTracker_CompareVersions_UnknownID(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	e1 := tr.RecordVersion(alice, model.Changes{"a": set(1)}, "")

	if _, err := tr.CompareVersions(e1.ID, uuid.Must(uuid.NewV4())); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestTracker_ReconstructAt(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	e1 := tr.RecordVersion(alice, model.Changes{"name": set("Alice")}, "")
	tr.RecordVersion(alice, model.Changes{"status": set("closed")}, "")

	state, err := tr.ReconstructAt(e1.ID)
	if err != nil {
		t.Fatalf("reconstruct at: %v", err)
	}
	if !reflect.DeepEqual(state, model.State{"name": "Alice"}) {
		t.Fatalf("state at v1: %v", state)
	}
	if _, err := tr.ReconstructAt(uuid.Must(uuid.NewV4())); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestTracker_ClearHistory(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	tr.RecordVersion(alice, model.Changes{"a": set(1)}, "")
	tr.AddConflict(conflictOn("a", 1, 2, 3))

	tr.ClearHistory()
	if tr.CurrentVersion() != 0 || tr.HasConflicts() || len(tr.Versions()) != 0 {
		t.Fatalf("clear history must drop versions and conflicts")
	}
}

func TestTracker_AppendOnlyImmutability(t *testing.T) {
	t.Parallel()
	tr := newTestTracker()
	e1 := tr.RecordVersion(alice, model.Changes{"name": set("Alice")}, "")

	c := tr.AddConflict(conflictOn("name", "Alice", "Al", "Alicia"))
	if _, err := tr.ResolveConflict(alice, c.ID, model.StrategyRemote, model.AbsentValue()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	tr.RecordVersion(alice, model.Changes{"status": set("open")}, "")

	got, ok := tr.FindVersion(e1.ID)
	if !ok {
		t.Fatalf("first entry vanished")
	}
	if !reflect.DeepEqual(got, e1) {
		t.Fatalf("previously returned entry changed:\nwas %#v\nnow %#v", e1, got)
	}
}

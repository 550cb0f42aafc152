package history

import (
	"reflect"

	"github.com/objectql/objectui-history/internal/model"
)

// Reconstruct folds entries[0..upTo] into a field snapshot. For each field the
// value from the highest-version touching entry wins. An absent After removes
// the field, so entries produced by a revert replay correctly. Fields never
// touched stay absent from the result; absence and explicit null are distinct.
//
// Pure: no side effects, same input always yields the same snapshot.
func Reconstruct(entries []model.VersionEntry, upTo int) model.State {
	state := make(model.State)
	if upTo >= len(entries) {
		upTo = len(entries) - 1
	}
	for i := 0; i <= upTo; i++ {
		for field, ch := range entries[i].Changes {
			if !ch.After.Present {
				delete(state, field)
				continue
			}
			state[field] = ch.After.Value
		}
	}
	return state
}

// Diff compares two snapshots and returns the per-field before/after pairs for
// every field whose value differs, including fields present on only one side.
func Diff(a, b model.State) model.Changes {
	out := make(model.Changes)
	for field, av := range a {
		bv, ok := b[field]
		if !ok {
			out[field] = model.FieldChange{Before: model.SomeValue(av)}
			continue
		}
		if !valueEqual(av, bv) {
			out[field] = model.FieldChange{Before: model.SomeValue(av), After: model.SomeValue(bv)}
		}
	}
	for field, bv := range b {
		if _, ok := a[field]; !ok {
			out[field] = model.FieldChange{After: model.SomeValue(bv)}
		}
	}
	return out
}

// valueEqual compares opaque field values. Values arrive from JSON as
// primitives, maps and slices, so structural comparison is required for the
// composite kinds.
func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

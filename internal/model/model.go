// Package model defines domain entities shared by the history engine, services and handlers.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// FieldValue is an opaque field value plus a presence flag.
// An absent value (Present == false) is distinct from an explicit null
// (Present == true, Value == nil).
type FieldValue struct {
	Value   any
	Present bool
}

// SomeValue wraps v as a present FieldValue.
func SomeValue(v any) FieldValue {
	return FieldValue{Value: v, Present: true}
}

// AbsentValue returns the absent FieldValue.
func AbsentValue() FieldValue {
	return FieldValue{}
}

// FieldChange is a before/after pair for a single field within one version entry.
type FieldChange struct {
	Before FieldValue
	After  FieldValue
}

// Changes maps field name to its change within one version entry.
type Changes map[string]FieldChange

// Author identifies who produced a version entry.
type Author struct {
	ID   uuid.UUID
	Name string // optional display name
}

// VersionEntry is one append-only record of field changes at a point in time.
// Entries are immutable after creation; revert and resolve always produce a
// new forward entry, history is never rewritten.
type VersionEntry struct {
	ID         uuid.UUID
	Version    int64 // 1-based, strictly increasing, gapless per record
	Timestamp  time.Time
	AuthorID   uuid.UUID
	AuthorName string // optional
	Changes    Changes
	Message    string // optional, auto-generated for system actions
}

// ConflictInfo is a detected divergence between a local and a remote edit to
// the same field from a common base value. It lives in the pending queue until
// resolved, then is removed whole; it is never edited in place.
type ConflictInfo struct {
	ID              uuid.UUID
	Field           string
	BaseValue       any
	LocalValue      any
	LocalTimestamp  time.Time
	RemoteValue     any
	RemoteTimestamp time.Time
	RemoteAuthorID  uuid.UUID
}

// State is a reconstructed field snapshot derived by folding a version log
// prefix. Fields never touched by the prefix are absent from the map.
type State map[string]any

// Strategy selects how a pending conflict is resolved.
type Strategy string

const (
	// StrategyLocal keeps the local edit.
	StrategyLocal Strategy = "local"
	// StrategyRemote keeps the remote edit.
	StrategyRemote Strategy = "remote"
	// StrategyMerge applies a caller-supplied value; with no value supplied it
	// falls back to the local edit.
	StrategyMerge Strategy = "merge"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyLocal, StrategyRemote, StrategyMerge:
		return true
	}
	return false
}

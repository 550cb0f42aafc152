// Package dto defines the JSON request/response shapes of the history API.
package dto

import (
	"encoding/json"
	"time"
)

// FieldChange is a before/after pair. Either side may be absent, which is
// distinct from an explicit null: absent sides are omitted from the JSON
// object entirely.
type FieldChange struct {
	Before    any
	HasBefore bool
	After     any
	HasAfter  bool
}

// MarshalJSON omits absent sides instead of writing null.
func (c FieldChange) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 2)
	if c.HasBefore {
		m["before"] = c.Before
	}
	if c.HasAfter {
		m["after"] = c.After
	}
	return json.Marshal(m)
}

// UnmarshalJSON records key presence so "before": null and a missing "before"
// stay distinguishable.
func (c *FieldChange) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = FieldChange{}
	if rb, ok := raw["before"]; ok {
		c.HasBefore = true
		if err := json.Unmarshal(rb, &c.Before); err != nil {
			return err
		}
	}
	if ra, ok := raw["after"]; ok {
		c.HasAfter = true
		if err := json.Unmarshal(ra, &c.After); err != nil {
			return err
		}
	}
	return nil
}

// VersionEntry is one history entry as served to clients.
type VersionEntry struct {
	ID         string                 `json:"id"`
	Version    int64                  `json:"version"`
	Timestamp  time.Time              `json:"timestamp"`
	AuthorID   string                 `json:"author_id"`
	AuthorName string                 `json:"author_name,omitempty"`
	Changes    map[string]FieldChange `json:"changes"`
	Message    string                 `json:"message,omitempty"`
}

// ConflictInfo is one pending conflict as served to clients.
type ConflictInfo struct {
	ID              string    `json:"id"`
	Field           string    `json:"field"`
	BaseValue       any       `json:"base_value"`
	LocalValue      any       `json:"local_value"`
	LocalTimestamp  time.Time `json:"local_timestamp"`
	RemoteValue     any       `json:"remote_value"`
	RemoteTimestamp time.Time `json:"remote_timestamp"`
	RemoteAuthorID  string    `json:"remote_author_id"`
}

// RecordVersionRequest commits a local edit to the log.
type RecordVersionRequest struct {
	AuthorID   string                 `json:"author_id"`
	AuthorName string                 `json:"author_name,omitempty"`
	Changes    map[string]FieldChange `json:"changes"`
	Message    string                 `json:"message,omitempty"`
}

// AddConflictRequest reports a divergence detected by the sync layer.
type AddConflictRequest struct {
	Field           string    `json:"field"`
	BaseValue       any       `json:"base_value"`
	LocalValue      any       `json:"local_value"`
	LocalTimestamp  time.Time `json:"local_timestamp"`
	RemoteValue     any       `json:"remote_value"`
	RemoteTimestamp time.Time `json:"remote_timestamp"`
	RemoteAuthorID  string    `json:"remote_author_id"`
}

// ResolveConflictRequest resolves one conflict. MergeValue is only consulted
// for the merge strategy; a missing key and an explicit null are distinct, so
// it is carried as raw JSON.
type ResolveConflictRequest struct {
	AuthorID   string          `json:"author_id"`
	AuthorName string          `json:"author_name,omitempty"`
	Strategy   string          `json:"strategy"`
	MergeValue json.RawMessage `json:"merge_value,omitempty"`
}

// ResolveAllRequest resolves every pending conflict with one strategy.
type ResolveAllRequest struct {
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name,omitempty"`
	Strategy   string `json:"strategy"`
}

// RevertRequest reverts a record to a historical version.
type RevertRequest struct {
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name,omitempty"`
}

// RevertResponse returns the historical snapshot and, when the log changed,
// the appended entry.
type RevertResponse struct {
	State map[string]any `json:"state"`
	Entry *VersionEntry  `json:"entry,omitempty"`
}

// CompareResponse is the diff between two versions, earlier side as before.
type CompareResponse struct {
	Changes map[string]FieldChange `json:"changes"`
}

// VersionsResponse lists a record's history.
type VersionsResponse struct {
	Versions       []VersionEntry `json:"versions"`
	CurrentVersion int64          `json:"current_version"`
}

// ResolveAllResponse carries the aggregated entry, or null when nothing was
// pending.
type ResolveAllResponse struct {
	Entry *VersionEntry `json:"entry"`
}

// CurrentVersionResponse reports the latest version number of a record.
type CurrentVersionResponse struct {
	Version int64 `json:"version"`
}

// ConflictsResponse lists pending conflicts.
type ConflictsResponse struct {
	Conflicts    []ConflictInfo `json:"conflicts"`
	HasConflicts bool           `json:"has_conflicts"`
}

// StateResponse is a reconstructed snapshot.
type StateResponse struct {
	State map[string]any `json:"state"`
}

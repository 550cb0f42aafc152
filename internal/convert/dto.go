// Package convert maps between domain entities and API DTOs.
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/objectql/objectui-history/internal/model"
	"github.com/objectql/objectui-history/pkg/dto"
)

// --- helpers ---

// ParseAuthor builds an Author from its wire representation.
func ParseAuthor(id, name string) (model.Author, error) {
	var uid uuid.UUID
	if err := uid.UnmarshalText([]byte(id)); err != nil {
		return model.Author{}, fmt.Errorf("invalid author_id: %w", err)
	}
	return model.Author{ID: uid, Name: name}, nil
}

// --- changes ---

// FromDTOChanges converts wire field changes to the domain form.
func FromDTOChanges(in map[string]dto.FieldChange) model.Changes {
	out := make(model.Changes, len(in))
	for f, ch := range in {
		out[f] = model.FieldChange{
			Before: fieldValue(ch.Before, ch.HasBefore),
			After:  fieldValue(ch.After, ch.HasAfter),
		}
	}
	return out
}

// ToDTOChanges converts domain field changes to the wire form.
func ToDTOChanges(in model.Changes) map[string]dto.FieldChange {
	out := make(map[string]dto.FieldChange, len(in))
	for f, ch := range in {
		out[f] = dto.FieldChange{
			Before:    ch.Before.Value,
			HasBefore: ch.Before.Present,
			After:     ch.After.Value,
			HasAfter:  ch.After.Present,
		}
	}
	return out
}

func fieldValue(v any, present bool) model.FieldValue {
	if !present {
		return model.AbsentValue()
	}
	return model.SomeValue(v)
}

// --- version entries ---

// ToDTOVersionEntry converts a domain entry to its wire form.
func ToDTOVersionEntry(e model.VersionEntry) dto.VersionEntry {
	return dto.VersionEntry{
		ID:         e.ID.String(),
		Version:    e.Version,
		Timestamp:  e.Timestamp,
		AuthorID:   e.AuthorID.String(),
		AuthorName: e.AuthorName,
		Changes:    ToDTOChanges(e.Changes),
		Message:    e.Message,
	}
}

// ToDTOVersionEntries converts a slice of domain entries.
func ToDTOVersionEntries(es []model.VersionEntry) []dto.VersionEntry {
	out := make([]dto.VersionEntry, 0, len(es))
	for _, e := range es {
		out = append(out, ToDTOVersionEntry(e))
	}
	return out
}

// --- conflicts ---

// ToDTOConflict converts a domain conflict to its wire form.
func ToDTOConflict(c model.ConflictInfo) dto.ConflictInfo {
	return dto.ConflictInfo{
		ID:              c.ID.String(),
		Field:           c.Field,
		BaseValue:       c.BaseValue,
		LocalValue:      c.LocalValue,
		LocalTimestamp:  c.LocalTimestamp,
		RemoteValue:     c.RemoteValue,
		RemoteTimestamp: c.RemoteTimestamp,
		RemoteAuthorID:  c.RemoteAuthorID.String(),
	}
}

// ToDTOConflicts converts a slice of domain conflicts.
func ToDTOConflicts(cs []model.ConflictInfo) []dto.ConflictInfo {
	out := make([]dto.ConflictInfo, 0, len(cs))
	for _, c := range cs {
		out = append(out, ToDTOConflict(c))
	}
	return out
}

// FromDTOAddConflict converts a detected-divergence report to the domain form.
// The conflict id is assigned by the engine, not the caller.
func FromDTOAddConflict(in dto.AddConflictRequest) (model.ConflictInfo, error) {
	if in.Field == "" {
		return model.ConflictInfo{}, fmt.Errorf("empty field")
	}
	var remoteAuthor uuid.UUID
	if in.RemoteAuthorID != "" {
		if err := remoteAuthor.UnmarshalText([]byte(in.RemoteAuthorID)); err != nil {
			return model.ConflictInfo{}, fmt.Errorf("invalid remote_author_id: %w", err)
		}
	}
	return model.ConflictInfo{
		Field:           in.Field,
		BaseValue:       in.BaseValue,
		LocalValue:      in.LocalValue,
		LocalTimestamp:  in.LocalTimestamp,
		RemoteValue:     in.RemoteValue,
		RemoteTimestamp: in.RemoteTimestamp,
		RemoteAuthorID:  remoteAuthor,
	}, nil
}

// --- resolution ---

// MergeValueFromDTO decodes the optional merge override. A missing key stays
// absent (the engine then falls back to the local value); an explicit null is
// a present null.
func MergeValueFromDTO(raw json.RawMessage) (model.FieldValue, error) {
	if raw == nil {
		return model.AbsentValue(), nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.FieldValue{}, fmt.Errorf("invalid merge_value: %w", err)
	}
	return model.SomeValue(v), nil
}

// --- states ---

// ToDTOState converts a reconstructed snapshot to its wire form.
func ToDTOState(s model.State) map[string]any {
	out := make(map[string]any, len(s))
	for f, v := range s {
		out[f] = v
	}
	return out
}

// Package service contains application services over per-record history trackers.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/objectql/objectui-history/internal/history"
	"github.com/objectql/objectui-history/internal/model"
)

// Notifier receives change notifications after each applied mutation.
type Notifier interface {
	VersionRecorded(recordID uuid.UUID, e model.VersionEntry)
	ConflictDetected(recordID uuid.UUID, c model.ConflictInfo)
	ConflictResolved(recordID uuid.UUID, resolved int, e model.VersionEntry)
	HistoryCleared(recordID uuid.UUID)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) VersionRecorded(uuid.UUID, model.VersionEntry)       {}
func (NopNotifier) ConflictDetected(uuid.UUID, model.ConflictInfo)      {}
func (NopNotifier) ConflictResolved(uuid.UUID, int, model.VersionEntry) {}
func (NopNotifier) HistoryCleared(uuid.UUID)                            {}

// HistoryService defines the engine surface exposed to synchronization and
// presentation layers.
type HistoryService interface {
	// RecordVersion appends an entry for a committed local edit.
	RecordVersion(ctx context.Context, recordID uuid.UUID, author model.Author, changes model.Changes, message string) (model.VersionEntry, error)
	// Versions returns a record's full version list in ascending order.
	Versions(ctx context.Context, recordID uuid.UUID) ([]model.VersionEntry, error)
	// CurrentVersion returns the latest version number (0 when empty).
	CurrentVersion(ctx context.Context, recordID uuid.UUID) (int64, error)
	// AddConflict queues a divergence reported by the synchronization layer.
	AddConflict(ctx context.Context, recordID uuid.UUID, c model.ConflictInfo) (model.ConflictInfo, error)
	// Conflicts returns pending conflicts in insertion order.
	Conflicts(ctx context.Context, recordID uuid.UUID) ([]model.ConflictInfo, error)
	// HasConflicts reports whether any conflict is pending.
	HasConflicts(ctx context.Context, recordID uuid.UUID) (bool, error)
	// ResolveConflict resolves one conflict into a new version entry.
	ResolveConflict(ctx context.Context, recordID uuid.UUID, author model.Author, conflictID uuid.UUID, strategy model.Strategy, merge model.FieldValue) (model.VersionEntry, error)
	// ResolveAllConflicts collapses the whole queue into one version entry.
	ResolveAllConflicts(ctx context.Context, recordID uuid.UUID, author model.Author, strategy model.Strategy) (*model.VersionEntry, error)
	// RevertToVersion computes a historical snapshot and appends the delta.
	RevertToVersion(ctx context.Context, recordID uuid.UUID, author model.Author, versionID uuid.UUID) (model.State, *model.VersionEntry, error)
	// CompareVersions diffs the states at two entries, earlier side first.
	CompareVersions(ctx context.Context, recordID uuid.UUID, versionA, versionB uuid.UUID) (model.Changes, error)
	// VersionState returns the reconstructed snapshot at one entry.
	VersionState(ctx context.Context, recordID uuid.UUID, versionID uuid.UUID) (model.State, error)
	// ClearHistory drops a record's versions and conflicts (session reset).
	ClearHistory(ctx context.Context, recordID uuid.UUID) error
}

type HistoryServiceImpl struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*history.Tracker

	notifier  Notifier
	log       *zap.Logger
	maxFields int
	opts      []history.Option
}

// NewHistoryService constructs HistoryService. maxFields bounds the number of
// field changes accepted per entry; opts are applied to every new tracker
// (id source and clock injection for tests).
func NewHistoryService(notifier Notifier, logger *zap.Logger, maxFields int, opts ...history.Option) *HistoryServiceImpl {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxFields <= 0 {
		maxFields = 256
	}
	return &HistoryServiceImpl{
		records:   make(map[uuid.UUID]*history.Tracker),
		notifier:  notifier,
		log:       logger,
		maxFields: maxFields,
		opts:      opts,
	}
}

// tracker returns the record's tracker, creating it on first use. A record's
// editing session starts implicitly with its first engine call.
func (s *HistoryServiceImpl) tracker(recordID uuid.UUID) *history.Tracker {
	s.mu.RLock()
	t, ok := s.records[recordID]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok = s.records[recordID]; ok {
		return t
	}
	t = history.New(s.opts...)
	s.records[recordID] = t
	return t
}

// RecordVersion validates the edit and appends it to the record's log.
// Validation rules:
// - recordID != uuid.Nil
// - author.ID != uuid.Nil
// - changes not empty (no-op entries are not accepted from the outside)
// - len(changes) <= maxFields, field names not empty
func (s *HistoryServiceImpl) RecordVersion(ctx context.Context, recordID uuid.UUID, author model.Author, changes model.Changes, message string) (model.VersionEntry, error) {
	if recordID == uuid.Nil {
		return model.VersionEntry{}, errors.New("validation: empty recordID")
	}
	if author.ID == uuid.Nil {
		return model.VersionEntry{}, errors.New("validation: empty author")
	}
	if len(changes) == 0 {
		return model.VersionEntry{}, errors.New("validation: empty changes")
	}
	if len(changes) > s.maxFields {
		return model.VersionEntry{}, fmt.Errorf("validation: too many fields (%d > %d)", len(changes), s.maxFields)
	}
	for f := range changes {
		if f == "" {
			return model.VersionEntry{}, errors.New("validation: empty field name")
		}
	}

	e := s.tracker(recordID).RecordVersion(author, changes, message)
	s.log.Info("version recorded",
		zap.Stringer("record", recordID),
		zap.Int64("version", e.Version),
		zap.Int("fields", len(e.Changes)),
	)
	s.notifier.VersionRecorded(recordID, e)
	return e, nil
}

// Versions returns the record's version list.
func (s *HistoryServiceImpl) Versions(ctx context.Context, recordID uuid.UUID) ([]model.VersionEntry, error) {
	if recordID == uuid.Nil {
		return nil, errors.New("validation: empty recordID")
	}
	return s.tracker(recordID).Versions(), nil
}

// CurrentVersion returns the record's latest version number.
func (s *HistoryServiceImpl) CurrentVersion(ctx context.Context, recordID uuid.UUID) (int64, error) {
	if recordID == uuid.Nil {
		return 0, errors.New("validation: empty recordID")
	}
	return s.tracker(recordID).CurrentVersion(), nil
}

// AddConflict validates and queues a divergence. The stored conflict (with its
// assigned id) is returned.
func (s *HistoryServiceImpl) AddConflict(ctx context.Context, recordID uuid.UUID, c model.ConflictInfo) (model.ConflictInfo, error) {
	if recordID == uuid.Nil {
		return model.ConflictInfo{}, errors.New("validation: empty recordID")
	}
	if c.Field == "" {
		return model.ConflictInfo{}, errors.New("validation: empty field")
	}

	stored := s.tracker(recordID).AddConflict(c)
	s.log.Info("conflict detected",
		zap.Stringer("record", recordID),
		zap.Stringer("conflict", stored.ID),
		zap.String("field", stored.Field),
	)
	s.notifier.ConflictDetected(recordID, stored)
	return stored, nil
}

// Conflicts returns pending conflicts.
func (s *HistoryServiceImpl) Conflicts(ctx context.Context, recordID uuid.UUID) ([]model.ConflictInfo, error) {
	if recordID == uuid.Nil {
		return nil, errors.New("validation: empty recordID")
	}
	return s.tracker(recordID).Conflicts(), nil
}

// HasConflicts reports whether the record has pending conflicts.
func (s *HistoryServiceImpl) HasConflicts(ctx context.Context, recordID uuid.UUID) (bool, error) {
	if recordID == uuid.Nil {
		return false, errors.New("validation: empty recordID")
	}
	return s.tracker(recordID).HasConflicts(), nil
}

// ResolveConflict resolves one conflict atomically with its queue removal.
func (s *HistoryServiceImpl) ResolveConflict(ctx context.Context, recordID uuid.UUID, author model.Author, conflictID uuid.UUID, strategy model.Strategy, merge model.FieldValue) (model.VersionEntry, error) {
	if recordID == uuid.Nil || conflictID == uuid.Nil {
		return model.VersionEntry{}, errors.New("validation: empty recordID/conflictID")
	}
	if author.ID == uuid.Nil {
		return model.VersionEntry{}, errors.New("validation: empty author")
	}

	e, err := s.tracker(recordID).ResolveConflict(author, conflictID, strategy, merge)
	if err != nil {
		return model.VersionEntry{}, err
	}
	s.log.Info("conflict resolved",
		zap.Stringer("record", recordID),
		zap.Stringer("conflict", conflictID),
		zap.String("strategy", string(strategy)),
		zap.Int64("version", e.Version),
	)
	s.notifier.ConflictResolved(recordID, 1, e)
	return e, nil
}

// ResolveAllConflicts resolves the whole queue into one entry. Returns nil
// without error when nothing was pending.
func (s *HistoryServiceImpl) ResolveAllConflicts(ctx context.Context, recordID uuid.UUID, author model.Author, strategy model.Strategy) (*model.VersionEntry, error) {
	if recordID == uuid.Nil {
		return nil, errors.New("validation: empty recordID")
	}
	if author.ID == uuid.Nil {
		return nil, errors.New("validation: empty author")
	}

	t := s.tracker(recordID)
	pending := len(t.Conflicts())
	e, err := t.ResolveAllConflicts(author, strategy)
	if err != nil || e == nil {
		return nil, err
	}
	s.log.Info("all conflicts resolved",
		zap.Stringer("record", recordID),
		zap.Int("resolved", pending),
		zap.String("strategy", string(strategy)),
		zap.Int64("version", e.Version),
	)
	s.notifier.ConflictResolved(recordID, pending, *e)
	return e, nil
}

// RevertToVersion reverts forward to a historical snapshot.
func (s *HistoryServiceImpl) RevertToVersion(ctx context.Context, recordID uuid.UUID, author model.Author, versionID uuid.UUID) (model.State, *model.VersionEntry, error) {
	if recordID == uuid.Nil || versionID == uuid.Nil {
		return nil, nil, errors.New("validation: empty recordID/versionID")
	}
	if author.ID == uuid.Nil {
		return nil, nil, errors.New("validation: empty author")
	}

	state, e, err := s.tracker(recordID).RevertToVersion(author, versionID)
	if err != nil {
		return nil, nil, err
	}
	if e != nil {
		s.log.Info("reverted",
			zap.Stringer("record", recordID),
			zap.Stringer("target", versionID),
			zap.Int64("version", e.Version),
		)
		s.notifier.VersionRecorded(recordID, *e)
	}
	return state, e, nil
}

// CompareVersions diffs two historical snapshots.
func (s *HistoryServiceImpl) CompareVersions(ctx context.Context, recordID uuid.UUID, versionA, versionB uuid.UUID) (model.Changes, error) {
	if recordID == uuid.Nil || versionA == uuid.Nil || versionB == uuid.Nil {
		return nil, errors.New("validation: empty recordID/versionID")
	}
	return s.tracker(recordID).CompareVersions(versionA, versionB)
}

// VersionState returns the snapshot at one entry.
func (s *HistoryServiceImpl) VersionState(ctx context.Context, recordID uuid.UUID, versionID uuid.UUID) (model.State, error) {
	if recordID == uuid.Nil || versionID == uuid.Nil {
		return nil, errors.New("validation: empty recordID/versionID")
	}
	return s.tracker(recordID).ReconstructAt(versionID)
}

// ClearHistory resets the record's editing session.
func (s *HistoryServiceImpl) ClearHistory(ctx context.Context, recordID uuid.UUID) error {
	if recordID == uuid.Nil {
		return errors.New("validation: empty recordID")
	}
	s.tracker(recordID).ClearHistory()
	s.log.Info("history cleared", zap.Stringer("record", recordID))
	s.notifier.HistoryCleared(recordID)
	return nil
}

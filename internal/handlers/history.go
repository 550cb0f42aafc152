// Package handlers exposes the history engine over HTTP/JSON.
package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/m1z23r/drift/pkg/drift"

	"github.com/objectql/objectui-history/internal/convert"
	"github.com/objectql/objectui-history/internal/errs"
	"github.com/objectql/objectui-history/internal/model"
	"github.com/objectql/objectui-history/internal/service"
	"github.com/objectql/objectui-history/pkg/dto"
)

type HistoryHandler struct {
	history service.HistoryService
}

func NewHistoryHandler(history service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

func recordID(c *drift.Context) (uuid.UUID, bool) {
	var id uuid.UUID
	if err := id.UnmarshalText([]byte(c.Param("recordId"))); err != nil {
		c.BadRequest("invalid record id")
		return uuid.Nil, false
	}
	return id, true
}

func parseID(c *drift.Context, param, what string) (uuid.UUID, bool) {
	var id uuid.UUID
	if err := id.UnmarshalText([]byte(c.Param(param))); err != nil {
		c.BadRequest("invalid " + what + " id")
		return uuid.Nil, false
	}
	return id, true
}

// fail maps service/engine errors onto HTTP responses.
func fail(c *drift.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.NotFound(err.Error())
	case errors.Is(err, errs.ErrInvalidStrategy):
		c.BadRequest(err.Error())
	case strings.HasPrefix(err.Error(), "validation:"):
		c.BadRequest(err.Error())
	default:
		c.InternalServerError("internal error")
	}
}

// ListVersions returns the record's full history and current version number.
func (h *HistoryHandler) ListVersions(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	ctx := context.Background()

	versions, err := h.history.Versions(ctx, rec)
	if err != nil {
		fail(c, err)
		return
	}
	current, err := h.history.CurrentVersion(ctx, rec)
	if err != nil {
		fail(c, err)
		return
	}
	_ = c.JSON(200, dto.VersionsResponse{
		Versions:       convert.ToDTOVersionEntries(versions),
		CurrentVersion: current,
	})
}

// CurrentVersion returns the record's latest version number.
func (h *HistoryHandler) CurrentVersion(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	current, err := h.history.CurrentVersion(context.Background(), rec)
	if err != nil {
		fail(c, err)
		return
	}
	_ = c.JSON(200, dto.CurrentVersionResponse{Version: current})
}

// RecordVersion commits a local edit as a new version entry.
func (h *HistoryHandler) RecordVersion(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	var req dto.RecordVersionRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	author, err := convert.ParseAuthor(req.AuthorID, req.AuthorName)
	if err != nil {
		c.BadRequest(err.Error())
		return
	}
	if len(req.Changes) == 0 {
		c.BadRequest("changes are required")
		return
	}

	e, err := h.history.RecordVersion(context.Background(), rec, author, convert.FromDTOChanges(req.Changes), req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	_ = c.JSON(201, convert.ToDTOVersionEntry(e))
}

// GetVersion returns one version entry by id.
func (h *HistoryHandler) GetVersion(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	versionID, ok := parseID(c, "versionId", "version")
	if !ok {
		return
	}

	versions, err := h.history.Versions(context.Background(), rec)
	if err != nil {
		fail(c, err)
		return
	}
	for _, e := range versions {
		if e.ID == versionID {
			_ = c.JSON(200, convert.ToDTOVersionEntry(e))
			return
		}
	}
	c.NotFound("version not found")
}

// GetVersionState returns the reconstructed snapshot at one version entry.
func (h *HistoryHandler) GetVersionState(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	versionID, ok := parseID(c, "versionId", "version")
	if !ok {
		return
	}

	state, err := h.history.VersionState(context.Background(), rec, versionID)
	if err != nil {
		fail(c, err)
		return
	}
	_ = c.JSON(200, dto.StateResponse{State: convert.ToDTOState(state)})
}

// CompareVersions diffs two versions; the earlier entry always supplies the
// before side regardless of query order.
func (h *HistoryHandler) CompareVersions(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	var from, to uuid.UUID
	if err := from.UnmarshalText([]byte(c.QueryParam("from"))); err != nil {
		c.BadRequest("invalid from id")
		return
	}
	if err := to.UnmarshalText([]byte(c.QueryParam("to"))); err != nil {
		c.BadRequest("invalid to id")
		return
	}

	changes, err := h.history.CompareVersions(context.Background(), rec, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	_ = c.JSON(200, dto.CompareResponse{Changes: convert.ToDTOChanges(changes)})
}

// Revert reverts the record to a historical version with a forward entry.
func (h *HistoryHandler) Revert(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	versionID, ok := parseID(c, "versionId", "version")
	if !ok {
		return
	}
	var req dto.RevertRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	author, err := convert.ParseAuthor(req.AuthorID, req.AuthorName)
	if err != nil {
		c.BadRequest(err.Error())
		return
	}

	state, entry, err := h.history.RevertToVersion(context.Background(), rec, author, versionID)
	if err != nil {
		fail(c, err)
		return
	}
	resp := dto.RevertResponse{State: convert.ToDTOState(state)}
	if entry != nil {
		e := convert.ToDTOVersionEntry(*entry)
		resp.Entry = &e
	}
	_ = c.JSON(200, resp)
}

// ListConflicts returns pending conflicts in insertion order.
func (h *HistoryHandler) ListConflicts(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	ctx := context.Background()

	conflicts, err := h.history.Conflicts(ctx, rec)
	if err != nil {
		fail(c, err)
		return
	}
	_ = c.JSON(200, dto.ConflictsResponse{
		Conflicts:    convert.ToDTOConflicts(conflicts),
		HasConflicts: len(conflicts) > 0,
	})
}

// AddConflict queues a divergence reported by the synchronization layer.
func (h *HistoryHandler) AddConflict(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	var req dto.AddConflictRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	conflict, err := convert.FromDTOAddConflict(req)
	if err != nil {
		c.BadRequest(err.Error())
		return
	}

	stored, err := h.history.AddConflict(context.Background(), rec, conflict)
	if err != nil {
		fail(c, err)
		return
	}
	_ = c.JSON(201, convert.ToDTOConflict(stored))
}

// ResolveConflict resolves one conflict under the requested strategy.
func (h *HistoryHandler) ResolveConflict(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	conflictID, ok := parseID(c, "conflictId", "conflict")
	if !ok {
		return
	}
	var req dto.ResolveConflictRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	author, err := convert.ParseAuthor(req.AuthorID, req.AuthorName)
	if err != nil {
		c.BadRequest(err.Error())
		return
	}
	strategy := model.Strategy(req.Strategy)
	if !strategy.Valid() {
		c.BadRequest("unknown strategy")
		return
	}
	merge, err := convert.MergeValueFromDTO(req.MergeValue)
	if err != nil {
		c.BadRequest(err.Error())
		return
	}

	e, err := h.history.ResolveConflict(context.Background(), rec, author, conflictID, strategy, merge)
	if err != nil {
		fail(c, err)
		return
	}
	_ = c.JSON(200, convert.ToDTOVersionEntry(e))
}

// ResolveAllConflicts collapses the whole queue into one version entry.
func (h *HistoryHandler) ResolveAllConflicts(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	var req dto.ResolveAllRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	author, err := convert.ParseAuthor(req.AuthorID, req.AuthorName)
	if err != nil {
		c.BadRequest(err.Error())
		return
	}

	e, err := h.history.ResolveAllConflicts(context.Background(), rec, author, model.Strategy(req.Strategy))
	if err != nil {
		fail(c, err)
		return
	}
	resp := dto.ResolveAllResponse{}
	if e != nil {
		d := convert.ToDTOVersionEntry(*e)
		resp.Entry = &d
	}
	_ = c.JSON(200, resp)
}

// ClearHistory drops all versions and conflicts for the record.
func (h *HistoryHandler) ClearHistory(c *drift.Context) {
	rec, ok := recordID(c)
	if !ok {
		return
	}
	if err := h.history.ClearHistory(context.Background(), rec); err != nil {
		fail(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "history cleared"})
}

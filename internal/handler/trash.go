package handler

import (
	"log/slog"
	"net/http"

	fsSvc "fileflow/internal/domain/services/filesystem"
	"fileflow/internal/httputil"
)

// TrashHandler handles trash listing, restore and emptying
type TrashHandler struct {
	treeService  fsSvc.TreeService
	trashService fsSvc.TrashService
	logger       *slog.Logger
}

// NewTrashHandler creates a new trash handler
func NewTrashHandler(treeService fsSvc.TreeService, trashService fsSvc.TrashService, logger *slog.Logger) *TrashHandler {
	return &TrashHandler{
		treeService:  treeService,
		trashService: trashService,
		logger:       logger,
	}
}

// GetTrash lists the caller's trashed nodes
// GET /api/files/trash
func (h *TrashHandler) GetTrash(w http.ResponseWriter, r *http.Request) {
	items, err := h.treeService.GetTrash(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, items)
}

// Restore takes a node and its cascade group out of the trash
// POST /api/files/{id}/restore
func (h *TrashHandler) Restore(w http.ResponseWriter, r *http.Request) {
	result, err := h.trashService.Restore(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// EmptyTrash permanently deletes everything in the caller's trash
// DELETE /api/files/trash
func (h *TrashHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	ids, err := h.trashService.EmptyTrash(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"deleted": ids, "count": len(ids)})
}

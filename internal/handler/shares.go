package handler

import (
	"log/slog"
	"net/http"

	fsSvc "fileflow/internal/domain/services/filesystem"
	"fileflow/internal/httputil"
)

// ShareHandler handles share grants and shared views
type ShareHandler struct {
	shareService fsSvc.ShareService
	logger       *slog.Logger
}

// NewShareHandler creates a new share handler
func NewShareHandler(shareService fsSvc.ShareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		logger:       logger,
	}
}

// Share grants another user access to a node
// POST /api/files/{id}/share
func (h *ShareHandler) Share(w http.ResponseWriter, r *http.Request) {
	var req fsSvc.ShareRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	req.FileID = r.PathValue("id")
	req.SharedByUserID = httputil.GetUserID(r)

	share, err := h.shareService.Share(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, share)
}

// Unshare revokes a grant the caller created
// DELETE /api/shares/{id}
func (h *ShareHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	if err := h.shareService.Unshare(r.Context(), r.PathValue("id"), httputil.GetUserID(r)); err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAllShared returns both directions, each root tagged
// GET /api/files/shared
func (h *ShareHandler) GetAllShared(w http.ResponseWriter, r *http.Request) {
	trees, err := h.shareService.GetAllShared(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, trees)
}

// GetSharedByMe
// GET /api/files/shared/by-me
func (h *ShareHandler) GetSharedByMe(w http.ResponseWriter, r *http.Request) {
	trees, err := h.shareService.GetSharedByMe(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, trees)
}

// GetSharedWithMe
// GET /api/files/shared/with-me
func (h *ShareHandler) GetSharedWithMe(w http.ResponseWriter, r *http.Request) {
	trees, err := h.shareService.GetSharedWithMe(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, trees)
}

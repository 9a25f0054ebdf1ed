package handler

import (
	"log/slog"
	"net/http"

	models "fileflow/internal/domain/models/filesystem"
	fsSvc "fileflow/internal/domain/services/filesystem"
	"fileflow/internal/httputil"
)

// FileHandler handles node create/rename/move/delete and tree reads
type FileHandler struct {
	nodeService fsSvc.NodeService
	treeService fsSvc.TreeService
	logger      *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(nodeService fsSvc.NodeService, treeService fsSvc.TreeService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		nodeService: nodeService,
		treeService: treeService,
		logger:      logger,
	}
}

// CreateFolder creates a new folder
// POST /api/files/folder
func (h *FileHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req fsSvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	req.OwnerID = httputil.GetUserID(r)

	folder, err := h.nodeService.CreateFolder(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, folder)
}

type renameRequest struct {
	Name string `json:"name"`
}

// RenameFolder renames a folder in place
// PATCH /api/files/folder/{id}/rename
func (h *FileHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	folder, err := h.nodeService.RenameFolder(r.Context(), r.PathValue("id"), httputil.GetUserID(r), req.Name)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folder)
}

type moveRequest struct {
	// TargetFolderID null moves the node to root.
	TargetFolderID *string `json:"target_folder_id"`
}

// Move reparents a file or folder
// PATCH /api/files/{id}/move
func (h *FileHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	result, err := h.nodeService.Move(r.Context(), r.PathValue("id"), req.TargetFolderID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

type accessLevelRequest struct {
	AccessLevel models.AccessLevel `json:"access_level"`
}

// UpdateAccessLevel sets the access level on a node and its subtree
// PATCH /api/files/{id}/access-level
func (h *FileHandler) UpdateAccessLevel(w http.ResponseWriter, r *http.Request) {
	var req accessLevelRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	n, err := h.nodeService.UpdateAccessLevel(r.Context(), r.PathValue("id"), httputil.GetUserID(r), req.AccessLevel)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int{"affected": n})
}

// CreateFile records a file node for an already stored blob
// POST /api/files/file
func (h *FileHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req fsSvc.CreateFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	req.OwnerID = httputil.GetUserID(r)

	file, err := h.nodeService.CreateFile(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, file)
}

// Delete moves a node and its subtree to the trash
// DELETE /api/files/{id}
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	result, err := h.nodeService.Delete(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// GetTree returns the caller's nested tree, optionally filtered by access level
// GET /api/files/tree?access_level=public
func (h *FileHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	var filter *models.AccessLevel
	if v := r.URL.Query().Get("access_level"); v != "" {
		level := models.AccessLevel(v)
		if !level.Valid() {
			badRequest(w, "access_level must be one of public, private, protected")
			return
		}
		filter = &level
	}

	tree, err := h.treeService.GetFileSystemTree(r.Context(), httputil.GetUserID(r), filter)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tree)
}

// GetUsage reports used, trashed and quota bytes
// GET /api/files/usage
func (h *FileHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.treeService.StorageUsage(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, usage)
}

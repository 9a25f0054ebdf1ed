package handler

import "net/http"

// Handlers groups the HTTP handlers registered on the API mux.
type Handlers struct {
	Files   *FileHandler
	Trash   *TrashHandler
	Shares  *ShareHandler
	Uploads *UploadHandler
	Health  *HealthHandler
}

// Register adds every route to mux (Go 1.22+ method and wildcard patterns).
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health.HealthCheck)

	// Nodes
	mux.HandleFunc("POST /api/files/folder", h.Files.CreateFolder)
	mux.HandleFunc("PATCH /api/files/folder/{id}/rename", h.Files.RenameFolder)
	mux.HandleFunc("POST /api/files/file", h.Files.CreateFile)
	mux.HandleFunc("PATCH /api/files/{id}/move", h.Files.Move)
	mux.HandleFunc("PATCH /api/files/{id}/access-level", h.Files.UpdateAccessLevel)
	mux.HandleFunc("DELETE /api/files/{id}", h.Files.Delete)
	mux.HandleFunc("GET /api/files/tree", h.Files.GetTree)
	mux.HandleFunc("GET /api/files/usage", h.Files.GetUsage)

	// Trash
	mux.HandleFunc("GET /api/files/trash", h.Trash.GetTrash)
	mux.HandleFunc("DELETE /api/files/trash", h.Trash.EmptyTrash) // more specific than /api/files/{id}
	mux.HandleFunc("POST /api/files/{id}/restore", h.Trash.Restore)

	// Sharing
	mux.HandleFunc("POST /api/files/{id}/share", h.Shares.Share)
	mux.HandleFunc("DELETE /api/shares/{id}", h.Shares.Unshare)
	mux.HandleFunc("GET /api/files/shared", h.Shares.GetAllShared)
	mux.HandleFunc("GET /api/files/shared/by-me", h.Shares.GetSharedByMe)
	mux.HandleFunc("GET /api/files/shared/with-me", h.Shares.GetSharedWithMe)

	// Blobs
	mux.HandleFunc("GET /api/files/{id}/download", h.Uploads.Download)
	mux.HandleFunc("POST /api/uploads/file", h.Uploads.UploadFile)
	mux.HandleFunc("POST /api/uploads/initiate", h.Uploads.InitiateMultipart)
	mux.HandleFunc("POST /api/uploads/{uploadId}/parts", h.Uploads.UploadPart)
	mux.HandleFunc("GET /api/uploads/{uploadId}/parts", h.Uploads.ListParts)
	mux.HandleFunc("POST /api/uploads/{uploadId}/complete", h.Uploads.CompleteMultipart)
	mux.HandleFunc("POST /api/uploads/{uploadId}/abort", h.Uploads.AbortMultipart)
}

package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"fileflow/internal/config"
	uploadSvc "fileflow/internal/domain/services/upload"
	"fileflow/internal/domain/storage"
	"fileflow/internal/httputil"
)

// multipartFormMemory is how much of a form upload is buffered in memory
// before spilling to a temp file.
const multipartFormMemory = 32 << 20

// UploadHandler handles blob uploads and signed downloads
type UploadHandler struct {
	uploadService uploadSvc.UploadService
	logger        *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService uploadSvc.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		logger:        logger,
	}
}

// UploadFile stores a single-shot multipart/form-data upload (field "file")
// POST /api/uploads/file
func (h *UploadHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxSingleUploadBytes+multipartFormMemory)
	if err := r.ParseMultipartForm(multipartFormMemory); err != nil {
		h.bodyError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "form field 'file' is required")
		return
	}
	defer file.Close()

	desc, err := h.uploadService.UploadFile(r.Context(), &uploadSvc.FileUpload{
		OwnerID:     httputil.GetUserID(r),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, desc)
}

// InitiateMultipart starts a chunked upload session
// POST /api/uploads/initiate
func (h *UploadHandler) InitiateMultipart(w http.ResponseWriter, r *http.Request) {
	var req uploadSvc.MultipartInit
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	req.OwnerID = httputil.GetUserID(r)

	session, err := h.uploadService.InitiateMultipartUpload(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, session)
}

// UploadPart stores one chunk sent as the raw request body
// POST /api/uploads/{uploadId}/parts?key=...&partNumber=N
func (h *UploadHandler) UploadPart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	partNumber, err := strconv.ParseInt(q.Get("partNumber"), 10, 32)
	if err != nil {
		badRequest(w, "partNumber must be an integer")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.MaxPartBytes))
	if err != nil {
		h.bodyError(w, err)
		return
	}

	part, err := h.uploadService.UploadPart(r.Context(), httputil.GetUserID(r), r.PathValue("uploadId"), q.Get("key"), int32(partNumber), body)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, part)
}

// ListParts lists the chunks stored so far
// GET /api/uploads/{uploadId}/parts?key=...
func (h *UploadHandler) ListParts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.uploadService.ListParts(r.Context(), httputil.GetUserID(r), r.PathValue("uploadId"), r.URL.Query().Get("key"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, parts)
}

type completeRequest struct {
	Key   string                  `json:"key"`
	Parts []storage.CompletedPart `json:"parts"`
}

// CompleteMultipart assembles the parts into the final object
// POST /api/uploads/{uploadId}/complete
func (h *UploadHandler) CompleteMultipart(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	session, err := h.uploadService.CompleteMultipartUpload(r.Context(), httputil.GetUserID(r), r.PathValue("uploadId"), req.Key, req.Parts)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, session)
}

type abortRequest struct {
	Key string `json:"key"`
}

// AbortMultipart cancels an upload and discards its parts
// POST /api/uploads/{uploadId}/abort
func (h *UploadHandler) AbortMultipart(w http.ResponseWriter, r *http.Request) {
	var req abortRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.uploadService.AbortMultipartUpload(r.Context(), httputil.GetUserID(r), r.PathValue("uploadId"), req.Key); err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Download returns a short-lived signed URL for a file the caller may read
// GET /api/files/{id}/download
func (h *UploadHandler) Download(w http.ResponseWriter, r *http.Request) {
	url, err := h.uploadService.DownloadURL(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_in": int(config.SignedURLTTL.Seconds()),
	})
}

func (h *UploadHandler) bodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	badRequest(w, "invalid upload body")
}

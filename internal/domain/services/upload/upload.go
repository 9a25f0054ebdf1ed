package upload

import (
	"context"
	"io"

	models "fileflow/internal/domain/models/upload"
	"fileflow/internal/domain/storage"
)

// UploadService fronts the blob store for single-shot and multipart uploads.
type UploadService interface {
	UploadFile(ctx context.Context, req *FileUpload) (*models.StorageDescriptor, error)

	InitiateMultipartUpload(ctx context.Context, req *MultipartInit) (*models.Session, error)
	UploadPart(ctx context.Context, ownerID, uploadID, key string, partNumber int32, body []byte) (*models.Part, error)
	CompleteMultipartUpload(ctx context.Context, ownerID, uploadID, key string, parts []storage.CompletedPart) (*models.Session, error)
	AbortMultipartUpload(ctx context.Context, ownerID, uploadID, key string) error
	ListParts(ctx context.Context, ownerID, uploadID, key string) ([]models.Part, error)

	// DownloadURL returns a signed URL for a file the caller may read.
	DownloadURL(ctx context.Context, userID, nodeID string) (string, error)
}

// FileUpload is a single-shot upload.
type FileUpload struct {
	OwnerID     string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MultipartInit starts a chunked upload. Size is the declared total and may
// be zero when unknown.
type MultipartInit struct {
	OwnerID  string `json:"-"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size,omitempty"`
}

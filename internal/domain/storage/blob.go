// Package storage declares the object storage collaborator used by the
// filesystem and upload services.
package storage

import (
	"context"
	"io"
	"time"
)

// CompletedPart identifies one uploaded part when finishing a multipart upload.
type CompletedPart struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
}

// UploadedPart is a part as reported by the blob store.
type UploadedPart struct {
	PartNumber   int32
	ETag         string
	Size         int64
	LastModified *time.Time
}

// ObjectInfo is the result of a HEAD request.
type ObjectInfo struct {
	ContentType  string
	Size         int64
	LastModified time.Time
	Metadata     map[string]string
}

// BlobStore is an S3-compatible object store.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) (string, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error

	InitiateMultipart(ctx context.Context, key, contentType string, metadata map[string]string) (string, error)
	UploadPart(ctx context.Context, uploadID, key string, partNumber int32, body []byte) (string, error)
	CompleteMultipart(ctx context.Context, uploadID, key string, parts []CompletedPart) (string, error)
	AbortMultipart(ctx context.Context, uploadID, key string) error
	ListParts(ctx context.Context, uploadID, key string) ([]UploadedPart, error)
}

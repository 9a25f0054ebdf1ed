package upload

import "time"

// Status is the lifecycle state of a multipart upload session.
type Status string

const (
	StatusInitiated      Status = "initiated"
	StatusPartsUploading Status = "parts_uploading"
	StatusCompleted      Status = "completed"
	StatusAborted        Status = "aborted"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

// Session tracks one multipart upload fronted by the blob store.
type Session struct {
	UploadID    string     `json:"upload_id" db:"upload_id"`
	Key         string     `json:"key" db:"key"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	FileName    string     `json:"file_name" db:"file_name"`
	MimeType    string     `json:"mime_type" db:"mime_type"`
	Status      Status     `json:"status" db:"status"`
	Location    *string    `json:"location,omitempty" db:"location"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// Part is a single uploaded chunk.
type Part struct {
	PartNumber   int32      `json:"part_number"`
	ETag         string     `json:"etag"`
	Checksum     string     `json:"checksum,omitempty"`
	Size         int64      `json:"size,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// StorageDescriptor is what a single-shot upload hands back to the caller
// for persisting a file node.
type StorageDescriptor struct {
	FileType     string `json:"file_type"`
	FileSize     int64  `json:"file_size"`
	StoragePath  string `json:"storage_path"`
	OriginalName string `json:"original_name"`
}

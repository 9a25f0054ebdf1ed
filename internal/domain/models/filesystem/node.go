package filesystem

import (
	"time"

	"fileflow/internal/domain"
)

// AccessLevel is the stored visibility of a node.
type AccessLevel string

const (
	AccessPublic    AccessLevel = "public"
	AccessPrivate   AccessLevel = "private"
	AccessProtected AccessLevel = "protected"
)

// Valid reports whether a is one of the known levels.
func (a AccessLevel) Valid() bool {
	switch a {
	case AccessPublic, AccessPrivate, AccessProtected:
		return true
	}
	return false
}

// FileInfo describes the blob behind a file node. On folders in tree views
// only FileSize is set and holds the computed aggregate.
type FileInfo struct {
	FileType      string   `json:"file_type,omitempty"`
	FileSize      int64    `json:"file_size"`
	StoragePath   string   `json:"storage_path,omitempty"`
	ThumbnailPath *string  `json:"thumbnail_path,omitempty"`
	Duration      *float64 `json:"duration,omitempty"`
}

// Node is a file or a folder. Files and folders share one table.
type Node struct {
	ID             string         `json:"id" db:"id"`
	OwnerID        string         `json:"owner_id" db:"owner_id"`
	ParentID       *string        `json:"parent_id" db:"parent_id"` // NULL = root level
	Name           string         `json:"name" db:"name"`
	IsFolder       bool           `json:"is_folder" db:"is_folder"`
	AccessLevel    AccessLevel    `json:"access_level" db:"access_level"`
	FileInfo       *FileInfo      `json:"file_info" db:"file_info"`
	Description    *string        `json:"description,omitempty" db:"description"`
	Tags           []string       `json:"tags" db:"tags"`
	Metadata       map[string]any `json:"metadata,omitempty" db:"metadata"`
	LastAccessedAt *time.Time     `json:"last_accessed_at,omitempty" db:"last_accessed_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsDeleted reports whether the node is in the trash.
func (n *Node) IsDeleted() bool {
	return n.DeletedAt != nil
}

// ParentKey returns the parent id, or "" for root-level nodes.
func (n *Node) ParentKey() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// CheckShape enforces the folder/file invariant on file_info.
func (n *Node) CheckShape() error {
	if n.IsFolder {
		if n.FileInfo != nil {
			return domain.ErrFolderHasFileInfo
		}
		return nil
	}
	if n.FileInfo == nil || n.FileInfo.FileType == "" || n.FileInfo.StoragePath == "" {
		return domain.ErrFileMissingInfo
	}
	return nil
}

// StoragePaths returns the blob keys owned by a file node.
func (n *Node) StoragePaths() []string {
	if n.IsFolder || n.FileInfo == nil {
		return nil
	}
	var keys []string
	if n.FileInfo.StoragePath != "" {
		keys = append(keys, n.FileInfo.StoragePath)
	}
	if n.FileInfo.ThumbnailPath != nil && *n.FileInfo.ThumbnailPath != "" {
		keys = append(keys, *n.FileInfo.ThumbnailPath)
	}
	return keys
}

// FileSize returns the stored size of a file node, 0 for folders.
func (n *Node) FileSize() int64 {
	if n.IsFolder || n.FileInfo == nil {
		return 0
	}
	return n.FileInfo.FileSize
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (n *Node) Clone() *Node {
	c := *n
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	if n.FileInfo != nil {
		fi := *n.FileInfo
		c.FileInfo = &fi
	}
	if n.Tags != nil {
		c.Tags = append([]string(nil), n.Tags...)
	}
	if n.Metadata != nil {
		c.Metadata = make(map[string]any, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	if n.DeletedAt != nil {
		d := *n.DeletedAt
		c.DeletedAt = &d
	}
	if n.LastAccessedAt != nil {
		l := *n.LastAccessedAt
		c.LastAccessedAt = &l
	}
	if n.Description != nil {
		d := *n.Description
		c.Description = &d
	}
	return &c
}

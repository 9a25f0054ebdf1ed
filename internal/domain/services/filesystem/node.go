package filesystem

import (
	"context"

	models "fileflow/internal/domain/models/filesystem"
)

// NodeService handles create/rename/move/delete and access-level changes.
type NodeService interface {
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.Node, error)
	RenameFolder(ctx context.Context, id, ownerID, newName string) (*models.Node, error)
	CreateFile(ctx context.Context, req *CreateFileRequest) (*models.Node, error)

	// Move reassigns the parent. A nil target moves to root.
	Move(ctx context.Context, nodeID string, targetFolderID *string, ownerID string) (*models.MoveResult, error)

	// Delete soft-deletes the node and all live descendants as one cascade group.
	Delete(ctx context.Context, nodeID, ownerID string) (*models.DeleteResult, error)

	// UpdateAccessLevel sets level on the node and every descendant. Returns
	// the number of nodes updated.
	UpdateAccessLevel(ctx context.Context, nodeID, ownerID string, level models.AccessLevel) (int, error)

	GetNode(ctx context.Context, id, ownerID string) (*models.Node, error)
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	OwnerID     string              `json:"-"`
	Name        string              `json:"name"`
	ParentID    *string             `json:"parent_id,omitempty"` // null for root
	AccessLevel *models.AccessLevel `json:"access_level,omitempty"`
	Description *string             `json:"description,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
}

// CreateFileRequest represents a file node creation after its blob was stored
type CreateFileRequest struct {
	OwnerID     string             `json:"-"`
	Name        string             `json:"name"`
	ParentID    *string            `json:"parent_id,omitempty"`
	AccessLevel models.AccessLevel `json:"access_level"`
	FileInfo    *models.FileInfo   `json:"file_info"`
	Description *string            `json:"description,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

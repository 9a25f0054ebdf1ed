package filesystem

import (
	"context"
	"time"

	models "fileflow/internal/domain/models/filesystem"
)

// TreeService materializes read views over the node table.
type TreeService interface {
	// GetFileSystemTree returns the owner's live root nodes with nested
	// children. A non-nil filter keeps only nodes of that level, at every depth.
	GetFileSystemTree(ctx context.Context, ownerID string, filter *models.AccessLevel) ([]*models.TreeNode, error)

	// GetTrash returns the owner's soft-deleted nodes as a flat list.
	GetTrash(ctx context.Context, ownerID string) ([]*models.TreeNode, error)

	// StorageUsage sums live and trashed file sizes of the owner.
	StorageUsage(ctx context.Context, ownerID string) (*models.StorageUsage, error)
}

// TrashService handles restore and permanent deletion.
type TrashService interface {
	Restore(ctx context.Context, nodeID, ownerID string) (*models.RestoreResult, error)

	// EmptyTrash hard-deletes every trashed node of the owner and their blobs.
	EmptyTrash(ctx context.Context, ownerID string) ([]string, error)

	// PurgeExpired hard-deletes nodes trashed before cutoff, with their
	// descendant closure and blobs. Returns purged ids.
	PurgeExpired(ctx context.Context, cutoff time.Time) ([]string, error)
}

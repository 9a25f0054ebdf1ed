package filesystem

import (
	"context"
	"time"

	models "fileflow/internal/domain/models/filesystem"
)

// ShareService grants access to subtrees and reconstructs shared views.
type ShareService interface {
	Share(ctx context.Context, req *ShareRequest) (*models.Share, error)
	Unshare(ctx context.Context, shareID, userID string) error

	GetSharedWithMe(ctx context.Context, userID string) ([]*models.TreeNode, error)
	GetSharedByMe(ctx context.Context, userID string) ([]*models.TreeNode, error)

	// GetAllShared is the union of both directions, each root tagged with
	// its direction.
	GetAllShared(ctx context.Context, userID string) ([]*models.TreeNode, error)

	// CanAccess reports whether userID owns nodeID or receives it (or an
	// ancestor) through an active share.
	CanAccess(ctx context.Context, userID, nodeID string) (*models.Node, error)

	// ExpireShares hard-deletes shares whose expires_at has passed.
	ExpireShares(ctx context.Context, now time.Time) (int, error)
}

// ShareRequest represents a share grant request
type ShareRequest struct {
	FileID           string                 `json:"-"`
	SharedByUserID   string                 `json:"-"`
	SharedWithUserID string                 `json:"shared_with_user_id"`
	PermissionLevel  models.PermissionLevel `json:"permission_level"`
	Message          *string                `json:"message,omitempty"`
	ExpiresAt        *time.Time             `json:"expires_at,omitempty"`
}

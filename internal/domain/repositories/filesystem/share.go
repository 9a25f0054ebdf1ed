package filesystem

import (
	"context"
	"time"

	models "fileflow/internal/domain/models/filesystem"
)

// ShareRepository defines data access operations for share grants.
// List methods only return shares active at now.
type ShareRepository interface {
	// Upsert inserts or updates on (file_id, shared_by_user_id, shared_with_user_id).
	// ID and CreatedAt of an existing grant are kept.
	Upsert(ctx context.Context, share *models.Share) error

	// GetByID retrieves a share regardless of expiry
	GetByID(ctx context.Context, id string) (*models.Share, error)

	// Delete removes a share created by sharedBy
	Delete(ctx context.Context, id, sharedBy string) error

	// ListSharedWith returns active shares received by userID, newest first.
	ListSharedWith(ctx context.Context, userID string, now time.Time) ([]models.Share, error)

	// ListSharedBy returns active shares created by userID, newest first.
	ListSharedBy(ctx context.Context, userID string, now time.Time) ([]models.Share, error)

	// ListActiveFor returns active shares on any of fileIDs received by userID.
	ListActiveFor(ctx context.Context, fileIDs []string, userID string, now time.Time) ([]models.Share, error)

	// DeleteExpired removes shares with expires_at < now.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

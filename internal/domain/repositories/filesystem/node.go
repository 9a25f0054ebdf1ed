package filesystem

import (
	"context"
	"time"

	models "fileflow/internal/domain/models/filesystem"
)

// NodeRepository defines data access operations for files and folders.
//
// Lookups return only live (non-deleted) nodes unless the method name says
// otherwise. Uniqueness violations surface as *domain.ConflictError and
// missing rows as domain.ErrNotFound.
type NodeRepository interface {
	// Create inserts a node. ID, CreatedAt and UpdatedAt are filled in.
	Create(ctx context.Context, node *models.Node) error

	// GetByID retrieves a live node owned by ownerID
	GetByID(ctx context.Context, id, ownerID string) (*models.Node, error)

	// GetByIDOnly retrieves a live node without owner scoping.
	// Use when authorization is handled separately (e.g. by a share check).
	GetByIDOnly(ctx context.Context, id string) (*models.Node, error)

	// GetTrashed retrieves a soft-deleted node owned by ownerID
	GetTrashed(ctx context.Context, id, ownerID string) (*models.Node, error)

	// Update persists name, parent, access level, description, tags, metadata
	// and updated_at.
	Update(ctx context.Context, node *models.Node) error

	// ListByOwner returns every live node of the owner (flat).
	ListByOwner(ctx context.Context, ownerID string) ([]models.Node, error)

	// ListTrashedByOwner returns every soft-deleted node of the owner (flat).
	ListTrashedByOwner(ctx context.Context, ownerID string) ([]models.Node, error)

	// ListChildren returns the direct children of any of parentIDs.
	ListChildren(ctx context.Context, parentIDs []string, includeDeleted bool) ([]models.Node, error)

	// ListByIDs returns the nodes with the given ids, deleted or not.
	ListByIDs(ctx context.Context, ids []string) ([]models.Node, error)

	// ListDeletedBefore returns soft-deleted nodes with deleted_at < cutoff.
	ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]models.Node, error)

	// SoftDelete stamps deleted_at on live nodes among ids.
	SoftDelete(ctx context.Context, ids []string, at time.Time) (int, error)

	// Restore clears deleted_at on ids.
	Restore(ctx context.Context, ids []string, at time.Time) (int, error)

	// SetAccessLevel updates access_level on ids in one statement.
	SetAccessLevel(ctx context.Context, ids []string, level models.AccessLevel, at time.Time) (int, error)

	// HardDelete removes ids permanently. Shares on them go too.
	HardDelete(ctx context.Context, ids []string) (int, error)

	// TouchLastAccessed records a "recently viewed" ping.
	TouchLastAccessed(ctx context.Context, id string, at time.Time) error
}

package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/filesystem"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
	"fileflow/internal/repository/postgres"
)

const nodeColumns = `id, owner_id, parent_id, name, is_folder, access_level, file_info,
	description, tags, metadata, last_accessed_at, created_at, updated_at, deleted_at`

// PostgresNodeRepository implements the NodeRepository interface
type PostgresNodeRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

var _ fsRepo.NodeRepository = (*PostgresNodeRepository)(nil)

// NewNodeRepository creates a new node repository
func NewNodeRepository(config *postgres.RepositoryConfig) *PostgresNodeRepository {
	return &PostgresNodeRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanNode(row pgx.Row) (*models.Node, error) {
	var n models.Node
	err := row.Scan(
		&n.ID,
		&n.OwnerID,
		&n.ParentID,
		&n.Name,
		&n.IsFolder,
		&n.AccessLevel,
		&n.FileInfo,
		&n.Description,
		&n.Tags,
		&n.Metadata,
		&n.LastAccessedAt,
		&n.CreatedAt,
		&n.UpdatedAt,
		&n.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return &n, nil
}

func (r *PostgresNodeRepository) queryNodes(ctx context.Context, op, query string, args ...any) ([]models.Node, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func (r *PostgresNodeRepository) getOne(ctx context.Context, reason, id, query string, args ...any) (*models.Node, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	n, err := scanNode(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, domain.NewNotFound(reason, "node %s not found", id)
		}
		return nil, fmt.Errorf("get node: %w", err)
	}
	return n, nil
}

// conflict builds the DuplicateName error for n, looking up the live node
// that holds the slot.
func (r *PostgresNodeRepository) conflict(ctx context.Context, n *models.Node) error {
	kind := "file"
	if n.IsFolder {
		kind = "folder"
	}
	msg := fmt.Sprintf("a %s named '%s' already exists in this location", kind, n.Name)

	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		  AND name = $3 AND is_folder = $4 AND deleted_at IS NULL
	`, r.tables.Files)

	var existingID string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, n.OwnerID, n.ParentID, n.Name, n.IsFolder).Scan(&existingID); err != nil {
		// Inside an aborted transaction the lookup fails too; keep the conflict.
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	}
	return &domain.ConflictError{Message: msg, ResourceType: kind, ResourceID: existingID}
}

// Create inserts a node
func (r *PostgresNodeRepository) Create(ctx context.Context, node *models.Node) error {
	if node.Tags == nil {
		node.Tags = []string{}
	}
	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	if node.UpdatedAt.IsZero() {
		node.UpdatedAt = node.CreatedAt
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (owner_id, parent_id, name, is_folder, access_level, file_info,
			description, tags, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		node.OwnerID,
		node.ParentID,
		node.Name,
		node.IsFolder,
		node.AccessLevel,
		node.FileInfo,
		node.Description,
		node.Tags,
		node.Metadata,
		node.CreatedAt,
		node.UpdatedAt,
	).Scan(&node.ID, &node.CreatedAt, &node.UpdatedAt)

	if err != nil {
		switch {
		case postgres.IsPgDuplicateError(err):
			return r.conflict(ctx, node)
		case postgres.IsPgForeignKeyError(err), postgres.IsPgInvalidTextError(err):
			return domain.NewNotFound("parent_not_found", "parent folder not found")
		}
		return fmt.Errorf("create node: %w", err)
	}
	return nil
}

// GetByID retrieves a live node owned by ownerID
func (r *PostgresNodeRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`, nodeColumns, r.tables.Files)
	return r.getOne(ctx, "node_not_found", id, query, id, ownerID)
}

// GetByIDOnly retrieves a live node without owner scoping
func (r *PostgresNodeRepository) GetByIDOnly(ctx context.Context, id string) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, nodeColumns, r.tables.Files)
	return r.getOne(ctx, "node_not_found", id, query, id)
}

// GetTrashed retrieves a soft-deleted node owned by ownerID
func (r *PostgresNodeRepository) GetTrashed(ctx context.Context, id, ownerID string) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NOT NULL
	`, nodeColumns, r.tables.Files)
	return r.getOne(ctx, "trashed_node_not_found", id, query, id, ownerID)
}

// Update persists the mutable columns of node
func (r *PostgresNodeRepository) Update(ctx context.Context, node *models.Node) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, parent_id = $2, access_level = $3, description = $4,
			tags = $5, metadata = $6, updated_at = $7
		WHERE id = $8 AND owner_id = $9
	`, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		node.Name,
		node.ParentID,
		node.AccessLevel,
		node.Description,
		node.Tags,
		node.Metadata,
		node.UpdatedAt,
		node.ID,
		node.OwnerID,
	)
	if err != nil {
		switch {
		case postgres.IsPgDuplicateError(err):
			return r.conflict(ctx, node)
		case postgres.IsPgForeignKeyError(err), postgres.IsPgInvalidTextError(err):
			return domain.NewNotFound("parent_not_found", "parent folder not found")
		}
		return fmt.Errorf("update node: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFound("node_not_found", "node %s not found", node.ID)
	}
	return nil
}

// ListByOwner returns every live node of the owner
func (r *PostgresNodeRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id
	`, nodeColumns, r.tables.Files)
	return r.queryNodes(ctx, "list nodes", query, ownerID)
}

// ListTrashedByOwner returns every soft-deleted node of the owner
func (r *PostgresNodeRepository) ListTrashedByOwner(ctx context.Context, ownerID string) ([]models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = $1 AND deleted_at IS NOT NULL
		ORDER BY created_at, id
	`, nodeColumns, r.tables.Files)
	return r.queryNodes(ctx, "list trash", query, ownerID)
}

// ListChildren returns the direct children of any of parentIDs
func (r *PostgresNodeRepository) ListChildren(ctx context.Context, parentIDs []string, includeDeleted bool) ([]models.Node, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	filter := "AND deleted_at IS NULL"
	if includeDeleted {
		filter = ""
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE parent_id = ANY($1::uuid[]) %s
		ORDER BY created_at, id
	`, nodeColumns, r.tables.Files, filter)
	return r.queryNodes(ctx, "list children", query, parentIDs)
}

// ListDescendants returns every node below rootIDs in one recursive query.
// UNION drops rows already seen, which ends the recursion on cyclic links.
func (r *PostgresNodeRepository) ListDescendants(ctx context.Context, rootIDs []string, includeDeleted bool) ([]models.Node, error) {
	if len(rootIDs) == 0 {
		return nil, nil
	}
	filter := "AND deleted_at IS NULL"
	recFilter := "AND f.deleted_at IS NULL"
	if includeDeleted {
		filter, recFilter = "", ""
	}
	query := fmt.Sprintf(`
		WITH RECURSIVE closure AS (
			SELECT id FROM %[1]s
			WHERE parent_id = ANY($1::uuid[]) %[3]s
			UNION
			SELECT f.id FROM %[1]s f
			JOIN closure c ON f.parent_id = c.id
			WHERE true %[4]s
		)
		SELECT %[2]s FROM %[1]s
		WHERE id IN (SELECT id FROM closure) AND NOT (id = ANY($1::uuid[]))
		ORDER BY created_at, id
	`, r.tables.Files, nodeColumns, filter, recFilter)
	return r.queryNodes(ctx, "list descendants", query, rootIDs)
}

// ListByIDs returns the nodes with the given ids, deleted or not
func (r *PostgresNodeRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = ANY($1::uuid[])
		ORDER BY created_at, id
	`, nodeColumns, r.tables.Files)
	return r.queryNodes(ctx, "list nodes by id", query, ids)
}

// ListDeletedBefore returns soft-deleted nodes with deleted_at < cutoff
func (r *PostgresNodeRepository) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE deleted_at IS NOT NULL AND deleted_at < $1
		ORDER BY deleted_at, id
	`, nodeColumns, r.tables.Files)
	return r.queryNodes(ctx, "list expired trash", query, cutoff)
}

// SoftDelete stamps deleted_at on live nodes among ids
func (r *PostgresNodeRepository) SoftDelete(ctx context.Context, ids []string, at time.Time) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET deleted_at = $2, updated_at = $2
		WHERE id = ANY($1::uuid[]) AND deleted_at IS NULL
	`, r.tables.Files)
	return r.execCount(ctx, "soft delete", query, ids, at)
}

// Restore clears deleted_at on ids. A live node already holding one of the
// names fails the whole batch.
func (r *PostgresNodeRepository) Restore(ctx context.Context, ids []string, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	check := fmt.Sprintf(`
		SELECT t.id, t.owner_id, t.parent_id, t.name, t.is_folder, l.id
		FROM %[1]s t
		JOIN %[1]s l ON l.owner_id = t.owner_id
			AND l.parent_id IS NOT DISTINCT FROM t.parent_id
			AND l.name = t.name AND l.is_folder = t.is_folder
			AND l.deleted_at IS NULL
		WHERE t.id = ANY($1::uuid[]) AND t.deleted_at IS NOT NULL
		LIMIT 1
	`, r.tables.Files)

	var n models.Node
	var existingID string
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, check, ids).Scan(&n.ID, &n.OwnerID, &n.ParentID, &n.Name, &n.IsFolder, &existingID)
	switch {
	case err == nil:
		kind := "file"
		if n.IsFolder {
			kind = "folder"
		}
		return 0, &domain.ConflictError{
			Message:      fmt.Sprintf("a %s named '%s' already exists in this location", kind, n.Name),
			ResourceType: kind,
			ResourceID:   existingID,
		}
	case !postgres.IsPgNoRowsError(err):
		return 0, fmt.Errorf("check restore conflicts: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET deleted_at = NULL, updated_at = $2
		WHERE id = ANY($1::uuid[]) AND deleted_at IS NOT NULL
	`, r.tables.Files)
	count, err := r.execCount(ctx, "restore", query, ids, at)
	if err != nil && postgres.IsPgDuplicateError(err) {
		// Two restored siblings with the same name.
		return 0, fmt.Errorf("restore: %w", domain.ErrConflict)
	}
	return count, err
}

// SetAccessLevel updates access_level on ids in one statement
func (r *PostgresNodeRepository) SetAccessLevel(ctx context.Context, ids []string, level models.AccessLevel, at time.Time) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET access_level = $2, updated_at = $3
		WHERE id = ANY($1::uuid[])
	`, r.tables.Files)
	return r.execCount(ctx, "set access level", query, ids, level, at)
}

// HardDelete removes ids permanently. Shares go with them (ON DELETE CASCADE).
func (r *PostgresNodeRepository) HardDelete(ctx context.Context, ids []string) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1::uuid[])`, r.tables.Files)
	return r.execCount(ctx, "hard delete", query, ids)
}

// TouchLastAccessed records a "recently viewed" ping
func (r *PostgresNodeRepository) TouchLastAccessed(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET last_accessed_at = $2 WHERE id = $1`, r.tables.Files)
	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("touch node: %w", err)
	}
	return nil
}

func (r *PostgresNodeRepository) execCount(ctx context.Context, op, query string, args ...any) (int, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return 0, err
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(result.RowsAffected()), nil
}

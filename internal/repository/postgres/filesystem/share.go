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

const shareColumns = `id, file_id, shared_by_user_id, shared_with_user_id, permission_level,
	message, expires_at, created_at, updated_at, last_accessed_at`

// PostgresShareRepository implements the ShareRepository interface
type PostgresShareRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

var _ fsRepo.ShareRepository = (*PostgresShareRepository)(nil)

// NewShareRepository creates a new share repository
func NewShareRepository(config *postgres.RepositoryConfig) *PostgresShareRepository {
	return &PostgresShareRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanShare(row pgx.Row) (*models.Share, error) {
	var s models.Share
	err := row.Scan(
		&s.ID,
		&s.FileID,
		&s.SharedByUserID,
		&s.SharedWithUserID,
		&s.PermissionLevel,
		&s.Message,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.LastAccessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert inserts a grant or refreshes the existing one for the same triple
func (r *PostgresShareRepository) Upsert(ctx context.Context, share *models.Share) error {
	now := time.Now().UTC()
	if share.UpdatedAt.IsZero() {
		share.UpdatedAt = now
	}
	createdAt := share.CreatedAt
	if createdAt.IsZero() {
		createdAt = share.UpdatedAt
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (file_id, shared_by_user_id, shared_with_user_id, permission_level,
			message, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (file_id, shared_by_user_id, shared_with_user_id) DO UPDATE
		SET permission_level = EXCLUDED.permission_level,
			message = EXCLUDED.message,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`, r.tables.Shares)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		share.FileID,
		share.SharedByUserID,
		share.SharedWithUserID,
		share.PermissionLevel,
		share.Message,
		share.ExpiresAt,
		createdAt,
		share.UpdatedAt,
	).Scan(&share.ID, &share.CreatedAt)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) || postgres.IsPgInvalidTextError(err) {
			return domain.NewNotFound("node_not_found", "node %s not found", share.FileID)
		}
		return fmt.Errorf("upsert share: %w", err)
	}
	return nil
}

// GetByID retrieves a share regardless of expiry
func (r *PostgresShareRepository) GetByID(ctx context.Context, id string) (*models.Share, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, shareColumns, r.tables.Shares)

	executor := postgres.GetExecutor(ctx, r.pool)
	s, err := scanShare(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, domain.NewNotFound("share_not_found", "share %s not found", id)
		}
		return nil, fmt.Errorf("get share: %w", err)
	}
	return s, nil
}

// Delete removes a share created by sharedBy
func (r *PostgresShareRepository) Delete(ctx context.Context, id, sharedBy string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND shared_by_user_id = $2`, r.tables.Shares)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, sharedBy)
	if err != nil {
		if postgres.IsPgInvalidTextError(err) {
			return domain.NewNotFound("share_not_found", "share %s not found", id)
		}
		return fmt.Errorf("delete share: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFound("share_not_found", "share %s not found", id)
	}
	return nil
}

// ListSharedWith returns active shares received by userID, newest first
func (r *PostgresShareRepository) ListSharedWith(ctx context.Context, userID string, now time.Time) ([]models.Share, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE shared_with_user_id = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC, id
	`, shareColumns, r.tables.Shares)
	return r.list(ctx, query, userID, now)
}

// ListSharedBy returns active shares created by userID, newest first
func (r *PostgresShareRepository) ListSharedBy(ctx context.Context, userID string, now time.Time) ([]models.Share, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE shared_by_user_id = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC, id
	`, shareColumns, r.tables.Shares)
	return r.list(ctx, query, userID, now)
}

// ListActiveFor returns active shares on any of fileIDs received by userID
func (r *PostgresShareRepository) ListActiveFor(ctx context.Context, fileIDs []string, userID string, now time.Time) ([]models.Share, error) {
	if len(fileIDs) == 0 {
		return []models.Share{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE file_id = ANY($1::uuid[]) AND shared_with_user_id = $2
		  AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY created_at DESC, id
	`, shareColumns, r.tables.Shares)
	return r.list(ctx, query, fileIDs, userID, now)
}

// DeleteExpired removes shares with expires_at < now
func (r *PostgresShareRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at < $1`, r.tables.Shares)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired shares: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *PostgresShareRepository) list(ctx context.Context, query string, args ...any) ([]models.Share, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	shares := make([]models.Share, 0)
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shares: %w", err)
	}
	return shares, nil
}

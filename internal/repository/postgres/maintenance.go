package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fileflow/internal/domain/models"
	"fileflow/internal/domain/repositories"
)

// PostgresAuthSessionRepository implements the AuthSessionRepository interface
type PostgresAuthSessionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAuthSessionRepository creates a new auth session repository
func NewAuthSessionRepository(config *RepositoryConfig) repositories.AuthSessionRepository {
	return &PostgresAuthSessionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func (r *PostgresAuthSessionRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	return deleteWhere(ctx, r.pool, "delete expired sessions",
		fmt.Sprintf(`DELETE FROM %s WHERE expires_at < $1`, r.tables.UserSessions), now)
}

func (r *PostgresAuthSessionRepository) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int, error) {
	return deleteWhere(ctx, r.pool, "delete expired refresh tokens",
		fmt.Sprintf(`DELETE FROM %s WHERE expires_at < $1`, r.tables.RefreshTokens), now)
}

// PostgresNotificationRepository implements the NotificationRepository interface
type PostgresNotificationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(config *RepositoryConfig) repositories.NotificationRepository {
	return &PostgresNotificationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a notification
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, type, title, payload, is_read, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, r.tables.Notifications)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		n.UserID,
		n.Type,
		n.Title,
		n.Payload,
		n.IsRead,
		n.ReadAt,
		n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// DeleteReadBefore removes read notifications created before cutoff
func (r *PostgresNotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return deleteWhere(ctx, r.pool, "delete read notifications",
		fmt.Sprintf(`DELETE FROM %s WHERE is_read AND created_at < $1`, r.tables.Notifications), cutoff)
}

func deleteWhere(ctx context.Context, pool *pgxpool.Pool, op, query string, args ...any) (int, error) {
	result, err := GetExecutor(ctx, pool).Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(result.RowsAffected()), nil
}

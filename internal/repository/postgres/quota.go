package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"fileflow/internal/domain/repositories"
)

// QuotaRepository reads storage quotas from the users table
type QuotaRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

var _ repositories.QuotaProvider = (*QuotaRepository)(nil)

// NewQuotaRepository creates a new quota provider
func NewQuotaRepository(config *RepositoryConfig) *QuotaRepository {
	return &QuotaRepository{pool: config.Pool, tables: config.Tables}
}

// QuotaFor returns the user's quota. Unknown users and NULL quotas are unlimited.
func (r *QuotaRepository) QuotaFor(ctx context.Context, userID string) (*int64, error) {
	query := fmt.Sprintf(`SELECT storage_quota FROM %s WHERE id = $1`, r.tables.Users)

	var quota *int64
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, userID).Scan(&quota); err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quota: %w", err)
	}
	return quota, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"fileflow/internal/lease"
)

// LeaseLocker implements lease.Locker on the job_leases table. An expired
// row is taken over in the same statement that checks it.
type LeaseLocker struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

var _ lease.Locker = (*LeaseLocker)(nil)

// NewLeaseLocker creates a lease locker backed by Postgres
func NewLeaseLocker(config *RepositoryConfig) *LeaseLocker {
	return &LeaseLocker{pool: config.Pool, tables: config.Tables}
}

func (l *LeaseLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (*lease.Lease, bool, error) {
	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(ttl)

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (name, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
		WHERE %[1]s.expires_at < now()
		RETURNING token
	`, l.tables.JobLeases)

	var got string
	err := GetExecutor(ctx, l.pool).QueryRow(ctx, query, lease.Key(name), token, expiresAt).Scan(&got)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("acquire lease: %w", err)
	}
	return &lease.Lease{Name: name, Token: got, ExpiresAt: expiresAt}, true, nil
}

func (l *LeaseLocker) Release(ctx context.Context, held *lease.Lease) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE name = $1 AND token = $2`, l.tables.JobLeases)
	if _, err := GetExecutor(ctx, l.pool).Exec(ctx, query, lease.Key(held.Name), held.Token); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

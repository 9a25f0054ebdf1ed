package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates missing tables and indexes for the configured prefix.
// Every statement is idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	ddl := strings.ReplaceAll(schemaSQL, "{{prefix}}", tables.Prefix)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// DropSchema drops every table for the configured prefix. Dependents first.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range []string{
		tables.Shares, tables.Files, tables.UploadSessions, tables.UserSessions,
		tables.RefreshTokens, tables.Notifications, tables.JobLeases, tables.Users,
	} {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	blobmem "fileflow/internal/blob/memory"
	blobs3 "fileflow/internal/blob/s3"
	"fileflow/internal/config"
	"fileflow/internal/domain/repositories"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
	uploadRepo "fileflow/internal/domain/repositories/upload"
	"fileflow/internal/domain/storage"
	"fileflow/internal/handler"
	"fileflow/internal/lease"
	"fileflow/internal/repository/memory"
	"fileflow/internal/repository/postgres"
	pgFilesystem "fileflow/internal/repository/postgres/filesystem"
	pgUpload "fileflow/internal/repository/postgres/upload"
)

// repositorySet is the persistence layer picked by configuration: Postgres
// when DATABASE_URL is set, the in-memory store otherwise.
type repositorySet struct {
	nodes         fsRepo.NodeRepository
	shares        fsRepo.ShareRepository
	sessions      uploadRepo.SessionRepository
	authSessions  repositories.AuthSessionRepository
	notifications repositories.NotificationRepository
	quotas        repositories.QuotaProvider
	tx            repositories.TransactionManager

	pool   *pgxpool.Pool // nil for the memory store
	pinger handler.Pinger
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositorySet, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory repositories (data is lost on restart)")
		store := memory.NewStore()
		return &repositorySet{
			nodes:         memory.NewNodeRepository(store),
			shares:        memory.NewShareRepository(store),
			sessions:      memory.NewSessionRepository(store),
			authSessions:  memory.NewAuthSessionRepository(store),
			notifications: memory.NewNotificationRepository(store),
			quotas:        store,
			tx:            memory.NewTransactionManager(store),
		}, nil
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("database connected", "max_conns", pool.Config().MaxConns, "min_conns", pool.Config().MinConns)

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		pool.Close()
		return nil, err
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	return &repositorySet{
		nodes:         pgFilesystem.NewNodeRepository(repoConfig),
		shares:        pgFilesystem.NewShareRepository(repoConfig),
		sessions:      pgUpload.NewSessionRepository(repoConfig),
		authSessions:  postgres.NewAuthSessionRepository(repoConfig),
		notifications: postgres.NewNotificationRepository(repoConfig),
		quotas:        postgres.NewQuotaRepository(repoConfig),
		tx:            postgres.NewTransactionManager(pool, logger),
		pool:          pool,
		pinger:        pool,
	}, nil
}

func (r *repositorySet) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func openBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.BlobStore, error) {
	if cfg.StorageBackend == "memory" {
		logger.Warn("using in-memory blob store")
		return blobmem.New(), nil
	}

	client, err := blobs3.NewClient(ctx, blobs3.ClientConfig{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		MaxRetries:      cfg.S3MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return blobs3.New(ctx, blobs3.Config{
		Client:    client,
		Bucket:    cfg.S3Bucket,
		KeyPrefix: cfg.S3KeyPrefix,
		Logger:    logger,
	})
}

// openLocker returns the lease store that keeps scheduled jobs single-run
// across instances, plus its close function.
func openLocker(cfg *config.Config, repos *repositorySet) (lease.Locker, func(), error) {
	switch cfg.LeaseBackend {
	case "postgres":
		if repos.pool == nil {
			return nil, nil, fmt.Errorf("postgres lease backend requires a database")
		}
		return postgres.NewLeaseLocker(&postgres.RepositoryConfig{
			Pool:   repos.pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
		}), func() {}, nil
	case "badger":
		b, err := lease.OpenBadger(lease.BadgerConfig{Path: cfg.BadgerPath})
		if err != nil {
			return nil, nil, err
		}
		return b, func() { _ = b.Close() }, nil
	default:
		return lease.NewMemoryLocker(), func() {}, nil
	}
}

package filesystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/filesystem"
	"fileflow/internal/domain/repositories"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
	fsSvc "fileflow/internal/domain/services/filesystem"
	"fileflow/internal/domain/storage"
	"fileflow/internal/events"
)

type trashService struct {
	nodeRepo  fsRepo.NodeRepository
	blobs     storage.BlobStore
	txManager repositories.TransactionManager
	sink      events.Sink
	logger    *slog.Logger
	now       func() time.Time
}

// NewTrashService creates a new trash service
func NewTrashService(
	nodeRepo fsRepo.NodeRepository,
	blobs storage.BlobStore,
	txManager repositories.TransactionManager,
	sink events.Sink,
	logger *slog.Logger,
) fsSvc.TrashService {
	if sink == nil {
		sink = events.Nop{}
	}
	return &trashService{
		nodeRepo:  nodeRepo,
		blobs:     blobs,
		txManager: txManager,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

// Restore takes a node and the descendants trashed with it out of the trash.
// Descendants trashed in an earlier cascade stay where they are.
func (s *trashService) Restore(ctx context.Context, nodeID, ownerID string) (*models.RestoreResult, error) {
	result := &models.RestoreResult{}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.nodeRepo.GetTrashed(txCtx, nodeID, ownerID)
		if err != nil {
			return err
		}

		ids := []string{node.ID}
		if node.IsFolder {
			descendants, err := collectDescendants(txCtx, s.nodeRepo, ids, true)
			if err != nil {
				return err
			}
			for i := range descendants {
				d := &descendants[i]
				if d.DeletedAt != nil && d.DeletedAt.Equal(*node.DeletedAt) {
					ids = append(ids, d.ID)
				}
			}
		}

		now := s.now().UTC()
		if node.ParentID != nil {
			_, err := s.nodeRepo.GetByID(txCtx, *node.ParentID, ownerID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				s.logger.Info("parent unavailable, restoring to root",
					"id", node.ID,
					"parent_id", *node.ParentID,
				)
				node.ParentID = nil
				node.UpdatedAt = now
				if err := s.nodeRepo.Update(txCtx, node); err != nil {
					return err
				}
			case err != nil:
				return err
			}
		}

		if _, err := s.nodeRepo.Restore(txCtx, ids, now); err != nil {
			return err
		}
		result.Restored = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node restored",
		"id", nodeID,
		"owner_id", ownerID,
		"restored", len(result.Restored),
	)
	return result, nil
}

// EmptyTrash permanently deletes every trashed node of the owner.
func (s *trashService) EmptyTrash(ctx context.Context, ownerID string) ([]string, error) {
	trashed, err := s.nodeRepo.ListTrashedByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	if len(trashed) == 0 {
		return []string{}, nil
	}

	ids, err := s.purge(ctx, trashed)
	if err != nil {
		return nil, err
	}

	s.logger.Info("trash emptied", "owner_id", ownerID, "purged", len(ids))
	s.sink.Emit(ctx, events.TrashEmptied, map[string]any{
		"owner_id": ownerID,
		"purged":   len(ids),
	})
	return ids, nil
}

// PurgeExpired permanently deletes nodes trashed before cutoff.
func (s *trashService) PurgeExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	expired, err := s.nodeRepo.ListDeletedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired trash: %w", err)
	}
	if len(expired) == 0 {
		s.logger.Debug("no expired trash", "cutoff", cutoff)
		return []string{}, nil
	}

	ids, err := s.purge(ctx, expired)
	if err != nil {
		return nil, err
	}

	s.logger.Info("expired trash purged", "cutoff", cutoff, "purged", len(ids))
	s.sink.Emit(ctx, events.TrashPurged, map[string]any{
		"cutoff": cutoff,
		"purged": len(ids),
	})
	return ids, nil
}

// purge hard-deletes roots plus their full descendant closure. Blobs go
// first in a single batch; if that fails no row is touched so a retry sees
// the same set.
func (s *trashService) purge(ctx context.Context, roots []models.Node) ([]string, error) {
	rootIDs := nodeIDs(roots)
	descendants, err := collectDescendants(ctx, s.nodeRepo, rootIDs, true)
	if err != nil {
		return nil, err
	}

	all := append(append([]models.Node{}, roots...), descendants...)
	ids := nodeIDs(all)

	if keys := storageKeys(all); len(keys) > 0 {
		if err := s.blobs.DeleteMany(ctx, keys); err != nil {
			s.logger.Error("blob delete failed, rows kept",
				"keys", len(keys),
				"error", err,
			)
			return nil, domain.NewDependency("delete blobs", err)
		}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		_, err := s.nodeRepo.HardDelete(txCtx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

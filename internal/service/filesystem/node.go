package filesystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/filesystem"
	"fileflow/internal/domain/repositories"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
	fsSvc "fileflow/internal/domain/services/filesystem"
	"fileflow/internal/events"
)

type nodeService struct {
	nodeRepo  fsRepo.NodeRepository
	txManager repositories.TransactionManager
	sink      events.Sink
	logger    *slog.Logger
	now       func() time.Time
}

// NewNodeService creates a new node service
func NewNodeService(
	nodeRepo fsRepo.NodeRepository,
	txManager repositories.TransactionManager,
	sink events.Sink,
	logger *slog.Logger,
) fsSvc.NodeService {
	if sink == nil {
		sink = events.Nop{}
	}
	return &nodeService{
		nodeRepo:  nodeRepo,
		txManager: txManager,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateFolder creates a new folder under an owned, live parent folder (or at root)
func (s *nodeService) CreateFolder(ctx context.Context, req *fsSvc.CreateFolderRequest) (*models.Node, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateCreateFolderRequest(req); err != nil {
		return nil, err
	}

	level := models.AccessPrivate
	if req.AccessLevel != nil {
		level = *req.AccessLevel
	}

	now := s.now().UTC()
	folder := &models.Node{
		OwnerID:     req.OwnerID,
		ParentID:    normalizeParent(req.ParentID),
		Name:        req.Name,
		IsFolder:    true,
		AccessLevel: level,
		Description: req.Description,
		Tags:        nonNilTags(req.Tags),
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := folder.CheckShape(); err != nil {
		return nil, err
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.requireParentFolder(txCtx, folder.ParentID, folder.OwnerID); err != nil {
			return err
		}
		return s.nodeRepo.Create(txCtx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"owner_id", folder.OwnerID,
		"parent_id", folder.ParentID,
	)
	return folder, nil
}

// RenameFolder renames a folder owned by ownerID. Renaming to the current
// name returns the folder unchanged without a write.
func (s *nodeService) RenameFolder(ctx context.Context, id, ownerID, newName string) (*models.Node, error) {
	newName = strings.TrimSpace(newName)
	if err := validateName(newName); err != nil {
		return nil, err
	}

	folder, err := s.nodeRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if !folder.IsFolder {
		return nil, domain.ErrNotAFolder
	}
	if folder.Name == newName {
		return folder, nil
	}

	oldName := folder.Name
	folder.Name = newName
	folder.UpdatedAt = s.now().UTC()
	if err := s.nodeRepo.Update(ctx, folder); err != nil {
		return nil, err
	}

	s.logger.Info("folder renamed", "id", folder.ID, "old_name", oldName, "name", folder.Name)
	return folder, nil
}

// CreateFile persists a file node for a blob the caller already stored.
// Parent validation and insert commit together.
func (s *nodeService) CreateFile(ctx context.Context, req *fsSvc.CreateFileRequest) (*models.Node, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.AccessLevel == "" {
		req.AccessLevel = models.AccessPrivate
	}
	if err := validateCreateFileRequest(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	info := *req.FileInfo
	file := &models.Node{
		OwnerID:     req.OwnerID,
		ParentID:    normalizeParent(req.ParentID),
		Name:        req.Name,
		IsFolder:    false,
		AccessLevel: req.AccessLevel,
		FileInfo:    &info,
		Description: req.Description,
		Tags:        nonNilTags(req.Tags),
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := file.CheckShape(); err != nil {
		return nil, err
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.requireParentFolder(txCtx, file.ParentID, file.OwnerID); err != nil {
			return err
		}
		return s.nodeRepo.Create(txCtx, file)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file created",
		"id", file.ID,
		"name", file.Name,
		"owner_id", file.OwnerID,
		"size", info.FileSize,
	)
	s.sink.Emit(ctx, events.FileUploaded, map[string]any{
		events.KeyRecipient: file.OwnerID,
		events.KeyTitle:     fmt.Sprintf("%s uploaded", file.Name),
		"file_id":           file.ID,
		"file_size":         info.FileSize,
		"file_type":         info.FileType,
	})
	return file, nil
}

// Move reassigns the parent of a node. Moving into the current parent is a
// zero-affected no-op.
func (s *nodeService) Move(ctx context.Context, nodeID string, targetFolderID *string, ownerID string) (*models.MoveResult, error) {
	targetFolderID = normalizeParent(targetFolderID)

	var result models.MoveResult
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.nodeRepo.GetByID(txCtx, nodeID, ownerID)
		if err != nil {
			return err
		}
		if sameParent(node.ParentID, targetFolderID) {
			return nil
		}

		if targetFolderID != nil {
			if *targetFolderID == node.ID {
				return domain.ErrCyclicMove
			}
			target, err := s.getParentFolder(txCtx, *targetFolderID, ownerID)
			if err != nil {
				return err
			}
			if node.IsFolder {
				cyclic, err := isAncestor(txCtx, s.nodeRepo, node.ID, target.ParentID)
				if err != nil {
					return err
				}
				if cyclic {
					return domain.ErrCyclicMove
				}
			}
		}

		node.ParentID = targetFolderID
		node.UpdatedAt = s.now().UTC()
		if err := s.nodeRepo.Update(txCtx, node); err != nil {
			return err
		}
		result.Affected = 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Affected > 0 {
		s.logger.Info("node moved", "id", nodeID, "owner_id", ownerID, "parent_id", targetFolderID)
	} else {
		s.logger.Debug("node already in target", "id", nodeID, "parent_id", targetFolderID)
	}
	return &result, nil
}

// Delete moves a node and all its live descendants to the trash. Every node
// of the cascade group gets the same deleted_at.
func (s *nodeService) Delete(ctx context.Context, nodeID, ownerID string) (*models.DeleteResult, error) {
	at := s.now().UTC().Truncate(time.Microsecond)
	result := &models.DeleteResult{ID: nodeID, DeletedAt: at}

	var node *models.Node
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		node, err = s.nodeRepo.GetByID(txCtx, nodeID, ownerID)
		if err != nil {
			return err
		}

		descendants, err := collectDescendants(txCtx, s.nodeRepo, []string{node.ID}, false)
		if err != nil {
			return err
		}
		ids := append([]string{node.ID}, nodeIDs(descendants)...)

		affected, err := s.nodeRepo.SoftDelete(txCtx, ids, at)
		if err != nil {
			return err
		}
		result.Affected = affected
		result.NodeIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node moved to trash",
		"id", nodeID,
		"owner_id", ownerID,
		"affected", result.Affected,
	)
	s.sink.Emit(ctx, events.FileDeleted, map[string]any{
		"file_id":   nodeID,
		"owner_id":  ownerID,
		"name":      node.Name,
		"is_folder": node.IsFolder,
		"affected":  result.Affected,
	})
	return result, nil
}

// UpdateAccessLevel sets level on the node and its whole descendant closure
// in one statement. Trashed descendants are updated too so a later restore
// keeps views consistent.
func (s *nodeService) UpdateAccessLevel(ctx context.Context, nodeID, ownerID string, level models.AccessLevel) (int, error) {
	if !level.Valid() {
		return 0, fmt.Errorf("%w: access_level must be one of public, private, protected", domain.ErrValidation)
	}

	var updated int
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.nodeRepo.GetByID(txCtx, nodeID, ownerID)
		if err != nil {
			return err
		}

		ids := []string{node.ID}
		if node.IsFolder {
			descendants, err := collectDescendants(txCtx, s.nodeRepo, ids, true)
			if err != nil {
				return err
			}
			ids = append(ids, nodeIDs(descendants)...)
		}

		updated, err = s.nodeRepo.SetAccessLevel(txCtx, ids, level, s.now().UTC())
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("access level updated",
		"id", nodeID,
		"access_level", level,
		"updated", updated,
	)
	return updated, nil
}

// GetNode retrieves a live node owned by ownerID
func (s *nodeService) GetNode(ctx context.Context, id, ownerID string) (*models.Node, error) {
	return s.nodeRepo.GetByID(ctx, id, ownerID)
}

// requireParentFolder checks that parentID (if set) is a live folder of ownerID.
func (s *nodeService) requireParentFolder(ctx context.Context, parentID *string, ownerID string) error {
	if parentID == nil {
		return nil
	}
	_, err := s.getParentFolder(ctx, *parentID, ownerID)
	return err
}

func (s *nodeService) getParentFolder(ctx context.Context, parentID, ownerID string) (*models.Node, error) {
	parent, err := s.nodeRepo.GetByID(ctx, parentID, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFound("parent_not_found", "parent folder %s not found", parentID)
		}
		return nil, err
	}
	if !parent.IsFolder {
		return nil, domain.NewNotFound("parent_not_found", "parent %s is not a folder", parentID)
	}
	return parent, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/filesystem"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
	fsSvc "fileflow/internal/domain/services/filesystem"
	"fileflow/internal/events"
)

type shareService struct {
	nodeRepo  fsRepo.NodeRepository
	shareRepo fsRepo.ShareRepository
	sink      events.Sink
	maxDepth  int
	logger    *slog.Logger
	now       func() time.Time
}

// NewShareService creates a new share service
func NewShareService(
	nodeRepo fsRepo.NodeRepository,
	shareRepo fsRepo.ShareRepository,
	sink events.Sink,
	maxDepth int,
	logger *slog.Logger,
) fsSvc.ShareService {
	if sink == nil {
		sink = events.Nop{}
	}
	return &shareService{
		nodeRepo:  nodeRepo,
		shareRepo: shareRepo,
		sink:      sink,
		maxDepth:  maxDepth,
		logger:    logger,
		now:       time.Now,
	}
}

// Share grants SharedWithUserID access to a node owned by SharedByUserID.
// Sharing the same node with the same user again updates the grant.
func (s *shareService) Share(ctx context.Context, req *fsSvc.ShareRequest) (*models.Share, error) {
	if err := validateShareRequest(req); err != nil {
		return nil, err
	}
	if req.SharedByUserID == req.SharedWithUserID {
		return nil, domain.ErrSelfShare
	}

	now := s.now().UTC()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", domain.ErrValidation)
	}

	node, err := s.nodeRepo.GetByID(ctx, req.FileID, req.SharedByUserID)
	if err != nil {
		return nil, err
	}

	share := &models.Share{
		FileID:           node.ID,
		SharedByUserID:   req.SharedByUserID,
		SharedWithUserID: req.SharedWithUserID,
		PermissionLevel:  req.PermissionLevel,
		Message:          req.Message,
		ExpiresAt:        req.ExpiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.shareRepo.Upsert(ctx, share); err != nil {
		return nil, err
	}

	s.logger.Info("node shared",
		"share_id", share.ID,
		"file_id", share.FileID,
		"shared_by", share.SharedByUserID,
		"shared_with", share.SharedWithUserID,
		"permission", share.PermissionLevel,
	)
	s.sink.Emit(ctx, events.FileShared, map[string]any{
		events.KeyRecipient: share.SharedWithUserID,
		events.KeyTitle:     fmt.Sprintf("%s was shared with you", node.Name),
		"share_id":          share.ID,
		"file_id":           share.FileID,
		"shared_by_user_id": share.SharedByUserID,
		"permission_level":  string(share.PermissionLevel),
	})
	return share, nil
}

// Unshare revokes a grant created by userID.
func (s *shareService) Unshare(ctx context.Context, shareID, userID string) error {
	if err := s.shareRepo.Delete(ctx, shareID, userID); err != nil {
		return err
	}
	s.logger.Info("share revoked", "share_id", shareID, "shared_by", userID)
	return nil
}

func (s *shareService) GetSharedWithMe(ctx context.Context, userID string) ([]*models.TreeNode, error) {
	shares, err := s.shareRepo.ListSharedWith(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return s.sharedTrees(ctx, shares, models.SharedWithMe)
}

func (s *shareService) GetSharedByMe(ctx context.Context, userID string) ([]*models.TreeNode, error) {
	shares, err := s.shareRepo.ListSharedBy(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return s.sharedTrees(ctx, shares, models.SharedByMe)
}

// GetAllShared returns received shares followed by given ones. A node
// shared in both directions shows up once per direction.
func (s *shareService) GetAllShared(ctx context.Context, userID string) ([]*models.TreeNode, error) {
	with, err := s.GetSharedWithMe(ctx, userID)
	if err != nil {
		return nil, err
	}
	by, err := s.GetSharedByMe(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append(with, by...), nil
}

// sharedTrees reconstructs one independent subtree per grant. Received
// shares collapse per node: they arrive newest first and the newest grant
// wins. Given shares keep one tree per recipient. Trashed roots are skipped
// and access levels are not filtered.
func (s *shareService) sharedTrees(ctx context.Context, shares []models.Share, dir models.ShareDirection) ([]*models.TreeNode, error) {
	grants := make([]*models.Share, 0, len(shares))
	seenFile := make(map[string]bool, len(shares))
	seenShare := make(map[string]bool, len(shares))
	order := make([]string, 0, len(shares))
	for i := range shares {
		sh := &shares[i]
		if dir == models.SharedWithMe && seenFile[sh.FileID] {
			continue
		}
		if seenShare[sh.ID] {
			continue
		}
		seenShare[sh.ID] = true
		grants = append(grants, sh)
		if !seenFile[sh.FileID] {
			seenFile[sh.FileID] = true
			order = append(order, sh.FileID)
		}
	}
	if len(order) == 0 {
		return []*models.TreeNode{}, nil
	}

	roots, err := s.nodeRepo.ListByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load shared nodes: %w", err)
	}
	live := make(map[string]*models.Node, len(roots))
	liveIDs := make([]string, 0, len(roots))
	for i := range roots {
		if !roots[i].IsDeleted() {
			live[roots[i].ID] = &roots[i]
			liveIDs = append(liveIDs, roots[i].ID)
		}
	}

	descendants, err := collectDescendants(ctx, s.nodeRepo, liveIDs, false)
	if err != nil {
		return nil, err
	}
	// A shared node can sit inside another shared subtree; index the roots
	// too so the outer tree still contains it.
	all := make([]models.Node, 0, len(liveIDs)+len(descendants))
	for _, id := range liveIDs {
		all = append(all, *live[id])
	}
	idx := buildIndex(append(all, descendants...))

	out := make([]*models.TreeNode, 0, len(grants))
	for _, grant := range grants {
		root, ok := live[grant.FileID]
		if !ok {
			continue
		}
		sc := models.ContextOf(grant)
		trees, stats := materialize(idx, []*models.Node{root}, walkOptions{
			maxDepth: s.maxDepth,
			decorate: func(t *models.TreeNode) {
				t.ShareContext = sc
				t.Direction = dir
			},
		})
		if stats.truncated > 0 {
			s.logger.Warn("shared tree truncated at max depth",
				"share_id", sc.ShareID,
				"max_depth", s.maxDepth,
				"truncated", stats.truncated,
			)
		}
		out = append(out, trees...)
	}
	return out, nil
}

// CanAccess returns the live node when userID owns it or holds an active
// share on it or on one of its ancestors. Anything else reads as not found
// so callers cannot probe for foreign ids.
func (s *shareService) CanAccess(ctx context.Context, userID, nodeID string) (*models.Node, error) {
	node, err := s.nodeRepo.GetByIDOnly(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node.OwnerID == userID {
		return node, nil
	}

	chain, err := ancestorIDs(ctx, s.nodeRepo, node)
	if err != nil {
		return nil, err
	}
	chain = append([]string{node.ID}, chain...)

	shares, err := s.shareRepo.ListActiveFor(ctx, chain, userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	if len(shares) == 0 {
		return nil, domain.NewNotFound("node_not_found", "node %s not found", nodeID)
	}
	return node, nil
}

// ExpireShares removes every share past its expiry.
func (s *shareService) ExpireShares(ctx context.Context, now time.Time) (int, error) {
	n, err := s.shareRepo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired shares: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired shares removed", "count", n)
	}
	return n, nil
}

package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	models "fileflow/internal/domain/models/filesystem"
	"fileflow/internal/domain/repositories"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
	fsSvc "fileflow/internal/domain/services/filesystem"
)

type treeService struct {
	nodeRepo fsRepo.NodeRepository
	quotas   repositories.QuotaProvider
	maxDepth int
	logger   *slog.Logger
}

// NewTreeService creates a new tree service. quotas may be nil.
func NewTreeService(
	nodeRepo fsRepo.NodeRepository,
	quotas repositories.QuotaProvider,
	maxDepth int,
	logger *slog.Logger,
) fsSvc.TreeService {
	return &treeService{
		nodeRepo: nodeRepo,
		quotas:   quotas,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// GetFileSystemTree loads every live node of the owner in one query and
// builds the nested view in memory.
func (s *treeService) GetFileSystemTree(ctx context.Context, ownerID string, filter *models.AccessLevel) ([]*models.TreeNode, error) {
	nodes, err := s.nodeRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	idx := buildIndex(nodes)
	opts := walkOptions{maxDepth: s.maxDepth}
	if filter != nil {
		level := *filter
		opts.filter = func(n *models.Node) bool { return n.AccessLevel == level }
	}

	roots, stats := materialize(idx, idx[""], opts)
	if stats.truncated > 0 {
		s.logger.Warn("tree truncated at max depth",
			"owner_id", ownerID,
			"max_depth", s.maxDepth,
			"truncated", stats.truncated,
		)
	}

	s.logger.Debug("tree built",
		"owner_id", ownerID,
		"nodes", len(nodes),
		"emitted", stats.emitted,
	)
	return roots, nil
}

// GetTrash returns a flat list of the owner's trashed nodes, newest first.
// A trashed folder's size counts the files deleted in the same cascade.
func (s *treeService) GetTrash(ctx context.Context, ownerID string) ([]*models.TreeNode, error) {
	nodes, err := s.nodeRepo.ListTrashedByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}

	idx := buildIndex(nodes)
	out := make([]*models.TreeNode, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		t := &models.TreeNode{Node: *n.Clone(), Children: []*models.TreeNode{}}
		if n.IsFolder {
			t.FileInfo = &models.FileInfo{FileSize: batchSize(idx, n)}
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DeletedAt, out[j].DeletedAt
		if !di.Equal(*dj) {
			return di.After(*dj)
		}
		if out[i].IsFolder != out[j].IsFolder {
			return out[i].IsFolder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// batchSize sums the file sizes below root that share its deleted_at.
func batchSize(idx childIndex, root *models.Node) int64 {
	var total int64
	visited := map[string]bool{root.ID: true}
	stack := []*models.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range idx[n.ID] {
			if visited[c.ID] || !c.DeletedAt.Equal(*root.DeletedAt) {
				continue
			}
			visited[c.ID] = true
			total += c.FileSize()
			if c.IsFolder {
				stack = append(stack, c)
			}
		}
	}
	return total
}

// StorageUsage sums the owner's live and trashed file sizes.
func (s *treeService) StorageUsage(ctx context.Context, ownerID string) (*models.StorageUsage, error) {
	return computeUsage(ctx, s.nodeRepo, s.quotas, ownerID)
}

func computeUsage(ctx context.Context, repo fsRepo.NodeRepository, quotas repositories.QuotaProvider, ownerID string) (*models.StorageUsage, error) {
	live, err := repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	trashed, err := repo.ListTrashedByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}

	usage := &models.StorageUsage{}
	for i := range live {
		usage.UsedBytes += live[i].FileSize()
	}
	for i := range trashed {
		usage.TrashedBytes += trashed[i].FileSize()
	}
	if quotas != nil {
		if usage.QuotaBytes, err = quotas.QuotaFor(ctx, ownerID); err != nil {
			return nil, fmt.Errorf("get quota: %w", err)
		}
	}
	return usage, nil
}

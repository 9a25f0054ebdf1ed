package filesystem

import (
	"context"
	"fmt"

	models "fileflow/internal/domain/models/filesystem"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
)

// descendantLister is implemented by stores that can fetch a whole closure
// in one round trip (a recursive CTE in Postgres).
type descendantLister interface {
	ListDescendants(ctx context.Context, rootIDs []string, includeDeleted bool) ([]models.Node, error)
}

// collectDescendants returns every node below rootIDs (roots excluded).
// Without a descendantLister it walks breadth first, one query per level,
// with a visited set against cycles from corrupted parent links. There is
// no depth cap: mutations over a closure must see all of it.
func collectDescendants(ctx context.Context, repo fsRepo.NodeRepository, rootIDs []string, includeDeleted bool) ([]models.Node, error) {
	if dl, ok := repo.(descendantLister); ok {
		nodes, err := dl.ListDescendants(ctx, rootIDs, includeDeleted)
		if err != nil {
			return nil, fmt.Errorf("list descendants: %w", err)
		}
		return nodes, nil
	}

	visited := make(map[string]bool, len(rootIDs))
	frontier := make([]string, 0, len(rootIDs))
	for _, id := range rootIDs {
		if !visited[id] {
			visited[id] = true
			frontier = append(frontier, id)
		}
	}

	var out []models.Node
	for len(frontier) > 0 {
		children, err := repo.ListChildren(ctx, frontier, includeDeleted)
		if err != nil {
			return nil, fmt.Errorf("list children: %w", err)
		}
		frontier = frontier[:0]
		for _, c := range children {
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			out = append(out, c)
			if c.IsFolder {
				frontier = append(frontier, c.ID)
			}
		}
	}
	return out, nil
}

// nodeIDs returns the ids of nodes in order.
func nodeIDs(nodes []models.Node) []string {
	ids := make([]string, len(nodes))
	for i := range nodes {
		ids[i] = nodes[i].ID
	}
	return ids
}

// storageKeys collects blob keys of every file among nodes, deduplicated.
func storageKeys(nodes []models.Node) []string {
	seen := make(map[string]bool)
	var keys []string
	for i := range nodes {
		for _, k := range nodes[i].StoragePaths() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// isAncestor reports whether candidateID appears on the parent chain
// starting at startParentID. The walk stops at root, at a missing node, or
// when the chain loops.
func isAncestor(ctx context.Context, repo fsRepo.NodeRepository, candidateID string, startParentID *string) (bool, error) {
	visited := make(map[string]bool)
	cur := startParentID
	for cur != nil {
		if *cur == candidateID {
			return true, nil
		}
		if visited[*cur] {
			return false, nil
		}
		visited[*cur] = true

		nodes, err := repo.ListByIDs(ctx, []string{*cur})
		if err != nil {
			return false, fmt.Errorf("walk ancestors: %w", err)
		}
		if len(nodes) == 0 {
			return false, nil
		}
		cur = nodes[0].ParentID
	}
	return false, nil
}

// ancestorIDs returns the ids on the parent chain of n, nearest first.
func ancestorIDs(ctx context.Context, repo fsRepo.NodeRepository, n *models.Node) ([]string, error) {
	visited := map[string]bool{n.ID: true}
	var ids []string
	cur := n.ParentID
	for cur != nil && !visited[*cur] {
		visited[*cur] = true
		ids = append(ids, *cur)
		nodes, err := repo.ListByIDs(ctx, []string{*cur})
		if err != nil {
			return nil, fmt.Errorf("walk ancestors: %w", err)
		}
		if len(nodes) == 0 {
			break
		}
		cur = nodes[0].ParentID
	}
	return ids, nil
}

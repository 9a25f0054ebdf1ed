package filesystem

import (
	"sort"

	models "fileflow/internal/domain/models/filesystem"
)

// childIndex groups nodes by parent id. Root-level nodes sit under "".
// Siblings are kept in display order: folders first, then by name.
type childIndex map[string][]*models.Node

func buildIndex(nodes []models.Node) childIndex {
	idx := make(childIndex)
	for i := range nodes {
		n := &nodes[i]
		idx[n.ParentKey()] = append(idx[n.ParentKey()], n)
	}
	for _, siblings := range idx {
		sortSiblings(siblings)
	}
	return idx
}

// sortSiblings orders folders before files, then names by byte-wise
// (case-sensitive) comparison.
func sortSiblings(nodes []*models.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].IsFolder != nodes[j].IsFolder {
			return nodes[i].IsFolder
		}
		return nodes[i].Name < nodes[j].Name
	})
}

// subtreeSizes returns, for every node reachable from roots, the sum of
// file sizes at or below it. Iterative post-order; a visited set keeps
// corrupted parent links from looping.
func subtreeSizes(idx childIndex, roots []*models.Node) map[string]int64 {
	type frame struct {
		node     *models.Node
		expanded bool
	}

	sizes := make(map[string]int64)
	visited := make(map[string]bool)
	stack := make([]frame, 0, len(roots))
	for _, r := range roots {
		stack = append(stack, frame{node: r})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.expanded {
			total := f.node.FileSize()
			for _, c := range idx[f.node.ID] {
				total += sizes[c.ID]
			}
			sizes[f.node.ID] = total
			continue
		}

		if visited[f.node.ID] {
			continue
		}
		visited[f.node.ID] = true
		stack = append(stack, frame{node: f.node, expanded: true})
		if !f.node.IsFolder {
			continue
		}
		for _, c := range idx[f.node.ID] {
			if !visited[c.ID] {
				stack = append(stack, frame{node: c})
			}
		}
	}
	return sizes
}

// walkOptions parameterizes materialize for the plain and the shared views.
type walkOptions struct {
	// filter drops a node and its whole subtree when it returns false.
	filter func(*models.Node) bool
	// decorate is applied to every emitted node.
	decorate func(*models.TreeNode)
	// maxDepth stops expansion below this depth. Zero means unlimited.
	maxDepth int
}

func (o walkOptions) keep(n *models.Node) bool {
	return o.filter == nil || o.filter(n)
}

// walkStats reports what a walk left out.
type walkStats struct {
	emitted   int
	truncated int
}

// materialize expands each root into a nested TreeNode using an explicit
// stack. Folder sizes are computed over the full index and so do not depend
// on the filter.
func materialize(idx childIndex, roots []*models.Node, opts walkOptions) ([]*models.TreeNode, walkStats) {
	type frame struct {
		tree  *models.TreeNode
		depth int
	}

	var stats walkStats
	sizes := subtreeSizes(idx, roots)
	visited := make(map[string]bool)
	out := make([]*models.TreeNode, 0, len(roots))
	var stack []frame

	emit := func(n *models.Node) *models.TreeNode {
		t := &models.TreeNode{Node: *n.Clone(), Children: []*models.TreeNode{}}
		if n.IsFolder {
			t.FileInfo = &models.FileInfo{FileSize: sizes[n.ID]}
		}
		if opts.decorate != nil {
			opts.decorate(t)
		}
		visited[n.ID] = true
		stats.emitted++
		return t
	}

	for _, r := range roots {
		if visited[r.ID] || !opts.keep(r) {
			continue
		}
		t := emit(r)
		out = append(out, t)
		stack = append(stack, frame{tree: t})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !f.tree.IsFolder {
			continue
		}
		children := idx[f.tree.ID]
		if opts.maxDepth > 0 && f.depth >= opts.maxDepth {
			stats.truncated += len(children)
			continue
		}
		for _, c := range children {
			if visited[c.ID] || !opts.keep(c) {
				continue
			}
			ct := emit(c)
			f.tree.Children = append(f.tree.Children, ct)
			stack = append(stack, frame{tree: ct, depth: f.depth + 1})
		}
	}
	return out, stats
}

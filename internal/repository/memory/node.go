package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/filesystem"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
)

// NodeRepository implements fsRepo.NodeRepository on a Store
type NodeRepository struct {
	s *Store
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(store *Store) *NodeRepository {
	return &NodeRepository{s: store}
}

var _ fsRepo.NodeRepository = (*NodeRepository)(nil)

func nodeNotFound(id string) error {
	return domain.NewNotFound("node_not_found", "node %s not found", id)
}

func sameSlot(a, b *models.Node) bool {
	return a.OwnerID == b.OwnerID &&
		a.ParentKey() == b.ParentKey() &&
		a.Name == b.Name &&
		a.IsFolder == b.IsFolder
}

// liveConflict returns the live node occupying n's (owner, parent, name,
// is_folder) slot, ignoring ids in skip.
func (r *NodeRepository) liveConflict(n *models.Node, skip map[string]bool) *models.Node {
	for _, other := range r.s.nodes {
		if other.IsDeleted() || skip[other.ID] {
			continue
		}
		if sameSlot(other, n) {
			return other
		}
	}
	return nil
}

func conflictFor(n, existing *models.Node) error {
	kind := "file"
	if n.IsFolder {
		kind = "folder"
	}
	return &domain.ConflictError{
		Message:      fmt.Sprintf("a %s named '%s' already exists in this location", kind, n.Name),
		ResourceType: kind,
		ResourceID:   existing.ID,
	}
}

// Create inserts a node. Uniqueness check and insert happen under one lock.
func (r *NodeRepository) Create(ctx context.Context, node *models.Node) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if node.ParentID != nil {
		if _, ok := r.s.nodes[*node.ParentID]; !ok {
			return domain.NewNotFound("parent_not_found", "parent folder %s not found", *node.ParentID)
		}
	}
	if existing := r.liveConflict(node, nil); existing != nil {
		return conflictFor(node, existing)
	}

	if node.ID == "" {
		node.ID = uuid.NewString()
	} else if _, taken := r.s.nodes[node.ID]; taken {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("node %s already exists", node.ID),
			ResourceType: "node",
			ResourceID:   node.ID,
		}
	}
	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	if node.UpdatedAt.IsZero() {
		node.UpdatedAt = node.CreatedAt
	}
	if node.Tags == nil {
		node.Tags = []string{}
	}

	id := node.ID
	r.s.nodes[id] = node.Clone()
	record(ctx, func() { delete(r.s.nodes, id) })
	return nil
}

func (r *NodeRepository) GetByID(_ context.Context, id, ownerID string) (*models.Node, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.nodes[id]
	if !ok || n.IsDeleted() || n.OwnerID != ownerID {
		return nil, nodeNotFound(id)
	}
	return n.Clone(), nil
}

func (r *NodeRepository) GetByIDOnly(_ context.Context, id string) (*models.Node, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.nodes[id]
	if !ok || n.IsDeleted() {
		return nil, nodeNotFound(id)
	}
	return n.Clone(), nil
}

func (r *NodeRepository) GetTrashed(_ context.Context, id, ownerID string) (*models.Node, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.nodes[id]
	if !ok || !n.IsDeleted() || n.OwnerID != ownerID {
		return nil, domain.NewNotFound("trashed_node_not_found", "trashed node %s not found", id)
	}
	return n.Clone(), nil
}

// Update writes the mutable columns. Trashed rows may be updated; the
// uniqueness check only applies to live ones.
func (r *NodeRepository) Update(ctx context.Context, node *models.Node) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.nodes[node.ID]
	if !ok {
		return nodeNotFound(node.ID)
	}

	next := stored.Clone()
	next.Name = node.Name
	next.ParentID = node.ParentID
	next.AccessLevel = node.AccessLevel
	next.Description = node.Description
	next.Tags = node.Tags
	next.Metadata = node.Metadata
	next.UpdatedAt = node.UpdatedAt
	next = next.Clone()

	if !next.IsDeleted() {
		if existing := r.liveConflict(next, map[string]bool{next.ID: true}); existing != nil {
			return conflictFor(next, existing)
		}
	}

	r.s.nodes[node.ID] = next
	record(ctx, func() { r.s.nodes[stored.ID] = stored })
	return nil
}

func (r *NodeRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Node, error) {
	return r.list(func(n *models.Node) bool { return n.OwnerID == ownerID && !n.IsDeleted() }), nil
}

func (r *NodeRepository) ListTrashedByOwner(_ context.Context, ownerID string) ([]models.Node, error) {
	return r.list(func(n *models.Node) bool { return n.OwnerID == ownerID && n.IsDeleted() }), nil
}

func (r *NodeRepository) ListChildren(_ context.Context, parentIDs []string, includeDeleted bool) ([]models.Node, error) {
	parents := toSet(parentIDs)
	return r.list(func(n *models.Node) bool {
		if n.ParentID == nil || !parents[*n.ParentID] {
			return false
		}
		return includeDeleted || !n.IsDeleted()
	}), nil
}

func (r *NodeRepository) ListByIDs(_ context.Context, ids []string) ([]models.Node, error) {
	set := toSet(ids)
	return r.list(func(n *models.Node) bool { return set[n.ID] }), nil
}

func (r *NodeRepository) ListDeletedBefore(_ context.Context, cutoff time.Time) ([]models.Node, error) {
	return r.list(func(n *models.Node) bool {
		return n.IsDeleted() && n.DeletedAt.Before(cutoff)
	}), nil
}

func (r *NodeRepository) SoftDelete(ctx context.Context, ids []string, at time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, id := range ids {
		n, ok := r.s.nodes[id]
		if !ok || n.IsDeleted() {
			continue
		}
		prev := n.Clone()
		next := n.Clone()
		deletedAt := at
		next.DeletedAt = &deletedAt
		next.UpdatedAt = at
		r.s.nodes[id] = next
		record(ctx, func() { r.s.nodes[prev.ID] = prev })
		count++
	}
	return count, nil
}

// Restore clears deleted_at on ids. If any restored node would collide with
// a live sibling nothing is restored.
func (r *NodeRepository) Restore(ctx context.Context, ids []string, at time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	skip := toSet(ids)
	var targets []*models.Node
	for _, id := range ids {
		n, ok := r.s.nodes[id]
		if !ok || !n.IsDeleted() {
			continue
		}
		if existing := r.liveConflict(n, skip); existing != nil {
			return 0, conflictFor(n, existing)
		}
		targets = append(targets, n)
	}

	for _, n := range targets {
		prev := n.Clone()
		next := n.Clone()
		next.DeletedAt = nil
		next.UpdatedAt = at
		r.s.nodes[n.ID] = next
		record(ctx, func() { r.s.nodes[prev.ID] = prev })
	}
	return len(targets), nil
}

func (r *NodeRepository) SetAccessLevel(ctx context.Context, ids []string, level models.AccessLevel, at time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, id := range toSet(ids).keys() {
		n, ok := r.s.nodes[id]
		if !ok {
			continue
		}
		prev := n.Clone()
		next := n.Clone()
		next.AccessLevel = level
		next.UpdatedAt = at
		r.s.nodes[id] = next
		record(ctx, func() { r.s.nodes[prev.ID] = prev })
		count++
	}
	return count, nil
}

// HardDelete removes nodes and every share pointing at them.
func (r *NodeRepository) HardDelete(ctx context.Context, ids []string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	set := toSet(ids)
	count := 0
	for id := range set {
		n, ok := r.s.nodes[id]
		if !ok {
			continue
		}
		delete(r.s.nodes, id)
		record(ctx, func() { r.s.nodes[n.ID] = n })
		count++
	}
	for id, sh := range r.s.shares {
		if set[sh.FileID] {
			delete(r.s.shares, id)
			record(ctx, func() { r.s.shares[sh.ID] = sh })
		}
	}
	return count, nil
}

func (r *NodeRepository) TouchLastAccessed(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.nodes[id]
	if !ok || n.IsDeleted() {
		return nodeNotFound(id)
	}
	next := n.Clone()
	accessed := at
	next.LastAccessedAt = &accessed
	r.s.nodes[id] = next
	return nil
}

// list returns clones of matching nodes ordered by creation time.
func (r *NodeRepository) list(match func(*models.Node) bool) []models.Node {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Node, 0)
	for _, n := range r.s.nodes {
		if match(n) {
			out = append(out, *n.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type stringSet map[string]bool

func toSet(ids []string) stringSet {
	set := make(stringSet, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (s stringSet) keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

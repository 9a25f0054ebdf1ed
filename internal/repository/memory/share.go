package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/filesystem"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
)

// ShareRepository implements fsRepo.ShareRepository on a Store
type ShareRepository struct {
	s *Store
}

// NewShareRepository creates a new share repository
func NewShareRepository(store *Store) *ShareRepository {
	return &ShareRepository{s: store}
}

var _ fsRepo.ShareRepository = (*ShareRepository)(nil)

func cloneShare(sh *models.Share) *models.Share {
	c := *sh
	if sh.Message != nil {
		m := *sh.Message
		c.Message = &m
	}
	if sh.ExpiresAt != nil {
		e := *sh.ExpiresAt
		c.ExpiresAt = &e
	}
	if sh.LastAccessedAt != nil {
		l := *sh.LastAccessedAt
		c.LastAccessedAt = &l
	}
	return &c
}

func (r *ShareRepository) Upsert(ctx context.Context, share *models.Share) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.nodes[share.FileID]; !ok {
		return domain.NewNotFound("node_not_found", "node %s not found", share.FileID)
	}

	now := time.Now().UTC()
	if share.UpdatedAt.IsZero() {
		share.UpdatedAt = now
	}

	for id, existing := range r.s.shares {
		if existing.FileID != share.FileID ||
			existing.SharedByUserID != share.SharedByUserID ||
			existing.SharedWithUserID != share.SharedWithUserID {
			continue
		}
		share.ID = existing.ID
		share.CreatedAt = existing.CreatedAt
		prev := existing
		r.s.shares[id] = cloneShare(share)
		record(ctx, func() { r.s.shares[prev.ID] = prev })
		return nil
	}

	share.ID = uuid.NewString()
	if share.CreatedAt.IsZero() {
		share.CreatedAt = now
	}
	id := share.ID
	r.s.shares[id] = cloneShare(share)
	record(ctx, func() { delete(r.s.shares, id) })
	return nil
}

func (r *ShareRepository) GetByID(_ context.Context, id string) (*models.Share, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sh, ok := r.s.shares[id]
	if !ok {
		return nil, domain.NewNotFound("share_not_found", "share %s not found", id)
	}
	return cloneShare(sh), nil
}

func (r *ShareRepository) Delete(ctx context.Context, id, sharedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sh, ok := r.s.shares[id]
	if !ok || sh.SharedByUserID != sharedBy {
		return domain.NewNotFound("share_not_found", "share %s not found", id)
	}
	delete(r.s.shares, id)
	record(ctx, func() { r.s.shares[sh.ID] = sh })
	return nil
}

func (r *ShareRepository) ListSharedWith(_ context.Context, userID string, now time.Time) ([]models.Share, error) {
	return r.list(func(sh *models.Share) bool {
		return sh.SharedWithUserID == userID && sh.Active(now)
	}), nil
}

func (r *ShareRepository) ListSharedBy(_ context.Context, userID string, now time.Time) ([]models.Share, error) {
	return r.list(func(sh *models.Share) bool {
		return sh.SharedByUserID == userID && sh.Active(now)
	}), nil
}

func (r *ShareRepository) ListActiveFor(_ context.Context, fileIDs []string, userID string, now time.Time) ([]models.Share, error) {
	files := toSet(fileIDs)
	return r.list(func(sh *models.Share) bool {
		return files[sh.FileID] && sh.SharedWithUserID == userID && sh.Active(now)
	}), nil
}

func (r *ShareRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for id, sh := range r.s.shares {
		if sh.ExpiresAt != nil && sh.ExpiresAt.Before(now) {
			delete(r.s.shares, id)
			record(ctx, func() { r.s.shares[sh.ID] = sh })
			count++
		}
	}
	return count, nil
}

// list returns matching shares, newest first.
func (r *ShareRepository) list(match func(*models.Share) bool) []models.Share {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Share, 0)
	for _, sh := range r.s.shares {
		if match(sh) {
			out = append(out, *cloneShare(sh))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

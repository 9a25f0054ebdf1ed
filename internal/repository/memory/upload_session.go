package memory

import (
	"context"
	"fmt"
	"slices"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/upload"
	uploadRepo "fileflow/internal/domain/repositories/upload"
)

// SessionRepository implements uploadRepo.SessionRepository on a Store
type SessionRepository struct {
	s *Store
}

// NewSessionRepository creates a new upload session repository
func NewSessionRepository(store *Store) *SessionRepository {
	return &SessionRepository{s: store}
}

var _ uploadRepo.SessionRepository = (*SessionRepository)(nil)

func cloneSession(s *models.Session) *models.Session {
	c := *s
	if s.Location != nil {
		l := *s.Location
		c.Location = &l
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.uploads[session.UploadID]; ok {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("upload %s already exists", session.UploadID),
			ResourceType: "upload",
			ResourceID:   session.UploadID,
		}
	}
	id := session.UploadID
	r.s.uploads[id] = cloneSession(session)
	record(ctx, func() { delete(r.s.uploads, id) })
	return nil
}

func (r *SessionRepository) Get(_ context.Context, uploadID, ownerID string) (*models.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess, ok := r.s.uploads[uploadID]
	if !ok || sess.OwnerID != ownerID {
		return nil, domain.NewNotFound("upload_not_found", "upload %s not found", uploadID)
	}
	return cloneSession(sess), nil
}

// Transition is a compare-and-set on status.
func (r *SessionRepository) Transition(ctx context.Context, session *models.Session, from []models.Status, to models.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.uploads[session.UploadID]
	if !ok || stored.OwnerID != session.OwnerID {
		return domain.NewNotFound("upload_not_found", "upload %s not found", session.UploadID)
	}
	if !slices.Contains(from, stored.Status) {
		return domain.ErrUploadTerminal
	}

	next := cloneSession(stored)
	next.Status = to
	next.UpdatedAt = session.UpdatedAt
	next.Location = session.Location
	next.CompletedAt = session.CompletedAt
	r.s.uploads[session.UploadID] = cloneSession(next)
	record(ctx, func() { r.s.uploads[stored.UploadID] = stored })

	*session = *next
	return nil
}

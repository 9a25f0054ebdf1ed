package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fileflow/internal/domain/models"
	"fileflow/internal/domain/repositories"
)

// AuthSessionRepository implements repositories.AuthSessionRepository on a Store
type AuthSessionRepository struct {
	s *Store
}

// NewAuthSessionRepository creates a new auth session repository
func NewAuthSessionRepository(store *Store) *AuthSessionRepository {
	return &AuthSessionRepository{s: store}
}

var _ repositories.AuthSessionRepository = (*AuthSessionRepository)(nil)

// AddSession registers a user session expiring at expiresAt.
func (r *AuthSessionRepository) AddSession(id string, expiresAt time.Time) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.authSessions[id] = expiresAt
}

// AddRefreshToken registers a refresh token expiring at expiresAt.
func (r *AuthSessionRepository) AddRefreshToken(id string, expiresAt time.Time) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.refreshTokens[id] = expiresAt
}

// Counts returns the number of stored sessions and refresh tokens.
func (r *AuthSessionRepository) Counts() (sessions, tokens int) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.authSessions), len(r.s.refreshTokens)
}

func (r *AuthSessionRepository) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	return deleteExpired(&r.s.mu, r.s.authSessions, now), nil
}

func (r *AuthSessionRepository) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) (int, error) {
	return deleteExpired(&r.s.mu, r.s.refreshTokens, now), nil
}

func deleteExpired(mu sync.Locker, rows map[string]time.Time, now time.Time) int {
	mu.Lock()
	defer mu.Unlock()
	count := 0
	for id, expiresAt := range rows {
		if expiresAt.Before(now) {
			delete(rows, id)
			count++
		}
	}
	return count
}

// NotificationRepository implements repositories.NotificationRepository on a Store
type NotificationRepository struct {
	s *Store
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(store *Store) *NotificationRepository {
	return &NotificationRepository{s: store}
}

var _ repositories.NotificationRepository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	c := *n
	r.s.notifications[n.ID] = &c
	return nil
}

// MarkRead flags a notification as read at at.
func (r *NotificationRepository) MarkRead(id string, at time.Time) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n, ok := r.s.notifications[id]; ok {
		n.IsRead = true
		n.ReadAt = &at
	}
}

// ListByUser returns the notifications of userID in no particular order.
func (r *NotificationRepository) ListByUser(userID string) []models.Notification {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out
}

func (r *NotificationRepository) DeleteReadBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for id, n := range r.s.notifications {
		if n.IsRead && n.CreatedAt.Before(cutoff) {
			delete(r.s.notifications, id)
			count++
		}
	}
	return count, nil
}

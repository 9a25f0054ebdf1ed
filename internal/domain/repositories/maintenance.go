package repositories

import (
	"context"
	"time"

	"fileflow/internal/domain/models"
)

// AuthSessionRepository exposes the predicate deletes the session sweep needs.
// Sessions and refresh tokens are issued elsewhere.
type AuthSessionRepository interface {
	// DeleteExpiredSessions removes user_sessions rows with expires_at < now.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)

	// DeleteExpiredRefreshTokens removes refresh_tokens rows with expires_at < now.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int, error)
}

// NotificationRepository stores user-facing notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error

	// DeleteReadBefore removes read notifications created before cutoff.
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// QuotaProvider returns a user's storage quota in bytes. nil means unlimited.
type QuotaProvider interface {
	QuotaFor(ctx context.Context, userID string) (*int64, error)
}

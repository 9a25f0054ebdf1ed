package upload

import (
	"context"

	models "fileflow/internal/domain/models/upload"
)

// SessionRepository persists multipart upload sessions.
type SessionRepository interface {
	// Create stores a new session
	Create(ctx context.Context, session *models.Session) error

	// Get retrieves a session owned by ownerID
	Get(ctx context.Context, uploadID, ownerID string) (*models.Session, error)

	// Transition moves a session from one of from to to. It fails with
	// domain.ErrUploadTerminal when the stored status is not in from, which
	// keeps concurrent complete/abort calls from both succeeding.
	Transition(ctx context.Context, session *models.Session, from []models.Status, to models.Status) error
}

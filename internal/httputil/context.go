package httputil

import (
	"context"
	"net/http"

	"fileflow/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	identityKey contextKey = "identity"
)

// WithIdentity adds the authenticated caller to the request context
func WithIdentity(r *http.Request, id models.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), identityKey, id)
	return r.WithContext(ctx)
}

// GetIdentity retrieves the caller from context. ok is false on
// unauthenticated routes.
func GetIdentity(r *http.Request) (models.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(models.Identity)
	return id, ok
}

// GetUserID retrieves the caller's user id, or "" if not set
func GetUserID(r *http.Request) string {
	id, _ := GetIdentity(r)
	return id.UserID
}

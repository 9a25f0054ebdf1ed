package filesystem

import "time"

// PermissionLevel is what a share recipient may do with the shared subtree.
type PermissionLevel string

const (
	PermissionView  PermissionLevel = "view"
	PermissionEdit  PermissionLevel = "edit"
	PermissionAdmin PermissionLevel = "admin"
)

func (p PermissionLevel) Valid() bool {
	switch p {
	case PermissionView, PermissionEdit, PermissionAdmin:
		return true
	}
	return false
}

// Share is a directed grant on one node (and implicitly its subtree).
type Share struct {
	ID               string          `json:"id" db:"id"`
	FileID           string          `json:"file_id" db:"file_id"`
	SharedByUserID   string          `json:"shared_by_user_id" db:"shared_by_user_id"`
	SharedWithUserID string          `json:"shared_with_user_id" db:"shared_with_user_id"`
	PermissionLevel  PermissionLevel `json:"permission_level" db:"permission_level"`
	Message          *string         `json:"message,omitempty" db:"message"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
	LastAccessedAt   *time.Time      `json:"last_accessed_at,omitempty" db:"last_accessed_at"`
}

// Active reports whether the share is visible at now.
func (s *Share) Active(now time.Time) bool {
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}

// ShareDirection tags an entry of the combined shared view.
type ShareDirection string

const (
	SharedWithMe ShareDirection = "shared_with_me"
	SharedByMe   ShareDirection = "shared_by_me"
)

// ShareContext is the share record captured at the root of a shared subtree
// and stamped onto every node below it.
type ShareContext struct {
	ShareID          string          `json:"share_id"`
	PermissionLevel  PermissionLevel `json:"permission_level"`
	SharedByUserID   string          `json:"shared_by_user_id"`
	SharedWithUserID string          `json:"shared_with_user_id"`
	ShareMessage     *string         `json:"share_message,omitempty"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	ShareCreatedAt   time.Time       `json:"share_created_at"`
}

// ContextOf captures the fields of s that travel with a shared subtree.
func ContextOf(s *Share) *ShareContext {
	return &ShareContext{
		ShareID:          s.ID,
		PermissionLevel:  s.PermissionLevel,
		SharedByUserID:   s.SharedByUserID,
		SharedWithUserID: s.SharedWithUserID,
		ShareMessage:     s.Message,
		ExpiresAt:        s.ExpiresAt,
		ShareCreatedAt:   s.CreatedAt,
	}
}

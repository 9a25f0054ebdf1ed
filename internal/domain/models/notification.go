package models

import "time"

// Notification is a persisted, user-facing event (file shared, upload done, ...).
type Notification struct {
	ID        string         `json:"id" db:"id"`
	UserID    string         `json:"user_id" db:"user_id"`
	Type      string         `json:"type" db:"type"`
	Title     string         `json:"title" db:"title"`
	Payload   map[string]any `json:"payload,omitempty" db:"payload"`
	IsRead    bool           `json:"is_read" db:"is_read"`
	ReadAt    *time.Time     `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

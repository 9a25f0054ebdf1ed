// Package events delivers fire-and-forget notifications and analytics.
package events

import "context"

// Event types emitted by the services.
const (
	FileUploaded  = "file_uploaded"
	FileDeleted   = "file_deleted"
	FileShared    = "file_shared"
	TrashPurged   = "trash_purged"
	TrashEmptied  = "trash_emptied"
	UploadAborted = "upload_aborted"
)

// Payload keys with a meaning to the dispatcher.
const (
	// KeyRecipient marks the user a notification is persisted for.
	KeyRecipient = "recipient_id"
	KeyTitle     = "title"
)

// Sink receives events. Emit never blocks on delivery and never fails the caller.
type Sink interface {
	Emit(ctx context.Context, eventType string, payload map[string]any)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, string, map[string]any) {}

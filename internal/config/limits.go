package config

import "time"

const (
	// MaxNodeNameLength is the maximum length for file and folder names.
	// Fits the VARCHAR(255) column.
	MaxNodeNameLength = 255

	// MaxDescriptionLength is the maximum length for node descriptions.
	MaxDescriptionLength = 255

	// MaxTags is the maximum number of tags on one node.
	MaxTags = 20

	// MaxTagLength is the maximum length of a single tag.
	MaxTagLength = 50

	// MaxShareMessageLength is the maximum length of a share message.
	MaxShareMessageLength = 500

	// DefaultMaxTreeDepth caps how deep a materialized tree view goes.
	// Deeper nodes are left out of the view and a warning is logged.
	DefaultMaxTreeDepth = 256

	// DefaultTrashRetention is how long a node stays in the trash before
	// the purge sweep removes it.
	DefaultTrashRetention = 30 * 24 * time.Hour

	// NotificationRetention is how long read notifications are kept.
	NotificationRetention = 30 * 24 * time.Hour

	// SignedURLTTL is the lifetime of download URLs.
	SignedURLTTL = time.Hour

	// MaxPartNumber is the highest part number S3 accepts.
	MaxPartNumber = 10000

	// UploadSessionTTL is how long a multipart session accepts parts.
	UploadSessionTTL = 7 * 24 * time.Hour

	// MaxSingleUploadBytes bounds single-shot uploads; larger files go multipart.
	MaxSingleUploadBytes = 100 << 20

	// MaxPartBytes bounds one multipart chunk sent through the API.
	MaxPartBytes = 64 << 20

	// SingleUploadPrefix and MultipartPrefix are the only key spaces a file
	// node may point into.
	SingleUploadPrefix = "files/"
	MultipartPrefix    = "videos/"
)

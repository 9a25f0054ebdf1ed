package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	models "fileflow/internal/domain/models/filesystem"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
)

// BaseTime is the creation time used by fixtures.
var BaseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Folder builds an unsaved folder node.
func Folder(owner string, parent *string, name string) *models.Node {
	return &models.Node{
		OwnerID:     owner,
		ParentID:    parent,
		Name:        name,
		IsFolder:    true,
		AccessLevel: models.AccessPrivate,
		Tags:        []string{},
		CreatedAt:   BaseTime,
		UpdatedAt:   BaseTime,
	}
}

// File builds an unsaved file node of size bytes stored under key.
func File(owner string, parent *string, name string, size int64, key string) *models.Node {
	return &models.Node{
		OwnerID:     owner,
		ParentID:    parent,
		Name:        name,
		AccessLevel: models.AccessPrivate,
		FileInfo: &models.FileInfo{
			FileType:    "application/octet-stream",
			FileSize:    size,
			StoragePath: key,
		},
		Tags:      []string{},
		CreatedAt: BaseTime,
		UpdatedAt: BaseTime,
	}
}

// MustCreate inserts n and fails the test on error.
func MustCreate(t *testing.T, repo fsRepo.NodeRepository, n *models.Node) *models.Node {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), n))
	require.NotEmpty(t, n.ID)
	return n
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

package filesystem

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/filesystem"
	fsSvc "fileflow/internal/domain/services/filesystem"
	"fileflow/internal/events"
)

func TestCreateFolder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     fsSvc.CreateFolderRequest
		wantErr error
	}{
		{
			name:    "empty name",
			req:     fsSvc.CreateFolderRequest{OwnerID: "alice", Name: "   "},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "forbidden character",
			req:     fsSvc.CreateFolderRequest{OwnerID: "alice", Name: "a/b"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "too long",
			req:     fsSvc.CreateFolderRequest{OwnerID: "alice", Name: strings.Repeat("a", 256)},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "bad access level",
			req:     fsSvc.CreateFolderRequest{OwnerID: "alice", Name: "ok", AccessLevel: ptr(models.AccessLevel("secret"))},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing parent",
			req:     fsSvc.CreateFolderRequest{OwnerID: "alice", Name: "ok", ParentID: ptr("nope")},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := tt.req
			_, err := env.nodeSvc.CreateFolder(context.Background(), &req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateFolder_Defaults(t *testing.T) {
	env := newTestEnv(t)

	n, err := env.nodeSvc.CreateFolder(context.Background(), &fsSvc.CreateFolderRequest{
		OwnerID:  "alice",
		Name:     "  Docs ",
		ParentID: ptr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Docs", n.Name)
	assert.Nil(t, n.ParentID)
	assert.Equal(t, models.AccessPrivate, n.AccessLevel)
	assert.NotNil(t, n.Tags)
	assert.Nil(t, n.FileInfo)
}

func TestCreateFolder_ParentMustBeFolder(t *testing.T) {
	env := newTestEnv(t)
	f := env.file(t, "alice", nil, "a.pdf", 10)

	_, err := env.nodeSvc.CreateFolder(context.Background(), &fsSvc.CreateFolderRequest{
		OwnerID:  "alice",
		Name:     "child",
		ParentID: &f.ID,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "parent_not_found", domain.Reason(err))
}

func TestCreateFolder_ParentOfOtherOwner(t *testing.T) {
	env := newTestEnv(t)
	bobs := env.folder(t, "bob", nil, "Bob")

	_, err := env.nodeSvc.CreateFolder(context.Background(), &fsSvc.CreateFolderRequest{
		OwnerID:  "alice",
		Name:     "child",
		ParentID: &bobs.ID,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateFolder_DuplicateName(t *testing.T) {
	env := newTestEnv(t)
	first := env.folder(t, "alice", nil, "Docs")

	_, err := env.nodeSvc.CreateFolder(context.Background(), &fsSvc.CreateFolderRequest{OwnerID: "alice", Name: "Docs"})
	require.Error(t, err)
	assert.Equal(t, domain.KindDuplicateName, domain.Kind(err))

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.ResourceID)
}

func TestCreateFolder_ConcurrentDuplicates(t *testing.T) {
	env := newTestEnv(t)

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.nodeSvc.CreateFolder(context.Background(), &fsSvc.CreateFolderRequest{OwnerID: "alice", Name: "Docs"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, domain.KindDuplicateName, domain.Kind(err))
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, env.tree(t, "alice"), 1)
}

func TestCreateFile_Shape(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.nodeSvc.CreateFile(ctx, &fsSvc.CreateFileRequest{OwnerID: "alice", Name: "a.pdf"})
	assert.ErrorIs(t, err, domain.ErrFileMissingInfo)

	_, err = env.nodeSvc.CreateFile(ctx, &fsSvc.CreateFileRequest{
		OwnerID:  "alice",
		Name:     "a.pdf",
		FileInfo: &models.FileInfo{FileType: "application/pdf", FileSize: -1, StoragePath: "files/a.pdf"},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	n, err := env.nodeSvc.CreateFile(ctx, &fsSvc.CreateFileRequest{
		OwnerID:  "alice",
		Name:     "a.pdf",
		FileInfo: &models.FileInfo{FileType: "application/pdf", FileSize: 0, StoragePath: "files/a.pdf"},
	})
	require.NoError(t, err)
	assert.False(t, n.IsFolder)
	assert.Equal(t, models.AccessPrivate, n.AccessLevel)
	assert.Contains(t, env.sink.types(), events.FileUploaded)
}

func TestCreateFile_StoragePath(t *testing.T) {
	thumb := func(s string) *string { return &s }
	tests := []struct {
		name      string
		key       string
		thumbnail *string
		wantErr   bool
	}{
		{name: "single upload key", key: "files/report_1700000000000_ab12cd34.pdf"},
		{name: "multipart key", key: "videos/clip.mp4_ab12cd34"},
		{name: "dots inside a name", key: "files/report..v2.pdf"},
		{name: "thumbnail outside upload prefixes", key: "files/a.pdf", thumbnail: thumb("thumbs/a.png")},
		{name: "parent traversal", key: "../files/a.pdf", wantErr: true},
		{name: "traversal after prefix", key: "files/../secrets/a.pdf", wantErr: true},
		{name: "absolute", key: "/etc/passwd", wantErr: true},
		{name: "foreign prefix", key: "other/a.pdf", wantErr: true},
		{name: "bare prefix", key: "files/", wantErr: true},
		{name: "double slash", key: "files//a.pdf", wantErr: true},
		{name: "backslash", key: "files\\a.pdf", wantErr: true},
		{name: "thumbnail traversal", key: "files/a.pdf", thumbnail: thumb("../a.png"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.nodeSvc.CreateFile(context.Background(), &fsSvc.CreateFileRequest{
				OwnerID: "alice",
				Name:    "a.pdf",
				FileInfo: &models.FileInfo{
					FileType:      "application/pdf",
					FileSize:      1,
					StoragePath:   tt.key,
					ThumbnailPath: tt.thumbnail,
				},
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				assert.Empty(t, env.tree(t, "alice"))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCreateFile_SameNameAsFolder(t *testing.T) {
	env := newTestEnv(t)
	env.folder(t, "alice", nil, "report")
	env.file(t, "alice", nil, "report", 10)

	roots := env.tree(t, "alice")
	require.Len(t, roots, 2)
	assert.True(t, roots[0].IsFolder)
	assert.False(t, roots[1].IsFolder)
}

func TestRenameFolder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")
	env.folder(t, "alice", nil, "Taken")
	f := env.file(t, "alice", nil, "a.pdf", 1)

	same, err := env.nodeSvc.RenameFolder(ctx, docs.ID, "alice", "Docs")
	require.NoError(t, err)
	assert.True(t, same.UpdatedAt.Equal(docs.UpdatedAt))

	_, err = env.nodeSvc.RenameFolder(ctx, docs.ID, "alice", "Taken")
	assert.Equal(t, domain.KindDuplicateName, domain.Kind(err))

	_, err = env.nodeSvc.RenameFolder(ctx, f.ID, "alice", "b.pdf")
	assert.ErrorIs(t, err, domain.ErrNotAFolder)

	_, err = env.nodeSvc.RenameFolder(ctx, docs.ID, "bob", "Mine")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	renamed, err := env.nodeSvc.RenameFolder(ctx, docs.ID, "alice", "Papers")
	require.NoError(t, err)
	assert.Equal(t, "Papers", renamed.Name)
	assert.True(t, renamed.UpdatedAt.After(docs.UpdatedAt))
}

func TestMove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.folder(t, "alice", nil, "A")
	b := env.folder(t, "alice", nil, "B")
	f := env.file(t, "alice", a, "x.pdf", 1)

	res, err := env.nodeSvc.Move(ctx, f.ID, &b.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)

	roots := env.tree(t, "alice")
	assert.Empty(t, findRoot(roots, "A").Children)
	require.Len(t, findRoot(roots, "B").Children, 1)

	res, err = env.nodeSvc.Move(ctx, f.ID, nil, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
	assert.NotNil(t, findRoot(env.tree(t, "alice"), "x.pdf"))
}

func TestMove_SameParentIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.folder(t, "alice", nil, "A")
	f := env.file(t, "alice", a, "x.pdf", 1)
	env.clock.Advance(time.Hour)

	res, err := env.nodeSvc.Move(ctx, f.ID, &a.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Affected)

	got, err := env.nodeSvc.GetNode(ctx, f.ID, "alice")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(f.UpdatedAt))

	root := env.folder(t, "alice", nil, "R")
	res, err = env.nodeSvc.Move(ctx, root.ID, ptr(""), "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Affected)
}

func TestMove_Cycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.folder(t, "alice", nil, "A")
	b := env.folder(t, "alice", a, "B")
	c := env.folder(t, "alice", b, "C")

	_, err := env.nodeSvc.Move(ctx, a.ID, &a.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrCyclicMove)

	_, err = env.nodeSvc.Move(ctx, a.ID, &c.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrCyclicMove)
	assert.Equal(t, domain.KindInvalidState, domain.Kind(err))

	// Moving a descendant up is fine.
	res, err := env.nodeSvc.Move(ctx, c.ID, &a.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
}

func TestMove_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.folder(t, "alice", nil, "A")
	f := env.file(t, "alice", nil, "x.pdf", 1)
	env.file(t, "alice", a, "x.pdf", 1)
	bobs := env.folder(t, "bob", nil, "Bob")

	_, err := env.nodeSvc.Move(ctx, f.ID, &a.ID, "alice")
	assert.Equal(t, domain.KindDuplicateName, domain.Kind(err))

	_, err = env.nodeSvc.Move(ctx, f.ID, &bobs.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.nodeSvc.Move(ctx, a.ID, &f.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.nodeSvc.Move(ctx, f.ID, &a.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_Cascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.folder(t, "alice", nil, "A")
	b := env.folder(t, "alice", a, "B")
	env.file(t, "alice", b, "x.pdf", 10)
	env.file(t, "alice", a, "y.pdf", 20)
	env.folder(t, "alice", nil, "Other")

	res, err := env.nodeSvc.Delete(ctx, a.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Affected)
	assert.Len(t, res.NodeIDs, 4)

	roots := env.tree(t, "alice")
	require.Len(t, roots, 1)
	assert.Equal(t, "Other", roots[0].Name)

	trash, err := env.treeSvc.GetTrash(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, trash, 4)
	for _, tn := range trash {
		assert.True(t, tn.DeletedAt.Equal(res.DeletedAt))
	}
	assert.Contains(t, env.sink.types(), events.FileDeleted)

	_, err = env.nodeSvc.Delete(ctx, a.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateAccessLevel_Propagates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.folder(t, "alice", nil, "A")
	b := env.folder(t, "alice", a, "B")
	env.file(t, "alice", b, "x.pdf", 10)
	trashed := env.file(t, "alice", a, "old.pdf", 10)
	_, err := env.nodeSvc.Delete(ctx, trashed.ID, "alice")
	require.NoError(t, err)

	n, err := env.nodeSvc.UpdateAccessLevel(ctx, a.ID, "alice", models.AccessPublic)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	public := models.AccessPublic
	roots, err := env.treeSvc.GetFileSystemTree(ctx, "alice", &public)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 1)
	require.Len(t, roots[0].Children[0].Children, 1)
	assert.Equal(t, "x.pdf", roots[0].Children[0].Children[0].Name)

	// The trashed file got the new level too, so a restore keeps views consistent.
	_, err = env.trashSvc.Restore(ctx, trashed.ID, "alice")
	require.NoError(t, err)
	roots, err = env.treeSvc.GetFileSystemTree(ctx, "alice", &public)
	require.NoError(t, err)
	assert.Len(t, roots[0].Children, 2)

	_, err = env.nodeSvc.UpdateAccessLevel(ctx, a.ID, "alice", models.AccessLevel("secret"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.nodeSvc.UpdateAccessLevel(ctx, a.ID, "bob", models.AccessPublic)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func ptr[T any](v T) *T {
	return &v
}

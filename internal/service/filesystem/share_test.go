package filesystem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/filesystem"
	fsSvc "fileflow/internal/domain/services/filesystem"
	"fileflow/internal/events"
)

func shareReq(fileID, by, with string) *fsSvc.ShareRequest {
	return &fsSvc.ShareRequest{
		FileID:           fileID,
		SharedByUserID:   by,
		SharedWithUserID: with,
		PermissionLevel:  models.PermissionView,
	}
}

func TestShare_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")

	tests := []struct {
		name   string
		mutate func(*fsSvc.ShareRequest)
		want   error
	}{
		{"self share", func(r *fsSvc.ShareRequest) { r.SharedWithUserID = "alice" }, domain.ErrInvalidState},
		{"bad permission", func(r *fsSvc.ShareRequest) { r.PermissionLevel = "owner" }, domain.ErrValidation},
		{"missing recipient", func(r *fsSvc.ShareRequest) { r.SharedWithUserID = "" }, domain.ErrValidation},
		{"expiry in the past", func(r *fsSvc.ShareRequest) {
			past := env.clock.Now().Add(-time.Hour)
			r.ExpiresAt = &past
		}, domain.ErrValidation},
		{"foreign node", func(r *fsSvc.ShareRequest) { r.SharedByUserID = "mallory" }, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := shareReq(docs.ID, "alice", "bob")
			tt.mutate(req)
			_, err := env.shareSvc.Share(ctx, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestShare_UpsertKeepsIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")

	first, err := env.shareSvc.Share(ctx, shareReq(docs.ID, "alice", "bob"))
	require.NoError(t, err)
	env.clock.Advance(time.Hour)

	req := shareReq(docs.ID, "alice", "bob")
	req.PermissionLevel = models.PermissionEdit
	second, err := env.shareSvc.Share(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.PermissionEdit, second.PermissionLevel)

	roots, err := env.shareSvc.GetSharedWithMe(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, models.PermissionEdit, roots[0].PermissionLevel)
	assert.Contains(t, env.sink.types(), events.FileShared)
}

// Sharing a nested folder must not leak its siblings or parents.
func TestSharedWithMe_Isolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")
	work := env.folder(t, "alice", docs, "Work")
	env.folder(t, "alice", docs, "Personal")
	env.file(t, "alice", work, "plan.pdf", 42)
	env.file(t, "alice", docs, "diary.txt", 7)

	_, err := env.shareSvc.Share(ctx, shareReq(work.ID, "alice", "bob"))
	require.NoError(t, err)

	roots, err := env.shareSvc.GetSharedWithMe(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "Work", roots[0].Name)
	assert.Equal(t, int64(42), roots[0].Size())
	require.Len(t, roots[0].Children, 1)

	child := roots[0].Children[0]
	assert.Equal(t, "plan.pdf", child.Name)
	require.True(t, child.Shared())
	assert.Equal(t, roots[0].ShareID, child.ShareID)
	assert.Equal(t, models.SharedWithMe, child.Direction)

	mine, err := env.shareSvc.GetSharedWithMe(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestSharedWithMe_Expiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")

	req := shareReq(docs.ID, "alice", "bob")
	exp := env.clock.Now().Add(time.Hour)
	req.ExpiresAt = &exp
	_, err := env.shareSvc.Share(ctx, req)
	require.NoError(t, err)

	roots, err := env.shareSvc.GetSharedWithMe(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, roots, 1)

	_, err = env.shareSvc.CanAccess(ctx, "bob", docs.ID)
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)
	roots, err = env.shareSvc.GetSharedWithMe(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, roots)

	_, err = env.shareSvc.CanAccess(ctx, "bob", docs.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := env.shareSvc.ExpireShares(ctx, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSharedWithMe_NestedRoots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")
	inner := env.folder(t, "alice", docs, "Inner")
	env.file(t, "alice", inner, "x.bin", 3)

	_, err := env.shareSvc.Share(ctx, shareReq(inner.ID, "alice", "bob"))
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = env.shareSvc.Share(ctx, shareReq(docs.ID, "alice", "bob"))
	require.NoError(t, err)

	roots, err := env.shareSvc.GetSharedWithMe(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, roots, 2)

	// Newest grant first; the outer tree still contains the inner folder.
	assert.Equal(t, "Docs", roots[0].Name)
	require.NotNil(t, roots[0].Find("Inner"))
	assert.Equal(t, int64(3), roots[0].Size())
	assert.Equal(t, roots[0].ShareID, roots[0].Find("Inner").ShareID)

	assert.Equal(t, "Inner", roots[1].Name)
	assert.NotEqual(t, roots[0].ShareID, roots[1].ShareID)
}

func TestSharedWithMe_TrashedRootHidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")
	_, err := env.shareSvc.Share(ctx, shareReq(docs.ID, "alice", "bob"))
	require.NoError(t, err)

	_, err = env.nodeSvc.Delete(ctx, docs.ID, "alice")
	require.NoError(t, err)

	roots, err := env.shareSvc.GetSharedWithMe(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, roots)

	_, err = env.trashSvc.Restore(ctx, docs.ID, "alice")
	require.NoError(t, err)
	roots, err = env.shareSvc.GetSharedWithMe(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, roots, 1)
}

func TestGetAllShared_Directions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mine := env.folder(t, "alice", nil, "Mine")
	theirs := env.folder(t, "bob", nil, "Theirs")

	_, err := env.shareSvc.Share(ctx, shareReq(mine.ID, "alice", "bob"))
	require.NoError(t, err)
	_, err = env.shareSvc.Share(ctx, shareReq(theirs.ID, "bob", "alice"))
	require.NoError(t, err)

	all, err := env.shareSvc.GetAllShared(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Theirs", all[0].Name)
	assert.Equal(t, models.SharedWithMe, all[0].Direction)
	assert.Equal(t, "Mine", all[1].Name)
	assert.Equal(t, models.SharedByMe, all[1].Direction)
}

func TestSharedByMe_OneTreePerRecipient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")
	env.file(t, "alice", docs, "a.pdf", 10)

	toBob, err := env.shareSvc.Share(ctx, shareReq(docs.ID, "alice", "bob"))
	require.NoError(t, err)
	toCarol, err := env.shareSvc.Share(ctx, shareReq(docs.ID, "alice", "carol"))
	require.NoError(t, err)

	given, err := env.shareSvc.GetSharedByMe(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, given, 2)

	recipients := map[string]string{}
	for _, tree := range given {
		assert.Equal(t, "Docs", tree.Name)
		assert.Equal(t, models.SharedByMe, tree.Direction)
		require.NotNil(t, tree.ShareContext)
		require.Len(t, tree.Children, 1)
		assert.Equal(t, tree.ShareContext.ShareID, tree.Children[0].ShareContext.ShareID)
		recipients[tree.ShareContext.ShareID] = tree.ShareContext.SharedWithUserID
	}
	assert.Equal(t, map[string]string{toBob.ID: "bob", toCarol.ID: "carol"}, recipients)

	// Each recipient still sees a single tree.
	for _, user := range []string{"bob", "carol"} {
		received, err := env.shareSvc.GetSharedWithMe(ctx, user)
		require.NoError(t, err)
		assert.Len(t, received, 1, user)
	}

	all, err := env.shareSvc.GetAllShared(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCanAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")
	sub := env.folder(t, "alice", docs, "Sub")
	f := env.file(t, "alice", sub, "a.pdf", 1)
	other := env.folder(t, "alice", nil, "Other")

	_, err := env.shareSvc.Share(ctx, shareReq(docs.ID, "alice", "bob"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		userID string
		nodeID string
		ok     bool
	}{
		{"owner", "alice", other.ID, true},
		{"shared root", "bob", docs.ID, true},
		{"descendant of shared root", "bob", f.ID, true},
		{"unshared node", "bob", other.ID, false},
		{"stranger", "carol", f.ID, false},
		{"unknown id", "bob", "missing", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := env.shareSvc.CanAccess(ctx, tt.userID, tt.nodeID)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.nodeID, n.ID)
				return
			}
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestUnshare(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")
	sh, err := env.shareSvc.Share(ctx, shareReq(docs.ID, "alice", "bob"))
	require.NoError(t, err)

	err = env.shareSvc.Unshare(ctx, sh.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, env.shareSvc.Unshare(ctx, sh.ID, "alice"))
	roots, err := env.shareSvc.GetSharedWithMe(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, roots)
}

// Docs/2024/report.pdf shared as Docs, then 2024 trashed.
func TestScenario_TrashInsideSharedFolder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")
	y2024 := env.folder(t, "alice", docs, "2024")
	env.file(t, "alice", y2024, "report.pdf", 500000)

	_, err := env.shareSvc.Share(ctx, shareReq(docs.ID, "alice", "bob"))
	require.NoError(t, err)

	shared, err := env.shareSvc.GetSharedWithMe(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, int64(500000), shared[0].Size())

	_, err = env.nodeSvc.Delete(ctx, y2024.ID, "alice")
	require.NoError(t, err)

	roots := env.tree(t, "alice")
	require.Len(t, roots, 1)
	assert.Equal(t, "Docs", roots[0].Name)
	assert.Empty(t, roots[0].Children)
	assert.Equal(t, int64(0), roots[0].Size())

	trash, err := env.treeSvc.GetTrash(ctx, "alice")
	require.NoError(t, err)
	var names []string
	for _, n := range trash {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"2024", "report.pdf"}, names)
	assert.Equal(t, int64(500000), trash[0].Size())

	shared, err = env.shareSvc.GetSharedWithMe(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "Docs", shared[0].Name)
	assert.Empty(t, shared[0].Children)
	assert.Equal(t, int64(0), shared[0].Size())
}

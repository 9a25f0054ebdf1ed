package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/filesystem"
)

func (suite *Suite) RunShareTests(t *testing.T) {
	t.Run("Upsert_KeepsIdentity", suite.TestUpsert_KeepsIdentity)
	t.Run("List_ActiveOnly", suite.TestList_ActiveOnly)
	t.Run("List_NewestFirst", suite.TestList_NewestFirst)
	t.Run("ListActiveFor", suite.TestListActiveFor)
	t.Run("Delete_ScopedToSharer", suite.TestDelete_ScopedToSharer)
	t.Run("DeleteExpired", suite.TestDeleteExpired)
}

func newShare(fileID, by, with string, created time.Time, expires *time.Time) *models.Share {
	return &models.Share{
		FileID:           fileID,
		SharedByUserID:   by,
		SharedWithUserID: with,
		PermissionLevel:  models.PermissionView,
		ExpiresAt:        expires,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func (suite *Suite) TestUpsert_KeepsIdentity(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	n := MustCreate(t, r.Nodes, Folder("alice", nil, "Docs"))
	first := newShare(n.ID, "alice", "bob", BaseTime, nil)
	require.NoError(t, r.Shares.Upsert(ctx, first))
	require.NotEmpty(t, first.ID)

	second := newShare(n.ID, "alice", "bob", BaseTime.Add(time.Hour), nil)
	second.PermissionLevel = models.PermissionEdit
	require.NoError(t, r.Shares.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.CreatedAt.Equal(BaseTime))

	got, err := r.Shares.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermissionEdit, got.PermissionLevel)
}

func (suite *Suite) TestList_ActiveOnly(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()
	now := BaseTime.Add(24 * time.Hour)

	a := MustCreate(t, r.Nodes, Folder("alice", nil, "a"))
	b := MustCreate(t, r.Nodes, Folder("alice", nil, "b"))
	require.NoError(t, r.Shares.Upsert(ctx, newShare(a.ID, "alice", "bob", BaseTime, Ptr(now.Add(-time.Minute)))))
	require.NoError(t, r.Shares.Upsert(ctx, newShare(b.ID, "alice", "bob", BaseTime, Ptr(now.Add(time.Minute)))))

	with, err := r.Shares.ListSharedWith(ctx, "bob", now)
	require.NoError(t, err)
	require.Len(t, with, 1)
	assert.Equal(t, b.ID, with[0].FileID)

	by, err := r.Shares.ListSharedBy(ctx, "alice", now)
	require.NoError(t, err)
	require.Len(t, by, 1)
	assert.Equal(t, b.ID, by[0].FileID)
}

func (suite *Suite) TestList_NewestFirst(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	a := MustCreate(t, r.Nodes, Folder("alice", nil, "a"))
	b := MustCreate(t, r.Nodes, Folder("alice", nil, "b"))
	require.NoError(t, r.Shares.Upsert(ctx, newShare(a.ID, "alice", "bob", BaseTime, nil)))
	require.NoError(t, r.Shares.Upsert(ctx, newShare(b.ID, "alice", "bob", BaseTime.Add(time.Hour), nil)))

	with, err := r.Shares.ListSharedWith(ctx, "bob", BaseTime.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, with, 2)
	assert.Equal(t, b.ID, with[0].FileID)
	assert.Equal(t, a.ID, with[1].FileID)
}

func (suite *Suite) TestListActiveFor(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	a := MustCreate(t, r.Nodes, Folder("alice", nil, "a"))
	b := MustCreate(t, r.Nodes, Folder("alice", nil, "b"))
	require.NoError(t, r.Shares.Upsert(ctx, newShare(a.ID, "alice", "bob", BaseTime, nil)))
	require.NoError(t, r.Shares.Upsert(ctx, newShare(b.ID, "alice", "carol", BaseTime, nil)))

	got, err := r.Shares.ListActiveFor(ctx, []string{a.ID, b.ID}, "bob", BaseTime)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].FileID)
}

func (suite *Suite) TestDelete_ScopedToSharer(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	a := MustCreate(t, r.Nodes, Folder("alice", nil, "a"))
	sh := newShare(a.ID, "alice", "bob", BaseTime, nil)
	require.NoError(t, r.Shares.Upsert(ctx, sh))

	err := r.Shares.Delete(ctx, sh.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, r.Shares.Delete(ctx, sh.ID, "alice"))
	_, err = r.Shares.GetByID(ctx, sh.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (suite *Suite) TestDeleteExpired(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()
	now := BaseTime.Add(24 * time.Hour)

	a := MustCreate(t, r.Nodes, Folder("alice", nil, "a"))
	b := MustCreate(t, r.Nodes, Folder("alice", nil, "b"))
	c := MustCreate(t, r.Nodes, Folder("alice", nil, "c"))
	require.NoError(t, r.Shares.Upsert(ctx, newShare(a.ID, "alice", "bob", BaseTime, Ptr(now.Add(-time.Second)))))
	require.NoError(t, r.Shares.Upsert(ctx, newShare(b.ID, "alice", "bob", BaseTime, Ptr(now.Add(time.Hour)))))
	require.NoError(t, r.Shares.Upsert(ctx, newShare(c.ID, "alice", "bob", BaseTime, nil)))

	n, err := r.Shares.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.Shares.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/filesystem"
)

func (suite *Suite) RunNodeTests(t *testing.T) {
	t.Run("Create_AssignsID", suite.TestCreate_AssignsID)
	t.Run("Create_DuplicateName", suite.TestCreate_DuplicateName)
	t.Run("Create_FolderAndFileSameName", suite.TestCreate_FolderAndFileSameName)
	t.Run("Create_TrashedSlotIsFree", suite.TestCreate_TrashedSlotIsFree)
	t.Run("GetByID_OwnerScoped", suite.TestGetByID_OwnerScoped)
	t.Run("Update_Conflict", suite.TestUpdate_Conflict)
	t.Run("Update_TrashedRow", suite.TestUpdate_TrashedRow)
	t.Run("ListChildren", suite.TestListChildren)
	t.Run("SoftDeleteAndRestore", suite.TestSoftDeleteAndRestore)
	t.Run("Restore_Conflict", suite.TestRestore_Conflict)
	t.Run("ListDeletedBefore", suite.TestListDeletedBefore)
	t.Run("SetAccessLevel", suite.TestSetAccessLevel)
	t.Run("HardDelete_RemovesShares", suite.TestHardDelete_RemovesShares)
}

func (suite *Suite) TestCreate_AssignsID(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	n := MustCreate(t, r.Nodes, Folder("alice", nil, "Docs"))

	got, err := r.Nodes.GetByID(ctx, n.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Docs", got.Name)
	assert.True(t, got.IsFolder)
	assert.Nil(t, got.ParentID)
	assert.Nil(t, got.FileInfo)
	assert.Nil(t, got.DeletedAt)
}

func (suite *Suite) TestCreate_DuplicateName(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	first := MustCreate(t, r.Nodes, Folder("alice", nil, "Docs"))
	err := r.Nodes.Create(ctx, Folder("alice", nil, "Docs"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)

	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, first.ID, conflict.ResourceID)

	// Another owner may use the same name.
	MustCreate(t, r.Nodes, Folder("bob", nil, "Docs"))
}

func (suite *Suite) TestCreate_FolderAndFileSameName(t *testing.T) {
	r := suite.NewRepos(t)

	MustCreate(t, r.Nodes, Folder("alice", nil, "notes"))
	MustCreate(t, r.Nodes, File("alice", nil, "notes", 10, "files/notes"))
}

func (suite *Suite) TestCreate_TrashedSlotIsFree(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	old := MustCreate(t, r.Nodes, Folder("alice", nil, "Docs"))
	n, err := r.Nodes.SoftDelete(ctx, []string{old.ID}, BaseTime.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	MustCreate(t, r.Nodes, Folder("alice", nil, "Docs"))
}

func (suite *Suite) TestGetByID_OwnerScoped(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	n := MustCreate(t, r.Nodes, Folder("alice", nil, "Docs"))

	_, err := r.Nodes.GetByID(ctx, n.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := r.Nodes.GetByIDOnly(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerID)

	_, err = r.Nodes.GetTrashed(ctx, n.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (suite *Suite) TestUpdate_Conflict(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	MustCreate(t, r.Nodes, Folder("alice", nil, "A"))
	b := MustCreate(t, r.Nodes, Folder("alice", nil, "B"))

	b.Name = "A"
	err := r.Nodes.Update(ctx, b)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := r.Nodes.GetByID(ctx, b.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name)
}

func (suite *Suite) TestUpdate_TrashedRow(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	parent := MustCreate(t, r.Nodes, Folder("alice", nil, "P"))
	child := MustCreate(t, r.Nodes, Folder("alice", &parent.ID, "C"))
	_, err := r.Nodes.SoftDelete(ctx, []string{child.ID}, BaseTime.Add(time.Hour))
	require.NoError(t, err)

	trashed, err := r.Nodes.GetTrashed(ctx, child.ID, "alice")
	require.NoError(t, err)
	trashed.ParentID = nil
	require.NoError(t, r.Nodes.Update(ctx, trashed))

	got, err := r.Nodes.GetTrashed(ctx, child.ID, "alice")
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
	assert.NotNil(t, got.DeletedAt)
}

func (suite *Suite) TestListChildren(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	root := MustCreate(t, r.Nodes, Folder("alice", nil, "root"))
	a := MustCreate(t, r.Nodes, Folder("alice", &root.ID, "a"))
	MustCreate(t, r.Nodes, File("alice", &root.ID, "f", 1, "k1"))
	gone := MustCreate(t, r.Nodes, File("alice", &a.ID, "g", 1, "k2"))
	_, err := r.Nodes.SoftDelete(ctx, []string{gone.ID}, BaseTime.Add(time.Hour))
	require.NoError(t, err)

	live, err := r.Nodes.ListChildren(ctx, []string{root.ID, a.ID}, false)
	require.NoError(t, err)
	assert.Len(t, live, 2)

	all, err := r.Nodes.ListChildren(ctx, []string{root.ID, a.ID}, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byID, err := r.Nodes.ListByIDs(ctx, []string{gone.ID, root.ID})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
}

func (suite *Suite) TestSoftDeleteAndRestore(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	a := MustCreate(t, r.Nodes, Folder("alice", nil, "a"))
	b := MustCreate(t, r.Nodes, File("alice", &a.ID, "b", 5, "kb"))
	at := BaseTime.Add(time.Hour)

	n, err := r.Nodes.SoftDelete(ctx, []string{a.ID, b.ID}, at)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Already trashed rows are not stamped again.
	n, err = r.Nodes.SoftDelete(ctx, []string{a.ID}, at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	trashed, err := r.Nodes.ListTrashedByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, trashed, 2)
	for _, tn := range trashed {
		require.NotNil(t, tn.DeletedAt)
		assert.True(t, tn.DeletedAt.Equal(at))
	}

	live, err := r.Nodes.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, live)

	n, err = r.Nodes.Restore(ctx, []string{a.ID, b.ID}, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	live, err = r.Nodes.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, live, 2)
}

func (suite *Suite) TestRestore_Conflict(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	old := MustCreate(t, r.Nodes, Folder("alice", nil, "Docs"))
	_, err := r.Nodes.SoftDelete(ctx, []string{old.ID}, BaseTime.Add(time.Hour))
	require.NoError(t, err)
	MustCreate(t, r.Nodes, Folder("alice", nil, "Docs"))

	_, err = r.Nodes.Restore(ctx, []string{old.ID}, BaseTime.Add(2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = r.Nodes.GetTrashed(ctx, old.ID, "alice")
	assert.NoError(t, err)
}

func (suite *Suite) TestListDeletedBefore(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	a := MustCreate(t, r.Nodes, Folder("alice", nil, "a"))
	b := MustCreate(t, r.Nodes, Folder("bob", nil, "b"))
	MustCreate(t, r.Nodes, Folder("bob", nil, "live"))

	_, err := r.Nodes.SoftDelete(ctx, []string{a.ID}, BaseTime)
	require.NoError(t, err)
	_, err = r.Nodes.SoftDelete(ctx, []string{b.ID}, BaseTime.Add(48*time.Hour))
	require.NoError(t, err)

	got, err := r.Nodes.ListDeletedBefore(ctx, BaseTime.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}

func (suite *Suite) TestSetAccessLevel(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	a := MustCreate(t, r.Nodes, Folder("alice", nil, "a"))
	b := MustCreate(t, r.Nodes, File("alice", &a.ID, "b", 1, "kb"))

	n, err := r.Nodes.SetAccessLevel(ctx, []string{a.ID, b.ID}, models.AccessPublic, BaseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := r.Nodes.GetByID(ctx, b.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.AccessPublic, got.AccessLevel)
}

func (suite *Suite) TestHardDelete_RemovesShares(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	a := MustCreate(t, r.Nodes, Folder("alice", nil, "a"))
	share := &models.Share{
		FileID:           a.ID,
		SharedByUserID:   "alice",
		SharedWithUserID: "bob",
		PermissionLevel:  models.PermissionView,
		CreatedAt:        BaseTime,
		UpdatedAt:        BaseTime,
	}
	require.NoError(t, r.Shares.Upsert(ctx, share))

	n, err := r.Nodes.HardDelete(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = r.Shares.GetByID(ctx, share.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := r.Nodes.ListByIDs(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.Empty(t, got)
}

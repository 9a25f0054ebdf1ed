package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *Suite) RunTransactionTests(t *testing.T) {
	t.Run("Commit", suite.TestTx_Commit)
	t.Run("Rollback", suite.TestTx_Rollback)
	t.Run("Nested", suite.TestTx_Nested)
}

func (suite *Suite) TestTx_Commit(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	err := r.Tx.ExecTx(ctx, func(txCtx context.Context) error {
		return r.Nodes.Create(txCtx, Folder("alice", nil, "a"))
	})
	require.NoError(t, err)

	live, err := r.Nodes.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func (suite *Suite) TestTx_Rollback(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	existing := MustCreate(t, r.Nodes, Folder("alice", nil, "keep"))
	boom := errors.New("boom")

	err := r.Tx.ExecTx(ctx, func(txCtx context.Context) error {
		if err := r.Nodes.Create(txCtx, Folder("alice", nil, "a")); err != nil {
			return err
		}
		existing.Name = "renamed"
		if err := r.Nodes.Update(txCtx, existing); err != nil {
			return err
		}
		if _, err := r.Nodes.SoftDelete(txCtx, []string{existing.ID}, BaseTime); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	live, err := r.Nodes.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "keep", live[0].Name)
	assert.Nil(t, live[0].DeletedAt)
}

func (suite *Suite) TestTx_Nested(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := r.Tx.ExecTx(ctx, func(txCtx context.Context) error {
		inner := r.Tx.ExecTx(txCtx, func(innerCtx context.Context) error {
			return r.Nodes.Create(innerCtx, Folder("alice", nil, "inner"))
		})
		if inner != nil {
			return inner
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	live, err := r.Nodes.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, live)
}

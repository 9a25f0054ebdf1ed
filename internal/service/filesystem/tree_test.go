package filesystem

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "fileflow/internal/domain/models/filesystem"
)

func TestTree_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	docs := env.folder(t, "alice", nil, "Docs")

	roots := env.tree(t, "alice")
	require.Len(t, roots, 1)
	assert.Empty(t, roots[0].Children)
	assert.NotNil(t, roots[0].Children)
	assert.Equal(t, int64(0), roots[0].Size())

	env.file(t, "alice", docs, "a.pdf", 1234)
	roots = env.tree(t, "alice")
	require.Len(t, roots, 1)
	assert.Equal(t, int64(1234), roots[0].Size())
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, int64(1234), roots[0].Children[0].Size())
}

func TestTree_Ordering(t *testing.T) {
	env := newTestEnv(t)
	env.file(t, "alice", nil, "b.txt", 1)
	env.folder(t, "alice", nil, "zeta")
	env.file(t, "alice", nil, "A.txt", 1)
	env.folder(t, "alice", nil, "Alpha")

	var names []string
	for _, r := range env.tree(t, "alice") {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Alpha", "zeta", "A.txt", "b.txt"}, names)
}

func TestTree_SizeAggregation(t *testing.T) {
	env := newTestEnv(t)
	root := env.folder(t, "alice", nil, "root")
	left := env.folder(t, "alice", root, "left")
	right := env.folder(t, "alice", root, "right")

	for i := 0; i < 150; i++ {
		env.file(t, "alice", left, fmt.Sprintf("l%03d", i), 1)
		env.file(t, "alice", right, fmt.Sprintf("r%03d", i), 1)
	}

	roots := env.tree(t, "alice")
	require.Len(t, roots, 1)
	assert.Equal(t, int64(300), roots[0].Size())
	assert.Equal(t, int64(150), roots[0].Find("left").Size())
	assert.Equal(t, int64(150), roots[0].Find("right").Size())
}

func TestTree_SizeIgnoresTrashed(t *testing.T) {
	env := newTestEnv(t)
	docs := env.folder(t, "alice", nil, "Docs")
	env.file(t, "alice", docs, "keep.pdf", 100)
	gone := env.file(t, "alice", docs, "gone.pdf", 900)

	_, err := env.nodeSvc.Delete(context.Background(), gone.ID, "alice")
	require.NoError(t, err)

	roots := env.tree(t, "alice")
	assert.Equal(t, int64(100), roots[0].Size())
	assert.Len(t, roots[0].Children, 1)
}

func TestTree_AccessLevelFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.folder(t, "alice", nil, "Public")
	_, err := env.nodeSvc.UpdateAccessLevel(ctx, pub.ID, "alice", models.AccessPublic)
	require.NoError(t, err)

	// A private child under a public folder is filtered at depth too.
	env.folder(t, "alice", pub, "secret")
	env.folder(t, "alice", nil, "Private")

	level := models.AccessPublic
	roots, err := env.treeSvc.GetFileSystemTree(ctx, "alice", &level)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "Public", roots[0].Name)
	assert.Empty(t, roots[0].Children)
}

func TestTree_OwnerIsolation(t *testing.T) {
	env := newTestEnv(t)
	env.folder(t, "alice", nil, "A")
	env.folder(t, "bob", nil, "B")

	roots := env.tree(t, "bob")
	require.Len(t, roots, 1)
	assert.Equal(t, "B", roots[0].Name)
}

func TestTree_DepthCap(t *testing.T) {
	env := newTestEnv(t)
	env.treeSvc.maxDepth = 3

	parent := env.folder(t, "alice", nil, "d0")
	for i := 1; i < 6; i++ {
		parent = env.folder(t, "alice", parent, fmt.Sprintf("d%d", i))
	}
	env.file(t, "alice", parent, "deep.bin", 7)

	roots := env.tree(t, "alice")
	require.Len(t, roots, 1)

	depth := 0
	cur := roots[0]
	for len(cur.Children) > 0 {
		cur = cur.Children[0]
		depth++
	}
	assert.Equal(t, 3, depth)
	// Sizes still cover the whole subtree.
	assert.Equal(t, int64(7), roots[0].Size())
}

func TestGetTrash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := env.folder(t, "alice", nil, "Docs")
	sub := env.folder(t, "alice", docs, "2024")
	env.file(t, "alice", sub, "a.pdf", 10)
	early := env.file(t, "alice", sub, "early.pdf", 5)

	_, err := env.nodeSvc.Delete(ctx, early.ID, "alice")
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	_, err = env.nodeSvc.Delete(ctx, docs.ID, "alice")
	require.NoError(t, err)

	trash, err := env.treeSvc.GetTrash(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, trash, 4)

	byName := map[string]*models.TreeNode{}
	for _, tn := range trash {
		assert.Empty(t, tn.Children)
		byName[tn.Name] = tn
	}
	// The earlier deletion is not part of the Docs batch.
	assert.Equal(t, int64(10), byName["Docs"].Size())
	assert.Equal(t, int64(10), byName["2024"].Size())
	assert.Equal(t, int64(5), byName["early.pdf"].Size())

	// Newest batch first, folders before files inside a batch.
	assert.Equal(t, "2024", trash[0].Name)
	assert.Equal(t, "Docs", trash[1].Name)
	assert.Equal(t, "early.pdf", trash[3].Name)
}

func TestStorageUsage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.file(t, "alice", nil, "a", 100)
	b := env.file(t, "alice", nil, "b", 50)
	_, err := env.nodeSvc.Delete(ctx, b.ID, "alice")
	require.NoError(t, err)

	usage, err := env.treeSvc.StorageUsage(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), usage.UsedBytes)
	assert.Equal(t, int64(50), usage.TrashedBytes)
	assert.Nil(t, usage.QuotaBytes)

	env.store.SetQuota("alice", 1000)
	usage, err = env.treeSvc.StorageUsage(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, usage.QuotaBytes)
	assert.Equal(t, int64(1000), *usage.QuotaBytes)
}

package filesystem

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	blobmem "fileflow/internal/blob/memory"
	models "fileflow/internal/domain/models/filesystem"
	fsSvc "fileflow/internal/domain/services/filesystem"
	"fileflow/internal/repository/memory"
)

type emitted struct {
	typ     string
	payload map[string]any
}

type recordingSink struct {
	mu     sync.Mutex
	events []emitted
}

func (s *recordingSink) Emit(_ context.Context, eventType string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, emitted{typ: eventType, payload: payload})
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.typ
	}
	return out
}

// clock is a settable time source shared by all services of an env.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store  *memory.Store
	nodes  *memory.NodeRepository
	shares *memory.ShareRepository
	blobs  *blobmem.Store
	sink   *recordingSink
	clock  *clock

	nodeSvc  *nodeService
	treeSvc  *treeService
	trashSvc *trashService
	shareSvc *shareService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	nodes := memory.NewNodeRepository(store)
	shares := memory.NewShareRepository(store)
	tx := memory.NewTransactionManager(store)
	blobs := blobmem.New()
	sink := &recordingSink{}
	clk := &clock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	logger := discardLogger()

	nodeSvc := NewNodeService(nodes, tx, sink, logger).(*nodeService)
	nodeSvc.now = clk.Now
	treeSvc := NewTreeService(nodes, store, 0, logger).(*treeService)
	trashSvc := NewTrashService(nodes, blobs, tx, sink, logger).(*trashService)
	trashSvc.now = clk.Now
	shareSvc := NewShareService(nodes, shares, sink, 0, logger).(*shareService)
	shareSvc.now = clk.Now

	return &testEnv{
		store:    store,
		nodes:    nodes,
		shares:   shares,
		blobs:    blobs,
		sink:     sink,
		clock:    clk,
		nodeSvc:  nodeSvc,
		treeSvc:  treeSvc,
		trashSvc: trashSvc,
		shareSvc: shareSvc,
	}
}

func (e *testEnv) folder(t *testing.T, owner string, parent *models.Node, name string) *models.Node {
	t.Helper()
	req := &fsSvc.CreateFolderRequest{OwnerID: owner, Name: name}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	n, err := e.nodeSvc.CreateFolder(context.Background(), req)
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	return n
}

// file creates a file node and stores a blob under its storage path.
func (e *testEnv) file(t *testing.T, owner string, parent *models.Node, name string, size int64) *models.Node {
	t.Helper()
	key := "files/" + owner + "/" + name + "_" + e.clock.Now().Format("150405")
	_, err := e.blobs.Put(context.Background(), key, strings.NewReader(""), 0, "application/pdf", nil)
	require.NoError(t, err)

	req := &fsSvc.CreateFileRequest{
		OwnerID: owner,
		Name:    name,
		FileInfo: &models.FileInfo{
			FileType:    "application/pdf",
			FileSize:    size,
			StoragePath: key,
		},
	}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	n, err := e.nodeSvc.CreateFile(context.Background(), req)
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	return n
}

func (e *testEnv) tree(t *testing.T, owner string) []*models.TreeNode {
	t.Helper()
	roots, err := e.treeSvc.GetFileSystemTree(context.Background(), owner, nil)
	require.NoError(t, err)
	return roots
}

func findRoot(roots []*models.TreeNode, name string) *models.TreeNode {
	for _, r := range roots {
		if r.Name == name {
			return r
		}
	}
	return nil
}

package upload

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blobmem "fileflow/internal/blob/memory"
	"fileflow/internal/domain"
	fsModels "fileflow/internal/domain/models/filesystem"
	models "fileflow/internal/domain/models/upload"
	fsSvc "fileflow/internal/domain/services/filesystem"
	uploadSvc "fileflow/internal/domain/services/upload"
	"fileflow/internal/domain/storage"
	"fileflow/internal/repository/memory"
	"fileflow/internal/service/filesystem"
)

type harness struct {
	store   *memory.Store
	blobs   *blobmem.Store
	nodes   fsSvc.NodeService
	shares  fsSvc.ShareService
	uploads *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewStore()
	nodeRepo := memory.NewNodeRepository(store)
	shareRepo := memory.NewShareRepository(store)
	tx := memory.NewTransactionManager(store)
	blobs := blobmem.New()

	nodes := filesystem.NewNodeService(nodeRepo, tx, nil, logger)
	shares := filesystem.NewShareService(nodeRepo, shareRepo, nil, 0, logger)
	tree := filesystem.NewTreeService(nodeRepo, store, 0, logger)

	svc := NewService(Config{
		Blobs:    blobs,
		Sessions: memory.NewSessionRepository(store),
		Nodes:    nodeRepo,
		Access:   shares,
		Usage:    tree,
		Logger:   logger,
	})
	return &harness{store: store, blobs: blobs, nodes: nodes, shares: shares, uploads: svc}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{`a<b>c:d"e/f\g|h?i*j.txt`, "a_b_c_d_e_f_g_h_i_j.txt"},
		{"tab\there\x00.txt", "tabhere.txt"},
		{"\x01\x02", "file"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeName(tt.in))
		})
	}
}

func TestSingleUploadKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	key := singleUploadKey("my report.final.pdf", now)
	assert.Regexp(t, regexp.MustCompile(`^files/my_report\.final_1700000000123_[0-9a-f]{8}\.pdf$`), key)

	assert.NotEqual(t, key, singleUploadKey("my report.final.pdf", now))
	assert.Regexp(t, `^videos/clip_01\.mp4_[0-9a-f]{8}$`, multipartKey("clip 01.mp4"))
}

func TestUploadFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	desc, err := h.uploads.UploadFile(ctx, &uploadSvc.FileUpload{
		OwnerID:     "alice",
		FileName:    "notes?.txt",
		ContentType: "text/plain",
		Size:        5,
		Body:        strings.NewReader("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", desc.FileType)
	assert.Equal(t, int64(5), desc.FileSize)
	assert.Equal(t, "notes_.txt", desc.OriginalName)
	assert.True(t, strings.HasPrefix(desc.StoragePath, "files/notes_"))

	info, err := h.blobs.Head(ctx, desc.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, "notes_.txt", info.Metadata["originalName"])
}

func TestUploadFile_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *uploadSvc.FileUpload
	}{
		{"missing owner", &uploadSvc.FileUpload{FileName: "a", Body: strings.NewReader("")}},
		{"missing name", &uploadSvc.FileUpload{OwnerID: "alice", Body: strings.NewReader("")}},
		{"missing body", &uploadSvc.FileUpload{OwnerID: "alice", FileName: "a"}},
		{"negative size", &uploadSvc.FileUpload{OwnerID: "alice", FileName: "a", Size: -1, Body: strings.NewReader("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.uploads.UploadFile(ctx, tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestUploadFile_Quota(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.SetQuota("alice", 10)

	upload := func(size int) error {
		_, err := h.uploads.UploadFile(ctx, &uploadSvc.FileUpload{
			OwnerID:  "alice",
			FileName: "f.bin",
			Size:     int64(size),
			Body:     bytes.NewReader(make([]byte, size)),
		})
		return err
	}

	// Usage is derived from file nodes, so register the first upload.
	desc, err := h.uploads.UploadFile(ctx, &uploadSvc.FileUpload{
		OwnerID: "alice", FileName: "a.bin", Size: 8, Body: bytes.NewReader(make([]byte, 8)),
	})
	require.NoError(t, err)
	_, err = h.nodes.CreateFile(ctx, &fsSvc.CreateFileRequest{
		OwnerID: "alice",
		Name:    "a.bin",
		FileInfo: &fsModels.FileInfo{
			FileType:    desc.FileType,
			FileSize:    desc.FileSize,
			StoragePath: desc.StoragePath,
		},
	})
	require.NoError(t, err)

	assert.NoError(t, upload(2))
	assert.ErrorIs(t, upload(3), domain.ErrQuotaExceeded)

	_, err = h.uploads.InitiateMultipartUpload(ctx, &uploadSvc.MultipartInit{
		OwnerID: "alice", FileName: "big.mp4", Size: 100,
	})
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
}

func TestMultipart_Lifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess, err := h.uploads.InitiateMultipartUpload(ctx, &uploadSvc.MultipartInit{
		OwnerID: "alice", FileName: "clip.mp4", MimeType: "video/mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, sess.Status)
	assert.True(t, strings.HasPrefix(sess.Key, "videos/clip.mp4_"))

	p2, err := h.uploads.UploadPart(ctx, "alice", sess.UploadID, sess.Key, 2, []byte("world"))
	require.NoError(t, err)
	assert.Equal(t, "486ea46224d1bb4fb680f34f7c9ad96a8f24ec88be73ea8e5a6c65260e9cb8a7", p2.Checksum)
	p1, err := h.uploads.UploadPart(ctx, "alice", sess.UploadID, sess.Key, 1, []byte("hello "))
	require.NoError(t, err)

	parts, err := h.uploads.ListParts(ctx, "alice", sess.UploadID, sess.Key)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, int32(1), parts[0].PartNumber)

	done, err := h.uploads.CompleteMultipartUpload(ctx, "alice", sess.UploadID, sess.Key, []storage.CompletedPart{
		{PartNumber: 2, ETag: p2.ETag},
		{PartNumber: 1, ETag: p1.ETag},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.Location)
	require.NotNil(t, done.CompletedAt)

	data, ok := h.blobs.Bytes(sess.Key)
	require.True(t, ok)
	assert.Equal(t, "hello world", string(data))

	_, err = h.uploads.UploadPart(ctx, "alice", sess.UploadID, sess.Key, 3, []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUploadTerminal)
	err = h.uploads.AbortMultipartUpload(ctx, "alice", sess.UploadID, sess.Key)
	assert.ErrorIs(t, err, domain.ErrUploadTerminal)
}

func TestMultipart_Abort(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess, err := h.uploads.InitiateMultipartUpload(ctx, &uploadSvc.MultipartInit{OwnerID: "alice", FileName: "clip.mp4"})
	require.NoError(t, err)
	_, err = h.uploads.UploadPart(ctx, "alice", sess.UploadID, sess.Key, 1, []byte("x"))
	require.NoError(t, err)

	require.NoError(t, h.uploads.AbortMultipartUpload(ctx, "alice", sess.UploadID, sess.Key))
	_, err = h.uploads.CompleteMultipartUpload(ctx, "alice", sess.UploadID, sess.Key, []storage.CompletedPart{{PartNumber: 1, ETag: "x"}})
	assert.ErrorIs(t, err, domain.ErrUploadTerminal)
	assert.False(t, h.blobs.Has(sess.Key))
}

func TestMultipart_ConcurrentCompleteAndAbort(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess, err := h.uploads.InitiateMultipartUpload(ctx, &uploadSvc.MultipartInit{OwnerID: "alice", FileName: "clip.mp4"})
	require.NoError(t, err)
	part, err := h.uploads.UploadPart(ctx, "alice", sess.UploadID, sess.Key, 1, []byte("x"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = h.uploads.CompleteMultipartUpload(ctx, "alice", sess.UploadID, sess.Key,
			[]storage.CompletedPart{{PartNumber: 1, ETag: part.ETag}})
	}()
	go func() {
		defer wg.Done()
		errs[1] = h.uploads.AbortMultipartUpload(ctx, "alice", sess.UploadID, sess.Key)
	}()
	wg.Wait()

	// Never both.
	assert.False(t, errs[0] == nil && errs[1] == nil)
}

func TestMultipart_SessionLookup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess, err := h.uploads.InitiateMultipartUpload(ctx, &uploadSvc.MultipartInit{OwnerID: "alice", FileName: "clip.mp4"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		owner    string
		uploadID string
		key      string
		part     int32
		want     error
	}{
		{"foreign owner", "bob", sess.UploadID, sess.Key, 1, domain.ErrNotFound},
		{"unknown upload", "alice", "nope", sess.Key, 1, domain.ErrNotFound},
		{"key mismatch", "alice", sess.UploadID, "videos/other", 1, domain.ErrNotFound},
		{"part zero", "alice", sess.UploadID, sess.Key, 0, domain.ErrValidation},
		{"part too high", "alice", sess.UploadID, sess.Key, 10001, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.uploads.UploadPart(ctx, tt.owner, tt.uploadID, tt.key, tt.part, []byte("x"))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMultipart_ExpiredSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.uploads.now = func() time.Time { return start }

	sess, err := h.uploads.InitiateMultipartUpload(ctx, &uploadSvc.MultipartInit{OwnerID: "alice", FileName: "clip.mp4"})
	require.NoError(t, err)

	h.uploads.now = func() time.Time { return start.Add(8 * 24 * time.Hour) }
	_, err = h.uploads.UploadPart(ctx, "alice", sess.UploadID, sess.Key, 1, []byte("x"))
	assert.ErrorIs(t, err, domain.ErrExpired)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDownloadURL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	desc, err := h.uploads.UploadFile(ctx, &uploadSvc.FileUpload{
		OwnerID: "alice", FileName: "a.txt", Size: 1, Body: strings.NewReader("x"),
	})
	require.NoError(t, err)
	file, err := h.nodes.CreateFile(ctx, &fsSvc.CreateFileRequest{
		OwnerID: "alice",
		Name:    "a.txt",
		FileInfo: &fsModels.FileInfo{
			FileType:    desc.FileType,
			FileSize:    desc.FileSize,
			StoragePath: desc.StoragePath,
		},
	})
	require.NoError(t, err)

	url, err := h.uploads.DownloadURL(ctx, "alice", file.ID)
	require.NoError(t, err)
	assert.Contains(t, url, desc.StoragePath)
	assert.Contains(t, url, "expires=3600")

	touched, err := h.nodes.GetNode(ctx, file.ID, "alice")
	require.NoError(t, err)
	assert.NotNil(t, touched.LastAccessedAt)

	_, err = h.uploads.DownloadURL(ctx, "bob", file.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.shares.Share(ctx, &fsSvc.ShareRequest{
		FileID:           file.ID,
		SharedByUserID:   "alice",
		SharedWithUserID: "bob",
		PermissionLevel:  fsModels.PermissionView,
	})
	require.NoError(t, err)
	_, err = h.uploads.DownloadURL(ctx, "bob", file.ID)
	assert.NoError(t, err)

	folder, err := h.nodes.CreateFolder(ctx, &fsSvc.CreateFolderRequest{OwnerID: "alice", Name: "Docs"})
	require.NoError(t, err)
	_, err = h.uploads.DownloadURL(ctx, "alice", folder.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

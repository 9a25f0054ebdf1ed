// Package memory implements storage.BlobStore in process memory. Used by
// tests and by STORAGE_BACKEND=memory development runs.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fileflow/internal/domain"
	"fileflow/internal/domain/storage"
)

type object struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

type pendingPart struct {
	data     []byte
	etag     string
	modified time.Time
}

type multipart struct {
	key         string
	contentType string
	metadata    map[string]string
	parts       map[int32]pendingPart
}

// Store is a thread-safe in-memory blob store.
type Store struct {
	mu      sync.RWMutex
	objects map[string]*object
	uploads map[string]*multipart

	// deleteManyCalls counts DeleteMany invocations.
	deleteManyCalls int
	// failDeleteMany makes DeleteMany fail when set.
	failDeleteMany error
}

var _ storage.BlobStore = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		objects: make(map[string]*object),
		uploads: make(map[string]*multipart),
	}
}

func etagOf(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string, metadata map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = &object{data: data, contentType: contentType, metadata: metadata, modified: time.Now().UTC()}
	return etagOf(data), nil
}

func (s *Store) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[key]; !ok {
		return "", domain.NewNotFound("object_not_found", "object %s not found", key)
	}
	return fmt.Sprintf("memory://%s?expires=%d", key, int64(ttl.Seconds())), nil
}

func (s *Store) Head(_ context.Context, key string) (*storage.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, domain.NewNotFound("object_not_found", "object %s not found", key)
	}
	return &storage.ObjectInfo{
		ContentType:  obj.contentType,
		Size:         int64(len(obj.data)),
		LastModified: obj.modified,
		Metadata:     obj.metadata,
	}, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteManyCalls++
	if s.failDeleteMany != nil {
		return s.failDeleteMany
	}
	for _, k := range keys {
		delete(s.objects, k)
	}
	return nil
}

func (s *Store) InitiateMultipart(_ context.Context, key, contentType string, metadata map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.uploads[id] = &multipart{
		key:         key,
		contentType: contentType,
		metadata:    metadata,
		parts:       make(map[int32]pendingPart),
	}
	return id, nil
}

func (s *Store) upload(uploadID, key string) (*multipart, error) {
	mp, ok := s.uploads[uploadID]
	if !ok || mp.key != key {
		return nil, domain.NewNotFound("upload_not_found", "upload %s not found", uploadID)
	}
	return mp, nil
}

func (s *Store) UploadPart(_ context.Context, uploadID, key string, partNumber int32, body []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, err := s.upload(uploadID, key)
	if err != nil {
		return "", err
	}
	data := bytes.Clone(body)
	etag := etagOf(data)
	mp.parts[partNumber] = pendingPart{data: data, etag: etag, modified: time.Now().UTC()}
	return etag, nil
}

// CompleteMultipart concatenates the listed parts in part-number order.
func (s *Store) CompleteMultipart(_ context.Context, uploadID, key string, parts []storage.CompletedPart) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, err := s.upload(uploadID, key)
	if err != nil {
		return "", err
	}

	sorted := append([]storage.CompletedPart(nil), parts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	var buf bytes.Buffer
	for _, p := range sorted {
		part, ok := mp.parts[p.PartNumber]
		if !ok || part.etag != p.ETag {
			return "", fmt.Errorf("%w: part %d does not match an uploaded part", domain.ErrValidation, p.PartNumber)
		}
		buf.Write(part.data)
	}

	s.objects[key] = &object{
		data:        buf.Bytes(),
		contentType: mp.contentType,
		metadata:    mp.metadata,
		modified:    time.Now().UTC(),
	}
	delete(s.uploads, uploadID)
	return "memory://" + key, nil
}

func (s *Store) AbortMultipart(_ context.Context, uploadID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploads, uploadID)
	return nil
}

func (s *Store) ListParts(_ context.Context, uploadID, key string) ([]storage.UploadedPart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mp, err := s.upload(uploadID, key)
	if err != nil {
		return nil, err
	}
	out := make([]storage.UploadedPart, 0, len(mp.parts))
	for n, p := range mp.parts {
		modified := p.modified
		out = append(out, storage.UploadedPart{
			PartNumber:   n,
			ETag:         p.etag,
			Size:         int64(len(p.data)),
			LastModified: &modified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartNumber < out[j].PartNumber })
	return out, nil
}

// Has reports whether key is stored.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

// Bytes returns the content stored under key.
func (s *Store) Bytes(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// DeleteManyCalls returns how many times DeleteMany ran.
func (s *Store) DeleteManyCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deleteManyCalls
}

// FailDeleteMany makes every following DeleteMany return err. nil clears it.
func (s *Store) FailDeleteMany(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDeleteMany = err
}

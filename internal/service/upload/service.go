package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"fileflow/internal/config"
	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/upload"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
	uploadRepo "fileflow/internal/domain/repositories/upload"
	fsSvc "fileflow/internal/domain/services/filesystem"
	uploadSvc "fileflow/internal/domain/services/upload"
	"fileflow/internal/domain/storage"
	"fileflow/internal/events"
)

const defaultContentType = "application/octet-stream"

// Service implements uploadSvc.UploadService
type Service struct {
	blobs    storage.BlobStore
	sessions uploadRepo.SessionRepository
	nodeRepo fsRepo.NodeRepository
	access   fsSvc.ShareService
	usage    fsSvc.TreeService
	sink     events.Sink
	logger   *slog.Logger
	now      func() time.Time
}

// Config wires the collaborators of the upload service. Usage may be nil,
// which disables quota checks.
type Config struct {
	Blobs    storage.BlobStore
	Sessions uploadRepo.SessionRepository
	Nodes    fsRepo.NodeRepository
	Access   fsSvc.ShareService
	Usage    fsSvc.TreeService
	Sink     events.Sink
	Logger   *slog.Logger
}

var _ uploadSvc.UploadService = (*Service)(nil)

// NewService creates a new upload service
func NewService(cfg Config) *Service {
	sink := cfg.Sink
	if sink == nil {
		sink = events.Nop{}
	}
	return &Service{
		blobs:    cfg.Blobs,
		sessions: cfg.Sessions,
		nodeRepo: cfg.Nodes,
		access:   cfg.Access,
		usage:    cfg.Usage,
		sink:     sink,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// UploadFile stores a single-shot upload and returns what the caller needs to
// create the file node.
func (s *Service) UploadFile(ctx context.Context, req *uploadSvc.FileUpload) (*models.StorageDescriptor, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.FileName, validation.Required, validation.Length(1, config.MaxNodeNameLength)),
		validation.Field(&req.Size, validation.Min(int64(0)), validation.Max(int64(config.MaxSingleUploadBytes))),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.Body == nil {
		return nil, fmt.Errorf("%w: body is required", domain.ErrValidation)
	}
	if err := s.checkQuota(ctx, req.OwnerID, req.Size); err != nil {
		return nil, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	original := sanitizeName(req.FileName)
	key := singleUploadKey(req.FileName, s.now())

	if _, err := s.blobs.Put(ctx, key, req.Body, req.Size, contentType, map[string]string{
		"originalName": original,
	}); err != nil {
		s.logger.Error("blob put failed", "key", key, "owner_id", req.OwnerID, "error", err)
		return nil, domain.NewDependency("put object", err)
	}

	s.logger.Info("file uploaded",
		"key", key,
		"owner_id", req.OwnerID,
		"size", req.Size,
	)
	return &models.StorageDescriptor{
		FileType:     contentType,
		FileSize:     req.Size,
		StoragePath:  key,
		OriginalName: original,
	}, nil
}

// InitiateMultipartUpload opens a multipart upload and records its session.
func (s *Service) InitiateMultipartUpload(ctx context.Context, req *uploadSvc.MultipartInit) (*models.Session, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.FileName, validation.Required, validation.Length(1, config.MaxNodeNameLength)),
		validation.Field(&req.Size, validation.Min(int64(0))),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.checkQuota(ctx, req.OwnerID, req.Size); err != nil {
		return nil, err
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = defaultContentType
	}
	key := multipartKey(req.FileName)

	uploadID, err := s.blobs.InitiateMultipart(ctx, key, mimeType, map[string]string{
		"originalName": sanitizeName(req.FileName),
	})
	if err != nil {
		return nil, domain.NewDependency("initiate multipart", err)
	}

	now := s.now().UTC()
	session := &models.Session{
		UploadID:  uploadID,
		Key:       key,
		OwnerID:   req.OwnerID,
		FileName:  req.FileName,
		MimeType:  mimeType,
		Status:    models.StatusInitiated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		if abortErr := s.blobs.AbortMultipart(ctx, uploadID, key); abortErr != nil {
			s.logger.Warn("failed to abort orphaned multipart upload",
				"upload_id", uploadID,
				"error", abortErr,
			)
		}
		return nil, fmt.Errorf("create upload session: %w", err)
	}

	s.logger.Info("multipart upload initiated",
		"upload_id", uploadID,
		"key", key,
		"owner_id", req.OwnerID,
	)
	return session, nil
}

// UploadPart stores one chunk. The first part moves the session to
// parts_uploading.
func (s *Service) UploadPart(ctx context.Context, ownerID, uploadID, key string, partNumber int32, body []byte) (*models.Part, error) {
	if partNumber < 1 || partNumber > config.MaxPartNumber {
		return nil, fmt.Errorf("%w: part number must be between 1 and %d", domain.ErrValidation, config.MaxPartNumber)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: part body is empty", domain.ErrValidation)
	}

	session, err := s.openSession(ctx, ownerID, uploadID, key)
	if err != nil {
		return nil, err
	}

	etag, err := s.blobs.UploadPart(ctx, uploadID, key, partNumber, body)
	if err != nil {
		return nil, blobError("upload part", err)
	}

	if session.Status == models.StatusInitiated {
		session.UpdatedAt = s.now().UTC()
		err := s.sessions.Transition(ctx, session,
			[]models.Status{models.StatusInitiated, models.StatusPartsUploading},
			models.StatusPartsUploading,
		)
		if err != nil {
			return nil, err
		}
	}

	sum := sha256.Sum256(body)
	return &models.Part{
		PartNumber: partNumber,
		ETag:       etag,
		Checksum:   hex.EncodeToString(sum[:]),
		Size:       int64(len(body)),
	}, nil
}

// CompleteMultipartUpload assembles the parts in part-number order.
func (s *Service) CompleteMultipartUpload(ctx context.Context, ownerID, uploadID, key string, parts []storage.CompletedPart) (*models.Session, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: at least one part is required", domain.ErrValidation)
	}
	sorted := append([]storage.CompletedPart(nil), parts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].PartNumber == sorted[i-1].PartNumber {
			return nil, fmt.Errorf("%w: duplicate part %d", domain.ErrValidation, sorted[i].PartNumber)
		}
	}

	session, err := s.openSession(ctx, ownerID, uploadID, key)
	if err != nil {
		return nil, err
	}

	location, err := s.blobs.CompleteMultipart(ctx, uploadID, key, sorted)
	if err != nil {
		return nil, blobError("complete multipart", err)
	}

	now := s.now().UTC()
	session.UpdatedAt = now
	session.CompletedAt = &now
	session.Location = &location
	err = s.sessions.Transition(ctx, session,
		[]models.Status{models.StatusInitiated, models.StatusPartsUploading},
		models.StatusCompleted,
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("multipart upload completed",
		"upload_id", uploadID,
		"key", key,
		"parts", len(sorted),
	)
	return session, nil
}

// AbortMultipartUpload discards the uploaded parts.
func (s *Service) AbortMultipartUpload(ctx context.Context, ownerID, uploadID, key string) error {
	session, err := s.loadSession(ctx, ownerID, uploadID, key)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return domain.ErrUploadTerminal
	}

	if err := s.blobs.AbortMultipart(ctx, uploadID, key); err != nil {
		return blobError("abort multipart", err)
	}

	session.UpdatedAt = s.now().UTC()
	err = s.sessions.Transition(ctx, session,
		[]models.Status{models.StatusInitiated, models.StatusPartsUploading},
		models.StatusAborted,
	)
	if err != nil {
		return err
	}

	s.logger.Info("multipart upload aborted", "upload_id", uploadID, "key", key)
	s.sink.Emit(ctx, events.UploadAborted, map[string]any{
		"upload_id": uploadID,
		"owner_id":  ownerID,
		"key":       key,
	})
	return nil
}

// ListParts reports the parts the blob store holds for an open session.
func (s *Service) ListParts(ctx context.Context, ownerID, uploadID, key string) ([]models.Part, error) {
	session, err := s.loadSession(ctx, ownerID, uploadID, key)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, domain.ErrUploadTerminal
	}

	uploaded, err := s.blobs.ListParts(ctx, uploadID, key)
	if err != nil {
		return nil, blobError("list parts", err)
	}
	parts := make([]models.Part, len(uploaded))
	for i, p := range uploaded {
		parts[i] = models.Part{
			PartNumber:   p.PartNumber,
			ETag:         p.ETag,
			Size:         p.Size,
			LastModified: p.LastModified,
		}
	}
	return parts, nil
}

// DownloadURL signs a read URL for a file the user owns or receives through
// a share, and records the access.
func (s *Service) DownloadURL(ctx context.Context, userID, nodeID string) (string, error) {
	node, err := s.access.CanAccess(ctx, userID, nodeID)
	if err != nil {
		return "", err
	}
	if node.IsFolder || node.FileInfo == nil {
		return "", fmt.Errorf("%w: folders cannot be downloaded", domain.ErrValidation)
	}

	url, err := s.blobs.SignedURL(ctx, node.FileInfo.StoragePath, config.SignedURLTTL)
	if err != nil {
		return "", blobError("sign url", err)
	}

	if err := s.nodeRepo.TouchLastAccessed(ctx, node.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to record access", "node_id", node.ID, "error", err)
	}
	return url, nil
}

// loadSession fetches a session owned by ownerID and checks it belongs to key.
func (s *Service) loadSession(ctx context.Context, ownerID, uploadID, key string) (*models.Session, error) {
	session, err := s.sessions.Get(ctx, uploadID, ownerID)
	if err != nil {
		return nil, err
	}
	if session.Key != key {
		return nil, domain.NewNotFound("upload_not_found", "upload %s not found", uploadID)
	}
	return session, nil
}

// openSession is loadSession for operations that need a session still
// accepting parts.
func (s *Service) openSession(ctx context.Context, ownerID, uploadID, key string) (*models.Session, error) {
	session, err := s.loadSession(ctx, ownerID, uploadID, key)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, domain.ErrUploadTerminal
	}
	if s.now().Sub(session.CreatedAt) > config.UploadSessionTTL {
		return nil, domain.ErrExpired
	}
	return session, nil
}

// checkQuota rejects an upload of size bytes that would exceed the owner's
// quota. Trashed files count until purged.
func (s *Service) checkQuota(ctx context.Context, ownerID string, size int64) error {
	if s.usage == nil || size <= 0 {
		return nil
	}
	usage, err := s.usage.StorageUsage(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("storage usage: %w", err)
	}
	if usage.QuotaBytes == nil {
		return nil
	}
	if usage.UsedBytes+usage.TrashedBytes+size > *usage.QuotaBytes {
		s.logger.Info("upload rejected, quota exceeded",
			"owner_id", ownerID,
			"size", size,
			"quota", *usage.QuotaBytes,
		)
		return domain.ErrQuotaExceeded
	}
	return nil
}

// blobError keeps not-found results from the blob store and wraps the rest
// as dependency failures.
func blobError(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
		return err
	}
	return domain.NewDependency(op, err)
}

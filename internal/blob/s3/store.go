package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"fileflow/internal/domain"
	"fileflow/internal/domain/storage"
)

// deleteBatchSize is the DeleteObjects limit.
const deleteBatchSize = 1000

// Store implements storage.BlobStore on an S3 bucket.
//
// Keys passed in are relative; KeyPrefix is prepended on the way out and
// stripped from keys reported back.
type Store struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	keyPrefix string
	logger    *slog.Logger
}

// Config configures a Store.
type Config struct {
	Client    *s3.Client
	Bucket    string
	KeyPrefix string
	Logger    *slog.Logger
}

var _ storage.BlobStore = (*Store)(nil)

// New creates a Store and verifies the bucket is reachable. The bucket must
// already exist.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	if _, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("access bucket %q: %w", cfg.Bucket, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:    cfg.Client,
		presign:   s3.NewPresignClient(cfg.Client),
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger,
	}, nil
}

func (s *Store) objectKey(key string) string {
	return s.keyPrefix + key
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	result, err := s.client.PutObject(ctx, input)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return aws.ToString(result.ETag), nil
}

func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *Store) Head(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NewNotFound("object_not_found", "object %s not found", key)
		}
		return nil, fmt.Errorf("head object %s: %w", key, err)
	}

	info := &storage.ObjectInfo{
		ContentType: aws.ToString(result.ContentType),
		Size:        aws.ToInt64(result.ContentLength),
		Metadata:    result.Metadata,
	}
	if result.LastModified != nil {
		info.LastModified = *result.LastModified
	}
	return info, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// DeleteMany removes keys in batches of 1000. Missing objects are not an
// error. Any per-key failure fails the call so the caller keeps its rows.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	var failed []string
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		batch := keys[start:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for i, key := range batch {
			objects[i] = types.ObjectIdentifier{Key: aws.String(s.objectKey(key))}
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}

		for _, deleteErr := range result.Errors {
			key := aws.ToString(deleteErr.Key)
			s.logger.Warn("object delete failed",
				"key", key,
				"code", aws.ToString(deleteErr.Code),
				"message", aws.ToString(deleteErr.Message),
			)
			failed = append(failed, key)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("delete objects: %d of %d keys failed", len(failed), len(keys))
	}
	s.logger.Debug("objects deleted", "count", len(keys))
	return nil
}

func (s *Store) InitiateMultipart(ctx context.Context, key, contentType string, metadata map[string]string) (string, error) {
	result, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		return "", fmt.Errorf("create multipart upload: %w", err)
	}
	return aws.ToString(result.UploadId), nil
}

func (s *Store) UploadPart(ctx context.Context, uploadID, key string, partNumber int32, body []byte) (string, error) {
	result, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.objectKey(key)),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       bytes.NewReader(body),
	})
	if err != nil {
		if isNoSuchUpload(err) {
			return "", domain.NewNotFound("upload_not_found", "upload %s not found", uploadID)
		}
		return "", fmt.Errorf("upload part %d: %w", partNumber, err)
	}
	return aws.ToString(result.ETag), nil
}

// CompleteMultipart assembles parts in ascending part-number order.
func (s *Store) CompleteMultipart(ctx context.Context, uploadID, key string, parts []storage.CompletedPart) (string, error) {
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		}
	}
	sort.Slice(completed, func(i, j int) bool {
		return *completed[i].PartNumber < *completed[j].PartNumber
	})

	result, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.objectKey(key)),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		if isNoSuchUpload(err) {
			return "", domain.NewNotFound("upload_not_found", "upload %s not found", uploadID)
		}
		return "", fmt.Errorf("complete multipart upload: %w", err)
	}
	return aws.ToString(result.Location), nil
}

// AbortMultipart is idempotent.
func (s *Store) AbortMultipart(ctx context.Context, uploadID, key string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.objectKey(key)),
		UploadId: aws.String(uploadID),
	})
	if err != nil && !isNoSuchUpload(err) {
		return fmt.Errorf("abort multipart upload: %w", err)
	}
	return nil
}

func (s *Store) ListParts(ctx context.Context, uploadID, key string) ([]storage.UploadedPart, error) {
	var parts []storage.UploadedPart
	paginator := s3.NewListPartsPaginator(s.client, &s3.ListPartsInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.objectKey(key)),
		UploadId: aws.String(uploadID),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isNoSuchUpload(err) {
				return nil, domain.NewNotFound("upload_not_found", "upload %s not found", uploadID)
			}
			return nil, fmt.Errorf("list parts: %w", err)
		}
		for _, p := range page.Parts {
			parts = append(parts, storage.UploadedPart{
				PartNumber:   aws.ToInt32(p.PartNumber),
				ETag:         aws.ToString(p.ETag),
				Size:         aws.ToInt64(p.Size),
				LastModified: p.LastModified,
			})
		}
	}
	return parts, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

func isNoSuchUpload(err error) bool {
	var noSuchUpload *types.NoSuchUpload
	return errors.As(err, &noSuchUpload)
}

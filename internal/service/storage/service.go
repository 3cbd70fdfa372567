package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"telecare-backend/internal/domain"
	"telecare-backend/pkg/config"
	"telecare-backend/pkg/constants"
	apperrors "telecare-backend/pkg/errors"
	"telecare-backend/pkg/sanitize"
)

// ObjectStorage abstracts the object store operations the service needs
type ObjectStorage interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// AttachmentRepository is the attachment metadata store
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	GetByID(ctx context.Context, attachmentID int64) (*domain.Attachment, error)
}

// Service handles attachment object storage
type Service struct {
	storage    ObjectStorage
	bucketName string
	repo       AttachmentRepository
}

// NewService creates a storage service over an existing object store
// client and ensures the bucket exists
func NewService(storage ObjectStorage, bucketName string, repo AttachmentRepository) (*Service, error) {
	ctx := context.Background()
	exists, err := storage.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := storage.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Service{
		storage:    storage,
		bucketName: bucketName,
		repo:       repo,
	}, nil
}

// NewMinIOService dials MinIO and builds the service around it
func NewMinIOService(cfg config.MinIOConfig, repo AttachmentRepository) (*Service, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return NewService(minioClient, cfg.Bucket, repo)
}

// UploadInput contains attachment upload data
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Upload stores the attachment bytes and records its metadata. The
// attachment starts unowned (no message); a later message claims it.
func (s *Service) Upload(ctx context.Context, input *UploadInput) (*domain.Attachment, error) {
	if input.Size > constants.MaxAttachmentSize {
		return nil, apperrors.ValidationError(
			fmt.Sprintf("attachment exceeds maximum size of %d bytes", constants.MaxAttachmentSize))
	}

	fileName := sanitize.Filename(input.FileName)
	if fileName == "" {
		return nil, apperrors.ValidationError("attachment file name is required")
	}

	objectKey := fmt.Sprintf("attachments/%s/%s", uuid.New(), fileName)

	_, err := s.storage.PutObject(ctx, s.bucketName, objectKey, input.Reader, input.Size,
		minio.PutObjectOptions{ContentType: input.ContentType})
	if err != nil {
		return nil, apperrors.StorageError(fmt.Errorf("failed to upload attachment: %w", err))
	}

	attachment := &domain.Attachment{
		FileName:    fileName,
		ContentType: input.ContentType,
		SizeBytes:   input.Size,
		ObjectKey:   objectKey,
	}

	if err := s.repo.Create(ctx, attachment); err != nil {
		// Best effort cleanup; the object is orphaned otherwise.
		_ = s.storage.RemoveObject(context.Background(), s.bucketName, objectKey, minio.RemoveObjectOptions{})
		return nil, apperrors.DatabaseError(err)
	}

	return attachment, nil
}

// DownloadURL generates a presigned download URL for an attachment
func (s *Service) DownloadURL(ctx context.Context, attachmentID int64) (string, error) {
	attachment, err := s.repo.GetByID(ctx, attachmentID)
	if err != nil {
		return "", err
	}

	presignedURL, err := s.storage.PresignedGetObject(ctx, s.bucketName, attachment.ObjectKey, time.Hour, nil)
	if err != nil {
		return "", apperrors.StorageError(fmt.Errorf("failed to generate download URL: %w", err))
	}

	return presignedURL.String(), nil
}

// Delete removes an attachment's stored object
func (s *Service) Delete(ctx context.Context, objectKey string) error {
	if err := s.storage.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return apperrors.StorageError(fmt.Errorf("failed to delete object: %w", err))
	}
	return nil
}

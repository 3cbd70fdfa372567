package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telecare-backend/internal/domain"
	apperrors "telecare-backend/pkg/errors"
)

// AttachmentRepository handles attachment metadata operations. File
// bytes live in object storage; only metadata and the object key are
// stored here.
type AttachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{pool: pool}
}

// Create inserts an attachment row. MessageID may be nil: the two-phase
// attach uploads the file first and links it to a message later.
func (r *AttachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	query := `
		INSERT INTO attachments (message_id, file_name, content_type, size_bytes, object_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now()
	err := r.pool.QueryRow(ctx, query,
		attachment.MessageID,
		attachment.FileName,
		attachment.ContentType,
		attachment.SizeBytes,
		attachment.ObjectKey,
		now,
	).Scan(&attachment.ID)

	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	attachment.CreatedAt = now
	return nil
}

// GetByID retrieves an attachment by ID
func (r *AttachmentRepository) GetByID(ctx context.Context, attachmentID int64) (*domain.Attachment, error) {
	query := `
		SELECT id, message_id, file_name, content_type, size_bytes, object_key, created_at
		FROM attachments
		WHERE id = $1
	`

	attachment := &domain.Attachment{}
	err := r.pool.QueryRow(ctx, query, attachmentID).Scan(
		&attachment.ID,
		&attachment.MessageID,
		&attachment.FileName,
		&attachment.ContentType,
		&attachment.SizeBytes,
		&attachment.ObjectKey,
		&attachment.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.AttachmentNotFoundError()
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	return attachment, nil
}

// LinkToMessage claims an unowned attachment for a message. The guard on
// message_id IS NULL enforces the invariant that an attachment's owning
// message, once set, is never reassigned. Returns false when the
// attachment does not exist or is already owned.
func (r *AttachmentRepository) LinkToMessage(ctx context.Context, attachmentID, messageID int64) (bool, error) {
	query := `
		UPDATE attachments
		SET message_id = $2
		WHERE id = $1 AND message_id IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, attachmentID, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to link attachment: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetByMessage retrieves all attachments owned by a message
func (r *AttachmentRepository) GetByMessage(ctx context.Context, messageID int64) ([]*domain.Attachment, error) {
	query := `
		SELECT id, message_id, file_name, content_type, size_bytes, object_key, created_at
		FROM attachments
		WHERE message_id = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*domain.Attachment
	for rows.Next() {
		attachment := &domain.Attachment{}
		err := rows.Scan(
			&attachment.ID,
			&attachment.MessageID,
			&attachment.FileName,
			&attachment.ContentType,
			&attachment.SizeBytes,
			&attachment.ObjectKey,
			&attachment.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, attachment)
	}

	return attachments, nil
}

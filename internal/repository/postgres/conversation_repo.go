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

// ConversationRepository handles conversation operations
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// Create creates a new patient/doctor conversation
func (r *ConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	query := `
		INSERT INTO conversations (patient_id, doctor_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id
	`

	now := time.Now()
	err := r.pool.QueryRow(ctx, query,
		conversation.PatientID,
		conversation.DoctorID,
		now,
	).Scan(&conversation.ID)

	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	return nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, conversationID int64) (*domain.Conversation, error) {
	query := `
		SELECT id, patient_id, doctor_id, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	conversation := &domain.Conversation{}
	err := r.pool.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.PatientID,
		&conversation.DoctorID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ConversationNotFoundError()
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conversation, nil
}

// GetUserConversations retrieves all conversations where the user is
// either the patient or the doctor
func (r *ConversationRepository) GetUserConversations(ctx context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error) {
	query := `
		SELECT id, patient_id, doctor_id, created_at, updated_at
		FROM conversations
		WHERE patient_id = $1 OR doctor_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get user conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		conversation := &domain.Conversation{}
		err := rows.Scan(
			&conversation.ID,
			&conversation.PatientID,
			&conversation.DoctorID,
			&conversation.CreatedAt,
			&conversation.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conversation)
	}

	return conversations, nil
}

// Touch bumps the conversation's updated_at, used when new activity
// (message, call) lands on it
func (r *ConversationRepository) Touch(ctx context.Context, conversationID int64) error {
	query := `
		UPDATE conversations
		SET updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, conversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}

	return nil
}

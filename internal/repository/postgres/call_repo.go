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

// CallRepository handles call data operations
type CallRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository creates a new call repository
func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

// Create creates a new call record
func (r *CallRepository) Create(ctx context.Context, call *domain.Call) error {
	query := `
		INSERT INTO calls (conversation_id, caller_id, receiver_id, call_type, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		call.ConversationID,
		call.CallerID,
		call.ReceiverID,
		call.CallType,
		call.Status,
		call.StartedAt,
	).Scan(&call.ID)

	if err != nil {
		return fmt.Errorf("failed to create call: %w", err)
	}

	return nil
}

// GetByID retrieves a call by ID
func (r *CallRepository) GetByID(ctx context.Context, callID int64) (*domain.Call, error) {
	query := `
		SELECT id, conversation_id, caller_id, receiver_id, call_type, status, started_at, ended_at
		FROM calls
		WHERE id = $1
	`

	call := &domain.Call{}
	err := r.pool.QueryRow(ctx, query, callID).Scan(
		&call.ID,
		&call.ConversationID,
		&call.CallerID,
		&call.ReceiverID,
		&call.CallType,
		&call.Status,
		&call.StartedAt,
		&call.EndedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.CallNotFoundError()
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	return call, nil
}

// UpdateStatus updates a call's status; endedAt is set for terminal
// states and nil otherwise
func (r *CallRepository) UpdateStatus(ctx context.Context, callID int64, status domain.CallStatus, endedAt *time.Time) error {
	query := `
		UPDATE calls
		SET status = $2,
		    ended_at = COALESCE($3, ended_at)
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, callID, status, endedAt); err != nil {
		return fmt.Errorf("failed to update call status: %w", err)
	}

	return nil
}

// GetByConversation retrieves a conversation's calls ordered by start
// time ascending
func (r *CallRepository) GetByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*domain.Call, error) {
	query := `
		SELECT id, conversation_id, caller_id, receiver_id, call_type, status, started_at, ended_at
		FROM calls
		WHERE conversation_id = $1
		ORDER BY started_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get calls: %w", err)
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		call := &domain.Call{}
		err := rows.Scan(
			&call.ID,
			&call.ConversationID,
			&call.CallerID,
			&call.ReceiverID,
			&call.CallType,
			&call.Status,
			&call.StartedAt,
			&call.EndedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, call)
	}

	return calls, nil
}

package call

import (
	"context"
	"time"

	"go.uber.org/zap"

	"telecare-backend/internal/domain"
	apperrors "telecare-backend/pkg/errors"
	"telecare-backend/pkg/logger"
)

// CallRepository is the call store consumed by the call service
type CallRepository interface {
	Create(ctx context.Context, call *domain.Call) error
	GetByID(ctx context.Context, callID int64) (*domain.Call, error)
	UpdateStatus(ctx context.Context, callID int64, status domain.CallStatus, endedAt *time.Time) error
}

// ConversationRepository resolves the conversation a call belongs to
type ConversationRepository interface {
	GetByID(ctx context.Context, conversationID int64) (*domain.Conversation, error)
}

// Service handles call lifecycle logic
type Service struct {
	callRepo         CallRepository
	conversationRepo ConversationRepository
}

// NewService creates a new call service
func NewService(callRepo CallRepository, conversationRepo ConversationRepository) *Service {
	return &Service{
		callRepo:         callRepo,
		conversationRepo: conversationRepo,
	}
}

// Create starts a call record in the initiated state. The receiver is
// always the conversation participant opposite the caller; any
// client-supplied receiver is ignored.
func (s *Service) Create(ctx context.Context, input *domain.CallCreate, callerID int64) (*domain.Call, error) {
	if !input.CallType.Valid() {
		return nil, apperrors.ValidationError("call_type must be audio or video")
	}

	conversation, err := s.conversationRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	receiverID, ok := conversation.OtherParticipant(callerID)
	if !ok {
		return nil, apperrors.ConversationNotFoundError()
	}

	call := &domain.Call{
		ConversationID: input.ConversationID,
		CallerID:       callerID,
		ReceiverID:     receiverID,
		CallType:       input.CallType,
		Status:         domain.CallStatusInitiated,
	}

	if err := s.callRepo.Create(ctx, call); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	logger.Info("call created",
		zap.Int64("call_id", call.ID),
		zap.Int64("conversation_id", call.ConversationID),
		zap.Int64("caller_id", call.CallerID),
		zap.Int64("receiver_id", call.ReceiverID),
		zap.String("call_type", string(call.CallType)))

	return call, nil
}

// Get returns a call visible to the requester. Only the two parties of
// the call may read it.
func (s *Service) Get(ctx context.Context, callID, requesterID int64) (*domain.Call, error) {
	call, err := s.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}

	if !call.IsParty(requesterID) {
		return nil, apperrors.CallNotFoundError()
	}

	return call, nil
}

// UpdateStatus advances a call along its state machine. Only the caller
// or receiver may update; transitions out of a terminal state are
// rejected, as is any transition the machine does not allow. Reaching a
// terminal state stamps the end time server-side.
func (s *Service) UpdateStatus(ctx context.Context, callID, requesterID int64, next domain.CallStatus) (*domain.Call, error) {
	call, err := s.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}

	if !call.IsParty(requesterID) {
		return nil, apperrors.AccessDeniedError("only call participants may update the call")
	}

	if !call.Status.CanTransitionTo(next) {
		return nil, apperrors.InvalidTransitionError(string(call.Status), string(next))
	}

	var endedAt *time.Time
	if next.Terminal() {
		now := time.Now().UTC()
		endedAt = &now
	}

	if err := s.callRepo.UpdateStatus(ctx, callID, next, endedAt); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	call.Status = next
	if endedAt != nil {
		call.EndedAt = endedAt
	}

	logger.Info("call status updated",
		zap.Int64("call_id", call.ID),
		zap.String("status", string(next)))

	return call, nil
}

package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"telecare-backend/internal/domain"
	apperrors "telecare-backend/pkg/errors"
	"telecare-backend/pkg/logger"
)

// MessageRepository is the message store consumed by the chat service
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*domain.Message, error)
}

// AttachmentRepository is the attachment metadata store
type AttachmentRepository interface {
	LinkToMessage(ctx context.Context, attachmentID, messageID int64) (bool, error)
	GetByMessage(ctx context.Context, messageID int64) ([]*domain.Attachment, error)
}

// UserRepository resolves sender identities and profiles
type UserRepository interface {
	GetByID(ctx context.Context, userID int64) (*domain.User, error)
	GetProfile(ctx context.Context, userID int64, accountType domain.AccountType) (*domain.Profile, error)
}

// ConversationRepository provides conversation persistence and lookups
type ConversationRepository interface {
	Create(ctx context.Context, conversation *domain.Conversation) error
	GetByID(ctx context.Context, conversationID int64) (*domain.Conversation, error)
	GetUserConversations(ctx context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error)
	Touch(ctx context.Context, conversationID int64) error
}

// CallRepository provides the calls merged into conversation history
type CallRepository interface {
	GetByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*domain.Call, error)
}

// PresenceRepository tracks user online status
type PresenceRepository interface {
	SetUserOnline(ctx context.Context, userID int64) error
	SetUserOffline(ctx context.Context, userID int64) error
	RefreshPresence(ctx context.Context, userID int64) error
}

// Service handles chat business logic
type Service struct {
	messageRepo      MessageRepository
	attachmentRepo   AttachmentRepository
	userRepo         UserRepository
	conversationRepo ConversationRepository
	callRepo         CallRepository
	presenceRepo     PresenceRepository
	mediaBaseURL     string
}

// NewService creates a new chat service
func NewService(
	messageRepo MessageRepository,
	attachmentRepo AttachmentRepository,
	userRepo UserRepository,
	conversationRepo ConversationRepository,
	callRepo CallRepository,
	presenceRepo PresenceRepository,
	mediaBaseURL string,
) *Service {
	return &Service{
		messageRepo:      messageRepo,
		attachmentRepo:   attachmentRepo,
		userRepo:         userRepo,
		conversationRepo: conversationRepo,
		callRepo:         callRepo,
		presenceRepo:     presenceRepo,
		mediaBaseURL:     strings.TrimRight(mediaBaseURL, "/"),
	}
}

// SendMessageInput contains message data. AttachmentIDs reference
// previously uploaded attachments to be claimed by this message.
type SendMessageInput struct {
	ConversationID int64
	SenderID       int64
	Text           string
	AttachmentIDs  []int64
}

// SendMessage persists a message with a server-assigned timestamp, claims
// the referenced attachments, and returns the broadcast-ready response.
// Attachment ids that do not resolve to an unowned attachment are
// silently skipped; they never abort message creation.
func (s *Service) SendMessage(ctx context.Context, input *SendMessageInput) (*domain.MessageResponse, error) {
	message := &domain.Message{
		ConversationID: input.ConversationID,
		SenderID:       input.SenderID,
		Text:           input.Text,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	for _, attachmentID := range input.AttachmentIDs {
		linked, err := s.attachmentRepo.LinkToMessage(ctx, attachmentID, message.ID)
		if err != nil {
			return nil, apperrors.DatabaseError(err)
		}
		if !linked {
			logger.Debug("attachment not linked, skipping",
				zap.Int64("attachment_id", attachmentID),
				zap.Int64("message_id", message.ID))
		}
	}

	sender, err := s.SerializeSender(ctx, input.SenderID)
	if err != nil {
		return nil, err
	}

	attachments, err := s.resolveAttachments(ctx, message.ID)
	if err != nil {
		return nil, err
	}

	if err := s.conversationRepo.Touch(ctx, input.ConversationID); err != nil {
		// Activity bookkeeping only; the message is already durable.
		logger.Warn("failed to touch conversation",
			zap.Int64("conversation_id", input.ConversationID),
			zap.Error(err))
	}

	return &domain.MessageResponse{
		ID:             message.ID,
		Text:           message.Text,
		Sender:         sender,
		Timestamp:      message.CreatedAt,
		Attachments:    attachments,
		ConversationID: message.ConversationID,
	}, nil
}

// SerializeSender resolves a user's broadcast identity fresh from the
// store, including the role-conditional avatar lookup. The avatar URL is
// absolute, composed from the configured media base URL.
func (s *Service) SerializeSender(ctx context.Context, userID int64) (*domain.SenderProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.userRepo.GetProfile(ctx, user.ID, user.AccountType)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	var profilePic *string
	if profile.AvatarPath != nil && *profile.AvatarPath != "" {
		url := s.MediaURL(*profile.AvatarPath)
		profilePic = &url
	}

	return &domain.SenderProfile{
		ID:          user.ID,
		Username:    user.Username,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		AccountType: user.AccountType,
		ProfilePic:  profilePic,
	}, nil
}

// MediaURL joins a relative storage path with the media base URL
func (s *Service) MediaURL(path string) string {
	return s.mediaBaseURL + "/" + strings.TrimLeft(path, "/")
}

func (s *Service) resolveAttachments(ctx context.Context, messageID int64) ([]domain.AttachmentResponse, error) {
	attachments, err := s.attachmentRepo.GetByMessage(ctx, messageID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	responses := make([]domain.AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		responses = append(responses, domain.AttachmentResponse{
			ID:          a.ID,
			FileName:    a.FileName,
			ContentType: a.ContentType,
			SizeBytes:   a.SizeBytes,
			URL:         s.MediaURL(a.ObjectKey),
		})
	}

	return responses, nil
}

// GetConversation returns a conversation the user is a party to.
// Outsiders get a not-found, not a forbidden, so conversation ids are
// not probeable.
func (s *Service) GetConversation(ctx context.Context, conversationID, requesterID int64) (*domain.Conversation, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !conversation.HasParticipant(requesterID) {
		return nil, apperrors.ConversationNotFoundError()
	}

	return conversation, nil
}

// GetHistoryInput contains history query parameters
type GetHistoryInput struct {
	ConversationID int64
	RequesterID    int64
	Limit          int
	Offset         int
}

// GetHistory returns the conversation's merged timeline: messages and
// calls combined into tagged history items sorted by timestamp
// ascending.
func (s *Service) GetHistory(ctx context.Context, input *GetHistoryInput) ([]domain.HistoryItem, error) {
	if _, err := s.GetConversation(ctx, input.ConversationID, input.RequesterID); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	// Pagination applies to the merged timeline, not to each source, so
	// both sources are read from the start of the conversation up to the
	// end of the requested page and sliced after the merge.
	fetch := limit + offset

	messages, err := s.messageRepo.GetByConversation(ctx, input.ConversationID, fetch, 0)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	calls, err := s.callRepo.GetByConversation(ctx, input.ConversationID, fetch, 0)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	items := make([]domain.HistoryItem, 0, len(messages)+len(calls))

	for _, message := range messages {
		sender, err := s.SerializeSender(ctx, message.SenderID)
		if err != nil {
			// A deleted sender should not hide the rest of the timeline.
			if appErr := apperrors.GetAppError(err); appErr.Code == apperrors.ErrCodeUserNotFound {
				logger.Warn("history message sender missing",
					zap.Int64("message_id", message.ID),
					zap.Int64("sender_id", message.SenderID))
				continue
			}
			return nil, err
		}

		attachments, err := s.resolveAttachments(ctx, message.ID)
		if err != nil {
			return nil, err
		}

		items = append(items, domain.NewMessageHistoryItem(&domain.MessageResponse{
			ID:             message.ID,
			Text:           message.Text,
			Sender:         sender,
			Timestamp:      message.CreatedAt,
			Attachments:    attachments,
			ConversationID: message.ConversationID,
		}))
	}

	for _, call := range calls {
		items = append(items, domain.NewCallHistoryItem(call))
	}

	domain.SortHistory(items)

	if offset >= len(items) {
		return []domain.HistoryItem{}, nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

// UpdatePresence marks a user online or offline
func (s *Service) UpdatePresence(ctx context.Context, userID int64, online bool) error {
	if online {
		return s.presenceRepo.SetUserOnline(ctx, userID)
	}
	return s.presenceRepo.SetUserOffline(ctx, userID)
}

// RefreshPresence keeps a user's online status alive (heartbeat)
func (s *Service) RefreshPresence(ctx context.Context, userID int64) error {
	return s.presenceRepo.RefreshPresence(ctx, userID)
}

// CreateConversationInput contains conversation creation data
type CreateConversationInput struct {
	PatientID int64
	DoctorID  int64
}

// CreateConversation creates a patient/doctor conversation after
// checking both parties exist and carry the expected account types.
func (s *Service) CreateConversation(ctx context.Context, input *CreateConversationInput) (*domain.Conversation, error) {
	patient, err := s.userRepo.GetByID(ctx, input.PatientID)
	if err != nil {
		return nil, err
	}
	if patient.AccountType != domain.AccountTypePatient {
		return nil, apperrors.ValidationError(fmt.Sprintf("user %d is not a patient", input.PatientID))
	}

	doctor, err := s.userRepo.GetByID(ctx, input.DoctorID)
	if err != nil {
		return nil, err
	}
	if doctor.AccountType != domain.AccountTypeDoctor {
		return nil, apperrors.ValidationError(fmt.Sprintf("user %d is not a doctor", input.DoctorID))
	}

	conversation := &domain.Conversation{
		PatientID: input.PatientID,
		DoctorID:  input.DoctorID,
	}

	if err := s.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return conversation, nil
}

// ListConversations returns the conversations the user participates in
func (s *Service) ListConversations(ctx context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}

	conversations, err := s.conversationRepo.GetUserConversations(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return conversations, nil
}

package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"telecare-backend/internal/domain"
	apperrors "telecare-backend/pkg/errors"
	"telecare-backend/pkg/logger"
)

func init() {
	logger.InitDefault()
}

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) Create(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	if args.Error(0) == nil {
		message.ID = 101
		message.CreatedAt = time.Now().UTC()
	}
	return args.Error(0)
}

func (m *mockMessageRepo) GetByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

type mockAttachmentRepo struct {
	mock.Mock
}

func (m *mockAttachmentRepo) LinkToMessage(ctx context.Context, attachmentID, messageID int64) (bool, error) {
	args := m.Called(ctx, attachmentID, messageID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAttachmentRepo) GetByMessage(ctx context.Context, messageID int64) ([]*domain.Attachment, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Attachment), args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetProfile(ctx context.Context, userID int64, accountType domain.AccountType) (*domain.Profile, error) {
	args := m.Called(ctx, userID, accountType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

type mockConversationRepo struct {
	mock.Mock
}

func (m *mockConversationRepo) Create(ctx context.Context, conversation *domain.Conversation) error {
	args := m.Called(ctx, conversation)
	if args.Error(0) == nil {
		conversation.ID = 55
	}
	return args.Error(0)
}

func (m *mockConversationRepo) GetByID(ctx context.Context, conversationID int64) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *mockConversationRepo) GetUserConversations(ctx context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *mockConversationRepo) Touch(ctx context.Context, conversationID int64) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

type mockCallRepo struct {
	mock.Mock
}

func (m *mockCallRepo) GetByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*domain.Call, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Call), args.Error(1)
}

type mockPresenceRepo struct {
	mock.Mock
}

func (m *mockPresenceRepo) SetUserOnline(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockPresenceRepo) SetUserOffline(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockPresenceRepo) RefreshPresence(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type chatMocks struct {
	messages      *mockMessageRepo
	attachments   *mockAttachmentRepo
	users         *mockUserRepo
	conversations *mockConversationRepo
	calls         *mockCallRepo
	presence      *mockPresenceRepo
}

func newTestService() (*Service, *chatMocks) {
	m := &chatMocks{
		messages:      new(mockMessageRepo),
		attachments:   new(mockAttachmentRepo),
		users:         new(mockUserRepo),
		conversations: new(mockConversationRepo),
		calls:         new(mockCallRepo),
		presence:      new(mockPresenceRepo),
	}
	svc := NewService(m.messages, m.attachments, m.users, m.conversations, m.calls, m.presence, "http://localhost:9000/media/")
	return svc, m
}

func testUser(id int64, accountType domain.AccountType) *domain.User {
	return &domain.User{
		ID:          id,
		Username:    "user",
		FirstName:   "Test",
		LastName:    "User",
		Email:       "user@example.com",
		AccountType: accountType,
	}
}

func TestSendMessage_PersistsExactlyOnce(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.messages.On("Create", ctx, mock.AnythingOfType("*domain.Message")).Return(nil).Once()
	m.users.On("GetByID", ctx, int64(7)).Return(testUser(7, domain.AccountTypePatient), nil)
	m.users.On("GetProfile", ctx, int64(7), domain.AccountTypePatient).Return(&domain.Profile{}, nil)
	m.attachments.On("GetByMessage", ctx, int64(101)).Return([]*domain.Attachment{}, nil)
	m.conversations.On("Touch", ctx, int64(5)).Return(nil)

	resp, err := svc.SendMessage(ctx, &SendMessageInput{
		ConversationID: 5,
		SenderID:       7,
		Text:           "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(101), resp.ID)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, int64(5), resp.ConversationID)
	assert.Equal(t, int64(7), resp.Sender.ID)
	assert.Nil(t, resp.Sender.ProfilePic)
	assert.Empty(t, resp.Attachments)
	m.messages.AssertNumberOfCalls(t, "Create", 1)
}

func TestSendMessage_SkipsUnlinkableAttachments(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.messages.On("Create", ctx, mock.AnythingOfType("*domain.Message")).Return(nil)
	// id 1 links, id 2 is missing or already owned and is skipped silently
	m.attachments.On("LinkToMessage", ctx, int64(1), int64(101)).Return(true, nil)
	m.attachments.On("LinkToMessage", ctx, int64(2), int64(101)).Return(false, nil)
	m.users.On("GetByID", ctx, int64(7)).Return(testUser(7, domain.AccountTypePatient), nil)
	m.users.On("GetProfile", ctx, int64(7), domain.AccountTypePatient).Return(&domain.Profile{}, nil)
	m.attachments.On("GetByMessage", ctx, int64(101)).Return([]*domain.Attachment{
		{ID: 1, FileName: "scan.png", ContentType: "image/png", SizeBytes: 2048, ObjectKey: "attachments/abc/scan.png"},
	}, nil)
	m.conversations.On("Touch", ctx, int64(5)).Return(nil)

	resp, err := svc.SendMessage(ctx, &SendMessageInput{
		ConversationID: 5,
		SenderID:       7,
		Text:           "with files",
		AttachmentIDs:  []int64{1, 2},
	})

	require.NoError(t, err)
	require.Len(t, resp.Attachments, 1)
	assert.Equal(t, int64(1), resp.Attachments[0].ID)
	assert.Equal(t, "http://localhost:9000/media/attachments/abc/scan.png", resp.Attachments[0].URL)
}

func TestSendMessage_AttachmentOrderIndependent(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.messages.On("Create", ctx, mock.AnythingOfType("*domain.Message")).Return(nil)
	m.attachments.On("LinkToMessage", ctx, int64(3), int64(101)).Return(true, nil)
	m.attachments.On("LinkToMessage", ctx, int64(1), int64(101)).Return(true, nil)
	m.users.On("GetByID", ctx, int64(7)).Return(testUser(7, domain.AccountTypePatient), nil)
	m.users.On("GetProfile", ctx, int64(7), domain.AccountTypePatient).Return(&domain.Profile{}, nil)
	m.attachments.On("GetByMessage", ctx, int64(101)).Return([]*domain.Attachment{
		{ID: 1, FileName: "a.pdf", ObjectKey: "attachments/a.pdf"},
		{ID: 3, FileName: "b.pdf", ObjectKey: "attachments/b.pdf"},
	}, nil)
	m.conversations.On("Touch", ctx, int64(5)).Return(nil)

	resp, err := svc.SendMessage(ctx, &SendMessageInput{
		ConversationID: 5,
		SenderID:       7,
		Text:           "both",
		AttachmentIDs:  []int64{3, 1},
	})

	require.NoError(t, err)
	assert.Len(t, resp.Attachments, 2)
	m.attachments.AssertCalled(t, "LinkToMessage", ctx, int64(3), int64(101))
	m.attachments.AssertCalled(t, "LinkToMessage", ctx, int64(1), int64(101))
}

func TestSendMessage_PersistFailureReturnsError(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.messages.On("Create", ctx, mock.AnythingOfType("*domain.Message")).
		Return(assert.AnError)

	resp, err := svc.SendMessage(ctx, &SendMessageInput{ConversationID: 5, SenderID: 7, Text: "x"})

	require.Error(t, err)
	assert.Nil(t, resp)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeDatabase, appErr.Code)
}

func TestSerializeSender_DoctorAvatarAbsoluteURL(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	avatar := "avatars/doc.png"
	m.users.On("GetByID", ctx, int64(9)).Return(testUser(9, domain.AccountTypeDoctor), nil)
	m.users.On("GetProfile", ctx, int64(9), domain.AccountTypeDoctor).
		Return(&domain.Profile{AvatarPath: &avatar}, nil)

	sender, err := svc.SerializeSender(ctx, 9)

	require.NoError(t, err)
	require.NotNil(t, sender.ProfilePic)
	assert.Equal(t, "http://localhost:9000/media/avatars/doc.png", *sender.ProfilePic)
	assert.Equal(t, domain.AccountTypeDoctor, sender.AccountType)
}

func TestGetConversation_NonParticipantGetsNotFound(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.conversations.On("GetByID", ctx, int64(5)).Return(&domain.Conversation{
		ID: 5, PatientID: 1, DoctorID: 2,
	}, nil)

	_, err := svc.GetConversation(ctx, 5, 99)

	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeConversationNotFound, appErr.Code)
}

func TestGetHistory_MergesMessagesAndCallsSorted(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m.conversations.On("GetByID", ctx, int64(5)).Return(&domain.Conversation{
		ID: 5, PatientID: 1, DoctorID: 2,
	}, nil)
	m.messages.On("GetByConversation", ctx, int64(5), 50, 0).Return([]*domain.Message{
		{ID: 10, ConversationID: 5, SenderID: 1, Text: "first", CreatedAt: base},
		{ID: 11, ConversationID: 5, SenderID: 2, Text: "third", CreatedAt: base.Add(2 * time.Minute)},
	}, nil)
	m.calls.On("GetByConversation", ctx, int64(5), 50, 0).Return([]*domain.Call{
		{ID: 20, ConversationID: 5, CallerID: 1, ReceiverID: 2, CallType: domain.CallTypeVideo,
			Status: domain.CallStatusCompleted, StartedAt: base.Add(time.Minute)},
	}, nil)
	m.users.On("GetByID", ctx, int64(1)).Return(testUser(1, domain.AccountTypePatient), nil)
	m.users.On("GetByID", ctx, int64(2)).Return(testUser(2, domain.AccountTypeDoctor), nil)
	m.users.On("GetProfile", ctx, mock.Anything, mock.Anything).Return(&domain.Profile{}, nil)
	m.attachments.On("GetByMessage", ctx, mock.Anything).Return([]*domain.Attachment{}, nil)

	items, err := svc.GetHistory(ctx, &GetHistoryInput{ConversationID: 5, RequesterID: 1})

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, domain.HistoryTypeMessage, items[0].Type)
	assert.Equal(t, domain.HistoryTypeCall, items[1].Type)
	assert.Equal(t, domain.HistoryTypeMessage, items[2].Type)
	assert.True(t, items[0].Timestamp.Before(items[1].Timestamp))
	assert.True(t, items[1].Timestamp.Before(items[2].Timestamp))
}

func TestGetHistory_PaginatesMergedTimeline(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m.conversations.On("GetByID", ctx, int64(5)).Return(&domain.Conversation{
		ID: 5, PatientID: 1, DoctorID: 2,
	}, nil)
	// Timeline alternates message/call: m@0, c@1, m@2, c@3, m@4. Both
	// sources must be read from the start, wide enough to cover the
	// requested page (limit 2, offset 2 → 4 rows each).
	m.messages.On("GetByConversation", ctx, int64(5), 4, 0).Return([]*domain.Message{
		{ID: 10, ConversationID: 5, SenderID: 1, Text: "m0", CreatedAt: base},
		{ID: 11, ConversationID: 5, SenderID: 1, Text: "m2", CreatedAt: base.Add(2 * time.Minute)},
		{ID: 12, ConversationID: 5, SenderID: 1, Text: "m4", CreatedAt: base.Add(4 * time.Minute)},
	}, nil)
	m.calls.On("GetByConversation", ctx, int64(5), 4, 0).Return([]*domain.Call{
		{ID: 20, ConversationID: 5, CallerID: 1, ReceiverID: 2, CallType: domain.CallTypeAudio,
			Status: domain.CallStatusCompleted, StartedAt: base.Add(time.Minute)},
		{ID: 21, ConversationID: 5, CallerID: 2, ReceiverID: 1, CallType: domain.CallTypeVideo,
			Status: domain.CallStatusMissed, StartedAt: base.Add(3 * time.Minute)},
	}, nil)
	m.users.On("GetByID", ctx, int64(1)).Return(testUser(1, domain.AccountTypePatient), nil)
	m.users.On("GetProfile", ctx, mock.Anything, mock.Anything).Return(&domain.Profile{}, nil)
	m.attachments.On("GetByMessage", ctx, mock.Anything).Return([]*domain.Attachment{}, nil)

	items, err := svc.GetHistory(ctx, &GetHistoryInput{
		ConversationID: 5, RequesterID: 1, Limit: 2, Offset: 2,
	})

	// The second page of the merged timeline is [m@2, c@3]; per-source
	// pagination would have returned [m@4, ...] instead.
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.HistoryTypeMessage, items[0].Type)
	assert.Equal(t, int64(11), items[0].Message.ID)
	assert.Equal(t, domain.HistoryTypeCall, items[1].Type)
	assert.Equal(t, int64(21), items[1].Call.ID)
}

func TestGetHistory_OffsetPastEndReturnsEmptyPage(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m.conversations.On("GetByID", ctx, int64(5)).Return(&domain.Conversation{
		ID: 5, PatientID: 1, DoctorID: 2,
	}, nil)
	m.messages.On("GetByConversation", ctx, int64(5), 12, 0).Return([]*domain.Message{
		{ID: 10, ConversationID: 5, SenderID: 1, Text: "only", CreatedAt: base},
	}, nil)
	m.calls.On("GetByConversation", ctx, int64(5), 12, 0).Return([]*domain.Call{}, nil)
	m.users.On("GetByID", ctx, int64(1)).Return(testUser(1, domain.AccountTypePatient), nil)
	m.users.On("GetProfile", ctx, mock.Anything, mock.Anything).Return(&domain.Profile{}, nil)
	m.attachments.On("GetByMessage", ctx, mock.Anything).Return([]*domain.Attachment{}, nil)

	items, err := svc.GetHistory(ctx, &GetHistoryInput{
		ConversationID: 5, RequesterID: 1, Limit: 10, Offset: 2,
	})

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetHistory_SkipsMessagesFromDeletedSenders(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m.conversations.On("GetByID", ctx, int64(5)).Return(&domain.Conversation{
		ID: 5, PatientID: 1, DoctorID: 2,
	}, nil)
	m.messages.On("GetByConversation", ctx, int64(5), 50, 0).Return([]*domain.Message{
		{ID: 10, ConversationID: 5, SenderID: 42, Text: "ghost", CreatedAt: base},
	}, nil)
	m.calls.On("GetByConversation", ctx, int64(5), 50, 0).Return([]*domain.Call{}, nil)
	m.users.On("GetByID", ctx, int64(42)).Return(nil, apperrors.UserNotFoundError())

	items, err := svc.GetHistory(ctx, &GetHistoryInput{ConversationID: 5, RequesterID: 1})

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateConversation_RejectsWrongAccountTypes(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.users.On("GetByID", ctx, int64(1)).Return(testUser(1, domain.AccountTypeDoctor), nil)

	_, err := svc.CreateConversation(ctx, &CreateConversationInput{PatientID: 1, DoctorID: 2})

	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
}

func TestCreateConversation_Succeeds(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.users.On("GetByID", ctx, int64(1)).Return(testUser(1, domain.AccountTypePatient), nil)
	m.users.On("GetByID", ctx, int64(2)).Return(testUser(2, domain.AccountTypeDoctor), nil)
	m.conversations.On("Create", ctx, mock.AnythingOfType("*domain.Conversation")).Return(nil)

	conversation, err := svc.CreateConversation(ctx, &CreateConversationInput{PatientID: 1, DoctorID: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(55), conversation.ID)
}

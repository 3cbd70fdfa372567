package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecare-backend/internal/domain"
	callservice "telecare-backend/internal/service/call"
	chatservice "telecare-backend/internal/service/chat"
	"telecare-backend/pkg/constants"
	apperrors "telecare-backend/pkg/errors"
	"telecare-backend/pkg/jwt"
	"telecare-backend/pkg/metrics"
)

const testSecret = "test-secret-key-well-over-32-chars-long"

// In-memory stand-ins for the persistence layer. The sessions under
// test only exercise the paths below.

type stubUserRepo struct {
	users map[int64]*domain.User
}

func (s *stubUserRepo) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return nil, apperrors.UserNotFoundError()
	}
	return user, nil
}

func (s *stubUserRepo) GetProfile(ctx context.Context, userID int64, accountType domain.AccountType) (*domain.Profile, error) {
	return &domain.Profile{}, nil
}

type stubMessageRepo struct {
	created []*domain.Message
}

func (s *stubMessageRepo) Create(ctx context.Context, message *domain.Message) error {
	message.ID = int64(len(s.created) + 1)
	message.CreatedAt = time.Now().UTC()
	s.created = append(s.created, message)
	return nil
}

func (s *stubMessageRepo) GetByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*domain.Message, error) {
	return nil, nil
}

type stubAttachmentRepo struct{}

func (s *stubAttachmentRepo) LinkToMessage(ctx context.Context, attachmentID, messageID int64) (bool, error) {
	return false, nil
}

func (s *stubAttachmentRepo) GetByMessage(ctx context.Context, messageID int64) ([]*domain.Attachment, error) {
	return nil, nil
}

type stubConversationRepo struct {
	conversation *domain.Conversation
}

func (s *stubConversationRepo) Create(ctx context.Context, conversation *domain.Conversation) error {
	return nil
}

func (s *stubConversationRepo) GetByID(ctx context.Context, conversationID int64) (*domain.Conversation, error) {
	return s.conversation, nil
}

func (s *stubConversationRepo) GetUserConversations(ctx context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error) {
	return nil, nil
}

func (s *stubConversationRepo) Touch(ctx context.Context, conversationID int64) error {
	return nil
}

type stubCallRepo struct {
	call *domain.Call
}

func (s *stubCallRepo) Create(ctx context.Context, call *domain.Call) error { return nil }

func (s *stubCallRepo) GetByID(ctx context.Context, callID int64) (*domain.Call, error) {
	return s.call, nil
}

func (s *stubCallRepo) UpdateStatus(ctx context.Context, callID int64, status domain.CallStatus, endedAt *time.Time) error {
	return nil
}

func (s *stubCallRepo) GetByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*domain.Call, error) {
	return nil, nil
}

type stubPresenceRepo struct{}

func (s *stubPresenceRepo) SetUserOnline(ctx context.Context, userID int64) error  { return nil }
func (s *stubPresenceRepo) SetUserOffline(ctx context.Context, userID int64) error { return nil }
func (s *stubPresenceRepo) RefreshPresence(ctx context.Context, userID int64) error {
	return nil
}

type sessionFixture struct {
	server     *httptest.Server
	jwtManager *jwt.JWTManager
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := &stubUserRepo{users: map[int64]*domain.User{
		1: {ID: 1, Username: "patient", AccountType: domain.AccountTypePatient},
		2: {ID: 2, Username: "doctor", AccountType: domain.AccountTypeDoctor},
	}}
	conversations := &stubConversationRepo{conversation: &domain.Conversation{ID: 42, PatientID: 1, DoctorID: 2}}
	calls := &stubCallRepo{call: &domain.Call{
		ID: 7, ConversationID: 42, CallerID: 1, ReceiverID: 2,
		CallType: domain.CallTypeVideo, Status: domain.CallStatusInitiated,
	}}

	chatSvc := chatservice.NewService(
		&stubMessageRepo{}, &stubAttachmentRepo{}, users, conversations, calls,
		&stubPresenceRepo{}, "http://media.local")
	callSvc := callservice.NewService(calls, conversations)

	jwtManager := jwt.NewJWTManager(testSecret, time.Hour)
	authenticator := NewAuthenticator(jwtManager, nil, users)
	m := metrics.New("test")
	hub := NewHub()

	router := gin.New()
	chatHandler := NewChatHandler(hub, chatSvc, authenticator, m)
	callHandler := NewCallHandler(hub, callSvc, chatSvc, authenticator, m)
	router.GET("/conversation/:conversationID/", chatHandler.ServeWS)
	router.GET("/call/:callID/", callHandler.ServeWS)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &sessionFixture{server: server, jwtManager: jwtManager}
}

func (f *sessionFixture) wsURL(path, token string) string {
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	if token != "" {
		url += "?foo=bar&token=" + token + "&trailing=1"
	}
	return url
}

func (f *sessionFixture) token(t *testing.T, userID int64, username, accountType string) string {
	t.Helper()
	token, err := f.jwtManager.GenerateAccessToken(userID, username, accountType)
	require.NoError(t, err)
	return token
}

func (f *sessionFixture) dial(t *testing.T, path, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL(path, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &frame))
	return frame
}

func TestConversationSession_InvalidTokenClosedWith4001(t *testing.T) {
	f := newSessionFixture(t)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL("/conversation/42/", "garbage"), nil)
	require.NoError(t, err, "handshake succeeds; rejection is a close frame")
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)

	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	assert.Equal(t, constants.CloseAuthFailure, closeErr.Code)
}

func TestConversationSession_MissingTokenClosedWith4001(t *testing.T) {
	f := newSessionFixture(t)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL("/conversation/42/", ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()

	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	assert.Equal(t, constants.CloseAuthFailure, closeErr.Code)
}

func TestConversationSession_ChatMessageEchoesToEveryone(t *testing.T) {
	f := newSessionFixture(t)

	patient := f.dial(t, "/conversation/42/", f.token(t, 1, "patient", "patient"))
	doctor := f.dial(t, "/conversation/42/", f.token(t, 2, "doctor", "doctor"))

	// Give the doctor's join a moment to land in the hub.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, patient.WriteJSON(map[string]interface{}{
		"action": "chat_message",
		"text":   "hi",
		"sender": 1,
	}))

	for name, conn := range map[string]*websocket.Conn{"patient": patient, "doctor": doctor} {
		frame := readFrame(t, conn)
		assert.Equal(t, "message", frame["type"], "%s frame type", name)
		assert.Equal(t, "hi", frame["text"], "%s text", name)
		assert.NotNil(t, frame["sender"], "%s sender", name)
		assert.NotEmpty(t, frame["timestamp"], "%s timestamp", name)
		assert.Equal(t, float64(42), frame["conversation"], "%s conversation", name)
	}
}

func TestConversationSession_UnknownActionDropped(t *testing.T) {
	f := newSessionFixture(t)

	patient := f.dial(t, "/conversation/42/", f.token(t, 1, "patient", "patient"))

	require.NoError(t, patient.WriteJSON(map[string]interface{}{"action": "dance"}))
	require.NoError(t, patient.WriteJSON(map[string]interface{}{
		"action": "chat_message",
		"text":   "still alive",
	}))

	// The unknown action produced nothing; the next frame received is
	// the echo of the follow-up message.
	frame := readFrame(t, patient)
	assert.Equal(t, "message", frame["type"])
	assert.Equal(t, "still alive", frame["text"])
}

func TestConversationSession_CallMessagePassthrough(t *testing.T) {
	f := newSessionFixture(t)

	patient := f.dial(t, "/conversation/42/", f.token(t, 1, "patient", "patient"))
	doctor := f.dial(t, "/conversation/42/", f.token(t, 2, "doctor", "doctor"))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, patient.WriteJSON(map[string]interface{}{
		"action":   "call_message",
		"callData": map[string]interface{}{"call_id": 7, "kind": "started"},
	}))

	frame := readFrame(t, doctor)
	assert.Equal(t, "new_call", frame["type"])
	call := frame["call"].(map[string]interface{})
	assert.Equal(t, float64(7), call["call_id"])
}

func TestCallSession_OfferRelayedWithEchoSuppression(t *testing.T) {
	f := newSessionFixture(t)

	caller := f.dial(t, "/call/7/", f.token(t, 1, "patient", "patient"))
	receiver := f.dial(t, "/call/7/", f.token(t, 2, "doctor", "doctor"))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, caller.WriteJSON(map[string]interface{}{
		"action":         "webrtc_offer",
		"offer":          map[string]interface{}{"sdp": "v=0...", "type": "offer"},
		"conversationId": 42,
	}))

	frame := readFrame(t, receiver)
	assert.Equal(t, "webrtc_offer", frame["type"])
	assert.Equal(t, float64(1), frame["sender"])
	assert.NotNil(t, frame["offer"])

	// The caller must not hear its own offer back.
	caller.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := caller.ReadMessage()
	assert.Error(t, err, "no echo expected on the originating connection")
}

func TestCallSession_FirstOfferNotifiesConversationRoom(t *testing.T) {
	f := newSessionFixture(t)

	// Doctor sits in the conversation room, not the call room.
	doctorChat := f.dial(t, "/conversation/42/", f.token(t, 2, "doctor", "doctor"))
	caller := f.dial(t, "/call/7/", f.token(t, 1, "patient", "patient"))
	time.Sleep(100 * time.Millisecond)

	offer := map[string]interface{}{
		"action":         "webrtc_offer",
		"offer":          map[string]interface{}{"sdp": "v=0...", "type": "offer"},
		"conversationId": 42,
	}
	require.NoError(t, caller.WriteJSON(offer))

	frame := readFrame(t, doctorChat)
	assert.Equal(t, "call_notification", frame["type"])
	assert.Equal(t, float64(7), frame["call_id"])
	callerProfile := frame["caller"].(map[string]interface{})
	assert.Equal(t, float64(1), callerProfile["id"])

	// A second offer from the same connection must not notify again.
	require.NoError(t, caller.WriteJSON(offer))
	doctorChat.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := doctorChat.ReadMessage()
	assert.Error(t, err, "only the first offer notifies the conversation room")
}

func TestCallSession_ICECandidateRelay(t *testing.T) {
	f := newSessionFixture(t)

	caller := f.dial(t, "/call/7/", f.token(t, 1, "patient", "patient"))
	receiver := f.dial(t, "/call/7/", f.token(t, 2, "doctor", "doctor"))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, receiver.WriteJSON(map[string]interface{}{
		"action":         "webrtc_ice_candidate",
		"candidate":      map[string]interface{}{"candidate": "candidate:0 1 UDP ..."},
		"conversationId": 42,
	}))

	frame := readFrame(t, caller)
	assert.Equal(t, "webrtc_ice_candidate", frame["type"])
	assert.Equal(t, float64(2), frame["sender"])
	assert.NotNil(t, frame["candidate"])
}

func TestConversationSession_HTTPRequestToWSRouteRejected(t *testing.T) {
	f := newSessionFixture(t)

	resp, err := http.Get(f.server.URL + "/conversation/notanumber/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

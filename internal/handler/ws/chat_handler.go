package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"telecare-backend/internal/domain"
	chatservice "telecare-backend/internal/service/chat"
	"telecare-backend/pkg/constants"
	"telecare-backend/pkg/logger"
	"telecare-backend/pkg/metrics"
)

// Chat frame types
const (
	ActionChatMessage = "chat_message"
	ActionCallMessage = "call_message"

	FrameTypeMessage          = "message"
	FrameTypeNewCall          = "new_call"
	FrameTypeCallNotification = "call_notification"
)

// chatFrame is an inbound conversation-room frame, tagged by action
type chatFrame struct {
	Action      string                 `json:"action"`
	Text        string                 `json:"text"`
	Sender      int64                  `json:"sender"`
	Attachments []domain.AttachmentRef `json:"attachments"`
	CallData    json.RawMessage        `json:"callData"`
}

// MessageBroadcast is the outbound echo of a persisted chat message
type MessageBroadcast struct {
	Type           string                      `json:"type"`
	ID             int64                       `json:"id"`
	Text           string                      `json:"text"`
	Sender         *domain.SenderProfile       `json:"sender"`
	Timestamp      time.Time                   `json:"timestamp"`
	Attachments    []domain.AttachmentResponse `json:"attachments"`
	ConversationID int64                       `json:"conversation"`
}

// NewMessageBroadcast builds the room frame for a persisted message
func NewMessageBroadcast(response *domain.MessageResponse) *MessageBroadcast {
	return &MessageBroadcast{
		Type:           FrameTypeMessage,
		ID:             response.ID,
		Text:           response.Text,
		Sender:         response.Sender,
		Timestamp:      response.Timestamp,
		Attachments:    response.Attachments,
		ConversationID: response.ConversationID,
	}
}

// newCallBroadcast relays an opaque call event to chat participants
type newCallBroadcast struct {
	Type string          `json:"type"`
	Call json.RawMessage `json:"call"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChatHandler serves WebSocket connections for conversation rooms
type ChatHandler struct {
	hub           *Hub
	chatService   *chatservice.Service
	authenticator *Authenticator
	metrics       *metrics.Metrics
}

// NewChatHandler creates a chat WebSocket handler
func NewChatHandler(hub *Hub, chatService *chatservice.Service, authenticator *Authenticator, m *metrics.Metrics) *ChatHandler {
	return &ChatHandler{
		hub:           hub,
		chatService:   chatService,
		authenticator: authenticator,
		metrics:       m,
	}
}

// ServeWS upgrades the connection for a conversation room. The token
// travels as a query parameter; a failed check closes with the
// reserved code before any room join.
func (h *ChatHandler) ServeWS(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversationID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	authCtx, cancel := context.WithTimeout(c.Request.Context(), constants.AuthHandshakeTimeout)
	defer cancel()

	user, err := h.authenticator.Authenticate(authCtx, TokenFromQuery(c.Request.URL.RawQuery))
	if err != nil {
		h.metrics.AuthFailure()
		logger.Info("websocket authentication failed",
			zap.Int64("conversation_id", conversationID),
			zap.Error(err))
		closeUnauthorized(conn)
		return
	}

	// Only conversation participants may join its room.
	if _, err := h.chatService.GetConversation(authCtx, conversationID, user.ID); err != nil {
		logger.Info("websocket room join rejected",
			zap.Int64("conversation_id", conversationID),
			zap.Int64("user_id", user.ID))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "not a participant"),
			time.Now().Add(constants.WebSocketWriteTimeout))
		conn.Close()
		return
	}

	room := ConversationRoom(conversationID)
	client := newClient(h.hub, conn, user, room)
	client.handleFrame = func(frame []byte) {
		h.handleFrame(client, conversationID, frame)
	}
	client.onClose = func() {
		h.metrics.ConnectionClosed("conversation")
		if err := h.chatService.UpdatePresence(context.Background(), user.ID, false); err != nil {
			logger.Warn("failed to mark user offline", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}
	client.onPong = func() {
		if err := h.chatService.RefreshPresence(context.Background(), user.ID); err != nil {
			logger.Debug("presence heartbeat failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	h.hub.Join(room, client)
	h.metrics.ConnectionOpened("conversation")

	if err := h.chatService.UpdatePresence(c.Request.Context(), user.ID, true); err != nil {
		logger.Warn("failed to mark user online", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	go client.writePump()
	go client.readPump()
}

// handleFrame dispatches one inbound frame. Per-frame failures are
// isolated: the connection and its room membership survive.
func (h *ChatHandler) handleFrame(client *Client, conversationID int64, frame []byte) {
	var msg chatFrame
	if err := json.Unmarshal(frame, &msg); err != nil {
		logger.Debug("dropping malformed frame",
			zap.Int64("conversation_id", conversationID),
			zap.Error(err))
		return
	}

	h.metrics.FrameReceived(msg.Action)

	switch msg.Action {
	case ActionChatMessage:
		h.handleChatMessage(client, conversationID, &msg)
	case ActionCallMessage:
		h.handleCallMessage(client, conversationID, &msg)
	default:
		logger.Debug("dropping unknown action",
			zap.String("action", msg.Action),
			zap.Int64("conversation_id", conversationID))
	}
}

func (h *ChatHandler) handleChatMessage(client *Client, conversationID int64, msg *chatFrame) {
	attachmentIDs := make([]int64, 0, len(msg.Attachments))
	for _, ref := range msg.Attachments {
		attachmentIDs = append(attachmentIDs, ref.ID)
	}

	response, err := h.chatService.SendMessage(context.Background(), &chatservice.SendMessageInput{
		ConversationID: conversationID,
		SenderID:       client.UserID(),
		Text:           msg.Text,
		AttachmentIDs:  attachmentIDs,
	})
	if err != nil {
		// No partial broadcast: the message either persisted or nothing
		// reaches the room.
		logger.Error("failed to persist chat message",
			zap.Int64("conversation_id", conversationID),
			zap.Int64("sender_id", client.UserID()),
			zap.Error(err))
		return
	}

	h.metrics.MessagePersisted()
	for range response.Attachments {
		h.metrics.AttachmentLinked()
	}
	h.metrics.Broadcast(FrameTypeMessage)

	// Everyone in the room receives the echo, the sender included.
	h.hub.Broadcast(client.Room(), NewMessageBroadcast(response))
}

func (h *ChatHandler) handleCallMessage(client *Client, conversationID int64, msg *chatFrame) {
	if len(msg.CallData) == 0 {
		logger.Debug("dropping call_message without payload",
			zap.Int64("conversation_id", conversationID))
		return
	}

	h.metrics.Broadcast(FrameTypeNewCall)
	h.hub.Broadcast(client.Room(), &newCallBroadcast{
		Type: FrameTypeNewCall,
		Call: msg.CallData,
	})
}

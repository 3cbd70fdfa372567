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
	callservice "telecare-backend/internal/service/call"
	"telecare-backend/pkg/constants"
	"telecare-backend/pkg/logger"
	"telecare-backend/pkg/metrics"
)

// Signaling frame types
const (
	ActionWebRTCOffer        = "webrtc_offer"
	ActionWebRTCAnswer       = "webrtc_answer"
	ActionWebRTCICECandidate = "webrtc_ice_candidate"
)

// signalingFrame is an inbound call-room frame. The offer, answer and
// candidate payloads are opaque to the server; conversationId rides
// alongside so the first offer can alert the parent conversation room.
type signalingFrame struct {
	Action         string          `json:"action"`
	Offer          json.RawMessage `json:"offer,omitempty"`
	Answer         json.RawMessage `json:"answer,omitempty"`
	Candidate      json.RawMessage `json:"candidate,omitempty"`
	ConversationID int64           `json:"conversationId"`
}

// signalingBroadcast is the relayed form of a signaling frame
type signalingBroadcast struct {
	Type      string          `json:"type"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Sender    int64           `json:"sender"`
}

// callNotification alerts chat participants that a call has started
type callNotification struct {
	Type   string                `json:"type"`
	CallID int64                 `json:"call_id"`
	Caller *domain.SenderProfile `json:"caller"`
}

// SenderSerializer resolves a user's broadcast identity
type SenderSerializer interface {
	SerializeSender(ctx context.Context, userID int64) (*domain.SenderProfile, error)
}

// CallHandler serves WebSocket connections for call-signaling rooms
type CallHandler struct {
	hub           *Hub
	callService   *callservice.Service
	senders       SenderSerializer
	authenticator *Authenticator
	metrics       *metrics.Metrics
}

// NewCallHandler creates a call-signaling WebSocket handler
func NewCallHandler(hub *Hub, callService *callservice.Service, senders SenderSerializer, authenticator *Authenticator, m *metrics.Metrics) *CallHandler {
	return &CallHandler{
		hub:           hub,
		callService:   callService,
		senders:       senders,
		authenticator: authenticator,
		metrics:       m,
	}
}

// callSession tracks per-connection signaling state
type callSession struct {
	client *Client
	callID int64

	// sentNotification flips after this connection's first relayed
	// offer has alerted the conversation room.
	sentNotification bool
}

// ServeWS upgrades the connection for a call-signaling room
func (h *CallHandler) ServeWS(c *gin.Context) {
	callID, err := strconv.ParseInt(c.Param("callID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid call id"})
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
			zap.Int64("call_id", callID),
			zap.Error(err))
		closeUnauthorized(conn)
		return
	}

	// Only the call's two parties may join its signaling room.
	if _, err := h.callService.Get(authCtx, callID, user.ID); err != nil {
		logger.Info("call room join rejected",
			zap.Int64("call_id", callID),
			zap.Int64("user_id", user.ID))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "not a call participant"),
			time.Now().Add(constants.WebSocketWriteTimeout))
		conn.Close()
		return
	}

	room := CallRoom(callID)
	client := newClient(h.hub, conn, user, room)
	session := &callSession{client: client, callID: callID}

	client.handleFrame = func(frame []byte) {
		h.handleFrame(session, frame)
	}
	client.onClose = func() {
		h.metrics.ConnectionClosed("call")
	}

	h.hub.Join(room, client)
	h.metrics.ConnectionOpened("call")

	go client.writePump()
	go client.readPump()
}

// handleFrame relays one signaling frame to the rest of the room. The
// originating connection never receives its own frame back; handles
// are compared, not user ids, so a second tab of the same user still
// hears the relay.
func (h *CallHandler) handleFrame(session *callSession, frame []byte) {
	var msg signalingFrame
	if err := json.Unmarshal(frame, &msg); err != nil {
		logger.Debug("dropping malformed signaling frame",
			zap.Int64("call_id", session.callID),
			zap.Error(err))
		return
	}

	h.metrics.FrameReceived(msg.Action)

	switch msg.Action {
	case ActionWebRTCOffer, ActionWebRTCAnswer, ActionWebRTCICECandidate:
	default:
		logger.Debug("dropping unknown signaling action",
			zap.String("action", msg.Action),
			zap.Int64("call_id", session.callID))
		return
	}

	h.metrics.SignalingRelayed(msg.Action)
	h.hub.BroadcastExcept(session.client.Room(), &signalingBroadcast{
		Type:      msg.Action,
		Offer:     msg.Offer,
		Answer:    msg.Answer,
		Candidate: msg.Candidate,
		Sender:    session.client.UserID(),
	}, session.client)

	if msg.Action == ActionWebRTCOffer && !session.sentNotification {
		session.sentNotification = true
		h.notifyConversation(session, msg.ConversationID)
	}
}

// notifyConversation pushes a call_notification frame into the parent
// conversation room so chat participants not yet in the call room are
// alerted
func (h *CallHandler) notifyConversation(session *callSession, conversationID int64) {
	if conversationID == 0 {
		logger.Warn("offer carries no conversation id, skipping notification",
			zap.Int64("call_id", session.callID))
		return
	}

	caller, err := h.senders.SerializeSender(context.Background(), session.client.UserID())
	if err != nil {
		logger.Error("failed to serialize caller for notification",
			zap.Int64("call_id", session.callID),
			zap.Error(err))
		return
	}

	h.metrics.CallNotification()
	h.metrics.Broadcast(FrameTypeCallNotification)
	h.hub.Broadcast(ConversationRoom(conversationID), &callNotification{
		Type:   FrameTypeCallNotification,
		CallID: session.callID,
		Caller: caller,
	})
}

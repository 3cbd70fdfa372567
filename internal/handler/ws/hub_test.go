package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecare-backend/internal/domain"
	"telecare-backend/pkg/logger"
)

func init() {
	logger.InitDefault()
}

func newHubClient(hub *Hub, userID int64, room RoomKey) *Client {
	return newHubClientBuffered(hub, userID, room, 8)
}

func newHubClientBuffered(hub *Hub, userID int64, room RoomKey, buffer int) *Client {
	return &Client{
		hub:  hub,
		user: &domain.User{ID: userID},
		room: room,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func receivedFrame(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case payload := <-c.send:
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(payload, &frame))
		return frame
	default:
		t.Fatal("expected a frame, send queue empty")
		return nil
	}
}

func TestHub_JoinAndBroadcast(t *testing.T) {
	hub := NewHub()
	room := ConversationRoom(42)

	a := newHubClient(hub, 1, room)
	b := newHubClient(hub, 2, room)
	hub.Join(room, a)
	hub.Join(room, b)

	assert.Equal(t, 2, hub.RoomSize(room))

	hub.Broadcast(room, map[string]string{"type": "message", "text": "hi"})

	assert.Equal(t, "hi", receivedFrame(t, a)["text"])
	assert.Equal(t, "hi", receivedFrame(t, b)["text"])
}

func TestHub_JoinIsIdempotentPerConnection(t *testing.T) {
	hub := NewHub()
	room := ConversationRoom(42)

	a := newHubClient(hub, 1, room)
	hub.Join(room, a)
	hub.Join(room, a)

	assert.Equal(t, 1, hub.RoomSize(room))

	hub.Broadcast(room, map[string]string{"text": "once"})
	assert.Len(t, a.send, 1)
}

func TestHub_BroadcastExceptSuppressesSenderHandleOnly(t *testing.T) {
	hub := NewHub()
	room := CallRoom(7)

	// Two tabs of the same user plus a peer.
	tab1 := newHubClient(hub, 1, room)
	tab2 := newHubClient(hub, 1, room)
	peer := newHubClient(hub, 2, room)
	hub.Join(room, tab1)
	hub.Join(room, tab2)
	hub.Join(room, peer)

	hub.BroadcastExcept(room, map[string]string{"type": "webrtc_offer"}, tab1)

	assert.Empty(t, tab1.send, "originating connection must not hear its own frame")
	assert.Len(t, tab2.send, 1, "other tab of the same user still receives the relay")
	assert.Len(t, peer.send, 1)
}

func TestHub_LeaveStopsDeliveryAndReapsEmptyRoom(t *testing.T) {
	hub := NewHub()
	room := ConversationRoom(42)

	a := newHubClient(hub, 1, room)
	b := newHubClient(hub, 2, room)
	hub.Join(room, a)
	hub.Join(room, b)

	hub.Leave(room, a)
	hub.Broadcast(room, map[string]string{"text": "bye"})

	assert.Empty(t, a.send)
	assert.Len(t, b.send, 1)

	hub.Leave(room, b)
	assert.Equal(t, 0, hub.RoomSize(room))

	hub.mu.RLock()
	_, exists := hub.rooms[room]
	hub.mu.RUnlock()
	assert.False(t, exists, "empty room should be reaped")
}

func TestHub_StalledClientEvictedAndLaterBroadcastsSurvive(t *testing.T) {
	hub := NewHub()
	room := ConversationRoom(42)

	stalled := newHubClientBuffered(hub, 1, room, 1)
	healthy := newHubClient(hub, 2, room)
	hub.Join(room, stalled)
	hub.Join(room, healthy)

	// First frame fills the stalled member's queue; the second finds it
	// full and must evict the member.
	hub.Broadcast(room, map[string]string{"text": "first"})
	hub.Broadcast(room, map[string]string{"text": "second"})

	assert.Equal(t, 1, hub.RoomSize(room), "stalled member should be evicted")

	select {
	case <-stalled.done:
	default:
		t.Fatal("evicted client should be shut down")
	}

	assert.NotPanics(t, func() {
		hub.Broadcast(room, map[string]string{"text": "third"})
	})

	assert.Len(t, stalled.send, 1, "no delivery after eviction")
	assert.Len(t, healthy.send, 3)
}

func TestHub_BroadcastToEmptyRoomIsNoOp(t *testing.T) {
	hub := NewHub()

	assert.NotPanics(t, func() {
		hub.Broadcast(ConversationRoom(999), map[string]string{"text": "void"})
	})
}

func TestHub_RoomNamespacesAreDisjoint(t *testing.T) {
	hub := NewHub()

	conversationClient := newHubClient(hub, 1, ConversationRoom(7))
	callClient := newHubClient(hub, 2, CallRoom(7))
	hub.Join(ConversationRoom(7), conversationClient)
	hub.Join(CallRoom(7), callClient)

	hub.Broadcast(CallRoom(7), map[string]string{"type": "webrtc_offer"})

	assert.Empty(t, conversationClient.send, "conversation:7 must not hear call:7 traffic")
	assert.Len(t, callClient.send, 1)
}

func TestTokenFromQuery(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  string
	}{
		{"only token", "token=abc", "abc"},
		{"token first", "token=abc&foo=bar", "abc"},
		{"token last", "foo=bar&token=abc", "abc"},
		{"token between", "a=1&token=abc&b=2", "abc"},
		{"missing", "foo=bar", ""},
		{"empty query", "", ""},
		{"empty value", "token=", ""},
		{"prefix not param", "xtoken=abc", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TokenFromQuery(tc.query))
		})
	}
}

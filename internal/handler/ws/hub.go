package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"telecare-backend/pkg/logger"
)

// RoomKey identifies a broadcast room. Conversation and call rooms live
// in disjoint namespaces.
type RoomKey string

// ConversationRoom derives the room key for a conversation
func ConversationRoom(conversationID int64) RoomKey {
	return RoomKey(fmt.Sprintf("conversation:%d", conversationID))
}

// CallRoom derives the room key for a call
func CallRoom(callID int64) RoomKey {
	return RoomKey(fmt.Sprintf("call:%d", callID))
}

// Hub is the process-wide room registry. It maps rooms to their member
// connections and fans frames out to per-member send queues. The mutex
// guards only the mapping; delivery happens against a snapshot so a
// member disconnecting mid-broadcast never invalidates iteration.
type Hub struct {
	mu    sync.RWMutex
	rooms map[RoomKey]map[*Client]bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[RoomKey]map[*Client]bool),
	}
}

// Join adds a client to a room, creating the room if absent. Joining
// twice with the same client is a no-op.
func (h *Hub) Join(room RoomKey, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[client] = true
}

// Leave removes a client from a room and reaps the room once empty. A
// removed client receives no further broadcasts.
func (h *Hub) Leave(room RoomKey, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}

	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// RoomSize returns the current member count of a room
func (h *Hub) RoomSize(room RoomKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast delivers a frame to every member of the room, including
// whoever originated it. An empty room is a no-op.
func (h *Hub) Broadcast(room RoomKey, frame interface{}) {
	h.broadcast(room, frame, nil)
}

// BroadcastExcept delivers a frame to every member of the room except
// the given connection. Exclusion compares connection handles, not user
// identity, so a second tab of the same user still receives the frame.
func (h *Hub) BroadcastExcept(room RoomKey, frame interface{}, except *Client) {
	h.broadcast(room, frame, except)
}

func (h *Hub) broadcast(room RoomKey, frame interface{}, except *Client) {
	payload, err := json.Marshal(frame)
	if err != nil {
		logger.Error("failed to marshal broadcast frame",
			zap.String("room", string(room)),
			zap.Error(err))
		return
	}

	h.mu.RLock()
	members := h.rooms[room]
	snapshot := make([]*Client, 0, len(members))
	for client := range members {
		if client != except {
			snapshot = append(snapshot, client)
		}
	}
	h.mu.RUnlock()

	var stalled []*Client
	for _, client := range snapshot {
		select {
		case client.send <- payload:
		default:
			// Send queue full: the client is not draining its socket.
			stalled = append(stalled, client)
		}
	}

	if len(stalled) == 0 {
		return
	}

	// Evict stalled members from the room before tearing them down, so
	// a concurrent broadcast can no longer snapshot them.
	h.mu.Lock()
	if members := h.rooms[room]; members != nil {
		for _, client := range stalled {
			delete(members, client)
		}
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	for _, client := range stalled {
		logger.Warn("dropping stalled websocket client",
			zap.String("room", string(room)),
			zap.Int64("user_id", client.UserID()))
		client.shutdown()
	}
}

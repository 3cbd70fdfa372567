package domain

import (
	"time"
)

// CallType represents the media type of a call
type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

// Valid reports whether the call type is one of the known values.
func (t CallType) Valid() bool {
	return t == CallTypeAudio || t == CallTypeVideo
}

// CallStatus represents the lifecycle state of a call. Transitions only
// move forward; every state except initiated and ongoing is terminal.
type CallStatus string

const (
	CallStatusInitiated CallStatus = "initiated"
	CallStatusOngoing   CallStatus = "ongoing"
	CallStatusCompleted CallStatus = "completed"
	CallStatusMissed    CallStatus = "missed"
	CallStatusRejected  CallStatus = "rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusMissed, CallStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status may move from s to next.
func (s CallStatus) CanTransitionTo(next CallStatus) bool {
	switch s {
	case CallStatusInitiated:
		return next == CallStatusOngoing || next == CallStatusCompleted ||
			next == CallStatusMissed || next == CallStatusRejected
	case CallStatusOngoing:
		return next == CallStatusCompleted
	}
	return false
}

// Call represents a video/audio call between the two conversation
// participants. Caller and receiver are not symmetric: the receiver is
// deduced at creation time as the other participant of the conversation.
// Maps to the calls table.
type Call struct {
	ID             int64      `json:"id" db:"id"`
	ConversationID int64      `json:"conversation" db:"conversation_id"`
	CallerID       int64      `json:"caller" db:"caller_id"`
	ReceiverID     int64      `json:"receiver" db:"receiver_id"`
	CallType       CallType   `json:"call_type" db:"call_type"`
	Status         CallStatus `json:"status" db:"status"`
	StartedAt      time.Time  `json:"start_time" db:"started_at"`
	EndedAt        *time.Time `json:"end_time,omitempty" db:"ended_at"`
}

// IsParty reports whether the user is the caller or the receiver.
func (c *Call) IsParty(userID int64) bool {
	return c.CallerID == userID || c.ReceiverID == userID
}

// CallCreate represents the call-creation request body. Any receiver the
// client supplies is untrusted and ignored; the receiver is always
// deduced from the conversation participants.
type CallCreate struct {
	ConversationID int64    `json:"conversation" binding:"required"`
	CallType       CallType `json:"call_type" binding:"required"`
}

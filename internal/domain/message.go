package domain

import (
	"time"
)

// Message represents a chat message entity
// Maps to the messages table. CreatedAt is assigned server-side at
// persistence time, never taken from the client.
type Message struct {
	ID             int64     `json:"id" db:"id"`
	ConversationID int64     `json:"conversation" db:"conversation_id"`
	SenderID       int64     `json:"sender" db:"sender_id"`
	Text           string    `json:"text" db:"text"`
	CreatedAt      time.Time `json:"timestamp" db:"created_at"`
}

// MessageResponse represents a persisted message returned to clients,
// with the sender serialized and attachment metadata resolved.
type MessageResponse struct {
	ID             int64                `json:"id"`
	Text           string               `json:"text"`
	Sender         *SenderProfile       `json:"sender"`
	Timestamp      time.Time            `json:"timestamp"`
	Attachments    []AttachmentResponse `json:"attachments"`
	ConversationID int64                `json:"conversation"`
}

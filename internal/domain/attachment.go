package domain

import (
	"time"
)

// Attachment represents an uploaded file. MessageID is NULL while the
// attachment is waiting for its message (two-phase attach): files may be
// uploaded before the message exists and linked by id afterwards. Once
// set, the owning message is never reassigned.
// Maps to the attachments table; the bytes live in object storage under
// ObjectKey.
type Attachment struct {
	ID          int64     `json:"id" db:"id"`
	MessageID   *int64    `json:"message,omitempty" db:"message_id"`
	FileName    string    `json:"file_name" db:"file_name"`
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size" db:"size_bytes"`
	ObjectKey   string    `json:"-" db:"object_key"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AttachmentResponse is the attachment metadata sent to clients.
// URL is absolute, composed from the configured media base URL.
type AttachmentResponse struct {
	ID          int64  `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size"`
	URL         string `json:"url"`
}

// AttachmentRef is the shape clients use to reference a previously
// uploaded attachment inside a chat_message frame.
type AttachmentRef struct {
	ID int64 `json:"id"`
}

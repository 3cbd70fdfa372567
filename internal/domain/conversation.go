package domain

import (
	"time"
)

// Conversation links exactly one patient and one doctor.
// Maps to the conversations table.
type Conversation struct {
	ID        int64     `json:"id" db:"id"`
	PatientID int64     `json:"patient" db:"patient_id"`
	DoctorID  int64     `json:"doctor" db:"doctor_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasParticipant reports whether the user is a party to the conversation.
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.PatientID == userID || c.DoctorID == userID
}

// OtherParticipant returns the participant that is not userID. The second
// return value is false when userID is not a party to the conversation.
func (c *Conversation) OtherParticipant(userID int64) (int64, bool) {
	switch userID {
	case c.PatientID:
		return c.DoctorID, true
	case c.DoctorID:
		return c.PatientID, true
	}
	return 0, false
}

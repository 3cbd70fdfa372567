package domain

import (
	"time"
)

// AccountType discriminates the kinds of platform participants.
// Role checks are always equality checks against these values.
type AccountType string

const (
	AccountTypePatient AccountType = "patient"
	AccountTypeDoctor  AccountType = "doctor"
	AccountTypeAdmin   AccountType = "admin"
)

// User represents a platform account
// Maps to the users table
type User struct {
	ID          int64       `json:"id" db:"id"`
	Username    string      `json:"username" db:"username"`
	FirstName   string      `json:"first_name" db:"first_name"`
	LastName    string      `json:"last_name" db:"last_name"`
	Email       string      `json:"email" db:"email"`
	AccountType AccountType `json:"account_type" db:"account_type"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// Profile carries the role-specific profile fields needed by the
// realtime layer. AvatarPath is relative to the configured media base URL.
// Maps to patient_profiles / doctor_profiles depending on account type.
type Profile struct {
	UserID     int64   `json:"user_id" db:"user_id"`
	AvatarPath *string `json:"avatar_path,omitempty" db:"avatar_path"`
	Phone      *string `json:"phone,omitempty" db:"phone"`
}

// SenderProfile is the serialized sender identity broadcast with every
// chat message. It is resolved fresh at message-creation time, never
// cached on the connection. ProfilePic is an absolute URL.
type SenderProfile struct {
	ID          int64       `json:"id"`
	Username    string      `json:"username"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Email       string      `json:"email"`
	AccountType AccountType `json:"account_type"`
	ProfilePic  *string     `json:"profile_pic"`
}

// FullName returns the user's display name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Approval statuses for user accounts. Only approved users can be
// called or added to groups.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// User represents a user entity in the system
// Maps to users table
type User struct {
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Email          string    `json:"email" db:"email"`
	Username       string    `json:"username" db:"username"`
	PasswordHash   string    `json:"-" db:"password_hash"` // Never expose in JSON
	FirstName      string    `json:"first_name" db:"first_name"`
	LastName       string    `json:"last_name" db:"last_name"`
	AvatarURL      *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	ApprovalStatus string    `json:"approval_status" db:"approval_status"` // pending, approved, rejected
	Status         string    `json:"status" db:"status"`                   // online, offline, busy
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// IsApproved reports whether the account has passed admin approval.
func (u *User) IsApproved() bool {
	return u.ApprovalStatus == ApprovalApproved
}

// UserCreate represents data needed to register a new user
type UserCreate struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required,min=3,max=30"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

// UserLogin represents login credentials
type UserLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the safe user representation returned to clients
// and embedded in call/group payloads as participant display fields.
type UserResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Status    string    `json:"status"`
}

// ToResponse converts User to UserResponse (removes sensitive data)
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		UserID:    u.UserID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
		Status:    u.Status,
	}
}

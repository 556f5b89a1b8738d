package domain

import (
	"time"

	"github.com/google/uuid"
)

// Call statuses. A call starts in calling and moves through the state
// machine: calling -> connected -> ended, calling -> rejected, or
// calling -> missed. ended, rejected, missed and failed are terminal.
const (
	CallStatusCalling   = "calling"
	CallStatusConnected = "connected"
	CallStatusEnded     = "ended"
	CallStatusRejected  = "rejected"
	CallStatusMissed    = "missed"
	CallStatusFailed    = "failed"
)

// Call types
const (
	CallTypeAudio = "audio"
	CallTypeVideo = "video"
)

// Call represents one call attempt between two users.
// Rows are never deleted; they serve as permanent call history.
type Call struct {
	CallID          uuid.UUID  `json:"call_id" db:"call_id"`
	CallerID        uuid.UUID  `json:"caller_id" db:"caller_id"`
	RecipientID     uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	CallType        string     `json:"call_type" db:"call_type"` // audio, video
	Status          string     `json:"status" db:"status"`
	StartedAt       *time.Time `json:"started_at,omitempty" db:"started_at"` // set on connect
	EndedAt         *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	DurationSeconds int        `json:"duration_seconds" db:"duration_seconds"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// IsTerminal reports whether the call is in a final state from which
// no further transitions are permitted.
func (c *Call) IsTerminal() bool {
	switch c.Status {
	case CallStatusEnded, CallStatusRejected, CallStatusMissed, CallStatusFailed:
		return true
	}
	return false
}

// IsParticipant reports whether the user is the caller or the recipient.
func (c *Call) IsParticipant(userID uuid.UUID) bool {
	return c.CallerID == userID || c.RecipientID == userID
}

// OtherParticipant returns the participant on the other side of the call.
func (c *Call) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.CallerID == userID {
		return c.RecipientID
	}
	return c.CallerID
}

// CallResponse is the call representation returned to clients, carrying
// participant display fields joined from the users table.
type CallResponse struct {
	CallID          uuid.UUID     `json:"call_id"`
	CallType        string        `json:"call_type"`
	Status          string        `json:"status"`
	Caller          *UserResponse `json:"caller"`
	Recipient       *UserResponse `json:"recipient"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	EndedAt         *time.Time    `json:"ended_at,omitempty"`
	DurationSeconds int           `json:"duration_seconds"`
	CreatedAt       time.Time     `json:"created_at"`
}

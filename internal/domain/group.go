package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxGroupMembers is the capacity ceiling per group, creator included.
const MaxGroupMembers = 20

// MaxInitialMembers is the number of members that can be named at group
// creation: MaxGroupMembers minus the creator.
const MaxInitialMembers = MaxGroupMembers - 1

// Group types
const (
	GroupTypePrivate = "private"
	GroupTypePublic  = "public"
)

// Member roles
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

// ValidRole reports whether role is one of the recognized member roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleModerator || role == RoleUser
}

// Group represents a named collection of members.
// Maps to groups table. Deletion is a soft delete via IsActive.
type Group struct {
	GroupID       uuid.UUID  `json:"group_id" db:"group_id"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description" db:"description"`
	GroupType     string     `json:"group_type" db:"group_type"` // private, public
	AvatarURL     *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatorID     uuid.UUID  `json:"creator_id" db:"creator_id"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// GroupMember is the join entity linking a user to a group. A departed
// member keeps a historical row with IsActive=false; re-adding the user
// reactivates that row rather than inserting a duplicate.
type GroupMember struct {
	MemberID  uuid.UUID  `json:"member_id" db:"member_id"`
	GroupID   uuid.UUID  `json:"group_id" db:"group_id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Role      string     `json:"role" db:"role"` // admin, moderator, user
	InvitedBy *uuid.UUID `json:"invited_by,omitempty" db:"invited_by"`
	JoinedAt  time.Time  `json:"joined_at" db:"joined_at"`
	LeftAt    *time.Time `json:"left_at,omitempty" db:"left_at"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	IsMuted   bool       `json:"is_muted" db:"is_muted"`
}

// Capabilities describes what a member role is allowed to do. It is a
// pure function of the role, decoupled from persistence.
type Capabilities struct {
	CanInvite    bool
	CanRemove    bool
	CanEditGroup bool
	IsAdmin      bool
}

// CapabilitiesOf maps a member role to its capability set.
func CapabilitiesOf(role string) Capabilities {
	switch role {
	case RoleAdmin:
		return Capabilities{CanInvite: true, CanRemove: true, CanEditGroup: true, IsAdmin: true}
	case RoleModerator:
		return Capabilities{CanInvite: true}
	default:
		return Capabilities{}
	}
}

// GroupMemberResponse is a membership row with user display fields.
type GroupMemberResponse struct {
	UserID   uuid.UUID     `json:"user_id"`
	User     *UserResponse `json:"user,omitempty"`
	Role     string        `json:"role"`
	JoinedAt time.Time     `json:"joined_at"`
	IsMuted  bool          `json:"is_muted"`
}

// GroupResponse is the group representation returned to clients,
// carrying the active member list.
type GroupResponse struct {
	GroupID       uuid.UUID              `json:"group_id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	GroupType     string                 `json:"group_type"`
	AvatarURL     *string                `json:"avatar_url,omitempty"`
	CreatorID     uuid.UUID              `json:"creator_id"`
	Members       []*GroupMemberResponse `json:"members"`
	LastMessageAt *time.Time             `json:"last_message_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// GroupCreate represents data needed to create a group
type GroupCreate struct {
	Name           string      `json:"name" binding:"required,min=1,max=100"`
	Description    string      `json:"description" binding:"max=1000"`
	GroupType      string      `json:"group_type" binding:"omitempty,oneof=private public"`
	AvatarURL      *string     `json:"avatar_url,omitempty"`
	InitialMembers []uuid.UUID `json:"initial_members,omitempty"`
}

// GroupUpdate represents a partial group profile update
type GroupUpdate struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=1000"`
	GroupType   *string `json:"group_type,omitempty" binding:"omitempty,oneof=private public"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

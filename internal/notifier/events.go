package notifier

import (
	"fmt"

	"github.com/google/uuid"
)

// Event names published on the realtime channels. Clients switch on
// these to update call and group state.
const (
	EventCallIncoming = "call.incoming"
	EventCallResponse = "call.response"
	EventCallEnded    = "call.ended"

	EventMessageNew = "message.new"

	EventGroupJoin    = "group_join"
	EventGroupLeave   = "group_leave"
	EventGroupUpdated = "group_updated"
	EventGroupDeleted = "group_deleted"

	EventGroupMemberJoined      = "group_member_joined"
	EventGroupMemberLeft        = "group_member_left"
	EventGroupMemberRoleUpdated = "group_member_role_updated"
)

// UserTopic is the per-user channel carrying events addressed to one
// person: incoming calls, call responses, direct messages, group
// invitations and removals.
func UserTopic(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s", userID)
}

// GroupTopic is the per-group channel carrying events all members see.
func GroupTopic(groupID uuid.UUID) string {
	return fmt.Sprintf("group:%s", groupID)
}

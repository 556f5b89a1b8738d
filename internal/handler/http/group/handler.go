package group

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatlink-backend/internal/domain"
	"chatlink-backend/internal/service/group"
	"chatlink-backend/pkg/response"
)

// Handler handles group HTTP requests
type Handler struct {
	groupService *group.Service
}

// NewHandler creates a new group handler
func NewHandler(groupService *group.Service) *Handler {
	return &Handler{
		groupService: groupService,
	}
}

// AddMemberRequest carries the user to add and an optional role
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"omitempty,oneof=admin moderator user"`
}

// UpdateRoleRequest carries the new role for a member
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin moderator user"`
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return uuid.Nil, false
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		response.InternalError(c, "Invalid user ID")
		return uuid.Nil, false
	}
	return userID, true
}

func groupIDParam(c *gin.Context) (uuid.UUID, bool) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid group ID")
		return uuid.Nil, false
	}
	return groupID, true
}

// CreateGroup creates a new group with the caller as admin
// POST /v1/groups
func (h *Handler) CreateGroup(c *gin.Context) {
	var req domain.GroupCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	creatorID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.groupService.CreateGroup(c.Request.Context(), creatorID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, gin.H{"group": resp}, "Group created successfully")
}

// ListGroups returns the caller's active groups
// GET /v1/groups
func (h *Handler) ListGroups(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	groups, err := h.groupService.ListGroups(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"groups": groups,
		"count":  len(groups),
	})
}

// GetGroup returns a single group the caller belongs to
// GET /v1/groups/:id
func (h *Handler) GetGroup(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.groupService.GetGroup(c.Request.Context(), groupID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"group": resp})
}

// UpdateGroup applies a partial profile update
// PUT /v1/groups/:id
func (h *Handler) UpdateGroup(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req domain.GroupUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.groupService.UpdateGroup(c.Request.Context(), groupID, userID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, gin.H{"group": resp}, "Group updated successfully")
}

// DeleteGroup soft-deletes a group, creator only
// DELETE /v1/groups/:id
func (h *Handler) DeleteGroup(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.groupService.DeleteGroup(c.Request.Context(), groupID, userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, gin.H{"group_id": groupID}, "Group deleted successfully")
}

// GetMembers lists the group's active members
// GET /v1/groups/:id/members
func (h *Handler) GetMembers(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	members, err := h.groupService.GetMembers(c.Request.Context(), groupID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"members": members,
		"count":   len(members),
	})
}

// AddMember adds a user to the group
// POST /v1/groups/:id/members
func (h *Handler) AddMember(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	memberID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.ValidationError(c, "Invalid user ID format")
		return
	}

	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.groupService.AddMember(c.Request.Context(), groupID, actorID, memberID, req.Role)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, gin.H{"group": resp}, "Member added successfully")
}

// RemoveMember removes a member from the group
// DELETE /v1/groups/:id/members/:userId
func (h *Handler) RemoveMember(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	memberID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.ValidationError(c, "Invalid user ID format")
		return
	}

	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.groupService.RemoveMember(c.Request.Context(), groupID, actorID, memberID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, gin.H{
		"group_id":  groupID,
		"member_id": memberID,
	}, "Member removed successfully")
}

// LeaveGroup removes the caller from the group
// POST /v1/groups/:id/leave
func (h *Handler) LeaveGroup(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.groupService.LeaveGroup(c.Request.Context(), groupID, userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, gin.H{"group_id": groupID}, "Successfully left the group")
}

// UpdateMemberRole changes a member's role
// PUT /v1/groups/:id/members/:userId/role
func (h *Handler) UpdateMemberRole(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	memberID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.ValidationError(c, "Invalid user ID format")
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.groupService.UpdateMemberRole(c.Request.Context(), groupID, actorID, memberID, req.Role)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, gin.H{"group": resp}, "Member role updated successfully")
}

// MuteGroup silences notifications from the group for the caller
// POST /v1/groups/:id/mute
func (h *Handler) MuteGroup(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.groupService.MuteGroup(c.Request.Context(), groupID, userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, gin.H{"group_id": groupID}, "Group muted successfully")
}

// UnmuteGroup re-enables notifications from the group for the caller
// POST /v1/groups/:id/unmute
func (h *Handler) UnmuteGroup(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.groupService.UnmuteGroup(c.Request.Context(), groupID, userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, gin.H{"group_id": groupID}, "Group unmuted successfully")
}

package group

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatlink-backend/internal/domain"
	"chatlink-backend/internal/notifier"
	"chatlink-backend/internal/repository/postgres"
	apperrors "chatlink-backend/pkg/errors"
	"chatlink-backend/pkg/logger"
	"chatlink-backend/pkg/metrics"
	"chatlink-backend/pkg/push"
)

// Tx is the unit of work membership mutations run in. The group row
// lock serializes capacity checks and admin succession; counts are only
// trustworthy while it is held.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindApprovedUsers(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error)
	CreateGroup(ctx context.Context, group *domain.Group) error
	GetGroupForUpdate(ctx context.Context, groupID uuid.UUID) (*domain.Group, error)
	UpdateGroup(ctx context.Context, group *domain.Group) error
	DeactivateGroup(ctx context.Context, groupID uuid.UUID) error
	CreateMember(ctx context.Context, member *domain.GroupMember) error
	FindMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error)
	GetMemberForUpdate(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error)
	ReactivateMember(ctx context.Context, memberID uuid.UUID, role string, invitedBy *uuid.UUID) error
	UpdateMemberRole(ctx context.Context, memberID uuid.UUID, role string) error
	DeactivateMember(ctx context.Context, memberID uuid.UUID) error
	DeactivateAllMembers(ctx context.Context, groupID uuid.UUID) error
	SetMemberMuted(ctx context.Context, memberID uuid.UUID, muted bool) error
	CountActiveMembers(ctx context.Context, groupID uuid.UUID) (int, error)
	CountActiveAdmins(ctx context.Context, groupID uuid.UUID) (int, error)
	OldestActiveMemberExcept(ctx context.Context, groupID, excludeUserID uuid.UUID) (*domain.GroupMember, error)
}

// Store provides transactional and read-only access to group data.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	GetGroup(ctx context.Context, groupID uuid.UUID) (*domain.Group, error)
	GetActiveMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error)
	GetGroupMembers(ctx context.Context, groupID uuid.UUID) ([]*domain.GroupMemberResponse, error)
	ListUserGroups(ctx context.Context, userID uuid.UUID) ([]*domain.Group, error)
}

type storeAdapter struct {
	*postgres.Store
}

func (a storeAdapter) Begin(ctx context.Context) (Tx, error) {
	return a.Store.Begin(ctx)
}

// NewStore adapts the PostgreSQL store to the Store interface.
func NewStore(s *postgres.Store) Store {
	return storeAdapter{s}
}

// Service implements group lifecycle and membership management. Groups
// hold at most 20 members including the creator; the creator is a
// structural admin who cannot be demoted, removed or leave.
type Service struct {
	store     Store
	publisher notifier.Publisher
	push      *push.Dispatcher
	metrics   *metrics.Metrics
}

// NewService creates a new group service. push and metrics may be nil.
func NewService(store Store, publisher notifier.Publisher, dispatcher *push.Dispatcher, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		push:      dispatcher,
		metrics:   m,
	}
}

// CreateGroup creates a group with the creator as admin plus up to 19
// validated initial members. Duplicate IDs and the creator's own ID
// are dropped before the limit check.
func (s *Service) CreateGroup(ctx context.Context, creatorID uuid.UUID, input *domain.GroupCreate) (*domain.GroupResponse, error) {
	members := dedupeMembers(input.InitialMembers, creatorID)
	if len(members) > domain.MaxInitialMembers {
		return nil, apperrors.ValidationError(fmt.Sprintf(
			"Maximum %d initial members allowed (%d total including creator). Provided: %d",
			domain.MaxInitialMembers, domain.MaxGroupMembers, len(members)))
	}

	groupType := input.GroupType
	if groupType == "" {
		groupType = domain.GroupTypePrivate
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	if len(members) > 0 {
		approved, err := tx.FindApprovedUsers(ctx, members)
		if err != nil {
			return nil, apperrors.DatabaseError(err)
		}
		if len(approved) != len(members) {
			invalid := missingIDs(members, approved)
			return nil, apperrors.ValidationError("Invalid or unapproved user IDs: " + strings.Join(invalid, ", "))
		}
	}

	now := time.Now().UTC()
	group := &domain.Group{
		GroupID:     uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		GroupType:   groupType,
		AvatarURL:   input.AvatarURL,
		CreatorID:   creatorID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := tx.CreateGroup(ctx, group); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	creator := &domain.GroupMember{
		MemberID:  uuid.New(),
		GroupID:   group.GroupID,
		UserID:    creatorID,
		Role:      domain.RoleAdmin,
		InvitedBy: &creatorID,
		JoinedAt:  now,
		IsActive:  true,
	}
	if err := tx.CreateMember(ctx, creator); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	for _, memberID := range members {
		member := &domain.GroupMember{
			MemberID:  uuid.New(),
			GroupID:   group.GroupID,
			UserID:    memberID,
			Role:      domain.RoleUser,
			InvitedBy: &creatorID,
			JoinedAt:  now,
			IsActive:  true,
		}
		if err := tx.CreateMember(ctx, member); err != nil {
			return nil, apperrors.DatabaseError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordGroupCreated()
	}

	resp, err := s.toResponse(ctx, group)
	if err != nil {
		return nil, err
	}

	logger.Info("Group created",
		zap.String("group_id", group.GroupID.String()),
		zap.String("creator_id", creatorID.String()),
		zap.String("group_type", groupType),
		zap.Int("initial_members", len(members)))

	s.publisher.Publish(ctx, notifier.UserTopic(creatorID), notifier.EventGroupJoin, map[string]interface{}{
		"group": resp,
		"type":  "created",
	})
	for _, memberID := range members {
		s.publisher.Publish(ctx, notifier.UserTopic(memberID), notifier.EventGroupJoin, map[string]interface{}{
			"group": resp,
			"type":  "added",
		})
	}

	return resp, nil
}

// GetGroup retrieves group details with the active member list. Only
// members can see a group.
func (s *Service) GetGroup(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupResponse, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if group == nil {
		return nil, apperrors.GroupNotFoundError()
	}

	membership, err := s.store.GetActiveMember(ctx, groupID, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if membership == nil {
		return nil, apperrors.ForbiddenError("You are not a member of this group")
	}

	return s.toResponse(ctx, group)
}

// GetMembers retrieves the active members of a group.
func (s *Service) GetMembers(ctx context.Context, groupID, userID uuid.UUID) ([]*domain.GroupMemberResponse, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if group == nil {
		return nil, apperrors.GroupNotFoundError()
	}

	membership, err := s.store.GetActiveMember(ctx, groupID, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if membership == nil {
		return nil, apperrors.ForbiddenError("You are not a member of this group")
	}

	return s.store.GetGroupMembers(ctx, groupID)
}

// ListGroups retrieves the groups the user belongs to, most recently
// active first. Member lists are omitted.
func (s *Service) ListGroups(ctx context.Context, userID uuid.UUID) ([]*domain.GroupResponse, error) {
	groups, err := s.store.ListUserGroups(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	responses := make([]*domain.GroupResponse, 0, len(groups))
	for _, g := range groups {
		responses = append(responses, buildResponse(g, nil))
	}

	return responses, nil
}

// UpdateGroup applies a partial update to the group profile. Requires
// edit permission (admin).
func (s *Service) UpdateGroup(ctx context.Context, groupID, userID uuid.UUID, input *domain.GroupUpdate) (*domain.GroupResponse, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	group, err := tx.GetGroupForUpdate(ctx, groupID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if group == nil {
		return nil, apperrors.GroupNotFoundError()
	}

	membership, err := tx.FindMember(ctx, groupID, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if membership == nil || !membership.IsActive || !domain.CapabilitiesOf(membership.Role).CanEditGroup {
		return nil, apperrors.ForbiddenError("You do not have permission to edit this group")
	}

	if input.Name != nil {
		group.Name = *input.Name
	}
	if input.Description != nil {
		group.Description = *input.Description
	}
	if input.GroupType != nil {
		group.GroupType = *input.GroupType
	}
	if input.AvatarURL != nil {
		group.AvatarURL = input.AvatarURL
	}
	group.UpdatedAt = time.Now().UTC()

	if err := tx.UpdateGroup(ctx, group); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	resp, err := s.toResponse(ctx, group)
	if err != nil {
		return nil, err
	}

	logger.Info("Group updated",
		zap.String("group_id", groupID.String()),
		zap.String("user_id", userID.String()))

	s.publisher.Publish(ctx, notifier.GroupTopic(groupID), notifier.EventGroupUpdated, map[string]interface{}{
		"group":      resp,
		"updated_by": userID,
	})

	return resp, nil
}

// DeleteGroup soft-deletes a group and deactivates all memberships.
// Only the creator can delete.
func (s *Service) DeleteGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	group, err := tx.GetGroupForUpdate(ctx, groupID)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if group == nil {
		return apperrors.GroupNotFoundError()
	}
	if group.CreatorID != userID {
		return apperrors.ForbiddenError("Only the group creator can delete the group")
	}

	if err := tx.DeactivateGroup(ctx, groupID); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := tx.DeactivateAllMembers(ctx, groupID); err != nil {
		return apperrors.DatabaseError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.DatabaseError(err)
	}

	logger.Info("Group deleted",
		zap.String("group_id", groupID.String()),
		zap.String("user_id", userID.String()),
		zap.String("name", group.Name))

	s.publisher.Publish(ctx, notifier.GroupTopic(groupID), notifier.EventGroupDeleted, map[string]interface{}{
		"group_id":   groupID,
		"deleted_by": userID,
	})

	return nil
}

// AddMember adds a user to a group. The group row lock makes the
// capacity check and the insert atomic against concurrent additions.
// Re-adding a departed member reactivates the historical row.
func (s *Service) AddMember(ctx context.Context, groupID, actorID, memberID uuid.UUID, role string) (*domain.GroupResponse, error) {
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return nil, apperrors.ValidationError("Invalid role: " + role)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	group, err := tx.GetGroupForUpdate(ctx, groupID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if group == nil {
		return nil, apperrors.GroupNotFoundError()
	}

	membership, err := tx.FindMember(ctx, groupID, actorID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if membership == nil || !membership.IsActive || !domain.CapabilitiesOf(membership.Role).CanInvite {
		return nil, apperrors.ForbiddenError("You do not have permission to add members to this group")
	}

	userToAdd, err := tx.GetUser(ctx, memberID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if userToAdd == nil || !userToAdd.IsApproved() {
		return nil, apperrors.ValidationError("User not found or not approved")
	}

	if memberID == group.CreatorID {
		return nil, apperrors.ValidationError("Group creator is already a member")
	}

	existing, err := tx.FindMember(ctx, groupID, memberID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if existing != nil && existing.IsActive {
		return nil, apperrors.ValidationError("User is already a member of this group")
	}

	count, err := tx.CountActiveMembers(ctx, groupID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if count >= domain.MaxGroupMembers {
		return nil, apperrors.ValidationError(fmt.Sprintf(
			"Group has reached maximum member limit (%d). Current: %d", domain.MaxGroupMembers, count))
	}

	if existing != nil {
		if err := tx.ReactivateMember(ctx, existing.MemberID, role, &actorID); err != nil {
			return nil, apperrors.DatabaseError(err)
		}
	} else {
		member := &domain.GroupMember{
			MemberID:  uuid.New(),
			GroupID:   groupID,
			UserID:    memberID,
			Role:      role,
			InvitedBy: &actorID,
			JoinedAt:  time.Now().UTC(),
			IsActive:  true,
		}
		if err := tx.CreateMember(ctx, member); err != nil {
			return nil, apperrors.DatabaseError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordMemberAdded()
	}

	resp, err := s.toResponse(ctx, group)
	if err != nil {
		return nil, err
	}

	logger.Info("Group member added",
		zap.String("group_id", groupID.String()),
		zap.String("user_id", actorID.String()),
		zap.String("member_id", memberID.String()),
		zap.String("role", role))

	s.publisher.Publish(ctx, notifier.GroupTopic(groupID), notifier.EventGroupMemberJoined, map[string]interface{}{
		"group":     resp,
		"member_id": memberID,
		"added_by":  actorID,
		"role":      role,
	})
	s.publisher.Publish(ctx, notifier.UserTopic(memberID), notifier.EventGroupJoin, map[string]interface{}{
		"group": resp,
		"type":  "added",
	})

	if s.push != nil {
		s.push.SendToUser(ctx, memberID, &push.Notification{
			Title: group.Name,
			Body:  "You have been added to the group",
			Data: map[string]string{
				"group_id": groupID.String(),
			},
		})
	}

	return resp, nil
}

// RemoveMember removes a user from a group. The creator can never be
// removed.
func (s *Service) RemoveMember(ctx context.Context, groupID, actorID, memberID uuid.UUID) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	group, err := tx.GetGroupForUpdate(ctx, groupID)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if group == nil {
		return apperrors.GroupNotFoundError()
	}

	membership, err := tx.FindMember(ctx, groupID, actorID)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if membership == nil || !membership.IsActive || !domain.CapabilitiesOf(membership.Role).CanRemove {
		return apperrors.ForbiddenError("You do not have permission to remove members from this group")
	}

	if memberID == group.CreatorID {
		return apperrors.ForbiddenError("Group creator cannot be removed")
	}

	target, err := tx.FindMember(ctx, groupID, memberID)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if target == nil || !target.IsActive {
		return apperrors.ValidationError("User is not a member of this group")
	}

	if err := tx.DeactivateMember(ctx, target.MemberID); err != nil {
		return apperrors.DatabaseError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.DatabaseError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordMemberRemoved()
	}

	logger.Info("Group member removed",
		zap.String("group_id", groupID.String()),
		zap.String("user_id", actorID.String()),
		zap.String("member_id", memberID.String()))

	s.publisher.Publish(ctx, notifier.GroupTopic(groupID), notifier.EventGroupMemberLeft, map[string]interface{}{
		"group_id":   groupID,
		"member_id":  memberID,
		"removed_by": actorID,
	})
	s.publisher.Publish(ctx, notifier.UserTopic(memberID), notifier.EventGroupLeave, map[string]interface{}{
		"group_id": groupID,
		"type":     "removed",
	})

	return nil
}

// LeaveGroup lets a member leave voluntarily. If the sole admin leaves
// while other members remain, the longest-standing member is promoted
// in the same transaction so the group never silently loses its last
// admin. The creator cannot leave.
func (s *Service) LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	group, err := tx.GetGroupForUpdate(ctx, groupID)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if group == nil {
		return apperrors.GroupNotFoundError()
	}

	if group.CreatorID == userID {
		return apperrors.ForbiddenError("Group creator cannot leave. Delete the group or transfer ownership first.")
	}

	membership, err := tx.FindMember(ctx, groupID, userID)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if membership == nil || !membership.IsActive {
		return apperrors.ValidationError("You are not a member of this group")
	}

	promoted := uuid.Nil
	if membership.Role == domain.RoleAdmin {
		adminCount, err := tx.CountActiveAdmins(ctx, groupID)
		if err != nil {
			return apperrors.DatabaseError(err)
		}
		if adminCount == 1 {
			successor, err := tx.OldestActiveMemberExcept(ctx, groupID, userID)
			if err != nil {
				return apperrors.DatabaseError(err)
			}
			// No successor means the group continues with no members
			// and no admin.
			if successor != nil {
				if err := tx.UpdateMemberRole(ctx, successor.MemberID, domain.RoleAdmin); err != nil {
					return apperrors.DatabaseError(err)
				}
				promoted = successor.UserID
			}
		}
	}

	if err := tx.DeactivateMember(ctx, membership.MemberID); err != nil {
		return apperrors.DatabaseError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.DatabaseError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordMemberRemoved()
		if promoted != uuid.Nil {
			s.metrics.RecordAdminPromotion()
		}
	}

	if promoted != uuid.Nil {
		logger.Info("Auto-promoted member to admin after last admin left",
			zap.String("group_id", groupID.String()),
			zap.String("new_admin_id", promoted.String()),
			zap.String("previous_admin_id", userID.String()))
	}

	logger.Info("Group member left",
		zap.String("group_id", groupID.String()),
		zap.String("user_id", userID.String()))

	s.publisher.Publish(ctx, notifier.GroupTopic(groupID), notifier.EventGroupMemberLeft, map[string]interface{}{
		"group_id":  groupID,
		"member_id": userID,
		"type":      "left",
	})

	return nil
}

// UpdateMemberRole changes a member's role. Admin-only; the creator's
// role is immutable, and the last admin cannot be demoted.
func (s *Service) UpdateMemberRole(ctx context.Context, groupID, actorID, memberID uuid.UUID, role string) (*domain.GroupResponse, error) {
	if !domain.ValidRole(role) {
		return nil, apperrors.ValidationError("Invalid role: " + role)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	group, err := tx.GetGroupForUpdate(ctx, groupID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if group == nil {
		return nil, apperrors.GroupNotFoundError()
	}

	if memberID == group.CreatorID {
		return nil, apperrors.ForbiddenError("Cannot change group creator role. Creator is always an admin.")
	}

	membership, err := tx.FindMember(ctx, groupID, actorID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if membership == nil || !membership.IsActive || !domain.CapabilitiesOf(membership.Role).IsAdmin {
		return nil, apperrors.ForbiddenError("You do not have permission to update member roles")
	}

	target, err := tx.GetMemberForUpdate(ctx, groupID, memberID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if target == nil {
		return nil, apperrors.NewWithStatus(apperrors.ErrCodeNotFound, "Member not found in group", http.StatusNotFound)
	}

	if target.Role == role {
		return nil, apperrors.ValidationError("User already has role: " + role)
	}

	if target.Role == domain.RoleAdmin && role != domain.RoleAdmin {
		adminCount, err := tx.CountActiveAdmins(ctx, groupID)
		if err != nil {
			return nil, apperrors.DatabaseError(err)
		}
		if adminCount <= 1 {
			return nil, apperrors.ValidationError("Cannot demote last admin. Group must have at least one admin.")
		}
	}

	if err := tx.UpdateMemberRole(ctx, target.MemberID, role); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	resp, err := s.toResponse(ctx, group)
	if err != nil {
		return nil, err
	}

	logger.Info("Group member role updated",
		zap.String("group_id", groupID.String()),
		zap.String("user_id", actorID.String()),
		zap.String("member_id", memberID.String()),
		zap.String("new_role", role))

	s.publisher.Publish(ctx, notifier.GroupTopic(groupID), notifier.EventGroupMemberRoleUpdated, map[string]interface{}{
		"group":      resp,
		"member_id":  memberID,
		"new_role":   role,
		"updated_by": actorID,
	})

	return resp, nil
}

// MuteGroup silences notifications from a group for the caller.
func (s *Service) MuteGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	return s.setMuted(ctx, groupID, userID, true)
}

// UnmuteGroup re-enables notifications from a group for the caller.
func (s *Service) UnmuteGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	return s.setMuted(ctx, groupID, userID, false)
}

func (s *Service) setMuted(ctx context.Context, groupID, userID uuid.UUID, muted bool) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	membership, err := tx.GetMemberForUpdate(ctx, groupID, userID)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if membership == nil {
		return apperrors.NewWithStatus(apperrors.ErrCodeNotFound,
			"Group not found or you are not a member", http.StatusNotFound)
	}

	if err := tx.SetMemberMuted(ctx, membership.MemberID, muted); err != nil {
		return apperrors.DatabaseError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.DatabaseError(err)
	}

	logger.Info("Group mute changed",
		zap.String("group_id", groupID.String()),
		zap.String("user_id", userID.String()),
		zap.Bool("muted", muted))

	return nil
}

func (s *Service) toResponse(ctx context.Context, group *domain.Group) (*domain.GroupResponse, error) {
	members, err := s.store.GetGroupMembers(ctx, group.GroupID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return buildResponse(group, members), nil
}

func buildResponse(group *domain.Group, members []*domain.GroupMemberResponse) *domain.GroupResponse {
	return &domain.GroupResponse{
		GroupID:       group.GroupID,
		Name:          group.Name,
		Description:   group.Description,
		GroupType:     group.GroupType,
		AvatarURL:     group.AvatarURL,
		CreatorID:     group.CreatorID,
		Members:       members,
		LastMessageAt: group.LastMessageAt,
		CreatedAt:     group.CreatedAt,
	}
}

func dedupeMembers(ids []uuid.UUID, creatorID uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	result := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == creatorID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func missingIDs(requested, found []uuid.UUID) []string {
	foundSet := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		foundSet[id] = struct{}{}
	}
	var missing []string
	for _, id := range requested {
		if _, ok := foundSet[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	return missing
}

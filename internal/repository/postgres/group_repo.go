package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chatlink-backend/internal/domain"
)

const groupColumns = `group_id, name, description, group_type, avatar_url,
	       creator_id, is_active, last_message_at, created_at, updated_at`

const memberColumns = `member_id, group_id, user_id, role, invited_by,
	       joined_at, left_at, is_active, is_muted`

func scanGroup(row pgx.Row) (*domain.Group, error) {
	group := &domain.Group{}
	err := row.Scan(
		&group.GroupID,
		&group.Name,
		&group.Description,
		&group.GroupType,
		&group.AvatarURL,
		&group.CreatorID,
		&group.IsActive,
		&group.LastMessageAt,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return group, nil
}

func scanMember(row pgx.Row) (*domain.GroupMember, error) {
	member := &domain.GroupMember{}
	err := row.Scan(
		&member.MemberID,
		&member.GroupID,
		&member.UserID,
		&member.Role,
		&member.InvitedBy,
		&member.JoinedAt,
		&member.LeftAt,
		&member.IsActive,
		&member.IsMuted,
	)
	if err != nil {
		return nil, err
	}
	return member, nil
}

// CreateGroup inserts a new group record.
func (t *Transaction) CreateGroup(ctx context.Context, group *domain.Group) error {
	query := `
		INSERT INTO groups (
			group_id, name, description, group_type, avatar_url,
			creator_id, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := t.tx.Exec(ctx, query,
		group.GroupID,
		group.Name,
		group.Description,
		group.GroupType,
		group.AvatarURL,
		group.CreatorID,
		group.IsActive,
		group.CreatedAt,
		group.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	return nil
}

// GetGroupForUpdate retrieves an active group and locks its row.
// Capacity checks and membership mutations for the group serialize on
// this lock.
func (t *Transaction) GetGroupForUpdate(ctx context.Context, groupID uuid.UUID) (*domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE group_id = $1 AND is_active = true FOR UPDATE`

	group, err := scanGroup(t.tx.QueryRow(ctx, query, groupID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// UpdateGroup persists the mutable profile fields of a group.
func (t *Transaction) UpdateGroup(ctx context.Context, group *domain.Group) error {
	query := `
		UPDATE groups
		SET name = $2, description = $3, group_type = $4, avatar_url = $5,
		    updated_at = $6
		WHERE group_id = $1
	`

	_, err := t.tx.Exec(ctx, query,
		group.GroupID,
		group.Name,
		group.Description,
		group.GroupType,
		group.AvatarURL,
		group.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}

	return nil
}

// DeactivateGroup soft-deletes a group.
func (t *Transaction) DeactivateGroup(ctx context.Context, groupID uuid.UUID) error {
	query := `UPDATE groups SET is_active = false, updated_at = $2 WHERE group_id = $1`

	if _, err := t.tx.Exec(ctx, query, groupID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to deactivate group: %w", err)
	}

	return nil
}

// CreateMember inserts a new membership row.
func (t *Transaction) CreateMember(ctx context.Context, member *domain.GroupMember) error {
	query := `
		INSERT INTO group_members (
			member_id, group_id, user_id, role, invited_by,
			joined_at, is_active, is_muted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := t.tx.Exec(ctx, query,
		member.MemberID,
		member.GroupID,
		member.UserID,
		member.Role,
		member.InvitedBy,
		member.JoinedAt,
		member.IsActive,
		member.IsMuted,
	)

	if err != nil {
		return fmt.Errorf("failed to create group member: %w", err)
	}

	return nil
}

// FindMember retrieves the membership row for a user in a group,
// active or not. Departed members keep their historical row.
func (t *Transaction) FindMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error) {
	query := `SELECT ` + memberColumns + ` FROM group_members WHERE group_id = $1 AND user_id = $2`

	member, err := scanMember(t.tx.QueryRow(ctx, query, groupID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find group member: %w", err)
	}

	return member, nil
}

// GetMemberForUpdate retrieves an active membership row and locks it.
func (t *Transaction) GetMemberForUpdate(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members
		WHERE group_id = $1 AND user_id = $2 AND is_active = true
		FOR UPDATE
	`

	member, err := scanMember(t.tx.QueryRow(ctx, query, groupID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group member: %w", err)
	}

	return member, nil
}

// ReactivateMember revives a departed member's historical row in place
// with a fresh joined_at and role.
func (t *Transaction) ReactivateMember(ctx context.Context, memberID uuid.UUID, role string, invitedBy *uuid.UUID) error {
	query := `
		UPDATE group_members
		SET is_active = true, left_at = NULL, joined_at = $2, role = $3,
		    invited_by = $4, is_muted = false
		WHERE member_id = $1
	`

	if _, err := t.tx.Exec(ctx, query, memberID, time.Now().UTC(), role, invitedBy); err != nil {
		return fmt.Errorf("failed to reactivate group member: %w", err)
	}

	return nil
}

// UpdateMemberRole changes a member's role.
func (t *Transaction) UpdateMemberRole(ctx context.Context, memberID uuid.UUID, role string) error {
	query := `UPDATE group_members SET role = $2 WHERE member_id = $1`

	if _, err := t.tx.Exec(ctx, query, memberID, role); err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	return nil
}

// DeactivateMember marks a member as departed, keeping the row.
func (t *Transaction) DeactivateMember(ctx context.Context, memberID uuid.UUID) error {
	query := `UPDATE group_members SET is_active = false, left_at = $2 WHERE member_id = $1`

	if _, err := t.tx.Exec(ctx, query, memberID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to deactivate group member: %w", err)
	}

	return nil
}

// DeactivateAllMembers marks every active member of a group as
// departed. Used when the group itself is deleted.
func (t *Transaction) DeactivateAllMembers(ctx context.Context, groupID uuid.UUID) error {
	query := `
		UPDATE group_members
		SET is_active = false, left_at = $2
		WHERE group_id = $1 AND is_active = true
	`

	if _, err := t.tx.Exec(ctx, query, groupID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to deactivate group members: %w", err)
	}

	return nil
}

// SetMemberMuted toggles a member's mute flag.
func (t *Transaction) SetMemberMuted(ctx context.Context, memberID uuid.UUID, muted bool) error {
	query := `UPDATE group_members SET is_muted = $2 WHERE member_id = $1`

	if _, err := t.tx.Exec(ctx, query, memberID, muted); err != nil {
		return fmt.Errorf("failed to set member mute: %w", err)
	}

	return nil
}

// CountActiveMembers counts active members of a group. Only meaningful
// while holding the group row lock.
func (t *Transaction) CountActiveMembers(ctx context.Context, groupID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM group_members WHERE group_id = $1 AND is_active = true`

	var count int
	if err := t.tx.QueryRow(ctx, query, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count group members: %w", err)
	}

	return count, nil
}

// CountActiveAdmins counts active admins of a group.
func (t *Transaction) CountActiveAdmins(ctx context.Context, groupID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM group_members
		WHERE group_id = $1 AND is_active = true AND role = 'admin'
	`

	var count int
	if err := t.tx.QueryRow(ctx, query, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count group admins: %w", err)
	}

	return count, nil
}

// OldestActiveMemberExcept returns the longest-standing active member
// other than the excluded user. Used to pick an admin successor.
func (t *Transaction) OldestActiveMemberExcept(ctx context.Context, groupID, excludeUserID uuid.UUID) (*domain.GroupMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members
		WHERE group_id = $1 AND user_id != $2 AND is_active = true
		ORDER BY joined_at ASC
		LIMIT 1
	`

	member, err := scanMember(t.tx.QueryRow(ctx, query, groupID, excludeUserID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get oldest group member: %w", err)
	}

	return member, nil
}

// GetGroup retrieves an active group without locking.
func (s *Store) GetGroup(ctx context.Context, groupID uuid.UUID) (*domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE group_id = $1 AND is_active = true`

	group, err := scanGroup(s.pool.QueryRow(ctx, query, groupID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// GetActiveMember retrieves a user's active membership row without
// locking. Used for permission checks on read paths.
func (s *Store) GetActiveMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members
		WHERE group_id = $1 AND user_id = $2 AND is_active = true
	`

	member, err := scanMember(s.pool.QueryRow(ctx, query, groupID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group member: %w", err)
	}

	return member, nil
}

// GetGroupMembers retrieves the active members of a group with user
// display fields, ordered by join time.
func (s *Store) GetGroupMembers(ctx context.Context, groupID uuid.UUID) ([]*domain.GroupMemberResponse, error) {
	query := `
		SELECT gm.user_id, gm.role, gm.joined_at, gm.is_muted,
		       u.username, u.first_name, u.last_name, u.avatar_url, u.status
		FROM group_members gm
		JOIN users u ON u.user_id = gm.user_id
		WHERE gm.group_id = $1 AND gm.is_active = true
		ORDER BY gm.joined_at ASC
	`

	rows, err := s.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var members []*domain.GroupMemberResponse
	for rows.Next() {
		m := &domain.GroupMemberResponse{User: &domain.UserResponse{}}
		err := rows.Scan(
			&m.UserID,
			&m.Role,
			&m.JoinedAt,
			&m.IsMuted,
			&m.User.Username,
			&m.User.FirstName,
			&m.User.LastName,
			&m.User.AvatarURL,
			&m.User.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		m.User.UserID = m.UserID
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return members, nil
}

// ListUserGroups retrieves the active groups the user belongs to,
// most recently active first.
func (s *Store) ListUserGroups(ctx context.Context, userID uuid.UUID) ([]*domain.Group, error) {
	query := `
		SELECT g.group_id, g.name, g.description, g.group_type, g.avatar_url,
		       g.creator_id, g.is_active, g.last_message_at, g.created_at, g.updated_at
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.group_id
		WHERE gm.user_id = $1 AND gm.is_active = true AND g.is_active = true
		ORDER BY g.last_message_at DESC NULLS LAST, g.created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return groups, nil
}

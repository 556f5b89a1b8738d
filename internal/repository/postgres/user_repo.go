package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chatlink-backend/internal/domain"
)

const userColumns = `user_id, email, username, password_hash, first_name, last_name,
	       avatar_url, approval_status, status, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.UserID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
		&user.ApprovalStatus,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new user account in pending approval state.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			user_id, email, username, password_hash, first_name, last_name,
			approval_status, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		user.UserID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.ApprovalStatus,
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(s.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(s.pool.QueryRow(ctx, query, username))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// GetUsersByIDs retrieves multiple users at once, keyed by ID. Missing
// IDs are simply absent from the result.
func (s *Store) GetUsersByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*domain.User, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID]*domain.User{}, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = ANY($1)`

	rows, err := s.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	users := make(map[uuid.UUID]*domain.User, len(userIDs))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.UserID] = user
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// GetUser retrieves a user by ID inside the transaction.
func (t *Transaction) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(t.tx.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// FindApprovedUsers returns the subset of the given IDs belonging to
// approved accounts.
func (t *Transaction) FindApprovedUsers(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT user_id FROM users
		WHERE user_id = ANY($1) AND approval_status = 'approved'
	`

	rows, err := t.tx.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to find approved users: %w", err)
	}
	defer rows.Close()

	var approved []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		approved = append(approved, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate approved users: %w", err)
	}

	return approved, nil
}

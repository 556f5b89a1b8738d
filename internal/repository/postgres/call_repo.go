package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chatlink-backend/internal/domain"
)

const callColumns = `call_id, caller_id, recipient_id, call_type, status,
	       started_at, ended_at, duration_seconds, created_at`

func scanCall(row pgx.Row) (*domain.Call, error) {
	call := &domain.Call{}
	err := row.Scan(
		&call.CallID,
		&call.CallerID,
		&call.RecipientID,
		&call.CallType,
		&call.Status,
		&call.StartedAt,
		&call.EndedAt,
		&call.DurationSeconds,
		&call.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return call, nil
}

// CreateCall inserts a new call record.
func (t *Transaction) CreateCall(ctx context.Context, call *domain.Call) error {
	query := `
		INSERT INTO calls (
			call_id, caller_id, recipient_id, call_type, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := t.tx.Exec(ctx, query,
		call.CallID,
		call.CallerID,
		call.RecipientID,
		call.CallType,
		call.Status,
		call.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create call: %w", err)
	}

	return nil
}

// GetCallForUpdate retrieves a call and locks its row for the duration
// of the transaction. Concurrent responders serialize on this lock.
func (t *Transaction) GetCallForUpdate(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE call_id = $1 FOR UPDATE`

	call, err := scanCall(t.tx.QueryRow(ctx, query, callID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	return call, nil
}

// UpdateCall persists status, timestamps and duration of a call.
func (t *Transaction) UpdateCall(ctx context.Context, call *domain.Call) error {
	query := `
		UPDATE calls
		SET status = $2, started_at = $3, ended_at = $4, duration_seconds = $5
		WHERE call_id = $1
	`

	_, err := t.tx.Exec(ctx, query,
		call.CallID,
		call.Status,
		call.StartedAt,
		call.EndedAt,
		call.DurationSeconds,
	)

	if err != nil {
		return fmt.Errorf("failed to update call: %w", err)
	}

	return nil
}

// CountActiveCallsForUser counts non-terminal calls the user is part of,
// on either side.
func (t *Transaction) CountActiveCallsForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM calls
		WHERE (caller_id = $1 OR recipient_id = $1)
		  AND status IN ('calling', 'connected')
	`

	var count int
	if err := t.tx.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active calls: %w", err)
	}

	return count, nil
}

// GetCall retrieves a call by ID without locking.
func (s *Store) GetCall(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE call_id = $1`

	call, err := scanCall(s.pool.QueryRow(ctx, query, callID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	return call, nil
}

// ListUserCalls retrieves call history for a user, newest first.
func (s *Store) ListUserCalls(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Call, error) {
	query := `
		SELECT ` + callColumns + `
		FROM calls
		WHERE caller_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, call)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calls: %w", err)
	}

	return calls, nil
}

package postgres

import (
	"context"
	"fmt"

	"chatlink-backend/internal/domain"
)

// CreateMessage inserts a message. Call summary messages are written
// through here in the same transaction that finalizes the call, so a
// terminal call and its history entry commit or roll back together.
func (t *Transaction) CreateMessage(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (
			message_id, sender_id, recipient_id, content, message_type,
			status, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := t.tx.Exec(ctx, query,
		msg.MessageID,
		msg.SenderID,
		msg.RecipientID,
		msg.Content,
		msg.MessageType,
		msg.Status,
		msg.Metadata,
		msg.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

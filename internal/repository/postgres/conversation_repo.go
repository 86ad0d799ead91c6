package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dstanic/civium/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, user1_id, user2_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, conv.ID, conv.User1ID, conv.User2ID, conv.CreatedAt, conv.UpdatedAt)
	return err
}

func (r *ConversationRepo) GetConversationByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, user1_id, user2_id, created_at, updated_at
		FROM conversations
		WHERE user1_id = $1 AND user2_id = $2`
	var conv domain.Conversation
	err := r.pool.QueryRow(ctx, query, user1ID, user2ID).Scan(
		&conv.ID, &conv.User1ID, &conv.User2ID, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &conv, err
}

func (r *ConversationRepo) GetConversationByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, user1_id, user2_id, created_at, updated_at
		FROM conversations
		WHERE id = $1`
	var conv domain.Conversation
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&conv.ID, &conv.User1ID, &conv.User2ID, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &conv, err
}

func (r *ConversationRepo) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	// Unread count is always recomputed from message rows; it is never a
	// stored column that could drift.
	query := `
		SELECT c.id, c.user1_id, c.user2_id, c.created_at, c.updated_at,
			CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END AS other_user_id,
			CASE WHEN c.user1_id = $1 THEN u2.name ELSE u1.name END AS other_name,
			CASE WHEN c.user1_id = $1 THEN u2.avatar_url ELSE u1.avatar_url END AS other_avatar_url,
			(SELECT COUNT(*) FROM messages m
				WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND m.read_at IS NULL) AS unread_count,
			lm.id, lm.sender_id, lm.content, lm.attachment_url, lm.created_at, lm.delivered_at, lm.read_at
		FROM conversations c
		JOIN users u1 ON c.user1_id = u1.id
		JOIN users u2 ON c.user2_id = u2.id
		LEFT JOIN LATERAL (
			SELECT id, sender_id, content, attachment_url, created_at, delivered_at, read_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON true
		WHERE c.user1_id = $1 OR c.user2_id = $1
		ORDER BY c.updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		var lmID, lmSender *uuid.UUID
		var lmContent, lmAttachment *string
		var lmCreated, lmDelivered *time.Time
		var lmRead *time.Time
		if err := rows.Scan(
			&conv.ID, &conv.User1ID, &conv.User2ID, &conv.CreatedAt, &conv.UpdatedAt,
			&conv.OtherUserID, &conv.OtherUserName, &conv.OtherUserAvatarURL,
			&conv.UnreadCount,
			&lmID, &lmSender, &lmContent, &lmAttachment, &lmCreated, &lmDelivered, &lmRead,
		); err != nil {
			return nil, err
		}
		if lmID != nil {
			conv.LastMessage = &domain.Message{
				ID:             *lmID,
				ConversationID: conv.ID,
				SenderID:       *lmSender,
				Content:        lmContent,
				AttachmentURL:  lmAttachment,
				CreatedAt:      *lmCreated,
				DeliveredAt:    *lmDelivered,
				ReadAt:         lmRead,
			}
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// CreateMessage inserts the message row and bumps the conversation's
// updated_at in one transaction. A partial write would leave a message
// the sender was told failed; the transaction rules that out.
func (r *ConversationRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, attachment_url, created_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.AttachmentURL,
		msg.CreatedAt, msg.DeliveredAt,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = $1 WHERE id = $2`,
		msg.CreatedAt, msg.ConversationID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ConversationRepo) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.attachment_url,
			m.created_at, m.delivered_at, m.read_at, u.name
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`
	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.AttachmentURL,
		&msg.CreatedAt, &msg.DeliveredAt, &msg.ReadAt, &msg.SenderName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &msg, err
}

func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	var query string
	var args []any

	if before != nil {
		query = fmt.Sprintf(`
			SELECT m.id, m.conversation_id, m.sender_id, m.content, m.attachment_url,
				m.created_at, m.delivered_at, m.read_at, u.name
			FROM messages m
			JOIN users u ON m.sender_id = u.id
			WHERE m.conversation_id = $1
				AND (m.created_at, m.id) < (SELECT created_at, id FROM messages WHERE id = $2)
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT %d`, limit)
		args = []any{conversationID, *before}
	} else {
		query = fmt.Sprintf(`
			SELECT m.id, m.conversation_id, m.sender_id, m.content, m.attachment_url,
				m.created_at, m.delivered_at, m.read_at, u.name
			FROM messages m
			JOIN users u ON m.sender_id = u.id
			WHERE m.conversation_id = $1
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT %d`, limit)
		args = []any{conversationID}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.AttachmentURL,
			&msg.CreatedAt, &msg.DeliveredAt, &msg.ReadAt, &msg.SenderName,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	// Reverse to chronological order (query returns DESC)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, rows.Err()
}

func (r *ConversationRepo) MarkAllRead(ctx context.Context, conversationID, viewerID uuid.UUID, readAt time.Time) (int64, error) {
	// Single statement keeps the receipt atomic and idempotent: read_at is
	// set exactly once and never reverts.
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages
		SET read_at = $1
		WHERE conversation_id = $2 AND sender_id <> $3 AND read_at IS NULL`,
		readAt, conversationID, viewerID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ConversationRepo) CountUnread(ctx context.Context, conversationID, viewerID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`,
		conversationID, viewerID,
	).Scan(&count)
	return count, err
}

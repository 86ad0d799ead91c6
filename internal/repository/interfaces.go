package repository

import (
	"context"
	"time"

	"github.com/dstanic/civium/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ConversationRepository is the persistent store gateway for conversations
// and their messages. It is the only component that touches those tables.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	GetConversationByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Conversation, error)
	GetConversationByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	// ListConversations returns the viewer's conversations newest-activity
	// first, each with its last message and the viewer's derived unread count.
	ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	// CreateMessage persists the message and bumps the conversation's
	// updated_at to the message timestamp in one transaction: either both
	// land or the send definitively failed and no row exists.
	CreateMessage(ctx context.Context, msg *domain.Message) error
	GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error)
	// MarkAllRead sets read_at for every unread message in the conversation
	// not sent by viewerID, in one statement, and returns the updated count.
	MarkAllRead(ctx context.Context, conversationID, viewerID uuid.UUID, readAt time.Time) (int64, error)
	// CountUnread recomputes the viewer's unread count from message rows.
	CountUnread(ctx context.Context, conversationID, viewerID uuid.UUID) (int, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dstanic/civium/internal/domain"
	"github.com/dstanic/civium/internal/repository"
	"github.com/google/uuid"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrCannotMessageSelf    = errors.New("cannot start a conversation with yourself")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmptyMessage         = errors.New("message needs content or an attachment")
)

// Notifier broadcasts real-time events to connected clients. Implementations
// must only be invoked after the triggering write has succeeded; there is no
// broadcast-then-reconcile path for messages.
type Notifier interface {
	// NotifyNewMessage fans the persisted message out to every connection in
	// the conversation's room, including the sender's other connections.
	// tempID echoes the sender's optimistic id so its clients can reconcile.
	NotifyNewMessage(msg *domain.Message, tempID string)
	// NotifyMessagesRead announces that userID marked the conversation read.
	NotifyMessagesRead(conversationID, userID uuid.UUID, count int64, readAt time.Time)
	// NotifyNotification pushes a notification to the recipient's connections.
	NotifyNotification(n *domain.Notification)
}

type ChatService struct {
	convRepo repository.ConversationRepository
	userRepo repository.UserRepository
	notifier Notifier
}

func NewChatService(convRepo repository.ConversationRepository, userRepo repository.UserRepository) *ChatService {
	return &ChatService{
		convRepo: convRepo,
		userRepo: userRepo,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ChatService) SetNotifier(n Notifier) {
	s.notifier = n
}

type MessageListResponse struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// GetOrCreateConversation finds or creates the conversation between two
// users. The unordered pair maps to exactly one conversation, ever.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Conversation, error) {
	if userID == otherUserID {
		return nil, ErrCannotMessageSelf
	}

	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	// Sort IDs so user1 < user2 (canonical order for the unique constraint)
	u1, u2 := userID, otherUserID
	if u1.String() > u2.String() {
		u1, u2 = u2, u1
	}

	conv, err := s.convRepo.GetConversationByUsers(ctx, u1, u2)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		conv.OtherUserID = otherUserID
		conv.OtherUserName = other.Name
		conv.OtherUserAvatarURL = other.AvatarURL
		return conv, nil
	}

	now := time.Now()
	conv = &domain.Conversation{
		ID:        uuid.New(),
		User1ID:   u1,
		User2ID:   u2,
		CreatedAt: now,
		UpdatedAt: now,

		OtherUserID:        otherUserID,
		OtherUserName:      other.Name,
		OtherUserAvatarURL: other.AvatarURL,
	}

	if err := s.convRepo.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	return conv, nil
}

// ListConversations returns the user's conversations with last message
// preview and derived unread counts.
func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	convs, err := s.convRepo.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

// SendMessage persists a message and then broadcasts it. The durable id and
// server timestamps exist before any other participant hears about the
// message; a failed write reaches nobody but the sender.
func (s *ChatService) SendMessage(ctx context.Context, senderID, conversationID uuid.UUID, content, attachmentURL *string, tempID string) (*domain.Message, error) {
	if (content == nil || *content == "") && (attachmentURL == nil || *attachmentURL == "") {
		return nil, ErrEmptyMessage
	}

	if err := s.checkParticipant(ctx, senderID, conversationID); err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		AttachmentURL:  attachmentURL,
		CreatedAt:      now,
		DeliveredAt:    now,
	}

	// One transactional write covers the message row and the conversation's
	// updated_at bump. There is no window where a send reported as failed
	// left a row behind for the next history fetch to surface.
	if err := s.convRepo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	full, err := s.convRepo.GetMessageByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(full, tempID)
	}

	return full, nil
}

// ListMessages returns paginated history in conversation order.
func (s *ChatService) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, before *uuid.UUID, limit int) (*MessageListResponse, error) {
	if err := s.checkParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, err := s.convRepo.ListMessages(ctx, conversationID, before, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}

	if messages == nil {
		messages = []domain.Message{}
	}

	return &MessageListResponse{
		Messages: messages,
		HasMore:  hasMore,
	}, nil
}

// MarkAllRead sets read_at on every unread message in the conversation not
// sent by the viewer, then broadcasts the receipt to the room. Calling it
// again with no new messages is a no-op update with count zero.
func (s *ChatService) MarkAllRead(ctx context.Context, viewerID, conversationID uuid.UUID) (int64, time.Time, error) {
	if err := s.checkParticipant(ctx, viewerID, conversationID); err != nil {
		return 0, time.Time{}, err
	}

	readAt := time.Now()
	count, err := s.convRepo.MarkAllRead(ctx, conversationID, viewerID, readAt)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("marking messages read: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyMessagesRead(conversationID, viewerID, count, readAt)
	}

	return count, readAt, nil
}

// checkParticipant rejects with the same "not found" for a missing
// conversation and for one the user is not part of, so the error does not
// reveal which conversations exist.
func (s *ChatService) checkParticipant(ctx context.Context, userID, conversationID uuid.UUID) error {
	conv, err := s.convRepo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil || !conv.HasParticipant(userID) {
		return ErrConversationNotFound
	}
	return nil
}

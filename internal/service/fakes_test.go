package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dstanic/civium/internal/domain"
	"github.com/google/uuid"
)

// opLog records the order of store writes and broadcasts so tests can
// assert persist-then-broadcast ordering.
type opLog struct {
	ops []string
}

func (l *opLog) add(op string) {
	l.ops = append(l.ops, op)
}

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

type fakeConvRepo struct {
	log           *opLog
	conversations map[uuid.UUID]*domain.Conversation
	messages      []domain.Message
	failCreateMsg bool
}

func newFakeConvRepo(log *opLog) *fakeConvRepo {
	return &fakeConvRepo{
		log:           log,
		conversations: make(map[uuid.UUID]*domain.Conversation),
	}
}

func (r *fakeConvRepo) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	c := *conv
	r.conversations[conv.ID] = &c
	r.log.add("create conversation")
	return nil
}

func (r *fakeConvRepo) GetConversationByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Conversation, error) {
	for _, c := range r.conversations {
		if c.User1ID == user1ID && c.User2ID == user2ID {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeConvRepo) GetConversationByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	c, ok := r.conversations[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (r *fakeConvRepo) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	var out []domain.Conversation
	for _, c := range r.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		conv := *c
		unread, _ := r.CountUnread(ctx, c.ID, userID)
		conv.UnreadCount = unread
		for i := range r.messages {
			m := r.messages[i]
			if m.ConversationID != c.ID {
				continue
			}
			if conv.LastMessage == nil || conv.LastMessage.Before(&m) {
				last := m
				conv.LastMessage = &last
			}
		}
		out = append(out, conv)
	}
	return out, nil
}

func (r *fakeConvRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	// Atomic like the real repo: a failure leaves no message row and no
	// updated_at bump.
	if r.failCreateMsg {
		return errors.New("store write failed")
	}
	r.messages = append(r.messages, *msg)
	if c, ok := r.conversations[msg.ConversationID]; ok {
		c.UpdatedAt = msg.CreatedAt
	}
	r.log.add("persist message")
	return nil
}

func (r *fakeConvRepo) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	for i := range r.messages {
		if r.messages[i].ID == id {
			out := r.messages[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeConvRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	var out []domain.Message
	for i := range r.messages {
		if r.messages[i].ConversationID == conversationID {
			out = append(out, r.messages[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(&out[j]) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeConvRepo) MarkAllRead(ctx context.Context, conversationID, viewerID uuid.UUID, readAt time.Time) (int64, error) {
	var count int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.ConversationID == conversationID && m.SenderID != viewerID && m.ReadAt == nil {
			at := readAt
			m.ReadAt = &at
			count++
		}
	}
	r.log.add("mark read")
	return count, nil
}

func (r *fakeConvRepo) CountUnread(ctx context.Context, conversationID, viewerID uuid.UUID) (int, error) {
	count := 0
	for i := range r.messages {
		m := &r.messages[i]
		if m.ConversationID == conversationID && m.SenderID != viewerID && m.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

type fakeNotifRepo struct {
	log           *opLog
	notifications map[uuid.UUID]*domain.Notification
}

func newFakeNotifRepo(log *opLog) *fakeNotifRepo {
	return &fakeNotifRepo{
		log:           log,
		notifications: make(map[uuid.UUID]*domain.Notification),
	}
}

func (r *fakeNotifRepo) Create(ctx context.Context, n *domain.Notification) error {
	c := *n
	r.notifications[n.ID] = &c
	r.log.add("persist notification")
	return nil
}

func (r *fakeNotifRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	n, ok := r.notifications[id]
	if !ok {
		return nil, nil
	}
	out := *n
	return &out, nil
}

func (r *fakeNotifRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeNotifRepo) MarkRead(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	n, ok := r.notifications[id]
	if !ok {
		return nil, nil
	}
	n.Read = true
	out := *n
	return &out, nil
}

type notifiedMessage struct {
	msg    domain.Message
	tempID string
}

type readReceipt struct {
	conversationID uuid.UUID
	userID         uuid.UUID
	count          int64
	readAt         time.Time
}

type fakeNotifier struct {
	log      *opLog
	messages []notifiedMessage
	reads    []readReceipt
	pushed   []domain.Notification
}

func newFakeNotifier(log *opLog) *fakeNotifier {
	return &fakeNotifier{log: log}
}

func (n *fakeNotifier) NotifyNewMessage(msg *domain.Message, tempID string) {
	n.log.add("broadcast message")
	n.messages = append(n.messages, notifiedMessage{msg: *msg, tempID: tempID})
}

func (n *fakeNotifier) NotifyMessagesRead(conversationID, userID uuid.UUID, count int64, readAt time.Time) {
	n.log.add("broadcast read")
	n.reads = append(n.reads, readReceipt{
		conversationID: conversationID,
		userID:         userID,
		count:          count,
		readAt:         readAt,
	})
}

func (n *fakeNotifier) NotifyNotification(notif *domain.Notification) {
	n.log.add("push notification")
	n.pushed = append(n.pushed, *notif)
}

func str(s string) *string { return &s }

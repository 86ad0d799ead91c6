package reactive

import (
	"context"
	"sync"

	"github.com/dstanic/civium/internal/domain"
	"github.com/google/uuid"
)

// ConversationFetcher loads the authoritative conversation list (with
// last message previews and derived unread counts) from the store.
type ConversationFetcher func(ctx context.Context) ([]domain.Conversation, error)

// ConversationCache mirrors the user's conversation list. Unread counts
// are a derived aggregate the store owns, so pushes never increment them
// locally: a push that would change a count marks the cache stale and the
// next Revalidate refetches the real values. Local increments drift
// across tabs; a refetch cannot.
type ConversationCache struct {
	mu            sync.Mutex
	selfID        uuid.UUID
	fetch         ConversationFetcher
	conversations []domain.Conversation
	stale         bool
}

func NewConversationCache(selfID uuid.UUID, fetch ConversationFetcher) *ConversationCache {
	return &ConversationCache{selfID: selfID, fetch: fetch}
}

// Replace installs an authoritative snapshot.
func (c *ConversationCache) Replace(conversations []domain.Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversations = conversations
	c.stale = false
}

// ApplyMessage merges a pushed message.new event. The last-message preview
// updates immediately; if the sender is someone else the unread count is
// affected, so the cache goes stale instead of guessing.
func (c *ConversationCache) ApplyMessage(msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.conversations {
		if c.conversations[i].ID != msg.ConversationID {
			continue
		}
		m := msg
		c.conversations[i].LastMessage = &m
		c.conversations[i].UpdatedAt = msg.CreatedAt
		break
	}

	if msg.SenderID != c.selfID {
		c.stale = true
	}
}

// ApplyRead merges a messages.read event. The event identifies who just
// read: only when that is this cache's own user does its unread entry for
// the conversation change, so only then does the cache revalidate. A
// receipt from the other participant leaves the badge alone.
func (c *ConversationCache) ApplyRead(conversationID, readerID uuid.UUID) {
	if readerID != c.selfID {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = true
}

// Stale reports whether a revalidating refetch is due.
func (c *ConversationCache) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// Revalidate refetches the authoritative list and replaces local state
// wholesale.
func (c *ConversationCache) Revalidate(ctx context.Context) error {
	if c.fetch == nil {
		return nil
	}
	conversations, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	c.Replace(conversations)
	return nil
}

// UnreadTotal is the global badge: the sum of per-conversation unread
// counts.
func (c *ConversationCache) UnreadTotal() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for i := range c.conversations {
		total += c.conversations[i].UnreadCount
	}
	return total
}

// Unread returns the unread count for one conversation.
func (c *ConversationCache) Unread(conversationID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.conversations {
		if c.conversations[i].ID == conversationID {
			return c.conversations[i].UnreadCount
		}
	}
	return 0
}

// Conversations returns a snapshot of the cached list.
func (c *ConversationCache) Conversations() []domain.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out
}

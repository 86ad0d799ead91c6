package reactive

import (
	"context"
	"sync"
	"time"

	"github.com/dstanic/civium/internal/domain"
	"github.com/google/uuid"
)

// NotificationFetcher loads the authoritative notification list.
type NotificationFetcher func(ctx context.Context) ([]domain.Notification, error)

// NotificationCache mirrors the user's notification list. Pushes are
// supplementary signals: duplicates against a still-unread entry are
// discarded, accepted pushes are appended optimistically, and a
// short-delay refetch replaces local state with the store's truth.
type NotificationCache struct {
	mu    sync.Mutex
	items []domain.Notification
	fetch NotificationFetcher
	delay time.Duration
}

// NewNotificationCache builds a cache that revalidates delay after an
// accepted push. A zero delay disables the timer; callers drive
// Revalidate themselves.
func NewNotificationCache(fetch NotificationFetcher, delay time.Duration) *NotificationCache {
	return &NotificationCache{fetch: fetch, delay: delay}
}

// Push merges a pushed notification. It reports whether the notification
// was accepted; a push matching an existing unread entry's (type, target)
// is a duplicate and is discarded. Read entries never suppress: a fresh
// like on the same target after the old one was read is a new event.
func (c *NotificationCache) Push(n domain.Notification) bool {
	c.mu.Lock()
	for i := range c.items {
		if !c.items[i].Read && c.items[i].Type == n.Type && c.items[i].Target.ID == n.Target.ID {
			c.mu.Unlock()
			return false
		}
	}
	c.items = append([]domain.Notification{n}, c.items...)
	c.mu.Unlock()

	if c.fetch != nil && c.delay > 0 {
		time.AfterFunc(c.delay, func() {
			_ = c.Revalidate(context.Background())
		})
	}
	return true
}

// Replace installs an authoritative snapshot.
func (c *NotificationCache) Replace(items []domain.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
}

// Revalidate refetches the full list and replaces local state wholesale,
// correcting drift from duplicate, out-of-order, or too-early pushes.
func (c *NotificationCache) Revalidate(ctx context.Context) error {
	if c.fetch == nil {
		return nil
	}
	items, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	c.Replace(items)
	return nil
}

// MarkRead flips the local read flag after the store request succeeded.
func (c *NotificationCache) MarkRead(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Read = true
			return
		}
	}
}

// Unread returns the number of unread notifications.
func (c *NotificationCache) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for i := range c.items {
		if !c.items[i].Read {
			count++
		}
	}
	return count
}

// Items returns a snapshot, newest first.
func (c *NotificationCache) Items() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Notification, len(c.items))
	copy(out, c.items)
	return out
}

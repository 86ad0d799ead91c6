// Package reactive holds the client-side caches a connected UI keeps in
// sync with the relay: the open conversation's message thread, the
// conversation list with unread counts, and the notification list. Pushed
// events are merged optimistically; authoritative refetches always win.
package reactive

import (
	"sync"
	"time"

	"github.com/dstanic/civium/internal/domain"
	"github.com/google/uuid"
)

// Entry is one rendered message. Pending entries carry a temp id and no
// durable id yet; they are replaced in place when the server echo arrives.
type Entry struct {
	Message domain.Message
	TempID  string
	Pending bool
	Failed  bool
}

// Thread is the message view of one open conversation.
type Thread struct {
	mu      sync.Mutex
	selfID  uuid.UUID
	entries []Entry
}

func NewThread(selfID uuid.UUID) *Thread {
	return &Thread{selfID: selfID}
}

// Replace swaps in an authoritative history snapshot, dropping everything
// local except still-pending optimistic entries, which are re-appended.
func (t *Thread) Replace(messages []domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var pending []Entry
	for _, e := range t.entries {
		if e.Pending || e.Failed {
			pending = append(pending, e)
		}
	}

	t.entries = t.entries[:0]
	for _, m := range messages {
		t.entries = append(t.entries, Entry{Message: m})
	}
	t.entries = append(t.entries, pending...)
}

// AddOptimistic renders the composed message immediately, before any
// network round-trip. The temp id must be locally unique.
func (t *Thread) AddOptimistic(tempID string, content, attachmentURL *string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.entries = append(t.entries, Entry{
		Message: domain.Message{
			SenderID:      t.selfID,
			Content:       content,
			AttachmentURL: attachmentURL,
			CreatedAt:     now,
		},
		TempID:  tempID,
		Pending: true,
	})
}

// ApplyNew merges a pushed message. If tempID matches a pending entry the
// entry is replaced in place, keeping its position but carrying the
// durable id and server timestamps. Otherwise the message is inserted at
// its position in conversation order (created_at, then id), wherever it
// arrived in the stream.
func (t *Thread) ApplyNew(msg domain.Message, tempID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tempID != "" {
		for i := range t.entries {
			if t.entries[i].Pending && t.entries[i].TempID == tempID {
				t.entries[i] = Entry{Message: msg}
				return
			}
		}
	}

	// Duplicate delivery (two tabs, rejoin): durable id already present.
	for i := range t.entries {
		if !t.entries[i].Pending && t.entries[i].Message.ID == msg.ID {
			return
		}
	}

	pos := len(t.entries)
	for i := range t.entries {
		if t.entries[i].Pending {
			continue
		}
		if msg.Before(&t.entries[i].Message) {
			pos = i
			break
		}
	}
	t.entries = append(t.entries, Entry{})
	copy(t.entries[pos+1:], t.entries[pos:])
	t.entries[pos] = Entry{Message: msg}
}

// Fail flags a pending entry whose persist failed. It stays visible for
// retry; it is never silently dropped.
func (t *Thread) Fail(tempID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		if t.entries[i].Pending && t.entries[i].TempID == tempID {
			t.entries[i].Pending = false
			t.entries[i].Failed = true
			return
		}
	}
}

// Remove drops a failed or pending entry, for when the user discards a
// message that could not be sent.
func (t *Thread) Remove(tempID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		if t.entries[i].TempID == tempID && t.entries[i].Message.ID == uuid.Nil {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// ApplyRead marks this client's own messages read when the other
// participant's receipt arrives. readAt is monotonic: set once, never
// cleared.
func (t *Thread) ApplyRead(readerID uuid.UUID, readAt time.Time) {
	if readerID == t.selfID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		e := &t.entries[i]
		if e.Message.SenderID == t.selfID && e.Message.ReadAt == nil && !e.Pending {
			at := readAt
			e.Message.ReadAt = &at
		}
	}
}

// Entries returns a snapshot in render order.
func (t *Thread) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	Content        *string    `json:"content,omitempty"`
	AttachmentURL  *string    `json:"attachment_url,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	DeliveredAt    time.Time  `json:"delivered_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	// Joined fields
	SenderName string `json:"sender_name,omitempty"`
}

// Before reports whether m sorts before other in conversation order:
// created_at ascending, id as tiebreaker. Every client renders in this
// order regardless of arrival order on the wire.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID.String() < other.ID.String()
}

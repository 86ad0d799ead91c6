package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a direct channel between exactly two users. User1ID and
// User2ID are stored in canonical order (user1 < user2) so the unordered
// pair maps to at most one row.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	User1ID   uuid.UUID `json:"user1_id"`
	User2ID   uuid.UUID `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Joined fields for the viewing user
	OtherUserID        uuid.UUID `json:"other_user_id"`
	OtherUserName      string    `json:"other_name"`
	OtherUserAvatarURL *string   `json:"other_avatar_url,omitempty"`
	LastMessage        *Message  `json:"last_message,omitempty"`
	UnreadCount        int       `json:"unread_count"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.User1ID == userID || c.User2ID == userID
}

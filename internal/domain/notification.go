package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationLike           NotificationType = "like"
	NotificationComment        NotificationType = "comment"
	NotificationCommentLike    NotificationType = "comment-like"
	NotificationReply          NotificationType = "reply"
	NotificationCollabRequest  NotificationType = "collab-request"
	NotificationCollabAccepted NotificationType = "collab-accepted"
)

type TargetType string

const (
	TargetProject TargetType = "project"
	TargetIdea    TargetType = "idea"
	TargetComment TargetType = "comment"
)

// NotificationTarget is a tagged reference to the entity the event fired on.
type NotificationTarget struct {
	ID   uuid.UUID  `json:"id"`
	Type TargetType `json:"type"`
}

type Notification struct {
	ID          uuid.UUID          `json:"id"`
	RecipientID uuid.UUID          `json:"recipient_id"`
	Type        NotificationType   `json:"type"`
	Target      NotificationTarget `json:"target"`
	Read        bool               `json:"read"`
	CreatedAt   time.Time          `json:"created_at"`
}

// ValidNotificationType reports whether t is one of the known event types.
func ValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationLike, NotificationComment, NotificationCommentLike,
		NotificationReply, NotificationCollabRequest, NotificationCollabAccepted:
		return true
	}
	return false
}

// ValidTargetType reports whether t is a known target kind.
func ValidTargetType(t TargetType) bool {
	switch t {
	case TargetProject, TargetIdea, TargetComment:
		return true
	}
	return false
}

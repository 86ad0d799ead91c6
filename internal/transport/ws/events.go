package ws

import (
	"encoding/json"
	"time"

	"github.com/dstanic/civium/internal/domain"
	"github.com/google/uuid"
)

// Event types - Client → Server
const (
	EventTypeConversationJoin  = "conversation.join"
	EventTypeConversationLeave = "conversation.leave"
	EventTypeMessageSend       = "message.send"
	EventTypeMessagesReadAll   = "messages.read.all"
	EventTypePing              = "ping"
)

// Event types - Server → Client
const (
	EventTypeMessageNew      = "message.new"
	EventTypeMessagesRead    = "messages.read"
	EventTypeNotificationNew = "notification.new"
	EventTypePong            = "pong"
	EventTypeError           = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type           string          `json:"type"`
	ConversationID *uuid.UUID      `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ConversationPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type MessageSendPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Content        *string   `json:"content,omitempty"`
	AttachmentURL  *string   `json:"attachment_url,omitempty"`
	// TempID is the sender's optimistic id; it is never durable and is only
	// echoed back so the sender's clients can reconcile in place.
	TempID string `json:"temp_id,omitempty"`
}

// --- Server → Client payloads ---

type MessagePayload struct {
	domain.Message
	TempID string `json:"temp_id,omitempty"`
}

type ReadPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Count          int64     `json:"count"`
	ReadAt         time.Time `json:"read_at"`
}

type NotificationPayload struct {
	domain.Notification
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"temp_id,omitempty"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, conversationID *uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        data,
		Timestamp:      time.Now().Unix(),
	}, nil
}

package ws

import (
	"log"
	"time"

	"github.com/dstanic/civium/internal/domain"
	"github.com/google/uuid"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// NotifyNewMessage fans a persisted message out to the whole room. No
// connection is excluded: the sender's other tabs reconcile off the echoed
// temp id, not off "is this from me".
func (n *HubNotifier) NotifyNewMessage(msg *domain.Message, tempID string) {
	evt, err := NewEvent(EventTypeMessageNew, &msg.ConversationID, MessagePayload{Message: *msg, TempID: tempID})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToRoom(msg.ConversationID, evt, nil)
}

// NotifyMessagesRead announces a read receipt to the room. Recipients only
// zero a counter when the event's user_id matches their own identity, so
// delivering to the viewer's own connections as well stays idempotent.
func (n *HubNotifier) NotifyMessagesRead(conversationID, userID uuid.UUID, count int64, readAt time.Time) {
	evt, err := NewEvent(EventTypeMessagesRead, &conversationID, ReadPayload{
		ConversationID: conversationID,
		UserID:         userID,
		Count:          count,
		ReadAt:         readAt,
	})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToRoom(conversationID, evt, nil)
}

// NotifyNotification pushes a domain-event notification to every
// connection of the recipient.
func (n *HubNotifier) NotifyNotification(notif *domain.Notification) {
	evt, err := NewEvent(EventTypeNotificationNew, nil, NotificationPayload{Notification: *notif})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToUser(notif.RecipientID, evt)
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/dstanic/civium/internal/domain"
	"github.com/dstanic/civium/internal/service"
	"github.com/dstanic/civium/internal/session"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256
)

// ChatService is the slice of the chat service the relay drives.
type ChatService interface {
	SendMessage(ctx context.Context, senderID, conversationID uuid.UUID, content, attachmentURL *string, tempID string) (*domain.Message, error)
	MarkAllRead(ctx context.Context, viewerID, conversationID uuid.UUID) (int64, time.Time, error)
}

// Client represents a single WebSocket connection bound to one
// authenticated identity for its whole lifetime.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	chat ChatService

	id       uuid.UUID // connection id, distinct from the user id
	identity session.Identity

	// rooms tracks which conversations this connection has joined.
	rooms map[uuid.UUID]struct{}
	mu    sync.RWMutex

	send chan []byte
	done chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, chat ChatService, identity session.Identity) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		chat:     chat,
		id:       uuid.New(),
		identity: identity,
		rooms:    make(map[uuid.UUID]struct{}),
		send:     make(chan []byte, sendBufSize),
		done:     make(chan struct{}),
	}
}

// IsJoined checks if this connection is joined to a conversation room.
func (c *Client) IsJoined(conversationID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[conversationID]
	return ok
}

// Join adds a room membership.
func (c *Client) Join(conversationID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[conversationID] = struct{}{}
}

// Leave removes a room membership; idempotent.
func (c *Client) Leave(conversationID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, conversationID)
}

// ReadPump reads events from the WebSocket and dispatches them.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("ws: client %s disconnected", c.identity.ID)
			} else {
				log.Printf("ws: read error from %s: %v", c.identity.ID, err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				log.Printf("ws: write error to %s: %v", c.identity.ID, err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				log.Printf("ws: ping error to %s: %v", c.identity.ID, err)
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleEvent routes an incoming client event. A malformed payload is
// rejected synchronously; the connection stays open.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeConversationJoin:
		var p ConversationPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			c.sendError("INVALID_PAYLOAD", "invalid conversation.join payload", "")
			return
		}
		c.Join(p.ConversationID)
		log.Printf("ws: %s joined room %s", c.identity.ID, p.ConversationID)

	case EventTypeConversationLeave:
		var p ConversationPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			c.sendError("INVALID_PAYLOAD", "invalid conversation.leave payload", "")
			return
		}
		c.Leave(p.ConversationID)

	case EventTypeMessageSend:
		c.handleSend(event)

	case EventTypeMessagesReadAll:
		var p ConversationPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			c.sendError("INVALID_PAYLOAD", "conversation_id required to mark read", "")
			return
		}
		if _, _, err := c.chat.MarkAllRead(context.Background(), c.identity.ID, p.ConversationID); err != nil {
			c.sendServiceError(err, "")
		}

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type, "")
	}
}

// handleSend runs the persist-then-broadcast path. The service only
// notifies the room after the store write succeeds, so no other
// participant ever sees a message that might not exist.
func (c *Client) handleSend(event *Event) {
	var p MessageSendPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
		c.sendError("INVALID_PAYLOAD", "invalid message.send payload", "")
		return
	}

	_, err := c.chat.SendMessage(context.Background(), c.identity.ID, p.ConversationID, p.Content, p.AttachmentURL, p.TempID)
	if err != nil {
		// Failure reaches the sender only, with the temp id so its
		// optimistic entry can be rolled back or flagged failed.
		c.sendServiceError(err, p.TempID)
	}
}

func (c *Client) sendServiceError(err error, tempID string) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		c.sendError("NOT_FOUND", "Conversation not found", tempID)
	case errors.Is(err, service.ErrEmptyMessage):
		c.sendError("INVALID_PAYLOAD", "Message needs content or an attachment", tempID)
	default:
		log.Printf("ws: error from %s: %v", c.identity.ID, err)
		c.sendError("PERSISTENCE_FAILURE", "Could not save, try again", tempID)
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code, message, tempID string) {
	evt, err := NewEvent(EventTypeError, nil, ErrorPayload{Code: code, Message: message, TempID: tempID})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

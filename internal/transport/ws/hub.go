package ws

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
)

// Hub tracks all live connections and routes room broadcasts. A user may
// hold several connections at once (multiple tabs, devices), each joined
// to its own set of conversation rooms. All registry state is owned by the
// Run goroutine; every mutation and fan-out goes through its channels.
type Hub struct {
	// clients maps connection ID → client.
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
	direct     chan *directMsg
}

type broadcastMsg struct {
	conversationID uuid.UUID
	data           []byte
	excludeConn    *uuid.UUID // optional: skip the originating connection
}

type directMsg struct {
	userID uuid.UUID
	data   []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		direct:     make(chan *directMsg, 256),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.id] = client
			log.Printf("ws hub: user %s connected on %s (%d total)", client.identity.ID, client.id, len(h.clients))

		case client := <-h.unregister:
			// Dropping a connection only releases its room memberships;
			// messages and unread counts are untouched.
			if _, ok := h.clients[client.id]; ok {
				h.drop(client)
				log.Printf("ws hub: user %s disconnected from %s (%d total)", client.identity.ID, client.id, len(h.clients))
			}

		case msg := <-h.broadcast:
			for _, client := range h.clients {
				if msg.excludeConn != nil && client.id == *msg.excludeConn {
					continue
				}
				if !client.IsJoined(msg.conversationID) {
					continue
				}
				h.deliver(client, msg.data)
			}

		case msg := <-h.direct:
			for _, client := range h.clients {
				if client.identity.ID != msg.userID {
					continue
				}
				h.deliver(client, msg.data)
			}
		}
	}
}

func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		// Client buffer full - disconnect
		h.drop(client)
	}
}

// drop releases a connection. send is never closed: the client's read
// goroutine may still queue pong and error frames until its conn dies, and
// a send on a closed channel would panic the hub. Closing done stops
// WritePump, which closes the conn and so unwinds ReadPump too.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client.id)
	close(client.done)
}

// BroadcastToRoom sends an event to every connection joined to the
// conversation's room. excludeConn, when non-nil, skips the originating
// connection (read receipts); message fan-out passes nil so the sender's
// other tabs update too.
func (h *Hub) BroadcastToRoom(conversationID uuid.UUID, event *Event, excludeConn *uuid.UUID) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws hub: marshal error: %v", err)
		return
	}
	h.broadcast <- &broadcastMsg{
		conversationID: conversationID,
		data:           data,
		excludeConn:    excludeConn,
	}
}

// BroadcastToUser sends an event to every connection of the given user.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws hub: marshal error: %v", err)
		return
	}
	h.direct <- &directMsg{userID: userID, data: data}
}

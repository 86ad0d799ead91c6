package ws

import (
	"log"
	"net/http"

	"github.com/dstanic/civium/internal/session"
	"nhooyr.io/websocket"
)

// ServeWS returns an HTTP handler that authenticates the handshake and
// upgrades to WebSocket. The session token comes from the raw Cookie
// header (possibly split across fragment cookies); any verification
// failure rejects the connection before the upgrade, so no pre-auth
// traffic is ever processed.
func ServeWS(hub *Hub, resolver *session.Resolver, chat ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := resolver.Resolve(r.Header.Get("Cookie"))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // Allow any origin (dev mode)
		})
		if err != nil {
			log.Printf("ws: accept error: %v", err)
			return
		}

		client := NewClient(hub, conn, chat, *identity)
		hub.register <- client

		// Start read/write pumps in goroutines
		go client.WritePump()
		go client.ReadPump()
	}
}

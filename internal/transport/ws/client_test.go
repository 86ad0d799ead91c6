package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dstanic/civium/internal/domain"
	"github.com/dstanic/civium/internal/service"
	"github.com/dstanic/civium/internal/session"
	"github.com/google/uuid"
)

type fakeChat struct {
	sendErr    error
	lastTempID string
	lastConv   uuid.UUID
	readCalls  int
}

func (f *fakeChat) SendMessage(_ context.Context, senderID, conversationID uuid.UUID, content, attachmentURL *string, tempID string) (*domain.Message, error) {
	f.lastConv = conversationID
	f.lastTempID = tempID
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &domain.Message{ID: uuid.New(), ConversationID: conversationID, SenderID: senderID, Content: content}, nil
}

func (f *fakeChat) MarkAllRead(_ context.Context, viewerID, conversationID uuid.UUID) (int64, time.Time, error) {
	f.readCalls++
	return 1, time.Now(), nil
}

func mustEvent(t *testing.T, eventType string, payload any) *Event {
	t.Helper()
	evt, err := NewEvent(eventType, nil, payload)
	if err != nil {
		t.Fatalf("building event: %v", err)
	}
	return evt
}

// readError pulls the next queued frame off the client and decodes it as
// an error event.
func readError(t *testing.T, c *Client) ErrorPayload {
	t.Helper()
	var evt Event
	select {
	case data := <-c.send:
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
	default:
		t.Fatal("no frame queued")
	}
	if evt.Type != EventTypeError {
		t.Fatalf("got event %q, want %q", evt.Type, EventTypeError)
	}
	var p ErrorPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		t.Fatalf("bad error payload: %v", err)
	}
	return p
}

func TestClientJoinLeave(t *testing.T) {
	c := NewClient(NewHub(), nil, nil, session.Identity{ID: uuid.New()})
	conv := uuid.New()

	if c.IsJoined(conv) {
		t.Fatal("fresh connection should not be in any room")
	}
	c.Join(conv)
	c.Join(conv) // joining twice is harmless
	if !c.IsJoined(conv) {
		t.Fatal("Join did not register membership")
	}
	c.Leave(conv)
	if c.IsJoined(conv) {
		t.Fatal("Leave did not remove membership")
	}
	c.Leave(conv) // leaving again is harmless
}

func TestClientHandleJoinEvent(t *testing.T) {
	c := NewClient(NewHub(), nil, &fakeChat{}, session.Identity{ID: uuid.New()})
	conv := uuid.New()

	c.handleEvent(mustEvent(t, EventTypeConversationJoin, ConversationPayload{ConversationID: conv}))
	if !c.IsJoined(conv) {
		t.Fatal("join event did not add membership")
	}

	c.handleEvent(mustEvent(t, EventTypeConversationLeave, ConversationPayload{ConversationID: conv}))
	if c.IsJoined(conv) {
		t.Fatal("leave event did not remove membership")
	}
}

func TestClientRejectsMalformedPayload(t *testing.T) {
	c := NewClient(NewHub(), nil, &fakeChat{}, session.Identity{ID: uuid.New()})

	c.handleEvent(&Event{Type: EventTypeConversationJoin, Payload: json.RawMessage(`{"conversation_id":"not-a-uuid"}`)})
	if p := readError(t, c); p.Code != "INVALID_PAYLOAD" {
		t.Errorf("got code %q, want INVALID_PAYLOAD", p.Code)
	}

	c.handleEvent(&Event{Type: "something.else"})
	if p := readError(t, c); p.Code != "UNKNOWN_EVENT" {
		t.Errorf("got code %q, want UNKNOWN_EVENT", p.Code)
	}
}

func TestClientSendDelegatesToService(t *testing.T) {
	chat := &fakeChat{}
	c := NewClient(NewHub(), nil, chat, session.Identity{ID: uuid.New()})
	conv := uuid.New()
	content := "hello"

	c.handleEvent(mustEvent(t, EventTypeMessageSend, MessageSendPayload{
		ConversationID: conv,
		Content:        &content,
		TempID:         "t42",
	}))

	if chat.lastConv != conv {
		t.Errorf("service got conversation %s, want %s", chat.lastConv, conv)
	}
	if chat.lastTempID != "t42" {
		t.Errorf("service got temp id %q, want %q", chat.lastTempID, "t42")
	}
	select {
	case data := <-c.send:
		t.Fatalf("successful send should not answer the origin directly, got %s", data)
	default:
	}
}

func TestClientSendFailureEchoesTempID(t *testing.T) {
	chat := &fakeChat{sendErr: service.ErrConversationNotFound}
	c := NewClient(NewHub(), nil, chat, session.Identity{ID: uuid.New()})
	content := "hello"

	c.handleEvent(mustEvent(t, EventTypeMessageSend, MessageSendPayload{
		ConversationID: uuid.New(),
		Content:        &content,
		TempID:         "t7",
	}))

	p := readError(t, c)
	if p.Code != "NOT_FOUND" {
		t.Errorf("got code %q, want NOT_FOUND", p.Code)
	}
	if p.TempID != "t7" {
		t.Errorf("got temp id %q, want %q", p.TempID, "t7")
	}
}

func TestClientMarkAllRead(t *testing.T) {
	chat := &fakeChat{}
	c := NewClient(NewHub(), nil, chat, session.Identity{ID: uuid.New()})

	c.handleEvent(mustEvent(t, EventTypeMessagesReadAll, ConversationPayload{ConversationID: uuid.New()}))
	if chat.readCalls != 1 {
		t.Errorf("MarkAllRead called %d times, want 1", chat.readCalls)
	}
}

func TestClientPing(t *testing.T) {
	c := NewClient(NewHub(), nil, &fakeChat{}, session.Identity{ID: uuid.New()})
	c.handleEvent(&Event{Type: EventTypePing})

	select {
	case data := <-c.send:
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if evt.Type != EventTypePong {
			t.Errorf("got event %q, want %q", evt.Type, EventTypePong)
		}
	default:
		t.Fatal("ping got no answer")
	}
}

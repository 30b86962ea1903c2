package events

import (
	"log"
	"sync"
)

// ClientBufferSize is the buffer size of each participant's outbound channel
const ClientBufferSize = 16

// Message is one server to client frame
type Message struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Client is one live connection's outbound side
type Client struct {
	ParticipantID string
	Outbound      chan Message

	closed chan struct{}
	once   sync.Once
}

// NewClient creates a client with a buffered outbound channel
func NewClient(participantID string) *Client {
	return &Client{
		ParticipantID: participantID,
		Outbound:      make(chan Message, ClientBufferSize),
		closed:        make(chan struct{}),
	}
}

// Close signals the connection to shut down. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.closed) })
}

// Done is closed once the client has been closed
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// Hub routes messages to the current client of each participant. A
// participant has at most one client; a newer one supersedes the older.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	Debug   bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// AddClient registers c for its participant, closing any client it replaces
func (h *Hub) AddClient(c *Client) {
	h.mu.Lock()
	prev := h.clients[c.ParticipantID]
	h.clients[c.ParticipantID] = c
	h.mu.Unlock()

	if prev != nil && prev != c {
		log.Printf("WARN: participant %s opened a new connection, closing the old one", c.ParticipantID)
		prev.Close()
	}
}

// RemoveClient unregisters c if it is still its participant's current
// client, and reports whether it was.
func (h *Hub) RemoveClient(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.ParticipantID] != c {
		return false
	}
	delete(h.clients, c.ParticipantID)
	return true
}

// ClientCount returns the number of registered participants
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Connected reports whether participantID has a registered client
func (h *Hub) Connected(participantID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[participantID]
	return ok
}

// Send delivers msg to participantID without blocking. Messages for absent
// participants are dropped. A client whose buffer is full is closed, and its
// connection teardown reports the disconnect.
func (h *Hub) Send(participantID string, msg Message) bool {
	h.mu.RLock()
	client := h.clients[participantID]
	h.mu.RUnlock()

	if client == nil {
		if h.Debug {
			log.Printf("hub: drop event=%s for absent participant %s", msg.Type, participantID)
		}
		return false
	}

	select {
	case client.Outbound <- msg:
		if h.Debug {
			log.Printf("hub: sent event=%s to %s", msg.Type, participantID)
		}
		return true
	case <-client.Done():
		return false
	default:
		log.Printf("hub: buffer full sending event=%s to %s, closing client", msg.Type, participantID)
		client.Close()
		return false
	}
}

// BroadcastPersonalized sends each participant its own rendering of an event
func (h *Hub) BroadcastPersonalized(participantIDs []string, render func(participantID string) Message) {
	for _, id := range participantIDs {
		h.Send(id, render(id))
	}
}

// CloseAll closes every registered client, used on shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

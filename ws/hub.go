package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Broadcaster is what services publish feed events through. Services depend
// on the interface so tests can record events without a Hub.
type Broadcaster interface {
	BroadcastToAll(event Event)
	BroadcastToUser(userID string, event Event)
	OnlineUserIDs() []string
	// DisconnectUser closes every connection of the user.
	DisconnectUser(userID string)
}

// NopBroadcaster drops every event.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastToAll(Event)          {}
func (NopBroadcaster) BroadcastToUser(string, Event) {}
func (NopBroadcaster) OnlineUserIDs() []string       { return nil }
func (NopBroadcaster) DisconnectUser(string)          {}

// UserConnectFunc is called when a user's first connection registers or
// their last connection goes away.
type UserConnectFunc func(userID string)

// Hub tracks the connected clients. One user may hold several connections
// (several browser tabs); they are keyed by user ID.
//
// Lifecycle of a connection:
//
//	Handler.HandleConnection  upgrade, send "ready", Register
//	Run                       addClient; first connection fires OnUserFirstConnect
//	Broadcast*                queue on Client.send; a full buffer drops the client
//	ReadPump exits            Unregister -> removeClient closes send, WritePump exits
//	last connection gone      OnUserFullyDisconnect
//
// Only Run mutates the client map outside Shutdown, so add and remove never
// race each other. Broadcasts take the read lock and never block on a
// client: deliver is a non-blocking send. Shutdown closes done first, which
// turns every later Register and Unregister into a no-op, then closes the
// remaining send channels itself.
type Hub struct {
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	seq atomic.Int64

	onUserFirstConnect    UserConnectFunc
	onUserFullyDisconnect UserConnectFunc

	log *zap.Logger
}

// NewHub creates a Hub. Call Run in its own goroutine.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        zap.L().Named("ws"),
	}
}

// OnUserFirstConnect registers the callback for a user's first connection.
// Must be called before Run.
func (h *Hub) OnUserFirstConnect(fn UserConnectFunc) {
	h.onUserFirstConnect = fn
}

// OnUserFullyDisconnect registers the callback for a user's last disconnect.
// Must be called before Run.
func (h *Hub) OnUserFullyDisconnect(fn UserConnectFunc) {
	h.onUserFullyDisconnect = fn
}

// Run processes registrations until Shutdown.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Register adds a client. It returns false once the hub is shut down.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client. Safe to call more than once and after
// Shutdown.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]bool)
		h.clients[client.userID] = set
	}
	set[client] = true
	count := len(set)
	h.mu.Unlock()

	h.log.Debug("client connected", zap.String("user_id", client.userID), zap.Int("connections", count))

	// Callbacks run outside the lock; they usually broadcast.
	if count == 1 && h.onUserFirstConnect != nil {
		go h.onUserFirstConnect(client.userID)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.userID]
	if !ok || !set[client] {
		h.mu.Unlock()
		return
	}
	delete(set, client)
	close(client.send)
	gone := len(set) == 0
	if gone {
		delete(h.clients, client.userID)
	}
	h.mu.Unlock()

	h.log.Debug("client disconnected", zap.String("user_id", client.userID), zap.Bool("last", gone))

	if gone && h.onUserFullyDisconnect != nil {
		go h.onUserFullyDisconnect(client.userID)
	}
}

func (h *Hub) encode(event Event) ([]byte, bool) {
	event.Seq = h.seq.Add(1)
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal event", zap.String("op", event.Op), zap.Error(err))
		return nil, false
	}
	return data, true
}

// deliver queues data on a client; a full buffer means a stuck client, which
// is dropped.
func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		go h.Unregister(c)
	}
}

// BroadcastToAll sends the event to every connected client.
func (h *Hub) BroadcastToAll(event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.clients {
		for c := range set {
			h.deliver(c, data)
		}
	}
}

// BroadcastToUser sends the event to every connection of one user.
func (h *Hub) BroadcastToUser(userID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		h.deliver(c, data)
	}
}

// OnlineUserIDs returns the users with at least one connection.
func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// DisconnectUser closes the user's connections, used when an admin loses the
// role or the account. Closing the socket makes ReadPump fail, and the
// normal Unregister path cleans up from there.
func (h *Hub) DisconnectUser(userID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for c := range h.clients[userID] {
		c.conn.Close()
		n++
	}
	if n > 0 {
		h.log.Info("user disconnected", zap.String("user_id", userID), zap.Int("connections", n))
	}
}

// Shutdown stops Run and closes every client connection.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for _, set := range h.clients {
			for c := range set {
				close(c.send)
			}
		}
		h.clients = make(map[string]map[*Client]bool)
		h.log.Info("hub shut down")
	})
}

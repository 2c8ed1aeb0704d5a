package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/contract"
)

const sendBuffer = 64

// Hub tracks live connections and which rooms they follow. It implements
// contract.Transport for the room manager.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

// unregister forgets the client everywhere and closes its send queue.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.id] != c {
		return
	}
	delete(h.clients, c.id)
	for code, members := range h.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
	close(c.send)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Send(transportID string, msg internal.Message[any]) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("[Send] marshal failed")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[transportID]; ok {
		c.enqueue(data)
	}
}

func (h *Hub) Broadcast(code string, msg internal.Message[any]) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("room", code).Str("type", msg.Type).Msg("[Broadcast] marshal failed")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.rooms[code] {
		if c, ok := h.clients[id]; ok {
			c.enqueue(data)
		}
	}
}

func (h *Hub) Subscribe(code, transportID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[transportID]; !ok {
		return
	}
	members, ok := h.rooms[code]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[code] = members
	}
	members[transportID] = struct{}{}
}

func (h *Hub) Unsubscribe(code, transportID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[code]
	if !ok {
		return
	}
	delete(members, transportID)
	if len(members) == 0 {
		delete(h.rooms, code)
	}
}

func (h *Hub) CloseRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, code)
}

// Members lists the transport ids following code.
func (h *Hub) Members(code string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms[code]))
	for id := range h.rooms[code] {
		out = append(out, id)
	}
	return out
}

// Close hangs up every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
}

var _ contract.Transport = (*Hub)(nil)

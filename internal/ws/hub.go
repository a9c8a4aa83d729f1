package ws

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rollinit/rollinit/internal/uuid"
)

// MessageSink receives decoded frames and disconnect notifications.
// The event handler implements it; tests can substitute their own.
type MessageSink interface {
	HandleMessage(c *Client, env *Envelope)
	HandleDisconnect(c *Client)
}

// Hub tracks connections, room membership and the binding between
// player combatants and their live connection. All maps are guarded
// by mu; broadcast encoding happens once per event, outside any
// per-connection work.
type Hub struct {
	mu sync.RWMutex

	clients map[string]*Client
	rooms   map[string]map[string]*Client

	// combatant template ID -> connection ID and the reverse index.
	combatantConn  map[string]string
	connCombatants map[string]map[string]struct{}

	sink     MessageSink
	idGen    uuid.Generator
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients:        make(map[string]*Client),
		rooms:          make(map[string]map[string]*Client),
		combatantConn:  make(map[string]string),
		connCombatants: make(map[string]map[string]struct{}),
		idGen:          uuid.NewGoogleUUIDGenerator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Hub) SetSink(sink MessageSink) {
	h.sink = sink
}

// SessionRoom and DMRoom name the two rooms every session owns. The
// DM room is a subgroup of the session room.
func SessionRoom(joinCode string) string {
	return "session:" + strings.ToUpper(joinCode)
}

func DMRoom(joinCode string) string {
	return "dm:" + strings.ToUpper(joinCode)
}

// ServeWS upgrades the request and starts the connection pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[hub] upgrade failed: %v", err)
		return
	}
	c := newClient(h.idGen.New(), h, conn)

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	log.Printf("[hub] conn %s connected", c.ID)
	go c.writePump()
	go c.readPump()
}

func (h *Hub) handleMessage(c *Client, env *Envelope) {
	if h.sink != nil {
		h.sink.HandleMessage(c, env)
	}
}

func (h *Hub) handleDisconnect(c *Client) {
	if h.sink != nil {
		h.sink.HandleDisconnect(c)
	}
	h.Unregister(c.ID)
	c.Close()
	log.Printf("[hub] conn %s disconnected", c.ID)
}

// Unregister drops the connection from every room and from the
// client table. Combatant bindings are the handler's to clear, so it
// can broadcast the resulting state changes first.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.clients, connID)
}

func (h *Hub) Join(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[connID] = c
}

func (h *Hub) Leave(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) InRoom(connID, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][connID]
	return ok
}

// RoomsOf returns every room the connection currently belongs to.
func (h *Hub) RoomsOf(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var rooms []string
	for room, members := range h.rooms {
		if _, ok := members[connID]; ok {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// RoomMemberIDs returns the connection IDs in a room.
func (h *Hub) RoomMemberIDs(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.rooms[room]))
	for id := range h.rooms[room] {
		ids = append(ids, id)
	}
	return ids
}

// ToConn sends one event to a single connection.
func (h *Hub) ToConn(connID, event string, data any) {
	msg := envelope(event, data)
	if msg == nil {
		return
	}
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.Send(msg)
	}
}

// ToRoom sends one event to every connection in a room.
func (h *Hub) ToRoom(room, event string, data any) {
	msg := envelope(event, data)
	if msg == nil {
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.Send(msg)
	}
}

// ToRoomExcept sends to members of room that are not also members of
// except. Used to address participants without the DM subgroup.
func (h *Hub) ToRoomExcept(room, except, event string, data any) {
	msg := envelope(event, data)
	if msg == nil {
		return
	}
	h.mu.RLock()
	excluded := h.rooms[except]
	targets := make([]*Client, 0, len(h.rooms[room]))
	for id, c := range h.rooms[room] {
		if _, skip := excluded[id]; skip {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.Send(msg)
	}
}

// BindCombatant records that a combatant is driven by a connection.
// A combatant has at most one connection; rebinding replaces the old
// one.
func (h *Hub) BindCombatant(combatantID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.combatantConn[combatantID]; ok && old != connID {
		if set, ok := h.connCombatants[old]; ok {
			delete(set, combatantID)
			if len(set) == 0 {
				delete(h.connCombatants, old)
			}
		}
	}
	h.combatantConn[combatantID] = connID
	set, ok := h.connCombatants[connID]
	if !ok {
		set = make(map[string]struct{})
		h.connCombatants[connID] = set
	}
	set[combatantID] = struct{}{}
}

// UnbindConn clears every binding held by a connection and returns
// the combatant IDs that were bound to it.
func (h *Hub) UnbindConn(connID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.connCombatants[connID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
		delete(h.combatantConn, id)
	}
	delete(h.connCombatants, connID)
	return ids
}

// UnbindCombatant clears a single combatant's binding.
func (h *Hub) UnbindCombatant(combatantID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	connID, ok := h.combatantConn[combatantID]
	if !ok {
		return
	}
	delete(h.combatantConn, combatantID)
	if set, ok := h.connCombatants[connID]; ok {
		delete(set, combatantID)
		if len(set) == 0 {
			delete(h.connCombatants, connID)
		}
	}
}

// ConnForCombatant resolves the live connection for a combatant.
func (h *Hub) ConnForCombatant(combatantID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	connID, ok := h.combatantConn[combatantID]
	return connID, ok
}

// ViewerCount reports non-DM members of a session room, split into
// players (at least one bound combatant) and spectators.
func (h *Hub) ViewerCount(joinCode string) (players, spectators int) {
	session := SessionRoom(joinCode)
	dm := DMRoom(joinCode)
	h.mu.RLock()
	defer h.mu.RUnlock()
	dmMembers := h.rooms[dm]
	for id := range h.rooms[session] {
		if _, isDM := dmMembers[id]; isDM {
			continue
		}
		if len(h.connCombatants[id]) > 0 {
			players++
		} else {
			spectators++
		}
	}
	return players, spectators
}

// Kick sends a final error message and closes the connection.
func (h *Hub) Kick(connID, message string) {
	h.ToConn(connID, EventError, ErrorPayload{Message: message})
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.Close()
	}
}

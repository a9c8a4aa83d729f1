package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addTestClient registers a connection-less client whose outbound frames
// can be read straight off its send channel.
func addTestClient(h *Hub, id string) *Client {
	c := newClient(id, h, nil)
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

// recv pops the next frame off a client's buffer, failing when none is
// queued.
func recv(t *testing.T, c *Client) *Envelope {
	t.Helper()
	select {
	case msg := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(msg, &env))
		return &env
	default:
		t.Fatalf("conn %s has no queued message", c.ID)
		return nil
	}
}

func drained(c *Client) bool {
	select {
	case <-c.send:
		return false
	default:
		return true
	}
}

func TestHub_Rooms(t *testing.T) {
	h := NewHub()
	a := addTestClient(h, "a")
	b := addTestClient(h, "b")

	h.Join(a.ID, SessionRoom("GOBLIN"))
	h.Join(b.ID, SessionRoom("GOBLIN"))
	h.Join(b.ID, DMRoom("GOBLIN"))

	t.Run("room names normalize the code", func(t *testing.T) {
		assert.Equal(t, "session:GOBLIN", SessionRoom("goblin"))
		assert.Equal(t, "dm:GOBLIN", DMRoom("Goblin"))
	})

	t.Run("membership is tracked", func(t *testing.T) {
		assert.True(t, h.InRoom(a.ID, SessionRoom("GOBLIN")))
		assert.False(t, h.InRoom(a.ID, DMRoom("GOBLIN")))
		assert.True(t, h.InRoom(b.ID, DMRoom("GOBLIN")))
	})

	t.Run("toRoom reaches every member", func(t *testing.T) {
		h.ToRoom(SessionRoom("GOBLIN"), EventSessionLockChanged, LockChangedPayload{IsLocked: true})
		assert.Equal(t, EventSessionLockChanged, recv(t, a).Event)
		assert.Equal(t, EventSessionLockChanged, recv(t, b).Event)
	})

	t.Run("toRoomExcept skips the subgroup", func(t *testing.T) {
		h.ToRoomExcept(SessionRoom("GOBLIN"), DMRoom("GOBLIN"), EventSessionLockChanged, LockChangedPayload{})
		assert.Equal(t, EventSessionLockChanged, recv(t, a).Event)
		assert.True(t, drained(b))
	})

	t.Run("toConn reaches one member", func(t *testing.T) {
		h.ToConn(b.ID, EventError, ErrorPayload{Message: "x"})
		assert.True(t, drained(a))
		assert.Equal(t, EventError, recv(t, b).Event)
	})

	t.Run("leave removes membership", func(t *testing.T) {
		h.Leave(a.ID, SessionRoom("GOBLIN"))
		assert.False(t, h.InRoom(a.ID, SessionRoom("GOBLIN")))
		h.ToRoom(SessionRoom("GOBLIN"), EventError, ErrorPayload{})
		assert.True(t, drained(a))
		recv(t, b)
	})

	t.Run("unregister clears every room", func(t *testing.T) {
		h.Unregister(b.ID)
		assert.False(t, h.InRoom(b.ID, SessionRoom("GOBLIN")))
		assert.False(t, h.InRoom(b.ID, DMRoom("GOBLIN")))
		assert.Empty(t, h.RoomsOf(b.ID))
	})
}

func TestHub_CombatantBindings(t *testing.T) {
	h := NewHub()
	addTestClient(h, "conn-1")
	addTestClient(h, "conn-2")

	t.Run("bind and resolve", func(t *testing.T) {
		h.BindCombatant("pc-1", "conn-1")
		connID, ok := h.ConnForCombatant("pc-1")
		require.True(t, ok)
		assert.Equal(t, "conn-1", connID)
	})

	t.Run("rebinding replaces the old connection", func(t *testing.T) {
		h.BindCombatant("pc-1", "conn-2")
		connID, ok := h.ConnForCombatant("pc-1")
		require.True(t, ok)
		assert.Equal(t, "conn-2", connID)
		assert.Empty(t, h.UnbindConn("conn-1"))
	})

	t.Run("unbindConn returns what it held", func(t *testing.T) {
		h.BindCombatant("pc-2", "conn-2")
		ids := h.UnbindConn("conn-2")
		assert.ElementsMatch(t, []string{"pc-1", "pc-2"}, ids)
		_, ok := h.ConnForCombatant("pc-1")
		assert.False(t, ok)
	})

	t.Run("unbindCombatant clears one binding", func(t *testing.T) {
		h.BindCombatant("pc-3", "conn-2")
		h.UnbindCombatant("pc-3")
		_, ok := h.ConnForCombatant("pc-3")
		assert.False(t, ok)
	})
}

func TestHub_ViewerCount(t *testing.T) {
	h := NewHub()
	dm := addTestClient(h, "dm")
	player := addTestClient(h, "player")
	spectator := addTestClient(h, "spectator")

	h.Join(dm.ID, SessionRoom("GOBLIN"))
	h.Join(dm.ID, DMRoom("GOBLIN"))
	h.Join(player.ID, SessionRoom("GOBLIN"))
	h.Join(spectator.ID, SessionRoom("GOBLIN"))
	h.BindCombatant("pc-1", player.ID)

	players, spectators := h.ViewerCount("GOBLIN")
	assert.Equal(t, 1, players)
	assert.Equal(t, 1, spectators)

	// The DM never counts, bound or not.
	h.BindCombatant("pc-2", dm.ID)
	players, spectators = h.ViewerCount("GOBLIN")
	assert.Equal(t, 1, players)
	assert.Equal(t, 1, spectators)
}

func TestHub_ClosedClients(t *testing.T) {
	h := NewHub()
	dm := addTestClient(h, "dm")
	player := addTestClient(h, "player")

	h.Join(dm.ID, SessionRoom("GOBLIN"))
	h.Join(dm.ID, DMRoom("GOBLIN"))
	h.Join(player.ID, SessionRoom("GOBLIN"))

	t.Run("a kicked client still in its rooms absorbs later frames", func(t *testing.T) {
		h.Kick(player.ID, "the session code has changed, please rejoin with the new code")
		assert.Equal(t, EventError, recv(t, player).Event)

		// The kicked connection stays room-addressed until its read
		// pump unwinds; broadcasts and direct sends must discard, not
		// panic.
		assert.NotPanics(t, func() {
			h.ToRoom(SessionRoom("GOBLIN"), EventSessionLockChanged, LockChangedPayload{IsLocked: true})
			h.ToConn(player.ID, EventError, ErrorPayload{Message: "too late"})
			player.Send([]byte("too late"))
		})

		assert.Equal(t, EventSessionLockChanged, recv(t, dm).Event)
	})

	t.Run("overflowing the send buffer closes without a panic", func(t *testing.T) {
		slow := addTestClient(h, "slow")
		h.Join(slow.ID, SessionRoom("GOBLIN"))

		assert.NotPanics(t, func() {
			for i := 0; i <= cap(slow.send); i++ {
				slow.Send([]byte("{}"))
			}
			// The overflow above closed the client; further sends drop.
			slow.Send([]byte("{}"))
			h.ToRoom(SessionRoom("GOBLIN"), EventSessionLockChanged, LockChangedPayload{})
		})
	})

	t.Run("closing twice is a no-op", func(t *testing.T) {
		c := addTestClient(h, "twice")
		assert.NotPanics(t, func() {
			c.Close()
			c.Close()
		})
	})
}

package chat

import (
	"sync"

	"github.com/rs/zerolog"
)

// Conn is the hub's view of one client connection.
type Conn interface {
	ID() string

	// Send queues frame without blocking. It returns false when the frame was not queued;
	// an implementation may close itself in that case.
	Send(frame []byte) bool

	// Kick closes the connection with a WebSocket close code and reason.
	Kick(code int, reason string)
}

// connTable holds the live connections attached to a hub.
type connTable struct {
	mu     sync.RWMutex
	conns  map[string]Conn
	logger zerolog.Logger
}

func newConnTable(logger zerolog.Logger) *connTable {
	return &connTable{
		conns:  make(map[string]Conn),
		logger: logger,
	}
}

func (t *connTable) add(c Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[c.ID()] = c
}

func (t *connTable) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, id)
}

func (t *connTable) get(id string) (Conn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.conns[id]
	return c, ok
}

func (t *connTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}

// all returns a snapshot of the attached connections.
func (t *connTable) all() []Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Conn, 0, len(t.conns))
	for _, c := range t.conns {
		out = append(out, c)
	}
	return out
}

// send delivers frame to one connection. Unknown ids are ignored.
func (t *connTable) send(id string, frame []byte) {
	c, ok := t.get(id)
	if !ok {
		return
	}
	if !c.Send(frame) {
		t.logger.Warn().Str("conn_id", id).Msg("Frame not delivered, connection send queue full or closed.")
	}
}

// broadcast delivers frame to each participant except skipConnID.
func (t *connTable) broadcast(members []Participant, frame []byte, skipConnID string) {
	for _, p := range members {
		if p.ConnectionID == skipConnID {
			continue
		}
		t.send(p.ConnectionID, frame)
	}
}

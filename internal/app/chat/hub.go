package chat

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"labchat/internal/app/message"
	"labchat/internal/app/moderation"
	"labchat/internal/pkg/logx"
)

const eventQueueSize = 1024

// History is what the hub needs from the history service.
type History interface {
	Recent(ctx context.Context, roomKey string, limit int) ([]message.Message, error)
	Persist(msg message.Message)
}

// HubConfig configures a Hub.
type HubConfig struct {
	History History

	// Censor masks banned words in text bodies; nil disables moderation.
	Censor *moderation.Censor

	// IdentityBySession de-duplicates rosters by session id instead of display name.
	IdentityBySession bool

	// HistoryLimit is the number of messages pushed to a joiner (clamped by History).
	HistoryLimit int

	// Now defaults to time.Now.
	Now func() time.Time
}

// hubEvent is one unit of work for the hub loop. done, when set, is closed after it ran.
type hubEvent struct {
	connID string
	event  Event
	done   chan struct{}
}

type disconnectEvent struct{}

type flushEvent struct{}

func (disconnectEvent) eventType() string { return "disconnect" }
func (flushEvent) eventType() string      { return "flush" }

// Hub serializes all presence and relay work on one goroutine. Each event updates the
// registry and queues its frames before the next event starts, which keeps every room's
// message order identical for all of its members.
type Hub struct {
	registry *Registry
	conns    *connTable
	presence *Presence
	relay    *Relay

	events chan hubEvent

	// quit stops the loop; stopped is closed once it has returned.
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	logger zerolog.Logger
}

// NewHub constructs a Hub and starts its loop.
func NewHub(cfg HubConfig) *Hub {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger := logx.Component("Hub")
	registry := NewRegistry()
	conns := newConnTable(logger)

	h := &Hub{
		registry: registry,
		conns:    conns,
		presence: newPresence(registry, conns, cfg),
		relay:    newRelay(registry, conns, cfg),
		events:   make(chan hubEvent, eventQueueSize),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   logger,
	}

	go h.run()

	return h
}

// Registry exposes the hub's registry for read-only inspection.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Attach makes conn reachable for frames. It must be called before events are submitted for it.
func (h *Hub) Attach(conn Conn) {
	h.conns.add(conn)
	h.logger.Debug().Str("conn_id", conn.ID()).Int("total_conns", h.conns.len()).Msg("Connection attached.")
}

// Submit queues an inbound event of connID. It blocks while the queue is full and
// returns false if the hub stopped or ctx ended first.
func (h *Hub) Submit(ctx context.Context, connID string, ev Event) bool {
	return h.enqueue(ctx, hubEvent{connID: connID, event: ev})
}

// Disconnect runs the leave handling for connID and detaches it, returning once done.
func (h *Hub) Disconnect(connID string) {
	done := make(chan struct{})
	if h.enqueue(context.Background(), hubEvent{connID: connID, event: disconnectEvent{}, done: done}) {
		select {
		case <-done:
		case <-h.stopped:
		}
	}
	h.conns.remove(connID)
}

// Flush returns after every event submitted before it has been processed.
func (h *Hub) Flush() {
	done := make(chan struct{})
	if !h.enqueue(context.Background(), hubEvent{event: flushEvent{}, done: done}) {
		return
	}
	select {
	case <-done:
	case <-h.stopped:
	}
}

func (h *Hub) enqueue(ctx context.Context, ev hubEvent) bool {
	select {
	case <-h.quit:
		return false
	default:
	}

	select {
	case h.events <- ev:
		return true
	case <-h.quit:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) run() {
	defer close(h.stopped)

	h.logger.Info().Msg("Hub loop started.")

	for {
		select {
		case ev := <-h.events:
			h.dispatch(ev)
		case <-h.quit:
			h.logger.Info().Msg("Hub loop stopped.")
			return
		}
	}
}

// dispatch runs one event. A panic is logged and does not stop the loop.
func (h *Hub) dispatch(ev hubEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error().
				Interface("panic", rec).
				Str("conn_id", ev.connID).
				Msg("Recovered from panic while handling hub event.")
		}
		if ev.done != nil {
			close(ev.done)
		}
	}()

	switch e := ev.event.(type) {
	case JoinRoom:
		h.presence.OnJoin(ev.connID, e)
	case SendMessage:
		h.relay.SendText(ev.connID, e)
	case ShareFile:
		h.relay.SendFile(ev.connID, e)
	case disconnectEvent:
		h.presence.OnDisconnect(ev.connID)
	case flushEvent:
	default:
		h.logger.Warn().Str("conn_id", ev.connID).Msgf("Unhandled hub event %T.", ev.event)
	}
}

// Shutdown stops the loop, closes every attached connection with "going away" and
// waits for pending history pushes. Events still queued are dropped.
func (h *Hub) Shutdown(ctx context.Context) {
	h.logger.Info().Msg("Shutting down Hub...")

	h.stopOnce.Do(func() { close(h.quit) })

	select {
	case <-h.stopped:
	case <-ctx.Done():
		h.logger.Warn().Msg("Hub loop did not stop before the shutdown deadline.")
	}

	for _, c := range h.conns.all() {
		c.Kick(websocket.CloseGoingAway, "server shutting down")
	}

	h.presence.wait(ctx)

	h.logger.Info().Msg("Hub shutdown complete.")
}

package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"labchat/internal/app/message"
	"labchat/internal/app/user"
	"labchat/internal/pkg/errs"
	"labchat/internal/pkg/logx"
)

const (
	// CloseSessionReplaced is the WebSocket close code sent to a connection whose roster
	// entry was taken over by a newer join of the same identity.
	CloseSessionReplaced = 4001

	historyFetchTimeout = 5 * time.Second
)

// Presence handles joins and leaves. Its methods are called from the hub loop only.
type Presence struct {
	registry *Registry
	conns    *connTable
	history  History

	identityBySession bool
	historyLimit      int
	now               func() time.Time

	// fetches tracks history pushes still in flight.
	fetches sync.WaitGroup

	logger zerolog.Logger
}

func newPresence(registry *Registry, conns *connTable, cfg HubConfig) *Presence {
	return &Presence{
		registry:          registry,
		conns:             conns,
		history:           cfg.History,
		identityBySession: cfg.IdentityBySession,
		historyLimit:      cfg.HistoryLimit,
		now:               cfg.Now,
		logger:            logx.Component("Presence"),
	}
}

// OnJoin registers connID in ev.RoomKey. A connection sits in one room at a time, so any
// previous room is left first. The room gets the new roster, everyone but the joiner gets a
// join notice, and the joiner alone gets the room history. Rejoining the same room keeps the
// roster position and only announces a change of name.
func (p *Presence) OnJoin(connID string, ev JoinRoom) {
	who := user.User{SessionID: ev.SessionID, DisplayName: ev.DisplayName}
	identity := who.IdentityKey(p.identityBySession)

	var (
		prev      Participant
		rejoining bool
	)
	for _, roomKey := range p.registry.RoomsOf(connID) {
		if roomKey == ev.RoomKey {
			prev, rejoining = p.registry.RemoveParticipant(roomKey, connID)
			continue
		}
		p.leave(roomKey, connID)
	}

	next := Participant{
		ConnectionID: connID,
		DisplayName:  ev.DisplayName,
		JoinedAt:     p.now().UTC(),
	}
	if rejoining {
		next = rejoin(prev, ev.DisplayName)
	}

	displaced, replaced := p.registry.UpsertParticipant(ev.RoomKey, identity, next)

	logger := p.logger.With().Str("room_key", ev.RoomKey).Str("conn_id", connID).Logger()
	logger.Info().
		Str("display_name", ev.DisplayName).
		Bool("replaced", replaced).
		Bool("rejoin", rejoining).
		Msg("Participant joined room.")

	if replaced && displaced.ConnectionID != connID {
		p.kickReplaced(displaced, ev.RoomKey)
	}

	members := p.registry.ListParticipants(ev.RoomKey)
	p.emitRoster(ev.RoomKey, members)

	switch {
	case !rejoining:
		p.emitNotice(ev.RoomKey, members, fmt.Sprintf("%s joined the room", ev.DisplayName), connID)
	case prev.DisplayName != ev.DisplayName:
		p.emitNotice(ev.RoomKey, members, fmt.Sprintf("%s left the room", prev.DisplayName), connID)
		p.emitNotice(ev.RoomKey, members, fmt.Sprintf("%s joined the room", ev.DisplayName), connID)
	}

	p.pushHistory(connID, ev.RoomKey)
}

// OnDisconnect removes connID from every room it is in and tells the remaining members.
// A connection that never joined, or was already replaced, produces nothing.
func (p *Presence) OnDisconnect(connID string) {
	for _, roomKey := range p.registry.RoomsOf(connID) {
		p.leave(roomKey, connID)
	}
}

func (p *Presence) leave(roomKey, connID string) {
	left, ok := p.registry.RemoveParticipant(roomKey, connID)
	if !ok {
		return
	}

	members := p.registry.ListParticipants(roomKey)
	p.logger.Info().
		Str("room_key", roomKey).
		Str("conn_id", connID).
		Str("display_name", left.DisplayName).
		Int("remaining", len(members)).
		Msg("Participant left room.")

	if len(members) == 0 {
		return
	}
	p.emitRoster(roomKey, members)
	p.emitNotice(roomKey, members, fmt.Sprintf("%s left the room", left.DisplayName), "")
}

func (p *Presence) kickReplaced(displaced Participant, roomKey string) {
	conn, ok := p.conns.get(displaced.ConnectionID)
	if !ok {
		return
	}

	p.logger.Warn().
		Str("room_key", roomKey).
		Str("conn_id", displaced.ConnectionID).
		Msg("Identity joined again from another connection. Closing old connection for replacement.")

	if frame, err := errorFrame(errs.NewError(errs.ErrSessionReplaced)); err == nil {
		conn.Send(frame)
	}
	conn.Kick(CloseSessionReplaced, "Session replaced by new connection. Check other tabs.")
}

func (p *Presence) emitRoster(roomKey string, members []Participant) {
	frame, err := encodeFrame(TypeRoomUsers, RoomUsersPayload{RoomKey: roomKey, Users: members})
	if err != nil {
		p.logger.Error().Err(err).Str("room_key", roomKey).Msg("Failed to build room_users frame.")
		return
	}
	p.conns.broadcast(members, frame, "")
}

// emitNotice sends a live-only system message; notices never reach history.
func (p *Presence) emitNotice(roomKey string, members []Participant, body, skipConnID string) {
	notice := message.NewSystem(roomKey, body, p.now())
	frame, err := encodeFrame(TypeReceiveMessage, notice)
	if err != nil {
		p.logger.Error().Err(err).Str("room_key", roomKey).Msg("Failed to build system notice frame.")
		return
	}
	p.conns.broadcast(members, frame, skipConnID)
}

// pushHistory loads the room history off the hub loop and sends it to connID only.
func (p *Presence) pushHistory(connID, roomKey string) {
	if p.history == nil {
		return
	}

	p.fetches.Add(1)
	go func() {
		defer p.fetches.Done()

		ctx, cancel := context.WithTimeout(context.Background(), historyFetchTimeout)
		defer cancel()

		msgs, err := p.history.Recent(ctx, roomKey, p.historyLimit)
		if err != nil {
			p.logger.Error().Err(err).
				Str("room_key", roomKey).
				Str("conn_id", connID).
				Msg("Failed to load room history for joiner.")
			if frame, err := errorFrame(errs.NewError(errs.ErrHistoryUnavailable)); err == nil {
				p.conns.send(connID, frame)
			}
			return
		}
		if msgs == nil {
			msgs = []message.Message{}
		}

		frame, err := encodeFrame(TypeMessageHistory, MessageHistoryPayload{RoomKey: roomKey, Messages: msgs})
		if err != nil {
			p.logger.Error().Err(err).Str("room_key", roomKey).Msg("Failed to build message_history frame.")
			return
		}
		p.conns.send(connID, frame)
	}()
}

// wait blocks until in-flight history pushes finish or ctx ends.
func (p *Presence) wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		p.fetches.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

package chat

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"labchat/internal/app/message"
	"labchat/internal/app/moderation"
	"labchat/internal/pkg/logx"
)

// Relay broadcasts user messages to a room and hands them to history afterwards.
// Its methods are called from the hub loop only.
type Relay struct {
	registry *Registry
	conns    *connTable
	history  History
	censor   *moderation.Censor
	now      func() time.Time

	logger zerolog.Logger
}

func newRelay(registry *Registry, conns *connTable, cfg HubConfig) *Relay {
	return &Relay{
		registry: registry,
		conns:    conns,
		history:  cfg.History,
		censor:   cfg.Censor,
		now:      cfg.Now,
		logger:   logx.Component("Relay"),
	}
}

// SendText relays a text message from connID. Blank bodies and senders that have not
// joined the room are dropped.
func (r *Relay) SendText(connID string, ev SendMessage) {
	if strings.TrimSpace(ev.Body) == "" {
		r.logger.Debug().Str("conn_id", connID).Str("room_key", ev.RoomKey).Msg("Dropping blank message.")
		return
	}

	sender, ok := r.sender(connID, ev.RoomKey)
	if !ok {
		return
	}

	body := ev.Body
	if censored, changed := r.censor.Apply(body); changed {
		r.logger.Info().Str("conn_id", connID).Str("room_key", ev.RoomKey).Msg("Masked banned words in message.")
		body = censored
	}

	r.deliver(message.NewText(ev.RoomKey, sender.DisplayName, body, r.now()))
}

// SendFile relays a reference to an uploaded file from connID.
func (r *Relay) SendFile(connID string, ev ShareFile) {
	if err := ValidateAttachmentRef(ev.AttachmentURL, ev.AttachmentName); err != nil {
		r.logger.Warn().Err(err).Str("conn_id", connID).Str("room_key", ev.RoomKey).Msg("Dropping invalid file share.")
		return
	}

	sender, ok := r.sender(connID, ev.RoomKey)
	if !ok {
		return
	}

	r.deliver(message.NewFile(ev.RoomKey, sender.DisplayName, ev.AttachmentURL, ev.AttachmentName, r.now()))
}

func (r *Relay) sender(connID, roomKey string) (Participant, bool) {
	p, ok := r.registry.Lookup(roomKey, connID)
	if !ok {
		r.logger.Warn().Str("conn_id", connID).Str("room_key", roomKey).Msg("Sender has not joined the room, dropping message.")
	}
	return p, ok
}

// deliver broadcasts msg to every member, sender included, then queues it for history.
// A history failure never affects the broadcast.
func (r *Relay) deliver(msg message.Message) {
	frame, err := encodeFrame(TypeReceiveMessage, msg)
	if err != nil {
		r.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Error marshaling message for broadcast.")
		return
	}

	members := r.registry.ListParticipants(msg.RoomKey)
	r.conns.broadcast(members, frame, "")

	r.logger.Debug().
		Str("message_id", msg.ID).
		Str("room_key", msg.RoomKey).
		Str("kind", string(msg.Kind)).
		Int("recipients", len(members)).
		Msg("Message relayed.")

	if r.history != nil {
		r.history.Persist(msg)
	}
}

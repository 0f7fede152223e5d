package history

import (
	"context"

	"labchat/internal/app/message"
)

// Service is the history facade used by the chat hub and the HTTP handlers:
// clamped reads straight from the Store, writes through the async Writer.
type Service struct {
	store  Store
	limits Limits
	writer *Writer
}

func NewService(store Store, limits Limits, queueSize int) *Service {
	return &Service{
		store:  store,
		limits: limits,
		writer: NewWriter(store, queueSize),
	}
}

// Recent returns the newest messages of roomKey, oldest first, with limit clamped.
func (s *Service) Recent(ctx context.Context, roomKey string, limit int) ([]message.Message, error) {
	return s.store.Recent(ctx, roomKey, s.limits.Clamp(limit))
}

// Persist queues msg for durable storage. Non-persistable messages are ignored.
func (s *Service) Persist(msg message.Message) {
	if !msg.Persistable() {
		return
	}
	s.writer.Enqueue(msg)
}

// Close drains pending writes. The Store itself is closed by its owner.
func (s *Service) Close() {
	s.writer.Close()
}

package history

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"labchat/internal/app/message"
	"labchat/internal/pkg/logx"
)

// Writer appends messages to a Store on one background goroutine, in enqueue order.
// Failures are logged and dropped; nothing is retried.
type Writer struct {
	store Store
	queue chan message.Message

	// mu guards closed against Enqueue racing Close.
	mu     sync.RWMutex
	closed bool

	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewWriter starts a writer with a queue of queueSize pending messages.
func NewWriter(store Store, queueSize int) *Writer {
	if queueSize < 1 {
		queueSize = 1
	}

	w := &Writer{
		store:  store,
		queue:  make(chan message.Message, queueSize),
		logger: logx.Component("HistoryWriter"),
	}

	w.wg.Add(1)
	go w.run()

	return w
}

// Enqueue hands msg to the worker without blocking. It returns false when the queue is
// full or the writer is closed; the message is then lost from history.
func (w *Writer) Enqueue(msg message.Message) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.logger.Warn().Str("message_id", msg.ID).Msg("Writer closed, message not persisted.")
		return false
	}

	select {
	case w.queue <- msg:
		return true
	default:
		w.logger.Warn().
			Str("message_id", msg.ID).
			Str("room_key", msg.RoomKey).
			Int("queue_len", len(w.queue)).
			Msg("Persist queue full, message not persisted.")
		return false
	}
}

// Close stops accepting messages and waits until the queued ones have been written.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Writer) run() {
	defer w.wg.Done()

	ctx := context.Background()
	for msg := range w.queue {
		if err := w.store.Append(ctx, msg); err != nil {
			w.logger.Error().
				Err(err).
				Str("message_id", msg.ID).
				Str("room_key", msg.RoomKey).
				Msg("Failed to persist message; it was delivered live but is missing from history.")
		}
	}
}

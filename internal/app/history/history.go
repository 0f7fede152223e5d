//go:generate go run go.uber.org/mock/mockgen -source=history.go -destination=mocks/mock_store.go -package=mocks

/*
Package history stores chat messages durably and serves recent room history.

Writes from the live relay go through Writer, a single background worker, so a slow or
failing store never delays broadcasts. Reads are bounded by a clamped limit.
*/
package history

import (
	"context"

	"labchat/internal/app/message"
)

// Store is the durable message store behind the history service.
type Store interface {
	// Append durably stores one message. Appending an id that is already stored is not an error.
	Append(ctx context.Context, msg message.Message) error

	// Recent returns at most limit of the newest messages of roomKey, oldest first.
	// A limit of zero or less yields an empty slice.
	// It has no side effects.
	Recent(ctx context.Context, roomKey string, limit int) ([]message.Message, error)
}

// Limits bounds history reads.
type Limits struct {
	Default int
	Max     int
}

// Clamp maps a requested limit into [1, Max]; non-positive requests get Default.
func (l Limits) Clamp(requested int) int {
	if requested <= 0 {
		requested = l.Default
	}
	if requested > l.Max {
		requested = l.Max
	}
	if requested < 1 {
		requested = 1
	}
	return requested
}

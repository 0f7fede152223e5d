package history

import (
	"context"
	"slices"
	"sort"
	"sync"

	"labchat/internal/app/message"
)

// DefaultMemoryRoomCap is how many messages MemoryStore keeps per room.
const DefaultMemoryRoomCap = 1000

// MemoryStore keeps the newest messages of each room in process memory.
// It is the development driver and the reference implementation in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	rooms   map[string][]message.Message
	ids     map[string]struct{}
	roomCap int
}

// NewMemoryStore returns an empty store keeping up to roomCap messages per room
// (DefaultMemoryRoomCap when roomCap <= 0).
func NewMemoryStore(roomCap int) *MemoryStore {
	if roomCap <= 0 {
		roomCap = DefaultMemoryRoomCap
	}
	return &MemoryStore{
		rooms:   make(map[string][]message.Message),
		ids:     make(map[string]struct{}),
		roomCap: roomCap,
	}
}

func (s *MemoryStore) Append(_ context.Context, msg message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[msg.ID]; ok {
		return nil
	}

	// Keep each room sorted by (CreatedAt, ID) so out-of-order appends still read back in order.
	msgs := s.rooms[msg.RoomKey]
	pos := sort.Search(len(msgs), func(i int) bool { return after(msgs[i], msg) })
	msgs = slices.Insert(msgs, pos, msg)
	s.ids[msg.ID] = struct{}{}
	if len(msgs) > s.roomCap {
		for _, evicted := range msgs[:len(msgs)-s.roomCap] {
			delete(s.ids, evicted.ID)
		}
		msgs = append([]message.Message(nil), msgs[len(msgs)-s.roomCap:]...)
	}
	s.rooms[msg.RoomKey] = msgs
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, roomKey string, limit int) ([]message.Message, error) {
	if limit <= 0 {
		return []message.Message{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.rooms[roomKey]
	if limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]message.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func after(a, b message.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

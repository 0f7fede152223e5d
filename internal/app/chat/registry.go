package chat

import (
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Participant is one connection registered in a room.
type Participant struct {
	ConnectionID string    `json:"connectionId"`
	DisplayName  string    `json:"displayName"`
	JoinedAt     time.Time `json:"joinedAt"`

	identity string
	seq      uint64
}

// Registry maps room keys to their participants, one entry per identity key.
// Rooms exist while they have at least one participant.
//
// Registry never broadcasts; callers decide what to tell whom about a change.
type Registry struct {
	// mu protects rooms and seq.
	mu sync.RWMutex

	// roomKey -> identity -> participant
	rooms map[string]map[string]Participant

	// seq orders joins even when JoinedAt collides.
	seq uint64
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]Participant),
	}
}

// UpsertParticipant stores p under identity in roomKey, replacing any entry with the same
// identity. The replaced entry, if any, is returned. An entry carried over from a previous
// join (see rejoin) keeps its place in the roster.
func (r *Registry) UpsertParticipant(roomKey, identity string, p Participant) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomKey]
	if !ok {
		members = make(map[string]Participant)
		r.rooms[roomKey] = members
	}

	displaced, existed := members[identity]

	if p.seq == 0 {
		r.seq++
		p.seq = r.seq
	}
	p.identity = identity
	members[identity] = p

	return displaced, existed
}

// RemoveParticipant removes the entry of connID from roomKey and returns it.
// It is a no-op when the connection is not in that room.
func (r *Registry) RemoveParticipant(roomKey, connID string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomKey]
	if !ok {
		return Participant{}, false
	}

	for identity, p := range members {
		if p.ConnectionID != connID {
			continue
		}
		delete(members, identity)
		if len(members) == 0 {
			delete(r.rooms, roomKey)
		}
		return p, true
	}
	return Participant{}, false
}

// ListParticipants returns a snapshot of roomKey's roster in join order.
// An unknown room yields an empty, non-nil slice.
func (r *Registry) ListParticipants(roomKey string) []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := lo.Values(r.rooms[roomKey])
	slices.SortFunc(out, func(a, b Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return out
}

// rejoin turns prev into the entry for a new join of the same connection, keeping its join
// time and roster position.
func rejoin(prev Participant, displayName string) Participant {
	prev.DisplayName = displayName
	prev.identity = ""
	return prev
}

// Lookup returns the participant entry of connID in roomKey.
func (r *Registry) Lookup(roomKey, connID string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.rooms[roomKey] {
		if p.ConnectionID == connID {
			return p, true
		}
	}
	return Participant{}, false
}

// RoomsOf returns every room currently holding connID.
func (r *Registry) RoomsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []string
	for key, members := range r.rooms {
		for _, p := range members {
			if p.ConnectionID == connID {
				keys = append(keys, key)
				break
			}
		}
	}
	slices.Sort(keys)
	return keys
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

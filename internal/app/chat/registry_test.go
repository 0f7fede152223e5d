package chat

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func connIDs(ps []Participant) []string {
	return lo.Map(ps, func(p Participant, _ int) string { return p.ConnectionID })
}

func TestRegistry_UpsertReplacesSameIdentity(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	// Given Asha joined from c1
	_, replaced := r.UpsertParticipant("lab", "name:Asha", Participant{ConnectionID: "c1", DisplayName: "Asha", JoinedAt: at})
	req.False(replaced)

	// When Asha joins again from c2
	displaced, replaced := r.UpsertParticipant("lab", "name:Asha", Participant{ConnectionID: "c2", DisplayName: "Asha", JoinedAt: at.Add(time.Second)})

	// Then c1 is displaced and the roster holds only c2
	req.True(replaced)
	req.Equal("c1", displaced.ConnectionID)
	req.Equal([]string{"c2"}, connIDs(r.ListParticipants("lab")))
	req.Empty(r.RoomsOf("c1"))
}

func TestRegistry_ListOrderedByJoin(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	r.UpsertParticipant("lab", "name:Cleo", Participant{ConnectionID: "c3", DisplayName: "Cleo", JoinedAt: at.Add(2 * time.Second)})
	r.UpsertParticipant("lab", "name:Asha", Participant{ConnectionID: "c1", DisplayName: "Asha", JoinedAt: at})
	// Same timestamp as Asha: join order breaks the tie.
	r.UpsertParticipant("lab", "name:Ben", Participant{ConnectionID: "c2", DisplayName: "Ben", JoinedAt: at})

	req.Equal([]string{"c1", "c2", "c3"}, connIDs(r.ListParticipants("lab")))
}

func TestRegistry_RemoveAndEmptyRooms(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	now := time.Now()

	r.UpsertParticipant("lab", "name:Asha", Participant{ConnectionID: "c1", DisplayName: "Asha", JoinedAt: now})
	r.UpsertParticipant("bio", "name:Ben", Participant{ConnectionID: "c2", DisplayName: "Ben", JoinedAt: now})
	req.Equal(2, r.RoomCount())

	// Removing an absent connection is a no-op
	_, ok := r.RemoveParticipant("lab", "nobody")
	req.False(ok)
	_, ok = r.RemoveParticipant("unknown", "c1")
	req.False(ok)

	// Removing the last participant drops the room
	left, ok := r.RemoveParticipant("lab", "c1")
	req.True(ok)
	req.Equal("Asha", left.DisplayName)
	req.Equal(1, r.RoomCount())
	req.NotNil(r.ListParticipants("lab"))
	req.Empty(r.ListParticipants("lab"))
}

func TestRegistry_RoomsOfAndLookup(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	now := time.Now()

	r.UpsertParticipant("lab", "name:Asha", Participant{ConnectionID: "c1", DisplayName: "Asha", JoinedAt: now})
	r.UpsertParticipant("bio", "name:Asha", Participant{ConnectionID: "c1", DisplayName: "Asha", JoinedAt: now})
	r.UpsertParticipant("bio", "name:Ben", Participant{ConnectionID: "c2", DisplayName: "Ben", JoinedAt: now})

	req.Equal([]string{"bio", "lab"}, r.RoomsOf("c1"))
	req.Equal([]string{"bio"}, r.RoomsOf("c2"))
	req.Empty(r.RoomsOf("c9"))

	p, ok := r.Lookup("bio", "c2")
	req.True(ok)
	req.Equal("Ben", p.DisplayName)
	_, ok = r.Lookup("lab", "c2")
	req.False(ok)
}

func TestRegistry_RejoinKeepsRosterPosition(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	// Given Asha and Ben joined at the same instant, Asha first
	r.UpsertParticipant("lab", "name:Asha", Participant{ConnectionID: "c1", DisplayName: "Asha", JoinedAt: at})
	r.UpsertParticipant("lab", "name:Ben", Participant{ConnectionID: "c2", DisplayName: "Ben", JoinedAt: at})

	// When c1 rejoins as Ash
	prev, ok := r.RemoveParticipant("lab", "c1")
	req.True(ok)
	_, replaced := r.UpsertParticipant("lab", "name:Ash", rejoin(prev, "Ash"))

	// Then the roster order is unchanged and the old identity is gone
	req.False(replaced)
	roster := r.ListParticipants("lab")
	req.Equal([]string{"c1", "c2"}, connIDs(roster))
	req.Equal("Ash", roster[0].DisplayName)
	req.True(roster[0].JoinedAt.Equal(at))
}

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"labchat/internal/app/history"
	"labchat/internal/app/history/mocks"
	"labchat/internal/app/message"
	"labchat/internal/app/moderation"
)

// fakeConn records every frame the hub sends it.
type fakeConn struct {
	id string

	mu       sync.Mutex
	frames   []Envelope
	kickCode int
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(frame []byte) bool {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		panic(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, env)
	return true
}

func (c *fakeConn) Kick(code int, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kickCode = code
}

func (c *fakeConn) kicked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kickCode
}

// live returns the frames of the given types, in arrival order.
func (c *fakeConn) live(types ...string) []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Filter(c.frames, func(e Envelope, _ int) bool { return lo.Contains(types, e.Type) })
}

// received returns the receive_message payloads as "sender: body".
func (c *fakeConn) received(t *testing.T) []string {
	return lo.Map(c.live(TypeReceiveMessage), func(e Envelope, _ int) string {
		var msg message.Message
		require.NoError(t, json.Unmarshal(e.Payload, &msg))
		return msg.Sender + ": " + msg.Body
	})
}

func (c *fakeConn) rosters(t *testing.T) [][]string {
	return lo.Map(c.live(TypeRoomUsers), func(e Envelope, _ int) []string {
		var p RoomUsersPayload
		require.NoError(t, json.Unmarshal(e.Payload, &p))
		return lo.Map(p.Users, func(u Participant, _ int) string { return u.DisplayName })
	})
}

func (c *fakeConn) history(t *testing.T) []MessageHistoryPayload {
	return lo.Map(c.live(TypeMessageHistory), func(e Envelope, _ int) MessageHistoryPayload {
		var p MessageHistoryPayload
		require.NoError(t, json.Unmarshal(e.Payload, &p))
		return p
	})
}

type hubFixture struct {
	hub   *Hub
	store *history.MemoryStore
	svc   *history.Service
}

func newHubFixture(t *testing.T, mutate ...func(*HubConfig)) *hubFixture {
	t.Helper()
	store := history.NewMemoryStore(0)
	svc := history.NewService(store, history.Limits{Default: 50, Max: 200}, 64)
	cfg := HubConfig{History: svc, HistoryLimit: 50}
	for _, m := range mutate {
		m(&cfg)
	}
	hub := NewHub(cfg)
	t.Cleanup(func() {
		hub.Shutdown(context.Background())
		svc.Close()
	})
	return &hubFixture{hub: hub, store: store, svc: svc}
}

func (f *hubFixture) connect(id string) *fakeConn {
	c := newFakeConn(id)
	f.hub.Attach(c)
	return c
}

func (f *hubFixture) submit(t *testing.T, connID string, ev Event) {
	t.Helper()
	require.True(t, f.hub.Submit(context.Background(), connID, ev))
}

func TestHub_JoinSendLeaveScenario(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	a := f.connect("conn-a")
	b := f.connect("conn-b")

	// Given A and B join lab
	f.submit(t, "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})
	f.submit(t, "conn-b", JoinRoom{RoomKey: "lab", DisplayName: "Ben"})

	// When A says hi and B leaves
	f.submit(t, "conn-a", SendMessage{RoomKey: "lab", Body: "hi"})
	f.hub.Flush()
	f.hub.Disconnect("conn-b")

	// Then A saw both rosters, the join notice, its own message and the leave notice
	req.Equal([][]string{{"Asha"}, {"Asha", "Ben"}, {"Asha"}}, a.rosters(t))
	req.Equal([]string{"System: Ben joined the room", "Asha: hi", "System: Ben left the room"}, a.received(t))

	// And B saw its roster and the message, but not its own join notice
	req.Equal([][]string{{"Asha", "Ben"}}, b.rosters(t))
	req.Equal([]string{"Asha: hi"}, b.received(t))

	// And only the text message reached history
	req.Eventually(func() bool {
		msgs, err := f.store.Recent(context.Background(), "lab", 10)
		return err == nil && len(msgs) == 1 && msgs[0].Body == "hi" && msgs[0].Sender == "Asha"
	}, time.Second, 10*time.Millisecond)

	req.Equal(0, a.kicked())
	req.Equal(1, f.hub.Registry().RoomCount())
}

func TestHub_JoinerGetsHistoryPrivately(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	ctx := context.Background()

	// Given a room with stored messages
	req.NoError(f.store.Append(ctx, message.NewText("lab", "Asha", "first", time.Now())))
	req.NoError(f.store.Append(ctx, message.NewText("lab", "Asha", "second", time.Now().Add(time.Millisecond))))
	a := f.connect("conn-a")
	f.submit(t, "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})

	// When B joins
	b := f.connect("conn-b")
	f.submit(t, "conn-b", JoinRoom{RoomKey: "lab", DisplayName: "Ben"})
	f.hub.Flush()

	// Then B receives the history in ascending order
	req.Eventually(func() bool { return len(b.history(t)) == 1 }, time.Second, 5*time.Millisecond)
	pushed := b.history(t)[0]
	req.Equal("lab", pushed.RoomKey)
	req.Equal([]string{"first", "second"}, lo.Map(pushed.Messages, func(m message.Message, _ int) string { return m.Body }))

	// And A received exactly one history push: its own
	req.Eventually(func() bool { return len(a.history(t)) == 1 }, time.Second, 5*time.Millisecond)
	f.hub.Shutdown(ctx)
	req.Len(a.history(t), 1)
}

func TestHub_LastJoinWinsPerDisplayName(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	first := f.connect("conn-1")
	second := f.connect("conn-2")

	// Given Asha joined from one tab
	f.submit(t, "conn-1", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})

	// When Asha joins again from another tab
	f.submit(t, "conn-2", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})
	f.hub.Flush()

	// Then the roster has one entry for the newest connection and the old one was kicked
	roster := f.hub.Registry().ListParticipants("lab")
	req.Len(roster, 1)
	req.Equal("conn-2", roster[0].ConnectionID)
	req.Equal(CloseSessionReplaced, first.kicked())
	req.Len(first.live(TypeError), 1)
	req.Equal(0, second.kicked())

	// And the kicked connection's disconnect changes nothing
	f.hub.Disconnect("conn-1")
	req.Len(f.hub.Registry().ListParticipants("lab"), 1)
	req.Equal([][]string{{"Asha"}}, second.rosters(t))
}

func TestHub_SessionIdentityKeepsSameNames(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, func(c *HubConfig) { c.IdentityBySession = true })
	f.connect("conn-1")
	f.connect("conn-2")
	f.connect("conn-3")

	f.submit(t, "conn-1", JoinRoom{RoomKey: "lab", DisplayName: "Sam", SessionID: "s-1"})
	f.submit(t, "conn-2", JoinRoom{RoomKey: "lab", DisplayName: "Sam", SessionID: "s-2"})
	f.submit(t, "conn-3", JoinRoom{RoomKey: "lab", DisplayName: "Sam 2", SessionID: "s-1"})
	f.hub.Flush()

	// Two sessions named Sam coexist; the second join of s-1 replaced its first one.
	req.Equal([]string{"conn-2", "conn-3"}, connIDs(f.hub.Registry().ListParticipants("lab")))
}

func TestHub_BlankAndUnjoinedSendsAreDropped(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	a := f.connect("conn-a")
	f.connect("conn-x")
	f.submit(t, "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})

	// When A sends blank bodies and X sends without joining
	f.submit(t, "conn-a", SendMessage{RoomKey: "lab", Body: ""})
	f.submit(t, "conn-a", SendMessage{RoomKey: "lab", Body: " \n\t "})
	f.submit(t, "conn-x", SendMessage{RoomKey: "lab", Body: "intruder"})
	f.submit(t, "conn-a", ShareFile{RoomKey: "lab", AttachmentURL: "ftp://x/y.png", AttachmentName: "y.png"})
	f.hub.Flush()
	f.svc.Close()

	// Then nothing was broadcast or persisted
	req.Empty(a.received(t))
	msgs, err := f.store.Recent(context.Background(), "lab", 10)
	req.NoError(err)
	req.Empty(msgs)
}

func TestHub_DisconnectOfNeverJoinedEmitsNothing(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	a := f.connect("conn-a")
	f.connect("conn-x")
	f.submit(t, "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})
	f.hub.Flush()
	before := len(a.live(TypeRoomUsers, TypeReceiveMessage))

	f.hub.Disconnect("conn-x")
	f.hub.Disconnect("conn-x")

	req.Len(a.live(TypeRoomUsers, TypeReceiveMessage), before)
	req.Equal([]string{"conn-a"}, connIDs(f.hub.Registry().ListParticipants("lab")))
}

func TestHub_PerRoomOrderIsPreserved(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	a := f.connect("conn-a")
	b := f.connect("conn-b")
	f.submit(t, "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})
	f.submit(t, "conn-b", JoinRoom{RoomKey: "lab", DisplayName: "Ben"})

	var wg sync.WaitGroup
	for _, sender := range []string{"conn-a", "conn-b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				f.hub.Submit(context.Background(), sender, SendMessage{RoomKey: "lab", Body: fmt.Sprintf("%s-%02d", sender, i)})
			}
		}()
	}
	wg.Wait()
	f.hub.Flush()

	gotA := lo.Filter(a.received(t), func(s string, _ int) bool { return s[:6] != "System" })
	gotB := lo.Filter(b.received(t), func(s string, _ int) bool { return s[:6] != "System" })

	// Both members see the same 100 messages in the same order, each sender's in send order
	req.Len(gotA, 100)
	req.Equal(gotA, gotB)
	for _, sender := range []string{"Asha", "Ben"} {
		mine := lo.Filter(gotA, func(s string, _ int) bool { return s[:len(sender)] == sender })
		for i := 1; i < len(mine); i++ {
			req.Less(mine[i-1], mine[i])
		}
		req.Len(mine, 50)
	}
}

func TestHub_JoiningAnotherRoomLeavesTheFirst(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	a := f.connect("conn-a")
	b := f.connect("conn-b")
	f.submit(t, "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})
	f.submit(t, "conn-b", JoinRoom{RoomKey: "lab", DisplayName: "Ben"})

	f.submit(t, "conn-b", JoinRoom{RoomKey: "bio", DisplayName: "Ben"})
	f.hub.Flush()

	req.Equal([]string{"bio"}, f.hub.Registry().RoomsOf("conn-b"))
	req.Equal([]string{"System: Ben joined the room", "System: Ben left the room"}, a.received(t))
	req.Equal([][]string{{"Asha", "Ben"}, {"Ben"}}, b.rosters(t))
}

func TestHub_RejoiningSameRoomOnlyAnnouncesRenames(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	a := f.connect("conn-a")
	b := f.connect("conn-b")
	f.submit(t, "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})
	f.submit(t, "conn-b", JoinRoom{RoomKey: "lab", DisplayName: "Ben"})

	// When A rejoins under the same name, then under a new one
	f.submit(t, "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})
	f.submit(t, "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Ash"})
	f.hub.Flush()

	// Then B only hears about the rename, and A keeps its place in the roster
	req.Equal([]string{"System: Asha left the room", "System: Ash joined the room"}, b.received(t))
	req.Equal([][]string{{"Asha", "Ben"}, {"Asha", "Ben"}, {"Ash", "Ben"}}, b.rosters(t))
	req.Equal([]string{"System: Ben joined the room"}, a.received(t))
	req.Equal([]string{"lab"}, f.hub.Registry().RoomsOf("conn-a"))
	req.Len(f.hub.Registry().ListParticipants("lab"), 2)
}

func TestHub_CensorsBannedWords(t *testing.T) {
	req := require.New(t)
	censor, err := moderation.NewCensor([]string{"darn"}, moderation.DefaultMask)
	req.NoError(err)
	f := newHubFixture(t, func(c *HubConfig) { c.Censor = censor })
	a := f.connect("conn-a")

	f.submit(t, "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})
	f.submit(t, "conn-a", SendMessage{RoomKey: "lab", Body: "the d4rn centrifuge"})
	f.hub.Flush()

	req.Equal([]string{"Asha: the **** centrifuge"}, a.received(t))
}

func TestHub_PersistenceFailureKeepsLiveDelivery(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mem := history.NewMemoryStore(0)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("connection refused")).Times(1)
	store.EXPECT().Recent(gomock.Any(), "lab", gomock.Any()).DoAndReturn(mem.Recent).AnyTimes()

	svc := history.NewService(store, history.Limits{Default: 50, Max: 200}, 8)
	hub := NewHub(HubConfig{History: svc, HistoryLimit: 50})
	a := newFakeConn("conn-a")
	b := newFakeConn("conn-b")
	hub.Attach(a)
	hub.Attach(b)

	// Given two members and a store that rejects writes
	hub.Submit(context.Background(), "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})
	hub.Submit(context.Background(), "conn-b", JoinRoom{RoomKey: "lab", DisplayName: "Ben"})

	// When A sends a message
	hub.Submit(context.Background(), "conn-a", SendMessage{RoomKey: "lab", Body: "unsaved result"})
	hub.Flush()
	svc.Close()
	hub.Shutdown(context.Background())

	// Then both got it live, and history does not contain it
	req.Contains(a.received(t), "Asha: unsaved result")
	req.Contains(b.received(t), "Asha: unsaved result")
	msgs, err := svc.Recent(context.Background(), "lab", 0)
	req.NoError(err)
	req.Empty(msgs)
}

func TestHub_HistoryFailureSendsErrorToJoiner(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Recent(gomock.Any(), "lab", 50).Return(nil, errors.New("timeout")).Times(1)

	svc := history.NewService(store, history.Limits{Default: 50, Max: 200}, 8)
	hub := NewHub(HubConfig{History: svc})
	a := newFakeConn("conn-a")
	hub.Attach(a)

	hub.Submit(context.Background(), "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"})
	hub.Flush()
	hub.Shutdown(context.Background())
	svc.Close()

	req.Empty(a.history(t))
	errFrames := a.live(TypeError)
	req.Len(errFrames, 1)
	req.Contains(string(errFrames[0].Payload), `"code":5001`)
}

func TestHub_ShutdownKicksConnectionsAndRejectsEvents(t *testing.T) {
	req := require.New(t)
	hub := NewHub(HubConfig{})
	a := newFakeConn("conn-a")
	hub.Attach(a)

	hub.Shutdown(context.Background())

	req.Equal(1001, a.kicked())
	req.False(hub.Submit(context.Background(), "conn-a", JoinRoom{RoomKey: "lab", DisplayName: "Asha"}))
	hub.Disconnect("conn-a")
	hub.Flush()
}

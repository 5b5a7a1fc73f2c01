package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chat-shell/domain"
	"chat-shell/moderation"
	"chat-shell/repositories"
	"chat-shell/search"
)

type recorderSink struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorderSink) WriteLine(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	return nil
}

func (r *recorderSink) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

func (r *recorderSink) Last() string {
	lines := r.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

func newTestService(t *testing.T, moderator *moderation.Moderator) (*ChatService, *repositories.RoomRegistry) {
	t.Helper()
	index, err := search.NewTranscriptIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	rooms := repositories.NewRoomRegistry()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewChatService(rooms, moderator, index, log), rooms
}

func connectedUser(username string) (*domain.User, *recorderSink) {
	user := domain.NewUser(username)
	sink := &recorderSink{}
	user.BindSink(sink)
	return user, sink
}

func TestChatService_Join(t *testing.T) {
	req := require.New(t)
	service, rooms := newTestService(t, nil)
	ctx := context.Background()

	alice, aliceSink := connectedUser("alice")
	service.Dispatch(ctx, alice, "/join lobby")

	req.Equal([]string{"Joined room lobby"}, aliceSink.Lines())

	lobby, ok := rooms.CurrentRoom("alice")
	req.True(ok)
	req.Equal("lobby", lobby.Name)
	req.True(lobby.Contains(alice))

	entries := lobby.Transcript()
	req.Len(entries, 1)
	req.Equal("alice", entries[0].Sender)
	req.Equal("alice joined the room.", entries[0].Text)
}

func TestChatService_JoinNotifiesOtherMembers(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t, nil)
	ctx := context.Background()

	alice, aliceSink := connectedUser("alice")
	bob, bobSink := connectedUser("bob")

	service.Dispatch(ctx, alice, "/join lobby")
	service.Dispatch(ctx, bob, "/join lobby")

	// Alice sees the notice; Bob only sees his confirmation.
	req.Equal([]string{"Joined room lobby", "bob: bob joined the room."}, aliceSink.Lines())
	req.Equal([]string{"Joined room lobby"}, bobSink.Lines())
}

func TestChatService_JoinWithoutRoomNameIsUsageError(t *testing.T) {
	req := require.New(t)
	service, rooms := newTestService(t, nil)

	alice, aliceSink := connectedUser("alice")
	service.Dispatch(context.Background(), alice, "/join")

	req.Equal([]string{"Usage: /join <room_name>"}, aliceSink.Lines())
	req.Empty(rooms.List())
}

func TestChatService_JoinMovesUserBetweenRooms(t *testing.T) {
	req := require.New(t)
	service, rooms := newTestService(t, nil)
	ctx := context.Background()

	alice, aliceSink := connectedUser("alice")
	bob, bobSink := connectedUser("bob")

	service.Dispatch(ctx, alice, "/join a")
	service.Dispatch(ctx, bob, "/join a")
	service.Dispatch(ctx, bob, "/join b")

	roomA := rooms.GetOrCreate("a")
	roomB := rooms.GetOrCreate("b")

	// Never in two rooms at once.
	req.False(roomA.Contains(bob))
	req.True(roomB.Contains(bob))
	current, ok := rooms.CurrentRoom("bob")
	req.True(ok)
	req.Same(roomB, current)

	// The old room got a leave notice, broadcast and transcripted.
	req.Contains(aliceSink.Lines(), "bob: bob left the room.")
	entriesA := roomA.Transcript()
	req.Equal("bob left the room.", entriesA[len(entriesA)-1].Text)

	// Bob got the full leave confirmation before the join confirmation.
	req.Equal([]string{"Joined room a", "Left the room.", "Joined room b"}, bobSink.Lines())
}

func TestChatService_LeaveWithoutRoomIsSilent(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t, nil)

	alice, aliceSink := connectedUser("alice")
	service.Dispatch(context.Background(), alice, "/leave")

	req.Empty(aliceSink.Lines())
}

func TestChatService_Leave(t *testing.T) {
	req := require.New(t)
	service, rooms := newTestService(t, nil)
	ctx := context.Background()

	alice, aliceSink := connectedUser("alice")
	service.Dispatch(ctx, alice, "/join lobby")
	service.Dispatch(ctx, alice, "/leave")

	req.Equal([]string{"Joined room lobby", "Left the room."}, aliceSink.Lines())

	lobby := rooms.GetOrCreate("lobby")
	req.False(lobby.Contains(alice))
	_, ok := rooms.CurrentRoom("alice")
	req.False(ok)

	// The empty room stays registered and re-joinable.
	req.Len(rooms.List(), 1)
	service.Dispatch(ctx, alice, "/join lobby")
	req.True(lobby.Contains(alice))
}

func TestChatService_ListRooms(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t, nil)
	ctx := context.Background()

	alice, aliceSink := connectedUser("alice")
	service.Dispatch(ctx, alice, "/list")
	req.Equal("There are no rooms available. ", aliceSink.Last())

	service.Dispatch(ctx, alice, "/join a")
	service.Dispatch(ctx, alice, "/join b")
	service.Dispatch(ctx, alice, "/list")
	req.Equal("Available rooms: a, b", aliceSink.Last())
}

func TestChatService_ListUsers(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t, nil)
	ctx := context.Background()

	alice, aliceSink := connectedUser("alice")
	service.Dispatch(ctx, alice, "/users")
	req.Equal("You must join a room first.", aliceSink.Last())

	bob, _ := connectedUser("bob")
	service.Dispatch(ctx, alice, "/join lobby")
	service.Dispatch(ctx, bob, "/join lobby")

	// The caller is included.
	service.Dispatch(ctx, alice, "/users")
	req.Equal("Users in lobby: alice, bob", aliceSink.Last())
}

func TestChatService_MessageRequiresRoom(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t, nil)

	alice, aliceSink := connectedUser("alice")
	service.Dispatch(context.Background(), alice, "hello?")

	req.Equal([]string{"You must join a room first."}, aliceSink.Lines())
}

func TestChatService_MessageBroadcastsAndRecords(t *testing.T) {
	req := require.New(t)
	service, rooms := newTestService(t, nil)
	ctx := context.Background()

	alice, aliceSink := connectedUser("alice")
	bob, bobSink := connectedUser("bob")
	service.Dispatch(ctx, alice, "/join lobby")
	service.Dispatch(ctx, bob, "/join lobby")

	service.Dispatch(ctx, alice, "hi")

	req.Equal("alice: hi", bobSink.Last())
	// The sender gets no echo.
	req.NotContains(aliceSink.Lines(), "alice: hi")

	lobby := rooms.GetOrCreate("lobby")
	entries := lobby.Transcript()
	req.Equal("hi", entries[len(entries)-1].Text)
	req.Equal("alice", entries[len(entries)-1].Sender)
}

func TestChatService_MessageRecordsEvenWithNoRecipients(t *testing.T) {
	req := require.New(t)
	service, rooms := newTestService(t, nil)
	ctx := context.Background()

	alice, _ := connectedUser("alice")
	service.Dispatch(ctx, alice, "/join lobby")
	service.Dispatch(ctx, alice, "anyone?")

	entries := rooms.GetOrCreate("lobby").Transcript()
	req.Len(entries, 2)
	req.Equal("anyone?", entries[1].Text)
}

func TestChatService_MessageIsCensored(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	moderator, err := moderation.New([]string{"viper"}, '*', log)
	req.NoError(err)

	service, rooms := newTestService(t, moderator)
	ctx := context.Background()

	alice, _ := connectedUser("alice")
	bob, bobSink := connectedUser("bob")
	service.Dispatch(ctx, alice, "/join lobby")
	service.Dispatch(ctx, bob, "/join lobby")

	service.Dispatch(ctx, alice, "watch out for the viper")

	req.Equal("alice: watch out for the *****", bobSink.Last())

	// The transcript records the censored text too.
	entries := rooms.GetOrCreate("lobby").Transcript()
	req.Equal("watch out for the *****", entries[len(entries)-1].Text)
}

func TestChatService_Search(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t, nil)
	ctx := context.Background()

	alice, aliceSink := connectedUser("alice")
	service.Dispatch(ctx, alice, "/search badger")
	req.Equal("You must join a room first.", aliceSink.Last())

	service.Dispatch(ctx, alice, "/join lobby")
	service.Dispatch(ctx, alice, "the badger is back")
	service.Dispatch(ctx, alice, "unrelated chatter")

	service.Dispatch(ctx, alice, "/search badger")
	lines := aliceSink.Lines()
	req.Contains(lines, "Results in lobby:")
	req.Contains(lines, "- alice: the badger is back")

	service.Dispatch(ctx, alice, "/search mongoose")
	req.Equal("No results for mongoose.", aliceSink.Last())
}

func TestChatService_SearchIsScopedToRoom(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t, nil)
	ctx := context.Background()

	alice, aliceSink := connectedUser("alice")
	service.Dispatch(ctx, alice, "/join a")
	service.Dispatch(ctx, alice, "badger sighting")
	service.Dispatch(ctx, alice, "/join b")

	service.Dispatch(ctx, alice, "/search badger")
	req.Equal("No results for badger.", aliceSink.Last())
}

// Two live sessions can dispatch for the same username after a reconnect
// rebinding, so room transitions race. The user must end up in exactly one
// member set, and the occupancy index must agree with it.
func TestChatService_ConcurrentJoinsKeepSingleMembership(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx := context.Background()

	for round := 0; round < 200; round++ {
		rooms := repositories.NewRoomRegistry()
		service := NewChatService(rooms, nil, nil, log)
		alice, _ := connectedUser("alice")
		roomA := rooms.GetOrCreate("a")
		roomB := rooms.GetOrCreate("b")

		start := make(chan struct{})
		var wg sync.WaitGroup
		for _, line := range []string{"/join a", "/join b"} {
			wg.Add(1)
			go func(line string) {
				defer wg.Done()
				<-start
				service.Dispatch(ctx, alice, line)
			}(line)
		}
		close(start)
		wg.Wait()

		memberships := 0
		if roomA.Contains(alice) {
			memberships++
		}
		if roomB.Contains(alice) {
			memberships++
		}
		req.Equalf(1, memberships, "round %d: user in %d rooms", round, memberships)

		current, ok := rooms.CurrentRoom("alice")
		req.True(ok)
		req.True(current.Contains(alice))
	}
}

func TestChatService_RepliesSkipDisconnectedUsers(t *testing.T) {
	service, _ := newTestService(t, nil)

	alice := domain.NewUser("alice")
	// No bound sink at all: every reply path must be a silent skip.
	service.Dispatch(context.Background(), alice, "/list")
	service.Dispatch(context.Background(), alice, "/join lobby")
	service.Dispatch(context.Background(), alice, "hello")
}

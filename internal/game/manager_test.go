package game

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/scythe504/partybox-server/internal"
	perrors "github.com/scythe504/partybox-server/internal/errors"
	"github.com/scythe504/partybox-server/internal/mocks"
	"github.com/scythe504/partybox-server/internal/moderation"
	"github.com/scythe504/partybox-server/internal/ratelimit"
	"github.com/scythe504/partybox-server/internal/rules"
	"github.com/scythe504/partybox-server/internal/rules/alibi"
	"github.com/scythe504/partybox-server/internal/rules/trivia"
)

// fakeTransport records everything the manager sends.
type fakeTransport struct {
	mu      sync.Mutex
	direct  map[string][]internal.Message[any]
	rooms   map[string][]internal.Message[any]
	members map[string]map[string]bool
	closed  []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		direct:  make(map[string][]internal.Message[any]),
		rooms:   make(map[string][]internal.Message[any]),
		members: make(map[string]map[string]bool),
	}
}

func (f *fakeTransport) Send(transportID string, msg internal.Message[any]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct[transportID] = append(f.direct[transportID], msg)
}

func (f *fakeTransport) Broadcast(code string, msg internal.Message[any]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[code] = append(f.rooms[code], msg)
}

func (f *fakeTransport) Subscribe(code, transportID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[code] == nil {
		f.members[code] = make(map[string]bool)
	}
	f.members[code][transportID] = true
}

func (f *fakeTransport) Unsubscribe(code, transportID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[code], transportID)
}

func (f *fakeTransport) CloseRoom(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, code)
	f.closed = append(f.closed, code)
}

func (f *fakeTransport) received(transportID, typ string) []internal.Message[any] {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []internal.Message[any]
	for _, msg := range f.direct[transportID] {
		if msg.Type == typ {
			out = append(out, msg)
		}
	}
	return out
}

func (f *fakeTransport) broadcasts(code, typ string) []internal.Message[any] {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []internal.Message[any]
	for _, msg := range f.rooms[code] {
		if msg.Type == typ {
			out = append(out, msg)
		}
	}
	return out
}

func (f *fakeTransport) member(code, transportID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[code][transportID]
}

var testBank = []trivia.Question{
	{Prompt: "2 + 2?", Choices: []string{"4", "5", "22"}, Answer: 0},
	{Prompt: "Largest planet?", Choices: []string{"Jupiter", "Mars"}, Answer: 0},
}

type fixture struct {
	m     *Manager
	out   *fakeTransport
	clock *clockwork.FakeClock
}

func newFixture(t *testing.T, edit ...func(o *Options)) *fixture {
	t.Helper()
	registry := rules.NewRegistry(alibi.Key)
	require.NoError(t, registry.Register(alibi.New(), trivia.NewWithBank(testBank)))
	mod, err := moderation.Default('*')
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	opts := Options{
		Clock:         clock,
		Moderator:     mod,
		IdleTimeout:   10 * time.Minute,
		NameReconnect: true,
	}
	for _, e := range edit {
		e(&opts)
	}
	out := newFakeTransport()
	m := NewManager(registry, out, opts)
	t.Cleanup(m.Shutdown)
	return &fixture{m: m, out: out, clock: clock}
}

func (f *fixture) snapshot(t *testing.T, code string) internal.Snapshot {
	t.Helper()
	snap, err := f.m.Snapshot(code)
	require.NoError(t, err)
	return snap
}

func scores(snap internal.Snapshot) map[string]int {
	out := make(map[string]int, len(snap.Players))
	for _, p := range snap.Players {
		out[p.ID] = p.Score
	}
	return out
}

func answer(choice int) map[string]any {
	return map[string]any{"choiceIndex": choice}
}

func TestManager_CreateRoom(t *testing.T) {
	req := require.New(t)

	// Given a manager
	f := newFixture(t)

	// When a host creates a room with an unknown key
	code, err := f.m.CreateRoom("host", "nope")

	// Then the default rule-set is used and the host is told the code
	req.NoError(err)
	req.Len(code, internal.RoomCodeLength)
	snap := f.snapshot(t, code)
	req.Equal(alibi.Key, snap.GameKey)
	req.Equal(internal.PhaseLobby, snap.Phase)
	req.Equal("host", snap.HostID)
	req.Nil(snap.PhaseDeadline)
	req.Equal(45000.0, snap.Settings["alibiMs"])
	req.Len(f.out.received("host", internal.EventRoomCreated), 1)
	req.True(f.out.member(code, "host"))
	req.NotEmpty(f.out.broadcasts(code, internal.EventRoomState))
	req.Equal(1, f.m.Count())
}

func TestManager_QuizScenario_FasterPlayerScoresMore(t *testing.T) {
	req := require.New(t)

	// Given a quiz room with two questions and two players
	f := newFixture(t)
	code, err := f.m.CreateRoom("host", trivia.Key)
	req.NoError(err)
	req.NoError(f.m.UpdateSettings(code, "host", map[string]any{"questionCount": 2}))
	ada := f.m.AddPlayer(code, "t-ada", "Ada", "")
	bob := f.m.AddPlayer(code, "t-bob", "Bob", "")
	req.True(ada.Accepted)
	req.True(bob.Accepted)

	// When the game starts
	req.NoError(f.m.StartGame(code, "host"))

	// Then the first question is live with a deadline
	snap := f.snapshot(t, code)
	req.Equal(trivia.PhaseQuestion, snap.Phase)
	req.NotNil(snap.PhaseDeadline)

	// When both answer correctly at different speeds
	f.clock.Advance(time.Second)
	req.NoError(f.m.DispatchEvent(code, "t-ada", trivia.EventAnswer, answer(0)))
	f.clock.Advance(4 * time.Second)
	req.NoError(f.m.DispatchEvent(code, "t-bob", trivia.EventAnswer, answer(0)))

	// Then reveal starts right away and the faster player is ahead
	snap = f.snapshot(t, code)
	req.Equal(trivia.PhaseReveal, snap.Phase)
	got := scores(snap)
	req.Greater(got[ada.Player.ID], got[bob.Player.ID])
	req.Equal(trivia.Points(time.Second, 15*time.Second), got[ada.Player.ID])
	req.Equal(trivia.Points(5*time.Second, 15*time.Second), got[bob.Player.ID])
}

func TestManager_QuizDeadlineAdvances(t *testing.T) {
	req := require.New(t)

	// Given a running quiz where nobody answers
	f := newFixture(t)
	code, err := f.m.CreateRoom("host", trivia.Key)
	req.NoError(err)
	f.m.AddPlayer(code, "t1", "Ada", "")
	req.NoError(f.m.StartGame(code, "t1"))

	// When the question time runs out
	f.clock.Advance(15 * time.Second)

	// Then the room moves to reveal with no points awarded
	req.Eventually(func() bool {
		snap, err := f.m.Snapshot(code)
		return err == nil && snap.Phase == trivia.PhaseReveal
	}, time.Second, 5*time.Millisecond)
	snap := f.snapshot(t, code)
	req.Equal(0, snap.Players[0].Score)
}

func TestManager_AlibiBriefIsPrivate(t *testing.T) {
	req := require.New(t)

	// Given an alibi room with three players
	f := newFixture(t)
	code, err := f.m.CreateRoom("host", alibi.Key)
	req.NoError(err)
	tids := []string{"t1", "t2", "t3"}
	for i, tid := range tids {
		req.True(f.m.AddPlayer(code, tid, []string{"Ada", "Bob", "Cy"}[i], "").Accepted)
	}

	// When the VIP starts and skips the tutorial
	req.NoError(f.m.StartGame(code, "t1"))
	req.NoError(f.m.DispatchEvent(code, "t1", alibi.EventSkipTutorial, nil))

	// Then exactly one player received the brief
	briefed := 0
	for _, tid := range tids {
		briefed += len(f.out.received(tid, alibi.EventBrief))
	}
	req.Equal(1, briefed)
	req.Empty(f.out.received("host", alibi.EventBrief))

	// And the public view carries no crime details
	snap := f.snapshot(t, code)
	view, ok := snap.Game.(alibi.View)
	req.True(ok)
	req.Equal(alibi.PhaseBrief, view.Phase)
	req.Nil(view.Crime)
	req.Empty(view.CriminalID)
}

func TestManager_AddPlayer(t *testing.T) {
	t.Run("host cannot join as a player", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		code, _ := f.m.CreateRoom("host", trivia.Key)

		res := f.m.AddPlayer(code, "host", "Sneaky", "")

		req.False(res.Accepted)
		req.ErrorIs(res.Err, perrors.ErrHostAsPlayer)
		req.Equal("Host cannot join as a player", res.Reason)
		req.Len(f.out.received("host", internal.EventJoinFailed), 1)
	})

	t.Run("unknown room", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		res := f.m.AddPlayer("ZZZZ", "t1", "Ada", "")

		req.False(res.Accepted)
		req.Equal("Room not found", res.Reason)
		req.True(IsJoinFailure(res.Err))
		req.Len(f.out.received("t1", internal.EventJoinFailed), 1)
	})

	t.Run("first player becomes VIP and names are cleaned", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		code, _ := f.m.CreateRoom("host", trivia.Key)

		first := f.m.AddPlayer(code, "t1", "   ", "")
		second := f.m.AddPlayer(code, "t2", "Bob", "")

		snap := f.snapshot(t, code)
		req.Equal(first.Player.ID, snap.VIPID)
		req.Equal(internal.DefaultPlayer, first.Player.Name)
		req.NotEqual(first.Player.ID, second.Player.ID)
		req.NotEmpty(first.Player.ReconnectToken)
		req.Len(f.out.received("t1", internal.EventPlayerJoined), 1)
		req.True(f.out.member(code, "t2"))
	})

	t.Run("full room", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		code, _ := f.m.CreateRoom("host", trivia.Key)
		for i := 0; i < 8; i++ {
			req.True(f.m.AddPlayer(code, "t"+string(rune('a'+i)), "P", "").Accepted)
		}

		res := f.m.AddPlayer(code, "late", "Late", "")

		req.False(res.Accepted)
		req.Equal("Room is full", res.Reason)
	})

	t.Run("locked room accepts reconnects only", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		code, _ := f.m.CreateRoom("host", trivia.Key)
		ada := f.m.AddPlayer(code, "t1", "Ada", "")
		f.m.Disconnect("t1")
		req.NoError(f.m.SetLocked(code, "host", true))

		stranger := f.m.AddPlayer(code, "t2", "Eve", "")
		back := f.m.AddPlayer(code, "t3", "Ada", ada.Player.ReconnectToken)

		req.False(stranger.Accepted)
		req.Equal("Room is locked", stranger.Reason)
		req.True(back.Accepted)
		req.True(back.Reconnected)
		req.True(f.snapshot(t, code).Locked)
	})
}

func TestManager_ReconnectKeepsIdentity(t *testing.T) {
	req := require.New(t)

	// Given a VIP with points who drops
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	ada := f.m.AddPlayer(code, "t1", "Ada", "")
	f.m.AddPlayer(code, "t2", "Bob", "")
	s := f.m.session(code)
	s.exec(func() { s.room.PlayerByID(ada.Player.ID).Score = 700 })
	f.m.Disconnect("t1")
	req.False(f.snapshot(t, code).Players[0].Online)

	// When they come back on a new connection with their token
	back := f.m.AddPlayer(code, "t1-new", "Whoever", ada.Player.ReconnectToken)

	// Then the same identity, score and VIP status are restored
	req.True(back.Accepted)
	req.True(back.Reconnected)
	req.Equal(ada.Player.ID, back.Player.ID)
	req.Equal("Ada", back.Player.Name)
	snap := f.snapshot(t, code)
	req.Len(snap.Players, 2)
	req.Equal(ada.Player.ID, snap.VIPID)
	req.True(snap.Players[0].Online)
	req.Equal(700, snap.Players[0].Score)
	req.True(f.out.member(code, "t1-new"))
	req.False(f.out.member(code, "t1"))
	req.NotEqual(ada.Player.ReconnectToken, back.Player.ReconnectToken)
}

func TestManager_ReconnectTokenIsSingleUse(t *testing.T) {
	req := require.New(t)

	// Given a player who reconnected once with their token
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	ada := f.m.AddPlayer(code, "t1", "Ada", "")
	f.m.Disconnect("t1")
	back := f.m.AddPlayer(code, "t2", "Ada", ada.Player.ReconnectToken)
	req.True(back.Reconnected)
	f.m.Disconnect("t2")

	// When someone replays the first token
	replay := f.m.AddPlayer(code, "t3", "Eve", ada.Player.ReconnectToken)

	// Then a new identity is created and the seat stays offline
	req.True(replay.Accepted)
	req.False(replay.Reconnected)
	req.NotEqual(ada.Player.ID, replay.Player.ID)
	snap := f.snapshot(t, code)
	req.Len(snap.Players, 2)
	req.False(snap.Players[0].Online)

	// When the latest token is used
	again := f.m.AddPlayer(code, "t4", "Ada", back.Player.ReconnectToken)

	// Then the seat is reclaimed
	req.True(again.Reconnected)
	req.Equal(ada.Player.ID, again.Player.ID)
}

func TestManager_TokenTakeoverKicksOldConnection(t *testing.T) {
	req := require.New(t)

	// Given a player who is still online
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	ada := f.m.AddPlayer(code, "t1", "Ada", "")

	// When their token arrives on another connection
	back := f.m.AddPlayer(code, "t2", "Ada", ada.Player.ReconnectToken)

	// Then the old connection is told it lost the seat
	req.True(back.Reconnected)
	req.Equal(ada.Player.ID, back.Player.ID)
	req.Len(f.out.received("t1", internal.EventPlayerKicked), 1)
	req.False(f.out.member(code, "t1"))
	req.True(f.out.member(code, "t2"))
	snap := f.snapshot(t, code)
	req.Len(snap.Players, 1)
	req.True(snap.Players[0].Online)
}

func TestManager_NameReconnect(t *testing.T) {
	t.Run("unique offline name reattaches", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		code, _ := f.m.CreateRoom("host", trivia.Key)
		ada := f.m.AddPlayer(code, "t1", "Ada", "")
		f.m.Disconnect("t1")

		back := f.m.AddPlayer(code, "t2", "ADA", "")

		req.True(back.Reconnected)
		req.Equal(ada.Player.ID, back.Player.ID)
		req.Len(f.snapshot(t, code).Players, 1)
	})

	t.Run("ambiguous name creates a new player", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		code, _ := f.m.CreateRoom("host", trivia.Key)
		f.m.AddPlayer(code, "t1", "Sam", "")
		f.m.AddPlayer(code, "t2", "Sam", "")
		f.m.Disconnect("t1")
		f.m.Disconnect("t2")

		res := f.m.AddPlayer(code, "t3", "Sam", "")

		req.True(res.Accepted)
		req.False(res.Reconnected)
		req.Len(f.snapshot(t, code).Players, 3)
	})

	t.Run("disabled", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, func(o *Options) { o.NameReconnect = false })
		code, _ := f.m.CreateRoom("host", trivia.Key)
		f.m.AddPlayer(code, "t1", "Ada", "")
		f.m.Disconnect("t1")

		res := f.m.AddPlayer(code, "t2", "Ada", "")

		req.False(res.Reconnected)
		req.Len(f.snapshot(t, code).Players, 2)
	})
}

func TestManager_AuthorityGating(t *testing.T) {
	req := require.New(t)

	// Given a lobby with a VIP and a regular player
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	f.m.AddPlayer(code, "t1", "Ada", "")
	f.m.AddPlayer(code, "t2", "Bob", "")
	before := f.snapshot(t, code)

	// When players try host only or VIP only actions
	errStart := f.m.StartGame(code, "t2")
	errSettings := f.m.UpdateSettings(code, "t1", map[string]any{"questionCount": 9})
	errLock := f.m.DispatchEvent(code, "t1", internal.GameLockRoom, map[string]any{"on": true})
	errKick := f.m.KickPlayer(code, "t2", before.Players[0].ID)

	// Then nothing changes
	req.ErrorIs(errStart, perrors.ErrNotAuthorized)
	req.ErrorIs(errSettings, perrors.ErrNotAuthorized)
	req.ErrorIs(errLock, perrors.ErrNotAuthorized)
	req.ErrorIs(errKick, perrors.ErrNotAuthorized)
	after := f.snapshot(t, code)
	req.Equal(internal.PhaseLobby, after.Phase)
	req.Equal(before.Settings, after.Settings)
	req.False(after.Locked)
	req.Len(after.Players, 2)
}

func TestManager_SettingsOnlyInLobby(t *testing.T) {
	req := require.New(t)

	// Given a host editing settings
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	f.m.AddPlayer(code, "t1", "Ada", "")

	// When the patch is nested, out of range and touches a locked key
	err := f.m.DispatchEvent(code, "host", internal.GameUpdateSettings, map[string]any{
		"settings": map[string]any{"questionMs": 999999, "revealMs": 3000},
	})

	// Then it is clamped and the locked key is kept
	req.NoError(err)
	snap := f.snapshot(t, code)
	req.Equal(60000.0, snap.Settings["questionMs"])
	req.Equal(5000.0, snap.Settings["revealMs"])

	// When the game is running
	req.NoError(f.m.StartGame(code, "host"))
	err = f.m.UpdateSettings(code, "host", map[string]any{"questionMs": 5000})

	// Then settings are frozen
	req.ErrorIs(err, perrors.ErrNotInLobby)
	req.Equal(60000.0, f.snapshot(t, code).Settings["questionMs"])
}

func TestManager_StartNeedsPlayers(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", trivia.Key)

	err := f.m.StartGame(code, "host")

	req.ErrorIs(err, perrors.ErrNotEnoughPlayers)
	req.Equal(internal.PhaseLobby, f.snapshot(t, code).Phase)
}

func TestManager_KickPlayer(t *testing.T) {
	req := require.New(t)

	// Given three players where t1 is VIP
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	ada := f.m.AddPlayer(code, "t1", "Ada", "")
	bob := f.m.AddPlayer(code, "t2", "Bob", "")
	f.m.AddPlayer(code, "t3", "Cy", "")

	// When the VIP tries to kick themselves
	req.ErrorIs(f.m.KickPlayer(code, "t1", ada.Player.ID), perrors.ErrNotAuthorized)

	// When the host kicks the VIP
	req.NoError(f.m.KickPlayer(code, "host", ada.Player.ID))

	// Then the VIP moves to the next online player and the kicked one is told
	snap := f.snapshot(t, code)
	req.Len(snap.Players, 2)
	req.Equal(bob.Player.ID, snap.VIPID)
	req.Len(f.out.received("t1", internal.EventPlayerKicked), 1)
	req.False(f.out.member(code, "t1"))

	// When the new VIP kicks through a game event
	req.NoError(f.m.DispatchEvent(code, "t2", internal.GameKick, map[string]any{"playerId": snap.Players[1].ID}))

	// Then only the VIP is left
	req.Len(f.snapshot(t, code).Players, 1)
	req.ErrorIs(f.m.KickPlayer(code, "host", "missing"), perrors.ErrPlayerNotFound)
}

func TestManager_DisconnectMidRound(t *testing.T) {
	req := require.New(t)

	// Given a quiz question with three players and one answer in
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	f.m.AddPlayer(code, "t1", "Ada", "")
	f.m.AddPlayer(code, "t2", "Bob", "")
	f.m.AddPlayer(code, "t3", "Cy", "")
	req.NoError(f.m.StartGame(code, "host"))
	req.NoError(f.m.DispatchEvent(code, "t1", trivia.EventAnswer, answer(0)))

	// When a player who has not answered drops
	f.m.Disconnect("t3")

	// Then the phase waits for the remaining online player
	snap := f.snapshot(t, code)
	req.Equal(trivia.PhaseQuestion, snap.Phase)
	req.Len(snap.Players, 3)
	req.False(snap.Players[2].Online)

	// When the other player who has not answered drops too
	f.m.Disconnect("t2")

	// Then everyone online has answered and the reveal follows
	req.Equal(trivia.PhaseReveal, f.snapshot(t, code).Phase)
}

func TestManager_HostDisconnectEndsRoom(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	f.m.AddPlayer(code, "t1", "Ada", "")
	req.NoError(f.m.StartGame(code, "host"))

	f.m.Disconnect("host")

	req.Equal(0, f.m.Count())
	ended := f.out.broadcasts(code, internal.EventRoomEnded)
	req.Len(ended, 1)
	req.Equal(ReasonHostLeft, ended[0].Data.(internal.RoomEndedData).Reason)
	req.Contains(f.out.closed, code)
	_, err := f.m.Snapshot(code)
	req.ErrorIs(err, perrors.ErrRoomNotFound)
	req.ErrorIs(f.m.StartGame(code, "host"), perrors.ErrRoomNotFound)
}

func TestManager_ReapIdle(t *testing.T) {
	req := require.New(t)

	// Given a room whose only player left while the host stays
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	other, _ := f.m.CreateRoom("host2", trivia.Key)
	f.m.AddPlayer(code, "t1", "Ada", "")
	f.m.AddPlayer(other, "t2", "Bob", "")
	f.m.Disconnect("t1")

	// When the sweep runs before the idle threshold
	req.Equal(0, f.m.ReapIdle(f.clock.Now().Add(time.Minute)))

	// Then the room survives
	req.True(f.m.Exists(code))

	// When the threshold passes
	f.clock.Advance(10 * time.Minute)
	reaped := f.m.ReapIdle(f.clock.Now())

	// Then only the empty room is closed
	req.Equal(1, reaped)
	req.False(f.m.Exists(code))
	req.True(f.m.Exists(other))
	ended := f.out.broadcasts(code, internal.EventRoomEnded)
	req.Len(ended, 1)
	req.Equal(ReasonIdle, ended[0].Data.(internal.RoomEndedData).Reason)
}

func TestManager_RateLimitedEvents(t *testing.T) {
	req := require.New(t)

	// Given a limiter allowing two answers per window
	f := newFixture(t)
	f.m.opts.Limiter = ratelimit.New(f.clock, 2, 10*time.Second, trivia.EventAnswer)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	f.m.AddPlayer(code, "t1", "Ada", "")

	// When three answers arrive in one window
	req.NoError(f.m.DispatchEvent(code, "t1", trivia.EventAnswer, answer(0)))
	req.NoError(f.m.DispatchEvent(code, "t1", trivia.EventAnswer, answer(0)))
	err := f.m.DispatchEvent(code, "t1", trivia.EventAnswer, answer(0))

	// Then the third is dropped until the next window
	req.ErrorIs(err, perrors.ErrRateLimited)
	req.NoError(f.m.DispatchEvent(code, "host", internal.GameLockRoom, map[string]any{"on": true}))
	f.clock.Advance(10 * time.Second)
	req.NoError(f.m.DispatchEvent(code, "t1", trivia.EventAnswer, answer(0)))
}

func TestManager_RateLimitedStartRequests(t *testing.T) {
	req := require.New(t)

	// Given a limiter allowing one start request per window
	f := newFixture(t)
	f.m.opts.Limiter = ratelimit.New(f.clock, 1, 10*time.Second, internal.EventStartGame)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	f.m.AddPlayer(code, "t1", "Ada", "")
	f.m.AddPlayer(code, "t2", "Bob", "")

	// When a non-VIP spams the start request
	first := f.m.StartGame(code, "t2")
	second := f.m.StartGame(code, "t2")

	// Then only the first reaches the room
	req.ErrorIs(first, perrors.ErrNotAuthorized)
	req.ErrorIs(second, perrors.ErrRateLimited)
	req.Equal(internal.PhaseLobby, f.snapshot(t, code).Phase)

	// Then other senders keep their own budget and windows reopen
	req.NoError(f.m.StartGame(code, "t1"))
	f.clock.Advance(10 * time.Second)
	req.ErrorIs(f.m.StartGame(code, "t2"), perrors.ErrNotAuthorized)
}

func TestManager_RestartFlow(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockMatchRecorder(ctrl)

	// Given a one question quiz with an archive recorder
	var results []internal.MatchResult
	recorder.EXPECT().Record(gomock.Any()).DoAndReturn(func(r internal.MatchResult) bool {
		results = append(results, r)
		return true
	}).Times(2)
	f := newFixture(t, func(o *Options) { o.Recorder = recorder })
	code, _ := f.m.CreateRoom("host", trivia.Key)
	req.NoError(f.m.UpdateSettings(code, "host", map[string]any{"questionCount": 1}))
	ada := f.m.AddPlayer(code, "t1", "Ada", "")

	play := func() {
		req.NoError(f.m.StartGame(code, "t1"))
		req.NoError(f.m.DispatchEvent(code, "t1", trivia.EventAnswer, answer(0)))
		req.Equal(trivia.PhaseReveal, f.snapshot(t, code).Phase)
		req.NoError(f.m.DispatchEvent(code, "host", trivia.EventNext, nil))
		req.Equal(internal.PhaseDone, f.snapshot(t, code).Phase)
	}

	// When the match finishes
	play()

	// Then the result is recorded once
	req.Len(results, 1)
	req.Equal(trivia.Key, results[0].GameKey)
	req.Equal(code, results[0].RoomCode)
	req.Len(results[0].Players, 1)
	req.Equal(1, results[0].Players[0].Position)
	req.Equal(ada.Player.ID, results[0].Players[0].PlayerID)

	// When a player asks for a restart
	req.ErrorIs(f.m.Restart(code, "t1", true), perrors.ErrNotAuthorized)

	// When the host restarts with the same roster
	req.NoError(f.m.DispatchEvent(code, "host", internal.GameRestartSame, nil))

	// Then the room is back in lobby with the player kept
	snap := f.snapshot(t, code)
	req.Equal(internal.PhaseLobby, snap.Phase)
	req.Len(snap.Players, 1)
	req.Equal(ada.Player.ID, snap.VIPID)
	req.ErrorIs(f.m.Restart(code, "host", true), perrors.ErrGameNotFinished)

	// When they play again and restart with a new roster
	play()
	req.Len(results, 2)
	req.Equal(results[1].Players[0].Score, f.snapshot(t, code).Players[0].Score)
	req.NoError(f.m.Restart(code, "host", false))

	// Then everyone is removed and told
	snap = f.snapshot(t, code)
	req.Empty(snap.Players)
	req.Empty(snap.VIPID)
	req.Len(f.out.received("t1", internal.EventPlayerKicked), 1)
	req.False(f.out.member(code, "t1"))
}

func TestManager_SwitchGame(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", alibi.Key)
	f.m.AddPlayer(code, "t1", "Ada", "")

	req.ErrorIs(f.m.SwitchGame(code, "t1", trivia.Key), perrors.ErrNotAuthorized)
	req.NoError(f.m.SwitchGame(code, "host", trivia.Key))

	snap := f.snapshot(t, code)
	req.Equal(trivia.Key, snap.GameKey)
	req.Equal("Quick Trivia", snap.GameName)
	req.Equal(5.0, snap.Settings["questionCount"])
	req.NotContains(snap.Settings, "alibiMs")
	req.Len(snap.Players, 1)
}

func TestManager_ReturnToMenu(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", trivia.Key)
	f.m.AddPlayer(code, "t1", "Ada", "")

	req.ErrorIs(f.m.ReturnToMenu(code, "t1"), perrors.ErrNotAuthorized)
	req.NoError(f.m.ReturnToMenu(code, "host"))

	req.Equal(0, f.m.Count())
	req.Len(f.out.received("host", internal.EventReturnedToMenu), 1)
	ended := f.out.broadcasts(code, internal.EventRoomEnded)
	req.Len(ended, 1)
	req.Equal(ReasonToMenu, ended[0].Data.(internal.RoomEndedData).Reason)
}

func TestManager_RoomsAndHiddenCodes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	first, _ := f.m.CreateRoom("h1", trivia.Key)
	f.clock.Advance(time.Second)
	second, _ := f.m.CreateRoom("h2", alibi.Key)
	f.m.AddPlayer(second, "t1", "Ada", "")
	req.NoError(f.m.SetHideCode(second, "h2", true))

	rooms := f.m.Rooms()

	req.Len(rooms, 2)
	req.Equal(first, rooms[0].Code)
	req.Empty(rooms[1].Code)
	req.Equal(alibi.Key, rooms[1].GameKey)
	req.Equal(1, rooms[1].Online)
	req.True(f.m.Exists(first))
	req.False(f.m.Exists(second))
	req.True(f.snapshot(t, second).HideCode)
}

func TestSession_CleanPayload(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	code, _ := f.m.CreateRoom("host", alibi.Key)
	s := f.m.session(code)

	var got map[string]any
	s.exec(func() {
		got = s.cleanPayload(map[string]any{
			"text":     "  hi\x00 there  ",
			"long":     strings.Repeat("a", 600),
			"targetId": "  raw  ",
			"choice":   2.0,
		})
	})

	req.Equal("hi there", got["text"])
	req.Len(got["long"], internal.MaxTextLength)
	req.Equal("  raw  ", got["targetId"])
	req.Equal(2.0, got["choice"])
}

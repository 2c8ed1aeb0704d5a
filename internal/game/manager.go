package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/contract"
	perrors "github.com/scythe504/partybox-server/internal/errors"
	"github.com/scythe504/partybox-server/internal/moderation"
	"github.com/scythe504/partybox-server/internal/ratelimit"
	"github.com/scythe504/partybox-server/internal/rules"
	"github.com/scythe504/partybox-server/internal/settings"
	"github.com/scythe504/partybox-server/internal/utils"
)

const (
	codeAttempts = 1000
	inboxSize    = 64

	ReasonHostLeft = "Host disconnected"
	ReasonIdle     = "Room closed due to inactivity"
	ReasonToMenu   = "Returning to menu"
	ReasonShutdown = "Server shutting down"
)

type Options struct {
	Clock         clockwork.Clock
	Moderator     *moderation.Moderator
	Limiter       *ratelimit.Limiter
	Recorder      contract.MatchRecorder
	IdleTimeout   time.Duration
	NameReconnect bool
}

// Manager owns every live room. Each room runs its own loop; the manager
// only guards the code index.
type Manager struct {
	mu       sync.RWMutex
	rooms    map[string]*session
	registry *rules.Registry
	out      contract.Transport
	opts     Options
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewManager(registry *rules.Registry, out contract.Transport, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		rooms:    make(map[string]*session),
		registry: registry,
		out:      out,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *Manager) Registry() *rules.Registry { return m.registry }

// CreateRoom allocates a fresh code, instantiates the rule-set for key
// (falling back to the default for unknown keys) and subscribes the host.
func (m *Manager) CreateRoom(hostID, key string) (string, error) {
	rs, err := m.registry.Resolve(key)
	if err != nil {
		return "", err
	}
	meta := rs.Meta()
	now := m.opts.Clock.Now()

	m.mu.Lock()
	code, ok := utils.UniqueRoomCode(func(c string) bool {
		_, taken := m.rooms[c]
		return taken
	}, codeAttempts)
	if !ok {
		m.mu.Unlock()
		return "", perrors.ErrCodeSpaceExhausted
	}
	room := &internal.Room{
		Code:         code,
		HostID:       hostID,
		GameKey:      meta.Key,
		Settings:     settings.Defaults(meta.DefaultSettings, meta.SettingsSchema),
		State:        rs.NewState(),
		CreatedAt:    now,
		LastActivity: now,
	}
	s := newSession(m, room, rs)
	m.rooms[code] = s
	m.mu.Unlock()

	go s.run()
	s.exec(func() {
		m.out.Subscribe(code, hostID)
		m.out.Send(hostID, internal.Message[any]{
			Type: internal.EventRoomCreated,
			Data: internal.RoomCreatedData{Code: code},
		})
		s.broadcastState()
	})

	log.Info().Str("room", code).Str("game", meta.Key).Str("host", hostID).Msg("[CreateRoom] room created")
	return code, nil
}

func (m *Manager) session(code string) *session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[utils.NormalizeCode(code)]
}

// sessions copies the live sessions so cross-room work never holds the
// index lock while talking to a room loop.
func (m *Manager) sessions() []*session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*session, 0, len(m.rooms))
	for _, s := range m.rooms {
		out = append(out, s)
	}
	return out
}

func (m *Manager) remove(code string, s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[code] == s {
		delete(m.rooms, code)
	}
}

// within runs fn on the room loop for code and returns its error.
func (m *Manager) within(code string, fn func(s *session) error) error {
	s := m.session(code)
	if s == nil {
		return perrors.ErrRoomNotFound
	}
	var err error
	if !s.exec(func() { err = fn(s) }) {
		return perrors.ErrRoomNotFound
	}
	return err
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

func (m *Manager) Snapshot(code string) (internal.Snapshot, error) {
	var snap internal.Snapshot
	err := m.within(code, func(s *session) error {
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// Rooms summarizes every live room for operators, oldest first. Hidden
// codes are blanked.
func (m *Manager) Rooms() []internal.RoomSummary {
	now := m.opts.Clock.Now()
	var out []internal.RoomSummary
	for _, s := range m.sessions() {
		s.exec(func() {
			out = append(out, s.summary(now))
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Exists reports whether code names a live room whose code is not hidden.
func (m *Manager) Exists(code string) bool {
	visible := false
	_ = m.within(code, func(s *session) error {
		visible = !s.room.HideCode
		return nil
	})
	return visible
}

// Shutdown ends every room and stops all room loops.
func (m *Manager) Shutdown() {
	for _, s := range m.sessions() {
		s.exec(func() { s.end(ReasonShutdown) })
	}
	m.cancel()
	log.Info().Msg("[Shutdown] all rooms closed")
}

func reasonFor(err error) string {
	switch err {
	case perrors.ErrRoomNotFound:
		return "Room not found"
	case perrors.ErrRoomFull:
		return "Room is full"
	case perrors.ErrRoomLocked:
		return "Room is locked"
	case perrors.ErrHostAsPlayer:
		return "Host cannot join as a player"
	}
	return fmt.Sprintf("Unable to join: %v", err)
}

package game

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/rules"
	"github.com/scythe504/partybox-server/internal/settings"
)

// =============================================================================
// ROOM LOOP
// =============================================================================

// session serializes every mutation of one room through its inbox. All
// fields are owned by the goroutine running run.
type session struct {
	m      *Manager
	room   *internal.Room
	game   rules.RuleSet
	inbox  chan func()
	ctx    context.Context
	cancel context.CancelFunc
	timer  *phaseTimer
	phase  internal.Phase
	closed bool
}

func newSession(m *Manager, room *internal.Room, rs rules.RuleSet) *session {
	ctx, cancel := context.WithCancel(m.ctx)
	s := &session{
		m:      m,
		room:   room,
		game:   rs,
		inbox:  make(chan func(), inboxSize),
		ctx:    ctx,
		cancel: cancel,
	}
	s.phase = s.State().Phase()
	return s
}

func (s *session) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case job := <-s.inbox:
			s.safely(job)
			if s.closed {
				s.cancel()
				return
			}
		}
	}
}

// safely runs job and keeps the loop alive if it panics.
func (s *session) safely(job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("room", s.room.Code).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("[RoomLoop] recovered from panic")
		}
	}()
	job()
}

// exec runs job on the room loop and waits for it. It reports false when
// the room closed before the job ran.
func (s *session) exec(job func()) bool {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		job()
	}
	select {
	case s.inbox <- wrapped:
	case <-s.ctx.Done():
		return false
	}
	select {
	case <-done:
		return true
	case <-s.ctx.Done():
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

// post queues job without waiting. Used by timers.
func (s *session) post(job func()) {
	select {
	case s.inbox <- job:
	case <-s.ctx.Done():
	}
}

func (s *session) now() time.Time {
	return s.m.opts.Clock.Now()
}

func (s *session) isHost(transportID string) bool {
	return transportID != "" && transportID == s.room.HostID
}

func (s *session) isVIP(transportID string) bool {
	p := s.room.PlayerByTransport(transportID)
	return p != nil && p.ID == s.room.VIPID
}

// afterRules notices phase changes made by the rule-set and archives the
// match the first time the room reaches PhaseDone.
func (s *session) afterRules() {
	phase := s.State().Phase()
	if phase == s.phase {
		return
	}
	prev := s.phase
	s.phase = phase
	log.Info().Str("room", s.room.Code).Str("from", string(prev)).Str("to", string(phase)).Msg("[RoomLoop] phase changed")
	if phase == internal.PhaseDone {
		s.recordMatch()
	}
}

// =============================================================================
// RULE-SET VIEW (rules.Room)
// =============================================================================

func (s *session) Code() string { return s.room.Code }

func (s *session) State() rules.State { return s.room.State.(rules.State) }

func (s *session) Players() []internal.PlayerView { return s.room.PublicPlayers() }

func (s *session) OnlinePlayers() []internal.PlayerView {
	var out []internal.PlayerView
	for _, p := range s.room.Players {
		if p.Online {
			out = append(out, p.ToPublicPlayer(s.room.VIPID))
		}
	}
	return out
}

func (s *session) Player(id string) (internal.PlayerView, bool) {
	p := s.room.PlayerByID(id)
	if p == nil {
		return internal.PlayerView{}, false
	}
	return p.ToPublicPlayer(s.room.VIPID), true
}

func (s *session) VIPID() string { return s.room.VIPID }

func (s *session) Settings() settings.Values { return s.room.Settings.Clone() }

func (s *session) Now() time.Time { return s.now() }

// SendTo pushes a private event to one player's current connection.
// Offline players get nothing; rule-sets re-deliver through PrivateView.
func (s *session) SendTo(playerID, event string, payload any) {
	p := s.room.PlayerByID(playerID)
	if p == nil || !p.Online {
		return
	}
	s.m.out.Send(p.TransportID, internal.Message[any]{Type: event, Data: payload})
}

func (s *session) AddScore(playerID string, points int) {
	if p := s.room.PlayerByID(playerID); p != nil {
		p.Score += points
	}
}

var _ rules.Room = (*session)(nil)

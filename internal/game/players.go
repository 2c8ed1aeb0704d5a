package game

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
	perrors "github.com/scythe504/partybox-server/internal/errors"
	"github.com/scythe504/partybox-server/internal/rules"
	"github.com/scythe504/partybox-server/internal/utils"
)

// JoinResult reports the outcome of AddPlayer.
type JoinResult struct {
	Accepted    bool
	Reason      string
	Err         error
	Player      internal.Player
	Reconnected bool
}

// =============================================================================
// JOIN
// =============================================================================

// AddPlayer seats transportID in room code. Identity is resolved in three
// tiers: reconnect token, then a unique offline player with the same name,
// then a brand new player.
func (m *Manager) AddPlayer(code, transportID, name, token string) JoinResult {
	var res JoinResult
	err := m.within(code, func(s *session) error {
		res = s.join(transportID, name, token)
		return nil
	})
	if err != nil {
		return m.refuse(transportID, err)
	}
	return res
}

func (m *Manager) refuse(transportID string, err error) JoinResult {
	reason := reasonFor(err)
	m.out.Send(transportID, internal.Message[any]{
		Type: internal.EventJoinFailed,
		Data: internal.JoinFailedData{Reason: reason},
	})
	return JoinResult{Reason: reason, Err: err}
}

func (s *session) join(transportID, name, token string) JoinResult {
	room := s.room
	now := s.now()

	if s.isHost(transportID) {
		return s.m.refuse(transportID, perrors.ErrHostAsPlayer)
	}
	if p := room.PlayerByTransport(transportID); p != nil {
		return s.accept(p, true)
	}

	clean := s.m.opts.Moderator.Name(name)

	if p := room.PlayerByToken(token); p != nil {
		return s.reattach(p, transportID)
	}
	if s.m.opts.NameReconnect {
		if matches := room.OfflineByName(clean); len(matches) == 1 {
			return s.reattach(matches[0], transportID)
		}
	}

	if room.Locked {
		return s.m.refuse(transportID, perrors.ErrRoomLocked)
	}
	if room.OnlineCount() >= s.game.Meta().MaxPlayers {
		return s.m.refuse(transportID, perrors.ErrRoomFull)
	}

	p := &internal.Player{
		ID:             utils.GenerateID(),
		TransportID:    transportID,
		Name:           clean,
		Online:         true,
		ReconnectToken: utils.GenerateID(),
		JoinedAt:       now,
		LastSeen:       now,
	}
	room.Players = append(room.Players, p)
	if room.VIPID == "" {
		room.VIPID = p.ID
	}
	room.Touch(now)

	log.Info().Str("room", room.Code).Str("player", p.ID).Str("name", p.Name).Int("players", len(room.Players)).Msg("[AddPlayer] player joined")
	return s.accept(p, false)
}

func (s *session) reattach(p *internal.Player, transportID string) JoinResult {
	now := s.now()
	if p.Online && p.TransportID != transportID {
		log.Info().Str("room", s.room.Code).Str("player", p.ID).Str("conn", p.TransportID).Msg("[AddPlayer] seat taken over, old connection kicked")
		s.evict(p)
	}
	p.Reattach(transportID, now)
	// reconnect tokens are single use
	p.ReconnectToken = utils.GenerateID()
	if s.room.VIPID == "" {
		s.room.VIPID = p.ID
	}
	s.room.Touch(now)

	log.Info().Str("room", s.room.Code).Str("player", p.ID).Msg("[AddPlayer] player reconnected")
	return s.accept(p, true)
}

func (s *session) accept(p *internal.Player, reconnected bool) JoinResult {
	code := s.room.Code
	s.m.out.Subscribe(code, p.TransportID)
	s.m.out.Send(p.TransportID, internal.Message[any]{
		Type: internal.EventPlayerJoined,
		Data: internal.PlayerJoinedData{
			Code:           code,
			PlayerID:       p.ID,
			ReconnectToken: p.ReconnectToken,
			Reconnected:    reconnected,
		},
	})
	if reconnected {
		if pv, ok := s.game.(rules.PrivateViewer); ok {
			if event, payload, ok := pv.PrivateView(s, p.ID); ok {
				s.SendTo(p.ID, event, payload)
			}
		}
	}
	s.broadcastState()
	return JoinResult{Accepted: true, Player: *p, Reconnected: reconnected}
}

// =============================================================================
// KICK & DISCONNECT
// =============================================================================

// KickPlayer removes playerID from the roster. Host or VIP only; the VIP
// cannot kick themselves.
func (m *Manager) KickPlayer(code, requester, playerID string) error {
	return m.within(code, func(s *session) error {
		return s.kick(requester, playerID)
	})
}

func (s *session) kick(requester, playerID string) error {
	room := s.room
	if !s.isHost(requester) && !s.isVIP(requester) {
		return perrors.ErrNotAuthorized
	}
	if self := room.PlayerByTransport(requester); self != nil && self.ID == playerID {
		return perrors.ErrNotAuthorized
	}
	p := room.RemovePlayer(playerID)
	if p == nil {
		return perrors.ErrPlayerNotFound
	}
	s.evict(p)
	if room.VIPID == p.ID {
		room.VIPID = ""
		if next := room.FirstOnline(); next != nil {
			room.VIPID = next.ID
		}
	}
	room.Touch(s.now())

	log.Info().Str("room", room.Code).Str("player", p.ID).Str("vip", room.VIPID).Msg("[KickPlayer] player removed")
	s.game.OnRosterChange(s)
	s.afterRules()
	s.broadcastState()
	return nil
}

// evict tells a removed player's live connection it is out and stops it
// following the room.
func (s *session) evict(p *internal.Player) {
	if !p.Online || p.TransportID == "" {
		return
	}
	s.m.out.Send(p.TransportID, internal.Message[any]{
		Type: internal.EventPlayerKicked,
		Data: internal.PlayerKickedData{Code: s.room.Code},
	})
	s.m.out.Unsubscribe(s.room.Code, p.TransportID)
}

// Disconnect handles a closed connection in every room it belonged to. A
// host leaving ends the room; a player leaving goes offline but keeps
// their seat.
func (m *Manager) Disconnect(transportID string) {
	for _, s := range m.sessions() {
		s.exec(func() { s.disconnect(transportID) })
	}
	if m.opts.Limiter != nil {
		m.opts.Limiter.Forget(transportID)
	}
}

func (s *session) disconnect(transportID string) {
	if s.closed {
		return
	}
	if s.isHost(transportID) {
		s.end(ReasonHostLeft)
		return
	}
	p := s.room.PlayerByTransport(transportID)
	if p == nil {
		return
	}
	now := s.now()
	p.GoOffline(now)
	s.m.out.Unsubscribe(s.room.Code, transportID)
	s.room.Touch(now)

	log.Info().Str("room", s.room.Code).Str("player", p.ID).Int("online", s.room.OnlineCount()).Msg("[Disconnect] player offline")
	s.game.OnRosterChange(s)
	s.afterRules()
	s.broadcastState()
}

// IsJoinFailure reports whether err is one of the user facing join errors.
func IsJoinFailure(err error) bool {
	return errors.Is(err, perrors.ErrRoomNotFound) ||
		errors.Is(err, perrors.ErrRoomFull) ||
		errors.Is(err, perrors.ErrRoomLocked) ||
		errors.Is(err, perrors.ErrHostAsPlayer)
}

package game

import (
	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
	perrors "github.com/scythe504/partybox-server/internal/errors"
	"github.com/scythe504/partybox-server/internal/settings"
)

// =============================================================================
// GAME FLOW - LOBBY & HOST CONTROLS
// =============================================================================

// StartGame starts the rule-set if requester is the host or the VIP and
// enough players are online.
func (m *Manager) StartGame(code, requester string) error {
	if m.opts.Limiter != nil && !m.opts.Limiter.Allow(requester, internal.EventStartGame) {
		log.Debug().Str("room", code).Str("sender", requester).Msg("[StartGame] rate limited")
		return perrors.ErrRateLimited
	}
	return m.within(code, func(s *session) error {
		return s.start(requester)
	})
}

func (s *session) start(requester string) error {
	room := s.room
	if !s.isHost(requester) && !s.isVIP(requester) {
		log.Debug().Str("room", room.Code).Str("sender", requester).Msg("[StartGame] not host or VIP, ignored")
		return perrors.ErrNotAuthorized
	}
	if s.State().Phase() != internal.PhaseLobby {
		return perrors.ErrNotInLobby
	}
	meta := s.game.Meta()
	if online := room.OnlineCount(); online < meta.MinPlayers {
		log.Debug().Str("room", room.Code).Int("online", online).Int("min", meta.MinPlayers).Msg("[StartGame] not enough players")
		return perrors.ErrNotEnoughPlayers
	}

	now := s.now()
	room.ResetScores()
	room.StartedAt = now
	room.Touch(now)

	log.Info().Str("room", room.Code).Str("game", meta.Key).Int("players", room.OnlineCount()).Msg("[StartGame] game starting")
	s.game.OnStart(s)
	s.afterRules()
	s.broadcastState()
	return nil
}

// UpdateSettings applies a host patch to the room settings while in lobby.
func (m *Manager) UpdateSettings(code, requester string, patch map[string]any) error {
	return m.within(code, func(s *session) error {
		return s.updateSettings(requester, patch)
	})
}

func (s *session) updateSettings(requester string, patch map[string]any) error {
	if !s.isHost(requester) {
		return perrors.ErrNotAuthorized
	}
	if s.State().Phase() != internal.PhaseLobby {
		return perrors.ErrNotInLobby
	}
	room := s.room
	room.Settings = settings.Sanitize(patch, room.Settings, s.game.Meta().SettingsSchema)
	room.Touch(s.now())

	log.Info().Str("room", room.Code).Interface("settings", room.Settings).Msg("[UpdateSettings] settings changed")
	s.broadcastState()
	return nil
}

// SwitchGame swaps the room to another rule-set. Unknown keys fall back to
// the default rule-set.
func (m *Manager) SwitchGame(code, requester, key string) error {
	return m.within(code, func(s *session) error {
		return s.switchGame(requester, key)
	})
}

func (s *session) switchGame(requester, key string) error {
	if !s.isHost(requester) {
		return perrors.ErrNotAuthorized
	}
	if s.State().Phase() != internal.PhaseLobby {
		return perrors.ErrNotInLobby
	}
	rs, err := s.m.registry.Resolve(key)
	if err != nil {
		return err
	}
	meta := rs.Meta()
	room := s.room
	if len(room.Players) > meta.MaxPlayers {
		return perrors.ErrRoomFull
	}

	s.game.OnDispose(s)
	s.CancelDeadline()
	s.game = rs
	room.GameKey = meta.Key
	room.Settings = settings.Defaults(meta.DefaultSettings, meta.SettingsSchema)
	room.State = rs.NewState()
	s.phase = s.State().Phase()
	room.Touch(s.now())

	log.Info().Str("room", room.Code).Str("game", meta.Key).Msg("[SwitchGame] rule-set switched")
	s.broadcastState()
	return nil
}

// Restart returns a finished room to lobby. With keepRoster false every
// player is removed and told so.
func (m *Manager) Restart(code, requester string, keepRoster bool) error {
	return m.within(code, func(s *session) error {
		return s.restart(requester, keepRoster)
	})
}

func (s *session) restart(requester string, keepRoster bool) error {
	if !s.isHost(requester) {
		return perrors.ErrNotAuthorized
	}
	if s.State().Phase() != internal.PhaseDone {
		return perrors.ErrGameNotFinished
	}
	room := s.room
	s.game.OnReset(s)

	if keepRoster {
		if next := room.FirstOnline(); next != nil {
			room.VIPID = next.ID
		}
	} else {
		for _, p := range room.Players {
			s.evict(p)
		}
		room.Players = nil
		room.VIPID = ""
	}
	room.Touch(s.now())

	log.Info().Str("room", room.Code).Bool("sameRoster", keepRoster).Int("players", len(room.Players)).Msg("[ResetRoomToLobby] room back in lobby")
	s.afterRules()
	s.broadcastState()
	return nil
}

func (m *Manager) SetLocked(code, requester string, on bool) error {
	return m.within(code, func(s *session) error {
		return s.toggle(requester, func(r *internal.Room) { r.Locked = on })
	})
}

func (m *Manager) SetHideCode(code, requester string, on bool) error {
	return m.within(code, func(s *session) error {
		return s.toggle(requester, func(r *internal.Room) { r.HideCode = on })
	})
}

// ReturnToMenu ends the room on the host's request and acknowledges it.
func (m *Manager) ReturnToMenu(code, requester string) error {
	return m.within(code, func(s *session) error {
		if !s.isHost(requester) {
			return perrors.ErrNotAuthorized
		}
		s.end(ReasonToMenu)
		m.out.Send(requester, internal.Message[any]{
			Type: internal.EventReturnedToMenu,
			Data: internal.RoomCodeData{Code: s.room.Code},
		})
		return nil
	})
}

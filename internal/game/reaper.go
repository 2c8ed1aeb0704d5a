package game

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
)

// EndRoom closes code for everyone in it with the given reason.
func (m *Manager) EndRoom(code, reason string) error {
	return m.within(code, func(s *session) error {
		s.end(reason)
		return nil
	})
}

// ReapIdle ends every room with nobody online that has not been touched
// for the idle timeout. It returns how many rooms were ended.
func (m *Manager) ReapIdle(now time.Time) int {
	reaped := 0
	for _, s := range m.sessions() {
		s.exec(func() {
			if s.closed || s.room.OnlineCount() > 0 {
				return
			}
			if now.Sub(s.room.LastActivity) < m.opts.IdleTimeout {
				return
			}
			s.end(ReasonIdle)
			reaped++
		})
	}
	if reaped > 0 {
		log.Info().Int("reaped", reaped).Int("remaining", m.Count()).Msg("[ReapIdle] idle rooms closed")
	}
	return reaped
}

// end tears the room down. The loop stops after the current job.
func (s *session) end(reason string) {
	if s.closed {
		return
	}
	code := s.room.Code
	s.CancelDeadline()
	s.game.OnDispose(s)

	s.m.out.Broadcast(code, internal.Message[any]{
		Type: internal.EventRoomEnded,
		Data: internal.RoomEndedData{Code: code, Reason: reason},
	})
	s.m.out.CloseRoom(code)
	s.m.remove(code, s)
	s.closed = true

	log.Info().Str("room", code).Str("reason", reason).Int("players", len(s.room.Players)).Msg("[EndRoom] room ended")
}

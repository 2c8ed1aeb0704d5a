package game

import (
	"time"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/rules"
)

// snapshot projects the room into its broadcast-safe form. It never
// mutates the room.
func (s *session) snapshot() internal.Snapshot {
	room := s.room
	meta := s.game.Meta()
	return internal.Snapshot{
		Code:           room.Code,
		GameKey:        meta.Key,
		GameName:       meta.Name,
		HostID:         room.HostID,
		VIPID:          room.VIPID,
		Phase:          s.State().Phase(),
		PhaseDeadline:  rules.DeadlineMillis(s),
		Locked:         room.Locked,
		HideCode:       room.HideCode,
		MinPlayers:     meta.MinPlayers,
		MaxPlayers:     meta.MaxPlayers,
		Players:        room.PublicPlayers(),
		Settings:       room.Settings.Clone(),
		SettingsSchema: meta.SettingsSchema,
		Game:           s.game.PublicView(s),
	}
}

func (s *session) broadcastState() {
	if s.closed {
		return
	}
	s.m.out.Broadcast(s.room.Code, internal.Message[any]{
		Type: internal.EventRoomState,
		Data: s.snapshot(),
	})
}

func (s *session) summary(now time.Time) internal.RoomSummary {
	room := s.room
	code := room.Code
	if room.HideCode {
		code = ""
	}
	return internal.RoomSummary{
		Code:        code,
		GameKey:     room.GameKey,
		Phase:       s.State().Phase(),
		Players:     len(room.Players),
		Online:      room.OnlineCount(),
		MaxPlayers:  s.game.Meta().MaxPlayers,
		Locked:      room.Locked,
		CreatedAt:   room.CreatedAt,
		IdleSeconds: int64(now.Sub(room.LastActivity) / time.Second),
	}
}

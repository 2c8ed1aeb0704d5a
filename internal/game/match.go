package game

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/utils"
)

// recordMatch hands the final standings to the recorder. Tied scores share
// a position.
func (s *session) recordMatch() {
	if s.m.opts.Recorder == nil {
		return
	}
	room := s.room

	players := make([]internal.MatchPlayer, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, internal.MatchPlayer{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	sort.SliceStable(players, func(i, j int) bool { return players[i].Score > players[j].Score })
	for i := range players {
		players[i].Position = i + 1
		if i > 0 && players[i].Score == players[i-1].Score {
			players[i].Position = players[i-1].Position
		}
	}

	result := internal.MatchResult{
		ID:         utils.GenerateID(),
		RoomCode:   room.Code,
		GameKey:    room.GameKey,
		StartedAt:  room.StartedAt,
		FinishedAt: s.now(),
		Players:    players,
	}
	if !s.m.opts.Recorder.Record(result) {
		log.Warn().Str("room", room.Code).Str("match", result.ID).Msg("[RecordMatch] archive queue full, result dropped")
		return
	}
	log.Info().Str("room", room.Code).Str("match", result.ID).Int("players", len(players)).Msg("[RecordMatch] match queued for archive")
}

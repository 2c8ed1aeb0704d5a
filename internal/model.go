package internal

import (
	"time"
)

const (
	RoomCodeLength   = 4
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	MaxNameLength    = 24
	MaxTextLength    = 500
	DefaultPlayer    = "Player"
)

// Phase is the rule-set owned stage of a room. Every rule-set starts in
// PhaseLobby and finishes in PhaseDone; the stages in between are its own.
type Phase string

const (
	PhaseLobby Phase = "lobby"
	PhaseDone  Phase = "done"
)

type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}

// MatchResult is what gets archived when a room reaches PhaseDone.
type MatchResult struct {
	ID         string        `json:"id"`
	RoomCode   string        `json:"roomCode"`
	GameKey    string        `json:"gameKey"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Players    []MatchPlayer `json:"players"`
}

type MatchPlayer struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Position int    `json:"position"`
}

// RoomSummary is the lobby-browser view of a room.
type RoomSummary struct {
	Code        string    `json:"code"`
	GameKey     string    `json:"gameKey"`
	Phase       Phase     `json:"phase"`
	Players     int       `json:"players"`
	Online      int       `json:"online"`
	MaxPlayers  int       `json:"maxPlayers"`
	Locked      bool      `json:"locked"`
	CreatedAt   time.Time `json:"createdAt"`
	IdleSeconds int64     `json:"idleSeconds"`
}

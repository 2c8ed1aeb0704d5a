package internal

import "github.com/scythe504/partybox-server/internal/settings"

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Inbound events.
const (
	EventCreateRoom   = "host:createRoom"
	EventStartGame    = "host:startGame"
	EventReturnToMenu = "host:returnToMenu"
	EventSwitchGame   = "host:switchGame"
	EventKick         = "host:kick"
	EventLockRoom     = "host:lockRoom"
	EventHideCode     = "host:hideCode"
	EventJoin         = "player:join"
	EventGame         = "game:event"
	EventListGames    = "games:list"
)

// Cross-cutting game:event types handled by the orchestrator before the
// rule-set sees anything.
const (
	GameUpdateSettings = "host:updateSettings"
	GameKick           = "host:kick"
	GameLockRoom       = "host:lockRoom"
	GameHideCode       = "host:hideCode"
	GameRestartSame    = "host:restartSame"
	GameRestartNew     = "host:restartNew"
	GameVIPStart       = "vip:start"
)

// Outbound events.
const (
	EventRoomCreated    = "host:roomCreated"
	EventReturnedToMenu = "host:returnedToMenu"
	EventPlayerJoined   = "player:joined"
	EventJoinFailed     = "player:joinFailed"
	EventPlayerKicked   = "player:kicked"
	EventRoomState      = "room:state"
	EventRoomEnded      = "room:ended"
	EventGamesList      = "games:list:resp"
	EventError          = "error"
)

type CreateRoomData struct {
	RuleSetKey string `json:"ruleSetKey"`
	GameKey    string `json:"gameKey"`
}

type RoomCodeData struct {
	Code string `json:"code" validate:"required"`
}

type SwitchGameData struct {
	Code       string `json:"code" validate:"required"`
	RuleSetKey string `json:"ruleSetKey"`
	GameKey    string `json:"gameKey"`
}

type KickData struct {
	Code     string `json:"code" validate:"required"`
	PlayerID string `json:"playerId" validate:"required"`
}

type ToggleData struct {
	Code string `json:"code" validate:"required"`
	On   bool   `json:"on"`
}

type JoinData struct {
	Code           string `json:"code" validate:"required"`
	Name           string `json:"name"`
	ReconnectToken string `json:"reconnectToken"`
}

type GameEventData struct {
	Code    string         `json:"code" validate:"required"`
	Type    string         `json:"type" validate:"required"`
	Payload map[string]any `json:"payload"`
}

type RoomCreatedData struct {
	Code string `json:"code"`
}

type PlayerJoinedData struct {
	Code           string `json:"code"`
	PlayerID       string `json:"playerId"`
	ReconnectToken string `json:"reconnectToken"`
	Reconnected    bool   `json:"reconnected"`
}

type JoinFailedData struct {
	Reason string `json:"reason"`
}

type PlayerKickedData struct {
	Code string `json:"code"`
}

type RoomEndedData struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// Snapshot is the redacted view of a room broadcast to every subscriber.
type Snapshot struct {
	Code           string          `json:"code"`
	GameKey        string          `json:"gameKey"`
	GameName       string          `json:"gameName"`
	HostID         string          `json:"hostId"`
	VIPID          string          `json:"vipId"`
	Phase          Phase           `json:"phase"`
	PhaseDeadline  *int64          `json:"phaseDeadline"`
	Locked         bool            `json:"locked"`
	HideCode       bool            `json:"hideCode"`
	MinPlayers     int             `json:"minPlayers"`
	MaxPlayers     int             `json:"maxPlayers"`
	Players        []PlayerView    `json:"players"`
	Settings       settings.Values `json:"settings"`
	SettingsSchema settings.Schema `json:"settingsSchema"`
	Game           any             `json:"game"`
}

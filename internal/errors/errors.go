package errors

import "fmt"

var (
	ErrRoomNotFound       = fmt.Errorf("room not found")
	ErrRoomFull           = fmt.Errorf("room is full")
	ErrRoomLocked         = fmt.Errorf("room is locked")
	ErrHostAsPlayer       = fmt.Errorf("host cannot join as a player")
	ErrNotAuthorized      = fmt.Errorf("not authorized")
	ErrNotInLobby         = fmt.Errorf("room is not in the lobby")
	ErrGameNotFinished    = fmt.Errorf("game is not finished")
	ErrNotEnoughPlayers   = fmt.Errorf("not enough players")
	ErrPlayerNotFound     = fmt.Errorf("player not found")
	ErrUnknownGame        = fmt.Errorf("unknown game")
	ErrDuplicateGame      = fmt.Errorf("game already registered")
	ErrNoGames            = fmt.Errorf("no games registered")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrInvalidPayload     = fmt.Errorf("invalid payload")
	ErrCodeSpaceExhausted = fmt.Errorf("no free room code")
	ErrRoomClosed         = fmt.Errorf("room is closed")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrArchiveDisabled    = fmt.Errorf("match archive is disabled")
	ErrUnexpectedDatabase = fmt.Errorf("unexpected database error")
)

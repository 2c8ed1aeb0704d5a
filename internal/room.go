package internal

import (
	"strings"
	"time"

	"github.com/scythe504/partybox-server/internal/settings"
)

// Room holds everything the orchestrator owns about one party. It is only
// ever touched from the room's own loop.
type Room struct {
	Code         string
	HostID       string
	GameKey      string
	Players      []*Player
	VIPID        string
	Locked       bool
	HideCode     bool
	Settings     settings.Values
	State        any
	CreatedAt    time.Time
	LastActivity time.Time
	StartedAt    time.Time
}

func (r *Room) PlayerByID(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) PlayerByTransport(transportID string) *Player {
	if transportID == "" {
		return nil
	}
	for _, p := range r.Players {
		if p.TransportID == transportID {
			return p
		}
	}
	return nil
}

func (r *Room) PlayerByToken(token string) *Player {
	if token == "" {
		return nil
	}
	for _, p := range r.Players {
		if p.ReconnectToken == token {
			return p
		}
	}
	return nil
}

// OfflineByName returns the offline players whose name matches, ignoring
// case.
func (r *Room) OfflineByName(name string) []*Player {
	var matches []*Player
	for _, p := range r.Players {
		if !p.Online && strings.EqualFold(p.Name, name) {
			matches = append(matches, p)
		}
	}
	return matches
}

func (r *Room) OnlineCount() int {
	count := 0
	for _, p := range r.Players {
		if p.Online {
			count++
		}
	}
	return count
}

func (r *Room) FirstOnline() *Player {
	for _, p := range r.Players {
		if p.Online {
			return p
		}
	}
	return nil
}

func (r *Room) RemovePlayer(id string) *Player {
	for i, p := range r.Players {
		if p.ID == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return p
		}
	}
	return nil
}

func (r *Room) ResetScores() {
	for _, p := range r.Players {
		p.Score = 0
	}
}

func (r *Room) PublicPlayers() []PlayerView {
	views := make([]PlayerView, 0, len(r.Players))
	for _, p := range r.Players {
		views = append(views, p.ToPublicPlayer(r.VIPID))
	}
	return views
}

func (r *Room) Touch(now time.Time) {
	r.LastActivity = now
}

package internal

import "time"

// Player is a seated participant. ID is stable for the life of the room;
// TransportID changes every time the player reconnects.
type Player struct {
	ID             string
	TransportID    string
	Name           string
	Score          int
	Online         bool
	ReconnectToken string
	JoinedAt       time.Time
	LastSeen       time.Time
}

// PlayerView is the public projection of a Player. It never carries the
// reconnect token or the transport identity.
type PlayerView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Online bool   `json:"online"`
	IsVIP  bool   `json:"isVip"`
}

func (p *Player) ToPublicPlayer(vipID string) PlayerView {
	return PlayerView{
		ID:     p.ID,
		Name:   p.Name,
		Score:  p.Score,
		Online: p.Online,
		IsVIP:  p.ID == vipID,
	}
}

func (p *Player) GoOffline(now time.Time) {
	p.Online = false
	p.TransportID = ""
	p.LastSeen = now
}

func (p *Player) Reattach(transportID string, now time.Time) {
	p.TransportID = transportID
	p.Online = true
	p.LastSeen = now
}

// Package rulestest provides an in-memory rules.Room for exercising
// rule-sets without an orchestrator.
package rulestest

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/rules"
	"github.com/scythe504/partybox-server/internal/settings"
)

type Sent struct {
	PlayerID string
	Event    string
	Payload  any
}

type FakeRoom struct {
	Clock *clockwork.FakeClock
	Sent  []Sent

	code     string
	state    rules.State
	players  []internal.PlayerView
	vip      string
	settings settings.Values
	deadline time.Time
	pending  func()
}

// New seats n online players with ids p1..pn; p1 is VIP.
func New(rs rules.RuleSet, n int) *FakeRoom {
	meta := rs.Meta()
	f := &FakeRoom{
		Clock:    clockwork.NewFakeClock(),
		code:     "TEST",
		state:    rs.NewState(),
		settings: settings.Defaults(meta.DefaultSettings, meta.SettingsSchema),
	}
	for i := 1; i <= n; i++ {
		f.players = append(f.players, internal.PlayerView{
			ID:     fmt.Sprintf("p%d", i),
			Name:   fmt.Sprintf("Player %d", i),
			Online: true,
		})
	}
	if n > 0 {
		f.vip = "p1"
	}
	return f
}

func (f *FakeRoom) Code() string              { return f.code }
func (f *FakeRoom) State() rules.State        { return f.state }
func (f *FakeRoom) VIPID() string             { return f.vip }
func (f *FakeRoom) Settings() settings.Values { return f.settings.Clone() }
func (f *FakeRoom) Now() time.Time            { return f.Clock.Now() }

func (f *FakeRoom) Players() []internal.PlayerView {
	return append([]internal.PlayerView(nil), f.players...)
}

func (f *FakeRoom) OnlinePlayers() []internal.PlayerView {
	var out []internal.PlayerView
	for _, p := range f.players {
		if p.Online {
			out = append(out, p)
		}
	}
	return out
}

func (f *FakeRoom) Player(id string) (internal.PlayerView, bool) {
	for _, p := range f.players {
		if p.ID == id {
			return p, true
		}
	}
	return internal.PlayerView{}, false
}

func (f *FakeRoom) Schedule(d time.Duration, onExpire func()) {
	f.CancelDeadline()
	if d <= 0 {
		return
	}
	f.deadline = f.Clock.Now().Add(d)
	f.pending = onExpire
}

func (f *FakeRoom) CancelDeadline() {
	f.deadline = time.Time{}
	f.pending = nil
}

func (f *FakeRoom) Deadline() (time.Time, bool) {
	return f.deadline, f.pending != nil
}

func (f *FakeRoom) SendTo(playerID, event string, payload any) {
	f.Sent = append(f.Sent, Sent{PlayerID: playerID, Event: event, Payload: payload})
}

func (f *FakeRoom) AddScore(playerID string, points int) {
	for i := range f.players {
		if f.players[i].ID == playerID {
			f.players[i].Score += points
		}
	}
}

// Expire moves the clock to the pending deadline and fires it. It reports
// whether a deadline was pending.
func (f *FakeRoom) Expire() bool {
	if f.pending == nil {
		return false
	}
	fn := f.pending
	f.Clock.Advance(f.deadline.Sub(f.Clock.Now()))
	f.deadline = time.Time{}
	f.pending = nil
	fn()
	return true
}

func (f *FakeRoom) Set(key string, value float64) {
	f.settings[key] = value
}

func (f *FakeRoom) SetOnline(id string, online bool) {
	for i := range f.players {
		if f.players[i].ID == id {
			f.players[i].Online = online
		}
	}
}

func (f *FakeRoom) Remove(id string) {
	for i := range f.players {
		if f.players[i].ID == id {
			f.players = append(f.players[:i], f.players[i+1:]...)
			return
		}
	}
}

func (f *FakeRoom) Score(id string) int {
	p, _ := f.Player(id)
	return p.Score
}

func (f *FakeRoom) SentTo(id string) []Sent {
	var out []Sent
	for _, s := range f.Sent {
		if s.PlayerID == id {
			out = append(out, s)
		}
	}
	return out
}

// Event builds a player event with a payload of alternating keys and values.
func Event(playerID, typ string, kv ...any) rules.Event {
	payload := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		payload[kv[i].(string)] = kv[i+1]
	}
	return rules.Event{Type: typ, PlayerID: playerID, FromVIP: playerID == "p1", Payload: payload}
}
var _ rules.Room = (*FakeRoom)(nil)

// Package rules defines the contract between the room orchestrator and a
// pluggable game variant.
package rules

import (
	"time"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/settings"
)

// Meta describes a rule-set to hosts and to the orchestrator.
type Meta struct {
	Key             string          `json:"key"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	MinPlayers      int             `json:"minPlayers"`
	MaxPlayers      int             `json:"maxPlayers"`
	SettingsSchema  settings.Schema `json:"settingsSchema"`
	DefaultSettings settings.Values `json:"defaultSettings"`
}

// Event is an inbound game:event after the orchestrator has resolved who
// sent it. PlayerID is empty when the sender is not seated in the room.
type Event struct {
	Type     string
	PlayerID string
	FromHost bool
	FromVIP  bool
	Payload  map[string]any
}

func (e Event) Text(key string) string {
	v, _ := e.Payload[key].(string)
	return v
}

// Int reads a whole number out of the payload. JSON numbers arrive as
// float64, fractional values are rejected.
func (e Event) Int(key string) (int, bool) {
	switch v := e.Payload[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// State is the rule-set owned game state stored on the room.
type State interface {
	Phase() internal.Phase
}

// Room is the scoped view a rule-set gets for the duration of one call.
// Every method must only be used from inside that call or from a deadline
// callback scheduled through it.
type Room interface {
	Code() string
	State() State
	Players() []internal.PlayerView
	OnlinePlayers() []internal.PlayerView
	Player(id string) (internal.PlayerView, bool)
	VIPID() string
	Settings() settings.Values
	Now() time.Time

	// Schedule arms the room's single deadline, replacing any pending one.
	Schedule(d time.Duration, onExpire func())
	CancelDeadline()
	Deadline() (time.Time, bool)

	SendTo(playerID, event string, payload any)
	AddScore(playerID string, points int)
}

// RuleSet is one game variant. Hooks are only ever called from the owning
// room's loop, never concurrently for the same room.
type RuleSet interface {
	Meta() Meta
	NewState() State
	PublicView(room Room) any
	OnStart(room Room)
	OnEvent(room Room, ev Event)
	OnRosterChange(room Room)
	OnReset(room Room)
	OnDispose(room Room)
}

// PrivateViewer is implemented by rule-sets that keep per-player secrets
// and need to re-deliver them after a reconnect.
type PrivateViewer interface {
	PrivateView(room Room, playerID string) (event string, payload any, ok bool)
}

// Setting reads a duration-valued setting stored in milliseconds.
func Setting(room Room, key string) time.Duration {
	return time.Duration(room.Settings()[key]) * time.Millisecond
}

// DeadlineMillis renders the room deadline for a public view.
func DeadlineMillis(room Room) *int64 {
	at, ok := room.Deadline()
	if !ok {
		return nil
	}
	ms := at.UnixMilli()
	return &ms
}

// AllActed reports whether every online player appears in acted. A room
// with nobody online never counts as complete.
func AllActed[V any](room Room, acted map[string]V) bool {
	online := room.OnlinePlayers()
	if len(online) == 0 {
		return false
	}
	for _, p := range online {
		if _, ok := acted[p.ID]; !ok {
			return false
		}
	}
	return true
}

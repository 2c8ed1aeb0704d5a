// Package alibi is the social deduction rule-set: one player secretly
// committed the crime, everyone writes an alibi, asks a question and votes.
package alibi

import (
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/rules"
	"github.com/scythe504/partybox-server/internal/settings"
)

const Key = "alibi"

const (
	PhaseTutorial    internal.Phase = "tutorial"
	PhaseBrief       internal.Phase = "brief"
	PhaseAlibi       internal.Phase = "alibi"
	PhaseInterrogate internal.Phase = "interrogate"
	PhaseVote        internal.Phase = "vote"
	PhaseReveal      internal.Phase = "reveal"
)

const (
	EventSkipTutorial = "vip:skipTutorial"
	EventAlibi        = "alibi:submit"
	EventQuestion     = "interrogate:submit"
	EventVote         = "vote:submit"
	EventBrief        = "alibi:brief"
)

const (
	MaxAlibiLength    = 500
	MaxQuestionLength = 200
	PointsCorrectVote = 100
	PointsEscaped     = 150
)

// next is the single phase graph used by both deadline expiry and early
// completion.
var next = map[internal.Phase]internal.Phase{
	PhaseTutorial:    PhaseBrief,
	PhaseBrief:       PhaseAlibi,
	PhaseAlibi:       PhaseInterrogate,
	PhaseInterrogate: PhaseVote,
	PhaseVote:        PhaseReveal,
	PhaseReveal:      internal.PhaseDone,
}

var durationKey = map[internal.Phase]string{
	PhaseTutorial:    "tutorialMs",
	PhaseBrief:       "briefMs",
	PhaseAlibi:       "alibiMs",
	PhaseInterrogate: "interrogateMs",
	PhaseVote:        "voteMs",
	PhaseReveal:      "revealMs",
}

type State struct {
	phase      internal.Phase
	Crime      *Crime
	CriminalID string
	Alibis     map[string]string
	Questions  map[string]string
	Votes      map[string]string
	Caught     bool
}

func (s *State) Phase() internal.Phase { return s.phase }

func (s *State) reset() {
	s.phase = internal.PhaseLobby
	s.Crime = nil
	s.CriminalID = ""
	s.Alibis = make(map[string]string)
	s.Questions = make(map[string]string)
	s.Votes = make(map[string]string)
	s.Caught = false
}

// submissions returns the map collected during phase, if any.
func (s *State) submissions(phase internal.Phase) map[string]string {
	switch phase {
	case PhaseAlibi:
		return s.Alibis
	case PhaseInterrogate:
		return s.Questions
	case PhaseVote:
		return s.Votes
	}
	return nil
}

type Game struct{}

func New() *Game { return &Game{} }

func (g *Game) Meta() rules.Meta {
	return rules.Meta{
		Key:         Key,
		Name:        "The Alibi",
		Description: "Improvised detective mystery. One player is secretly the criminal. Everyone writes alibis, asks questions, and then votes.",
		MinPlayers:  1,
		MaxPlayers:  12,
		SettingsSchema: settings.Schema{
			"tutorialMs":    {Label: "Tutorial", Type: "number", Min: lo.ToPtr(3000.0), Max: lo.ToPtr(60000.0), Step: lo.ToPtr(1000.0)},
			"briefMs":       {Label: "Brief", Type: "number", Min: lo.ToPtr(3000.0), Max: lo.ToPtr(15000.0), Step: lo.ToPtr(1000.0)},
			"revealMs":      {Label: "Reveal", Type: "number", Min: lo.ToPtr(3000.0), Max: lo.ToPtr(15000.0), Step: lo.ToPtr(1000.0)},
			"alibiMs":       settings.Number("Alibi time", 10000, 90000, 5000),
			"interrogateMs": settings.Number("Questions", 10000, 90000, 5000),
			"voteMs":        settings.Number("Voting", 5000, 60000, 5000),
		},
		DefaultSettings: settings.Values{
			"tutorialMs":    10000,
			"briefMs":       6000,
			"alibiMs":       45000,
			"interrogateMs": 30000,
			"voteMs":        20000,
			"revealMs":      6000,
		},
	}
}

func (g *Game) NewState() rules.State {
	s := &State{}
	s.reset()
	return s
}

func state(room rules.Room) *State {
	return room.State().(*State)
}

// OnStart picks the crime and the criminal among the online players and
// briefs the criminal privately.
func (g *Game) OnStart(room rules.Room) {
	s := state(room)
	online := room.OnlinePlayers()
	if len(online) == 0 {
		return
	}
	s.reset()
	s.Crime = randomCrime()
	s.CriminalID = online[rand.IntN(len(online))].ID
	room.SendTo(s.CriminalID, EventBrief, briefFor(s.Crime))

	log.Info().Str("room", room.Code()).Int("players", len(online)).Msg("[alibi] criminal assigned")
	g.goTo(room, PhaseTutorial)
}

func (g *Game) OnEvent(room rules.Room, ev rules.Event) {
	s := state(room)
	switch ev.Type {
	case EventSkipTutorial:
		if (ev.FromVIP || ev.FromHost) && s.phase == PhaseTutorial {
			g.advance(room, PhaseTutorial)
		}
	case EventAlibi:
		g.submitText(room, ev, PhaseAlibi, MaxAlibiLength)
	case EventQuestion:
		g.submitText(room, ev, PhaseInterrogate, MaxQuestionLength)
	case EventVote:
		g.submitVote(room, ev)
	}
}

func (g *Game) submitText(room rules.Room, ev rules.Event, phase internal.Phase, limit int) {
	s := state(room)
	if s.phase != phase || ev.PlayerID == "" {
		return
	}
	entries := s.submissions(phase)
	if _, done := entries[ev.PlayerID]; done {
		return
	}
	text := strings.TrimSpace(ev.Text("text"))
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > limit {
		text = string(runes[:limit])
	}
	entries[ev.PlayerID] = text
	g.completeIfAllActed(room)
}

func (g *Game) submitVote(room rules.Room, ev rules.Event) {
	s := state(room)
	if s.phase != PhaseVote || ev.PlayerID == "" {
		return
	}
	if _, done := s.Votes[ev.PlayerID]; done {
		return
	}
	target := ev.Text("suspectId")
	if target == "" || target == ev.PlayerID {
		return
	}
	if _, ok := room.Player(target); !ok {
		return
	}
	s.Votes[ev.PlayerID] = target
	g.completeIfAllActed(room)
}

func (g *Game) completeIfAllActed(room rules.Room) {
	s := state(room)
	entries := s.submissions(s.phase)
	if entries == nil {
		return
	}
	if rules.AllActed(room, entries) {
		g.advance(room, s.phase)
	}
}

// advance moves on from phase. It is a no-op when the room has already
// left phase, which makes late deadlines harmless.
func (g *Game) advance(room rules.Room, from internal.Phase) {
	s := state(room)
	if s.phase != from {
		return
	}
	to, ok := next[from]
	if !ok {
		return
	}
	g.goTo(room, to)
}

func (g *Game) goTo(room rules.Room, phase internal.Phase) {
	s := state(room)
	s.phase = phase
	if phase == PhaseReveal {
		g.score(room)
	}
	key, timed := durationKey[phase]
	if !timed {
		room.CancelDeadline()
		return
	}
	room.Schedule(rules.Setting(room, key), func() { g.advance(room, phase) })
}

// score pays every voter who found the criminal and pays the criminal when
// the plurality vote missed. A tied plurality counts as a miss.
func (g *Game) score(room rules.Room) {
	s := state(room)
	tally := lo.CountValues(lo.Values(s.Votes))
	top, best, tie := "", 0, false
	for suspect, n := range tally {
		switch {
		case n > best:
			top, best, tie = suspect, n, false
		case n == best:
			tie = true
		}
	}
	s.Caught = best > 0 && !tie && top == s.CriminalID

	for voter, suspect := range s.Votes {
		if suspect == s.CriminalID {
			room.AddScore(voter, PointsCorrectVote)
		}
	}
	if !s.Caught {
		room.AddScore(s.CriminalID, PointsEscaped)
	}
	log.Info().Str("room", room.Code()).Bool("caught", s.Caught).Int("votes", len(s.Votes)).Msg("[alibi] reveal scored")
}

func (g *Game) OnRosterChange(room rules.Room) {
	g.completeIfAllActed(room)
}

func (g *Game) OnReset(room rules.Room) {
	room.CancelDeadline()
	state(room).reset()
}

func (g *Game) OnDispose(room rules.Room) {
	room.CancelDeadline()
}

// PrivateView re-delivers the brief to the criminal while the round is
// still hidden.
func (g *Game) PrivateView(room rules.Room, playerID string) (string, any, bool) {
	s := state(room)
	if s.Crime == nil || playerID != s.CriminalID {
		return "", nil, false
	}
	switch s.phase {
	case internal.PhaseLobby, PhaseReveal, internal.PhaseDone:
		return "", nil, false
	}
	return EventBrief, briefFor(s.Crime), true
}

var (
	_ rules.RuleSet       = (*Game)(nil)
	_ rules.PrivateViewer = (*Game)(nil)
)

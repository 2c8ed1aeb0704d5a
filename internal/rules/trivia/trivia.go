// Package trivia is the scored quiz rule-set. Correct answers earn a base
// amount plus a bonus proportional to the time left on the question.
package trivia

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/rules"
	"github.com/scythe504/partybox-server/internal/settings"
)

const Key = "trivia"

const (
	PhaseQuestion internal.Phase = "question"
	PhaseReveal   internal.Phase = "reveal"
)

const (
	EventAnswer = "answer:submit"
	EventNext   = "host:next"
)

const (
	BasePoints = 500
	SpeedBonus = 500
)

// Points scores a correct answer given after elapsed out of limit. The
// bonus decreases continuously with elapsed time.
func Points(elapsed, limit time.Duration) int {
	if limit <= 0 {
		return BasePoints
	}
	remaining := min(max(limit-elapsed, 0), limit)
	return BasePoints + int(math.Round(SpeedBonus*float64(remaining)/float64(limit)))
}

type Answer struct {
	Choice int
	At     time.Time
}

type State struct {
	phase      internal.Phase
	Questions  []Question
	Index      int
	Answers    map[string]Answer
	AskedAt    time.Time
	QuestionMs time.Duration
	Gained     map[string]int
}

func (s *State) Phase() internal.Phase { return s.phase }

func (s *State) reset() {
	s.phase = internal.PhaseLobby
	s.Questions = nil
	s.Index = 0
	s.Answers = make(map[string]Answer)
	s.AskedAt = time.Time{}
	s.QuestionMs = 0
	s.Gained = make(map[string]int)
}

func (s *State) current() *Question {
	if s.Index < 0 || s.Index >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.Index]
}

type Game struct {
	bank []Question
}

// New builds the quiz from the embedded bank.
func New() (*Game, error) {
	bank, err := LoadBank(bankJSON)
	if err != nil {
		return nil, err
	}
	return &Game{bank: bank}, nil
}

// NewFromFile uses the CSV question bank at path instead of the embedded one.
func NewFromFile(path string) (*Game, error) {
	bank, err := ReadBankCSV(path)
	if err != nil {
		return nil, err
	}
	return &Game{bank: bank}, nil
}

func NewWithBank(bank []Question) *Game {
	return &Game{bank: bank}
}

func (g *Game) Meta() rules.Meta {
	return rules.Meta{
		Key:         Key,
		Name:        "Quick Trivia",
		Description: "Answer multiple choice questions against the clock. Faster correct answers score more.",
		MinPlayers:  1,
		MaxPlayers:  8,
		SettingsSchema: settings.Schema{
			"questionCount": settings.Number("Questions", 1, 20, 1),
			"questionMs":    settings.Number("Answer time", 5000, 60000, 1000),
			"revealMs":      {Label: "Reveal", Type: "number", Min: lo.ToPtr(3000.0), Max: lo.ToPtr(15000.0), Step: lo.ToPtr(1000.0)},
		},
		DefaultSettings: settings.Values{
			"questionCount": 5,
			"questionMs":    15000,
			"revealMs":      5000,
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

func (g *Game) OnStart(room rules.Room) {
	s := state(room)
	s.reset()
	s.Questions = draw(g.bank, int(room.Settings()["questionCount"]))
	log.Info().Str("room", room.Code()).Int("questions", len(s.Questions)).Msg("[trivia] quiz started")
	g.ask(room)
}

func (g *Game) OnEvent(room rules.Room, ev rules.Event) {
	s := state(room)
	switch ev.Type {
	case EventAnswer:
		g.answer(room, ev)
	case EventNext:
		if (ev.FromHost || ev.FromVIP) && s.phase == PhaseReveal {
			g.advance(room, PhaseReveal)
		}
	}
}

func (g *Game) answer(room rules.Room, ev rules.Event) {
	s := state(room)
	q := s.current()
	if s.phase != PhaseQuestion || ev.PlayerID == "" || q == nil {
		return
	}
	if _, done := s.Answers[ev.PlayerID]; done {
		return
	}
	choice, ok := ev.Int("choiceIndex")
	if !ok || choice < 0 || choice >= len(q.Choices) {
		return
	}
	s.Answers[ev.PlayerID] = Answer{Choice: choice, At: room.Now()}
	if rules.AllActed(room, s.Answers) {
		g.advance(room, PhaseQuestion)
	}
}

// advance is shared by deadlines, early completion and host:next.
func (g *Game) advance(room rules.Room, from internal.Phase) {
	s := state(room)
	if s.phase != from {
		return
	}
	switch from {
	case PhaseQuestion:
		g.reveal(room)
	case PhaseReveal:
		if s.Index+1 < len(s.Questions) {
			s.Index++
			g.ask(room)
			return
		}
		s.phase = internal.PhaseDone
		room.CancelDeadline()
		log.Info().Str("room", room.Code()).Msg("[trivia] quiz finished")
	}
}

func (g *Game) ask(room rules.Room) {
	s := state(room)
	s.phase = PhaseQuestion
	s.Answers = make(map[string]Answer)
	s.Gained = make(map[string]int)
	s.AskedAt = room.Now()
	s.QuestionMs = rules.Setting(room, "questionMs")
	room.Schedule(s.QuestionMs, func() { g.advance(room, PhaseQuestion) })
}

func (g *Game) reveal(room rules.Room) {
	s := state(room)
	s.phase = PhaseReveal
	q := s.current()
	for id, a := range s.Answers {
		if q == nil || a.Choice != q.Answer {
			continue
		}
		pts := Points(a.At.Sub(s.AskedAt), s.QuestionMs)
		s.Gained[id] = pts
		room.AddScore(id, pts)
	}
	room.Schedule(rules.Setting(room, "revealMs"), func() { g.advance(room, PhaseReveal) })
}

func (g *Game) OnRosterChange(room rules.Room) {
	s := state(room)
	if s.phase == PhaseQuestion && rules.AllActed(room, s.Answers) {
		g.advance(room, PhaseQuestion)
	}
}

func (g *Game) OnReset(room rules.Room) {
	room.CancelDeadline()
	state(room).reset()
}

func (g *Game) OnDispose(room rules.Room) {
	room.CancelDeadline()
}

var _ rules.RuleSet = (*Game)(nil)

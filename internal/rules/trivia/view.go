package trivia

import (
	"sort"

	"github.com/samber/lo"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/rules"
)

type View struct {
	Phase         internal.Phase `json:"phase"`
	PhaseDeadline *int64         `json:"phaseDeadline"`
	QuestionIndex int            `json:"questionIndex"`
	QuestionCount int            `json:"questionCount"`
	Question      *QuestionView  `json:"question"`
	Answered      []string       `json:"answered"`
	AnswerIndex   *int           `json:"answerIndex,omitempty"`
	Choices       map[string]int `json:"choices,omitempty"`
	Gained        map[string]int `json:"gained,omitempty"`
}

type QuestionView struct {
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
}

func (g *Game) PublicView(room rules.Room) any {
	s := state(room)
	view := View{
		Phase:         s.phase,
		PhaseDeadline: rules.DeadlineMillis(room),
		QuestionIndex: s.Index,
		QuestionCount: len(s.Questions),
		Answered:      lo.Keys(s.Answers),
	}
	sort.Strings(view.Answered)

	q := s.current()
	if q == nil || (s.phase != PhaseQuestion && s.phase != PhaseReveal) {
		return view
	}
	view.Question = &QuestionView{Prompt: q.Prompt, Choices: append([]string(nil), q.Choices...)}
	if s.phase == PhaseReveal {
		view.AnswerIndex = lo.ToPtr(q.Answer)
		view.Choices = lo.MapValues(s.Answers, func(a Answer, _ string) int { return a.Choice })
		view.Gained = lo.Assign(map[string]int{}, s.Gained)
	}
	return view
}

package trivia

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/rules/rulestest"
)

var testBank = []Question{
	{Prompt: "What is 2 + 2?", Choices: []string{"3", "4", "5"}, Answer: 1},
	{Prompt: "Capital of France?", Choices: []string{"Rome", "Paris", "Berlin"}, Answer: 1},
}

func started(t *testing.T, players, questions int) (*Game, *rulestest.FakeRoom, *State) {
	t.Helper()
	g := NewWithBank(testBank)
	room := rulestest.New(g, players)
	room.Set("questionCount", float64(questions))
	g.OnStart(room)
	return g, room, room.State().(*State)
}

func answer(g *Game, room *rulestest.FakeRoom, id string, choice int) {
	g.OnEvent(room, rulestest.Event(id, EventAnswer, "choiceIndex", float64(choice)))
}

func TestPoints_ContinuousSpeedBonus(t *testing.T) {
	req := require.New(t)
	limit := 10 * time.Second

	req.Equal(1000, Points(0, limit))
	req.Equal(750, Points(5*time.Second, limit))
	req.Equal(500, Points(limit, limit))
	req.Equal(500, Points(time.Minute, limit))
	req.Equal(1000, Points(-time.Second, limit))
	req.Greater(Points(1*time.Second, limit), Points(1100*time.Millisecond, limit))
}

func TestNew_LoadsEmbeddedBank(t *testing.T) {
	req := require.New(t)

	g, err := New()

	req.NoError(err)
	req.GreaterOrEqual(len(g.bank), 20)
}

func TestLoadBank_DropsInvalidQuestions(t *testing.T) {
	req := require.New(t)

	bank, err := LoadBank([]byte(`[{"prompt":"ok","choices":["a","b"],"answer":1},{"prompt":"bad","choices":["a"],"answer":3}]`))

	req.NoError(err)
	req.Len(bank, 1)

	_, err = LoadBank([]byte(`[]`))
	req.Error(err)
}

func TestQuiz_FasterCorrectAnswerScoresMore(t *testing.T) {
	req := require.New(t)

	// Given a two question quiz with two players
	g, room, s := started(t, 2, 2)
	req.Equal(PhaseQuestion, s.Phase())
	_, hasDeadline := room.Deadline()
	req.True(hasDeadline)
	correct := s.Questions[0].Answer

	// When both answer correctly at different speeds
	room.Clock.Advance(2 * time.Second)
	answer(g, room, "p1", correct)
	room.Clock.Advance(5 * time.Second)
	answer(g, room, "p2", correct)

	// Then the reveal starts without waiting for the deadline
	req.Equal(PhaseReveal, s.Phase())
	req.Greater(room.Score("p1"), room.Score("p2"))
	req.Greater(room.Score("p2"), 0)
}

func TestQuiz_TimeoutEqualsEarlyCompletion(t *testing.T) {
	req := require.New(t)
	g, room, s := started(t, 2, 2)

	answer(g, room, "p1", s.Questions[0].Answer)
	req.Equal(PhaseQuestion, s.Phase())

	// When the deadline fires instead of the second answer
	req.True(room.Expire())

	req.Equal(PhaseReveal, s.Phase())
	req.Equal(0, room.Score("p2"))
	req.Equal(Points(0, 15*time.Second), room.Score("p1"))
}

func TestQuiz_WrongAndDuplicateAnswers(t *testing.T) {
	req := require.New(t)
	g, room, s := started(t, 2, 1)
	q := s.Questions[0]
	wrong := (q.Answer + 1) % len(q.Choices)

	answer(g, room, "p1", wrong)
	answer(g, room, "p1", q.Answer)
	answer(g, room, "p2", 99)
	req.Len(s.Answers, 1)
	req.Equal(wrong, s.Answers["p1"].Choice)

	answer(g, room, "p2", q.Answer)
	req.Equal(PhaseReveal, s.Phase())
	req.Equal(0, room.Score("p1"))
	req.Positive(room.Score("p2"))
}

func TestQuiz_LoopsThenFinishes(t *testing.T) {
	req := require.New(t)
	g, room, s := started(t, 1, 2)

	answer(g, room, "p1", s.Questions[0].Answer)
	req.Equal(PhaseReveal, s.Phase())

	// When the VIP skips the reveal
	g.OnEvent(room, rulestest.Event("p1", EventNext))
	req.Equal(PhaseQuestion, s.Phase())
	req.Equal(1, s.Index)
	req.Empty(s.Answers)

	// When the second question and its reveal time out
	req.True(room.Expire())
	req.Equal(PhaseReveal, s.Phase())
	req.True(room.Expire())

	req.Equal(internal.PhaseDone, s.Phase())
	_, hasDeadline := room.Deadline()
	req.False(hasDeadline)
}

func TestHostNext_IgnoredFromPlayers(t *testing.T) {
	req := require.New(t)
	g, room, s := started(t, 2, 2)
	answer(g, room, "p1", 0)
	answer(g, room, "p2", 0)
	req.Equal(PhaseReveal, s.Phase())

	g.OnEvent(room, rulestest.Event("p2", EventNext))

	req.Equal(PhaseReveal, s.Phase())
}

func TestPublicView_HidesAnswerUntilReveal(t *testing.T) {
	req := require.New(t)
	g, room, s := started(t, 2, 1)

	answer(g, room, "p1", 0)
	view := g.PublicView(room).(View)
	req.Nil(view.AnswerIndex)
	req.Nil(view.Choices)
	req.Equal([]string{"p1"}, view.Answered)

	raw, err := json.Marshal(view)
	req.NoError(err)
	req.NotContains(string(raw), "answerIndex")

	answer(g, room, "p2", s.Questions[0].Answer)
	view = g.PublicView(room).(View)
	req.NotNil(view.AnswerIndex)
	req.Equal(s.Questions[0].Answer, *view.AnswerIndex)
	req.Equal(0, view.Choices["p1"])
}

func TestRosterChange_CompletesQuestion(t *testing.T) {
	req := require.New(t)
	g, room, s := started(t, 2, 1)

	answer(g, room, "p1", 0)
	room.Remove("p2")
	g.OnRosterChange(room)

	req.Equal(PhaseReveal, s.Phase())
}

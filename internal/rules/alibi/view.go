package alibi

import (
	"sort"

	"github.com/samber/lo"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/rules"
)

type View struct {
	Phase         internal.Phase `json:"phase"`
	PhaseDeadline *int64         `json:"phaseDeadline"`
	Crime         *Crime         `json:"crime"`
	CriminalID    string         `json:"criminalId,omitempty"`
	Caught        *bool          `json:"caught,omitempty"`
	Round         Round          `json:"round"`
}

type Round struct {
	Alibis     []Entry        `json:"alibis"`
	Questions  []Entry        `json:"questions"`
	VotesCount map[string]int `json:"votesCount"`
	Acted      []string       `json:"acted"`
}

type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

func (g *Game) PublicView(room rules.Room) any {
	s := state(room)
	view := View{
		Phase:         s.phase,
		PhaseDeadline: rules.DeadlineMillis(room),
		Round:         Round{Acted: []string{}},
	}
	revealed := s.phase == PhaseReveal || s.phase == internal.PhaseDone

	if s.phase != internal.PhaseLobby && s.phase != PhaseTutorial {
		view.Round.Alibis = entries(room, s.Alibis)
	}
	switch s.phase {
	case PhaseInterrogate, PhaseVote, PhaseReveal, internal.PhaseDone:
		view.Round.Questions = entries(room, s.Questions)
	}
	if acted := s.submissions(s.phase); acted != nil {
		view.Round.Acted = sortedKeys(acted)
	}
	if revealed && s.Crime != nil {
		crime := *s.Crime
		view.Crime = &crime
		view.CriminalID = s.CriminalID
		view.Caught = lo.ToPtr(s.Caught)
		view.Round.VotesCount = lo.CountValues(lo.Values(s.Votes))
	}
	return view
}

// entries lists submissions in roster order; authors who have since left
// the roster are appended by id.
func entries(room rules.Room, texts map[string]string) []Entry {
	out := make([]Entry, 0, len(texts))
	seen := make(map[string]bool, len(texts))
	for _, p := range room.Players() {
		if text, ok := texts[p.ID]; ok {
			out = append(out, Entry{ID: p.ID, Name: p.Name, Text: text})
			seen[p.ID] = true
		}
	}
	for _, id := range sortedKeys(texts) {
		if !seen[id] {
			out = append(out, Entry{ID: id, Name: internal.DefaultPlayer, Text: texts[id]})
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

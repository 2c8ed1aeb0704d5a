package trivia

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

//go:embed questions.json
var bankJSON []byte

type Question struct {
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
	Answer  int      `json:"answer"`
}

// LoadBank parses a question bank and drops entries whose answer index does
// not point at a choice.
func LoadBank(raw []byte) ([]Question, error) {
	var all []Question
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	return validBank(all)
}

func validBank(all []Question) ([]Question, error) {
	valid := all[:0]
	for _, q := range all {
		if q.Prompt != "" && q.Answer >= 0 && q.Answer < len(q.Choices) {
			valid = append(valid, q)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}
	return valid, nil
}

func draw(bank []Question, n int) []Question {
	n = max(1, min(n, len(bank)))
	picked := make([]Question, 0, n)
	for _, i := range rand.Perm(len(bank))[:n] {
		picked = append(picked, bank[i])
	}
	return picked
}

// Package catalog wires the built-in rule-sets into a registry.
package catalog

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	perrors "github.com/scythe504/partybox-server/internal/errors"
	"github.com/scythe504/partybox-server/internal/rules"
	"github.com/scythe504/partybox-server/internal/rules/alibi"
	"github.com/scythe504/partybox-server/internal/rules/trivia"
)

// Builtin returns every rule-set shipped with the server. A non-empty
// triviaBank replaces the embedded question bank.
func Builtin(triviaBank string) ([]rules.RuleSet, error) {
	var (
		quiz *trivia.Game
		err  error
	)
	if triviaBank != "" {
		quiz, err = trivia.NewFromFile(triviaBank)
	} else {
		quiz, err = trivia.New()
	}
	if err != nil {
		return nil, err
	}
	return []rules.RuleSet{alibi.New(), quiz}, nil
}

// NewRegistry registers the built-in rule-sets whose key is listed in
// enabled (comma separated, empty means all).
func NewRegistry(enabled, defaultKey string) (*rules.Registry, error) {
	return NewRegistryWithBank(enabled, defaultKey, "")
}

func NewRegistryWithBank(enabled, defaultKey, triviaBank string) (*rules.Registry, error) {
	all, err := Builtin(triviaBank)
	if err != nil {
		return nil, err
	}
	wanted := lo.Compact(lo.Map(strings.Split(enabled, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))

	registry := rules.NewRegistry(defaultKey)
	for _, rs := range all {
		key := rs.Meta().Key
		if len(wanted) > 0 && !lo.Contains(wanted, key) {
			continue
		}
		if err := registry.Register(rs); err != nil {
			return nil, err
		}
		log.Info().Str("game", key).Msg("[catalog] rule-set registered")
	}
	if len(registry.Keys()) == 0 {
		return nil, fmt.Errorf("%w: enabled=%q", perrors.ErrNoGames, enabled)
	}
	return registry, nil
}

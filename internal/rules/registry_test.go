package rules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	perrors "github.com/scythe504/partybox-server/internal/errors"
	"github.com/scythe504/partybox-server/internal/rules"
	"github.com/scythe504/partybox-server/internal/rules/alibi"
	"github.com/scythe504/partybox-server/internal/rules/trivia"
)

func TestRegistry_RegisterAndResolve(t *testing.T) {
	req := require.New(t)
	registry := rules.NewRegistry(alibi.Key)
	req.NoError(registry.Register(alibi.New(), trivia.NewWithBank(nil)))

	rs, err := registry.Resolve(trivia.Key)
	req.NoError(err)
	req.Equal(trivia.Key, rs.Meta().Key)

	// Unknown keys fall back to the default
	rs, err = registry.Resolve("stale-client-key")
	req.NoError(err)
	req.Equal(alibi.Key, rs.Meta().Key)

	metas := registry.List()
	req.Len(metas, 2)
	req.Equal(alibi.Key, metas[0].Key)
}

func TestRegistry_DuplicateKey(t *testing.T) {
	req := require.New(t)
	registry := rules.NewRegistry(alibi.Key)

	err := registry.Register(alibi.New(), alibi.New())

	req.ErrorIs(err, perrors.ErrDuplicateGame)
}

func TestRegistry_Empty(t *testing.T) {
	req := require.New(t)

	_, err := rules.NewRegistry(alibi.Key).Resolve("")

	req.ErrorIs(err, perrors.ErrNoGames)
}

func TestEvent_Accessors(t *testing.T) {
	req := require.New(t)
	ev := rules.Event{Payload: map[string]any{"text": "hi", "n": 2.0, "f": 2.5, "s": "3"}}

	req.Equal("hi", ev.Text("text"))
	req.Empty(ev.Text("n"))

	n, ok := ev.Int("n")
	req.True(ok)
	req.Equal(2, n)

	_, ok = ev.Int("f")
	req.False(ok)
	_, ok = ev.Int("s")
	req.False(ok)
}

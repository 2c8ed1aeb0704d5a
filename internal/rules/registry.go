package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	perrors "github.com/scythe504/partybox-server/internal/errors"
)

// Registry indexes the available rule-sets by key.
type Registry struct {
	mu         sync.RWMutex
	games      map[string]RuleSet
	defaultKey string
}

func NewRegistry(defaultKey string) *Registry {
	return &Registry{
		games:      make(map[string]RuleSet),
		defaultKey: defaultKey,
	}
}

func (r *Registry) Register(sets ...RuleSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rs := range sets {
		key := rs.Meta().Key
		if _, exists := r.games[key]; exists {
			return fmt.Errorf("%w: %s", perrors.ErrDuplicateGame, key)
		}
		r.games[key] = rs
	}
	return nil
}

func (r *Registry) Get(key string) (RuleSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.games[strings.TrimSpace(key)]
	return rs, ok
}

// Resolve returns the rule-set for key, falling back to the default key
// and then to the first registered key in sorted order.
func (r *Registry) Resolve(key string) (RuleSet, error) {
	if rs, ok := r.Get(key); ok {
		return rs, nil
	}
	if rs, ok := r.Get(r.defaultKey); ok {
		return rs, nil
	}
	keys := r.Keys()
	if len(keys) == 0 {
		return nil, perrors.ErrNoGames
	}
	rs, _ := r.Get(keys[0])
	return rs, nil
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := lo.Keys(r.games)
	sort.Strings(keys)
	return keys
}

// List returns the metadata of every registered rule-set, sorted by key.
func (r *Registry) List() []Meta {
	keys := r.Keys()
	metas := make([]Meta, 0, len(keys))
	for _, key := range keys {
		if rs, ok := r.Get(key); ok {
			metas = append(metas, rs.Meta())
		}
	}
	return metas
}

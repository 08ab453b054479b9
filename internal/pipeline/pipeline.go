// Package pipeline maps file patterns to ordered adapter chains.
package pipeline

import (
	"fmt"
	"path"
	"strings"

	"github.com/requirehit/package/internal/pattern"
	"github.com/requirehit/package/pkg/adapter"
)

// Table is an ordered list of (pattern, adapter chain) rules. Rules are
// evaluated in declaration order and the first match wins; later matching
// rules are never consulted. A path matching no rule receives the default
// chain, derived from the adapters bound to the owning package.
type Table struct {
	registry *adapter.Registry
	rules    []rule
}

type rule struct {
	pattern *pattern.Pattern
	chain   []adapter.Adapter
}

// New returns an empty table bound to the package's adapter registry.
func New(registry *adapter.Registry) *Table {
	return &Table{registry: registry}
}

// AddRule compiles the filter string, resolves each adapter identifier
// through the registry (binding any adapter not already bound) and appends
// the rule. The chain's order is the order the identifiers are given in.
func (t *Table) AddRule(filter string, identifiers ...any) error {
	p, err := pattern.Compile(filter)
	if err != nil {
		return err
	}

	chain := make([]adapter.Adapter, 0, len(identifiers))
	for _, id := range identifiers {
		a, err := t.registry.Resolve(id)
		if err != nil {
			return fmt.Errorf("pipeline rule %q: %w", filter, err)
		}
		if !t.registry.Has(a.Name()) {
			if _, err := t.registry.Bind(a); err != nil {
				return fmt.Errorf("pipeline rule %q: %w", filter, err)
			}
		}
		bound, _ := t.registry.Get(a.Name())
		chain = append(chain, bound)
	}

	t.rules = append(t.rules, rule{pattern: p, chain: chain})
	return nil
}

// ResolveChain returns the adapter chain for a relative slash path: the chain
// of the first matching rule, or the default chain when no rule matches.
func (t *Table) ResolveChain(relpath string) []adapter.Adapter {
	for _, r := range t.rules {
		if r.pattern.Match(relpath) {
			return r.chain
		}
	}
	return t.DefaultChain(relpath)
}

// DefaultChain is the single adapter bound for the file's natural type, keyed
// by extension. Files whose extension matches no bound adapter get an empty
// chain and pass through the build unmodified.
func (t *Table) DefaultChain(relpath string) []adapter.Adapter {
	ext := strings.TrimPrefix(path.Ext(relpath), ".")
	if ext == "" {
		return nil
	}
	if a, ok := t.registry.Get(strings.ToLower(ext)); ok {
		return []adapter.Adapter{a}
	}
	return nil
}

// Len returns the number of declared rules.
func (t *Table) Len() int {
	return len(t.rules)
}

// Package deps normalizes and validates a package's declared dependencies.
//
// Dependencies are grouped under rules. The accepted rules are `required`,
// `optional`, and environment-scoped variants such as
// `environment-required-production`. Three authoring shapes are accepted and
// all normalize to the same rule-keyed graph:
//
//   - a rule-keyed mapping of rule -> name -> version constraint
//   - a flat name -> version mapping, treated entirely as required
//   - a list of bare names, treated as required at version "latest"
package deps

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
)

const (
	RuleRequired = "required"
	RuleOptional = "optional"

	// DefaultVersion is assigned to dependencies declared as bare names.
	DefaultVersion = "latest"
)

var ruleGrammar = regexp.MustCompile(`^(required|optional|environment-(required|optional)-.+)$`)

// RuleError reports a top-level key that does not satisfy the rule grammar.
type RuleError struct {
	Rule string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid dependency rule %q", e.Rule)
}

// Graph maps a dependency rule to a name -> version constraint table. The
// required and optional tables are always present, defaulting to empty.
type Graph map[string]map[string]string

// ValidRule reports whether a top-level key satisfies the rule grammar.
func ValidRule(rule string) bool {
	return ruleGrammar.MatchString(rule)
}

// Normalize builds a Graph from any of the accepted authoring shapes. A
// mapping is treated as rule-keyed when any of its own keys satisfies the
// grammar; in that case every key must satisfy it. Otherwise the mapping is a
// flat name -> version table. Lists expand to required entries at the default
// version.
func Normalize(raw any) (Graph, error) {
	g := Graph{
		RuleRequired: map[string]string{},
		RuleOptional: map[string]string{},
	}

	switch v := raw.(type) {
	case nil:
		return g, nil

	case Graph:
		return Normalize(map[string]map[string]string(v))

	case map[string]map[string]string:
		m := make(map[string]any, len(v))
		for rule, entries := range v {
			m[rule] = entries
		}
		return Normalize(m)

	case map[string]string:
		m := make(map[string]any, len(v))
		for name, version := range v {
			m[name] = version
		}
		return Normalize(m)

	case []string:
		entries := make([]any, len(v))
		for i := range v {
			entries[i] = v[i]
		}
		return Normalize(entries)

	case []any:
		for _, entry := range v {
			name, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("dependency name must be a string, got %T", entry)
			}
			g[RuleRequired][name] = DefaultVersion
		}
		return g, nil

	case map[string]any:
		if ruleKeyed(v) {
			for _, rule := range slices.Sorted(maps.Keys(v)) {
				if !ValidRule(rule) {
					return nil, &RuleError{Rule: rule}
				}
				entries, err := normalizeEntries(rule, v[rule])
				if err != nil {
					return nil, err
				}
				g[rule] = entries
			}
			ensureDefaults(g)
			return g, nil
		}

		for _, name := range slices.Sorted(maps.Keys(v)) {
			version, ok := v[name].(string)
			if !ok {
				return nil, fmt.Errorf("version constraint for %q must be a string, got %T", name, v[name])
			}
			g[RuleRequired][name] = version
		}
		return g, nil

	default:
		return nil, fmt.Errorf("unsupported dependency declaration of type %T", raw)
	}
}

// ruleKeyed reports whether the mapping looks rule-keyed. The check is a
// plain scan over the keys; a single grammar hit commits the whole mapping to
// the rule-keyed reading.
func ruleKeyed(m map[string]any) bool {
	for key := range m {
		if ValidRule(key) {
			return true
		}
	}
	return false
}

func normalizeEntries(rule string, raw any) (map[string]string, error) {
	entries := map[string]string{}
	switch v := raw.(type) {
	case nil:
	case map[string]string:
		maps.Copy(entries, v)
	case map[string]any:
		for name, version := range v {
			s, ok := version.(string)
			if !ok {
				return nil, fmt.Errorf("version constraint for %q under rule %q must be a string, got %T", name, rule, version)
			}
			entries[name] = s
		}
	default:
		return nil, fmt.Errorf("dependencies under rule %q must be a mapping, got %T", rule, raw)
	}
	return entries, nil
}

func ensureDefaults(g Graph) {
	if g[RuleRequired] == nil {
		g[RuleRequired] = map[string]string{}
	}
	if g[RuleOptional] == nil {
		g[RuleOptional] = map[string]string{}
	}
}

// Required returns the required dependency table.
func (g Graph) Required() map[string]string {
	return g[RuleRequired]
}

// Optional returns the optional dependency table.
func (g Graph) Optional() map[string]string {
	return g[RuleOptional]
}

// Add records a dependency under required or optional. The sub-table keys are
// dependency names and are not subject to the rule grammar.
func (g Graph) Add(name, version string, optional bool) {
	ensureDefaults(g)
	if optional {
		g[RuleOptional][name] = version
		return
	}
	g[RuleRequired][name] = version
}

// Remove drops a dependency from required or optional.
func (g Graph) Remove(name string, optional bool) {
	ensureDefaults(g)
	if optional {
		delete(g[RuleOptional], name)
		return
	}
	delete(g[RuleRequired], name)
}

// Equal reports whether two graphs hold the same rules and entries.
func (g Graph) Equal(other Graph) bool {
	return maps.EqualFunc(g, other, maps.Equal)
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	out := make(Graph, len(g))
	for rule, entries := range g {
		out[rule] = maps.Clone(entries)
	}
	return out
}

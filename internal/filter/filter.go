// Package filter decides which files of a package tree take part in a build.
package filter

import (
	"fmt"

	"github.com/requirehit/package/internal/pattern"
)

// Hidden files never take part in a build, regardless of the declared
// exclusion list.
var hidden = []*pattern.Pattern{
	pattern.MustCompile(".**"),
	pattern.MustCompile("**/.**"),
}

// Set is an ordered set of compiled filter patterns with an inclusion policy.
// A declared include-only list takes precedence and disables the exclusion
// semantics entirely. Sets are compiled once at package setup and are
// immutable afterwards.
type Set struct {
	includeOnly bool
	include     []*pattern.Pattern
	exclude     []*pattern.Pattern
}

// New compiles a Set from raw filter strings. includeOnly declares that the
// include list is authoritative: when it is set, the exclude list is never
// consulted, and an empty include list includes nothing. The latter is a
// deliberate opt-in reading of an ambiguous input; see DESIGN.md.
func New(include, exclude []string, includeOnly bool) (*Set, error) {
	s := &Set{includeOnly: includeOnly}

	for _, f := range include {
		p, err := pattern.Compile(f)
		if err != nil {
			return nil, fmt.Errorf("include-only filter: %w", err)
		}
		s.include = append(s.include, p)
	}

	for _, f := range exclude {
		p, err := pattern.Compile(f)
		if err != nil {
			return nil, fmt.Errorf("exclude filter: %w", err)
		}
		s.exclude = append(s.exclude, p)
	}

	return s, nil
}

// Include reports whether the relative slash path belongs to the package.
func (s *Set) Include(relpath string) bool {
	if s.includeOnly {
		for _, p := range s.include {
			if p.Match(relpath) {
				return true
			}
		}
		return false
	}

	for _, p := range hidden {
		if p.Match(relpath) {
			return false
		}
	}
	for _, p := range s.exclude {
		if p.Match(relpath) {
			return false
		}
	}
	return true
}

// IncludeOnly reports whether the set is in include-only mode.
func (s *Set) IncludeOnly() bool {
	return s.includeOnly
}

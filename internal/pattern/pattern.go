// Package pattern compiles the filter strings used throughout the build
// pipeline (ignore lists, include-only lists, pipelining rules) into anchored
// matchers over relative, slash-separated file paths.
//
// The filter grammar knows two wildcards: `*` matches a run of word
// characters, spaces, dots and hyphens within one path segment, and `**`
// matches the same character class but additionally spans path separators.
// Everything else is literal. Matching is case-insensitive and always
// anchored at both ends, so "foo*" does not match "foo/bar".
package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	segmentClass = `[\w\s.-]*`
	spanClass    = `[\w\s./-]*`
)

// Pattern is a compiled filter string.
type Pattern struct {
	src string
	re  *regexp.Regexp
}

// Compile turns a filter string into a Pattern. The double wildcard is
// substituted before the single one; doing it the other way around would
// rewrite the two stars of `**` independently.
func Compile(filter string) (*Pattern, error) {
	if cached, ok := cache.Get(filter); ok {
		return cached, nil
	}

	var b strings.Builder
	b.WriteString(`^`)
	for i := 0; i < len(filter); {
		switch {
		case strings.HasPrefix(filter[i:], "**"):
			b.WriteString(spanClass)
			i += 2
		case filter[i] == '*':
			b.WriteString(segmentClass)
			i++
		default:
			r, size := utf8.DecodeRuneInString(filter[i:])
			b.WriteString(regexp.QuoteMeta(string(r)))
			i += size
		}
	}
	b.WriteString(`$`)

	re, err := regexp.Compile(`(?i)` + b.String())
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter %q: %w", filter, err)
	}

	p := &Pattern{src: filter, re: re}
	cache.Add(filter, p)
	return p, nil
}

// MustCompile is Compile for patterns known to be well-formed at authoring
// time, such as the implicit hidden-file filters.
func MustCompile(filter string) *Pattern {
	p, err := Compile(filter)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether the relative slash path matches the pattern.
func (p *Pattern) Match(relpath string) bool {
	return p.re.MatchString(relpath)
}

// String returns the original filter string.
func (p *Pattern) String() string {
	return p.src
}

// Filter strings repeat across packages (the same ignore lists show up in
// every manifest of a workspace), so compiled patterns are shared process-wide
// instead of being recompiled per FilterSet.
var cache *lru.Cache[string, *Pattern]

func init() {
	var err error
	cache, err = lru.New[string, *Pattern](512)
	if err != nil {
		panic(err)
	}
}

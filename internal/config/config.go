// Package config holds the package manifest data structures and the rules
// for resolving a package's configuration from explicit options, a discovered
// manifest and the ignore-file fallbacks.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/goccy/go-yaml"
)

// DefaultEnvironment applies when neither options nor manifest set one.
const DefaultEnvironment = "development"

// EnvironmentProduction omits cosmetic fields such as the description from
// build artifacts.
const EnvironmentProduction = "production"

// ManifestFiles are the manifest names probed at the package root, in order.
var ManifestFiles = []string{"package.yaml", "package.yml", "package.json"}

// IgnoreFiles are the ignore-list fallback sources, probed in order when
// neither options nor manifest declare filters: the package-specific ignore
// file, the dependency-manager ignore file, then the version-control one.
// The first file with any patterns wins.
var IgnoreFiles = []string{".packageignore", ".npmignore", ".gitignore"}

// Manifest is the optional structured file at the package root. Every field
// can also be set via explicit construction options, and explicit options
// always take precedence.
type Manifest struct {
	Name         string         `json:"name,omitempty"`
	Version      string         `json:"version,omitempty"`
	Description  string         `json:"description,omitempty"`
	Environment  string         `json:"environment,omitempty"`
	Dependencies any            `json:"dependencies,omitempty"`
	Adapters     []string       `json:"adapters,omitempty"`
	Pipelining   Pipelining     `json:"pipelining,omitempty"`
	Ignore       []string       `json:"ignore,omitempty"`
	IncludeOnly  *[]string      `json:"includeOnly,omitempty"`
	Storage      *ObjectStorage `json:"storage,omitempty"`
}

// IncludeOnlyDeclared reports whether the manifest declares an include-only
// list at all. A declared-but-empty list is meaningful: it includes nothing.
func (m *Manifest) IncludeOnlyDeclared() bool {
	return m != nil && m.IncludeOnly != nil
}

// Parse validates the manifest bytes against the embedded schema and decodes
// them. YAML being a superset of JSON, package.json parses through the same
// path.
func Parse(bs []byte) (*Manifest, error) {
	if err := Validate(bs); err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(bs, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Load probes the package root for a manifest file. A missing manifest is not
// an error; it returns (nil, nil).
func Load(fsys fs.FS) (*Manifest, error) {
	for _, name := range ManifestFiles {
		bs, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", name, err)
		}
		m, err := Parse(bs)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", name, err)
		}
		return m, nil
	}
	return nil, nil
}

// IgnorePatterns reads the ignore-file fallback chain and returns the
// patterns of the first non-empty source, or nil when no source has any.
func IgnorePatterns(fsys fs.FS) ([]string, error) {
	for _, name := range IgnoreFiles {
		bs, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ignore file %s: %w", name, err)
		}
		if patterns := parseIgnore(bs); len(patterns) > 0 {
			return patterns, nil
		}
	}
	return nil, nil
}

func parseIgnore(bs []byte) []string {
	var patterns []string
	s := bufio.NewScanner(bytes.NewReader(bs))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// PipelineRule is one (file pattern, adapter chain) pair. Rule order is the
// declaration order in the manifest.
type PipelineRule struct {
	Pattern  string   `json:"pattern"`
	Adapters []string `json:"adapters"`
}

// Pipelining is the ordered rule list. Two authoring shapes are accepted: an
// ordered mapping of pattern to adapter chain, or a sequence of single-entry
// mappings. Mapping order is preserved in both.
type Pipelining []PipelineRule

// UnmarshalYAML implements yaml.BytesUnmarshaler. Decoding goes through
// yaml.MapSlice to keep the author's rule order.
func (p *Pipelining) UnmarshalYAML(bs []byte) error {
	var ms yaml.MapSlice
	if err := yaml.Unmarshal(bs, &ms); err == nil {
		return p.fromItems(ms)
	}

	var seq []yaml.MapSlice
	if err := yaml.Unmarshal(bs, &seq); err != nil {
		return fmt.Errorf("pipelining must be a mapping or a sequence of mappings: %w", err)
	}
	for _, ms := range seq {
		if err := p.fromItems(ms); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipelining) fromItems(ms yaml.MapSlice) error {
	for _, item := range ms {
		pattern, ok := item.Key.(string)
		if !ok {
			return fmt.Errorf("pipelining pattern must be a string, got %T", item.Key)
		}
		chain, err := adapterNames(item.Value)
		if err != nil {
			return fmt.Errorf("pipelining rule %q: %w", pattern, err)
		}
		*p = append(*p, PipelineRule{Pattern: pattern, Adapters: chain})
	}
	return nil
}

func adapterNames(v any) ([]string, error) {
	switch names := v.(type) {
	case string:
		return []string{names}, nil
	case []any:
		out := make([]string, len(names))
		for i, n := range names {
			s, ok := n.(string)
			if !ok {
				return nil, fmt.Errorf("adapter identifier must be a string, got %T", n)
			}
			out[i] = s
		}
		return out, nil
	case []string:
		return names, nil
	default:
		return nil, fmt.Errorf("adapter chain must be a string or a sequence of strings, got %T", v)
	}
}

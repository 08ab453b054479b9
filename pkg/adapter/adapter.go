// Package adapter defines the pluggable content transforms a package build
// routes file content through, and the registry that tracks which adapters
// are active for a package.
//
// An adapter is an opaque capability identified by a unique name. Its forward
// transform runs at build time; an adapter that additionally implements
// [Reverser] can be run in the opposite direction at load time to
// reconstitute the original content from a built artifact.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
)

// ErrInvalidAdapter is returned when an identifier resolves to nothing
// carrying a usable name.
var ErrInvalidAdapter = errors.New("invalid adapter")

// Adapter transforms a content stream in the forward (build) direction.
// Transform must fully consume its input before the returned stream is read;
// stage i+1 of a chain observes stage i's complete output.
type Adapter interface {
	Name() string
	Transform(ctx context.Context, r io.Reader) (io.Reader, error)
}

// Reverser is the load-side counterpart of an Adapter.
type Reverser interface {
	Reverse(ctx context.Context, r io.Reader) (io.Reader, error)
}

// LookupFunc resolves adapter names unknown to the catalog, typically by
// dispatching to an externally installed capability. Returning a nil Adapter
// without an error is treated as a failed resolution.
type LookupFunc func(name string) (Adapter, error)

// Registry resolves adapter identifiers and tracks the adapters bound to one
// package. The well-known name table is an injected Catalog instance rather
// than global state, so tests can substitute it freely.
type Registry struct {
	catalog *Catalog
	lookup  LookupFunc
	bound   map[string]Adapter
	order   []string
}

// NewRegistry returns a Registry backed by the given catalog. A nil catalog
// means only concrete adapter values and the external lookup can resolve.
func NewRegistry(catalog *Catalog, lookup LookupFunc) *Registry {
	return &Registry{
		catalog: catalog,
		lookup:  lookup,
		bound:   map[string]Adapter{},
	}
}

// Resolve turns an identifier into an Adapter without binding it. The
// identifier is either a concrete Adapter (already carrying its name) or a
// well-known short name; unrecognized names fall back to the external lookup.
func (r *Registry) Resolve(identifier any) (Adapter, error) {
	switch v := identifier.(type) {
	case Adapter:
		if v.Name() == "" {
			return nil, fmt.Errorf("%w: adapter has no name", ErrInvalidAdapter)
		}
		return v, nil
	case string:
		if r.catalog != nil {
			if a, ok := r.catalog.New(v); ok {
				return a, nil
			}
		}
		if r.lookup != nil {
			a, err := r.lookup(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAdapter, v, err)
			}
			if a != nil {
				return a, nil
			}
		}
		return nil, fmt.Errorf("%w: unknown adapter %q", ErrInvalidAdapter, v)
	default:
		return nil, fmt.Errorf("%w: unsupported identifier of type %T", ErrInvalidAdapter, identifier)
	}
}

// Bind resolves the identifier and registers the adapter under its name.
// Rebinding a name replaces the prior adapter but keeps its position in the
// binding order.
func (r *Registry) Bind(identifier any) (Adapter, error) {
	a, err := r.Resolve(identifier)
	if err != nil {
		return nil, err
	}
	if _, ok := r.bound[a.Name()]; !ok {
		r.order = append(r.order, a.Name())
	}
	r.bound[a.Name()] = a
	return a, nil
}

// Unbind removes the adapter registered under the identifier's name.
func (r *Registry) Unbind(identifier any) error {
	a, err := r.Resolve(identifier)
	if err != nil {
		return err
	}
	delete(r.bound, a.Name())
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == a.Name() })
	return nil
}

// Has reports whether an adapter is bound under the given name.
func (r *Registry) Has(name string) bool {
	_, ok := r.bound[name]
	return ok
}

// Get returns the bound adapter for a name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.bound[name]
	return a, ok
}

// Bound returns the bound adapters in binding order.
func (r *Registry) Bound() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.bound[name])
	}
	return out
}

// Len returns the number of bound adapters.
func (r *Registry) Len() int {
	return len(r.bound)
}

// Names returns the bound adapter names in binding order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Catalog maps well-known adapter names to constructors. The default catalog
// covers the file types the pipeline handles natively.
type Catalog struct {
	factories map[string]func() Adapter
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: map[string]func() Adapter{}}
}

// Register adds a constructor for a well-known name, replacing any previous
// registration.
func (c *Catalog) Register(name string, factory func() Adapter) {
	c.factories[name] = factory
}

// New constructs the adapter registered under name.
func (c *Catalog) New(name string) (Adapter, bool) {
	f, ok := c.factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Known returns the sorted well-known names.
func (c *Catalog) Known() []string {
	return slices.Sorted(maps.Keys(c.factories))
}

// DefaultCatalog returns a catalog of the natively handled file types. The
// built-in adapters pass content through unchanged in both directions;
// real transforms are installed by callers or resolved via the external
// lookup.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, kind := range []string{"js", "css", "less", "html", "json"} {
		c.Register(kind, func() Adapter { return Passthrough(kind) })
	}
	return c
}

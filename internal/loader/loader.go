// Package loader is the consumption-side mirror of the build pipeline: it
// reconstitutes usable content from a build artifact by routing every file
// back through its adapter chain in reverse.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/requirehit/package/internal/artifact"
	"github.com/requirehit/package/pkg/adapter"
)

// ErrNotReversible is returned when a chain member does not expose an
// inverse transform.
var ErrNotReversible = errors.New("adapter has no inverse transform")

// Load reverses every file's chain and returns the reconstituted content
// keyed by relative path. Chain adapters are resolved through the registry by
// the names recorded in the artifact, so the load side must have the same
// adapters available that the build side used.
func Load(ctx context.Context, a *artifact.Artifact, registry *adapter.Registry) (map[string][]byte, error) {
	out := make(map[string][]byte, len(a.Files))
	results := make([][]byte, len(a.Files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range a.Files {
		g.Go(func() error {
			bs, err := reverseChain(ctx, f, registry)
			if err != nil {
				return err
			}
			results[i] = bs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, f := range a.Files {
		out[f.Path] = results[i]
	}
	return out, nil
}

// reverseChain applies the inverse transforms in reverse declaration order:
// the last build-time stage is undone first.
func reverseChain(ctx context.Context, f artifact.File, registry *adapter.Registry) ([]byte, error) {
	var stream io.Reader = bytes.NewReader(f.Data)

	for i := len(f.Chain) - 1; i >= 0; i-- {
		name := f.Chain[i]
		a, err := registry.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("load %q: %w", f.Path, err)
		}
		rev, ok := a.(adapter.Reverser)
		if !ok {
			return nil, fmt.Errorf("load %q: adapter %q: %w", f.Path, name, ErrNotReversible)
		}

		out, err := rev.Reverse(ctx, stream)
		if err != nil {
			return nil, fmt.Errorf("load %q: adapter %q: %w", f.Path, name, err)
		}
		bs, err := io.ReadAll(out)
		if err != nil {
			return nil, fmt.Errorf("load %q: adapter %q: %w", f.Path, name, err)
		}
		stream = bytes.NewReader(bs)
	}

	return io.ReadAll(stream)
}

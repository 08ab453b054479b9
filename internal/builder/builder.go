// Package builder drives discovered content records through their adapter
// chains and aggregates the results into a build artifact.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/requirehit/package/internal/artifact"
	"github.com/requirehit/package/internal/discovery"
	"github.com/requirehit/package/pkg/adapter"
)

var (
	// ErrNoContent is returned when a build is attempted before discovery
	// produced any content records.
	ErrNoContent = errors.New("build precondition failed: no content records")

	// ErrNoAdapters is returned when a build is attempted with no adapters
	// bound to the package.
	ErrNoAdapters = errors.New("build precondition failed: no adapters bound")
)

// ChainError reports an adapter failing while transforming one file. Any
// chain failure aborts the whole build; a partial artifact is never produced.
type ChainError struct {
	Path    string
	Adapter string
	Err     error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("adapter %q failed on %q: %v", e.Adapter, e.Path, e.Err)
}

func (e *ChainError) Unwrap() error { return e.Err }

// Builder runs one package build. Instances are not safe for concurrent use;
// the owning package serializes builds.
type Builder struct {
	fsys        fs.FS
	records     []discovery.Record
	registry    *adapter.Registry
	name        string
	version     string
	environment string
	concurrency int
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{concurrency: runtime.NumCPU()}
}

// WithFS sets the filesystem content records are read from.
func (b *Builder) WithFS(fsys fs.FS) *Builder {
	b.fsys = fsys
	return b
}

// WithRecords sets the discovery snapshot to build from.
func (b *Builder) WithRecords(records []discovery.Record) *Builder {
	b.records = records
	return b
}

// WithRegistry sets the adapter registry whose bindings gate the build.
func (b *Builder) WithRegistry(registry *adapter.Registry) *Builder {
	b.registry = registry
	return b
}

// WithDescriptor stamps the artifact with the package identity.
func (b *Builder) WithDescriptor(name, version, environment string) *Builder {
	b.name = name
	b.version = version
	b.environment = environment
	return b
}

// WithConcurrency caps the number of per-file chains running at once.
func (b *Builder) WithConcurrency(n int) *Builder {
	if n > 0 {
		b.concurrency = n
	}
	return b
}

// Build checks the preconditions, clones the records and runs every clone's
// chain. Chains of different files run concurrently; within one chain the
// stages are strictly sequential, each stage consuming the previous stage's
// complete output. The per-file outputs are joined before aggregation, so a
// returned artifact is always complete.
func (b *Builder) Build(ctx context.Context) (*artifact.Artifact, error) {
	if len(b.records) == 0 {
		return nil, ErrNoContent
	}
	if b.registry == nil || b.registry.Len() == 0 {
		return nil, ErrNoAdapters
	}

	// Records are cloned so repeated or failed builds restart from a clean
	// discovery snapshot.
	cloned := make([]discovery.Record, len(b.records))
	for i, r := range b.records {
		cloned[i] = r.Clone()
	}

	files := make([]artifact.File, len(cloned))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, rec := range cloned {
		g.Go(func() error {
			data, err := b.runChain(ctx, rec)
			if err != nil {
				return err
			}
			files[i] = artifact.File{
				Path:  rec.Path,
				Chain: rec.ChainNames(),
				Data:  data,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	a := &artifact.Artifact{
		Package:     b.name,
		Version:     b.version,
		Environment: b.environment,
		Files:       files,
	}
	a.Stamp()
	return a, nil
}

// runChain opens the record's content and passes it through the chain in
// order. A zero-length chain passes content through unmodified.
func (b *Builder) runChain(ctx context.Context, rec discovery.Record) ([]byte, error) {
	f, err := b.fsys.Open(rec.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", rec.Path, err)
	}
	defer f.Close()

	var stream io.Reader = f
	for _, a := range rec.Chain {
		// Each stage's output is buffered before the next stage starts, so
		// stage i+1 observes stage i's complete output.
		out, err := a.Transform(ctx, stream)
		if err != nil {
			return nil, &ChainError{Path: rec.Path, Adapter: a.Name(), Err: err}
		}
		bs, err := io.ReadAll(out)
		if err != nil {
			return nil, &ChainError{Path: rec.Path, Adapter: a.Name(), Err: err}
		}
		stream = bytes.NewReader(bs)
	}

	return io.ReadAll(stream)
}

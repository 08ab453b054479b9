// Package pack exposes the package build pipeline: construct a Package from
// a source directory and options, discover its content, build an artifact by
// routing every file through its adapter chain, and store or load the result.
package pack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/requirehit/package/internal/artifact"
	"github.com/requirehit/package/internal/builder"
	"github.com/requirehit/package/internal/config"
	"github.com/requirehit/package/internal/deps"
	"github.com/requirehit/package/internal/discovery"
	"github.com/requirehit/package/internal/filter"
	"github.com/requirehit/package/internal/loader"
	"github.com/requirehit/package/internal/logging"
	"github.com/requirehit/package/internal/pipeline"
	"github.com/requirehit/package/pkg/adapter"
)

var (
	ErrNothingToStore = errors.New("nothing to store: no completed build artifact")
	ErrNoRoot         = errors.New("package root is required")
	ErrNoName         = errors.New("package name is required")
	ErrNoVersion      = errors.New("package version is required")
)

// Options configures a Package. Explicit fields take precedence over the
// values found in the package manifest.
type Options struct {
	Root string // package root directory, required

	Name        string
	Version     string
	Description string
	Environment string // defaults to "development"

	// Dependencies accepts the three authoring shapes: a rule-keyed map, a
	// flat name to version map, or a list of names.
	Dependencies any

	// Adapters to bind up front. Each entry is a well-known name or a
	// concrete adapter.Adapter.
	Adapters []any

	Pipelining  config.Pipelining
	Ignore      []string
	IncludeOnly *[]string

	Storage *config.ObjectStorage

	// Collaborators. All optional; defaults cover the common case of
	// building from the local filesystem with the built-in catalog.
	FS      fs.FS
	Walker  discovery.Walker
	Catalog *adapter.Catalog
	Lookup  adapter.LookupFunc
	Logger  *logging.Logger

	// Concurrency bounds the number of adapter chains running at once
	// during a build. Zero means one chain per record.
	Concurrency int
}

// Package is the per-directory build pipeline instance. All derived state
// (dependency graph, filters, pipeline table, adapter registry) is computed
// once at construction; discovery and build results are cached until
// explicitly refreshed.
type Package struct {
	name        string
	version     string
	description string
	environment string
	root        string

	fsys        fs.FS
	walker      discovery.Walker
	deps        deps.Graph
	filters     *filter.Set
	registry    *adapter.Registry
	table       *pipeline.Table
	storage     *config.ObjectStorage
	log         *logging.Logger
	concurrency int

	group singleflight.Group

	mu       sync.Mutex
	records  []discovery.Record
	artifact *artifact.Artifact
}

// New constructs a Package from the options and the manifest discovered at
// the root, options taking precedence. Name and version must be resolvable
// from one of the two or construction fails.
func New(opts Options) (*Package, error) {
	fsys := opts.FS
	root := opts.Root
	if fsys == nil {
		if root == "" {
			return nil, ErrNoRoot
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve package root: %w", err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("resolve package root: %w", err)
		}
		root = abs
		fsys = os.DirFS(abs)
	}

	manifest, err := config.Load(fsys)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		manifest = &config.Manifest{}
	}

	p := &Package{
		name:        firstOf(opts.Name, manifest.Name),
		version:     firstOf(opts.Version, manifest.Version),
		description: firstOf(opts.Description, manifest.Description),
		environment: firstOf(opts.Environment, manifest.Environment, config.DefaultEnvironment),
		root:        root,
		fsys:        fsys,
		log:         opts.Logger,
		concurrency: opts.Concurrency,
	}

	if p.name == "" {
		return nil, ErrNoName
	}
	if p.version == "" {
		return nil, ErrNoVersion
	}
	if p.environment == config.EnvironmentProduction {
		p.description = ""
	}
	if p.log == nil {
		p.log = logging.NewNop()
	}

	rawDeps := opts.Dependencies
	if rawDeps == nil {
		rawDeps = manifest.Dependencies
	}
	if p.deps, err = deps.Normalize(rawDeps); err != nil {
		return nil, err
	}

	if p.filters, err = buildFilters(fsys, opts, manifest); err != nil {
		return nil, err
	}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = adapter.DefaultCatalog()
	}
	p.registry = adapter.NewRegistry(catalog, opts.Lookup)

	identifiers := opts.Adapters
	if identifiers == nil {
		for _, name := range manifest.Adapters {
			identifiers = append(identifiers, name)
		}
	}
	for _, id := range identifiers {
		if _, err := p.registry.Bind(id); err != nil {
			return nil, err
		}
	}

	p.table = pipeline.New(p.registry)
	rules := opts.Pipelining
	if rules == nil {
		rules = manifest.Pipelining
	}
	for _, r := range rules {
		ids := make([]any, len(r.Adapters))
		for i, name := range r.Adapters {
			ids[i] = name
		}
		if err := p.table.AddRule(r.Pattern, ids...); err != nil {
			return nil, err
		}
	}

	p.storage = opts.Storage
	if p.storage == nil {
		p.storage = manifest.Storage
	}
	if err := p.storage.Validate(); err != nil {
		return nil, err
	}

	p.walker = opts.Walker
	if p.walker == nil {
		p.walker = discovery.NewFSWalker(fsys)
	}

	return p, nil
}

// buildFilters merges the filter inputs: an include-only list wins over any
// ignore list, and the ignore list falls back through the conventional
// ignore files when neither options nor manifest declare one.
func buildFilters(fsys fs.FS, opts Options, manifest *config.Manifest) (*filter.Set, error) {
	includeOnly := opts.IncludeOnly
	if includeOnly == nil && manifest.IncludeOnlyDeclared() {
		includeOnly = manifest.IncludeOnly
	}
	if includeOnly != nil {
		return filter.New(*includeOnly, nil, true)
	}

	exclude := opts.Ignore
	if exclude == nil {
		exclude = manifest.Ignore
	}
	if exclude == nil {
		var err error
		if exclude, err = config.IgnorePatterns(fsys); err != nil {
			return nil, err
		}
	}
	return filter.New(nil, exclude, false)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (p *Package) Name() string        { return p.name }
func (p *Package) Version() string     { return p.version }
func (p *Package) Description() string { return p.description }
func (p *Package) Environment() string { return p.environment }
func (p *Package) Root() string        { return p.root }

// Registry exposes the package's adapter registry, e.g. for binding
// additional adapters after construction.
func (p *Package) Registry() *adapter.Registry { return p.registry }

// StorageConfig returns the object storage configuration from options or
// manifest, or nil when the package declares none.
func (p *Package) StorageConfig() *config.ObjectStorage { return p.storage }

// Dependencies returns the normalized dependency graph. The returned graph
// is live: Add and Remove mutate it.
func (p *Package) Dependencies() deps.Graph { return p.deps }

func (p *Package) AddDependency(name, version string, optional bool) {
	p.deps.Add(name, version, optional)
}

func (p *Package) RemoveDependency(name string, optional bool) {
	p.deps.Remove(name, optional)
}

// Discover walks the package root and returns one record per included file,
// annotated with its resolved adapter chain. The result is cached; repeated
// and concurrent calls share one walk until Rediscover is called.
func (p *Package) Discover(ctx context.Context) ([]discovery.Record, error) {
	v, err, _ := p.group.Do("discover", func() (any, error) {
		p.mu.Lock()
		cached := p.records
		p.mu.Unlock()
		if cached != nil {
			return cached, nil
		}

		records, err := discovery.Discover(ctx, p.walker, p.filters, p.table)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.records = records
		p.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]discovery.Record), nil
}

// Rediscover drops the cached discovery result and walks again. The cached
// build artifact is dropped too, as it may reference stale records.
func (p *Package) Rediscover(ctx context.Context) ([]discovery.Record, error) {
	p.mu.Lock()
	p.records = nil
	p.artifact = nil
	p.mu.Unlock()
	return p.Discover(ctx)
}

// Build runs every discovered record through its adapter chain and
// aggregates the outputs into an artifact. The artifact is cached: a second
// call returns it without re-running any adapter. Concurrent callers share
// one build.
func (p *Package) Build(ctx context.Context) (*artifact.Artifact, error) {
	v, err, _ := p.group.Do("build", func() (any, error) {
		p.mu.Lock()
		cached := p.artifact
		p.mu.Unlock()
		if cached != nil {
			return cached, nil
		}

		records, err := p.Discover(ctx)
		if err != nil {
			return nil, err
		}

		a, err := builder.New().
			WithFS(p.fsys).
			WithRecords(records).
			WithRegistry(p.registry).
			WithDescriptor(p.name, p.version, p.environment).
			WithConcurrency(p.concurrency).
			Build(ctx)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.artifact = a
		p.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*artifact.Artifact), nil
}

// Rebuild drops the cached artifact and builds again from the current
// discovery snapshot.
func (p *Package) Rebuild(ctx context.Context) (*artifact.Artifact, error) {
	p.mu.Lock()
	p.artifact = nil
	p.mu.Unlock()
	return p.Build(ctx)
}

// Artifact returns the cached build artifact, or nil if no build has
// completed.
func (p *Package) Artifact() *artifact.Artifact {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.artifact
}

// Storer persists a serialized artifact. internal/storage backends satisfy
// this.
type Storer interface {
	Upload(ctx context.Context, r io.Reader, revision string) error
}

// Store uploads the completed build artifact. Calling Store before a build
// has completed fails; storage failures pass through unchanged.
func (p *Package) Store(ctx context.Context, store Storer) error {
	a := p.Artifact()
	if a == nil {
		return ErrNothingToStore
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(a.Write(pw))
	}()

	if err := store.Upload(ctx, pr, a.Revision); err != nil {
		pr.CloseWithError(err)
		return err
	}
	return pr.Close()
}

// Load reads a serialized artifact and routes every file back through its
// adapter chain in reverse, reconstituting the original content.
func (p *Package) Load(ctx context.Context, r io.Reader) (map[string][]byte, error) {
	a, err := artifact.Read(r)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, a, p.registry)
}

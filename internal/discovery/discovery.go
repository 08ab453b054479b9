// Package discovery walks a package root, applies the package's filters and
// produces one content record per included file, annotated with the adapter
// chain the pipeline table resolves for it.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/requirehit/package/internal/filter"
	"github.com/requirehit/package/internal/pipeline"
	"github.com/requirehit/package/pkg/adapter"
)

// Record is one discovered, filtered source file plus its resolved adapter
// chain. Path is relative to the package root and slash-separated.
type Record struct {
	Path  string
	Dir   string
	Base  string
	Ext   string
	Chain []adapter.Adapter
}

// Clone returns a copy the build orchestrator can own without mutating the
// discovery snapshot.
func (r Record) Clone() Record {
	r.Chain = slices.Clone(r.Chain)
	return r
}

// ChainNames returns the names of the record's chain, in order.
func (r Record) ChainNames() []string {
	names := make([]string, len(r.Chain))
	for i, a := range r.Chain {
		names[i] = a.Name()
	}
	return names
}

// WalkFunc is called by a Walker once per regular file under the root.
type WalkFunc func(relpath string, entry fs.DirEntry) error

// Walker enumerates the files of a package root. Implementations call fn
// once per file and return the first error encountered, which aborts the
// enumeration.
type Walker interface {
	Walk(ctx context.Context, fn WalkFunc) error
}

// FSWalker walks an fs.FS rooted at the package directory.
type FSWalker struct {
	fsys fs.FS
}

// NewFSWalker returns a Walker over the given filesystem.
func NewFSWalker(fsys fs.FS) *FSWalker {
	return &FSWalker{fsys: fsys}
}

// Walk implements Walker. Directory entries are skipped; the walk suspends at
// I/O boundaries and honors context cancellation between files.
func (w *FSWalker) Walk(ctx context.Context, fn WalkFunc) error {
	return fs.WalkDir(w.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(p, d)
	})
}

// Discover enumerates the root via the walker, drops files the filter set
// excludes and resolves each survivor's adapter chain. A walk failure aborts
// the whole discovery; partial results are discarded.
func Discover(ctx context.Context, w Walker, filters *filter.Set, table *pipeline.Table) ([]Record, error) {
	var records []Record

	err := w.Walk(ctx, func(relpath string, _ fs.DirEntry) error {
		relpath = path.Clean(relpath)
		if !filters.Include(relpath) {
			return nil
		}

		base := path.Base(relpath)
		ext := strings.TrimPrefix(path.Ext(base), ".")

		records = append(records, Record{
			Path:  relpath,
			Dir:   path.Dir(relpath),
			Base:  strings.TrimSuffix(base, path.Ext(base)),
			Ext:   ext,
			Chain: table.ResolveChain(relpath),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	slices.SortFunc(records, func(a, b Record) int {
		return strings.Compare(a.Path, b.Path)
	})

	return records, nil
}

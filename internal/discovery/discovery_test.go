package discovery_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/requirehit/package/internal/discovery"
	"github.com/requirehit/package/internal/filter"
	"github.com/requirehit/package/internal/pipeline"
	"github.com/requirehit/package/pkg/adapter"
)

func fixture(t *testing.T, files map[string]string, include, exclude []string, includeOnly bool) (*filter.Set, *pipeline.Table, discovery.Walker) {
	t.Helper()

	filters, err := filter.New(include, exclude, includeOnly)
	if err != nil {
		t.Fatal(err)
	}

	reg := adapter.NewRegistry(adapter.DefaultCatalog(), nil)
	if _, err := reg.Bind("js"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Bind("css"); err != nil {
		t.Fatal(err)
	}

	m := fstest.MapFS{}
	for p, data := range files {
		m[p] = &fstest.MapFile{Data: []byte(data)}
	}

	return filters, pipeline.New(reg), discovery.NewFSWalker(m)
}

func TestDiscover(t *testing.T) {
	filters, table, walker := fixture(t, map[string]string{
		"a.js":          "var a;",
		"b.css":         "body {}",
		"lib/util.js":   "var u;",
		".hidden":       "x",
		"docs/notes.md": "hi",
	}, nil, []string{"docs/**"}, false)

	records, err := discovery.Discover(context.Background(), walker, filters, table)
	if err != nil {
		t.Fatal(err)
	}

	paths := make([]string, len(records))
	for i, r := range records {
		paths[i] = r.Path
	}
	exp := []string{"a.js", "b.css", "lib/util.js"}
	if diff := cmp.Diff(exp, paths); diff != "" {
		t.Errorf("unexpected records (-want +got):\n%s", diff)
	}

	for _, r := range records {
		switch r.Path {
		case "a.js", "lib/util.js":
			if got := r.ChainNames(); len(got) != 1 || got[0] != "js" {
				t.Errorf("%s: expected chain [js], got %v", r.Path, got)
			}
		case "b.css":
			if got := r.ChainNames(); len(got) != 1 || got[0] != "css" {
				t.Errorf("%s: expected chain [css], got %v", r.Path, got)
			}
		}
	}
}

func TestDiscoverPathComponents(t *testing.T) {
	filters, table, walker := fixture(t, map[string]string{
		"lib/util.spec.js": "",
	}, nil, nil, false)

	records, err := discovery.Discover(context.Background(), walker, filters, table)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}

	r := records[0]
	if r.Dir != "lib" || r.Base != "util.spec" || r.Ext != "js" {
		t.Errorf("unexpected components: dir=%q base=%q ext=%q", r.Dir, r.Base, r.Ext)
	}
}

type failingWalker struct {
	after int
	err   error
}

func (w *failingWalker) Walk(_ context.Context, fn discovery.WalkFunc) error {
	for i := 0; i < w.after; i++ {
		if err := fn("ok.js", nil); err != nil {
			return err
		}
	}
	return w.err
}

func TestDiscoverWalkFailureDiscardsPartialResults(t *testing.T) {
	filters, err := filter.New(nil, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	table := pipeline.New(adapter.NewRegistry(adapter.DefaultCatalog(), nil))

	boom := errors.New("disk exploded")
	records, err := discovery.Discover(context.Background(), &failingWalker{after: 2, err: boom}, filters, table)
	if !errors.Is(err, boom) {
		t.Fatalf("expected walk error to propagate, got %v", err)
	}
	if records != nil {
		t.Error("expected no partial results on walk failure")
	}
}

func TestDiscoverContextCancellation(t *testing.T) {
	filters, table, walker := fixture(t, map[string]string{"a.js": ""}, nil, nil, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := discovery.Discover(ctx, walker, filters, table); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestCloneDoesNotShareChain(t *testing.T) {
	filters, table, walker := fixture(t, map[string]string{"a.js": ""}, nil, nil, false)

	records, err := discovery.Discover(context.Background(), walker, filters, table)
	if err != nil {
		t.Fatal(err)
	}

	clone := records[0].Clone()
	clone.Chain[0] = nil
	if records[0].Chain[0] == nil {
		t.Error("mutating a cloned record's chain must not affect the snapshot")
	}
}

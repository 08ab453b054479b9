package loader_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/requirehit/package/internal/artifact"
	"github.com/requirehit/package/internal/loader"
	"github.com/requirehit/package/pkg/adapter"
)

// wrap surrounds content with name-tagged markers and strips them on the way
// back, so reversal order is observable.
type wrap string

func (w wrap) Name() string { return string(w) }

func (w wrap) Transform(_ context.Context, r io.Reader) (io.Reader, error) {
	bs, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(string(w) + "(" + string(bs) + ")"), nil
}

func (w wrap) Reverse(_ context.Context, r io.Reader) (io.Reader, error) {
	bs, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s := string(bs)
	prefix, suffix := string(w)+"(", ")"
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) {
		return nil, errors.New("content was not produced by this adapter")
	}
	return strings.NewReader(strings.TrimSuffix(strings.TrimPrefix(s, prefix), suffix)), nil
}

// oneway has no inverse transform.
type oneway struct{}

func (oneway) Name() string { return "oneway" }

func (oneway) Transform(_ context.Context, r io.Reader) (io.Reader, error) {
	return r, nil
}

func registryWith(t *testing.T, adapters ...adapter.Adapter) *adapter.Registry {
	t.Helper()
	catalog := adapter.NewCatalog()
	for _, a := range adapters {
		catalog.Register(a.Name(), func() adapter.Adapter { return a })
	}
	return adapter.NewRegistry(catalog, nil)
}

func TestLoadReversesChains(t *testing.T) {
	reg := registryWith(t, wrap("less"), wrap("css"))

	a := &artifact.Artifact{
		Package: "demo",
		Version: "1.0.0",
		Files: []artifact.File{
			{Path: "theme.less", Chain: []string{"less", "css"}, Data: []byte("css(less(body))")},
			{Path: "plain.txt", Data: []byte("hello")},
		},
	}

	got, err := loader.Load(context.Background(), a, reg)
	if err != nil {
		t.Fatal(err)
	}

	if string(got["theme.less"]) != "body" {
		t.Errorf("expected chain to unwind in reverse order, got %q", got["theme.less"])
	}
	if string(got["plain.txt"]) != "hello" {
		t.Errorf("expected empty chain to pass through, got %q", got["plain.txt"])
	}
}

func TestLoadRequiresInverse(t *testing.T) {
	reg := registryWith(t, oneway{})

	a := &artifact.Artifact{
		Files: []artifact.File{{Path: "a.js", Chain: []string{"oneway"}, Data: []byte("x")}},
	}

	if _, err := loader.Load(context.Background(), a, reg); !errors.Is(err, loader.ErrNotReversible) {
		t.Fatalf("expected ErrNotReversible, got %v", err)
	}
}

func TestLoadUnknownAdapter(t *testing.T) {
	reg := registryWith(t)

	a := &artifact.Artifact{
		Files: []artifact.File{{Path: "a.js", Chain: []string{"ghost"}, Data: []byte("x")}},
	}

	if _, err := loader.Load(context.Background(), a, reg); !errors.Is(err, adapter.ErrInvalidAdapter) {
		t.Fatalf("expected ErrInvalidAdapter, got %v", err)
	}
}


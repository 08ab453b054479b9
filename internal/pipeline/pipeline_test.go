package pipeline

import (
	"testing"

	"github.com/requirehit/package/pkg/adapter"
)

func names(chain []adapter.Adapter) []string {
	out := make([]string, len(chain))
	for i, a := range chain {
		out[i] = a.Name()
	}
	return out
}

func newTable(t *testing.T) (*Table, *adapter.Registry) {
	t.Helper()
	reg := adapter.NewRegistry(adapter.DefaultCatalog(), nil)
	return New(reg), reg
}

func TestFirstMatchWins(t *testing.T) {
	tbl, _ := newTable(t)

	if err := tbl.AddRule("**.css", "css"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddRule("theme/**", "less", "css"); err != nil {
		t.Fatal(err)
	}

	// Both rules match; the first declared one must win.
	chain := tbl.ResolveChain("theme/site.css")
	if got := names(chain); len(got) != 1 || got[0] != "css" {
		t.Errorf("expected first rule's chain [css], got %v", got)
	}
}

func TestChainOrderPreserved(t *testing.T) {
	tbl, _ := newTable(t)

	if err := tbl.AddRule("**.less", "less", "css"); err != nil {
		t.Fatal(err)
	}

	chain := tbl.ResolveChain("theme.less")
	if got := names(chain); len(got) != 2 || got[0] != "less" || got[1] != "css" {
		t.Errorf("expected chain [less css], got %v", got)
	}
}

func TestAddRuleBindsAdapters(t *testing.T) {
	tbl, reg := newTable(t)

	if reg.Has("less") {
		t.Fatal("less must not be bound before the rule is added")
	}
	if err := tbl.AddRule("**.less", "less", "css"); err != nil {
		t.Fatal(err)
	}
	if !reg.Has("less") || !reg.Has("css") {
		t.Error("expected rule adapters to be bound to the package")
	}
}

func TestDefaultChain(t *testing.T) {
	tbl, reg := newTable(t)

	if _, err := reg.Bind("js"); err != nil {
		t.Fatal(err)
	}

	// No rules declared: the natural-type adapter applies.
	chain := tbl.ResolveChain("app/main.js")
	if got := names(chain); len(got) != 1 || got[0] != "js" {
		t.Errorf("expected default chain [js], got %v", got)
	}

	// Extension without a bound adapter: empty chain, content passes through.
	if chain := tbl.ResolveChain("README.md"); len(chain) != 0 {
		t.Errorf("expected empty chain, got %v", names(chain))
	}
	if chain := tbl.ResolveChain("Makefile"); len(chain) != 0 {
		t.Errorf("expected empty chain for extensionless file, got %v", names(chain))
	}
}

func TestAddRuleUnknownAdapter(t *testing.T) {
	tbl, _ := newTable(t)

	if err := tbl.AddRule("**.coffee", "coffee"); err == nil {
		t.Fatal("expected unknown adapter to fail the rule")
	}
	if tbl.Len() != 0 {
		t.Error("failed rule must not be appended")
	}
}

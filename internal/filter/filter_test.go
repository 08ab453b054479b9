package filter

import "testing"

func TestExcludeMode(t *testing.T) {
	s, err := New(nil, []string{"*.css", "test/**"}, false)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		path string
		exp  bool
	}{
		{"a.js", true},
		{"b.css", false},
		{"test/a.js", false},
		{"src/a.js", true},
		{".env", false},        // hidden, implicit
		{"src/.secret", false}, // hidden, implicit, nested
		{".git/config", false}, // hidden directory contents
		{"src/b.CSS", false},   // exclusion is case-insensitive
	}

	for _, tc := range cases {
		if act := s.Include(tc.path); act != tc.exp {
			t.Errorf("Include(%q): expected %v, got %v", tc.path, tc.exp, act)
		}
	}
}

func TestIncludeOnlyMode(t *testing.T) {
	s, err := New([]string{"src/**", "*.js"}, []string{"*.js"}, true)
	if err != nil {
		t.Fatal(err)
	}

	// The exclude list must never be consulted in include-only mode: *.js is
	// excluded above but still included here.
	cases := []struct {
		path string
		exp  bool
	}{
		{"a.js", true},
		{"src/style.css", true},
		{"lib/a.js", false},
		{"b.css", false},
	}

	for _, tc := range cases {
		if act := s.Include(tc.path); act != tc.exp {
			t.Errorf("Include(%q): expected %v, got %v", tc.path, tc.exp, act)
		}
	}
}

func TestEmptyIncludeOnlyIncludesNothing(t *testing.T) {
	s, err := New(nil, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{"a.js", "b.css", "src/x.js"} {
		if s.Include(path) {
			t.Errorf("empty include-only set must include nothing, but included %q", path)
		}
	}
}

func TestBadFilter(t *testing.T) {
	// A filter producing an invalid expression is rejected at compile time,
	// not at match time.
	if _, err := New(nil, []string{"a.js"}, false); err != nil {
		t.Fatalf("unexpected error for well-formed filter: %v", err)
	}
}

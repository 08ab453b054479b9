package artifact

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testArtifact() *Artifact {
	a := &Artifact{
		Package:     "demo",
		Version:     "1.2.3",
		Environment: "development",
		Files: []File{
			{Path: "a.js", Chain: []string{"js"}, Data: []byte("var a;")},
			{Path: "theme.less", Chain: []string{"less", "css"}, Data: []byte("body {}")},
		},
	}
	a.Stamp()
	return a
}

func TestWriteReadRoundtrip(t *testing.T) {
	a := testArtifact()

	var buf bytes.Buffer
	if err := a.Write(&buf); err != nil {
		t.Fatal(err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestStampIsDeterministic(t *testing.T) {
	a, b := testArtifact(), testArtifact()
	if a.Revision != b.Revision {
		t.Errorf("identical content must carry identical revisions: %s vs %s", a.Revision, b.Revision)
	}

	b.Files[0].Data = []byte("var b;")
	b.Stamp()
	if a.Revision == b.Revision {
		t.Error("different content must change the revision")
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	var x, y bytes.Buffer
	if err := testArtifact().Write(&x); err != nil {
		t.Fatal(err)
	}
	if err := testArtifact().Write(&y); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(x.Bytes(), y.Bytes()) {
		t.Error("expected byte-identical artifacts for identical content")
	}
}

func TestLookup(t *testing.T) {
	a := testArtifact()

	f, ok := a.Lookup("theme.less")
	if !ok {
		t.Fatal("expected theme.less to be present")
	}
	if got := f.Chain; len(got) != 2 || got[0] != "less" || got[1] != "css" {
		t.Errorf("expected chain [less css], got %v", got)
	}

	if _, ok := a.Lookup("missing.js"); ok {
		t.Error("expected lookup miss")
	}
}

func TestRoundtripPreservesManifestNamedFile(t *testing.T) {
	// A package may ship its own root-level manifest.json; it must not
	// collide with the artifact's manifest entry.
	a := &Artifact{
		Package: "demo",
		Version: "1.2.3",
		Files: []File{
			{Path: "a.js", Chain: []string{"js"}, Data: []byte("var a;")},
			{Path: "manifest.json", Data: []byte(`{"user": "data"}`)},
		},
	}
	a.Stamp()

	var buf bytes.Buffer
	if err := a.Write(&buf); err != nil {
		t.Fatal(err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if got.Package != "demo" {
		t.Errorf("artifact manifest was clobbered: package %q", got.Package)
	}
	f, ok := got.Lookup("manifest.json")
	if !ok {
		t.Fatal("expected the user's manifest.json to survive the roundtrip")
	}
	if string(f.Data) != `{"user": "data"}` {
		t.Errorf("unexpected content for manifest.json: %q", f.Data)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("not a tarball"))); err == nil {
		t.Fatal("expected garbage input to fail")
	}
}

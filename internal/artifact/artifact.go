// Package artifact defines the build artifact container: a gzipped tarball
// holding a manifest entry plus one entry per transformed file.
package artifact

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	manifestEntry = "manifest.json"

	// Content entries live under their own prefix so a package file named
	// manifest.json cannot collide with the artifact manifest.
	contentPrefix = "files/"
)

// Artifact is the aggregated, ordered output of running every content record
// through its adapter chain. Files are ordered by relative path.
type Artifact struct {
	Package     string `json:"package"`
	Version     string `json:"version"`
	Environment string `json:"environment,omitempty"`
	Revision    string `json:"revision"`
	Files       []File `json:"files"`
}

// File is one transformed source file inside the artifact. Chain records the
// adapter names the content went through, in forward order; the load side
// replays them in reverse.
type File struct {
	Path  string   `json:"path"`
	Chain []string `json:"chain,omitempty"`
	Data  []byte   `json:"-"`
}

// Lookup returns the file stored under the relative path.
func (a *Artifact) Lookup(path string) (File, bool) {
	for _, f := range a.Files {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// Stamp computes the artifact revision: the hex sha256 over the file paths
// and contents in order. Two builds of identical content carry the same
// revision.
func (a *Artifact) Stamp() {
	h := sha256.New()
	for _, f := range a.Files {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write(f.Data)
		h.Write([]byte{0})
	}
	a.Revision = hex.EncodeToString(h.Sum(nil))
}

// Write serializes the artifact as a gzipped tarball: the manifest entry
// first, then one prefixed entry per file in aggregation order.
func (a *Artifact) Write(w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	manifest, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact manifest: %w", err)
	}

	entries := []File{{Path: manifestEntry, Data: manifest}}
	for _, f := range a.Files {
		entries = append(entries, File{Path: contentPrefix + f.Path, Data: f.Data})
	}
	for _, f := range entries {
		hdr := &tar.Header{
			Name:    f.Path,
			Mode:    0o644,
			Size:    int64(len(f.Data)),
			ModTime: time.Unix(0, 0), // deterministic output
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(f.Data); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// Read parses an artifact written by Write. The manifest entry must come
// first; file contents are matched to manifest entries by path.
func Read(r io.Reader) (*Artifact, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)

	var a *Artifact
	contents := map[string][]byte{}

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact: %w", err)
		}

		bs, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact entry %q: %w", hdr.Name, err)
		}

		if hdr.Name == manifestEntry {
			a = &Artifact{}
			if err := json.Unmarshal(bs, a); err != nil {
				return nil, fmt.Errorf("failed to unmarshal artifact manifest: %w", err)
			}
			continue
		}
		relpath, ok := strings.CutPrefix(hdr.Name, contentPrefix)
		if !ok {
			return nil, fmt.Errorf("artifact has unexpected entry %q", hdr.Name)
		}
		contents[relpath] = bs
	}

	if a == nil {
		return nil, errors.New("artifact has no manifest entry")
	}

	for i := range a.Files {
		bs, ok := contents[a.Files[i].Path]
		if !ok {
			return nil, fmt.Errorf("artifact is missing content for %q", a.Files[i].Path)
		}
		a.Files[i].Data = bs
	}

	return a, nil
}

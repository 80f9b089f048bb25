package gallery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/chaos-io/photo2gallery/util"
)

// Entry is one manifest record, matching one gallery image file.
type Entry struct {
	ID           int    `json:"id"`
	Src          string `json:"src"`
	Alt          string `json:"alt"`
	Category     string `json:"category"`
	OriginalFile string `json:"originalFile"`
}

// ManifestError means every image was written but the manifest describing them was not.
type ManifestError struct {
	Path    string
	Written int
	Err     error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("write manifest %s (%d images already written without a manifest): %v", e.Path, e.Written, e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// WriteManifest replaces the manifest at path with entries as an indented JSON array.
// Non-ASCII text is kept literally.
func WriteManifest(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	return util.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return entries, nil
}

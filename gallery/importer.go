package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/chaos-io/photo2gallery/util"
)

// ImportOptions configures one import run.
type ImportOptions struct {
	SourceDir    string
	OutputDir    string
	ManifestPath string
	Selector     Selector
	Background   color.Color
	MaxWidth     int
	MaxHeight    int
	// FilePrefix names outputs "<FilePrefix>-001<ext>".
	FilePrefix string
	// PublicPath is the site-root path the gallery directory is served under.
	PublicPath string
	// AltFormat builds alt text from the entry id.
	AltFormat string
	Category  string
}

// Failure is a source file that was skipped because processing failed.
type Failure struct {
	File string
	Err  error
}

type ImportReport struct {
	Candidates int
	Entries    []Entry
	Failures   []Failure
	// Replaced counts the entries of the manifest found before the run.
	Replaced int
	// Curated counts replaced entries whose category had been edited away from the default.
	Curated int
}

type Importer struct {
	opts  ImportOptions
	codec Codec
	out   io.Writer
}

// NewImporter creates an importer that prints progress lines to out.
func NewImporter(opts ImportOptions, codec Codec, out io.Writer) *Importer {
	return &Importer{opts: opts, codec: codec, out: out}
}

// Run converts every candidate in the source directory and then writes the manifest.
//
// A file that fails is reported and skipped without consuming an id, so ids stay dense.
// If ctx is cancelled mid-run no manifest is written. A failed manifest write is returned
// as a *ManifestError.
func (im *Importer) Run(ctx context.Context) (*ImportReport, error) {
	if err := os.MkdirAll(im.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(im.opts.ManifestPath), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}

	names, err := im.opts.Selector.List(im.opts.SourceDir)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Candidates: len(names), Entries: []Entry{}}
	im.inspectPrevious(report)
	im.printf("%d photos found (duplicates excluded)\n", len(names))
	im.printf("Source: %s\n", im.opts.SourceDir)
	im.printf("Destination: %s\n", im.opts.OutputDir)
	im.printf("%s\n", separator)

	seq := 1
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		im.printf("[%03d] %s... ", seq, name)
		entry, res, err := im.processOne(name, seq)
		if err != nil {
			im.printf("error: %v\n", err)
			slog.Debug("skipped source image", "file", name, "err", err)
			report.Failures = append(report.Failures, Failure{File: name, Err: err})
			continue
		}
		im.printf("ok %s (%dx%d, %.1fKB)\n", res.name, res.width, res.height, float64(res.size)/1024)
		report.Entries = append(report.Entries, entry)
		seq++
	}

	if err := WriteManifest(im.opts.ManifestPath, report.Entries); err != nil {
		return report, &ManifestError{Path: im.opts.ManifestPath, Written: len(report.Entries), Err: err}
	}
	return report, nil
}

// inspectPrevious records what the run is about to overwrite. An unreadable manifest is not an error.
func (im *Importer) inspectPrevious(report *ImportReport) {
	prev, err := ReadManifest(im.opts.ManifestPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Debug("previous manifest not readable", "path", im.opts.ManifestPath, "err", err)
		}
		return
	}
	report.Replaced = len(prev)
	for _, entry := range prev {
		if entry.Category != im.opts.Category {
			report.Curated++
		}
	}
	if report.Curated > 0 {
		slog.Warn("manifest categories will be reset", "path", im.opts.ManifestPath, "curated", report.Curated, "category", im.opts.Category)
	}
}

type output struct {
	name          string
	width, height int
	size          int
}

func (im *Importer) processOne(name string, seq int) (Entry, output, error) {
	f, err := os.Open(filepath.Join(im.opts.SourceDir, name))
	if err != nil {
		return Entry{}, output{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	img, err := im.codec.Decode(f)
	if err != nil {
		return Entry{}, output{}, fmt.Errorf("decode image: %w", err)
	}
	slog.Debug("decoded source image", "file", name, "mode", ModeOf(img), "size", img.Bounds().Size())

	flat := FitWithin(Flatten(img, im.opts.Background), im.opts.MaxWidth, im.opts.MaxHeight)

	var buf bytes.Buffer
	if err := im.codec.Encode(&buf, flat); err != nil {
		return Entry{}, output{}, fmt.Errorf("encode image: %w", err)
	}

	outName := fmt.Sprintf("%s-%03d%s", im.opts.FilePrefix, seq, im.codec.Ext())
	if err := util.WriteFileAtomic(filepath.Join(im.opts.OutputDir, outName), buf.Bytes(), 0o644); err != nil {
		return Entry{}, output{}, fmt.Errorf("write image: %w", err)
	}

	entry := Entry{
		ID:           seq,
		Src:          path.Join(im.opts.PublicPath, outName),
		Alt:          fmt.Sprintf(im.opts.AltFormat, seq),
		Category:     im.opts.Category,
		OriginalFile: name,
	}
	res := output{
		name:   outName,
		width:  flat.Bounds().Dx(),
		height: flat.Bounds().Dy(),
		size:   buf.Len(),
	}
	return entry, res, nil
}

const separator = "--------------------------------------------------"

func (im *Importer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(im.out, format, args...)
}

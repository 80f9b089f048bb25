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
	"path/filepath"

	"github.com/segmentio/ksuid"

	"github.com/chaos-io/photo2gallery/rembg"
	"github.com/chaos-io/photo2gallery/util"
)

var (
	ErrGalleryMissing = errors.New("gallery directory does not exist")
	ErrNoImages       = errors.New("no images found in gallery directory")
)

type StripOptions struct {
	GalleryDir string
	Background color.Color
	// BackupDir, when set, receives a copy of every original before it is overwritten,
	// under a fresh per-run subdirectory.
	BackupDir string
}

type StripReport struct {
	Total     int
	Succeeded []string
	Failures  []Failure
	// Unsegmented lists images whose removal result kept every pixel opaque.
	Unsegmented []string
	// BackupDir is the per-run backup directory, empty when backups are off.
	BackupDir string
}

// Stripper replaces the background of every gallery image in place.
type Stripper struct {
	opts    StripOptions
	codec   Codec
	remover rembg.Remover
	out     io.Writer
}

func NewStripper(opts StripOptions, codec Codec, remover rembg.Remover, out io.Writer) *Stripper {
	return &Stripper{opts: opts, codec: codec, remover: remover, out: out}
}

// Run processes every gallery image in sorted order, overwriting each file.
//
// This is destructive: without a backup directory the original pixels are gone.
// A missing directory or an empty gallery fails the run before anything is written;
// failures on single images are reported and skipped.
func (s *Stripper) Run(ctx context.Context) (*StripReport, error) {
	info, err := os.Stat(s.opts.GalleryDir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrGalleryMissing, s.opts.GalleryDir)
	}
	if err != nil {
		return nil, fmt.Errorf("stat gallery directory: %w", err)
	}

	names, err := listByExt(s.opts.GalleryDir, s.codec.Ext())
	if err != nil {
		return nil, fmt.Errorf("list gallery directory: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoImages, s.opts.GalleryDir)
	}

	report := &StripReport{Total: len(names)}
	if s.opts.BackupDir != "" {
		report.BackupDir = filepath.Join(s.opts.BackupDir, ksuid.New().String())
		if err := os.MkdirAll(report.BackupDir, 0o755); err != nil {
			return nil, fmt.Errorf("create backup directory: %w", err)
		}
	}

	s.printf("Images: %d\n", len(names))
	if report.BackupDir == "" {
		s.printf("WARNING: files are overwritten in place and no backup is kept\n")
	} else {
		s.printf("Backups: %s\n", report.BackupDir)
	}
	s.printf("%s\n", separator)

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		s.printf("[%03d/%d] %s... ", i+1, len(names), name)
		segmented, err := s.processOne(ctx, name, report.BackupDir)
		if err != nil {
			s.printf("ERROR: %v\n", err)
			slog.Debug("background removal failed", "file", name, "err", err)
			report.Failures = append(report.Failures, Failure{File: name, Err: err})
			continue
		}
		if segmented {
			s.printf("OK\n")
		} else {
			s.printf("OK (no background found)\n")
			report.Unsegmented = append(report.Unsegmented, name)
		}
		report.Succeeded = append(report.Succeeded, name)
	}
	return report, nil
}

// processOne reports whether the removal step made any pixel transparent.
func (s *Stripper) processOne(ctx context.Context, name, backupDir string) (bool, error) {
	path := filepath.Join(s.opts.GalleryDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	cut, err := s.remover.Remove(ctx, data)
	if err != nil {
		return false, fmt.Errorf("remove background: %w", err)
	}

	img, err := s.codec.Decode(bytes.NewReader(cut))
	if err != nil {
		return false, fmt.Errorf("decode result: %w", err)
	}
	segmented := ModeOf(img) != ModeRGB && hasUsefulAlpha(toNRGBA(img))

	var buf bytes.Buffer
	if err := s.codec.Encode(&buf, Flatten(img, s.opts.Background)); err != nil {
		return false, fmt.Errorf("encode image: %w", err)
	}

	if backupDir != "" {
		if err := util.WriteFileAtomic(filepath.Join(backupDir, name), data, 0o644); err != nil {
			return false, fmt.Errorf("backup original: %w", err)
		}
	}
	if err := util.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("write image: %w", err)
	}
	return segmented, nil
}

func (s *Stripper) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

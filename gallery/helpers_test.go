package gallery

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var cream = color.NRGBA{R: 0xFF, G: 0xF8, B: 0xDC, A: 0xFF}

// pngCodec stands in for the WebP codec; it needs no cgo.
type pngCodec struct{}

func (pngCodec) Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}

func (pngCodec) Encode(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func (pngCodec) Ext() string { return ".png" }

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.NoError(t, png.Encode(f, img))
}

func openImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	return img, err
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// funcRemover adapts a function to rembg.Remover.
type funcRemover func(ctx context.Context, data []byte) ([]byte, error)

func (f funcRemover) Remove(ctx context.Context, data []byte) ([]byte, error) {
	return f(ctx, data)
}

var errSegmentation = errors.New("segmentation failed")

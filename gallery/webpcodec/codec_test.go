package webpcodec

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/photo2gallery/gallery"
)

var defaults = Options{Quality: 85, Method: 6}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// withOrientation inserts an EXIF APP1 segment carrying the orientation tag after the SOI marker.
func withOrientation(t *testing.T, jpg []byte, orientation uint16) []byte {
	t.Helper()
	require.Equal(t, []byte{0xFF, 0xD8}, jpg[:2])

	var tiff bytes.Buffer
	tiff.WriteString("MM")
	_ = binary.Write(&tiff, binary.BigEndian, uint16(0x002A))
	_ = binary.Write(&tiff, binary.BigEndian, uint32(8))
	_ = binary.Write(&tiff, binary.BigEndian, uint16(1))      // one IFD entry
	_ = binary.Write(&tiff, binary.BigEndian, uint16(0x0112)) // orientation
	_ = binary.Write(&tiff, binary.BigEndian, uint16(3))      // SHORT
	_ = binary.Write(&tiff, binary.BigEndian, uint32(1))
	_ = binary.Write(&tiff, binary.BigEndian, orientation)
	_ = binary.Write(&tiff, binary.BigEndian, uint16(0))
	_ = binary.Write(&tiff, binary.BigEndian, uint32(0))

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	var out bytes.Buffer
	out.Write(jpg[:2])
	out.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpg[2:])
	return out.Bytes()
}

func TestCodec_Ext(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ".webp", New(defaults).Ext())
}

func TestCodec_EncodeDecode(t *testing.T) {
	t.Parallel()

	c := New(defaults)
	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, solid(40, 30, color.NRGBA{R: 0xFF, G: 0xF8, B: 0xDC, A: 0xFF})))
	assert.Equal(t, "RIFF", buf.String()[:4])
	assert.Equal(t, "WEBP", buf.String()[8:12])

	img, err := c.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(40, 30), img.Bounds().Size())

	r, g, b, _ := img.At(20, 15).RGBA()
	assert.InDelta(t, 0xFF, r>>8, 6)
	assert.InDelta(t, 0xF8, g>>8, 6)
	assert.InDelta(t, 0xDC, b>>8, 6)
}

func TestCodec_EncodeRejectsBadQuality(t *testing.T) {
	t.Parallel()

	c := New(Options{Quality: 150, Method: 6})
	err := c.Encode(&bytes.Buffer{}, solid(4, 4, color.White))
	assert.Error(t, err)
}

func TestCodec_AutoOrient(t *testing.T) {
	t.Parallel()

	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, solid(40, 20, color.White), nil))
	rotated := withOrientation(t, jpg.Bytes(), 6)

	tests := []struct {
		name       string
		autoOrient bool
		want       image.Point
	}{
		{name: "ignored by default", autoOrient: false, want: image.Pt(40, 20)},
		{name: "applied", autoOrient: true, want: image.Pt(20, 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			img, err := New(Options{Quality: 85, Method: 6, AutoOrient: tt.autoOrient}).Decode(bytes.NewReader(rotated))
			require.NoError(t, err)
			assert.Equal(t, tt.want, img.Bounds().Size())
		})
	}
}

func TestCodec_ImporterWritesWebP(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	for name, size := range map[string]image.Point{
		"IMG_0001.jpg":   image.Pt(300, 400),
		"IMG_0001 2.jpg": image.Pt(10, 10),
		"IMG_0002.jpg":   image.Pt(64, 48),
	} {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, solid(size.X, size.Y, color.NRGBA{R: 120, G: 60, B: 30, A: 255}), nil))
		require.NoError(t, os.WriteFile(filepath.Join(src, name), buf.Bytes(), 0o644))
	}

	root := t.TempDir()
	opts := gallery.ImportOptions{
		SourceDir:    src,
		OutputDir:    filepath.Join(root, "gallery"),
		ManifestPath: filepath.Join(root, "gallery.json"),
		Selector: gallery.Selector{
			Extensions:      []string{".jpg", ".jpeg", ".png", ".JPG", ".JPEG", ".PNG"},
			CapturePrefix:   "IMG_",
			DuplicateMarker: " 2",
		},
		Background: color.NRGBA{R: 0xFF, G: 0xF8, B: 0xDC, A: 0xFF},
		MaxWidth:   120,
		MaxHeight:  160,
		FilePrefix: "coiffure",
		PublicPath: "/gallery",
		AltFormat:  "Réalisation coiffure %d - Fat's Hair-Afro",
		Category:   "all",
	}

	c := New(defaults)
	report, err := gallery.NewImporter(opts, c, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, "/gallery/coiffure-001.webp", report.Entries[0].Src)
	assert.Equal(t, "/gallery/coiffure-002.webp", report.Entries[1].Src)

	for name, want := range map[string]image.Point{
		"coiffure-001.webp": image.Pt(120, 160),
		"coiffure-002.webp": image.Pt(64, 48),
	} {
		f, err := os.Open(filepath.Join(opts.OutputDir, name))
		require.NoError(t, err)
		img, err := c.Decode(f)
		_ = f.Close()
		require.NoError(t, err, name)
		assert.Equal(t, want, img.Bounds().Size(), name)
	}
}

// Package webpcodec encodes gallery images as lossy WebP through libwebp.
package webpcodec

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	_ "golang.org/x/image/webp"
)

type Options struct {
	Quality float32
	// Method is the compression effort, 0 (fast) to 6 (smallest output).
	Method int
	// AutoOrient applies the EXIF orientation tag while decoding.
	AutoOrient bool
}

// Codec decodes JPEG, PNG and WebP and encodes lossy WebP.
type Codec struct {
	opts Options
}

func New(opts Options) *Codec {
	return &Codec{opts: opts}
}

func (c *Codec) Decode(r io.Reader) (image.Image, error) {
	return imaging.Decode(r, imaging.AutoOrientation(c.opts.AutoOrient))
}

func (c *Codec) Encode(w io.Writer, img image.Image) error {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, c.opts.Quality)
	if err != nil {
		return fmt.Errorf("webp options: %w", err)
	}
	options.Method = c.opts.Method

	return webp.Encode(w, img, options)
}

func (c *Codec) Ext() string {
	return ".webp"
}

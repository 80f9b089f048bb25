package gallery

import (
	"image"
	"io"
)

// Codec is the image backend: decoding source files and lossy re-encoding of gallery images.
// Color conversion, compositing and resampling live in Flatten and FitWithin.
type Codec interface {
	Decode(r io.Reader) (image.Image, error)
	Encode(w io.Writer, img image.Image) error
	// Ext is the file extension of encoded output, with the leading dot.
	Ext() string
}

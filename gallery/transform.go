package gallery

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// ColorMode is the coarse pixel layout of a decoded image.
type ColorMode int

const (
	// ModeRGB is plain opaque color.
	ModeRGB ColorMode = iota
	// ModePalette is an indexed image; its palette entries may be transparent.
	ModePalette
	// ModeAlpha carries a per-pixel alpha channel.
	ModeAlpha
	// ModeOther covers grayscale, CMYK and anything else that needs converting to RGB.
	ModeOther
)

func (m ColorMode) String() string {
	switch m {
	case ModeRGB:
		return "RGB"
	case ModePalette:
		return "P"
	case ModeAlpha:
		return "RGBA"
	default:
		return "other"
	}
}

// ModeOf classifies img by its concrete type, the way decoders report it.
func ModeOf(img image.Image) ColorMode {
	switch img.(type) {
	case *image.YCbCr:
		return ModeRGB
	case *image.Paletted:
		return ModePalette
	case *image.NRGBA, *image.RGBA, *image.NRGBA64, *image.RGBA64, *image.NYCbCrA, *image.Alpha, *image.Alpha16:
		return ModeAlpha
	default:
		return ModeOther
	}
}

// Flatten returns an opaque copy of img.
//
// Alpha and palette images are composited onto a canvas filled with bg, their own alpha acting
// as the mask. Everything else is converted to RGB unchanged.
func Flatten(img image.Image, bg color.Color) *image.NRGBA {
	switch ModeOf(img) {
	case ModePalette:
		return composite(toNRGBA(img), bg)
	case ModeAlpha:
		return composite(img, bg)
	default:
		return imaging.Clone(img)
	}
}

func composite(img image.Image, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// FitWithin scales img down so it fits maxW x maxH, preserving the aspect ratio.
// Images already within bounds are returned untouched; nothing is ever upscaled.
func FitWithin(img image.Image, maxW, maxH int) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	ratio := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	newW := max(1, int(float64(w)*ratio))
	newH := max(1, int(float64(h)*ratio))

	return resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
}

// hasUsefulAlpha reports whether any pixel is not fully opaque.
func hasUsefulAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			return true
		}
	}
	return false
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

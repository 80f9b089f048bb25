package rembg

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	BackendRemBG    = "rembg"
	BackendBiRefNet = "birefnet"
	BackendNone     = "none"
)

// Remover cuts the subject out of an encoded image. The result is an encoded image
// (PNG for the HTTP backends) whose alpha channel marks the foreground.
type Remover interface {
	Remove(ctx context.Context, data []byte) ([]byte, error)
}

type Options struct {
	Backend string
	// URL is the rembg server endpoint, e.g. http://localhost:7000/api/remove.
	URL   string
	Model string
	// ComfyURL is the ComfyUI base URL for the BiRefNet workflow.
	ComfyURL     string
	PollInterval time.Duration
	// Timeout bounds a single Remove call.
	Timeout time.Duration
}

// New returns the Remover for opts.Backend.
func New(opts Options) (Remover, error) {
	var r Remover
	switch opts.Backend {
	case BackendRemBG:
		r = NewServerRemBG(opts.URL, opts.Model)
	case BackendBiRefNet:
		r = NewBiRefNetRemBG(opts.ComfyURL, opts.PollInterval)
	case BackendNone, "":
		return NewDefaultRemBG(), nil
	default:
		return nil, fmt.Errorf("unknown background removal backend %q", opts.Backend)
	}
	if opts.Timeout > 0 {
		r = &timeoutRemover{next: r, timeout: opts.Timeout}
	}
	return r, nil
}

// DefaultRemBG keeps the image as it is.
type DefaultRemBG struct{}

func NewDefaultRemBG() *DefaultRemBG {
	return &DefaultRemBG{}
}

func (d *DefaultRemBG) Remove(ctx context.Context, data []byte) ([]byte, error) {
	return data, nil
}

type timeoutRemover struct {
	next    Remover
	timeout time.Duration
}

func (t *timeoutRemover) Remove(ctx context.Context, data []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Remove(ctx, data)
}

// extFor guesses a file extension for upload names from the content.
func extFor(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

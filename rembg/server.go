package rembg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"

	"github.com/segmentio/ksuid"

	nhttp "github.com/chaos-io/photo2gallery/util/http"
)

// ServerRemBG calls a rembg HTTP server ("rembg s"), which answers with a PNG cut-out.
type ServerRemBG struct {
	url   string
	model string
	cli   nhttp.IClient
}

func NewServerRemBG(url, model string) *ServerRemBG {
	return &ServerRemBG{
		url:   url,
		model: model,
		cli:   nhttp.NewHTTPClient(nhttp.WithTimeout(0)),
	}
}

/*
	curl -X POST "http://localhost:7000/api/remove" \
	  -F "file=@coiffure-001.webp" \
	  -F "model=u2net" -o out.png
*/
func (s *ServerRemBG) Remove(ctx context.Context, data []byte) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", ksuid.New().String()+extFor(data))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if s.model != "" {
		_ = writer.WriteField("model", s.model)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	var out []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: s.url,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       body,
		Response:   &out,
	}
	if err := s.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("rembg server returned an empty image")
	}

	slog.Debug("background removed", "backend", BackendRemBG, "in", len(data), "out", len(out))
	return out, nil
}

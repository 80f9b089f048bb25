package rembg

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	nhttp "github.com/chaos-io/photo2gallery/util/http"
)

// node ids in workflow.json
const (
	loadImageNode = "1"
	saveImageNode = "3"
)

//go:embed workflow.json
var workflowData []byte

// BiRefNetRemBG runs the embedded BiRefNet workflow on a ComfyUI server.
type BiRefNetRemBG struct {
	baseURL      string
	clientID     string
	pollInterval time.Duration
	cli          nhttp.IClient
}

func NewBiRefNetRemBG(baseURL string, pollInterval time.Duration) *BiRefNetRemBG {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &BiRefNetRemBG{
		baseURL:      strings.TrimSuffix(baseURL, "/") + "/",
		clientID:     ksuid.New().String(),
		pollInterval: pollInterval,
		cli:          nhttp.NewHTTPClient(),
	}
}

func (b *BiRefNetRemBG) Remove(ctx context.Context, data []byte) ([]byte, error) {
	uploaded, err := b.uploadImage(ctx, data)
	if err != nil {
		return nil, err
	}

	promptID, err := b.prompt(ctx, uploaded)
	if err != nil {
		return nil, err
	}

	out, err := b.waitForOutput(ctx, promptID)
	if err != nil {
		return nil, err
	}

	return b.download(ctx, out)
}

type uploadImageResp struct {
	Name      string `json:"name"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

/*
	curl -X POST "$BASE_URL/api/upload/image" \
	  -F "image=@my_image.png" \
	  -F "type=input" \
	  -F "overwrite=true"

{"name": "my_image1.png", "subfolder": "", "type": "input"}%
*/
func (b *BiRefNetRemBG) uploadImage(ctx context.Context, data []byte) (*uploadImageResp, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "photo2gallery-"+ksuid.New().String()+extFor(data))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}

	_ = writer.WriteField("type", "input")
	_ = writer.WriteField("overwrite", "true")
	_ = writer.Close()

	resp := &uploadImageResp{}
	reqParam := &nhttp.RequestParam{
		RequestURI: b.baseURL + "api/upload/image",
		Method:     "POST",
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       body,
		Response:   resp,
	}
	if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	if resp.Name == "" {
		return nil, errors.New("upload image: empty file name in response")
	}

	slog.Debug("get the response", "response", resp)
	return resp, nil
}

type workflowNode struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

type promptReq struct {
	Prompt   map[string]workflowNode `json:"prompt"`
	ClientID string                  `json:"client_id"`
}

type promptResp struct {
	PromptID   string         `json:"prompt_id"`
	Number     int            `json:"number"`
	NodeErrors map[string]any `json:"node_errors"`
}

/*
	curl -X POST "http://127.0.0.1:8188/api/prompt" \
	  -H "Content-Type: application/json" \
	  -d '{"prompt": '"$(cat workflow.json)"'}'
*/
func (b *BiRefNetRemBG) prompt(ctx context.Context, uploaded *uploadImageResp) (string, error) {
	wk := map[string]workflowNode{}
	if err := json.Unmarshal(workflowData, &wk); err != nil {
		return "", fmt.Errorf("unmarshal workflow data: %w", err)
	}

	load, ok := wk[loadImageNode]
	if !ok {
		return "", fmt.Errorf("workflow has no node %s", loadImageNode)
	}
	image := uploaded.Name
	if uploaded.Subfolder != "" {
		image = uploaded.Subfolder + "/" + uploaded.Name
	}
	load.Inputs["image"] = image

	resp := &promptResp{}
	reqParam := &nhttp.RequestParam{
		RequestURI: b.baseURL + "api/prompt",
		Method:     "POST",
		Body:       promptReq{Prompt: wk, ClientID: b.clientID},
		Response:   resp,
	}
	if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return "", fmt.Errorf("queue prompt: %w", err)
	}
	if len(resp.NodeErrors) > 0 {
		return "", fmt.Errorf("queue prompt: node errors %v", resp.NodeErrors)
	}
	if resp.PromptID == "" {
		return "", errors.New("queue prompt: empty prompt id")
	}

	slog.Debug("prompt queued", "prompt_id", resp.PromptID, "number", resp.Number)
	return resp.PromptID, nil
}

type imageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

type historyEntry struct {
	Status struct {
		StatusStr string `json:"status_str"`
		Completed bool   `json:"completed"`
	} `json:"status"`
	Outputs map[string]struct {
		Images []imageRef `json:"images"`
	} `json:"outputs"`
}

// waitForOutput polls the prompt history until the workflow finished and returns its saved image.
func (b *BiRefNetRemBG) waitForOutput(ctx context.Context, promptID string) (*imageRef, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		history := map[string]historyEntry{}
		reqParam := &nhttp.RequestParam{
			RequestURI: b.baseURL + "api/history/" + url.PathEscape(promptID),
			Method:     "GET",
			Response:   &history,
		}
		if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
			return nil, fmt.Errorf("get history: %w", err)
		}

		if entry, ok := history[promptID]; ok {
			if entry.Status.StatusStr == "error" {
				return nil, fmt.Errorf("workflow %s failed", promptID)
			}
			if entry.Status.Completed {
				out := entry.Outputs[saveImageNode]
				if len(out.Images) == 0 {
					return nil, fmt.Errorf("workflow %s produced no image", promptID)
				}
				return &out.Images[0], nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *BiRefNetRemBG) download(ctx context.Context, ref *imageRef) ([]byte, error) {
	q := url.Values{}
	q.Set("filename", ref.Filename)
	q.Set("subfolder", ref.Subfolder)
	q.Set("type", ref.Type)

	var out []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: b.baseURL + "api/view?" + q.Encode(),
		Method:     "GET",
		Response:   &out,
	}
	if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("download output: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("download output: empty image")
	}
	return out, nil
}

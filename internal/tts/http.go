package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type httpSynth struct {
	endpoint string
	model    string
	timeout  time.Duration
	client   *http.Client
}

// NewHTTPSynth posts each request as a multipart form to endpoint: fields
// text, language, speed and model plus the reference audio as speaker_wav.
// A 200 response body is the synthesized WAV.
func NewHTTPSynth(endpoint, model string, timeout time.Duration) Synthesizer {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &httpSynth{endpoint: endpoint, model: model, timeout: timeout, client: http.DefaultClient}
}

func (h *httpSynth) Synthesize(ctx context.Context, req Request) error {
	body, contentType, err := h.encode(req)
	if err != nil {
		return &SynthesisError{Backend: "http", Err: err}
	}

	reqCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, h.endpoint, body)
	if err != nil {
		return &SynthesisError{Backend: "http", Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "audio/wav")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return &SynthesisError{Backend: "http", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return synthErr("http", "tts server error %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if err := writeFile(req.OutputPath, resp.Body); err != nil {
		return &SynthesisError{Backend: "http", Err: err}
	}
	return nil
}

func (h *httpSynth) encode(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"text":     req.Text,
		"language": req.Language,
		"speed":    strconv.FormatFloat(req.Speed, 'f', -1, 64),
	}
	if h.model != "" {
		fields["model"] = h.model
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	ref, err := os.Open(req.ReferencePath)
	if err != nil {
		return nil, "", fmt.Errorf("open reference voice: %w", err)
	}
	defer ref.Close()
	part, err := w.CreateFormFile("speaker_wav", filepath.Base(req.ReferencePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, ref); err != nil {
		return nil, "", fmt.Errorf("read reference voice: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("empty audio response")
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("write audio: %w", err)
	}
	return nil
}

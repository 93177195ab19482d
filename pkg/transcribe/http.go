package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultHTTPTimeout is the default whole-request timeout for one
// transcription call.
const DefaultHTTPTimeout = 60 * time.Second

// HTTPEngine submits recordings to a whisper-server-style HTTP backend: a
// multipart POST of a 16-bit WAV rendition of the canonical samples, with
// a JSON reply carrying the transcribed text.
type HTTPEngine struct {
	endpoint   string
	httpClient *http.Client
}

// HTTPOption configures an HTTPEngine.
type HTTPOption func(*HTTPEngine)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(e *HTTPEngine) { e.httpClient = client }
}

// NewHTTPEngine creates an engine posting to the given transcription
// endpoint (e.g. "http://localhost:8090/transcribe").
func NewHTTPEngine(endpoint string, opts ...HTTPOption) *HTTPEngine {
	e := &HTTPEngine{endpoint: endpoint}
	for _, opt := range opts {
		opt(e)
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return e
}

// Readiness implements Engine. The backend is assumed reachable; a dead
// backend surfaces as a transcription failure instead.
func (e *HTTPEngine) Readiness() Readiness {
	return ReadinessReady
}

// transcriptionResponse is the backend's reply shape.
type transcriptionResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Duration   float64 `json:"duration"`
}

// Transcribe implements Engine.
func (e *HTTPEngine) Transcribe(ctx context.Context, samples []float32) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("transcribe: create form file: %w", err)
	}
	if _, err := part.Write(EncodeWAV(samples)); err != nil {
		return "", fmt.Errorf("transcribe: write audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("transcribe: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("transcribe: create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return "", fmt.Errorf("transcribe: backend returned %d: %s", resp.StatusCode, b)
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("transcribe: decode response: %w", err)
	}
	return result.Text, nil
}

// Package chat streams incremental AI replies from an OpenAI-compatible
// chat completions endpoint.
//
// A Client issues one streaming request at a time: starting a new request
// supersedes the previous one, with the guarantee that a superseded
// session's callbacks never fire after the point of supersession. Tokens
// are delivered in arrival order; the terminal callback (complete or
// error) fires at most once per session.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/packages/ssestream"
)

const (
	// DefaultBaseURL is the default chat completions API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultSystemPrompt is the fixed system instruction sent ahead of
	// every user prompt.
	DefaultSystemPrompt = "You are a helpful voice assistant. Keep your answers brief and conversational."

	// DefaultTemperature is the sampling temperature.
	DefaultTemperature = 0.7

	// DefaultTimeout bounds one whole streaming exchange. There is no
	// retry: a timed-out request surfaces as a stream error and the user
	// re-initiates.
	DefaultTimeout = 120 * time.Second

	doneSentinel = "[DONE]"
)

// Client is a cancellable streaming chat completions client.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	temperature  float64
	timeout      time.Duration
	httpClient   *http.Client
	logger       *slog.Logger

	mu     sync.Mutex
	active *session // owned slot: at most one in-flight stream
}

// Option is a function that configures the client.
type Option func(*Client)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel sets the model identifier sent with each request.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithSystemPrompt sets the fixed system instruction.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) { c.systemPrompt = prompt }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(c *Client) { c.temperature = temp }
}

// WithTimeout sets the whole-request deadline for one streaming exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a new streaming chat client. An empty apiKey is
// permitted at construction time; starting a stream then fails with
// ErrNoCredentials before any network I/O.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		model:        DefaultModel,
		systemPrompt: DefaultSystemPrompt,
		temperature:  DefaultTemperature,
		timeout:      DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Start begins streaming a reply to prompt. Any previously active session
// is cancelled first; its callbacks will not fire after Start returns.
// Start itself returns immediately; all callbacks for the new session fire
// asynchronously, in order, from a single goroutine:
//
//   - onToken for each non-empty content delta, in arrival order
//   - then exactly one of onComplete or onError
//
// unless the session is cancelled or superseded first, in which case
// remaining callbacks are suppressed.
func (c *Client) Start(prompt string, onToken func(string), onComplete func(), onError func(error)) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	s := &session{id: uuid.NewString(), cancel: cancel}

	c.mu.Lock()
	prev := c.active
	c.active = s
	c.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}

	go c.run(ctx, s, prompt, onToken, onComplete, onError)
}

// Cancel cancels the currently active session, if any. No further
// callbacks fire for it. Safe to call when no session is active.
func (c *Client) Cancel() {
	c.mu.Lock()
	s := c.active
	c.active = nil
	c.mu.Unlock()
	if s != nil {
		s.Cancel()
	}
}

func (c *Client) run(ctx context.Context, s *session, prompt string, onToken func(string), onComplete func(), onError func(error)) {
	defer s.cancel()

	if c.apiKey == "" {
		s.finish(func() { onError(ErrNoCredentials) })
		return
	}

	body, err := json.Marshal(&completionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream:      true,
		Temperature: c.temperature,
	})
	if err != nil {
		s.finish(func() { onError(fmt.Errorf("chat: marshal request: %w", err)) })
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		s.finish(func() { onError(fmt.Errorf("chat: create request: %w", err)) })
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		s.finish(func() { onError(fmt.Errorf("chat: do request: %w", err)) })
		return
	}

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBody))
		resp.Body.Close()
		s.finish(func() { onError(&HTTPError{Status: resp.StatusCode, Body: string(b)}) })
		return
	}

	decoder := ssestream.NewDecoder(resp)
	defer decoder.Close()

	for decoder.Next() {
		// Cancellation is polled once per record; worst-case latency to
		// honor it is one record.
		if s.isCancelled() {
			return
		}

		data := bytes.TrimSpace(decoder.Event().Data)
		if string(data) == doneSentinel {
			s.finish(onComplete)
			return
		}

		var chunk completionChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// One malformed record must not abort a healthy stream.
			c.logger.Debug("chat: skipping malformed stream record", "session", s.id, "err", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if !s.emit(func() { onToken(delta) }) {
				return
			}
		}
	}

	if err := decoder.Err(); err != nil {
		s.finish(func() { onError(fmt.Errorf("chat: read stream: %w", err)) })
		return
	}

	// Stream exhausted without an explicit end sentinel.
	s.finish(onComplete)
}

// Package assistant orchestrates the voice-to-assistant session
// lifecycle: record microphone audio, transcribe it, and stream an AI
// reply token by token.
//
// A Controller owns a single orchestration goroutine; every state
// mutation happens there, serialized, so no two transitions interleave.
// The capture source feeds the accumulator from its own real-time
// context, and worker completions (transcription results, permission
// prompts, stream callbacks) re-enter the orchestration goroutine as
// events tagged with a cycle generation — events from a superseded cycle
// are discarded, which is what makes ClearAll and stream supersession
// race-free.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shawnjuqi/sentient/pkg/audio/accum"
	"github.com/shawnjuqi/sentient/pkg/chat"
	"github.com/shawnjuqi/sentient/pkg/transcribe"
)

// Streamer produces an incremental AI reply to a prompt. Starting a new
// stream supersedes the previous one; a superseded or cancelled stream
// fires no further callbacks. *chat.Client satisfies this.
type Streamer interface {
	Start(prompt string, onToken func(string), onComplete func(), onError func(error))
	Cancel()
}

// Hooks are optional observation points, all invoked on the orchestration
// goroutine. They must not call back into the Controller.
type Hooks struct {
	// StateChanged fires after every state transition.
	StateChanged func(State)

	// Token fires for each reply token, in arrival order.
	Token func(string)

	// Failure fires when a cycle fails or a guard rejects a transition.
	Failure func(*Error)
}

// Config assembles a Controller's collaborators.
type Config struct {
	Capture  CaptureSource
	Engine   transcribe.Engine
	Streamer Streamer

	// Permission is optional; it defaults to GrantedPermission.
	Permission Permission

	Hooks  Hooks
	Logger *slog.Logger
}

// Controller is the session state machine binding the audio accumulator,
// the transcription engine, and the streaming client together.
type Controller struct {
	capture    CaptureSource
	engine     transcribe.Engine
	streamer   Streamer
	permission Permission
	hooks      Hooks
	logger     *slog.Logger
	accum      *accum.Accumulator

	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan func()
	quit   chan struct{}
	once   sync.Once

	// Owned by the orchestration goroutine.
	state       State
	lastErr     *Error
	transcript  string
	reply       strings.Builder
	gen         uint64
	cycleCtx    context.Context
	cycleCancel context.CancelFunc
}

// New creates a Controller and starts its orchestration goroutine.
func New(cfg Config) (*Controller, error) {
	if cfg.Capture == nil {
		return nil, errors.New("assistant: capture source is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("assistant: transcription engine is required")
	}
	if cfg.Streamer == nil {
		return nil, errors.New("assistant: streamer is required")
	}
	if cfg.Permission == nil {
		cfg.Permission = GrantedPermission{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Controller{
		capture:    cfg.Capture,
		engine:     cfg.Engine,
		streamer:   cfg.Streamer,
		permission: cfg.Permission,
		hooks:      cfg.Hooks,
		logger:     cfg.Logger,
		cmds:       make(chan func(), 16),
		quit:       make(chan struct{}),
		state:      StateIdle,
	}
	c.accum = accum.New(accum.WithErrorHandler(func(err error) {
		e := &Error{Kind: ErrConversionFailure, Err: err}
		cfg.Logger.Warn("assistant: " + e.Message())
	}))
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.cycleCtx, c.cycleCancel = context.WithCancel(c.ctx)

	go c.loop()
	return c, nil
}

// Close shuts the controller down: cancels any active stream, stops
// capture, and stops the orchestration goroutine.
func (c *Controller) Close() error {
	c.once.Do(func() {
		c.do(func() {
			c.streamer.Cancel()
			if c.state == StateRecording {
				_ = c.capture.Stop()
			}
			c.cycleCancel()
		})
		c.cancel()
		close(c.quit)
	})
	return nil
}

// StartRecording begins a new capture cycle. Any in-flight stream is
// cancelled first. Guard failures (engine not ready, already recording)
// leave the state unchanged and return the specific error; a denied
// permission settles into the failed state. An undetermined permission
// triggers a single asynchronous permission request, after which
// recording is retried once automatically.
func (c *Controller) StartRecording() error {
	var err error
	c.do(func() { err = c.startRecording(false) })
	return err
}

// StopRecording stops capture and advances the cycle: drain, transcribe,
// then stream the reply. It returns once the transition out of recording
// has happened; transcription and streaming continue asynchronously.
func (c *Controller) StopRecording() error {
	var err error
	c.do(func() { err = c.stopRecording() })
	return err
}

// ClearAll forcibly cancels any active stream, clears the accumulator,
// discards the current transcript and reply, and resets to idle. The
// network cancellation itself is asynchronous but produces no further
// observable callbacks.
func (c *Controller) ClearAll() {
	c.do(func() { c.clearAll() })
}

// State returns the current session state.
func (c *Controller) State() State {
	var s State
	c.do(func() { s = c.state })
	return s
}

// LastError returns the failure of the most recent cycle, or nil.
func (c *Controller) LastError() *Error {
	var e *Error
	c.do(func() { e = c.lastErr })
	return e
}

// Transcript returns the transcription of the current cycle.
func (c *Controller) Transcript() string {
	var s string
	c.do(func() { s = c.transcript })
	return s
}

// Reply returns the reply text streamed so far in the current cycle.
func (c *Controller) Reply() string {
	var s string
	c.do(func() { s = c.reply.String() })
	return s
}

// loop is the orchestration goroutine: it executes commands and worker
// completion events one at a time.
func (c *Controller) loop() {
	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-c.quit:
			return
		}
	}
}

// do runs fn on the orchestration goroutine and waits for it.
func (c *Controller) do(fn func()) {
	done := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(done) }:
	case <-c.quit:
		return
	}
	select {
	case <-done:
	case <-c.quit:
	}
}

// post submits a worker completion event without waiting.
func (c *Controller) post(fn func()) {
	select {
	case c.cmds <- fn:
	case <-c.quit:
	}
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.hooks.StateChanged != nil {
		c.hooks.StateChanged(s)
	}
}

// fail transitions to the failed state carrying err. Failed is not a dead
// end: StartRecording is accepted from it immediately.
func (c *Controller) fail(err *Error) error {
	c.lastErr = err
	c.setState(StateFailed)
	if c.hooks.Failure != nil {
		c.hooks.Failure(err)
	}
	return err
}

// report surfaces a guard failure without a state transition.
func (c *Controller) report(err *Error) error {
	if c.hooks.Failure != nil {
		c.hooks.Failure(err)
	}
	return err
}

// newCycle supersedes the current cycle: in-flight worker completions for
// the old generation will be discarded on arrival.
func (c *Controller) newCycle() {
	c.gen++
	c.cycleCancel()
	c.cycleCtx, c.cycleCancel = context.WithCancel(c.ctx)
	c.transcript = ""
	c.reply.Reset()
	c.lastErr = nil
}

func (c *Controller) startRecording(isRetry bool) error {
	if c.state == StateRecording {
		return fmt.Errorf("assistant: already recording")
	}

	// Starting a new recording supersedes whatever the previous cycle
	// was still doing.
	c.streamer.Cancel()
	c.newCycle()
	c.setState(StateIdle)

	switch c.permission.Status() {
	case PermissionGranted:
	case PermissionDenied:
		return c.fail(&Error{Kind: ErrPermissionDenied})
	default:
		if isRetry {
			return c.fail(&Error{Kind: ErrPermissionDenied})
		}
		gen := c.gen
		go func() {
			status, err := c.permission.Request(c.cycleCtx)
			c.post(func() { c.finishPermission(gen, status, err) })
		}()
		return c.report(&Error{Kind: ErrPermissionUndetermined})
	}

	switch c.engine.Readiness() {
	case transcribe.ReadinessReady:
	case transcribe.ReadinessLoading:
		return c.report(&Error{Kind: ErrModelNotLoaded, Err: errors.New("model is still loading")})
	default:
		return c.report(&Error{Kind: ErrModelNotLoaded, Err: errors.New("model unavailable")})
	}

	c.accum.Clear()
	if err := c.capture.Start(c.accum.Process); err != nil {
		return c.fail(&Error{Kind: ErrCaptureFailure, Err: err})
	}
	c.setState(StateRecording)
	return nil
}

// finishPermission re-enters after an asynchronous permission request.
// The single built-in retry of the state machine lives here.
func (c *Controller) finishPermission(gen uint64, status PermissionStatus, err error) {
	if gen != c.gen {
		return
	}
	if err != nil {
		c.fail(&Error{Kind: ErrPermissionDenied, Err: err})
		return
	}
	if status != PermissionGranted {
		c.fail(&Error{Kind: ErrPermissionDenied})
		return
	}
	if err := c.startRecording(true); err != nil {
		c.logger.Warn("assistant: retry after permission grant failed", "err", err)
	}
}

func (c *Controller) stopRecording() error {
	if c.state != StateRecording {
		return fmt.Errorf("assistant: not recording")
	}
	if err := c.capture.Stop(); err != nil {
		c.logger.Warn("assistant: stop capture", "err", err)
	}

	samples := c.accum.Drain()
	if len(samples) == 0 {
		return c.fail(&Error{Kind: ErrNoAudioCaptured})
	}

	c.setState(StateTranscribing)
	gen := c.gen
	ctx := c.cycleCtx
	go func() {
		text, err := c.engine.Transcribe(ctx, samples)
		c.post(func() { c.finishTranscribe(gen, text, err) })
	}()
	return nil
}

func (c *Controller) finishTranscribe(gen uint64, text string, err error) {
	if gen != c.gen || c.state != StateTranscribing {
		return
	}
	if err != nil {
		c.fail(&Error{Kind: ErrTranscriptionFailure, Err: err})
		return
	}
	if strings.TrimSpace(text) == "" {
		c.fail(&Error{Kind: ErrNoSpeechDetected})
		return
	}

	c.transcript = text
	c.setState(StateStreaming)
	gen = c.gen
	c.streamer.Start(text,
		func(tok string) { c.post(func() { c.streamToken(gen, tok) }) },
		func() { c.post(func() { c.streamComplete(gen) }) },
		func(err error) { c.post(func() { c.streamError(gen, err) }) },
	)
}

func (c *Controller) streamToken(gen uint64, tok string) {
	if gen != c.gen || c.state != StateStreaming {
		return
	}
	c.reply.WriteString(tok)
	if c.hooks.Token != nil {
		c.hooks.Token(tok)
	}
}

func (c *Controller) streamComplete(gen uint64) {
	if gen != c.gen || c.state != StateStreaming {
		return
	}
	c.setState(StateIdle)
}

func (c *Controller) streamError(gen uint64, err error) {
	if gen != c.gen || c.state != StateStreaming {
		return
	}
	c.fail(mapStreamError(err))
}

func (c *Controller) clearAll() {
	c.streamer.Cancel()
	if c.state == StateRecording {
		if err := c.capture.Stop(); err != nil {
			c.logger.Warn("assistant: stop capture", "err", err)
		}
	}
	c.accum.Clear()
	c.newCycle()
	c.setState(StateIdle)
}

// mapStreamError folds streaming client errors into the taxonomy.
func mapStreamError(err error) *Error {
	if errors.Is(err, chat.ErrNoCredentials) {
		return &Error{Kind: ErrNoCredentials}
	}
	if httpErr, ok := chat.AsHTTPError(err); ok {
		return &Error{Kind: ErrHTTP, Status: httpErr.Status, Body: httpErr.Body}
	}
	return &Error{Kind: ErrNetworkFailure, Err: err}
}

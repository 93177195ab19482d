// Package accum provides a thread-safe accumulator that bridges a
// real-time audio producer to a non-real-time consumer.
//
// The producer pushes raw frames via Process; the consumer takes the
// accumulated canonical samples in one shot via Drain. The critical
// section around the buffer is kept minimal: format conversion, the
// expensive part, runs outside the lock so the producer is never blocked
// behind a resample of its own previous frame.
package accum

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/shawnjuqi/sentient/pkg/audio/pcm"
	"github.com/shawnjuqi/sentient/pkg/audio/resample"
)

// Accumulator accumulates canonical 16 kHz mono float32 samples.
//
// Process is intended to be called from a single producer goroutine;
// Drain and Clear may be called concurrently with it and with each other.
// Conversion state is created lazily from the first frame's format,
// replaced wholesale when the format changes, and discarded by Clear so
// the next recording re-detects its input format.
type Accumulator struct {
	onError func(error)

	mu   sync.Mutex
	gen  uint64 // bumped by Clear; in-flight conversions for older gens are dropped
	conv *resample.Converter
	buf  []float32
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithErrorHandler sets the handler for per-frame conversion failures.
// The handler is invoked from the producer context and must not block.
// The default logs via slog at warn level.
func WithErrorHandler(fn func(error)) Option {
	return func(a *Accumulator) {
		a.onError = fn
	}
}

// New creates an empty Accumulator.
func New(opts ...Option) *Accumulator {
	a := &Accumulator{
		onError: func(err error) {
			slog.Warn("accum: dropping frame", "err", err)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Process converts one raw frame to canonical samples and appends them to
// the buffer. Conversion failures are reported to the error handler and
// the frame is dropped; processing continues on subsequent frames.
func (a *Accumulator) Process(frame pcm.Frame) {
	a.mu.Lock()
	conv := a.conv
	if conv == nil || conv.Format() != frame.Format {
		c, err := resample.NewConverter(frame.Format)
		if err != nil {
			a.mu.Unlock()
			a.onError(fmt.Errorf("accum: create converter: %w", err))
			return
		}
		a.conv = c
		conv = c
	}
	gen := a.gen
	a.mu.Unlock()

	// Conversion runs outside the lock.
	samples, err := conv.Convert(frame.Data)
	if err != nil {
		a.onError(fmt.Errorf("accum: convert frame: %w", err))
		return
	}
	if len(samples) == 0 {
		return
	}

	a.mu.Lock()
	if a.gen == gen {
		a.buf = append(a.buf, samples...)
	}
	a.mu.Unlock()
}

// Drain atomically swaps the buffer for an empty one and returns the
// previous contents in capture order. A second Drain with no intervening
// Process returns an empty slice. Conversion state is left in place so a
// continuing producer keeps feeding the next segment seamlessly.
func (a *Accumulator) Drain() []float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf := a.buf
	a.buf = nil
	return buf
}

// Clear empties the buffer and discards the conversion state, forcing
// re-detection of the input format on the next Process. Any conversion
// already in flight is dropped rather than appended to the fresh buffer.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	a.buf = nil
	a.conv = nil
}

// Len returns the number of buffered canonical samples.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}

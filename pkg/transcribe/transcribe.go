// Package transcribe defines the speech-to-text engine contract consumed
// by the session controller, together with adapters for HTTP and
// websocket transcription backends.
//
// Engines consume canonical samples (16 kHz mono float32, as produced by
// the accumulator) and return best-effort text. An empty result is valid:
// it means no speech was detected, and interpreting that is the caller's
// concern.
package transcribe

import (
	"context"
	"fmt"
)

// Readiness reports whether an engine can accept work.
type Readiness int

const (
	// ReadinessLoading means the engine is still initializing (e.g. a
	// model is being loaded). Work submitted now would fail.
	ReadinessLoading Readiness = iota

	// ReadinessReady means the engine accepts work.
	ReadinessReady

	// ReadinessUnavailable means the engine failed to initialize and
	// will not recover.
	ReadinessUnavailable
)

// String returns the string representation of the readiness state.
func (r Readiness) String() string {
	switch r {
	case ReadinessLoading:
		return "loading"
	case ReadinessReady:
		return "ready"
	case ReadinessUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("readiness(%d)", int(r))
	}
}

// Engine converts canonical audio samples to text.
type Engine interface {
	// Readiness reports whether the engine can accept work right now.
	Readiness() Readiness

	// Transcribe converts an ordered sequence of 16 kHz mono float32
	// samples to text. The result may be empty when no speech was
	// detected.
	Transcribe(ctx context.Context, samples []float32) (string, error)
}

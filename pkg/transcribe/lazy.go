package transcribe

import (
	"context"
	"fmt"
	"sync"
)

// Lazy wraps an Engine whose construction is slow (model download, warm
// up) and loads it in the background. Until loading finishes it reports
// ReadinessLoading; a failed load settles into ReadinessUnavailable and
// stays there.
type Lazy struct {
	mu     sync.Mutex
	state  Readiness
	engine Engine
	err    error
}

// NewLazy starts loading an engine in the background using load.
func NewLazy(load func() (Engine, error)) *Lazy {
	l := &Lazy{state: ReadinessLoading}
	go func() {
		engine, err := load()
		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.state = ReadinessUnavailable
			l.err = err
			return
		}
		l.state = ReadinessReady
		l.engine = engine
	}()
	return l
}

// Readiness reports the loading state; once ready it defers to the
// backing engine's own readiness.
func (l *Lazy) Readiness() Readiness {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == ReadinessReady {
		return l.engine.Readiness()
	}
	return l.state
}

// Transcribe forwards to the loaded engine, or fails if it is not ready.
func (l *Lazy) Transcribe(ctx context.Context, samples []float32) (string, error) {
	l.mu.Lock()
	engine, state, err := l.engine, l.state, l.err
	l.mu.Unlock()

	switch state {
	case ReadinessReady:
		return engine.Transcribe(ctx, samples)
	case ReadinessUnavailable:
		return "", fmt.Errorf("transcribe: engine unavailable: %w", err)
	default:
		return "", fmt.Errorf("transcribe: engine still loading")
	}
}

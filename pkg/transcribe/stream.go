package transcribe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/shawnjuqi/sentient/pkg/audio/pcm"
)

// DefaultStreamChunkBytes is the size of one binary audio message sent to
// a streaming backend: 100 ms of canonical 16-bit audio.
const DefaultStreamChunkBytes = pcm.CanonicalRate / 10 * 2

// StreamEngine submits recordings to a websocket streaming transcription
// backend. Protocol: a JSON config message describing the audio, then
// binary PCM chunks, then a JSON end marker; the backend answers with
// JSON results and the engine returns the final one.
type StreamEngine struct {
	url    string
	dialer *websocket.Dialer
	chunk  int
}

// StreamOption configures a StreamEngine.
type StreamOption func(*StreamEngine)

// WithDialer sets a custom websocket dialer.
func WithDialer(dialer *websocket.Dialer) StreamOption {
	return func(e *StreamEngine) { e.dialer = dialer }
}

// WithChunkBytes sets the binary chunk size in bytes.
func WithChunkBytes(n int) StreamOption {
	return func(e *StreamEngine) { e.chunk = n }
}

// NewStreamEngine creates an engine for the given websocket URL
// (e.g. "ws://localhost:8090/stream").
func NewStreamEngine(url string, opts ...StreamOption) *StreamEngine {
	e := &StreamEngine{
		url:    url,
		dialer: websocket.DefaultDialer,
		chunk:  DefaultStreamChunkBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Readiness implements Engine.
func (e *StreamEngine) Readiness() Readiness {
	return ReadinessReady
}

type streamConfig struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Format     string `json:"format"`
}

type streamEnd struct {
	End bool `json:"end"`
}

type streamResult struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
	Error string `json:"error,omitempty"`
}

// Transcribe implements Engine.
func (e *StreamEngine) Transcribe(ctx context.Context, samples []float32) (string, error) {
	conn, _, err := e.dialer.DialContext(ctx, e.url, nil)
	if err != nil {
		return "", fmt.Errorf("transcribe: connect websocket: %w", err)
	}
	defer conn.Close()

	config := streamConfig{
		SampleRate: pcm.CanonicalRate,
		Channels:   pcm.CanonicalChannels,
		Format:     "pcm_s16le",
	}
	if err := conn.WriteJSON(config); err != nil {
		return "", fmt.Errorf("transcribe: send config: %w", err)
	}

	data := make([]byte, len(samples)*2)
	encodeInt16(data, samples)
	for off := 0; off < len(data); off += e.chunk {
		end := min(off+e.chunk, len(data))
		if err := conn.WriteMessage(websocket.BinaryMessage, data[off:end]); err != nil {
			return "", fmt.Errorf("transcribe: send audio: %w", err)
		}
	}
	if err := conn.WriteJSON(streamEnd{End: true}); err != nil {
		return "", fmt.Errorf("transcribe: send end marker: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		var result streamResult
		if err := readJSON(conn, &result); err != nil {
			return "", fmt.Errorf("transcribe: read result: %w", err)
		}
		if result.Error != "" {
			return "", fmt.Errorf("transcribe: backend error: %s", result.Error)
		}
		if result.Final {
			return result.Text, nil
		}
	}
}

func readJSON(conn *websocket.Conn, v any) error {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

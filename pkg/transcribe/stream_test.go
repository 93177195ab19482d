package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestStreamEngineTranscribe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Config message first.
		var config streamConfig
		if _, data, err := conn.ReadMessage(); err != nil {
			t.Errorf("read config: %v", err)
			return
		} else if err := json.Unmarshal(data, &config); err != nil {
			t.Errorf("decode config: %v", err)
			return
		}
		if config.SampleRate != 16000 || config.Channels != 1 || config.Format != "pcm_s16le" {
			t.Errorf("config = %+v, want 16000/1/pcm_s16le", config)
		}

		// Binary chunks until the end marker.
		var audioBytes int
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				t.Errorf("read chunk: %v", err)
				return
			}
			if mt == websocket.BinaryMessage {
				audioBytes += len(data)
				continue
			}
			var end streamEnd
			if err := json.Unmarshal(data, &end); err != nil || !end.End {
				t.Errorf("expected end marker, got %q", data)
				return
			}
			break
		}
		if audioBytes != 3200*2 {
			t.Errorf("received %d audio bytes, want %d", audioBytes, 3200*2)
		}

		conn.WriteJSON(streamResult{Text: "partial", Final: false})
		conn.WriteJSON(streamResult{Text: "hello world", Final: true})
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	e := NewStreamEngine(url)
	text, err := e.Transcribe(context.Background(), make([]float32, 3200))
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("Transcribe = %q, want %q", text, "hello world")
	}
}

func TestStreamEngineBackendError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.TextMessage && strings.Contains(string(data), "end") {
				break
			}
		}
		conn.WriteJSON(streamResult{Error: "decode failed"})
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	e := NewStreamEngine(url)
	if _, err := e.Transcribe(context.Background(), make([]float32, 160)); err == nil {
		t.Fatal("Transcribe succeeded despite backend error")
	}
}

func TestStreamEngineDialFailure(t *testing.T) {
	e := NewStreamEngine("ws://127.0.0.1:1/stream")
	if _, err := e.Transcribe(context.Background(), make([]float32, 16)); err == nil {
		t.Fatal("Transcribe succeeded without a backend")
	}
}

// Package mediafile replays WAV and MP3 files as capture frames, for
// offline runs and demos where no microphone is available.
package mediafile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hajimehoshi/go-mp3"

	"github.com/shawnjuqi/sentient/pkg/audio/pcm"
)

// Decode reads an audio file and returns its format and raw sample data.
// The container is chosen by file extension: .wav or .mp3.
func Decode(path string) (pcm.Format, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm.Format{}, nil, fmt.Errorf("mediafile: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return DecodeWAV(f)
	case ".mp3":
		return DecodeMP3(f)
	default:
		return pcm.Format{}, nil, fmt.Errorf("mediafile: unsupported file type %q", filepath.Ext(path))
	}
}

// DecodeWAV parses a RIFF/WAVE container holding 16-bit PCM or 32-bit
// float samples and returns the format and the raw data chunk.
func DecodeWAV(r io.Reader) (pcm.Format, []byte, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return pcm.Format{}, nil, fmt.Errorf("mediafile: read RIFF header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return pcm.Format{}, nil, fmt.Errorf("mediafile: not a WAVE file")
	}

	var format pcm.Format
	var haveFmt bool
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return pcm.Format{}, nil, fmt.Errorf("mediafile: no data chunk found")
			}
			return pcm.Format{}, nil, fmt.Errorf("mediafile: read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return pcm.Format{}, nil, fmt.Errorf("mediafile: read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return pcm.Format{}, nil, fmt.Errorf("mediafile: short fmt chunk")
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:])
			channels := int(binary.LittleEndian.Uint16(body[2:]))
			rate := int(binary.LittleEndian.Uint32(body[4:]))
			bits := binary.LittleEndian.Uint16(body[14:])

			var encoding pcm.Encoding
			switch {
			case audioFormat == 1 && bits == 16:
				encoding = pcm.EncodingInt16LE
			case audioFormat == 3 && bits == 32:
				encoding = pcm.EncodingFloat32LE
			default:
				return pcm.Format{}, nil, fmt.Errorf("mediafile: unsupported WAV format %d/%d-bit", audioFormat, bits)
			}
			format = pcm.Format{SampleRate: rate, Channels: channels, Encoding: encoding}
			haveFmt = true
		case "data":
			if !haveFmt {
				return pcm.Format{}, nil, fmt.Errorf("mediafile: data chunk before fmt chunk")
			}
			data := make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return pcm.Format{}, nil, fmt.Errorf("mediafile: read data chunk: %w", err)
			}
			return format, data, nil
		default:
			// Skip unknown chunks (LIST, fact, ...). Chunks are padded
			// to even sizes.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return pcm.Format{}, nil, fmt.Errorf("mediafile: skip %s chunk: %w", id, err)
			}
		}
	}
}

// DecodeMP3 decodes an MP3 stream. The decoder always produces 16-bit
// stereo at the source sample rate.
func DecodeMP3(r io.Reader) (pcm.Format, []byte, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return pcm.Format{}, nil, fmt.Errorf("mediafile: decode mp3: %w", err)
	}
	data, err := io.ReadAll(decoder)
	if err != nil {
		return pcm.Format{}, nil, fmt.Errorf("mediafile: read mp3 samples: %w", err)
	}
	format := pcm.Format{
		SampleRate: decoder.SampleRate(),
		Channels:   2,
		Encoding:   pcm.EncodingInt16LE,
	}
	return format, data, nil
}

// Source replays a decoded file as a sequence of capture frames. It
// satisfies the controller's CaptureSource contract; frames are pushed
// from a goroutine in chunks of roughly 100 ms and delivery finishes on
// its own when the file is exhausted.
type Source struct {
	path string

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// New creates a file source for path.
func New(path string) *Source {
	return &Source{path: path}
}

// Start decodes the file and begins pushing frames into sink.
func (s *Source) Start(sink func(pcm.Frame)) error {
	format, data, err := Decode(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("mediafile: already replaying")
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done

	chunk := format.SampleRate / 10 * format.BlockBytes()
	go func() {
		defer close(done)
		for off := 0; off < len(data); off += chunk {
			select {
			case <-stop:
				return
			default:
			}
			end := min(off+chunk, len(data))
			sink(pcm.Frame{Format: format, Data: data[off:end]})
		}
	}()
	return nil
}

// Stop ends the replay early.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	close(s.stop)
	<-s.done
	s.running = false
	return nil
}

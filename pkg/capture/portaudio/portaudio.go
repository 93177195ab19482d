// Package portaudio captures microphone audio through PortAudio and
// delivers it as raw frames in the device's native format. Format
// normalization is the accumulator's concern, not this package's.
package portaudio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/shawnjuqi/sentient/pkg/audio/pcm"
)

// Config describes the capture stream to open.
type Config struct {
	// SampleRate in Hz. Defaults to 48000.
	SampleRate int

	// Channels is the number of input channels. Defaults to 1.
	Channels int

	// FramesPerBuffer is the PortAudio buffer size. Defaults to 1024.
	FramesPerBuffer int
}

func (c *Config) applyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 48000
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
	if c.FramesPerBuffer == 0 {
		c.FramesPerBuffer = 1024
	}
}

// Source is a microphone capture source. It satisfies the controller's
// CaptureSource contract: Start spawns a reader goroutine (the real-time
// producer context) that pushes frames into the sink until Stop.
type Source struct {
	config Config

	mu      sync.Mutex
	stream  *portaudio.Stream
	stop    chan struct{}
	stopped chan struct{}
}

// New creates a microphone source.
func New(config Config) *Source {
	config.applyDefaults()
	return &Source{config: config}
}

// Start opens the default input device and begins delivering frames.
func (s *Source) Start(sink func(pcm.Frame)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		return fmt.Errorf("portaudio: already capturing")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio: initialize: %w", err)
	}

	in := make([]int16, s.config.FramesPerBuffer*s.config.Channels)
	stream, err := portaudio.OpenDefaultStream(
		s.config.Channels, 0,
		float64(s.config.SampleRate),
		s.config.FramesPerBuffer,
		in,
	)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("portaudio: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("portaudio: start stream: %w", err)
	}

	s.stream = stream
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})

	format := pcm.Format{
		SampleRate: s.config.SampleRate,
		Channels:   s.config.Channels,
		Encoding:   pcm.EncodingInt16LE,
	}
	go s.readLoop(stream, in, format, sink, s.stop, s.stopped)
	return nil
}

func (s *Source) readLoop(stream *portaudio.Stream, in []int16, format pcm.Format, sink func(pcm.Frame), stop, stopped chan struct{}) {
	defer close(stopped)
	data := make([]byte, len(in)*2)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if err := stream.Read(); err != nil {
			// Overflows are routine when the consumer briefly stalls;
			// keep reading.
			if err == portaudio.InputOverflowed {
				continue
			}
			return
		}
		for i, v := range in {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
		}
		sink(pcm.Frame{Format: format, Data: data})
	}
}

// Stop ends capture and releases the device. After Stop returns the sink
// is no longer invoked.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}

	close(s.stop)
	s.stream.Abort()
	<-s.stopped

	err := s.stream.Close()
	s.stream = nil
	portaudio.Terminate()
	if err != nil {
		return fmt.Errorf("portaudio: close stream: %w", err)
	}
	return nil
}

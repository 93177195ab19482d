// Package resample converts raw audio frames of arbitrary format into the
// canonical representation (16 kHz mono float32) used by the rest of the
// pipeline.
//
// Sample rate conversion uses a pure Go resampler (no CGO/FFI dependencies).
package resample

import (
	"encoding/binary"
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/shawnjuqi/sentient/pkg/audio/pcm"
)

// Converter converts frames of a single source format to canonical samples.
//
// A Converter is built for one source format and carries resampler filter
// state across calls, so feeding it back-to-back frames produces a
// continuous sample stream with no samples dropped at frame boundaries.
// It is not safe for concurrent use: the accumulator invokes it from the
// producer context only, and replaces it wholesale when the source format
// changes.
type Converter struct {
	src pcm.Format

	// rs is nil when the source rate already matches the canonical rate.
	rs resampling.Resampler
}

// NewConverter creates a Converter for the given source format.
func NewConverter(src pcm.Format) (*Converter, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	var rs resampling.Resampler
	if src.SampleRate != pcm.CanonicalRate {
		config := &resampling.Config{
			InputRate:  float64(src.SampleRate),
			OutputRate: float64(pcm.CanonicalRate),
			Channels:   pcm.CanonicalChannels,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		}
		var err error
		rs, err = resampling.New(config)
		if err != nil {
			return nil, fmt.Errorf("resample: create resampler: %w", err)
		}
	}

	return &Converter{src: src, rs: rs}, nil
}

// Format returns the source format this converter was built for.
func (c *Converter) Format() pcm.Format {
	return c.src
}

// Convert decodes one frame's worth of raw sample data and returns the
// canonical samples it produced. The result may be shorter or longer than
// the input frame when resampling; it may be empty while the resampler is
// priming its filter.
func (c *Converter) Convert(data []byte) ([]float32, error) {
	mono, err := c.decodeMono(data)
	if err != nil {
		return nil, err
	}
	if len(mono) == 0 {
		return nil, nil
	}

	if c.rs == nil {
		out := make([]float32, len(mono))
		for i, s := range mono {
			out[i] = float32(s)
		}
		return out, nil
	}

	resampled, err := c.rs.Process(mono)
	if err != nil {
		return nil, fmt.Errorf("resample: process: %w", err)
	}
	out := make([]float32, len(resampled))
	for i, s := range resampled {
		out[i] = float32(s)
	}
	return out, nil
}

// decodeMono decodes interleaved samples to normalized [-1, 1] float64 and
// downmixes to mono by averaging channels.
func (c *Converter) decodeMono(data []byte) ([]float64, error) {
	bb := c.src.BlockBytes()
	if len(data)%bb != 0 {
		return nil, fmt.Errorf("resample: truncated frame: %d bytes, block size %d", len(data), bb)
	}
	blocks := len(data) / bb
	channels := c.src.Channels
	sb := c.src.Encoding.SampleBytes()

	mono := make([]float64, blocks)
	for i := range blocks {
		var sum float64
		for ch := range channels {
			off := i*bb + ch*sb
			switch c.src.Encoding {
			case pcm.EncodingInt16LE:
				s := int16(binary.LittleEndian.Uint16(data[off:]))
				sum += float64(s) / 32768.0
			case pcm.EncodingInt32LE:
				s := int32(binary.LittleEndian.Uint32(data[off:]))
				sum += float64(s) / 2147483648.0
			case pcm.EncodingFloat32LE:
				sum += float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:])))
			}
		}
		mono[i] = sum / float64(channels)
	}
	return mono, nil
}

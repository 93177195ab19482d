// Package pcm defines the raw audio frame and format types shared by the
// capture, conversion, and accumulation layers.
//
// Capture sources deliver Frames in whatever format the device produces;
// the conversion layer normalizes them to the canonical representation:
// 16 kHz, mono, float32 samples.
package pcm

import (
	"fmt"
	"time"
)

// Canonical format constants. Everything downstream of the accumulator
// (transcription, level metering) consumes samples in this format.
const (
	CanonicalRate     = 16000
	CanonicalChannels = 1
)

// Encoding identifies the sample encoding of a raw frame.
type Encoding int

const (
	EncodingInt16LE Encoding = iota
	EncodingInt32LE
	EncodingFloat32LE
)

// String returns the string representation of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingInt16LE:
		return "s16le"
	case EncodingInt32LE:
		return "s32le"
	case EncodingFloat32LE:
		return "f32le"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// SampleBytes returns the number of bytes per sample for this encoding.
func (e Encoding) SampleBytes() int {
	switch e {
	case EncodingInt16LE:
		return 2
	case EncodingInt32LE, EncodingFloat32LE:
		return 4
	default:
		return 0
	}
}

// Format describes the layout of samples in a raw frame.
type Format struct {
	// SampleRate is the sample rate in Hz (e.g., 16000, 44100, 48000).
	SampleRate int

	// Channels is the number of interleaved channels.
	Channels int

	// Encoding is the per-sample encoding.
	Encoding Encoding
}

// Validate reports whether the format is usable.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("pcm: invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("pcm: invalid channel count %d", f.Channels)
	}
	if f.Encoding.SampleBytes() == 0 {
		return fmt.Errorf("pcm: invalid encoding %v", f.Encoding)
	}
	return nil
}

// String returns a compact description like "48000Hz/2ch/s16le".
func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%v", f.SampleRate, f.Channels, f.Encoding)
}

// BlockBytes returns the number of bytes per sample block (one sample for
// each channel).
func (f Format) BlockBytes() int {
	return f.Encoding.SampleBytes() * f.Channels
}

// Frame is one block of raw audio samples delivered by a capture source.
// The Data slice is owned by the producer and is only valid for the
// duration of the call it is passed to; consumers must copy what they keep.
type Frame struct {
	Format Format
	Data   []byte
}

// Samples returns the number of per-channel sample blocks in the frame.
func (f Frame) Samples() int {
	bb := f.Format.BlockBytes()
	if bb == 0 {
		return 0
	}
	return len(f.Data) / bb
}

// Duration returns the playback duration of the frame.
func (f Frame) Duration() time.Duration {
	if f.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.Samples()) * time.Second / time.Duration(f.Format.SampleRate)
}

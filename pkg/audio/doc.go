// Package audio provides audio processing utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - pcm: raw frame and format types shared across the pipeline
//   - resample: conversion of arbitrary formats to canonical 16 kHz mono float32
//   - accum: thread-safe accumulation bridging the real-time capture
//     context to the non-real-time transcription consumer
//
// Example usage:
//
//	import (
//	    "github.com/shawnjuqi/sentient/pkg/audio/accum"
//	    "github.com/shawnjuqi/sentient/pkg/audio/pcm"
//	)
//
//	a := accum.New()
//	a.Process(pcm.Frame{Format: format, Data: data}) // real-time context
//	samples := a.Drain()                             // orchestration context
package audio

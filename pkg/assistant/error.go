package assistant

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the failure taxonomy of a session cycle. Each kind
// carries its specific payload in the Error struct. Cancellation is not an
// error: a cancelled stream suppresses further callbacks rather than
// surfacing a kind.
type ErrorKind int

const (
	// ErrPermissionDenied: OS capture permission was denied.
	ErrPermissionDenied ErrorKind = iota

	// ErrPermissionUndetermined: permission has not been settled yet; the
	// controller is requesting it and will retry recording once if granted.
	ErrPermissionUndetermined

	// ErrModelNotLoaded: the transcription engine is loading or unavailable.
	ErrModelNotLoaded

	// ErrNoAudioCaptured: the recording produced zero samples.
	ErrNoAudioCaptured

	// ErrNoSpeechDetected: transcription produced empty or whitespace-only text.
	ErrNoSpeechDetected

	// ErrConversionFailure: a frame could not be converted. Non-fatal,
	// reported per frame, never aborts the producer.
	ErrConversionFailure

	// ErrTranscriptionFailure: the transcription engine failed.
	ErrTranscriptionFailure

	// ErrNoCredentials: no API credential is configured for streaming.
	ErrNoCredentials

	// ErrHTTP: the streaming endpoint returned a non-success status.
	ErrHTTP

	// ErrNetworkFailure: the streaming request failed at the transport level.
	ErrNetworkFailure

	// ErrCaptureFailure: the capture source failed to start.
	ErrCaptureFailure
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrPermissionDenied:
		return "permission_denied"
	case ErrPermissionUndetermined:
		return "permission_undetermined"
	case ErrModelNotLoaded:
		return "model_not_loaded"
	case ErrNoAudioCaptured:
		return "no_audio_captured"
	case ErrNoSpeechDetected:
		return "no_speech_detected"
	case ErrConversionFailure:
		return "conversion_failure"
	case ErrTranscriptionFailure:
		return "transcription_failure"
	case ErrNoCredentials:
		return "no_credentials"
	case ErrHTTP:
		return "http_error"
	case ErrNetworkFailure:
		return "network_failure"
	case ErrCaptureFailure:
		return "capture_failure"
	default:
		return fmt.Sprintf("error_kind(%d)", int(k))
	}
}

// Error is a session failure: one kind from the taxonomy plus its
// kind-specific payload.
type Error struct {
	Kind ErrorKind

	// Status and Body are set for ErrHTTP: the response status code and
	// the body truncated by the streaming client.
	Status int
	Body   string

	// Err is the underlying cause, set for wrapper kinds such as
	// ErrTranscriptionFailure and ErrNetworkFailure.
	Err error
}

func (e *Error) Error() string {
	return "assistant: " + e.Message()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns a single human-readable description of the failure.
func (e *Error) Message() string {
	switch e.Kind {
	case ErrPermissionDenied:
		return "microphone permission denied"
	case ErrPermissionUndetermined:
		return "waiting for microphone permission"
	case ErrModelNotLoaded:
		if e.Err != nil {
			return fmt.Sprintf("speech model not ready: %v", e.Err)
		}
		return "speech model not ready"
	case ErrNoAudioCaptured:
		return "no audio captured"
	case ErrNoSpeechDetected:
		return "no speech detected"
	case ErrConversionFailure:
		return fmt.Sprintf("audio conversion failed: %v", e.Err)
	case ErrTranscriptionFailure:
		return fmt.Sprintf("transcription failed: %v", e.Err)
	case ErrNoCredentials:
		return "no API credentials configured"
	case ErrHTTP:
		return fmt.Sprintf("assistant request failed with status %d: %s", e.Status, e.Body)
	case ErrNetworkFailure:
		return fmt.Sprintf("network failure: %v", e.Err)
	case ErrCaptureFailure:
		return fmt.Sprintf("audio capture failed: %v", e.Err)
	default:
		return e.Kind.String()
	}
}

// AsError attempts to convert an error to *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

package assistant

import (
	"context"
	"fmt"

	"github.com/shawnjuqi/sentient/pkg/audio/pcm"
)

// PermissionStatus is the OS capture permission state.
type PermissionStatus int

const (
	PermissionUndetermined PermissionStatus = iota
	PermissionGranted
	PermissionDenied
)

// String returns the string representation of the status.
func (s PermissionStatus) String() string {
	switch s {
	case PermissionUndetermined:
		return "undetermined"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return fmt.Sprintf("permission(%d)", int(s))
	}
}

// Permission reports and requests OS capture permission.
type Permission interface {
	// Status returns the current permission state without prompting.
	Status() PermissionStatus

	// Request prompts the user if the state is undetermined and returns
	// the settled status. It may block until the user responds.
	Request(ctx context.Context) (PermissionStatus, error)
}

// GrantedPermission is a Permission that is always granted, for platforms
// without a runtime microphone permission broker.
type GrantedPermission struct{}

func (GrantedPermission) Status() PermissionStatus {
	return PermissionGranted
}

func (GrantedPermission) Request(ctx context.Context) (PermissionStatus, error) {
	return PermissionGranted, nil
}

// CaptureSource produces raw audio frames from its own real-time context.
type CaptureSource interface {
	// Start begins capture, invoking sink for every frame until Stop.
	// The sink must not block: it is called from the capture context.
	// Frame data is only valid for the duration of the call.
	Start(sink func(pcm.Frame)) error

	// Stop ends capture. No sink invocations happen after Stop returns.
	Stop() error
}

package chat

import (
	"errors"
	"fmt"
)

// MaxErrorBody is the maximum number of bytes of a non-success response
// body retained in an HTTPError. Anything beyond it is discarded to avoid
// unbounded buffering of error pages.
const MaxErrorBody = 500

// ErrNoCredentials is reported when a request is started without an API
// key configured. No network I/O happens in that case.
var ErrNoCredentials = errors.New("chat: no API credentials configured")

// HTTPError is a non-success status from the completions endpoint.
type HTTPError struct {
	// Status is the HTTP status code.
	Status int

	// Body is the response body, truncated to MaxErrorBody bytes.
	Body string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("chat: http %d: %s", e.Status, e.Body)
}

// AsHTTPError attempts to convert an error to *HTTPError.
func AsHTTPError(err error) (*HTTPError, bool) {
	var e *HTTPError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

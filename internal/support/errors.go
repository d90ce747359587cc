package support

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSessionNotFound is returned by FetchSession when the backend has no
// record of the requested session.
var ErrSessionNotFound = errors.New("session not found")

// TransportError covers everything that kept a usable response from
// arriving: dial failures, resets, timeouts and bodies that are not the
// expected JSON.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BackendError is a response with a status outside 2xx. Body is kept verbatim.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("Backend error %d: %s", e.StatusCode, e.Body)
}

func transportErr(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

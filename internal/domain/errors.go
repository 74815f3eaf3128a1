package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure modes this subsystem distinguishes.
// Cache-layer failures are always recovered locally (degrade to an
// upstream fetch); upstream failures are surfaced to the synchronous
// caller as a status code; background-task failures are swallowed
// after logging.
var (
	// ErrCacheMiss reports that a key is absent (or hard-expired) in a
	// cache category. It is a normal control-flow signal, not a fault.
	ErrCacheMiss = errors.New("cache miss")

	// ErrStorage wraps failures of the local store. Callers treat it
	// as a cache miss; it must never become user-visible.
	ErrStorage = errors.New("storage failure")

	// ErrParse reports a malformed JSON body, from upstream or from a
	// stored payload. A stored-payload parse failure is a cache miss.
	ErrParse = errors.New("malformed payload")

	// ErrTransport reports a network-level failure reaching the
	// upstream; surfaced to callers as a 500-class status.
	ErrTransport = errors.New("upstream transport failure")

	// ErrNotAuthenticated reports that no usable token is held.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRefreshFailed is terminal for the current session: the stored
	// and in-memory token have been cleared.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// StatusError carries an upstream HTTP status through the call chain.
// Transport failures and unparseable 2xx bodies are reported as 500.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream status %d", e.Status)
}

func (e *StatusError) Unwrap() error { return e.Err }

// NewStatusError builds a StatusError wrapping cause, which may be nil.
func NewStatusError(status int, cause error) *StatusError {
	return &StatusError{Status: status, Err: cause}
}

// StatusOf extracts the HTTP status carried by err. Errors without a
// StatusError in their chain map to 500, matching the policy that
// transport and parse failures are 500-class.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return http.StatusInternalServerError
}

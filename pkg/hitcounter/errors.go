package hitcounter

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when a Forwarder is constructed without one
	// of its collaborators. It is not retryable.
	ErrConfiguration = errors.New("hit counter misconfigured")
	// ErrInvalidRequest is returned when no key can be derived from a request.
	// The counter is never touched in this case.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrCounterUnavailable is returned when the counter store fails to
	// increment. The downstream handler is not invoked, so the caller may retry.
	ErrCounterUnavailable = errors.New("hit counter unavailable")
	// ErrDownstream matches any *DownstreamError.
	ErrDownstream = errors.New("downstream failed")
)

// DownstreamError is returned when the downstream handler fails after the hit
// was counted. The increment is not rolled back.
type DownstreamError struct {
	// Key the hit was counted against.
	Key string
	// Count is the value of the counter after this call's increment.
	Count uint64
	// Err is the error returned by the downstream handler.
	Err error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("downstream failed for %s (counted as hit %d): %s", e.Key, e.Count, e.Err)
}

func (e *DownstreamError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDownstream) match.
func (e *DownstreamError) Is(target error) bool {
	return target == ErrDownstream
}

// Counted reports whether a failed Handle call still recorded a hit, i.e. the
// request was counted but not forwarded successfully.
func Counted(err error) bool {
	var de *DownstreamError
	return errors.As(err, &de)
}

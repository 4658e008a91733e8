package api

import (
	"errors"
	"fmt"
)

// The client sorts every failure into one of three buckets so callers can
// react programmatically instead of string-matching messages:
//
//   - NetworkError: no response at all (timeout, refused, DNS). Mutations
//     are queued for replay, polls fall back to the last good snapshot.
//   - StatusError: the server answered with 4xx/5xx. Retrying would not
//     help; surfaced to the operator immediately.
//   - ErrNothingToUndo / ErrNotFound: expected conditions with dedicated
//     UI states, split out from StatusError by the typed endpoints.

// ErrNotFound is reported when a game or share token does not exist or
// has been disabled. Terminal: callers show an empty state, not a retry.
var ErrNotFound = errors.New("not found")

// ErrNothingToUndo is reported by UndoLastStat when the server has no
// recorded stat left to remove. Not a failure, local state is untouched.
var ErrNothingToUndo = errors.New("nothing to undo")

// NetworkError wraps a transport-level failure: the request never got an
// HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err is a transport failure eligible for queueing.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// StatusError is a non-2xx HTTP response with its body preserved.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server rejected request: status=%d body=%s", e.Code, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 without callers having
// to unwrap the StatusError themselves.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == 404
}

// IsRejection reports whether err is an explicit server-side rejection
// (4xx/5xx). Rejected mutations are never queued.
func IsRejection(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

package scheduling

import (
	"context"
	"errors"
)

var (
	// ErrStateNotFound is returned by stores when no record exists for a session.
	ErrStateNotFound = errors.New("scheduling: state not found")
	// ErrConcurrentUpdate is returned when a save carries a stale version.
	ErrConcurrentUpdate = errors.New("scheduling: concurrent state update")
	// ErrLockTimeout is returned when the session lock could not be acquired in time.
	ErrLockTimeout = errors.New("scheduling: session lock timeout")
	// ErrUnknownPhase is returned when a phase has no registered handler.
	ErrUnknownPhase = errors.New("scheduling: unknown phase")
	// ErrMissingSlot is returned when a handler runs without a slot an earlier phase must have set.
	ErrMissingSlot = errors.New("scheduling: missing required slot")
	// ErrChainOverflow is returned when handlers keep continuing past the hop limit.
	ErrChainOverflow = errors.New("scheduling: handler chain exceeded hop limit")
)

// DomainError is implemented by directory errors that carry a business
// rejection (4xx) rather than a transient failure.
type DomainError interface {
	error
	IsDomain() bool
}

// isDomainError reports whether err is a directory-side rejection.
func isDomainError(err error) bool {
	var de DomainError
	if errors.As(err, &de) {
		return de.IsDomain()
	}
	return false
}

// isTimeout reports whether err came from an expired deadline.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

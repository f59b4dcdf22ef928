package view

import "errors"

// Failure taxonomy surfaced to callers. The view layer performs no retries
// and no silent recovery; every failure below propagates verbatim.
var (
	// ErrInvalidArgument marks a request missing a required identifier.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a point-in-time lookup that failed when the caller
	// declined to wait for detection.
	ErrNotFound = errors.New("not found")

	// ErrFailedPrecondition marks required local configuration (sync or
	// epoch parameters) being unavailable.
	ErrFailedPrecondition = errors.New("failed precondition")

	// ErrIdentityDisagreement marks a broadcast whose locally computed id
	// differs from the id the network reported. Always fatal.
	ErrIdentityDisagreement = errors.New("identity disagreement")

	// ErrSubscriptionEnded marks a detection wait whose underlying event
	// stream terminated without a match. Distinct from ErrNotFound: the
	// wait itself was exhausted, not the initial check.
	ErrSubscriptionEnded = errors.New("subscription ended")
)

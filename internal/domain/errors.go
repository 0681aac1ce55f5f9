package domain

import "errors"

// Error taxonomy for a single signal's handling. All of these are local to
// one request; none terminate the process.
var (
	// ErrInvalidSignal marks a malformed or incomplete signal payload.
	ErrInvalidSignal = errors.New("invalid signal")

	// ErrDuplicateSignal marks a correlation ID seen within the cooldown window.
	ErrDuplicateSignal = errors.New("duplicate signal")

	// ErrSizeTooSmall means the computed quantity or notional is below the
	// exchange minimums. Expected outcome, not a fault.
	ErrSizeTooSmall = errors.New("size below exchange minimum")

	// ErrPositionMismatch means an exit (or opposite-direction entry) was
	// requested against a position whose direction does not match.
	ErrPositionMismatch = errors.New("position direction mismatch")

	// ErrUpstreamUnavailable means an equity/price/position query failed, so
	// the operation was aborted before any order was attempted.
	ErrUpstreamUnavailable = errors.New("exchange data unavailable")

	// ErrExchange means order placement was rejected or errored after
	// submission. Local state is not assumed updated.
	ErrExchange = errors.New("exchange order error")
)

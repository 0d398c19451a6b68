package whatif

import "errors"

// Sentinel errors for the engine. Callers match them with errors.Is; the
// engine wraps them with context using %w.
var (
	// ErrDataUnavailable reports that the price source has nothing for a
	// ticker/range. Non fatal: computation continues with carry-forward.
	ErrDataUnavailable = errors.New("price data unavailable")

	// ErrInsufficientFunds reports that starting cash cannot cover the
	// initial purchases. Fatal to the build, nothing is persisted.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrOverdraftTrade reports a sell for more shares than held. The whole
	// modification batch is rejected, no partial application.
	ErrOverdraftTrade = errors.New("overdraft trade")

	// ErrInvalidScenario reports a malformed algorithmic scenario config.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrPlanningUnavailable reports that the language model call failed or
	// returned nothing parseable. Always recoverable through the fallback.
	ErrPlanningUnavailable = errors.New("planning unavailable")

	// ErrParseFailure reports that a model response had no usable structure.
	ErrParseFailure = errors.New("unparseable model response")

	// ErrNotFound reports an unknown id on read, update or delete.
	ErrNotFound = errors.New("not found")
)

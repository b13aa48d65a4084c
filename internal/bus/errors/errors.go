// Package errors holds the sentinel errors returned by crossbus API misuse
// paths. Note that the engine itself treats most misuse (double unsubscribe,
// clearing empty history, double destroy) as defined no-ops; these sentinels
// cover only constructor and registration preconditions.
package errors

import sterrors "errors"

var (
	ErrBusRequired       = sterrors.New("crossbus: bus is required")
	ErrAdapterRequired   = sterrors.New("crossbus: adapter is required")
	ErrHandlerRequired   = sterrors.New("crossbus: handler function is required")
	ErrEventTypeRequired = sterrors.New("crossbus: event type is required")
	ErrConfigRequired    = sterrors.New("crossbus: config is required")
	ErrLoggerRequired    = sterrors.New("crossbus: logger is required")
	ErrSideRequired      = sterrors.New("crossbus: adapter side must be backend or frontend")
	ErrBusDestroyed      = sterrors.New("crossbus: bus has been destroyed")
)

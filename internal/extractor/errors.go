package extractor

import "errors"

var (
	// ErrSearchUnavailable is returned by Run when no automation surface can be
	// acquired or the result list cannot be opened. It is the only error that
	// escapes a run.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrNoDriver is returned by a DriverFactory that cannot start a browser.
	ErrNoDriver = errors.New("no page driver available")
	// ErrElementNotFound is returned by drivers for stale or missing element handles.
	ErrElementNotFound = errors.New("element not found")
	// ErrNameUnresolved marks a detail reference whose name matched no locator.
	ErrNameUnresolved = errors.New("business name could not be resolved")
	// ErrInvalidTarget is returned for a non-positive target count.
	ErrInvalidTarget = errors.New("target count must be positive")
)

package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown connector or normalizer type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRunInProgress indicates a run is already active for the source
	// instance. Triggers that hit this are dropped, not queued.
	ErrRunInProgress = errors.New("run in progress")

	// ErrEmptyContent indicates normalization produced no usable text.
	ErrEmptyContent = errors.New("empty content")

	// ErrConnectorValidation indicates connector validation failed.
	// The source is misconfigured or the upstream is unreachable.
	ErrConnectorValidation = errors.New("connector validation failed")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// ErrDispatcherStopped indicates the dispatcher is shutting down and
	// accepts no new triggers.
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

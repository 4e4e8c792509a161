package domain

import "errors"

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInactiveMapping is returned when transformation is attempted
	// against a mapping the operator has not activated.
	ErrInactiveMapping = errors.New("type mapping is inactive")

	// ErrSourceArchived is returned for operations on archived sources.
	ErrSourceArchived = errors.New("data source is archived")

	// ErrSourceInactive is returned when an inactive source is asked to
	// receive or poll.
	ErrSourceInactive = errors.New("data source is inactive")

	// ErrInvalidConfig is wrapped by configuration validation failures;
	// these are rejected at save time and never partially applied.
	ErrInvalidConfig = errors.New("invalid adapter configuration")
)

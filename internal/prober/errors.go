package prober

import "errors"

// Fatal construction errors. Callers match them with errors.Is.
var (
	// ErrInvalidIdentifier reports a malformed or out-of-range start/stop id.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrUnsupportedTarget reports a site name missing from the registry.
	ErrUnsupportedTarget = errors.New("unsupported target")
	// ErrConfigurationMissing reports a notification endpoint that could not be resolved.
	ErrConfigurationMissing = errors.New("configuration missing")
)

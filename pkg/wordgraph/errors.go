package wordgraph

import "errors"

var (
	// ErrInvalidInput is returned when the corpus itself is malformed, e.g.
	// nil or containing text that is not valid UTF-8.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidConfig is returned for unusable configuration values.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrSuperseded is returned by Service.Submit when a newer request was
	// submitted before this one's result could be delivered.
	ErrSuperseded = errors.New("request superseded by a newer one")
	// ErrClosed is returned by Service.Submit after Close.
	ErrClosed = errors.New("service closed")
)

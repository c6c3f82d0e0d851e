package eventstream

import "errors"

var (
	// ErrNilMemoryEvent indicates a nil memory event payload was provided to a publisher.
	ErrNilMemoryEvent = errors.New("nil memory event")

	// ErrPublisherClosed is returned when publishing after Close.
	ErrPublisherClosed = errors.New("publisher closed")
)

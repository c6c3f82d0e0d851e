// Package eventstream defines the memory mutation events and the publisher
// interface used to ship them to an event stream backend.
package eventstream

import "context"

// Publisher publishes memory events to an event stream backend.
type Publisher interface {
	PublishMemory(ctx context.Context, event *MemoryEvent) error
	Close() error
}

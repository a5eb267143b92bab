// Package sink delivers normalized records to downstream consumers.
package sink

import (
	"context"
	"time"
)

// Record is one normalized row tagged with its source stream.
type Record struct {
	Stream    string         `json:"stream"`
	ProfileID string         `json:"profile_id"`
	Data      map[string]any `json:"data"`
	EmittedAt time.Time      `json:"emitted_at"`
}

// Sink receives normalized records. Implementations must be safe for
// concurrent use; the extractor emits from one goroutine per report stream.
type Sink interface {
	// Emit delivers one record. Delivery semantics (buffered, batched,
	// at-least-once) are implementation-defined.
	Emit(ctx context.Context, record Record) error

	// Close flushes buffered records and releases resources.
	Close() error
}

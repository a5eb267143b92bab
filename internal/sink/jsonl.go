package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// JSONLSink writes one JSON object per line to an io.Writer, typically
// stdout. Useful for piping into downstream loaders and for local runs
// without a broker.
type JSONLSink struct {
	mutex   sync.Mutex
	encoder *json.Encoder
	closer  io.Closer
}

// NewJSONLSink creates a line-delimited JSON sink on w. If w also implements
// io.Closer it is closed by Close.
func NewJSONLSink(w io.Writer) *JSONLSink {
	sink := &JSONLSink{encoder: json.NewEncoder(w)}

	if closer, ok := w.(io.Closer); ok {
		sink.closer = closer
	}

	return sink
}

// Emit writes the record as a single JSON line.
func (s *JSONLSink) Emit(_ context.Context, record Record) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.encoder.Encode(record); err != nil {
		return fmt.Errorf("writing record for stream %s: %w", record.Stream, err)
	}

	return nil
}

// Close closes the underlying writer when it is closable.
func (s *JSONLSink) Close() error {
	if s.closer == nil {
		return nil
	}

	return s.closer.Close()
}

package report

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"time"
)

// dateLayout is the wire format for report dates and watermarks.
const dateLayout = "2006-01-02"

// Normalizer maps raw report rows to a declared schema, coercing numeric
// types and suppressing rows already delivered in a prior run.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Normalizer{logger: logger}
}

// Normalize converts raw records to schema-shaped records and streams them to
// emit in input order. A record is only emitted when its replication-key date
// is strictly greater than the watermark; unparseable dates fail open and are
// emitted. watermark == "" disables the filter.
//
// emit returning an error stops normalization and propagates the error.
func (n *Normalizer) Normalize(raw []map[string]any, cfg Config, watermark string, emit func(map[string]any) error) error {
	var mark time.Time

	filtering := false

	if watermark != "" && cfg.ReplicationKey != "" {
		parsed, err := time.Parse(dateLayout, watermark)
		if err != nil {
			n.logger.Warn("Unparseable watermark, emitting all records",
				slog.String("stream", cfg.Name),
				slog.String("watermark", watermark),
			)
		} else {
			mark = parsed
			filtering = true
		}
	}

	suppressed := 0

	for _, row := range raw {
		record := n.shape(row, cfg.Schema)

		if filtering && n.seenBefore(record[cfg.ReplicationKey], mark) {
			suppressed++
			continue
		}

		if err := emit(record); err != nil {
			return err
		}
	}

	if suppressed > 0 {
		n.logger.Info("Suppressed already-delivered records",
			slog.String("stream", cfg.Name),
			slog.Int("suppressed", suppressed),
		)
	}

	return nil
}

// shape projects a raw row onto the declared schema, coercing numeric kinds.
// Fields absent from the raw row come through as nil.
func (n *Normalizer) shape(row map[string]any, schema []Field) map[string]any {
	record := make(map[string]any, len(schema))

	for _, field := range schema {
		record[field.Name] = coerce(row[field.Name], field.Kind)
	}

	return record
}

// seenBefore reports whether the record date is at or before the watermark.
// Unparseable or missing dates fail open.
func (n *Normalizer) seenBefore(value any, mark time.Time) bool {
	str, ok := value.(string)
	if !ok {
		return false
	}

	date, err := time.Parse(dateLayout, str)
	if err != nil {
		return false
	}

	return !date.After(mark)
}

// coerce converts a raw value to its declared kind. Integer coercion goes
// through float truncation so values serialized as "12.0" still land as 12.
// Conversion failure yields nil rather than an error.
func coerce(value any, kind FieldKind) any {
	if value == nil {
		return nil
	}

	switch kind {
	case KindInteger:
		f, ok := toFloat(value)
		if !ok {
			return nil
		}

		return int64(f)

	case KindNumber:
		f, ok := toFloat(value)
		if !ok {
			return nil
		}

		return f

	case KindString:
	}

	return value
}

// toFloat widens the numeric shapes encoding/json and raw APIs produce.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

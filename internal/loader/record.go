package loader

import (
	"math"
	"strings"
)

// Record is one row of input data keyed by column name.
type Record map[string]any

// Normalize returns a copy of the record with empty strings and NaN
// floats replaced by nil, so they land as SQL NULL instead of junk
// sentinel values. Keys are trimmed of surrounding whitespace.
func (r Record) Normalize() Record {
	out := make(Record, len(r))
	for key, value := range r {
		out[strings.TrimSpace(key)] = normalizeValue(value)
	}
	return out
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return v
	default:
		return value
	}
}

// Package normalize converts arbitrary-precision decimals into float64 so that
// payloads can cross into JSON consumers that only understand native numbers.
package normalize

import (
	"time"

	"github.com/shopspring/decimal"
)

// Value returns a copy of v in which every decimal has been replaced by a float64.
// Maps and slices are rebuilt; v itself is never modified. Times, nil,
// primitives and unknown types are returned unchanged.
func Value(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return x.InexactFloat64()
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return x.InexactFloat64()
	case decimal.NullDecimal:
		if !x.Valid {
			return nil
		}
		return x.Decimal.InexactFloat64()
	case time.Time, *time.Time:
		return x
	case map[string]any:
		return Record(x)
	case []map[string]any:
		return Records(x)
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = Value(el)
		}
		return out
	case []decimal.Decimal:
		out := make([]float64, len(x))
		for i, d := range x {
			out[i] = d.InexactFloat64()
		}
		return out
	default:
		return v
	}
}

// Record normalizes every field of r into a new map
func Record(r map[string]any) map[string]any {
	if r == nil {
		return nil
	}
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = Value(v)
	}
	return out
}

// Records normalizes a list of records preserving order
func Records(rs []map[string]any) []map[string]any {
	if rs == nil {
		return nil
	}
	out := make([]map[string]any, len(rs))
	for i, r := range rs {
		out[i] = Record(r)
	}
	return out
}

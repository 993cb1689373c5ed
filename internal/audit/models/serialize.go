package models

import (
	"fmt"
	"reflect"
	"time"

	"intia/pkg/domain"
)

// NormalizeSnapshot converts a before/after snapshot into plain structured
// data so stored entries stay queryable and diffable: times and dates become
// ISO-8601 strings, monetary amounts become floats, nested maps and slices
// are normalized element-wise. Scalars pass through unchanged.
func NormalizeSnapshot(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(time.RFC3339)
	case domain.Date:
		return val.String()
	case *domain.Date:
		if val == nil {
			return nil
		}
		return val.String()
	case domain.Money:
		return val.Float64()
	case *domain.Money:
		if val == nil {
			return nil
		}
		return val.Float64()
	case map[string]any:
		return NormalizeSnapshot(val)
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalizeValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem().Interface())
	}
	return v
}

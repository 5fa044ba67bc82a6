package broker

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
)

// storeIDKey is the document-store primary key; it duplicates the event id.
const storeIDKey = "_id"

// hexer matches database-native object identifiers.
type hexer interface {
	Hex() string
}

// CleanPayload returns a copy of payload that encodes to JSON without
// surprises: object ids become hex strings, other non-JSON values with a
// String method become strings, and "_id" keys are dropped at every level.
// Cleaning an already clean payload returns an equal payload.
func CleanPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	return cleanMap(payload)
}

func cleanMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k == storeIDKey {
			continue
		}
		out[k] = cleanValue(v)
	}
	return out
}

func cleanValue(v any) any {
	// A nil pointer would panic inside Hex or String.
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}

	switch t := v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t
	case []string:
		return t
	case map[string]any:
		return cleanMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cleanValue(e)
		}
		return out
	case hexer:
		return t.Hex()
	case json.Marshaler, encoding.TextMarshaler:
		return t
	case fmt.Stringer:
		return t.String()
	}
	return cleanReflect(v)
}

// cleanReflect handles typed slices and string-keyed maps ([]ObjectID, map[string]string...).
func cleanReflect(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = cleanValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			if k == storeIDKey {
				continue
			}
			out[k] = cleanValue(iter.Value().Interface())
		}
		return out
	}
	return v
}

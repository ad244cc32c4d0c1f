package report

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strings"
)

// DeterministicEncode produces byte-identical JSON for equal values:
// object keys sorted, floats rounded to 6 decimal places, nil and empty
// values omitted.
func DeterministicEncode(v any) ([]byte, error) {
	return encode(v, "")
}

// DeterministicEncodeIndented is DeterministicEncode with indentation.
func DeterministicEncodeIndented(v any, indent string) ([]byte, error) {
	return encode(v, indent)
}

func encode(v any, indent string) ([]byte, error) {
	normalized, err := normalizeValue(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if indent != "" {
		encoder.SetIndent("", indent)
	}
	if err := encoder.Encode(normalized); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

var marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// normalizeValue recursively normalizes a value for deterministic encoding.
// Values implementing json.Marshaler are encoded by their own method.
func normalizeValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	val := reflect.ValueOf(v)
	if val.Type().Implements(marshalerType) && !(val.Kind() == reflect.Ptr && val.IsNil()) {
		data, err := v.(json.Marshaler).MarshalJSON()
		if err != nil {
			return nil, err
		}
		return json.RawMessage(data), nil
	}

	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		return normalizeMap(val)
	case reflect.Slice, reflect.Array:
		return normalizeSlice(val)
	case reflect.Struct:
		return normalizeStruct(val)
	case reflect.Float32, reflect.Float64:
		return roundFloat(val.Float()), nil
	case reflect.Interface:
		if val.IsNil() {
			return nil, nil
		}
		return normalizeValue(val.Interface())
	default:
		return val.Interface(), nil
	}
}

func normalizeMap(val reflect.Value) (any, error) {
	if val.IsNil() || val.Len() == 0 {
		return nil, nil
	}
	result := make(map[string]any, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		value, err := normalizeValue(iter.Value().Interface())
		if err != nil {
			return nil, err
		}
		if value != nil {
			result[iter.Key().String()] = value
		}
	}
	return result, nil
}

func normalizeSlice(val reflect.Value) (any, error) {
	if val.Kind() == reflect.Slice && val.IsNil() || val.Len() == 0 {
		return nil, nil
	}
	result := make([]any, val.Len())
	for i := range result {
		item, err := normalizeValue(val.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		result[i] = item
	}
	return result, nil
}

// normalizeStruct converts a struct to a map keyed by JSON field name.
func normalizeStruct(val reflect.Value) (any, error) {
	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}

		normalized, err := normalizeValue(val.Field(i).Interface())
		if err != nil {
			return nil, err
		}
		if strings.Contains(opts, "omitempty") && isZeroValue(normalized) {
			continue
		}
		if normalized != nil {
			result[name] = normalized
		}
	}
	return result, nil
}

func isZeroValue(v any) bool {
	if v == nil {
		return true
	}
	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.String:
		return val.Len() == 0
	case reflect.Bool:
		return !val.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return val.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return val.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return val.Float() == 0
	case reflect.Map, reflect.Slice:
		return val.Len() == 0
	}
	return false
}

func roundFloat(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

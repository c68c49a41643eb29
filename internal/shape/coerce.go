package shape

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Record is a coerced model output holding exactly the declared fields.
// Values are string, float64, bool, map[string]any or []any by kind.
type Record map[string]any

func (r Record) String(name string) (string, bool) {
	v, ok := r[name].(string)
	return v, ok
}

func (r Record) Number(name string) (float64, bool) {
	v, ok := r[name].(float64)
	return v, ok
}

func (r Record) Bool(name string) (bool, bool) {
	v, ok := r[name].(bool)
	return v, ok
}

// Coerce extracts a JSON object from raw model text and validates it against
// s, converting values to their declared kinds in declaration order.
//
// string fields accept any value: numbers and booleans become their text and
// objects or arrays their compact JSON. number fields accept numbers and
// numeric strings; boolean fields accept booleans and "true"/"false" in any
// case. object and array fields accept only that container type. Keys not in
// s are dropped.
func Coerce(s Shape, raw string) (Record, error) {
	if s.IsEmpty() {
		return nil, ErrEmptyShape
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	candidate := extractCandidate(raw)
	parsed, err := parseObject(candidate)
	if err != nil {
		// Prose around an unfenced object is common; retry on the first
		// balanced object before giving up.
		embedded, ok := firstObject(candidate)
		if !ok || embedded == candidate {
			return nil, &JSONParseError{Err: err, Raw: raw, Candidate: candidate}
		}
		var retryErr error
		parsed, retryErr = parseObject(embedded)
		if retryErr != nil {
			return nil, &JSONParseError{Err: err, Raw: raw, Candidate: candidate}
		}
	}

	out := make(Record, s.Len())
	for _, f := range s.fields {
		v, ok := parsed[f.Name]
		if !ok || v == nil {
			return nil, &MissingKeyError{Field: f.Name}
		}
		coerced, err := coerceValue(f, v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = coerced
	}
	return out, nil
}

// CoerceInto coerces raw and decodes the record into v, typically a pointer
// to a struct with json tags matching the field names.
func CoerceInto(s Shape, raw string, v any) error {
	rec, err := Coerce(s, raw)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

func parseObject(candidate string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", jsonTypeName(v))
	}
	return obj, nil
}

func coerceValue(f Field, v any) (any, error) {
	switch f.Kind {
	case KindString:
		return stringify(v), nil

	case KindNumber:
		switch t := v.(type) {
		case json.Number:
			n, err := t.Float64()
			if err != nil {
				return nil, &TypeMismatchError{Field: f.Name, Kind: f.Kind, Value: v}
			}
			return n, nil
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
				return nil, &TypeMismatchError{Field: f.Name, Kind: f.Kind, Value: v}
			}
			return n, nil
		}
		return nil, &TypeMismatchError{Field: f.Name, Kind: f.Kind, Value: v}

	case KindBoolean:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			switch {
			case strings.EqualFold(t, "true"):
				return true, nil
			case strings.EqualFold(t, "false"):
				return false, nil
			}
		}
		return nil, &TypeMismatchError{Field: f.Name, Kind: f.Kind, Value: v}

	case KindObject:
		if obj, ok := v.(map[string]any); ok {
			return normalize(obj), nil
		}
		return nil, &TypeMismatchError{Field: f.Name, Kind: f.Kind, Value: v}

	case KindArray:
		if arr, ok := v.([]any); ok {
			return normalize(arr), nil
		}
		return nil, &TypeMismatchError{Field: f.Name, Kind: f.Kind, Value: v}

	default:
		return nil, &UnknownKindError{Field: f.Name, Kind: f.Kind}
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return formatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

// formatNumber renders n in its shortest decimal form, switching to exponent
// notation for very large or very small magnitudes.
func formatNumber(n json.Number) string {
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	abs := math.Abs(f)
	if f == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}

// normalize converts json.Number values nested inside containers to float64
// so records never leak decoder types.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

package store

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
)

// Kind discriminates the variants of Value. It is persisted next to the encoded text.
type Kind string

const (
	KindNull   Kind = "null"
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindJSON   Kind = "json"
)

// legacyNull is the sentinel older writers stored for an absent value.
const legacyNull = "null"

// Value is the tagged payload of an event: a scalar stored verbatim or a structured
// value stored as JSON. The zero Value is null.
type Value struct {
	kind Kind
	v    any
	raw  []byte
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, v: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, v: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, v: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, v: b} }

// Structured returns a structured value. v is normalized through JSON so that the
// in-memory form equals what is read back from the store.
func Structured(v any) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Value{}, errmodel.Validation("unencodable_value", "value cannot be encoded as JSON", map[string]any{"error": err.Error()})
	}
	dec, ok := decodeJSON(string(raw))
	if !ok {
		return Value{}, errmodel.Validation("unencodable_value", "value cannot be decoded from JSON", nil)
	}
	return dec, nil
}

// ValueOf classifies an arbitrary Go value.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case float32:
		return floatValue(float64(t))
	case float64:
		return floatValue(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, errmodel.Validation("invalid_number", "malformed JSON number", map[string]any{"number": t.String()})
		}
		return floatValue(f)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Null(), nil
		}
		return ValueOf(rv.Elem().Interface())
	}
	return Structured(v)
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, errmodel.Validation("invalid_number", "value is not a finite number", map[string]any{"value": fmt.Sprint(f)})
	}
	return Float(f), nil
}

// Kind reports the variant. The zero Value reports KindNull.
func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind() == KindNull }

// Interface returns the Go form: nil, string, int64, float64, bool, or the
// JSON-decoded structure (map[string]any, []any, ...). Numbers inside a
// structure are float64 unless they are integers beyond 2^53, which are int64.
func (v Value) Interface() any {
	if v.IsNull() {
		return nil
	}
	return v.v
}

// Encode returns the persisted text for v; ok is false for null.
func (v Value) Encode() (text string, ok bool, err error) {
	switch v.Kind() {
	case KindNull:
		return "", false, nil
	case KindString:
		return v.v.(string), true, nil
	case KindInt:
		return strconv.FormatInt(v.v.(int64), 10), true, nil
	case KindFloat:
		return strconv.FormatFloat(v.v.(float64), 'g', -1, 64), true, nil
	case KindBool:
		return strconv.FormatBool(v.v.(bool)), true, nil
	case KindJSON:
		if v.raw != nil {
			return string(v.raw), true, nil
		}
		b, err := json.Marshal(v.v)
		if err != nil {
			return "", false, errmodel.Validation("unencodable_value", "value cannot be encoded as JSON", map[string]any{"error": err.Error()})
		}
		return string(b), true, nil
	default:
		return "", false, errmodel.Validation("unknown_kind", "unknown value kind", map[string]any{"kind": string(v.kind)})
	}
}

// Decode rebuilds a Value from its persisted kind and text. It never fails:
// text that does not parse as its declared kind is returned as a string.
// An empty kind marks a row written without a discriminator, decoded by the
// legacy rules (literal "null" is null, valid JSON is decoded, anything else is a string).
func Decode(kind string, text string, valid bool) Value {
	switch Kind(kind) {
	case KindNull:
		return Null()
	case KindString:
		return String(text)
	case KindInt:
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Int(i)
		}
	case KindFloat:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return Float(f)
		}
	case KindBool:
		if b, err := strconv.ParseBool(text); err == nil {
			return Bool(b)
		}
	case KindJSON:
		if v, ok := decodeJSON(text); ok {
			return v
		}
	case "":
		if !valid || text == legacyNull {
			return Null()
		}
		if v, ok := decodeJSON(text); ok {
			return v
		}
	}
	if !valid {
		return Null()
	}
	return String(text)
}

// maxExactFloat is the bound below which every integer has an exact float64 form.
const maxExactFloat = 1 << 53

func decodeJSON(text string) (Value, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return Value{}, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, false
	}
	switch t := out.(type) {
	case nil:
		return Null(), true
	case string:
		return String(t), true
	case bool:
		return Bool(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), true
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, false
		}
		if f == math.Trunc(f) && math.Abs(f) < maxExactFloat {
			return Int(int64(f)), true
		}
		return Float(f), true
	}
	doc, ok := numbers(out)
	if !ok {
		return Value{}, false
	}
	return Value{kind: KindJSON, v: doc, raw: []byte(text)}, true
}

// numbers replaces the json.Number leaves of a decoded document. Numbers are
// float64, except integers too large for float64 to hold exactly, which stay int64.
func numbers(v any) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			n, ok := numbers(e)
			if !ok {
				return nil, false
			}
			t[k] = n
		}
	case []any:
		for i, e := range t {
			n, ok := numbers(e)
			if !ok {
				return nil, false
			}
			t[i] = n
		}
	case json.Number:
		if i, err := t.Int64(); err == nil && (i >= maxExactFloat || i <= -maxExactFloat) {
			return i, true
		}
		f, err := t.Float64()
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return v, true
}

// MarshalJSON renders the Go form of v.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind() == KindJSON && v.raw != nil {
		return v.raw, nil
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes any JSON document into a Value.
func (v *Value) UnmarshalJSON(b []byte) error {
	dec, ok := decodeJSON(string(b))
	if !ok {
		return errmodel.Validation("invalid_json", "value is not valid JSON", nil)
	}
	*v = dec
	return nil
}

package models

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindNumber
	KindBoolean
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "null"
}

// Value is a typed argument value. The zero Value is null.
type Value struct {
	kind   Kind
	str    string
	i      int64
	f      float64
	b      bool
	items  []Value
	fields map[string]Value
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntegerValue returns an integer Value.
func IntegerValue(i int64) Value { return Value{kind: KindInteger, i: i} }

// NumberValue returns a floating point Value.
func NumberValue(f float64) Value { return Value{kind: KindNumber, f: f} }

// BooleanValue returns a boolean Value.
func BooleanValue(b bool) Value { return Value{kind: KindBoolean, b: b} }

// ArrayValue returns an array Value holding vs.
func ArrayValue(vs []Value) Value { return Value{kind: KindArray, items: vs} }

// ObjectValue returns an object Value holding m.
func ObjectValue(m map[string]Value) Value {
	return Value{kind: KindObject, fields: m}
}

// Kind reports the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null Value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Items returns the elements of an array Value, or nil.
func (v Value) Items() []Value { return v.items }

// Convert converts a raw decoded JSON argument to the declared type.
// Lossy or ambiguous conversions (1.5 to integer, true to string-typed
// numbers, scalars to arrays) are rejected rather than coerced.
func Convert(t ParamType, items ParamType, raw any) (Value, error) {
	if raw == nil {
		return Value{}, nil
	}
	switch t {
	case TypeString:
		if isComposite(raw) {
			return Value{}, fmt.Errorf("expected string, got %T", raw)
		}
		s, err := cast.ToStringE(raw)
		if err != nil {
			return Value{}, fmt.Errorf("expected string: %w", err)
		}
		return StringValue(s), nil

	case TypeInteger:
		return toInteger(raw)

	case TypeNumber:
		switch v := raw.(type) {
		case bool:
			return Value{}, fmt.Errorf("expected number, got boolean")
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return Value{}, fmt.Errorf("expected number, got %q", v)
			}
			return NumberValue(f), nil
		}
		if isComposite(raw) {
			return Value{}, fmt.Errorf("expected number, got %T", raw)
		}
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return Value{}, fmt.Errorf("expected number: %w", err)
		}
		return NumberValue(f), nil

	case TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return BooleanValue(v), nil
		case string:
			b, err := cast.ToBoolE(strings.ToLower(strings.TrimSpace(v)))
			if err != nil {
				return Value{}, fmt.Errorf("expected boolean, got %q", v)
			}
			return BooleanValue(b), nil
		}
		return Value{}, fmt.Errorf("expected boolean, got %T", raw)

	case TypeArray:
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return Value{}, fmt.Errorf("expected array, got %T", raw)
		}
		if items == "" {
			items = TypeString
		}
		out := make([]Value, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := Convert(items, TypeString, rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, item)
		}
		return ArrayValue(out), nil

	case TypeObject:
		m, err := cast.ToStringMapE(raw)
		if err != nil {
			return Value{}, fmt.Errorf("expected object: %w", err)
		}
		fields := make(map[string]Value, len(m))
		for k, v := range m {
			fields[k] = FromAny(v)
		}
		return ObjectValue(fields), nil
	}
	return Value{}, fmt.Errorf("unsupported type %q", t)
}

func toInteger(raw any) (Value, error) {
	switch v := raw.(type) {
	case bool:
		return Value{}, fmt.Errorf("expected integer, got boolean")
	case float64:
		return integralFloat(v)
	case float32:
		return integralFloat(float64(v))
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return IntegerValue(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("expected integer, got %q", v.String())
		}
		return integralFloat(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("expected integer, got %q", v)
		}
		return IntegerValue(i), nil
	}
	if isComposite(raw) {
		return Value{}, fmt.Errorf("expected integer, got %T", raw)
	}
	i, err := cast.ToInt64E(raw)
	if err != nil {
		return Value{}, fmt.Errorf("expected integer: %w", err)
	}
	return IntegerValue(i), nil
}

func integralFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return Value{}, fmt.Errorf("expected integer, got %v", f)
	}
	return IntegerValue(int64(f)), nil
}

func isComposite(raw any) bool {
	switch reflect.ValueOf(raw).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

// FromAny wraps an arbitrary decoded JSON value without a declared type.
func FromAny(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Value{}
	case string:
		return StringValue(v)
	case bool:
		return BooleanValue(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return IntegerValue(i)
		}
		f, _ := v.Float64()
		return NumberValue(f)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return IntegerValue(int64(v))
		}
		return NumberValue(v)
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = FromAny(item)
		}
		return ArrayValue(items)
	case map[string]any:
		fields := make(map[string]Value, len(v))
		for k, item := range v {
			fields[k] = FromAny(item)
		}
		return ObjectValue(fields)
	}
	if i, err := cast.ToInt64E(raw); err == nil {
		return IntegerValue(i)
	}
	return StringValue(fmt.Sprint(raw))
}

// Interface converts v back to plain Go values suitable for encoding/json.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return v.i
	case KindNumber:
		return v.f
	case KindBoolean:
		return v.b
	case KindArray:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.fields))
		for k, item := range v.fields {
			out[k] = item.Interface()
		}
		return out
	}
	return nil
}

// String renders v for a path segment or header. Arrays use the comma
// separated "simple" style, objects are JSON encoded.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindNumber:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindArray:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.String()
		}
		return strings.Join(parts, ",")
	case KindObject:
		b, err := json.Marshal(v.Interface())
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// QueryValues renders v as query string values, exploding arrays.
func (v Value) QueryValues() []string {
	if v.kind == KindArray {
		out := make([]string, len(v.items))
		for i, item := range v.items {
			out[i] = item.String()
		}
		return out
	}
	if v.kind == KindNull {
		return nil
	}
	return []string{v.String()}
}

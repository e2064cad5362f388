package recovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Value is a decoded stored value. The concrete types are String, Number,
// Bool, Null, Array and Object; no others exist.
type Value interface {
	isValue()
}

type (
	String string
	// Number keeps the textual form so large integers survive untouched
	Number string
	Bool   bool
	Null   struct{}
	Array  []Value
	Object map[string]Value
)

func (String) isValue() {}
func (Number) isValue() {}
func (Bool) isValue()   {}
func (Null) isValue()   {}
func (Array) isValue()  {}
func (Object) isValue() {}

var errTrailingData = errors.New("unexpected data after JSON value")

// ParseJSON decodes text into a Value. Anything after the first JSON value
// other than whitespace is an error.
func ParseJSON(text string) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return FromAny(raw), nil
}

// FromAny converts decoded JSON or database column values into a Value.
// Types with no JSON counterpart are rendered as strings.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case Value:
		return t
	case string:
		return String(t)
	case []byte:
		return String(t)
	case bool:
		return Bool(t)
	case json.Number:
		return Number(t.String())
	case float64:
		return Number(strconv.FormatFloat(t, 'g', -1, 64))
	case float32:
		return Number(strconv.FormatFloat(float64(t), 'g', -1, 32))
	case int:
		return Number(strconv.Itoa(t))
	case int64:
		return Number(strconv.FormatInt(t, 10))
	case []any:
		arr := make(Array, len(t))
		for i, item := range t {
			arr[i] = FromAny(item)
		}
		return arr
	case map[string]any:
		obj := make(Object, len(t))
		for k, item := range t {
			obj[k] = FromAny(item)
		}
		return obj
	default:
		return String(fmt.Sprint(t))
	}
}

// Walk calls visit for v and then for every nested value, depth first.
// Array elements are visited in order and object members in key order.
func Walk(v Value, visit func(Value)) {
	visit(v)
	switch t := v.(type) {
	case Array:
		for _, item := range t {
			Walk(item, visit)
		}
	case Object:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			Walk(t[k], visit)
		}
	case String, Number, Bool, Null:
	default:
		panic(fmt.Sprintf("recovery: unknown value type %T", v))
	}
}

// Strings returns every string leaf of v in walk order. Object keys are not
// included.
func Strings(v Value) []string {
	var out []string
	Walk(v, func(item Value) {
		if s, ok := item.(String); ok {
			out = append(out, string(s))
		}
	})
	return out
}
